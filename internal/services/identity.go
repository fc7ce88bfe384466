package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/textjournal/backend/internal/logging"
	"github.com/textjournal/backend/internal/models"
	"github.com/textjournal/backend/internal/utils"
)

// Session is what the identity provider hands back on a successful
// credential exchange.
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

type IdentityConfig struct {
	JWTSecret  string
	JWTExpiry  time.Duration
	BcryptCost int
}

// IdentityService is the local identity provider: account creation,
// password verification and session issuance. The gateway and the client
// only reach it through its HTTP surface or the AccountCreator interface.
type IdentityService struct {
	db      *gorm.DB
	cfg     IdentityConfig
	lockout *LockoutService
	log     logging.Logger
	now     func() time.Time
}

func NewIdentityService(db *gorm.DB, cfg IdentityConfig, lockout *LockoutService, log logging.Logger, now func() time.Time) *IdentityService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = logging.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &IdentityService{db: db, cfg: cfg, lockout: lockout, log: log, now: now}
}

// SignUp creates an account. metadata keys phone_number and timezone are
// also copied onto their own columns.
func (s *IdentityService) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.User, error) {
	email = utils.NormalizeEmail(email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if count > 0 {
		return nil, providerError(ErrEmailTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, providerError(ErrPasswordTooLong)
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Metadata:     datatypes.JSONMap{},
	}
	for k, v := range metadata {
		user.Metadata[k] = v
	}
	if phone, ok := metadata["phone_number"].(string); ok && phone != "" {
		user.PhoneNumber = &phone
	}
	if tz, ok := metadata["timezone"].(string); ok && tz != "" {
		user.Timezone = &tz
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// lost a race on the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, providerError(ErrEmailTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// SignInWithPassword verifies credentials and issues a session. A locked
// account is refused before the password is checked. Failures are not
// counted here; the client reports them separately.
func (s *IdentityService) SignInWithPassword(ctx context.Context, email, password, ipAddress string) (*Session, error) {
	email = utils.NormalizeEmail(email)

	if s.lockout != nil {
		st, err := s.lockout.IsLocked(ctx, email)
		if err != nil {
			return nil, err
		}
		if st.Locked {
			return nil, &LockoutError{LockedUntil: *st.LockedUntil}
		}
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, providerError(ErrInvalidLogin)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, providerError(ErrInvalidLogin)
	}

	now := s.now().UTC()
	token, expiresAt, err := utils.GenerateJWT(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.JWTExpiry, now)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	user.LastLoginAt = &now
	user.SessionToken = &token
	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"last_login_at": now,
		"session_token": token,
	}).Error; err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	if s.lockout != nil {
		if err := s.lockout.Clear(ctx, email); err != nil {
			s.log.Warn(ctx, "failed to clear lockout", "email", utils.MaskEmail(email), "error", err)
		}
	}
	attempt := models.LoginAttempt{Email: email, IPAddress: ipAddress, Success: true, CreatedAt: now}
	if err := s.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		s.log.Warn(ctx, "failed to record login attempt", "email", utils.MaskEmail(email), "error", err)
	}

	return &Session{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt, User: &user}, nil
}

// User resolves a bearer token to its account. Tokens replaced by a newer
// sign-in or revoked by sign-out are rejected.
func (s *IdentityService) User(ctx context.Context, token string) (*models.User, error) {
	claims, err := utils.ValidateJWT(token, s.cfg.JWTSecret, s.now())
	if err != nil {
		return nil, ErrUnauthorized
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ? AND session_token = ?", claims.UserID, token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return &user, nil
}

// SignOut revokes the session bound to token.
func (s *IdentityService) SignOut(ctx context.Context, token string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("session_token = ?", token).
		Update("session_token", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUnauthorized
	}
	return nil
}

func (s *IdentityService) SetRole(ctx context.Context, userID, role string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("role", role).Error
}

// UpdateTimezone stores a validated IANA timezone for the user.
func (s *IdentityService) UpdateTimezone(ctx context.Context, userID, timezone string) error {
	if !utils.IsValidTimezone(timezone) {
		return invalid("Invalid timezone format")
	}
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("timezone", timezone).Error
}

// FindByPhone maps a normalized phone number to its account.
func (s *IdentityService) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("phone_number = ?", utils.NormalizePhoneNumber(phone)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownPhone
	}
	return &user, err
}
