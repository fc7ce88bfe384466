package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/textjournal/backend/internal/models"
	"github.com/textjournal/backend/internal/utils"
)

type ConsentService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewConsentService(db *gorm.DB, now func() time.Time) *ConsentService {
	if now == nil {
		now = time.Now
	}
	return &ConsentService{db: db, now: now}
}

// Record stores an SMS consent decision exactly as it was shown.
func (s *ConsentService) Record(ctx context.Context, userID, phone, consentText string, consented bool, ipAddress string) (*models.SmsConsent, error) {
	digits, ok, msg := utils.ValidatePhoneNumber(phone)
	if !ok {
		return nil, invalid("%s", msg)
	}
	consentText = strings.TrimSpace(consentText)
	if consentText == "" {
		return nil, invalid("Consent text is required")
	}

	rec := models.SmsConsent{
		UserID:      userID,
		PhoneNumber: digits,
		ConsentText: consentText,
		Consented:   consented,
		IPAddress:   ipAddress,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("record consent: %w", err)
	}
	return &rec, nil
}

// Latest returns the user's most recent consent record.
func (s *ConsentService) Latest(ctx context.Context, userID string) (*models.SmsConsent, error) {
	var rec models.SmsConsent
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
