package client

import "time"

const (
	ActionSignin = "signin"
	ActionSignup = "signup"
)

// PreflightRequest is the gateway request body.
type PreflightRequest struct {
	Action      string `json:"action"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

type RateLimit struct {
	Attempts    int `json:"attempts"`
	MaxAttempts int `json:"max_attempts"`
}

// PreflightResult is a 200 gateway answer. Signin sets ValidationPassed,
// signup sets Data.
type PreflightResult struct {
	ValidationPassed bool        `json:"validation_passed"`
	Message          string      `json:"message,omitempty"`
	RateLimit        RateLimit   `json:"rate_limit"`
	Data             *SignupData `json:"data,omitempty"`
}

type SignupData struct {
	User *User `json:"user"`
}

type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	PhoneNumber *string    `json:"phone_number,omitempty"`
	Timezone    *string    `json:"timezone,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}

// Expired reports whether the token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type Consent struct {
	PhoneNumber string `json:"phone_number"`
	ConsentText string `json:"consent_text"`
	Consented   bool   `json:"consented"`
}

type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	EntryDate string    `json:"entry_date"`
	Tags      []string  `json:"tags"`
	Degraded  bool      `json:"decryption_fallback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type NewEntry struct {
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

type EntryQuery struct {
	Tag   string
	Query string
	From  string
	To    string
	Limit int
}
