package models

import (
	"time"

	"gorm.io/datatypes"
)

// Entry sources
const (
	SourceWeb = "web"
	SourceSMS = "sms"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email        string            `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string            `gorm:"not null" json:"-"`
	Role         string            `gorm:"default:'user'" json:"role"` // user, admin
	PhoneNumber  *string           `gorm:"column:phone_number;index" json:"phone_number"`
	Timezone     *string           `json:"timezone"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	SessionToken *string           `gorm:"column:session_token" json:"-"`
	LastLoginAt  *time.Time        `gorm:"column:last_login_at" json:"last_login_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TimezoneOrUTC returns the stored IANA timezone, defaulting to UTC.
func (u *User) TimezoneOrUTC() string {
	if u.Timezone == nil || *u.Timezone == "" {
		return "UTC"
	}
	return *u.Timezone
}

// JournalEntry stores title and content as ciphertext produced by the
// content cipher. Rows written before encryption was introduced hold
// plaintext in the same columns.
type JournalEntry struct {
	ID        string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string                      `gorm:"not null;index:idx_entries_user_date" json:"user_id"`
	Title     string                      `gorm:"type:text" json:"title"`
	Content   string                      `gorm:"type:text;not null" json:"content"`
	Source    string                      `gorm:"type:varchar(8);not null;default:'web'" json:"source"`
	EntryDate string                      `gorm:"type:varchar(10);not null;index:idx_entries_user_date" json:"entry_date"` // YYYY-MM-DD in the user's timezone
	Tags      datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
	Photos    []Photo                     `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE" json:"photos,omitempty"`
}

type Photo struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EntryID     string    `gorm:"not null;index" json:"entry_id"`
	UserID      string    `gorm:"not null;index" json:"user_id"`
	StoragePath string    `gorm:"not null" json:"storage_path"`
	FileName    string    `gorm:"not null" json:"file_name"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type SmsConsent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"not null;index" json:"user_id"`
	PhoneNumber string    `gorm:"not null" json:"phone_number"`
	ConsentText string    `gorm:"type:text;not null" json:"consent_text"`
	Consented   bool      `gorm:"not null" json:"consented"`
	IPAddress   string    `json:"ip_address"`
	CreatedAt   time.Time `json:"created_at"`
}
