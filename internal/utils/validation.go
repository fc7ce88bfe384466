package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxEmailLength = 254

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonDigitRegex = regexp.MustCompile(`\D`)
	// markup, script handlers and control bytes never appear in a real address or number
	suspiciousRegex = regexp.MustCompile(`(?i)<|>|javascript:|on\w+=|\x00|;`)
)

// ValidateEmail validates email format and length
func ValidateEmail(email string) bool {
	if len(email) > MaxEmailLength {
		return false
	}
	return emailRegex.MatchString(email)
}

// ValidatePassword validates sign-up password strength: at least 8
// characters with an upper-case letter, a lower-case letter and a digit.
func ValidatePassword(password string) (bool, string) {
	if utf8.RuneCountInString(password) < 8 {
		return false, "Password must be at least 8 characters long"
	}

	var hasUpper, hasLower, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	if !hasUpper {
		return false, "Password must contain at least one uppercase letter"
	}
	if !hasLower {
		return false, "Password must contain at least one lowercase letter"
	}
	if !hasDigit {
		return false, "Password must contain at least one digit"
	}

	return true, ""
}

// NormalizePhoneNumber strips every non-digit character.
func NormalizePhoneNumber(phone string) string {
	return nonDigitRegex.ReplaceAllString(phone, "")
}

// ValidatePhoneNumber normalizes the number and checks it has 10 to 15 digits.
func ValidatePhoneNumber(phone string) (string, bool, string) {
	digits := NormalizePhoneNumber(phone)
	if len(digits) < 10 || len(digits) > 15 {
		return digits, false, "Phone number must be between 10 and 15 digits"
	}
	return digits, true, ""
}

// LooksSuspicious flags input carrying markup or injection fragments.
func LooksSuspicious(values ...string) bool {
	for _, v := range values {
		if suspiciousRegex.MatchString(v) {
			return true
		}
	}
	return false
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// MaskEmail keeps the first character of the local part for logs.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
