// Package validation provides input validation utilities
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 72 // bcrypt ignores anything longer
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// Validation messages returned to clients.
const (
	MsgInvalidEmail    = "Please provide a valid email address"
	MsgPasswordTooWeak = "Password must be at least 6 characters long"
	MsgPasswordTooLong = "Password must not exceed 72 characters"
	MsgUsernameLength  = "Username must be between 3 and 30 characters"
	MsgUsernameChars   = "Username can only contain letters, numbers, underscores, and hyphens"
)

var (
	emailRegex    = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) || len(email) > 254 {
		return errors.New(MsgInvalidEmail)
	}
	return nil
}

// ValidatePassword checks the password length bounds.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return errors.New(MsgPasswordTooWeak)
	}
	if len(password) > MaxPasswordLength {
		return errors.New(MsgPasswordTooLong)
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return errors.New(MsgUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return errors.New(MsgUsernameChars)
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s and collapses every run of other characters into a
// single hyphen, trimming hyphens at both ends.
func Slugify(s string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
