package auth

import (
	"net/mail"
	"strings"
)

// IsValidEmail checks if the provided email address is valid
func IsValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// NormalizeEmail lower-cases and trims an email address. All lookups and
// uniqueness checks go through this so "A@B.com" and "a@b.com" are the same
// account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
