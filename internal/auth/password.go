package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used for password hashing
const BcryptCost = 12

// SecureTokenLength is the number of random bytes in reset and verification
// tokens; hex encoding doubles it on the wire.
const SecureTokenLength = 32

// Passwords that are never acceptable regardless of composition score
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "123456": {},
	"12345678": {}, "123456789": {}, "1234567890": {}, "qwerty": {},
	"qwerty123": {}, "abc123": {}, "letmein": {}, "welcome": {},
	"welcome1": {}, "admin": {}, "admin123": {}, "iloveyou": {},
	"monkey": {}, "dragon": {}, "sunshine": {}, "princess": {},
	"football": {}, "baseball": {}, "master": {}, "shadow": {},
	"superman": {}, "batman": {}, "trustno1": {}, "passw0rd": {},
	"starwars": {}, "whatever": {},
}

// Strength tiers reported by ValidateStrength
const (
	StrengthWeak   = "weak"
	StrengthMedium = "medium"
	StrengthStrong = "strong"
)

// PasswordPolicy holds the configurable strength requirements
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// DefaultPasswordPolicy returns the policy applied when none is configured:
// 8 characters minimum, upper, lower and digit required, special optional.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
		RequireSpecial:   false,
	}
}

// StrengthResult describes the outcome of a password strength check
type StrengthResult struct {
	IsValid      bool     `json:"is_valid"`
	Score        int      `json:"score"` // 0-8
	Strength     string   `json:"strength"`
	HasMinLength bool     `json:"has_min_length"`
	HasUppercase bool     `json:"has_uppercase"`
	HasLowercase bool     `json:"has_lowercase"`
	HasNumber    bool     `json:"has_number"`
	HasSpecial   bool     `json:"has_special"`
	IsCommon     bool     `json:"is_common"`
	Feedback     []string `json:"feedback"`
}

// HashPassword hashes a password using bcrypt with the fixed work factor
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

// ComparePasswords compares a hashed password with a plain text password
func ComparePasswords(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidateStrength scores a candidate password 0-8: one point each for
// minimum length, uppercase, lowercase, digit, special character, not being
// a common password, length >= 12 and length >= 16. IsValid requires every
// check the policy marks required plus absence from the common-password list.
func (p PasswordPolicy) ValidateStrength(password string) StrengthResult {
	res := StrengthResult{
		HasMinLength: len(password) >= p.MinLength,
	}

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			res.HasUppercase = true
		case unicode.IsLower(r):
			res.HasLowercase = true
		case unicode.IsDigit(r):
			res.HasNumber = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			res.HasSpecial = true
		}
	}

	_, res.IsCommon = commonPasswords[strings.ToLower(password)]

	if res.HasMinLength {
		res.Score++
	} else {
		res.Feedback = append(res.Feedback, fmt.Sprintf("password must be at least %d characters long", p.MinLength))
	}
	if res.HasUppercase {
		res.Score++
	} else if p.RequireUppercase {
		res.Feedback = append(res.Feedback, "add an uppercase letter")
	}
	if res.HasLowercase {
		res.Score++
	} else if p.RequireLowercase {
		res.Feedback = append(res.Feedback, "add a lowercase letter")
	}
	if res.HasNumber {
		res.Score++
	} else if p.RequireNumber {
		res.Feedback = append(res.Feedback, "add a number")
	}
	if res.HasSpecial {
		res.Score++
	} else if p.RequireSpecial {
		res.Feedback = append(res.Feedback, "add a special character")
	}
	if !res.IsCommon {
		res.Score++
	} else {
		res.Feedback = append(res.Feedback, "this password is too common")
	}
	if len(password) >= 12 {
		res.Score++
	}
	if len(password) >= 16 {
		res.Score++
	}

	switch {
	case res.Score <= 3:
		res.Strength = StrengthWeak
	case res.Score <= 5:
		res.Strength = StrengthMedium
	default:
		res.Strength = StrengthStrong
	}

	res.IsValid = res.HasMinLength &&
		(!p.RequireUppercase || res.HasUppercase) &&
		(!p.RequireLowercase || res.HasLowercase) &&
		(!p.RequireNumber || res.HasNumber) &&
		(!p.RequireSpecial || res.HasSpecial) &&
		!res.IsCommon

	return res
}

// GenerateSecureToken returns 32 random bytes hex-encoded, for reset and
// verification tokens. Never used for passwords.
func GenerateSecureToken() (string, error) {
	bytes := make([]byte, SecureTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// HashToken returns the SHA-256 hex digest of a raw token for at-rest
// storage and lookup. A fast hash is fine here: the raw token already
// carries 256 bits of entropy, so offline brute force is infeasible.
func HashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
