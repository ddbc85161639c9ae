package utils

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// passwordSymbols are the characters accepted as the required symbol.
const passwordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

// ErrWeakPassword is returned by CheckPasswordStrength.
var ErrWeakPassword = errors.New("password must be at least 8 characters long and contain 1 uppercase letter, 1 lowercase letter, 1 number, and 1 special character")

// PasswordRequirements reports which strength rules a password meets.
type PasswordRequirements struct {
	Length    bool `json:"length"`
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Number    bool `json:"number"`
	Symbol    bool `json:"symbol"`
}

// OK reports whether every rule holds.
func (r PasswordRequirements) OK() bool {
	return r.Length && r.Uppercase && r.Lowercase && r.Number && r.Symbol
}

// CheckPasswordStrength evaluates plain against the registration rules.
func CheckPasswordStrength(plain string) (PasswordRequirements, error) {
	req := PasswordRequirements{Length: len([]rune(plain)) >= 8}
	for _, r := range plain {
		switch {
		case r >= 'A' && r <= 'Z':
			req.Uppercase = true
		case r >= 'a' && r <= 'z':
			req.Lowercase = true
		case unicode.IsDigit(r):
			req.Number = true
		case strings.ContainsRune(passwordSymbols, r):
			req.Symbol = true
		}
	}
	if !req.OK() {
		return req, ErrWeakPassword
	}
	return req, nil
}

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
