package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Kenyan mobile formats accepted at the boundary: 07XXXXXXXX, 01XXXXXXXX,
// 2547XXXXXXXX, +2547XXXXXXXX.
var phoneRe = regexp.MustCompile(`^(\+?254|0)(1|7)\d{8}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword requires at least 8 characters with a letter, a number
// and a special character.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

func IsValidPhone(phone string) bool {
	return phoneRe.MatchString(strings.TrimSpace(phone))
}

// NormalizePhone converts a Kenyan mobile number to the 254... form the
// M-Pesa API requires.
func NormalizePhone(phone string) string {
	p := strings.TrimSpace(phone)
	switch {
	case strings.HasPrefix(p, "+254"):
		return p[1:]
	case strings.HasPrefix(p, "254"):
		return p
	case strings.HasPrefix(p, "0"):
		return "254" + p[1:]
	default:
		return p
	}
}

// IsValidRating checks a 1-5 star review rating.
func IsValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}
