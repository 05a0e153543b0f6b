package validator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex       = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?~` + "`" + `]`)

	// Frequently compromised passwords that pass the shape checks anyway
	commonPasswords = map[string]bool{
		"password":      true,
		"password123":   true,
		"password1234":  true,
		"passw0rd1234!": true,
		"qwertyuiop12":  true,
		"administrator": true,
		"letmein12345":  true,
		"welcome12345":  true,
		"1234567890ab":  true,
		"iloveyou1234":  true,
		"sunshine1234":  true,
		"princess1234":  true,
		"football1234":  true,
		"changeme1234":  true,
		"securenest12":  true,
	}
)

type PasswordStrengthConfig struct {
	MinLength        int
	MaxLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigits    bool
	RequireSpecial   bool
}

// DefaultPasswordStrength returns the account password policy: 12-128
// characters with all four character classes present.
func DefaultPasswordStrength() PasswordStrengthConfig {
	return PasswordStrengthConfig{
		MinLength:        12,
		MaxLength:        128,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigits:    true,
		RequireSpecial:   true,
	}
}

// StrongPassword validates a password against the given strength policy.
func StrongPassword(field, value string, config PasswordStrengthConfig) Rule {
	return Rule{
		Check: func() bool {
			if len(value) < config.MinLength || len(value) > config.MaxLength {
				return false
			}

			if config.RequireUppercase && !uppercaseRegex.MatchString(value) {
				return false
			}
			if config.RequireLowercase && !lowercaseRegex.MatchString(value) {
				return false
			}
			if config.RequireDigits && !digitRegex.MatchString(value) {
				return false
			}
			if config.RequireSpecial && !specialCharRegex.MatchString(value) {
				return false
			}

			return true
		},
		Error: ValidationError{
			Field: field,
			Message: fmt.Sprintf(
				"must be %d-%d characters with uppercase, lowercase, digit and special characters",
				config.MinLength, config.MaxLength,
			),
		},
	}
}

// NotCommonPassword rejects passwords from the known-compromised list.
func NotCommonPassword(field, value string) Rule {
	return Rule{
		Check: func() bool { return !commonPasswords[strings.ToLower(value)] },
		Error: ValidationError{Field: field, Message: "is too common"},
	}
}
