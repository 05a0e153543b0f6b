package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var (
	numericStringRegex = regexp.MustCompile(`^[0-9]+$`)
	usernameRegex      = regexp.MustCompile(`^[a-z0-9._-]+$`)
)

// RequiredString validates that a string is not empty after trimming.
func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "is required"},
	}
}

// MinLenString validates minimum string length in bytes.
func MinLenString(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return len(value) >= min },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters", min)},
	}
}

// MaxLenString validates maximum string length in bytes.
func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", max)},
	}
}

// ValidEmail validates that a string is a valid email address using RFC 5322.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}

			addr, err := mail.ParseAddress(value)
			if err != nil {
				return false
			}

			// Additional validation for typical web use
			parts := strings.Split(addr.Address, "@")
			if len(parts) != 2 {
				return false
			}

			localPart := parts[0]
			domain := parts[1]

			if localPart == "" {
				return false
			}

			// Domain must contain at least one dot and cannot start/end with dot
			if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
				return false
			}
			for _, part := range strings.Split(domain, ".") {
				if part == "" {
					return false
				}
			}

			return true
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address"},
	}
}

// ValidUsername validates the account username shape: 3-30 characters from the
// normalized alphabet (a-z, 0-9, dot, underscore, hyphen).
func ValidUsername(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return len(value) >= 3 && len(value) <= 30 && usernameRegex.MatchString(value)
		},
		Error: ValidationError{Field: field, Message: "must be 3-30 characters using letters, digits, dot, underscore or hyphen"},
	}
}

// ValidNumericString validates that a string contains only digits.
func ValidNumericString(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}
			return numericStringRegex.MatchString(value)
		},
		Error: ValidationError{Field: field, Message: "must contain only digits"},
	}
}

// ValidOTPCode validates the fixed 6-digit one-time code shape.
func ValidOTPCode(field, value string) Rule {
	return Rule{
		Check: func() bool {
			value = strings.TrimSpace(value)
			return len(value) == 6 && numericStringRegex.MatchString(value)
		},
		Error: ValidationError{Field: field, Message: "must be a 6-digit code"},
	}
}

// MatchingStrings validates that a confirmation field repeats the original
// value exactly. Used for new-password and new-PIN confirmation inputs.
func MatchingStrings(field, value, confirmation string) Rule {
	return Rule{
		Check: func() bool { return value == confirmation },
		Error: ValidationError{Field: field, Message: "does not match"},
	}
}
