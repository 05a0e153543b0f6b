// Package sanitizer normalizes and masks the user-supplied identity values
// this application keys on: email addresses, usernames and display names.
// Normalization happens once at the service boundary so stores and challenge
// subjects always see the canonical form.
package sanitizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	dotRegex        = regexp.MustCompile(`\.{2,}`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	usernameRegex   = regexp.MustCompile(`[^a-z0-9._-]`)

	titleCaser = cases.Title(language.English, cases.NoLower)
)

// NormalizeEmail prevents common email input errors but preserves original for invalid formats.
// Consolidates consecutive dots which can cause delivery issues with some email providers.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := parts[0]
	domain := parts[1]

	local = dotRegex.ReplaceAllString(local, ".")
	local = strings.Trim(local, ".")

	return local + "@" + domain
}

// MaskEmail preserves the full domain for user recognition while hiding the
// local part. Used in responses that confirm where an OTP was delivered.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := parts[0]
	domain := parts[1]

	if len(local) == 0 {
		return email
	}
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + "@" + domain
	}

	return local[:2] + strings.Repeat("*", len(local)-2) + "@" + domain
}

// NormalizeUsername lowercases, trims and strips characters outside the
// allowed username alphabet (a-z, 0-9, dot, underscore, hyphen).
func NormalizeUsername(username string) string {
	username = strings.ToLower(strings.TrimSpace(username))
	return usernameRegex.ReplaceAllString(username, "")
}

// NormalizeFullName collapses runs of whitespace and title-cases each word,
// leaving already-capitalized acronyms alone.
func NormalizeFullName(name string) string {
	name = whitespaceRegex.ReplaceAllString(strings.TrimSpace(name), " ")
	if name == "" {
		return ""
	}
	return titleCaser.String(name)
}

// NormalizeWhitespace prevents layout issues from multiple spaces, tabs, and newlines.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
