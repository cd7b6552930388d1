package utils

import "strings"

// SplitName splits a full name into first name and the remainder
func SplitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	first, rest, _ := strings.Cut(full, " ")
	return first, strings.TrimSpace(rest)
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NilIfBlank returns nil for empty or whitespace-only strings
func NilIfBlank(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
