package utils

import "strings"

const (
	visibleSecretChars    = 4
	// values shorter than this are masked entirely
	minSecretLenForPrefix = 16
	maskedTail            = "********"
)

// MaskSecret keeps a short prefix of a long credential so log lines stay
// correlatable without exposing the value.
func MaskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	if len(secret) < minSecretLenForPrefix {
		return maskedTail
	}
	return secret[:visibleSecretChars] + maskedTail
}
