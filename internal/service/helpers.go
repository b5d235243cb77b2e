package service

import (
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// normalizePhone strips spaces and hyphens and converts a Nigerian local
// number (0XXXXXXXXXX) to E.164.
func normalizePhone(phone string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(cleaned, "0") && len(cleaned) == 11 {
		cleaned = "+234" + cleaned[1:]
	}
	return cleaned
}

func isValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func isValidPassword(password string) bool {
	return len(password) >= 8
}

// maskEmail hides most of the local part, keeping the first character:
// jdoe@example.com becomes j***@example.com.
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return email
	}
	return email[:1] + "***" + email[at:]
}

func randomHex(length int) string {
	raw := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if length > len(raw) {
		length = len(raw)
	}
	return strings.ToLower(raw[:length])
}

func newOrderNumber() string    { return "ORD-" + randomHex(12) }
func newTrackingNumber() string { return "TRK-" + randomHex(16) }
func newTxnReference() string   { return "TXN_" + randomHex(12) }

func sanitizeText(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	return textSanitizer().Sanitize(trimmed)
}

var textSanitizer = sync.OnceValue(func() *bluemonday.Policy {
	return bluemonday.StrictPolicy()
})

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
