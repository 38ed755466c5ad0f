package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// PhoneNormalizer turns user-entered phone numbers into the key used for
// every lookup and uniqueness check. With a CountryCode such as "+966",
// national ("0551234567"), international ("+966551234567") and
// "00"-prefixed ("00966551234567") spellings of one number map to the same
// E.164 key. The zero value only strips formatting characters.
type PhoneNormalizer struct {
	CountryCode string
}

// NewPhoneNormalizer validates countryCode ("+" and 1 to 3 digits, or empty).
func NewPhoneNormalizer(countryCode string) (PhoneNormalizer, error) {
	cc := strings.TrimSpace(countryCode)
	if cc == "" {
		return PhoneNormalizer{}, nil
	}
	digits, ok := strings.CutPrefix(cc, "+")
	if !ok || len(digits) < 1 || len(digits) > 3 || digits[0] == '0' || strings.Trim(digits, "0123456789") != "" {
		return PhoneNormalizer{}, fmt.Errorf("invalid country code %q", countryCode)
	}
	return PhoneNormalizer{CountryCode: cc}, nil
}

// Normalize returns the lookup key for raw.
func (p PhoneNormalizer) Normalize(raw string) (string, error) {
	out, err := stripPhone(raw)
	if err != nil {
		return "", err
	}
	if p.CountryCode != "" && !strings.HasPrefix(out, "+") {
		if rest, ok := strings.CutPrefix(out, "00"); ok {
			out = "+" + rest
		} else {
			out = p.CountryCode + strings.TrimPrefix(out, "0")
		}
	}

	digits := strings.TrimPrefix(out, "+")
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", FieldError(KindInvalidInput, "phone number has an invalid length", "phone_number", "invalid length")
	}
	return out, nil
}

// stripPhone drops formatting characters and keeps an optional leading '+'.
func stripPhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", FieldError(KindInvalidInput, "phone number is required", "phone_number", "required")
	}

	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", FieldError(KindInvalidInput, "phone number contains invalid characters", "phone_number", "invalid format")
		}
	}
	return b.String(), nil
}

// MaskPhone hides the middle digits of a phone number for logging.
func MaskPhone(phone string) string {
	if len(phone) <= 7 {
		return "****"
	}
	return phone[:4] + "****" + phone[len(phone)-3:]
}

// NormalizeEmail trims and lowercases an optional email. Empty input yields nil.
func NormalizeEmail(raw string) (*string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil, nil
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return nil, FieldError(KindInvalidInput, "invalid email address", "email", "invalid format")
	}
	return &s, nil
}
