// Package phone provides phone number utilities for Indian mobile numbers.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "IN"

// mobilePattern is the validity rule for a normalized Indian mobile number:
// exactly ten digits, first digit 6-9.
var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// Normalize reduces a raw candidate to a bare ten-digit Indian mobile number.
// It strips every non-digit character, then removes a leading "91" country
// code (12 digits) or a leading trunk "0" (11 digits). The result is returned
// even when it fails the mobile rule; callers decide validity via IsValidMobile.
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	// First chance: a full parse. Covers inputs like "+91 98765-43210".
	if number, err := phonenumbers.Parse(trimmed, defaultRegion); err == nil {
		if phonenumbers.IsValidNumber(number) {
			return strconv.FormatUint(number.GetNationalNumber(), 10)
		}
	}

	digits := stripNonDigits(trimmed)
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		return digits[1:]
	default:
		return digits
	}
}

// IsValidMobile reports whether the value is a normalized Indian mobile number.
func IsValidMobile(value string) bool {
	return mobilePattern.MatchString(value)
}

func stripNonDigits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
