// Package normalize converts free-form phone, date, and time input into
// canonical forms. Functions are pure and return either a fully canonical
// value or a validation error, never a partial result.
package normalize

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/frontdeskai/frontdesk/agent/contract"
)

const (
	minPhoneDigits = 7

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Phone strips every non-digit character and requires at least seven digits
// to remain. No country-code validation beyond digit count.
func Phone(input string) (string, error) {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() < minPhoneDigits {
		return "", fmt.Errorf("%w: %q", contractx.NewValidationError("phone"), input)
	}
	return b.String(), nil
}

// Date accepts YYYY-MM-DD only. No natural-language parsing.
func Date(input string) (string, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(input))
	if err != nil {
		return "", fmt.Errorf("%w: %q", contractx.NewValidationError("date"), input)
	}
	return parsed.Format(dateLayout), nil
}

// Time accepts 24-hour "HH:MM" or 12-hour "HH:MM AM/PM", tried in that
// order, and canonicalizes to 24-hour "HH:MM".
func Time(input string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(input))
	for _, layout := range []string{timeLayout, "3:04 PM"} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format(timeLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", contractx.NewValidationError("time"), input)
}

// Slot normalizes a coordinate pair in one call.
func Slot(dateValue, timeValue string) (contractx.Slot, error) {
	date, err := Date(dateValue)
	if err != nil {
		return contractx.Slot{}, err
	}
	t, err := Time(timeValue)
	if err != nil {
		return contractx.Slot{}, err
	}
	return contractx.Slot{Date: date, Time: t}, nil
}
