// Package phone normalizes contact numbers to E.164.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidNumber is returned when the input cannot be parsed as a valid number.
var ErrInvalidNumber = errors.New("invalid phone number")

// NormalizeE164 parses raw using defaultRegion for numbers without a
// country prefix and returns the +<country><number> form.
func NormalizeE164(raw, defaultRegion string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidNumber
	}
	num, err := phonenumbers.Parse(trimmed, strings.ToUpper(defaultRegion))
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidNumber
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
