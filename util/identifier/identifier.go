// Package identifier holds the single format rule for the two 6-digit
// identifier spaces: book serial numbers and user card numbers. Every entry
// point goes through these checks so the rule cannot drift.
package identifier

import (
	"errors"
	"regexp"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

var (
	ErrBadSerial = errors.New("serial_number must be exactly 6 digits")
	ErrBadCard   = errors.New("card_number must be exactly 6 digits")
)

// ValidateSerial returns the input unchanged when it is exactly six ASCII
// digits, otherwise ErrBadSerial.
func ValidateSerial(serial string) (string, error) {
	if !sixDigits.MatchString(serial) {
		return "", ErrBadSerial
	}
	return serial, nil
}

// ValidateCard applies the same rule to card numbers. Kept separate from
// ValidateSerial on purpose: serials and cards are distinct identifier
// spaces and must not be interchanged by a refactor.
func ValidateCard(card string) (string, error) {
	if !sixDigits.MatchString(card) {
		return "", ErrBadCard
	}
	return card, nil
}
