package util

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NewPasteID returns a random (version 4) UUID in canonical text form.
func NewPasteID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", errors.Wrap(err, "rand fail")
	}
	return id.String(), nil
}

// ValidPasteID reports whether s parses as a UUID. Anything else cannot name
// a stored paste.
func ValidPasteID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
