package domain

import (
	"errors"
	"fmt"
	"strings"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// ErrInvalidGender is returned for anything other than male or female.
var ErrInvalidGender = errors.New("gender must be MALE or FEMALE")

// ParseGender upper-cases s and checks it against the known values.
func ParseGender(s string) (Gender, error) {
	g := Gender(strings.ToUpper(strings.TrimSpace(s)))
	switch g {
	case GenderMale, GenderFemale:
		return g, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGender, s)
}
