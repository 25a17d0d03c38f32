package domain

import (
	"errors"
	"strconv"
)

// Profile attribute names as exposed over the API and recorded in history.
const (
	FieldName         = "name"
	FieldAge          = "age"
	FieldGender       = "gender"
	FieldProfileImage = "profileImage"
)

// MaxAge is the largest accepted age.
const MaxAge = 150

// ErrInvalidAge is returned for ages outside 0..MaxAge.
var ErrInvalidAge = errors.New("age must be between 0 and 150")

// ValidAge reports whether age is within 0..MaxAge.
func ValidAge(age int) bool {
	return age >= 0 && age <= MaxAge
}

// ProfileUpdate is a partial profile change. Nil fields are left untouched.
type ProfileUpdate struct {
	Name         *string
	Age          *int
	Gender       *Gender
	ProfileImage *string
}

// FieldChange is a single attribute whose stringified value differs.
type FieldChange struct {
	Field    string
	OldValue string
	NewValue string
}

// IsEmpty reports whether no field is set.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Age == nil && u.Gender == nil && u.ProfileImage == nil
}

// Normalized validates the supplied values and returns a copy with the
// gender upper-cased.
func (u ProfileUpdate) Normalized() (ProfileUpdate, error) {
	if u.Age != nil && !ValidAge(*u.Age) {
		return ProfileUpdate{}, ErrInvalidAge
	}
	if u.Gender != nil {
		g, err := ParseGender(string(*u.Gender))
		if err != nil {
			return ProfileUpdate{}, err
		}
		u.Gender = &g
	}
	return u, nil
}

// Apply returns p with the update applied together with the fields whose
// value actually changed, in declaration order.
func (u ProfileUpdate) Apply(p Profile) (Profile, []FieldChange) {
	next := p
	var changes []FieldChange
	record := func(field, oldValue, newValue string) {
		if oldValue != newValue {
			changes = append(changes, FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
		}
	}

	if u.Name != nil {
		record(FieldName, p.Name, *u.Name)
		next.Name = *u.Name
	}
	if u.Age != nil {
		record(FieldAge, strconv.Itoa(p.Age), strconv.Itoa(*u.Age))
		next.Age = *u.Age
	}
	if u.Gender != nil {
		record(FieldGender, string(p.Gender), string(*u.Gender))
		next.Gender = *u.Gender
	}
	if u.ProfileImage != nil {
		record(FieldProfileImage, p.ProfileImage, *u.ProfileImage)
		next.ProfileImage = *u.ProfileImage
	}
	return next, changes
}
