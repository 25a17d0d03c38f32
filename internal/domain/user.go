package domain

import "time"

// User represents an account that can sign in.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile holds the personal details owned by exactly one User.
type Profile struct {
	UserID       int64
	Name         string
	Age          int
	Gender       Gender
	ProfileImage string
}

// UserWithProfile is a user joined with its profile.
type UserWithProfile struct {
	User
	Profile Profile
}
