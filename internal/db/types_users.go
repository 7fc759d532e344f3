package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmailTaken is returned when a user with the same email already exists
var ErrEmailTaken = errors.New("email already registered")

// User represents a stored user profile
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Location     string    `json:"location,omitempty"`
	LinkedIn     string    `json:"linkedin,omitempty"`
	GitHub       string    `json:"github,omitempty"`
	Website      string    `json:"website,omitempty"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never serialize to JSON
	PasswordSet  bool      `json:"password_set" db:"password_set"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileUpdate holds the editable profile fields of a user
type ProfileUpdate struct {
	Name     string
	Phone    string
	Location string
	LinkedIn string
	GitHub   string
	Website  string
}
