package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

// User is an authenticated principal. Email is the login identifier and
// is stored in canonical lower-case form. Accounts are deactivated, never
// deleted; IsActive gates every authorization decision except the
// superuser bypass.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsSuperuser  bool      `json:"is_superuser"`
	DateJoined   time.Time `json:"date_joined"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName returns first and last name joined, falling back to the email.
func (u *User) FullName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Email
	}
	return full
}

// CanonicalEmail normalizes an email identifier for lookup and storage.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id int64, firstName, lastName string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
