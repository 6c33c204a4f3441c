package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when a create or update collides with an
// existing address.
var ErrDuplicateEmail = errors.New("email already in use")

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) (*User, error)
	ListExcept(ctx context.Context, id uuid.UUID) ([]*User, error)
}

// OTPRepository manages password-reset codes. Every read applies the TTL so
// expired rows behave as absent without a background sweeper.
type OTPRepository interface {
	// Upsert atomically replaces any live code for the email.
	Upsert(ctx context.Context, email, otp string) error
	// MarkVerified flips the verified flag when the code matches and has not
	// expired. It reports whether a row was updated.
	MarkVerified(ctx context.Context, email, otp string) (bool, error)
	// HasVerified reports whether a verified, unexpired code exists.
	HasVerified(ctx context.Context, email string) (bool, error)
	DeleteForEmail(ctx context.Context, email string) error
}
