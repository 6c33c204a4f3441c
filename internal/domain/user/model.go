package user

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinPasswordLen is enforced before hashing.
const MinPasswordLen = 6

// OTPTTL is how long a password-reset code stays usable.
const OTPTTL = 10 * time.Minute

// User maps to the users table. The password hash is never serialized.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	PhoneNumber  *string   `db:"phone_number" json:"phoneNumber,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	ProfileImg   *string   `db:"profile_img" json:"profileImg,omitempty"`
	IsAdmin      bool      `db:"is_admin" json:"isAdmin"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// PasswordResetOTP maps to the password_reset_otps table. At most one live
// row exists per email.
type PasswordResetOTP struct {
	Email     string    `db:"email"`
	OTP       string    `db:"otp"`
	Verified  bool      `db:"verified"`
	CreatedAt time.Time `db:"created_at"`
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address has a plausible shape.
func ValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// NormalizeEmail lowercases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
