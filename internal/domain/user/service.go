package user

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/healthmate/healthmate/internal/platform/auth"
	"github.com/healthmate/healthmate/internal/platform/mail"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// login failures are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminRequired      = errors.New("admin access required")
	ErrInvalidOTP         = errors.New("invalid or expired otp")
	ErrOTPNotVerified     = errors.New("otp verification required")
)

type Service struct {
	users  Repository
	otps   OTPRepository
	tokens *auth.TokenIssuer
	mailer mail.Mailer
}

func NewService(users Repository, otps OTPRepository, tokens *auth.TokenIssuer, mailer mail.Mailer) *Service {
	return &Service{users: users, otps: otps, tokens: tokens, mailer: mailer}
}

// Identity satisfies auth.IdentitySource so the middleware always works from
// the live user row, not token claims.
func (s *Service) Identity(ctx context.Context, id uuid.UUID) (auth.Identity, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.Identity{ID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin}, nil
}

// SignupInput carries the fields accepted at account creation.
type SignupInput struct {
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber *string
	Password    string
	ProfileImg  *string
	IsAdmin     bool
}

// Signup creates an account and issues a session token.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*User, string, error) {
	u, err := s.createUser(ctx, in)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return u, token, nil
}

// AddUser creates an account without issuing a token. Used by admin
// management.
func (s *Service) AddUser(ctx context.Context, in SignupInput) (*User, error) {
	return s.createUser(ctx, in)
}

func (s *Service) createUser(ctx context.Context, in SignupInput) (*User, error) {
	email := NormalizeEmail(in.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: hash,
		ProfileImg:   in.ProfileImg,
		IsAdmin:      in.IsAdmin,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and issues a token. When adminOnly is set, a
// non-admin account is rejected before the password is even checked.
func (s *Service) Login(ctx context.Context, email, password string, adminOnly bool) (*User, string, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if adminOnly && !u.IsAdmin {
		return nil, "", ErrAdminRequired
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return u, token, nil
}

// RequestPasswordReset stores a fresh code and emails it. An unknown address
// is a silent no-op so the endpoint never reveals account existence.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	otp, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.otps.Upsert(ctx, email, otp); err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, email, mail.PasswordResetSubject, mail.PasswordResetBody(otp)); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// VerifyOTP marks a matching, unexpired code as verified. The code is not
// consumed here; ResetPassword does that.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) error {
	ok, err := s.otps.MarkVerified(ctx, NormalizeEmail(email), otp)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOTP
	}
	return nil
}

// ResetPassword replaces the password once a verified code exists, then
// invalidates every code for the address.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = NormalizeEmail(email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	ok, err := s.otps.HasVerified(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOTPNotVerified
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	return s.otps.DeleteForEmail(ctx, email)
}

func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// ProfileUpdate carries optional profile fields; nil leaves a field alone.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil && *in.FirstName != "" {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil && *in.LastName != "" {
		u.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		u.PhoneNumber = in.PhoneNumber
	}
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if email != "" && email != u.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, ErrDuplicateEmail
			} else if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			u.Email = email
		}
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) UpdateProfileImage(ctx context.Context, id uuid.UUID, img string) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.ProfileImg = &img
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// AdminUserUpdate carries optional fields for admin-driven edits.
type AdminUserUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	ProfileImg  *string
	IsAdmin     *bool
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in AdminUserUpdate) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil && *in.FirstName != "" {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil && *in.LastName != "" {
		u.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		u.PhoneNumber = in.PhoneNumber
	}
	if in.ProfileImg != nil {
		u.ProfileImg = in.ProfileImg
	}
	if in.IsAdmin != nil {
		u.IsAdmin = *in.IsAdmin
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.Delete(ctx, id)
}

// ListUsers returns every account except the caller's.
func (s *Service) ListUsers(ctx context.Context, exceptID uuid.UUID) ([]*User, error) {
	return s.users.ListExcept(ctx, exceptID)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// generateOTP returns a random 4-digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+1000), nil
}
