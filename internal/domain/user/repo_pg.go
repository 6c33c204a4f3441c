package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const userCols = `id, email, first_name, last_name, phone_number, password_hash, profile_img, is_admin, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, first_name, last_name, phone_number, password_hash, profile_img, is_admin)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.FirstName, u.LastName, u.PhoneNumber, u.PasswordHash, u.ProfileImg, u.IsAdmin,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET
			email = $2, first_name = $3, last_name = $4, phone_number = $5,
			password_hash = $6, profile_img = $7, is_admin = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.Email, u.FirstName, u.LastName, u.PhoneNumber, u.PasswordHash, u.ProfileImg, u.IsAdmin,
	).Scan(&u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userCols, id))
}

func (r *repoPG) ListExcept(ctx context.Context, id uuid.UUID) ([]*User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userCols+` FROM users WHERE id <> $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PhoneNumber,
		&u.PasswordHash, &u.ProfileImg, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// -- OTP repository --

type otpRepoPG struct {
	pool *pgxpool.Pool
}

func NewOTPRepo(pool *pgxpool.Pool) OTPRepository {
	return &otpRepoPG{pool: pool}
}

func (r *otpRepoPG) Upsert(ctx context.Context, email, otp string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_reset_otps (email, otp, verified, created_at)
		VALUES ($1, $2, false, now())
		ON CONFLICT (email) DO UPDATE SET otp = EXCLUDED.otp, verified = false, created_at = now()`,
		email, otp,
	)
	return err
}

func (r *otpRepoPG) MarkVerified(ctx context.Context, email, otp string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE password_reset_otps SET verified = true
		WHERE email = $1 AND otp = $2 AND created_at > now() - interval '10 minutes'`,
		email, otp,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *otpRepoPG) HasVerified(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM password_reset_otps
			WHERE email = $1 AND verified AND created_at > now() - interval '10 minutes'
		)`,
		email,
	).Scan(&ok)
	return ok, err
}

func (r *otpRepoPG) DeleteForEmail(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM password_reset_otps WHERE email = $1`, email)
	return err
}
