package vital

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const vitalCols = `id, user_id, date, bp, sugar, weight, pulse, temperature, notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, v *Vital) error {
	v.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO vitals (id, user_id, date, bp, sugar, weight, pulse, temperature, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		v.ID, v.UserID, v.Date, v.BP, v.Sugar, v.Weight, v.Pulse, v.Temperature, v.Notes,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, userID, id uuid.UUID) (*Vital, error) {
	return scanVital(r.pool.QueryRow(ctx,
		`SELECT `+vitalCols+` FROM vitals WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *repoPG) List(ctx context.Context, userID uuid.UUID, date *time.Time) ([]*Vital, error) {
	q := `SELECT ` + vitalCols + ` FROM vitals WHERE user_id = $1`
	args := []interface{}{userID}

	if date != nil {
		day := date.Truncate(24 * time.Hour)
		q += " AND date >= $2 AND date < $3"
		args = append(args, day, day.Add(24*time.Hour))
	}
	q += " ORDER BY date DESC"

	return r.queryVitals(ctx, q, args...)
}

func (r *repoPG) Timeline(ctx context.Context, userID uuid.UUID, f RangeFilter) ([]*Vital, error) {
	q := `SELECT ` + vitalCols + ` FROM vitals WHERE user_id = $1`
	args := []interface{}{userID}

	if f.Start != nil {
		q += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *f.Start)
	}
	if f.End != nil {
		q += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *f.End)
	}
	q += " ORDER BY date DESC"

	return r.queryVitals(ctx, q, args...)
}

func (r *repoPG) Update(ctx context.Context, v *Vital) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE vitals SET
			date = $3, bp = $4, sugar = $5, weight = $6, pulse = $7, temperature = $8, notes = $9,
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`,
		v.ID, v.UserID, v.Date, v.BP, v.Sugar, v.Weight, v.Pulse, v.Temperature, v.Notes,
	).Scan(&v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vitals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM vitals WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *repoPG) Latest(ctx context.Context, userID uuid.UUID) (*Vital, error) {
	v, err := scanVital(r.pool.QueryRow(ctx,
		`SELECT `+vitalCols+` FROM vitals WHERE user_id = $1 ORDER BY date DESC LIMIT 1`, userID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// Averages computes per-field means in SQL; AVG ignores NULLs, so each field
// averages only the readings that recorded it.
func (r *repoPG) Averages(ctx context.Context, userID uuid.UUID) (*Averages, error) {
	var a Averages
	err := r.pool.QueryRow(ctx, `
		SELECT avg(sugar), avg(weight), avg(pulse), avg(temperature)
		FROM vitals WHERE user_id = $1`,
		userID,
	).Scan(&a.Sugar, &a.Weight, &a.Pulse, &a.Temperature)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) LastUpdated(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var t *time.Time
	err := r.pool.QueryRow(ctx, `SELECT max(updated_at) FROM vitals WHERE user_id = $1`, userID).Scan(&t)
	return t, err
}

func (r *repoPG) queryVitals(ctx context.Context, q string, args ...interface{}) ([]*Vital, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vitals := []*Vital{}
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, err
		}
		vitals = append(vitals, v)
	}
	return vitals, rows.Err()
}

func scanVital(row pgx.Row) (*Vital, error) {
	var v Vital
	err := row.Scan(
		&v.ID, &v.UserID, &v.Date, &v.BP, &v.Sugar, &v.Weight, &v.Pulse,
		&v.Temperature, &v.Notes, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
