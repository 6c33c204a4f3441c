package report

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

const reportCols = `id, user_id, report_type, date, file_url, manual_data, ai_summary, abnormalities, doctor_questions, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	if rep.Abnormalities == nil {
		rep.Abnormalities = []string{}
	}
	if rep.DoctorQuestions == nil {
		rep.DoctorQuestions = []string{}
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO reports (id, user_id, report_type, date, file_url, manual_data, ai_summary, abnormalities, doctor_questions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		rep.ID, rep.UserID, rep.ReportType, rep.Date, rep.FileURL, rep.ManualData,
		rep.AISummary, rep.Abnormalities, rep.DoctorQuestions,
	).Scan(&rep.CreatedAt, &rep.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, userID, id uuid.UUID) (*Report, error) {
	return scanReport(r.pool.QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *repoPG) List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]*Report, error) {
	q := `SELECT ` + reportCols + ` FROM reports WHERE user_id = $1`
	args := []interface{}{userID}

	if f.Date != nil {
		day := f.Date.Truncate(24 * time.Hour)
		q += fmt.Sprintf(" AND date >= $%d AND date < $%d", len(args)+1, len(args)+2)
		args = append(args, day, day.Add(24*time.Hour))
	}
	if f.ReportType != nil {
		q += fmt.Sprintf(" AND report_type = $%d", len(args)+1)
		args = append(args, *f.ReportType)
	}
	q += " ORDER BY date DESC"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []*Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

func (r *repoPG) Timeline(ctx context.Context, userID uuid.UUID, f RangeFilter) ([]*TimelineEntry, error) {
	q := `SELECT id, report_type, date, ai_summary, abnormalities, created_at FROM reports WHERE user_id = $1`
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

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTimeline(rows)
}

func (r *repoPG) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1 AND user_id = $2`, id, userID)
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
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM reports WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *repoPG) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*TimelineEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, report_type, date, ai_summary, abnormalities, created_at
		FROM reports WHERE user_id = $1 ORDER BY date DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTimeline(rows)
}

func (r *repoPG) LastUpdated(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var t *time.Time
	err := r.pool.QueryRow(ctx, `SELECT max(updated_at) FROM reports WHERE user_id = $1`, userID).Scan(&t)
	return t, err
}

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(
		&rep.ID, &rep.UserID, &rep.ReportType, &rep.Date, &rep.FileURL, &rep.ManualData,
		&rep.AISummary, &rep.Abnormalities, &rep.DoctorQuestions, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func scanTimeline(rows pgx.Rows) ([]*TimelineEntry, error) {
	entries := []*TimelineEntry{}
	for rows.Next() {
		var e TimelineEntry
		if err := rows.Scan(&e.ID, &e.ReportType, &e.Date, &e.AISummary, &e.Abnormalities, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
