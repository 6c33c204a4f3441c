package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound covers both absent and foreign-owned reports; callers cannot
// tell the difference.
var ErrNotFound = errors.New("report not found")

// ListFilter narrows the owner-scoped listing. Date matches the whole
// calendar day of the given instant.
type ListFilter struct {
	Date       *time.Time
	ReportType *ReportType
}

// RangeFilter bounds the timeline query. Either side may be open.
type RangeFilter struct {
	Start *time.Time
	End   *time.Time
}

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Report, error)
	List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]*Report, error)
	Timeline(ctx context.Context, userID uuid.UUID, f RangeFilter) ([]*TimelineEntry, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// Dashboard aggregates.
	Count(ctx context.Context, userID uuid.UUID) (int, error)
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*TimelineEntry, error)
	LastUpdated(ctx context.Context, userID uuid.UUID) (*time.Time, error)
}
