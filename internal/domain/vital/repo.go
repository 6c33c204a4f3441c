package vital

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("vital entry not found")

// RangeFilter bounds the timeline query. Either side may be open.
type RangeFilter struct {
	Start *time.Time
	End   *time.Time
}

type Repository interface {
	Create(ctx context.Context, v *Vital) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Vital, error)
	List(ctx context.Context, userID uuid.UUID, date *time.Time) ([]*Vital, error)
	Timeline(ctx context.Context, userID uuid.UUID, f RangeFilter) ([]*Vital, error)
	Update(ctx context.Context, v *Vital) error
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// Dashboard aggregates.
	Count(ctx context.Context, userID uuid.UUID) (int, error)
	Latest(ctx context.Context, userID uuid.UUID) (*Vital, error)
	Averages(ctx context.Context, userID uuid.UUID) (*Averages, error)
	LastUpdated(ctx context.Context, userID uuid.UUID) (*time.Time, error)
}
