package vital

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	vitals Repository
}

func NewService(vitals Repository) *Service {
	return &Service{vitals: vitals}
}

// Input carries a new reading. All measurements are optional.
type Input struct {
	Date        time.Time
	BP          *string
	Sugar       *float64
	Weight      *float64
	Pulse       *float64
	Temperature *float64
	Notes       *string
}

func (s *Service) Add(ctx context.Context, userID uuid.UUID, in Input) (*Vital, error) {
	v := &Vital{
		UserID:      userID,
		Date:        in.Date,
		BP:          in.BP,
		Sugar:       in.Sugar,
		Weight:      in.Weight,
		Pulse:       in.Pulse,
		Temperature: in.Temperature,
		Notes:       in.Notes,
	}
	if err := s.vitals.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Vital, error) {
	return s.vitals.GetByID(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, date *time.Time) ([]*Vital, error) {
	return s.vitals.List(ctx, userID, date)
}

func (s *Service) Timeline(ctx context.Context, userID uuid.UUID, f RangeFilter) ([]*Vital, error) {
	return s.vitals.Timeline(ctx, userID, f)
}

// Patch is a single-field update. Set reports whether the caller supplied
// the field at all; a Set patch with a nil Value clears it.
type Patch[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON marks the field as supplied even when the payload carries
// an explicit null, which plain pointer fields cannot distinguish from an
// absent key.
func (p *Patch[T]) UnmarshalJSON(b []byte) error {
	p.Set = true
	if bytes.Equal(b, []byte("null")) {
		p.Value = nil
		return nil
	}
	return json.Unmarshal(b, &p.Value)
}

// NewPatch builds a Set patch carrying v.
func NewPatch[T any](v T) Patch[T] {
	return Patch[T]{Set: true, Value: &v}
}

// Update mutates only the fields present in the patch. The date cannot be
// cleared, only replaced.
type Update struct {
	Date        *time.Time
	BP          Patch[string]
	Sugar       Patch[float64]
	Weight      Patch[float64]
	Pulse       Patch[float64]
	Temperature Patch[float64]
	Notes       Patch[string]
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in Update) (*Vital, error) {
	v, err := s.vitals.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Date != nil {
		v.Date = *in.Date
	}
	if in.BP.Set {
		v.BP = in.BP.Value
	}
	if in.Sugar.Set {
		v.Sugar = in.Sugar.Value
	}
	if in.Weight.Set {
		v.Weight = in.Weight.Value
	}
	if in.Pulse.Set {
		v.Pulse = in.Pulse.Value
	}
	if in.Temperature.Set {
		v.Temperature = in.Temperature.Value
	}
	if in.Notes.Set {
		v.Notes = in.Notes.Value
	}

	if err := s.vitals.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	_, err := s.vitals.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.vitals.Delete(ctx, userID, id)
}
