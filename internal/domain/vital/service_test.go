package vital

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock repository --

type mockRepo struct {
	vitals map[uuid.UUID]*Vital
}

func newMockRepo() *mockRepo {
	return &mockRepo{vitals: make(map[uuid.UUID]*Vital)}
}

func (m *mockRepo) Create(_ context.Context, v *Vital) error {
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	v.UpdatedAt = time.Now()
	m.vitals[v.ID] = v
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, userID, id uuid.UUID) (*Vital, error) {
	v, ok := m.vitals[id]
	if !ok || v.UserID != userID {
		return nil, ErrNotFound
	}
	copied := *v
	return &copied, nil
}

func (m *mockRepo) List(_ context.Context, userID uuid.UUID, date *time.Time) ([]*Vital, error) {
	result := []*Vital{}
	for _, v := range m.vitals {
		if v.UserID != userID {
			continue
		}
		if date != nil {
			day := date.Truncate(24 * time.Hour)
			if v.Date.Before(day) || !v.Date.Before(day.Add(24*time.Hour)) {
				continue
			}
		}
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

func (m *mockRepo) Timeline(_ context.Context, userID uuid.UUID, f RangeFilter) ([]*Vital, error) {
	result := []*Vital{}
	for _, v := range m.vitals {
		if v.UserID != userID {
			continue
		}
		if f.Start != nil && v.Date.Before(*f.Start) {
			continue
		}
		if f.End != nil && v.Date.After(*f.End) {
			continue
		}
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

func (m *mockRepo) Update(_ context.Context, v *Vital) error {
	existing, ok := m.vitals[v.ID]
	if !ok || existing.UserID != v.UserID {
		return ErrNotFound
	}
	v.UpdatedAt = time.Now()
	copied := *v
	m.vitals[v.ID] = &copied
	return nil
}

func (m *mockRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	v, ok := m.vitals[id]
	if !ok || v.UserID != userID {
		return ErrNotFound
	}
	delete(m.vitals, id)
	return nil
}

func (m *mockRepo) Count(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, v := range m.vitals {
		if v.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) Latest(ctx context.Context, userID uuid.UUID) (*Vital, error) {
	all, _ := m.List(ctx, userID, nil)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (m *mockRepo) Averages(_ context.Context, userID uuid.UUID) (*Averages, error) {
	var a Averages
	sum := func(get func(*Vital) *float64) *float64 {
		var total float64
		var n int
		for _, v := range m.vitals {
			if v.UserID != userID {
				continue
			}
			if val := get(v); val != nil {
				total += *val
				n++
			}
		}
		if n == 0 {
			return nil
		}
		avg := total / float64(n)
		return &avg
	}
	a.Sugar = sum(func(v *Vital) *float64 { return v.Sugar })
	a.Weight = sum(func(v *Vital) *float64 { return v.Weight })
	a.Pulse = sum(func(v *Vital) *float64 { return v.Pulse })
	a.Temperature = sum(func(v *Vital) *float64 { return v.Temperature })
	return &a, nil
}

func (m *mockRepo) LastUpdated(_ context.Context, userID uuid.UUID) (*time.Time, error) {
	var latest *time.Time
	for _, v := range m.vitals {
		if v.UserID != userID {
			continue
		}
		t := v.UpdatedAt
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest, nil
}

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

func TestAdd(t *testing.T) {
	s, _ := newTestService()
	userID := uuid.New()

	v, err := s.Add(context.Background(), userID, Input{
		Date:  time.Now(),
		BP:    str("120/80"),
		Sugar: f64(96),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ID == uuid.Nil {
		t.Error("expected an assigned id")
	}
	if v.Weight != nil || v.Pulse != nil {
		t.Error("unset measurements must stay nil")
	}
}

func TestList_DayFilter(t *testing.T) {
	s, _ := newTestService()
	userID := uuid.New()

	s.Add(context.Background(), userID, Input{Date: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)})
	s.Add(context.Background(), userID, Input{Date: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)})
	s.Add(context.Background(), userID, Input{Date: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)})

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	vitals, err := s.List(context.Background(), userID, &day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vitals) != 2 {
		t.Errorf("day filter should cover the whole day, got %d entries", len(vitals))
	}

	all, _ := s.List(context.Background(), userID, nil)
	if len(all) != 3 {
		t.Errorf("expected 3 entries, got %d", len(all))
	}
	if !all[0].Date.After(all[1].Date) {
		t.Error("list should be newest first")
	}
}

func TestUpdate_Partial(t *testing.T) {
	s, _ := newTestService()
	userID := uuid.New()

	v, _ := s.Add(context.Background(), userID, Input{
		Date:   time.Now(),
		BP:     str("120/80"),
		Sugar:  f64(96),
		Weight: f64(70),
	})

	updated, err := s.Update(context.Background(), userID, v.ID, Update{Sugar: NewPatch(101.0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *updated.Sugar != 101 {
		t.Errorf("sugar = %v", *updated.Sugar)
	}
	if *updated.BP != "120/80" || *updated.Weight != 70 {
		t.Error("untouched fields must survive a partial update")
	}
}

func TestUpdate_ClearsFields(t *testing.T) {
	s, _ := newTestService()
	userID := uuid.New()

	v, _ := s.Add(context.Background(), userID, Input{
		Date:  time.Now(),
		BP:    str("120/80"),
		Sugar: f64(96),
		Notes: str("fasting"),
	})

	updated, err := s.Update(context.Background(), userID, v.ID, Update{
		Sugar: Patch[float64]{Set: true},
		Notes: Patch[string]{Set: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Sugar != nil {
		t.Errorf("sugar should be cleared, got %v", *updated.Sugar)
	}
	if updated.Notes != nil {
		t.Errorf("notes should be cleared, got %v", *updated.Notes)
	}
	if updated.BP == nil || *updated.BP != "120/80" {
		t.Error("unsupplied fields must survive")
	}
}

func TestUpdate_ForeignOwner(t *testing.T) {
	s, _ := newTestService()
	v, _ := s.Add(context.Background(), uuid.New(), Input{Date: time.Now()})

	if _, err := s.Update(context.Background(), uuid.New(), v.ID, Update{Sugar: NewPatch(100.0)}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s, repo := newTestService()
	userID := uuid.New()
	v, _ := s.Add(context.Background(), userID, Input{Date: time.Now()})

	if err := s.Delete(context.Background(), userID, v.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.vitals) != 0 {
		t.Error("entry should be deleted")
	}
	if err := s.Delete(context.Background(), userID, v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete should be not-found, got %v", err)
	}
}

func TestTimeline_Range(t *testing.T) {
	s, _ := newTestService()
	userID := uuid.New()
	for day := 1; day <= 4; day++ {
		s.Add(context.Background(), userID, Input{Date: time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)})
	}

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	vitals, err := s.Timeline(context.Background(), userID, RangeFilter{Start: &start})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vitals) != 3 {
		t.Errorf("open-ended range should match 3 entries, got %d", len(vitals))
	}
}
