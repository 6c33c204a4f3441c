package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthmate/healthmate/internal/platform/ai"
)

// -- Mock repository --

type mockRepo struct {
	reports    map[uuid.UUID]*Report
	createErr  error
	nextCreate time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{reports: make(map[uuid.UUID]*Report), nextCreate: time.Now()}
}

func (m *mockRepo) Create(_ context.Context, r *Report) error {
	if m.createErr != nil {
		return m.createErr
	}
	r.ID = uuid.New()
	r.CreatedAt = m.nextCreate
	r.UpdatedAt = m.nextCreate
	if r.Abnormalities == nil {
		r.Abnormalities = []string{}
	}
	if r.DoctorQuestions == nil {
		r.DoctorQuestions = []string{}
	}
	m.reports[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, userID, id uuid.UUID) (*Report, error) {
	r, ok := m.reports[id]
	if !ok || r.UserID != userID {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *mockRepo) List(_ context.Context, userID uuid.UUID, f ListFilter) ([]*Report, error) {
	result := []*Report{}
	for _, r := range m.reports {
		if r.UserID != userID {
			continue
		}
		if f.ReportType != nil && r.ReportType != *f.ReportType {
			continue
		}
		if f.Date != nil {
			day := f.Date.Truncate(24 * time.Hour)
			if r.Date.Before(day) || !r.Date.Before(day.Add(24*time.Hour)) {
				continue
			}
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

func (m *mockRepo) Timeline(_ context.Context, userID uuid.UUID, f RangeFilter) ([]*TimelineEntry, error) {
	entries := []*TimelineEntry{}
	for _, r := range m.reports {
		if r.UserID != userID {
			continue
		}
		if f.Start != nil && r.Date.Before(*f.Start) {
			continue
		}
		if f.End != nil && r.Date.After(*f.End) {
			continue
		}
		entries = append(entries, &TimelineEntry{
			ID: r.ID, ReportType: r.ReportType, Date: r.Date,
			AISummary: r.AISummary, Abnormalities: r.Abnormalities, CreatedAt: r.CreatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.After(entries[j].Date) })
	return entries, nil
}

func (m *mockRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	r, ok := m.reports[id]
	if !ok || r.UserID != userID {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *mockRepo) Count(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, r := range m.reports {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*TimelineEntry, error) {
	entries, err := m.Timeline(ctx, userID, RangeFilter{})
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *mockRepo) LastUpdated(_ context.Context, userID uuid.UUID) (*time.Time, error) {
	var latest *time.Time
	for _, r := range m.reports {
		if r.UserID != userID {
			continue
		}
		t := r.UpdatedAt
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest, nil
}

// -- Mock AI client --

type mockAI struct {
	analysis *ai.Analysis
	err      error
	reply    string
}

func (m *mockAI) AnalyzeFile(_ context.Context, _, _ string) (*ai.Analysis, error) {
	return m.analysis, m.err
}

func (m *mockAI) AnalyzeData(_ context.Context, _ map[string]interface{}, _ string) (*ai.Analysis, error) {
	return m.analysis, m.err
}

func (m *mockAI) Chat(_ context.Context, _ string, _ []ai.Turn) (string, error) {
	return m.reply, m.err
}

// -- Mock file store --

type mockFiles struct {
	removed []string
	files   map[string]string // url -> path
}

func newMockFiles() *mockFiles {
	return &mockFiles{files: make(map[string]string)}
}

func (m *mockFiles) Save(category, origName, contentType string, content io.Reader, maxSize int64) (string, error) {
	url := fmt.Sprintf("/uploads/%s/%s", category, origName)
	m.files[url] = "/tmp/" + origName
	return url, nil
}

func (m *mockFiles) Resolve(urlPath string) (string, error) {
	path, ok := m.files[urlPath]
	if !ok {
		return "", fmt.Errorf("not found")
	}
	return path, nil
}

func (m *mockFiles) Remove(urlPath string) error {
	m.removed = append(m.removed, urlPath)
	delete(m.files, urlPath)
	return nil
}

func newTestService() (*Service, *mockRepo, *mockAI, *mockFiles) {
	repo := newMockRepo()
	aiClient := &mockAI{analysis: &ai.Analysis{
		Summary:         "All values within range.",
		Abnormalities:   []string{},
		DoctorQuestions: []string{"Anything to monitor?"},
	}}
	files := newMockFiles()
	return NewService(repo, aiClient, files, zerolog.Nop()), repo, aiClient, files
}

func TestUpload(t *testing.T) {
	s, _, _, files := newTestService()
	userID := uuid.New()
	files.files["/uploads/reports/cbc.pdf"] = "/tmp/cbc.pdf"

	rep, err := s.Upload(context.Background(), userID, TypeCBC, time.Now(), "/uploads/reports/cbc.pdf", "/tmp/cbc.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.AISummary == nil || *rep.AISummary != "All values within range." {
		t.Errorf("ai summary = %v", rep.AISummary)
	}
	if rep.FileURL == nil || *rep.FileURL != "/uploads/reports/cbc.pdf" {
		t.Errorf("file url = %v", rep.FileURL)
	}
}

func TestUpload_AIDegradation(t *testing.T) {
	s, _, aiClient, _ := newTestService()
	aiClient.err = fmt.Errorf("quota exceeded")

	rep, err := s.Upload(context.Background(), uuid.New(), TypeCBC, time.Now(), "/uploads/reports/cbc.pdf", "/tmp/cbc.pdf")
	if err != nil {
		t.Fatalf("AI failure must not block the upload: %v", err)
	}
	if rep.AISummary == nil || *rep.AISummary != PendingSummary {
		t.Errorf("expected pending summary, got %v", rep.AISummary)
	}
}

func TestUpload_RemovesOrphanOnCreateFailure(t *testing.T) {
	s, repo, _, files := newTestService()
	repo.createErr = fmt.Errorf("db down")

	_, err := s.Upload(context.Background(), uuid.New(), TypeCBC, time.Now(), "/uploads/reports/cbc.pdf", "/tmp/cbc.pdf")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(files.removed) != 1 || files.removed[0] != "/uploads/reports/cbc.pdf" {
		t.Errorf("orphaned file should be removed: %v", files.removed)
	}
}

func TestCreateManual(t *testing.T) {
	s, _, _, _ := newTestService()

	rep, err := s.CreateManual(context.Background(), uuid.New(), TypeBloodTest, time.Now(), map[string]interface{}{"glucose": 98})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.FileURL != nil {
		t.Error("manual report must not have a file")
	}
	if rep.ManualData["glucose"] != 98 {
		t.Errorf("manual data = %v", rep.ManualData)
	}
}

func TestGet_OwnerScoped(t *testing.T) {
	s, _, _, _ := newTestService()
	owner := uuid.New()

	rep, err := s.CreateManual(context.Background(), owner, TypeOther, time.Now(), map[string]interface{}{"k": "v"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Get(context.Background(), owner, rep.ID); err != nil {
		t.Errorf("owner read failed: %v", err)
	}
	if _, err := s.Get(context.Background(), uuid.New(), rep.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign read must look like not-found, got %v", err)
	}
}

func TestList_Filters(t *testing.T) {
	s, _, _, _ := newTestService()
	userID := uuid.New()
	day1 := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	s.CreateManual(context.Background(), userID, TypeCBC, day1, map[string]interface{}{"k": 1})
	s.CreateManual(context.Background(), userID, TypeXRay, day2, map[string]interface{}{"k": 2})

	all, err := s.List(context.Background(), userID, ListFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 reports, got %d (%v)", len(all), err)
	}
	if !all[0].Date.After(all[1].Date) {
		t.Error("list should be newest first")
	}

	rt := TypeCBC
	byType, _ := s.List(context.Background(), userID, ListFilter{ReportType: &rt})
	if len(byType) != 1 || byType[0].ReportType != TypeCBC {
		t.Errorf("type filter: %v", byType)
	}

	filterDay := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	byDate, _ := s.List(context.Background(), userID, ListFilter{Date: &filterDay})
	if len(byDate) != 1 || !byDate[0].Date.Equal(day1) {
		t.Errorf("date filter should cover the whole day: %v", byDate)
	}
}

func TestTimeline_Range(t *testing.T) {
	s, _, _, _ := newTestService()
	userID := uuid.New()
	for day := 1; day <= 4; day++ {
		date := time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
		s.CreateManual(context.Background(), userID, TypeOther, date, map[string]interface{}{"d": day})
	}

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	entries, err := s.Timeline(context.Background(), userID, RangeFilter{Start: &start, End: &end})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries in range, got %d", len(entries))
	}
}

func TestDownload(t *testing.T) {
	s, _, _, files := newTestService()
	userID := uuid.New()
	files.files["/uploads/reports/cbc.pdf"] = "/tmp/cbc.pdf"

	rep, err := s.Upload(context.Background(), userID, TypeCBC, time.Now(), "/uploads/reports/cbc.pdf", "/tmp/cbc.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := s.Download(context.Background(), userID, rep.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/tmp/cbc.pdf" {
		t.Errorf("path = %q", path)
	}

	manual, _ := s.CreateManual(context.Background(), userID, TypeOther, time.Now(), map[string]interface{}{"k": 1})
	if _, err := s.Download(context.Background(), userID, manual.ID); !errors.Is(err, ErrNoFile) {
		t.Errorf("expected ErrNoFile, got %v", err)
	}

	delete(files.files, "/uploads/reports/cbc.pdf")
	if _, err := s.Download(context.Background(), userID, rep.ID); !errors.Is(err, ErrFileMissing) {
		t.Errorf("expected ErrFileMissing, got %v", err)
	}
}

func TestDelete_RemovesFile(t *testing.T) {
	s, repo, _, files := newTestService()
	userID := uuid.New()
	files.files["/uploads/reports/cbc.pdf"] = "/tmp/cbc.pdf"

	rep, _ := s.Upload(context.Background(), userID, TypeCBC, time.Now(), "/uploads/reports/cbc.pdf", "/tmp/cbc.pdf")

	if err := s.Delete(context.Background(), userID, rep.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.reports) != 0 {
		t.Error("report row should be gone")
	}
	if len(files.removed) != 1 {
		t.Errorf("backing file should be removed: %v", files.removed)
	}
}

func TestDelete_ForeignOwner(t *testing.T) {
	s, _, _, _ := newTestService()
	rep, _ := s.CreateManual(context.Background(), uuid.New(), TypeOther, time.Now(), map[string]interface{}{"k": 1})

	if err := s.Delete(context.Background(), uuid.New(), rep.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestValidType(t *testing.T) {
	for _, rt := range Types {
		if !ValidType(rt) {
			t.Errorf("%s should be valid", rt)
		}
	}
	if ValidType("MRI") {
		t.Error("MRI is not a valid type")
	}
}
