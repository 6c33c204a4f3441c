package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthmate/healthmate/internal/platform/ai"
	"github.com/healthmate/healthmate/internal/platform/storage"
)

// PendingSummary is stored when AI analysis fails; the report is persisted
// regardless.
const PendingSummary = "AI analysis pending. Please try again later."

// ErrNoFile is returned when a download is requested for a manual report.
var ErrNoFile = errors.New("report has no file")

// ErrFileMissing is returned when the stored file has vanished from disk.
var ErrFileMissing = errors.New("report file missing")

type Service struct {
	reports Repository
	ai      ai.Client
	files   storage.FileStore
	log     zerolog.Logger
}

func NewService(reports Repository, aiClient ai.Client, files storage.FileStore, log zerolog.Logger) *Service {
	return &Service{reports: reports, ai: aiClient, files: files, log: log}
}

// Upload persists a file-backed report. The file is already on disk; if the
// database insert fails the orphaned file is removed. AI failure degrades to
// a pending summary instead of failing the upload.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, reportType ReportType, date time.Time, fileURL, filePath string) (*Report, error) {
	rep := &Report{
		UserID:     userID,
		ReportType: reportType,
		Date:       date,
		FileURL:    &fileURL,
	}

	s.applyAnalysis(rep, func() (*ai.Analysis, error) {
		return s.ai.AnalyzeFile(ctx, filePath, string(reportType))
	})

	if err := s.reports.Create(ctx, rep); err != nil {
		if rmErr := s.files.Remove(fileURL); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("file", fileURL).Msg("failed to remove orphaned report file")
		}
		return nil, err
	}
	return rep, nil
}

// CreateManual persists a report from hand-entered values with the same AI
// degradation as Upload.
func (s *Service) CreateManual(ctx context.Context, userID uuid.UUID, reportType ReportType, date time.Time, manualData map[string]interface{}) (*Report, error) {
	rep := &Report{
		UserID:     userID,
		ReportType: reportType,
		Date:       date,
		ManualData: manualData,
	}

	s.applyAnalysis(rep, func() (*ai.Analysis, error) {
		return s.ai.AnalyzeData(ctx, manualData, string(reportType))
	})

	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func (s *Service) applyAnalysis(rep *Report, analyze func() (*ai.Analysis, error)) {
	analysis, err := analyze()
	if err != nil {
		s.log.Warn().Err(err).Str("report_type", string(rep.ReportType)).Msg("ai analysis failed, storing report without it")
		pending := PendingSummary
		rep.AISummary = &pending
		return
	}
	rep.AISummary = &analysis.Summary
	rep.Abnormalities = analysis.Abnormalities
	rep.DoctorQuestions = analysis.DoctorQuestions
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Report, error) {
	return s.reports.GetByID(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]*Report, error) {
	return s.reports.List(ctx, userID, f)
}

func (s *Service) Timeline(ctx context.Context, userID uuid.UUID, f RangeFilter) ([]*TimelineEntry, error) {
	return s.reports.Timeline(ctx, userID, f)
}

// Download resolves the report's file to an on-disk path.
func (s *Service) Download(ctx context.Context, userID, id uuid.UUID) (string, error) {
	rep, err := s.reports.GetByID(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if rep.FileURL == nil {
		return "", ErrNoFile
	}
	path, err := s.files.Resolve(*rep.FileURL)
	if err != nil {
		return "", ErrFileMissing
	}
	return path, nil
}

// Delete removes the report row and then its backing file. File removal
// errors are logged and swallowed.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	rep, err := s.reports.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, userID, id); err != nil {
		return err
	}
	if rep.FileURL != nil {
		if err := s.files.Remove(*rep.FileURL); err != nil {
			s.log.Warn().Err(err).Str("file", *rep.FileURL).Msg("failed to remove report file")
		}
	}
	return nil
}
