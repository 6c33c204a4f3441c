// Package dashboard aggregates report and vital data into a single
// overview for the authenticated user.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/healthmate/healthmate/internal/domain/report"
	"github.com/healthmate/healthmate/internal/domain/vital"
)

const (
	recentReportsLimit = 5
	insightsMaxLen     = 150
)

// ReportSource is the slice of the report repository the dashboard needs.
type ReportSource interface {
	Count(ctx context.Context, userID uuid.UUID) (int, error)
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*report.TimelineEntry, error)
	LastUpdated(ctx context.Context, userID uuid.UUID) (*time.Time, error)
}

// VitalSource is the slice of the vital repository the dashboard needs.
type VitalSource interface {
	Count(ctx context.Context, userID uuid.UUID) (int, error)
	Latest(ctx context.Context, userID uuid.UUID) (*vital.Vital, error)
	Averages(ctx context.Context, userID uuid.UUID) (*vital.Averages, error)
	LastUpdated(ctx context.Context, userID uuid.UUID) (*time.Time, error)
}

// Stats is the aggregated dashboard payload. Fields stay null rather
// than erroring when the user has no data yet.
type Stats struct {
	TotalReports  int                     `json:"totalReports"`
	LatestVital   *vital.Vital            `json:"latestVital"`
	RecentReports []*report.TimelineEntry `json:"recentReports"`
	AverageVitals *vital.Averages         `json:"averageVitals"`
	AIInsights    *string                 `json:"aiInsights"`
	LastUpdated   *time.Time              `json:"lastUpdated"`
	VitalsCount   int                     `json:"vitalsCount"`
}

type Service struct {
	reports ReportSource
	vitals  VitalSource
}

func NewService(reports ReportSource, vitals VitalSource) *Service {
	return &Service{reports: reports, vitals: vitals}
}

func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	totalReports, err := s.reports.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	recent, err := s.reports.Recent(ctx, userID, recentReportsLimit)
	if err != nil {
		return nil, fmt.Errorf("recent reports: %w", err)
	}
	reportsUpdated, err := s.reports.LastUpdated(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reports last updated: %w", err)
	}

	vitalsCount, err := s.vitals.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count vitals: %w", err)
	}
	latest, err := s.vitals.Latest(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("latest vital: %w", err)
	}
	averages, err := s.vitals.Averages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("average vitals: %w", err)
	}
	vitalsUpdated, err := s.vitals.LastUpdated(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("vitals last updated: %w", err)
	}

	if recent == nil {
		recent = []*report.TimelineEntry{}
	}
	// avg() over zero rows yields an all-NULL row, not no row; without any
	// vitals the whole field stays null.
	if vitalsCount == 0 {
		averages = nil
	}

	return &Stats{
		TotalReports:  totalReports,
		LatestVital:   latest,
		RecentReports: recent,
		AverageVitals: averages,
		AIInsights:    insights(recent),
		LastUpdated:   latestTime(reportsUpdated, vitalsUpdated),
		VitalsCount:   vitalsCount,
	}, nil
}

// insights returns a short teaser from the newest report's summary.
func insights(recent []*report.TimelineEntry) *string {
	if len(recent) == 0 || recent[0].AISummary == nil || *recent[0].AISummary == "" {
		return nil
	}
	summary := *recent[0].AISummary
	if runes := []rune(summary); len(runes) > insightsMaxLen {
		summary = string(runes[:insightsMaxLen])
	}
	summary += "..."
	return &summary
}

func latestTime(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
