package lifecycle

import (
	"context"
	"fmt"
	"time"

	"mentora/internal/domain"
)

// StatusSnapshot is a point-in-time count of appointments per status.
// Persisting or exporting the snapshot is left to the caller.
type StatusSnapshot struct {
	TakenAt time.Time
	Counts  map[domain.AppointmentStatus]int
	Total   int
}

// SnapshotMetrics aggregates appointment counts by status.
func (s *Service) SnapshotMetrics(ctx context.Context) (StatusSnapshot, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("count by status: %w", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return StatusSnapshot{TakenAt: s.now(), Counts: counts, Total: total}, nil
}

// WeeklyReport summarizes the trailing seven days of scheduled appointments.
type WeeklyReport struct {
	From             time.Time
	To               time.Time
	Total            int
	Completed        int
	Cancelled        int
	CompletionRate   float64
	CancellationRate float64
}

// BuildWeeklyReport computes booking volume and completion/cancellation rates
// over the trailing week.
func (s *Service) BuildWeeklyReport(ctx context.Context) (WeeklyReport, error) {
	now := s.now()
	from := now.AddDate(0, 0, -7)

	rows, err := s.store.ListScheduledBetween(ctx, from, now)
	if err != nil {
		return WeeklyReport{}, fmt.Errorf("list trailing week: %w", err)
	}

	report := WeeklyReport{From: from, To: now, Total: len(rows)}
	for _, a := range rows {
		switch a.Status {
		case domain.StatusCompleted:
			report.Completed++
		case domain.StatusCancelled:
			report.Cancelled++
		}
	}
	if report.Total > 0 {
		report.CompletionRate = float64(report.Completed) / float64(report.Total)
		report.CancellationRate = float64(report.Cancelled) / float64(report.Total)
	}
	return report, nil
}
