package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mentora/internal/domain"
)

// ProcessRecurring materializes at most one new instance per series. A series
// recovering from downtime catches up one occurrence per run rather than
// bursting multiple periods at once. Per-series failures are logged and do
// not stop the remaining series.
func (s *Service) ProcessRecurring(ctx context.Context) (int, error) {
	roots, err := s.store.ListSeriesRoots(ctx)
	if err != nil {
		return 0, fmt.Errorf("list series roots: %w", err)
	}

	created := 0
	for _, root := range roots {
		ok, err := s.materializeNext(ctx, root)
		if err != nil {
			s.log.Error("series materialization failed",
				slog.String("series_id", root.ID.String()), slog.Any("err", err))
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (s *Service) materializeNext(ctx context.Context, root domain.Appointment) (bool, error) {
	now := s.now()

	instances, err := s.store.ListInstances(ctx, root.ID)
	if err != nil {
		return false, fmt.Errorf("list instances: %w", err)
	}

	next, err := domain.NextOccurrence(root, instances)
	if err != nil {
		return false, err
	}
	if !domain.ShouldMaterializeNext(root, instances, next, now) {
		return false, nil
	}

	nextEnd := next.Add(root.EndTime().Sub(root.ScheduledAt))
	conflict, err := s.HasConflict(ctx, root.ProviderID, next, nextEnd, root.ID)
	if err != nil {
		return false, err
	}
	if conflict {
		// Deliberate deferral, not an error. The next run re-evaluates
		// from scratch.
		s.log.Info("series occurrence skipped: provider conflict",
			slog.String("series_id", root.ID.String()),
			slog.Time("occurrence", next))
		return false, nil
	}

	rootID := root.ID
	instance := domain.Appointment{
		// Deterministic id per series and occurrence time, so a duplicate
		// insert from overlapping runs collapses onto the same row.
		ID:                  instanceID(rootID, next),
		RequesterID:         root.RequesterID,
		ProviderID:          root.ProviderID,
		Subject:             root.Subject,
		Description:         root.Description,
		Location:            root.Location,
		CourseID:            root.CourseID,
		MeetingLink:         root.MeetingLink,
		ScheduledAt:         next,
		DurationMinutes:     root.DurationMinutes,
		Status:              domain.StatusPending,
		IsRecurring:         false,
		ParentAppointmentID: &rootID,
		BookedAt:            now,
		LastModifiedAt:      now,
		LastModifiedBy:      ActorRecurrence,
	}
	instance.AppendNote("generated from recurring series")

	if _, err := s.store.Save(ctx, instance); err != nil {
		return false, fmt.Errorf("save instance: %w", err)
	}
	return true, nil
}

func instanceID(rootID uuid.UUID, occurrence time.Time) uuid.UUID {
	name := "mentora:series_instance:" + rootID.String() + ":" + occurrence.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}
