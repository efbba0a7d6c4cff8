package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"mentora/internal/domain"
	"mentora/internal/notify"
)

// CompleteElapsed transitions confirmed appointments whose end is more than
// two hours past to COMPLETED. Re-running it is a no-op because the status
// guard re-evaluates on every pass.
func (s *Service) CompleteElapsed(ctx context.Context) (int, error) {
	now := s.now()
	rows, err := s.store.ListByStatusEndedBefore(ctx, domain.StatusConfirmed, now.Add(-completeAfterEnd))
	if err != nil {
		return 0, fmt.Errorf("list elapsed confirmed appointments: %w", err)
	}

	completed := 0
	for _, a := range rows {
		if a.Status != domain.StatusConfirmed {
			continue
		}
		a.Status = domain.StatusCompleted
		a.AppendNote("auto-completed: session ended")
		a.LastModifiedAt = now
		a.LastModifiedBy = ActorAutoComplete
		if _, err := s.store.Save(ctx, a); err != nil {
			s.log.Error("auto-complete save failed",
				slog.String("appointment_id", a.ID.String()), slog.Any("err", err))
			continue
		}
		completed++
	}
	return completed, nil
}

// CancelAbandoned cancels pending bookings that were never confirmed within
// the abandonment window.
func (s *Service) CancelAbandoned(ctx context.Context) (int, error) {
	now := s.now()
	rows, err := s.store.ListByStatusBookedBefore(ctx, domain.StatusPending, now.Add(-abandonAfter))
	if err != nil {
		return 0, fmt.Errorf("list abandoned pending appointments: %w", err)
	}

	cancelled := 0
	for _, a := range rows {
		if a.Status != domain.StatusPending {
			continue
		}
		a.Status = domain.StatusCancelled
		a.AppendNote("auto-cancelled: unconfirmed for 48h")
		a.LastModifiedAt = now
		a.LastModifiedBy = ActorAutoCancel
		if _, err := s.store.Save(ctx, a); err != nil {
			s.log.Error("auto-cancel save failed",
				slog.String("appointment_id", a.ID.String()), slog.Any("err", err))
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// PurgeExpired deletes terminal appointments scheduled before the retention
// horizon. A series root is never deleted while it still has persisted
// instances, so instance lineage stays resolvable.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.AddDate(-retentionYears, 0, 0)
	rows, err := s.store.ListTerminalScheduledBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired appointments: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, a := range rows {
		if a.IsSeriesRoot() {
			children, err := s.store.ListInstances(ctx, a.ID)
			if err != nil {
				s.log.Error("retention instance lookup failed",
					slog.String("appointment_id", a.ID.String()), slog.Any("err", err))
				continue
			}
			if len(children) > 0 {
				continue
			}
		}
		ids = append(ids, a.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := s.store.DeleteBatch(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete expired appointments: %w", err)
	}
	return deleted, nil
}

// SendReminders emits one reminder per confirmed appointment starting 23 to
// 25 hours from now. A notifier failure for one appointment never aborts the
// rest of the sweep; failed reminders are picked up again only if the
// appointment still falls inside a later band.
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	rows, err := s.store.ListByStatusStartingBetween(ctx, domain.StatusConfirmed,
		now.Add(reminderBandStart), now.Add(reminderBandEnd))
	if err != nil {
		return 0, fmt.Errorf("list upcoming confirmed appointments: %w", err)
	}

	sent := 0
	for _, a := range rows {
		if err := s.limiter.Wait(ctx); err != nil {
			return sent, err
		}
		reminder := notify.Reminder{
			Subject:         a.Subject,
			Location:        a.Location,
			MeetingLink:     a.MeetingLink,
			StartsAt:        a.ScheduledAt,
			DurationMinutes: a.DurationMinutes,
		}
		if err := s.notifier.Emit(ctx, a.RequesterID, a.ID, reminder); err != nil {
			s.log.Warn("reminder emit failed",
				slog.String("appointment_id", a.ID.String()),
				slog.String("party_id", a.RequesterID),
				slog.Any("err", err))
			continue
		}
		sent++
	}
	return sent, nil
}
