package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"mentora/internal/domain"
	"mentora/internal/notify"
	"mentora/internal/store"
)

// Synthetic actor tags stamped into last_modified_by so automated transitions
// stay distinguishable from human changes downstream.
const (
	ActorAutoComplete = "system:auto-complete"
	ActorAutoCancel   = "system:auto-cancel"
	ActorRecurrence   = "system:recurrence"
)

const (
	// Pending bookings older than this are considered abandoned.
	abandonAfter = 48 * time.Hour
	// Confirmed appointments are completed once their end is this far past.
	completeAfterEnd = 2 * time.Hour
	// Terminal records scheduled before this horizon are purged.
	retentionYears = 2
	// Reminders cover confirmed appointments starting inside this band.
	// A 2-hour band scanned every 6 hours catches each appointment at
	// least once without re-scanning the same band every tick.
	reminderBandStart = 23 * time.Hour
	reminderBandEnd   = 25 * time.Hour
)

// Service is the lifecycle transition engine: conflict detection, recurring
// series materialization, and the scheduled sweeps over the appointment
// store. It holds no mutable state of its own; every sweep scans the current
// persisted state at invocation time.
type Service struct {
	store    store.AppointmentStore
	notifier notify.Notifier
	log      *slog.Logger
	limiter  *rate.Limiter
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithReminderRate caps outbound reminder emission.
func WithReminderRate(limit rate.Limit, burst int) Option {
	return func(s *Service) { s.limiter = rate.NewLimiter(limit, burst) }
}

func NewService(st store.AppointmentStore, notifier notify.Notifier, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    st,
		notifier: notifier,
		log:      log,
		limiter:  rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasConflict reports whether any blocking appointment for the party overlaps
// the half-open candidate interval [candidateStart, candidateEnd). excludeID,
// when non-nil, removes that appointment from consideration; it is used when
// re-checking a series root against its own future instance.
func (s *Service) HasConflict(ctx context.Context, partyID string, candidateStart, candidateEnd time.Time, excludeID uuid.UUID) (bool, error) {
	appts, err := s.store.ListByPartyAndStatus(ctx, partyID, domain.BlockingStatuses())
	if err != nil {
		return false, fmt.Errorf("list blocking appointments: %w", err)
	}
	for _, a := range appts {
		if excludeID != uuid.Nil && a.ID == excludeID {
			continue
		}
		if domain.Overlaps(a.ScheduledAt, a.EndTime(), candidateStart, candidateEnd) {
			return true, nil
		}
	}
	return false, nil
}
