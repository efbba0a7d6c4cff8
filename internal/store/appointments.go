package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mentora/internal/domain"
)

// AppointmentStore is the query surface the lifecycle core consumes. Filter
// predicates (status, time bounds) are pushed into the store rather than
// applied in memory, so each sweep fetches exactly the records it may touch.
type AppointmentStore interface {
	// ListByPartyAndStatus returns appointments where the party participates
	// as requester or provider and the status is in the given set.
	ListByPartyAndStatus(ctx context.Context, partyID string, statuses []domain.AppointmentStatus) ([]domain.Appointment, error)

	// ListByStatusEndedBefore returns appointments in the given status whose
	// derived end time (scheduled start + duration) is at or before cutoff.
	ListByStatusEndedBefore(ctx context.Context, status domain.AppointmentStatus, cutoff time.Time) ([]domain.Appointment, error)

	// ListByStatusBookedBefore returns appointments in the given status
	// booked before cutoff.
	ListByStatusBookedBefore(ctx context.Context, status domain.AppointmentStatus, cutoff time.Time) ([]domain.Appointment, error)

	// ListByStatusStartingBetween returns appointments in the given status
	// scheduled to start within [windowStart, windowEnd), ordered by start.
	ListByStatusStartingBetween(ctx context.Context, status domain.AppointmentStatus, windowStart, windowEnd time.Time) ([]domain.Appointment, error)

	// ListTerminalScheduledBefore returns appointments in a terminal status
	// (completed, cancelled, no-show) scheduled before cutoff.
	ListTerminalScheduledBefore(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error)

	// ListInstances returns the materialized instances of a series root,
	// ordered by scheduled time ascending.
	ListInstances(ctx context.Context, rootID uuid.UUID) ([]domain.Appointment, error)

	// ListSeriesRoots returns all recurring appointments that are series
	// roots (is_recurring set, no parent).
	ListSeriesRoots(ctx context.Context) ([]domain.Appointment, error)

	// ListScheduledBetween returns all appointments scheduled to start within
	// [windowStart, windowEnd), regardless of status.
	ListScheduledBetween(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error)

	// CountByStatus returns the number of appointments per status.
	CountByStatus(ctx context.Context) (map[domain.AppointmentStatus]int, error)

	// Save upserts an appointment by id.
	Save(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)

	// DeleteBatch removes the given appointments and reports how many rows
	// were actually deleted.
	DeleteBatch(ctx context.Context, ids []uuid.UUID) (int, error)
}
