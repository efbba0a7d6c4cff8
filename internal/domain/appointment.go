package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusNoShow    AppointmentStatus = "NO_SHOW"
)

// BlockingStatuses lists the statuses that count toward conflict detection.
// Everything else is terminal or dormant and never blocks a time slot.
func BlockingStatuses() []AppointmentStatus {
	return []AppointmentStatus{StatusPending, StatusConfirmed}
}

// TerminalStatuses lists the statuses eligible for retention cleanup.
func TerminalStatuses() []AppointmentStatus {
	return []AppointmentStatus{StatusCompleted, StatusCancelled, StatusNoShow}
}

type RecurringPattern string

const (
	PatternWeekly   RecurringPattern = "WEEKLY"
	PatternBiweekly RecurringPattern = "BIWEEKLY"
	PatternMonthly  RecurringPattern = "MONTHLY"
)

// NotesSeparator joins append-only audit notes, newest last.
const NotesSeparator = " | "

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	RequesterID string    `bun:"requester_id,notnull"`
	ProviderID  string    `bun:"provider_id,notnull"`

	Subject     string `bun:"subject,notnull"`
	Description string `bun:"description"`
	Location    string `bun:"location"`
	CourseID    string `bun:"course_id"`
	MeetingLink string `bun:"meeting_link"`

	ScheduledAt     time.Time         `bun:"scheduled_at,notnull"`
	DurationMinutes int               `bun:"duration_minutes,notnull"`
	Status          AppointmentStatus `bun:"status,notnull"`

	IsRecurring         bool             `bun:"is_recurring,notnull"`
	RecurringPattern    RecurringPattern `bun:"recurring_pattern"`
	RecurringEndDate    *time.Time       `bun:"recurring_end_date"`
	ParentAppointmentID *uuid.UUID       `bun:"parent_appointment_id,type:uuid"`

	Notes          string    `bun:"notes"`
	BookedAt       time.Time `bun:"booked_at,notnull"`
	LastModifiedAt time.Time `bun:"last_modified_at,notnull"`
	LastModifiedBy string    `bun:"last_modified_by"`
}

// EndTime is the derived end of the booked slot: scheduled start plus duration.
func (a *Appointment) EndTime() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// IsSeriesRoot reports whether this appointment is the original recurring
// appointment that instances are generated from.
func (a *Appointment) IsSeriesRoot() bool {
	return a.IsRecurring && a.ParentAppointmentID == nil
}

// AppendNote adds an entry to the append-only notes log.
func (a *Appointment) AppendNote(note string) {
	if a.Notes == "" {
		a.Notes = note
		return
	}
	a.Notes = a.Notes + NotesSeparator + note
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.BookedAt.IsZero() {
			a.BookedAt = now
		}
		if a.LastModifiedAt.IsZero() {
			a.LastModifiedAt = now
		}
	}
	return nil
}
