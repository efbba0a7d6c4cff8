package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reminder is the payload emitted for an upcoming confirmed appointment.
type Reminder struct {
	Subject         string
	Location        string
	MeetingLink     string
	StartsAt        time.Time
	DurationMinutes int
}

// Notifier delivers a reminder to one party. Failures are logged and skipped
// by the caller, never retried within the same sweep.
type Notifier interface {
	Emit(ctx context.Context, partyID string, appointmentID uuid.UUID, r Reminder) error
}

// SMTPNotifier delivers reminders over unauthenticated SMTP. The party id is
// expected to be a deliverable address.
type SMTPNotifier struct {
	addr string
	from string
}

func NewSMTPNotifier(addr, from string) *SMTPNotifier {
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@mentora.local"
	}
	return &SMTPNotifier{addr: strings.TrimSpace(addr), from: from}
}

func (n *SMTPNotifier) Emit(ctx context.Context, partyID string, appointmentID uuid.UUID, r Reminder) error {
	if !strings.Contains(partyID, "@") {
		return fmt.Errorf("party %q is not a deliverable address", partyID)
	}
	subject := fmt.Sprintf("Reminder: %s at %s", r.Subject, r.StartsAt.UTC().Format("Mon Jan 2 15:04 MST"))
	msg := buildMessage(n.from, partyID, subject, reminderBody(appointmentID, r))
	return smtp.SendMail(n.addr, nil, n.from, []string{partyID}, []byte(msg))
}

func reminderBody(appointmentID uuid.UUID, r Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your appointment %q starts at %s and runs for %d minutes.\n",
		r.Subject, r.StartsAt.UTC().Format(time.RFC1123), r.DurationMinutes)
	if r.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", r.Location)
	}
	if r.MeetingLink != "" {
		fmt.Fprintf(&b, "Join: %s\n", r.MeetingLink)
	}
	fmt.Fprintf(&b, "Reference: %s\n", appointmentID)
	return b.String()
}

func buildMessage(from, to, subject, body string) string {
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		subject,
		body,
	)
}

// LogNotifier records reminder events without delivering them. Used when no
// SMTP endpoint is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Emit(ctx context.Context, partyID string, appointmentID uuid.UUID, r Reminder) error {
	n.log.Info("reminder emitted",
		slog.String("party_id", partyID),
		slog.String("appointment_id", appointmentID.String()),
		slog.Time("starts_at", r.StartsAt),
	)
	return nil
}
