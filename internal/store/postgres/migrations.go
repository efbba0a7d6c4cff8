package postgres

import (
	"context"

	"github.com/uptrace/bun"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS appointments (
		id uuid PRIMARY KEY,
		requester_id text NOT NULL,
		provider_id text NOT NULL,
		subject text NOT NULL,
		description text NOT NULL DEFAULT '',
		location text NOT NULL DEFAULT '',
		course_id text NOT NULL DEFAULT '',
		meeting_link text NOT NULL DEFAULT '',
		scheduled_at timestamptz NOT NULL,
		duration_minutes integer NOT NULL,
		status text NOT NULL,
		is_recurring boolean NOT NULL DEFAULT false,
		recurring_pattern text NOT NULL DEFAULT '',
		recurring_end_date timestamptz,
		parent_appointment_id uuid,
		notes text NOT NULL DEFAULT '',
		booked_at timestamptz NOT NULL,
		last_modified_at timestamptz NOT NULL,
		last_modified_by text NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS appointments_status_scheduled_at_idx
		ON appointments (status, scheduled_at)`,
	`CREATE INDEX IF NOT EXISTS appointments_status_booked_at_idx
		ON appointments (status, booked_at)`,
	`CREATE INDEX IF NOT EXISTS appointments_requester_status_idx
		ON appointments (requester_id, status)`,
	`CREATE INDEX IF NOT EXISTS appointments_provider_status_idx
		ON appointments (provider_id, status)`,
	`CREATE INDEX IF NOT EXISTS appointments_parent_idx
		ON appointments (parent_appointment_id)
		WHERE parent_appointment_id IS NOT NULL`,
}

// Migrate applies the idempotent schema DDL. Safe to run at every startup.
func Migrate(ctx context.Context, db bun.IDB) error {
	for _, stmt := range migrations {
		if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
