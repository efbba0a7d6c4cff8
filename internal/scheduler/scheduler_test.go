package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"mentora/internal/service/lifecycle"
)

type fakeOps struct {
	completeErr error
	completed   int
	cancelled   int
	purged      int
	reminded    int
	recurred    int
}

func (f *fakeOps) CompleteElapsed(ctx context.Context) (int, error) {
	f.completed++
	return 1, f.completeErr
}

func (f *fakeOps) CancelAbandoned(ctx context.Context) (int, error) {
	f.cancelled++
	return 0, nil
}

func (f *fakeOps) PurgeExpired(ctx context.Context) (int, error) {
	f.purged++
	return 0, nil
}

func (f *fakeOps) SendReminders(ctx context.Context) (int, error) {
	f.reminded++
	return 0, nil
}

func (f *fakeOps) ProcessRecurring(ctx context.Context) (int, error) {
	f.recurred++
	return 0, nil
}

func (f *fakeOps) SnapshotMetrics(ctx context.Context) (lifecycle.StatusSnapshot, error) {
	return lifecycle.StatusSnapshot{TakenAt: time.Now()}, nil
}

func (f *fakeOps) BuildWeeklyReport(ctx context.Context) (lifecycle.WeeklyReport, error) {
	return lifecycle.WeeklyReport{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_RegistersSevenSweeps(t *testing.T) {
	d, err := New(&fakeOps{}, Config{}, testLogger())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if got := len(d.c.Entries()); got != 7 {
		t.Fatalf("registered sweeps = %d, want 7", got)
	}
}

func TestNew_InvalidTimezone(t *testing.T) {
	_, err := New(&fakeOps{}, Config{Timezone: "Not/AZone"}, testLogger())
	if err == nil {
		t.Fatalf("expected error for invalid timezone")
	}
}

func TestRunOne_ErrorIsContained(t *testing.T) {
	ops := &fakeOps{completeErr: errors.New("store unavailable")}
	d, err := New(ops, Config{JobTimeout: time.Second}, testLogger())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	// A failing sweep is logged and swallowed; it must not panic or abort.
	d.runOne("completion", d.countedSweep("completion", "completed", d.ops.CompleteElapsed))
	if ops.completed != 1 {
		t.Fatalf("op invocations = %d, want 1", ops.completed)
	}
}

func TestRunOne_AppliesJobTimeout(t *testing.T) {
	d, err := New(&fakeOps{}, Config{JobTimeout: time.Minute}, testLogger())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	var deadlineSet bool
	d.runOne("probe", func(ctx context.Context) error {
		_, deadlineSet = ctx.Deadline()
		return nil
	})
	if !deadlineSet {
		t.Fatalf("sweep context should carry the configured timeout")
	}
}
