package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"mentora/internal/service/lifecycle"
)

// Fixed cadences for the seven maintenance operations. Interval-triggered
// sweeps use @every specs; calendar-triggered ones run at a fixed time of day
// in the scheduler timezone.
const (
	specCompletion   = "@every 1h"
	specRetention    = "30 2 * * *"
	specReminders    = "@every 6h"
	specRecurrence   = "30 3 * * *"
	specMetrics      = "@every 30m"
	specAbandonment  = "0 3 * * *"
	specWeeklyReport = "0 6 * * 1"
)

type Config struct {
	Timezone   string
	JobTimeout time.Duration
}

// Operations is the lifecycle surface the driver invokes on its ticks.
type Operations interface {
	CompleteElapsed(ctx context.Context) (int, error)
	CancelAbandoned(ctx context.Context) (int, error)
	PurgeExpired(ctx context.Context) (int, error)
	SendReminders(ctx context.Context) (int, error)
	ProcessRecurring(ctx context.Context) (int, error)
	SnapshotMetrics(ctx context.Context) (lifecycle.StatusSnapshot, error)
	BuildWeeklyReport(ctx context.Context) (lifecycle.WeeklyReport, error)
}

// Driver owns the cron triggers for the lifecycle sweeps. Each sweep is
// isolated: a panic or error in one never blocks another, and a sweep still
// running when its next tick fires is skipped rather than overlapped.
type Driver struct {
	log *slog.Logger
	cfg Config
	ops Operations
	c   *cron.Cron
}

func New(ops Operations, cfg Config, log *slog.Logger) (*Driver, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	cl := &cronLogger{log: log}
	d := &Driver{
		log: log,
		cfg: cfg,
		ops: ops,
		c: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if err := d.register(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) register() error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"completion", specCompletion, d.countedSweep("completion", "completed", d.ops.CompleteElapsed)},
		{"retention", specRetention, d.countedSweep("retention", "deleted", d.ops.PurgeExpired)},
		{"reminders", specReminders, d.countedSweep("reminders", "sent", d.ops.SendReminders)},
		{"recurrence", specRecurrence, d.countedSweep("recurrence", "created", d.ops.ProcessRecurring)},
		{"metrics", specMetrics, d.runMetrics},
		{"abandonment", specAbandonment, d.countedSweep("abandonment", "cancelled", d.ops.CancelAbandoned)},
		{"weekly_report", specWeeklyReport, d.runWeeklyReport},
	}
	for _, j := range jobs {
		name, run := j.name, j.run
		if _, err := d.c.AddFunc(j.spec, func() { d.runOne(name, run) }); err != nil {
			return fmt.Errorf("register %s sweep: %w", j.name, err)
		}
	}
	return nil
}

// Start begins ticking. It returns immediately; sweeps run on the cron's own
// goroutine pool.
func (d *Driver) Start() {
	d.c.Start()
	d.log.Info("scheduler started",
		slog.Int("sweeps", len(d.c.Entries())),
		slog.String("tz", d.c.Location().String()))
}

// Stop halts trigger delivery and waits for in-flight sweeps to drain, up to
// the context deadline.
func (d *Driver) Stop(ctx context.Context) error {
	stopCtx := d.c.Stop()
	select {
	case <-stopCtx.Done():
		d.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		d.log.Warn("scheduler stop timed out with sweeps in flight")
		return ctx.Err()
	}
}

// runOne executes a single sweep with a bounded context. Errors are surfaced
// as log events only; nothing here may take down the process.
func (d *Driver) runOne(name string, run func(ctx context.Context) error) {
	ctx := context.Background()
	if d.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := run(ctx); err != nil {
		d.log.Error("sweep failed",
			slog.String("sweep", name),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("err", err))
		return
	}
	d.log.Debug("sweep finished",
		slog.String("sweep", name),
		slog.Duration("elapsed", time.Since(start)))
}

func (d *Driver) countedSweep(name, verb string, op func(ctx context.Context) (int, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		n, err := op(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			d.log.Info("sweep applied changes", slog.String("sweep", name), slog.Int(verb, n))
		}
		return nil
	}
}

func (d *Driver) runMetrics(ctx context.Context) error {
	snap, err := d.ops.SnapshotMetrics(ctx)
	if err != nil {
		return err
	}
	attrs := []any{slog.Time("taken_at", snap.TakenAt), slog.Int("total", snap.Total)}
	for status, n := range snap.Counts {
		attrs = append(attrs, slog.Int(string(status), n))
	}
	d.log.Info("appointment metrics", attrs...)
	return nil
}

func (d *Driver) runWeeklyReport(ctx context.Context) error {
	report, err := d.ops.BuildWeeklyReport(ctx)
	if err != nil {
		return err
	}
	d.log.Info("weekly appointment report",
		slog.Time("from", report.From),
		slog.Time("to", report.To),
		slog.Int("total", report.Total),
		slog.Int("completed", report.Completed),
		slog.Int("cancelled", report.Cancelled),
		slog.Float64("completion_rate", report.CompletionRate),
		slog.Float64("cancellation_rate", report.CancellationRate))
	return nil
}

// cronLogger adapts slog to cron's key-value logger interface.
type cronLogger struct {
	log *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, kvAttrs(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(kvAttrs(keysAndValues), slog.Any("err", err))...)
}

func kvAttrs(keysAndValues []interface{}) []any {
	attrs := make([]any, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		attrs = append(attrs, slog.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return attrs
}
