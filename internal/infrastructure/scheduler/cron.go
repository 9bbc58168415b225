package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"CaseCollector/internal/ports"
)

// CronScheduler triggers jobs on a standard five-field cron expression.
type CronScheduler struct {
	expr     string
	location *time.Location
	logger   *slog.Logger

	mu     sync.Mutex
	runner *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for expr evaluated in loc (UTC when nil).
func NewCronScheduler(expr string, loc *time.Location, log *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{expr: expr, location: loc, logger: log}
}

// Validate parses the cron expression without starting anything.
func (c *CronScheduler) Validate() error {
	if _, err := cron.ParseStandard(c.expr); err != nil {
		return fmt.Errorf("parse cron %q: %w", c.expr, err)
	}
	return nil
}

// Start registers job and begins ticking. Overlapping triggers are skipped while a job still runs.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner != nil {
		return nil
	}

	logger := cronLogger(c.logger)
	runner := cron.New(
		cron.WithLocation(c.location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := runner.AddFunc(c.expr, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("schedule %q: %w", c.expr, err)
	}
	runner.Start()
	c.runner = runner
	if c.logger != nil {
		c.logger.Info("scheduler started", "cron", c.expr, "timezone", c.location.String())
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the cron runner and waits for a running job or ctx, whichever comes first.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.runner
	c.runner = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	done := runner.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// slogCronLogger routes robfig/cron output (panics, skipped runs) into slog.
type slogCronLogger struct {
	logger *slog.Logger
}

func cronLogger(log *slog.Logger) cron.Logger {
	if log == nil {
		return cron.DiscardLogger
	}
	return slogCronLogger{logger: log}
}

// Info keeps the runner's bookkeeping at debug; only skipped runs surface.
func (l slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.logger.Info("cron run skipped, previous job still running", keysAndValues...)
		return
	}
	l.logger.Debug("cron "+msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
