// Package scheduler regenerates the dashboard on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MomentumDashboard/internal/notifier"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"
)

// Job performs one run and returns its summary message.
type Job func(ctx context.Context) (string, error)

// Scheduler runs a Job on a cron schedule and on demand. Runs never overlap.
type Scheduler struct {
	Cron   *cron.Cron
	Job    Job
	Logger *log.Logger
	Ctx    context.Context

	running sync.Mutex
	mu      sync.Mutex
	last    string
	lastAt  time.Time
	lastErr error
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, job Job, logger *log.Logger) *Scheduler {
	cl := cronLogger{logger}
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		Job:    job,
		Logger: logger,
		Ctx:    ctx,
	}
}

// Register schedules the job.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RunNow() }); err != nil {
		return fmt.Errorf("register run task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info().Msg("scheduler stopped")
}

// Next returns the next scheduled run time, zero when nothing is scheduled.
func (s *Scheduler) Next() time.Time {
	entries := s.Cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow executes the job immediately. It returns false without running
// when a previous run is still in progress.
func (s *Scheduler) RunNow() bool {
	if !s.running.TryLock() {
		s.Logger.Warn().Msg("run already in progress, skipping")
		return false
	}
	defer s.running.Unlock()

	s.Logger.Info().Msg("running dashboard task")
	summary, err := s.Job(s.Ctx)

	s.mu.Lock()
	s.lastAt = time.Now()
	s.lastErr = err
	if err == nil {
		s.last = summary
	}
	s.mu.Unlock()

	if err != nil {
		s.Logger.Error().Err(err).Msg("dashboard task failed")
	}
	return true
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/run":
		go s.RunNow()
		return "Regenerating the report…"
	case "/status":
		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case s.lastAt.IsZero():
			return fmt.Sprintf("No run yet. Next run at %s.", s.Next().Format("2006-01-02 15:04"))
		case s.lastErr != nil:
			return notifier.FormatFailure(s.lastErr, s.lastAt)
		default:
			return s.last
		}
	default:
		return notifier.FormatHelp()
	}
}

// cronLogger adapts the process logger to cron.Logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Any("fields", keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Any("fields", keysAndValues).Msg("cron: " + msg)
}
