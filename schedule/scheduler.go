// Package schedule runs background jobs on cron expressions or fixed
// intervals. Specs use seconds precision and evaluate in UTC. A job
// still running when its next tick fires skips that tick.
package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Handler is the function executed for each job run.
type Handler func(ctx *JobContext) error

// JobContext carries the run-scoped dependencies into a handler. The
// embedded context is canceled when the scheduler stops.
type JobContext struct {
	context.Context

	// Logger is scoped to the job and the current run.
	Logger *slog.Logger

	// RunID correlates log lines emitted by a single run.
	RunID string

	// Job describes the schedule entry being executed.
	Job Job
}

// Job describes a registered schedule entry.
type Job struct {
	Name        string
	Spec        string
	Description string

	entryID cron.EntryID
}

// Status reports a job's scheduling state.
type Status struct {
	Name        string
	Spec        string
	Description string
	Next        time.Time
	Prev        time.Time
}

// Scheduler manages jobs on a robfig/cron backend.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]*Job

	base    context.Context
	cancel  context.CancelFunc
	running bool
}

// NewScheduler creates a stopped scheduler. A nil logger discards job
// logs.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		logger: logger,
		jobs:   make(map[string]*Job),
		base:   base,
		cancel: cancel,
	}
}

// Cron registers a job on a cron spec with seconds precision, for
// example "0 30 * * * *" or "0 0 12 * * MON-FRI".
func (s *Scheduler) Cron(spec, name string, handler Handler) error {
	return s.add(spec, name, "", handler)
}

// Every registers a job that runs on a fixed interval.
func (s *Scheduler) Every(interval time.Duration, name string, handler Handler) error {
	if interval <= 0 {
		return fmt.Errorf("schedule: job %q: interval must be positive", name)
	}
	return s.add("@every "+interval.String(), name, "", handler)
}

// CronWithDescription registers a described job on a cron spec.
func (s *Scheduler) CronWithDescription(spec, name, description string, handler Handler) error {
	return s.add(spec, name, description, handler)
}

func (s *Scheduler) add(spec, name, description string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("schedule: job %q: handler is nil", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("schedule: job %q already registered", name)
	}

	job := &Job{Name: name, Spec: spec, Description: description}
	jobLogger := s.logger.With("job", name)

	chain := cron.NewChain(cron.SkipIfStillRunning(cronLogger{l: jobLogger, level: slog.LevelWarn}))
	entryID, err := s.cron.AddJob(spec, chain.Then(cron.FuncJob(func() {
		s.run(job, jobLogger, handler)
	})))
	if err != nil {
		return fmt.Errorf("schedule: job %q: %w", name, err)
	}

	job.entryID = entryID
	s.jobs[name] = job

	s.logger.Info("job registered", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) run(job *Job, jobLogger *slog.Logger, handler Handler) {
	runID := uuid.NewString()
	logger := jobLogger.With("run_id", runID)

	jc := &JobContext{
		Context: s.base,
		Logger:  logger,
		RunID:   runID,
		Job:     *job,
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked",
				"spec", job.Spec,
				"panic", r,
				"duration", time.Since(start))
		}
	}()

	logger.Debug("job starting", "spec", job.Spec)
	if err := handler(jc); err != nil {
		logger.Error("job failed",
			"spec", job.Spec,
			"error", err,
			"duration", time.Since(start))
		return
	}
	logger.Info("job completed", "duration", time.Since(start))
}

// Remove unregisters a job. Removing an unknown name is an error.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("schedule: job %q not found", name)
	}

	s.cron.Remove(job.entryID)
	delete(s.jobs, name)
	s.logger.Info("job removed", "job", name)
	return nil
}

// Start begins dispatching jobs. Jobs may still be registered after
// Start.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	s.logger.Info("scheduler starting", "jobs", len(s.jobs))
	s.cron.Start()

	for name, job := range s.jobs {
		entry := s.cron.Entry(job.entryID)
		s.logger.Debug("job scheduled", "job", name, "next_run", entry.Next.Format(time.RFC3339))
	}
}

// Stop cancels job contexts, stops dispatching, and waits for in-flight
// runs to drain or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.cancel()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopping")
	s.cancel()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("schedule: drain interrupted: %w", ctx.Err())
	}
}

// Jobs returns the registered job names in sorted order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasJobs reports whether any jobs are registered.
func (s *Scheduler) HasJobs() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs) > 0
}

// Statuses reports the scheduling state of every job, sorted by name.
func (s *Scheduler) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]Status, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := s.cron.Entry(job.entryID)
		statuses = append(statuses, Status{
			Name:        job.Name,
			Spec:        job.Spec,
			Description: job.Description,
			Next:        entry.Next,
			Prev:        entry.Prev,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// cronLogger adapts slog to the cron.Logger interface. Info-level
// messages from the skip wrapper surface at the configured level.
type cronLogger struct {
	l     *slog.Logger
	level slog.Level
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Log(context.Background(), c.level, msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	c.l.Error(msg, args...)
}
