// Package scheduler runs named jobs at a weekly wall-clock time.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Weekly firing time. Weekday 0 is Monday and 6 is Sunday
type Spec struct {
	Weekday int
	Hour    int
	Minute  int
}

func (spec Spec) weekday() time.Weekday {
	return time.Weekday((spec.Weekday + 1) % 7)
}

func (spec Spec) definition() gocron.JobDefinition {
	return gocron.WeeklyJob(
		1,
		gocron.NewWeekdays(spec.weekday()),
		gocron.NewAtTimes(gocron.NewAtTime(uint(spec.Hour), uint(spec.Minute), 0)),
	)
}

type Job func(ctx context.Context)

// Scheduler keeps at most one job per name. Jobs only fire once the
// scheduler is started
type Scheduler struct {
	mu       sync.Mutex
	cron     gocron.Scheduler
	location *time.Location

	// Context handed to jobs, the one given to Start
	ctxMu sync.Mutex
	ctx   context.Context

	stopOnce sync.Once
	stopErr  error
}

func New(clk clockwork.Clock, location *time.Location) (*Scheduler, error) {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if location == nil {
		location = time.UTC
	}
	cron, err := gocron.NewScheduler(
		gocron.WithClock(clk),
		gocron.WithLocation(location),
		gocron.WithLogger(cronLogger{}),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create scheduler: %w", err)
	}
	return &Scheduler{cron: cron, location: location, ctx: context.Background()}, nil
}

// Register a job under name, replacing any job with the same name
func (s *Scheduler) Add(name string, spec Spec, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.RemoveByTags(name)
	_, err := s.cron.NewJob(
		spec.definition(),
		gocron.NewTask(s.task(name, job)),
		gocron.WithName(name),
		gocron.WithTags(name),
	)
	if err != nil {
		return fmt.Errorf("could not schedule job %s: %w", name, err)
	}
	log.Debug().Msg(fmt.Sprintf("Job %s scheduled weekly on %s at %02d:%02d", name, spec.weekday(), spec.Hour, spec.Minute))
	return nil
}

// Remove the job registered under name. Removing an unknown job is fine
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(name) == nil {
		return false
	}
	s.cron.RemoveByTags(name)
	return true
}

// Names of the registered jobs, sorted
func (s *Scheduler) Jobs() []string {
	names := []string{}
	for _, job := range s.cron.Jobs() {
		names = append(names, job.Name())
	}
	slices.Sort(names)
	return names
}

// Next firing time of a job, known once the scheduler is started
func (s *Scheduler) Next(name string) (time.Time, bool) {
	job := s.find(name)
	if job == nil {
		return time.Time{}, false
	}
	next, err := job.NextRun()
	if err != nil || next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

func (s *Scheduler) Location() *time.Location {
	return s.location
}

// Start firing jobs, which receive ctx
func (s *Scheduler) Start(ctx context.Context) {
	s.ctxMu.Lock()
	s.ctx = ctx
	s.ctxMu.Unlock()
	s.cron.Start()
	log.Info().Msg("Scheduler started")
}

// Stop firing jobs and wait for the running ones. Later calls return the
// result of the first
func (s *Scheduler) Shutdown() error {
	s.stopOnce.Do(func() {
		if err := s.cron.Shutdown(); err != nil {
			s.stopErr = fmt.Errorf("could not stop scheduler: %w", err)
			return
		}
		log.Info().Msg("Scheduler stopped")
	})
	return s.stopErr
}

// Run fires jobs until the context is done
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	return s.Shutdown()
}

func (s *Scheduler) find(name string) gocron.Job {
	for _, job := range s.cron.Jobs() {
		if job.Name() == name {
			return job
		}
	}
	return nil
}

func (s *Scheduler) task(name string, job Job) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Msg(fmt.Sprintf("Job %s panicked: %v", name, r))
			}
		}()
		s.ctxMu.Lock()
		ctx := s.ctx
		s.ctxMu.Unlock()

		log.Info().Msg(fmt.Sprintf("Running job %s", name))
		job(ctx)
	}
}

// Routes the scheduler's own messages to the global logger
type cronLogger struct{}

func (cronLogger) Debug(msg string, args ...any) { log.Debug().Fields(args).Msg(msg) }
func (cronLogger) Info(msg string, args ...any)  { log.Debug().Fields(args).Msg(msg) }
func (cronLogger) Warn(msg string, args ...any)  { log.Warn().Fields(args).Msg(msg) }
func (cronLogger) Error(msg string, args ...any) { log.Error().Fields(args).Msg(msg) }
