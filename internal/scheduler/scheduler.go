package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

var ErrNonPositiveDelay = errors.New("delay must be positive")

// Scheduler runs deferred one-shot tasks (such as the login redirect after
// an expired session) and recurring cron tasks.
type Scheduler struct {
	s       gocron.Scheduler
	clock   clockwork.Clock
	pending sync.WaitGroup
}

type Option func(*options)

type options struct {
	clock clockwork.Clock
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func NewScheduler(timezone string, opts ...Option) (*Scheduler, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	location := time.UTC
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			slog.Error("Failed to load location, using UTC", "timezone", timezone, "error", err)
		} else {
			location = loc
		}
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(location),
		gocron.WithClock(o.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{s: s, clock: o.clock}, nil
}

func (s *Scheduler) Start() {
	s.s.Start()
}

func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}

// Schedule runs task once after delay. The returned cancel func is safe to
// call more than once and after the task has run.
func (s *Scheduler) Schedule(delay time.Duration, task func()) (func(), error) {
	if delay <= 0 {
		return nil, ErrNonPositiveDelay
	}

	s.pending.Add(1)
	var once sync.Once
	done := func() { once.Do(s.pending.Done) }

	job, err := s.s.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(s.clock.Now().Add(delay))),
		gocron.NewTask(func() {
			defer done()
			task()
		}),
		gocron.WithName("deferred"),
	)
	if err != nil {
		done()
		return nil, fmt.Errorf("failed to create deferred job: %w", err)
	}

	id := job.ID()
	return func() {
		if err := s.s.RemoveJob(id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
			slog.Warn("Failed to remove deferred job", "job_id", id, "error", err)
		}
		done()
	}, nil
}

// Every runs task on a standard five-field cron spec.
func (s *Scheduler) Every(spec, name string, task func()) error {
	_, err := s.s.NewJob(
		gocron.CronJob(spec, false),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", name, err)
	}
	return nil
}

// Wait blocks until every scheduled one-shot task has run or been
// cancelled, or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
