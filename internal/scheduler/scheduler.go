// Package scheduler fires the aggregation and notification jobs on their cron
// triggers and keeps each named job to one invocation at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/config"
	"github.com/stemsi/sanmon-backend/internal/lock"
	"github.com/stemsi/sanmon-backend/internal/model"
	"github.com/stemsi/sanmon-backend/internal/service"
)

// Job names, also used as lock names.
const (
	JobAggregate = "aggregate"
	JobNotify    = "notify"
	JobDaily     = "daily"
)

// State is the scheduler lifecycle state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

var (
	ErrRunning    = errors.New("scheduler: already running")
	ErrUnknownJob = errors.New("scheduler: unknown job")
	ErrBusy       = errors.New("scheduler: job already running")
)

// Aggregator recomputes the day's summary.
type Aggregator interface {
	RunAggregation(ctx context.Context, today time.Time) (*model.DailySummary, error)
}

// Notifier dispatches the day's report and flags missed days.
type Notifier interface {
	RunNotification(ctx context.Context, now time.Time) (service.NotificationResult, error)
	ReportMissed(ctx context.Context, now time.Time) (bool, error)
}

// Locker hands out cross-process leases for job names.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (*lock.Lease, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocker guards every job run with a lease from l.
func WithLocker(l Locker) Option {
	return func(s *Scheduler) { s.locker = l }
}

// WithClock replaces the time source handed to jobs.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

type jobSpec struct {
	spec         string
	lease        string // jobs sharing a lease never overlap
	businessDays bool
	run          func(ctx context.Context, now time.Time) error
}

// Scheduler owns the cron dispatcher and the three job triggers.
type Scheduler struct {
	cfg      config.ScheduleConfig
	loc      *time.Location
	agg      Aggregator
	notifier Notifier
	locker   Locker
	now      func() time.Time
	log      zerolog.Logger

	cron    *cron.Cron
	jobs    map[string]jobSpec
	entries map[string]cron.EntryID
	guards  map[string]*sync.Mutex

	mu    sync.Mutex
	state State
}

// New registers the aggregation, notification and daily triggers from cfg.
// The scheduler starts in StateStopped.
func New(cfg config.ScheduleConfig, loc *time.Location, agg Aggregator, notifier Notifier, log zerolog.Logger, opts ...Option) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		cfg:      cfg,
		loc:      loc,
		agg:      agg,
		notifier: notifier,
		now:      time.Now,
		log:      log.With().Str("component", "scheduler").Logger(),
		entries:  make(map[string]cron.EntryID),
		guards:   make(map[string]*sync.Mutex),
		state:    StateStopped,
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	// The daily job re-aggregates, so it shares the aggregation lease.
	s.jobs = map[string]jobSpec{
		JobAggregate: {spec: cfg.CronAggregate, lease: JobAggregate, businessDays: true, run: s.aggregate},
		JobNotify:    {spec: cfg.CronNotify, lease: JobNotify, businessDays: true, run: s.notify},
		JobDaily:     {spec: cfg.CronDaily, lease: JobAggregate, run: s.daily},
	}
	for name, j := range s.jobs {
		if _, ok := s.guards[j.lease]; !ok {
			s.guards[j.lease] = &sync.Mutex{}
		}
		id, err := s.cron.AddJob(j.spec, s.tick(name, j.businessDays))
		if err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", name, j.spec, err)
		}
		s.entries[name] = id
	}
	return s, nil
}

// Start begins dispatching triggers.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrRunning
	}

	s.cron.Start()
	s.state = StateRunning

	now := s.now().In(s.loc)
	for _, name := range []string{JobAggregate, JobNotify, JobDaily} {
		next, _ := s.NextRun(name, now)
		s.log.Info().Str("job", name).Str("spec", s.jobs[name].spec).Time("next", next).Msg("job scheduled")
	}
	return nil
}

// Stop cancels pending triggers and waits for running jobs to finish or ctx to end.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	done := s.cron.Stop()
	s.state = StateStopped
	s.mu.Unlock()

	select {
	case <-done.Done():
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

// State reports the lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NextRun reports when the named trigger fires after t. Business-day
// filtering happens at run time and is not reflected here.
func (s *Scheduler) NextRun(name string, t time.Time) (time.Time, bool) {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Schedule.Next(t.In(s.loc)), true
}

// RunJob runs the named job body once, now, under its lease.
// It does not apply the business-day filter. ErrBusy is returned when a
// job holding the same lease is running here or in another process.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.withLease(ctx, j.lease, func() error {
		return j.run(ctx, s.now().In(s.loc))
	})
}

// Aggregate recomputes today's summary under the aggregation lease.
func (s *Scheduler) Aggregate(ctx context.Context) (*model.DailySummary, error) {
	var summary *model.DailySummary
	err := s.withLease(ctx, JobAggregate, func() error {
		var err error
		summary, err = s.agg.RunAggregation(ctx, s.now().In(s.loc))
		return err
	})
	return summary, err
}

// Notify attempts today's dispatch under the notification lease.
func (s *Scheduler) Notify(ctx context.Context) (service.NotificationResult, error) {
	var res service.NotificationResult
	err := s.withLease(ctx, JobNotify, func() error {
		var err error
		res, err = s.notifier.RunNotification(ctx, s.now().In(s.loc))
		return err
	})
	return res, err
}

func (s *Scheduler) withLease(ctx context.Context, name string, fn func() error) error {
	guard := s.guards[name]
	if !guard.TryLock() {
		return fmt.Errorf("%w: %s", ErrBusy, name)
	}
	defer guard.Unlock()

	if s.locker != nil {
		lease, err := s.locker.Acquire(ctx, name, s.cfg.JobLockTTL)
		if errors.Is(err, lock.ErrNotAcquired) {
			return fmt.Errorf("%w: %w", ErrBusy, err)
		}
		if err != nil {
			return err
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn().Err(err).Str("lease", name).Msg("release job lock")
			}
		}()
	}
	return fn()
}

func (s *Scheduler) tick(name string, businessDays bool) cron.Job {
	return cron.FuncJob(func() {
		now := s.now().In(s.loc)
		log := s.log.With().Str("job", name).Str("date", model.Day(now).Format(time.DateOnly)).Logger()

		if businessDays && !s.cfg.BusinessDays.Contains(now.Weekday()) {
			log.Trace().Msg("not a business day, skipping")
			return
		}

		timeout := s.cfg.JobLockTTL
		if timeout <= 0 {
			timeout = time.Minute
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := s.RunJob(ctx, name)
		switch {
		case errors.Is(err, ErrBusy):
			log.Debug().Err(err).Msg("job already running, skipping")
		case err != nil:
			log.Error().Err(err).Msg("job failed")
		}
	})
}

func (s *Scheduler) aggregate(ctx context.Context, now time.Time) error {
	_, err := s.agg.RunAggregation(ctx, now)
	return err
}

func (s *Scheduler) notify(ctx context.Context, now time.Time) error {
	res, err := s.notifier.RunNotification(ctx, now)
	if err == nil && res.Outcome == service.OutcomeSkipped {
		s.log.Trace().Str("reason", res.Reason).Msg("notification skipped")
	}
	return err
}

func (s *Scheduler) daily(ctx context.Context, now time.Time) error {
	_, aggErr := s.agg.RunAggregation(ctx, now)
	_, missErr := s.notifier.ReportMissed(ctx, now)
	return errors.Join(aggErr, missErr)
}

// cronLogger routes robfig/cron logs into zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
