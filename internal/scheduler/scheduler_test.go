package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/config"
	"github.com/stemsi/sanmon-backend/internal/lock"
	"github.com/stemsi/sanmon-backend/internal/model"
	"github.com/stemsi/sanmon-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-10-14 is a Wednesday.
var (
	wednesday = time.Date(2026, 10, 14, 9, 55, 0, 0, time.UTC)
	saturday  = time.Date(2026, 10, 17, 9, 55, 0, 0, time.UTC)
)

type fakeAggregator struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func (f *fakeAggregator) RunAggregation(_ context.Context, today time.Time) (*model.DailySummary, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	return &model.DailySummary{DateSend: model.Day(today)}, f.err
}

type fakeNotifier struct {
	mu      sync.Mutex
	sends   []time.Time
	missed  int
	started chan struct{}
	release chan struct{}
}

func (f *fakeNotifier) RunNotification(_ context.Context, now time.Time) (service.NotificationResult, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, now)
	return service.NotificationResult{Outcome: service.OutcomeSent, Date: model.Day(now)}, nil
}

func (f *fakeNotifier) ReportMissed(context.Context, time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missed++
	return true, nil
}

func (f *fakeNotifier) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func testConfig(t *testing.T) config.ScheduleConfig {
	t.Helper()
	days, err := config.ParseWeekdays("mon-fri")
	require.NoError(t, err)
	window, err := config.ParseWindow("09:50-10:00")
	require.NoError(t, err)
	return config.ScheduleConfig{
		BusinessDays:  days,
		NotifyWindow:  window,
		CronAggregate: "* 9-12 * * *",
		CronNotify:    "50-59 9 * * *",
		CronDaily:     "0 20 * * *",
		JobLockTTL:    time.Minute,
	}
}

func newTestScheduler(t *testing.T, agg Aggregator, n Notifier, opts ...Option) *Scheduler {
	t.Helper()
	s, err := New(testConfig(t), time.UTC, agg, n, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return s
}

func wrapped(s *Scheduler, name string) func() {
	return s.cron.Entry(s.entries[name]).WrappedJob.Run
}

func TestNewRejectsBadSpec(t *testing.T) {
	cfg := testConfig(t)
	cfg.CronNotify = "every minute"
	_, err := New(cfg, time.UTC, &fakeAggregator{}, &fakeNotifier{}, zerolog.Nop())
	assert.ErrorContains(t, err, "notify")
}

func TestNextRun(t *testing.T) {
	s := newTestScheduler(t, &fakeAggregator{}, &fakeNotifier{})
	at := func(d, h, m int) time.Time { return time.Date(2026, 10, d, h, m, 0, 0, time.UTC) }

	tests := []struct {
		job   string
		after time.Time
		want  time.Time
	}{
		{JobAggregate, at(14, 8, 30), at(14, 9, 0)},
		{JobAggregate, at(14, 9, 0), at(14, 9, 1)},
		{JobAggregate, at(14, 12, 59), at(15, 9, 0)},
		{JobNotify, at(14, 9, 0), at(14, 9, 50)},
		{JobNotify, at(14, 9, 50), at(14, 9, 51)},
		{JobNotify, at(14, 9, 59), at(15, 9, 50)},
		{JobDaily, at(14, 20, 0), at(15, 20, 0)},
	}
	for _, tt := range tests {
		got, ok := s.NextRun(tt.job, tt.after)
		require.True(t, ok)
		assert.Equal(t, tt.want, got, "%s after %s", tt.job, tt.after)
	}

	_, ok := s.NextRun("nope", wednesday)
	assert.False(t, ok)
}

func TestLifecycle(t *testing.T) {
	s := newTestScheduler(t, &fakeAggregator{}, &fakeNotifier{})
	assert.Equal(t, StateStopped, s.State())

	require.NoError(t, s.Start())
	assert.Equal(t, StateRunning, s.State())
	assert.ErrorIs(t, s.Start(), ErrRunning)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, StateStopped, s.State())
	require.NoError(t, s.Stop(ctx))

	require.NoError(t, s.Start())
	require.NoError(t, s.Stop(ctx))
}

func TestBusinessDayFilter(t *testing.T) {
	agg, n := &fakeAggregator{}, &fakeNotifier{}
	s := newTestScheduler(t, agg, n, WithClock(func() time.Time { return saturday }))

	wrapped(s, JobAggregate)()
	wrapped(s, JobNotify)()
	assert.Zero(t, agg.calls.Load())
	assert.Zero(t, n.sendCount())

	wrapped(s, JobDaily)()
	assert.EqualValues(t, 1, agg.calls.Load(), "daily re-aggregation runs every day")
	assert.Equal(t, 1, n.missed)
}

func TestJobsReceiveInjectedClock(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(t, &fakeAggregator{}, n, WithClock(func() time.Time { return wednesday }))

	wrapped(s, JobNotify)()
	require.Equal(t, 1, n.sendCount())
	assert.Equal(t, wednesday, n.sends[0])
}

func TestOverlappingTicksAreDropped(t *testing.T) {
	agg := &fakeAggregator{started: make(chan struct{}), release: make(chan struct{})}
	s := newTestScheduler(t, agg, &fakeNotifier{}, WithClock(func() time.Time { return wednesday }))
	run := wrapped(s, JobAggregate)

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	<-agg.started

	run() // returns at once: the first invocation still holds the job
	close(agg.release)
	<-done

	assert.EqualValues(t, 1, agg.calls.Load())
}

func TestJobFailureIsContained(t *testing.T) {
	agg := &fakeAggregator{err: errors.New("db down")}
	s := newTestScheduler(t, agg, &fakeNotifier{}, WithClock(func() time.Time { return wednesday }))

	assert.NotPanics(t, wrapped(s, JobAggregate))
	assert.ErrorContains(t, s.RunJob(context.Background(), JobAggregate), "db down")
}

func TestRunJobHonoursLock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	locker := lock.NewRedisLocker(rdb)

	n := &fakeNotifier{}
	s := newTestScheduler(t, &fakeAggregator{}, n, WithLocker(locker), WithClock(func() time.Time { return wednesday }))

	held, err := locker.Acquire(ctx, JobNotify, time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, s.RunJob(ctx, JobNotify), lock.ErrNotAcquired)
	assert.Zero(t, n.sendCount())

	require.NoError(t, held.Release(ctx))
	require.NoError(t, s.RunJob(ctx, JobNotify))
	assert.Equal(t, 1, n.sendCount())
	assert.False(t, mr.Exists("sanmon:job:notify"), "lease released after the run")

	assert.ErrorIs(t, s.RunJob(ctx, "reindex"), ErrUnknownJob)
}

func TestDailySharesAggregationLease(t *testing.T) {
	agg := &fakeAggregator{started: make(chan struct{}), release: make(chan struct{})}
	n := &fakeNotifier{}
	s := newTestScheduler(t, agg, n, WithClock(func() time.Time { return wednesday }))

	done := make(chan error, 1)
	go func() { done <- s.RunJob(context.Background(), JobAggregate) }()
	<-agg.started

	assert.ErrorIs(t, s.RunJob(context.Background(), JobDaily), ErrBusy)
	_, err := s.Aggregate(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Zero(t, n.missed)

	close(agg.release)
	require.NoError(t, <-done)
	assert.EqualValues(t, 1, agg.calls.Load())
}

func TestManualNotifyWaitsForScheduledRun(t *testing.T) {
	n := &fakeNotifier{started: make(chan struct{}), release: make(chan struct{})}
	s := newTestScheduler(t, &fakeAggregator{}, n, WithClock(func() time.Time { return wednesday }))

	done := make(chan struct{})
	go func() {
		wrapped(s, JobNotify)()
		close(done)
	}()
	<-n.started

	_, err := s.Notify(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(n.release)
	<-done
	assert.Equal(t, 1, n.sendCount())

	n.started = nil
	res, err := s.Notify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeSent, res.Outcome)
	assert.Equal(t, model.Day(wednesday), res.Date)
}

func TestManualNotifyHonoursRedisLease(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	locker := lock.NewRedisLocker(rdb)

	n := &fakeNotifier{}
	s := newTestScheduler(t, &fakeAggregator{}, n, WithLocker(locker), WithClock(func() time.Time { return wednesday }))

	// another replica holds the lease
	held, err := locker.Acquire(ctx, JobNotify, time.Minute)
	require.NoError(t, err)

	_, err = s.Notify(ctx)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Zero(t, n.sendCount())

	require.NoError(t, held.Release(ctx))
	_, err = s.Notify(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n.sendCount())
}
