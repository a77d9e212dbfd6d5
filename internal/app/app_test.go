package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/config"
	"github.com/stemsi/sanmon-backend/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	days, err := config.ParseWeekdays("mon-fri")
	require.NoError(t, err)
	window, err := config.ParseWindow("09:50-10:00")
	require.NoError(t, err)
	return &config.Config{
		StorageDriver:     "memory",
		SchoolName:        "Школа №1",
		Location:          time.UTC,
		CloseThreshold:    20,
		DefaultReopenDays: 7,
		Schedule: config.ScheduleConfig{
			BusinessDays:  days,
			NotifyWindow:  window,
			CronAggregate: "* 9-12 * * *",
			CronNotify:    "50-59 9 * * *",
			CronDaily:     "0 20 * * *",
			JobLockTTL:    time.Minute,
		},
		Mail: config.MailConfig{Driver: "console", Timeout: time.Second},
	}
}

func TestNewWithMemoryStoreAndRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Scheduler.RunJob(context.Background(), scheduler.JobAggregate))
	summaries, err := a.Aggregation.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
	assert.False(t, mr.Exists("sanmon:job:aggregate"))

	_, err = a.Notification.RunNotification(context.Background(), time.Date(2026, 10, 18, 9, 55, 0, 0, time.UTC))
	require.NoError(t, err)
}

func TestNewRejectsBadCron(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.CronDaily = "at 8pm"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	mr.Close()

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "ping redis")
}


func TestNewWarnsAboutConsoleMailOutsideDebug(t *testing.T) {
	tests := []struct {
		mode string
		warn bool
	}{
		{"debug", false},
		{"release", true},
		{"test", true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := testConfig(t)
			cfg.GinMode = tt.mode

			a, err := New(context.Background(), cfg, zerolog.New(&buf))
			require.NoError(t, err)
			defer a.Close()

			if tt.warn {
				assert.Contains(t, buf.String(), "MAIL_DRIVER=console outside debug mode")
			} else {
				assert.NotContains(t, buf.String(), "MAIL_DRIVER=console")
			}
		})
	}
}
