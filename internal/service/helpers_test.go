package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/config"
	"github.com/stemsi/sanmon-backend/internal/mailer"
	"github.com/stemsi/sanmon-backend/internal/model"
	"github.com/stemsi/sanmon-backend/internal/repository"
)

// 2026-10-14 is a Wednesday.
var testNow = time.Date(2026, 10, 14, 9, 55, 0, 0, time.UTC)

var errBoom = errors.New("boom")

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func newClassService(store repository.Store) *ClassService {
	return NewClassService(store, DefaultThresholdRule, time.UTC, zerolog.Nop()).WithClock(fixedClock(testNow))
}

func seedClass(store repository.Store, c model.ClassRecord) {
	if err := store.UpsertClass(context.Background(), &c); err != nil {
		panic(err)
	}
}

func testNotificationConfig() NotificationConfig {
	days, _ := config.ParseWeekdays("mon-fri")
	window, _ := config.ParseWindow("09:50-10:00")
	return NotificationConfig{
		School:       "Школа №1",
		From:         "school@example.org",
		To:           []string{"sector@example.org"},
		Window:       window,
		BusinessDays: days,
	}
}

// fakeMailer counts deliveries and fails while failures > 0.
// Each delivery takes delay; with entered set it signals and waits for release.
type fakeMailer struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failures int
	delay    time.Duration
	entered  chan struct{}
	release  chan struct{}
}

func (m *fakeMailer) SendPlainText(_ context.Context, msg mailer.Message) error {
	if m.entered != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	time.Sleep(m.delay)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("smtp: 421 service not available")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// brokenStore fails every transaction and summary read.
type brokenStore struct {
	*repository.MemoryStore
}

func (b brokenStore) WithTx(context.Context, func(repository.Session) error) error { return errBoom }

func (b brokenStore) GetSummary(context.Context, time.Time) (*model.DailySummary, error) {
	return nil, errBoom
}

func (b brokenStore) ListClasses(context.Context) ([]model.ClassRecord, error) { return nil, errBoom }
