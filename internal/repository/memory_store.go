package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stemsi/sanmon-backend/internal/model"
)

// MemoryStore is an in-process Store used in tests and for local runs
// without PostgreSQL. Transactions hold the store lock for their whole duration
// and apply their writes only on success.
type MemoryStore struct {
	mu     sync.Mutex
	tables memTables
}

type memTables struct {
	classes   map[string]model.ClassRecord
	summaries map[time.Time]model.DailySummary
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: memTables{
		classes:   make(map[string]model.ClassRecord),
		summaries: make(map[time.Time]model.DailySummary),
	}}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.tables.clone()
	if err := fn(&memSession{t: &staged}); err != nil {
		return err
	}
	s.tables = staged
	return nil
}

func (s *MemoryStore) session() *memSession { return &memSession{t: &s.tables} }

func (s *MemoryStore) GetClass(ctx context.Context, name string) (*model.ClassRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().GetClass(ctx, name)
}

func (s *MemoryStore) CreateClass(ctx context.Context, c *model.ClassRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().CreateClass(ctx, c)
}

func (s *MemoryStore) UpsertClass(ctx context.Context, c *model.ClassRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().UpsertClass(ctx, c)
}

func (s *MemoryStore) ListClasses(ctx context.Context) ([]model.ClassRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().ListClasses(ctx)
}

func (s *MemoryStore) GetSummary(ctx context.Context, day time.Time) (*model.DailySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().GetSummary(ctx, day)
}

func (s *MemoryStore) UpsertSummaryCounts(ctx context.Context, day time.Time, counts model.SummaryCounts) (*model.DailySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().UpsertSummaryCounts(ctx, day, counts)
}

func (s *MemoryStore) MarkSummarySent(ctx context.Context, day time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().MarkSummarySent(ctx, day)
}

func (s *MemoryStore) ListSummaries(ctx context.Context, limit int) ([]model.DailySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().ListSummaries(ctx, limit)
}

// memSession operates on tables without locking; callers hold MemoryStore.mu.
type memSession struct {
	t *memTables
}

func (m *memSession) GetClass(_ context.Context, name string) (*model.ClassRecord, error) {
	c, ok := m.t.classes[name]
	if !ok {
		return nil, ErrNotFound
	}
	c = cloneClass(c)
	return &c, nil
}

func (m *memSession) CreateClass(_ context.Context, c *model.ClassRecord) error {
	if _, ok := m.t.classes[c.NameClass]; ok {
		return ErrDuplicate
	}
	m.t.classes[c.NameClass] = cloneClass(*c)
	return nil
}

func (m *memSession) UpsertClass(_ context.Context, c *model.ClassRecord) error {
	m.t.classes[c.NameClass] = cloneClass(*c)
	return nil
}

func (m *memSession) ListClasses(_ context.Context) ([]model.ClassRecord, error) {
	classes := make([]model.ClassRecord, 0, len(m.t.classes))
	for _, c := range m.t.classes {
		classes = append(classes, cloneClass(c))
	}
	sort.Slice(classes, func(i, j int) bool {
		return model.LessClassName(classes[i].NameClass, classes[j].NameClass)
	})
	return classes, nil
}

func (m *memSession) GetSummary(_ context.Context, day time.Time) (*model.DailySummary, error) {
	s, ok := m.t.summaries[model.Day(day)]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memSession) UpsertSummaryCounts(_ context.Context, day time.Time, counts model.SummaryCounts) (*model.DailySummary, error) {
	key := model.Day(day)
	s, ok := m.t.summaries[key]
	if !ok {
		s = model.DailySummary{DateSend: key}
	}
	s.SummaryCounts = counts
	m.t.summaries[key] = s
	return &s, nil
}

func (m *memSession) MarkSummarySent(_ context.Context, day time.Time) (bool, error) {
	key := model.Day(day)
	s, ok := m.t.summaries[key]
	if !ok || s.Sending {
		return false, nil
	}
	s.Sending = true
	m.t.summaries[key] = s
	return true, nil
}

func (m *memSession) ListSummaries(_ context.Context, limit int) ([]model.DailySummary, error) {
	summaries := make([]model.DailySummary, 0, len(m.t.summaries))
	for _, s := range m.t.summaries {
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].DateSend.After(summaries[j].DateSend)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (t memTables) clone() memTables {
	out := memTables{
		classes:   make(map[string]model.ClassRecord, len(t.classes)),
		summaries: make(map[time.Time]model.DailySummary, len(t.summaries)),
	}
	for k, v := range t.classes {
		out.classes[k] = cloneClass(v)
	}
	for k, v := range t.summaries {
		out.summaries[k] = v
	}
	return out
}

func cloneClass(c model.ClassRecord) model.ClassRecord {
	if c.DateOpen != nil {
		d := *c.DateOpen
		c.DateOpen = &d
	}
	if c.DateClosed != nil {
		d := *c.DateClosed
		c.DateClosed = &d
	}
	return c
}
