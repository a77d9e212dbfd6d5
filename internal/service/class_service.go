package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/model"
	"github.com/stemsi/sanmon-backend/internal/repository"
)

// ClassService handles class registration, illness reports and closures.
type ClassService struct {
	store repository.Store
	rule  ThresholdRule
	loc   *time.Location
	now   func() time.Time
	log   zerolog.Logger
}

// NewClassService creates a new ClassService. Dates are taken in loc.
func NewClassService(store repository.Store, rule ThresholdRule, loc *time.Location, log zerolog.Logger) *ClassService {
	if loc == nil {
		loc = time.Local
	}
	return &ClassService{
		store: store,
		rule:  rule,
		loc:   loc,
		now:   time.Now,
		log:   log.With().Str("component", "class_service").Logger(),
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *ClassService) WithClock(now func() time.Time) *ClassService {
	s.now = now
	return s
}

func (s *ClassService) today() time.Time {
	return model.Day(s.now().In(s.loc))
}

// RegisterClass adds a class with zeroed counts. Fails with ErrConflict if the name exists.
func (s *ClassService) RegisterClass(ctx context.Context, roster model.ClassRoster) (*model.ClassRecord, error) {
	if err := invalid(roster.Validate()); err != nil {
		return nil, err
	}

	c := &model.ClassRecord{
		NameClass:  roster.NameClass,
		ManClass:   roster.ManClass,
		CountClass: roster.CountClass,
		Date:       s.today(),
	}
	if err := s.store.CreateClass(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, storageError("create class", err)
	}

	s.log.Info().Str("class", c.NameClass).Int("count_class", c.CountClass).Msg("class registered")
	return c, nil
}

// ApplyReport records a class's illness count and applies the closure rule.
// The read and write happen in one transaction with the class row locked.
func (s *ClassService) ApplyReport(ctx context.Context, report model.ClassReport) (*model.ClassRecord, error) {
	if err := invalid(report.Validate()); err != nil {
		return nil, err
	}

	today := s.today()
	var updated model.ClassRecord
	err := s.store.WithTx(ctx, func(tx repository.Session) error {
		cur, err := tx.GetClass(ctx, report.NameClass)
		if err != nil {
			return err
		}
		updated = s.rule.Apply(*cur, report, today)
		return tx.UpsertClass(ctx, &updated)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("apply report", err)
	}

	if updated.CountIll > updated.CountClass {
		// Accepted as reported; the roster may be stale.
		s.log.Warn().
			Str("class", updated.NameClass).
			Int("count_ill", updated.CountIll).
			Int("count_class", updated.CountClass).
			Msg("reported ill count exceeds roster size")
	}

	s.log.Info().
		Str("class", updated.NameClass).
		Int("count_ill", updated.CountIll).
		Int("proc_ill", updated.ProcIll).
		Bool("closed", updated.Closed).
		Msg("class report applied")
	return &updated, nil
}

// UpdateRoster changes a class's contact and roster size and recomputes its percentage.
// The closure state is left as it is.
func (s *ClassService) UpdateRoster(ctx context.Context, roster model.ClassRoster) (*model.ClassRecord, error) {
	if err := invalid(roster.Validate()); err != nil {
		return nil, err
	}

	var updated model.ClassRecord
	err := s.store.WithTx(ctx, func(tx repository.Session) error {
		cur, err := tx.GetClass(ctx, roster.NameClass)
		if err != nil {
			return err
		}
		updated = *cur
		updated.ManClass = roster.ManClass
		updated.CountClass = roster.CountClass
		updated.ProcIll = ProcIll(updated.CountIll, updated.CountClass)
		return tx.UpsertClass(ctx, &updated)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("update roster", err)
	}
	return &updated, nil
}

// SetClosure closes or reopens a class by hand, bypassing the threshold rule.
func (s *ClassService) SetClosure(ctx context.Context, closure model.ClassClosure) (*model.ClassRecord, error) {
	if err := invalid(closure.Validate()); err != nil {
		return nil, err
	}

	var updated model.ClassRecord
	err := s.store.WithTx(ctx, func(tx repository.Session) error {
		cur, err := tx.GetClass(ctx, closure.NameClass)
		if err != nil {
			return err
		}
		updated = *cur
		if closure.Closed {
			updated.Close(*closure.DateClosed, *closure.DateOpen)
		} else {
			updated.Open()
		}
		return tx.UpsertClass(ctx, &updated)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("set closure", err)
	}

	s.log.Info().Str("class", updated.NameClass).Bool("closed", updated.Closed).Msg("class closure set manually")
	return &updated, nil
}

// ListClasses retrieves all classes.
func (s *ClassService) ListClasses(ctx context.Context) ([]model.ClassRecord, error) {
	classes, err := s.store.ListClasses(ctx)
	if err != nil {
		return nil, storageError("list classes", err)
	}
	return classes, nil
}

// Overview is the school-wide picture shown on the monitoring page.
type Overview struct {
	Date        time.Time           `json:"date"`
	CountAllIll int                 `json:"count_all_ill"`
	CountAll    int                 `json:"count_all"`
	ProcAll     int                 `json:"proc_all"`
	ReportSent  bool                `json:"report_sent"`
	Classes     []model.ClassRecord `json:"classes"`
}

// Overview summarizes the current class records and whether today's report went out.
func (s *ClassService) Overview(ctx context.Context) (*Overview, error) {
	classes, err := s.ListClasses(ctx)
	if err != nil {
		return nil, err
	}

	o := &Overview{Date: s.today(), Classes: classes}
	for _, c := range classes {
		o.CountAllIll += c.CountIll
		o.CountAll += c.CountClass
	}
	o.ProcAll = ProcIll(o.CountAllIll, o.CountAll)

	summary, err := s.store.GetSummary(ctx, o.Date)
	switch {
	case err == nil:
		o.ReportSent = summary.Sending
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storageError("get summary", err)
	}
	return o, nil
}
