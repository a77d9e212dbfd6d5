package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/model"
	"github.com/stemsi/sanmon-backend/internal/repository"
)

// DefaultHistoryDays is how many daily summaries History returns by default.
const DefaultHistoryDays = 30

// AggregationService rolls class records up into the day's school summary.
type AggregationService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewAggregationService creates a new AggregationService.
func NewAggregationService(store repository.Store, log zerolog.Logger) *AggregationService {
	return &AggregationService{
		store: store,
		log:   log.With().Str("component", "aggregation_service").Logger(),
	}
}

// Aggregate totals the given class records.
func Aggregate(classes []model.ClassRecord) model.SummaryCounts {
	var counts model.SummaryCounts
	for _, c := range classes {
		counts.Add(c)
	}
	return counts
}

// RunAggregation recomputes today's summary from all classes and upserts it.
// Repeated runs overwrite the counts and never touch the sending flag.
func (s *AggregationService) RunAggregation(ctx context.Context, today time.Time) (*model.DailySummary, error) {
	day := model.Day(today)

	var (
		summary   *model.DailySummary
		badCounts error
	)
	err := s.store.WithTx(ctx, func(tx repository.Session) error {
		classes, err := tx.ListClasses(ctx)
		if err != nil {
			return err
		}
		counts := Aggregate(classes)
		if badCounts = counts.Validate(); badCounts != nil {
			return badCounts
		}
		summary, err = tx.UpsertSummaryCounts(ctx, day, counts)
		return err
	})
	if badCounts != nil {
		// corrupt class rows, not an unavailable store
		return nil, fmt.Errorf("aggregate %s: %w", day.Format(time.DateOnly), badCounts)
	}
	if err != nil {
		return nil, storageError("run aggregation", err)
	}

	s.log.Debug().
		Str("date", day.Format(time.DateOnly)).
		Int("count_all_ill", summary.CountAllIll).
		Int("count_class_closed", summary.CountClassClosed).
		Msg("daily summary aggregated")
	return summary, nil
}

// History returns up to limit recent summaries, newest first.
func (s *AggregationService) History(ctx context.Context, limit int) ([]model.DailySummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryDays
	}
	summaries, err := s.store.ListSummaries(ctx, limit)
	if err != nil {
		return nil, storageError("list summaries", err)
	}
	return summaries, nil
}
