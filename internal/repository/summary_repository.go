package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/sanmon-backend/internal/model"
)

const summaryColumns = `date_send, count_all_ill, count_all, count_class_closed, count_ill_closed, count_all_closed, sending`

// SummaryRepository handles the one-row-per-day school aggregates.
type SummaryRepository struct {
	db DBTX
}

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(db DBTX) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// GetSummary retrieves the summary row for a day.
func (r *SummaryRepository) GetSummary(ctx context.Context, day time.Time) (*model.DailySummary, error) {
	s, err := scanSummary(r.db.QueryRow(ctx,
		`SELECT `+summaryColumns+` FROM daily_summaries WHERE date_send = $1`, model.Day(day)))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// UpsertSummaryCounts writes the day's counts, creating the row unsent if absent.
// An existing row keeps its sending flag.
func (r *SummaryRepository) UpsertSummaryCounts(ctx context.Context, day time.Time, counts model.SummaryCounts) (*model.DailySummary, error) {
	return scanSummary(r.db.QueryRow(ctx,
		`INSERT INTO daily_summaries (date_send, count_all_ill, count_all, count_class_closed, count_ill_closed, count_all_closed, sending)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		 ON CONFLICT (date_send) DO UPDATE SET
		     count_all_ill = EXCLUDED.count_all_ill,
		     count_all = EXCLUDED.count_all,
		     count_class_closed = EXCLUDED.count_class_closed,
		     count_ill_closed = EXCLUDED.count_ill_closed,
		     count_all_closed = EXCLUDED.count_all_closed,
		     updated_at = NOW()
		 RETURNING `+summaryColumns,
		model.Day(day), counts.CountAllIll, counts.CountAll, counts.CountClassClosed, counts.CountIllClosed, counts.CountAllClosed,
	))
}

// MarkSummarySent flips sending to true. It returns false when the row is
// missing or was already marked, so only one caller ever wins.
func (r *SummaryRepository) MarkSummarySent(ctx context.Context, day time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE daily_summaries SET sending = TRUE, sent_at = NOW(), updated_at = NOW()
		 WHERE date_send = $1 AND sending = FALSE`, model.Day(day))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListSummaries retrieves the most recent summaries, newest first.
func (r *SummaryRepository) ListSummaries(ctx context.Context, limit int) ([]model.DailySummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+summaryColumns+` FROM daily_summaries ORDER BY date_send DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.DailySummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	return summaries, rows.Err()
}

func scanSummary(row pgx.Row) (*model.DailySummary, error) {
	s := &model.DailySummary{}
	err := row.Scan(&s.DateSend, &s.CountAllIll, &s.CountAll, &s.CountClassClosed,
		&s.CountIllClosed, &s.CountAllClosed, &s.Sending)
	if err != nil {
		return nil, err
	}
	return s, nil
}
