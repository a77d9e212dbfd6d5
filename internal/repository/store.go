package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stemsi/sanmon-backend/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert collides with an existing key.
	ErrDuplicate = errors.New("record already exists")
)

// Session is the set of reads and writes the monitoring core needs.
// A Session obtained inside Store.WithTx sees and writes one transaction.
type Session interface {
	GetClass(ctx context.Context, name string) (*model.ClassRecord, error)
	CreateClass(ctx context.Context, c *model.ClassRecord) error
	UpsertClass(ctx context.Context, c *model.ClassRecord) error
	ListClasses(ctx context.Context) ([]model.ClassRecord, error)

	GetSummary(ctx context.Context, day time.Time) (*model.DailySummary, error)
	UpsertSummaryCounts(ctx context.Context, day time.Time, counts model.SummaryCounts) (*model.DailySummary, error)
	MarkSummarySent(ctx context.Context, day time.Time) (bool, error)
	ListSummaries(ctx context.Context, limit int) ([]model.DailySummary, error)
}

// Store is a Session that can also open a unit of work.
// WithTx commits when fn returns nil and rolls back on any other exit.
type Store interface {
	Session
	WithTx(ctx context.Context, fn func(s Session) error) error
}

// DBTX is the query surface shared by pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a DBTX that can begin transactions.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
