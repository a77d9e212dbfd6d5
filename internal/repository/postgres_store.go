package repository

import (
	"context"
	"fmt"
)

type pgSession struct {
	*ClassRepository
	*SummaryRepository
}

// PostgresStore is the PostgreSQL-backed Store.
type PostgresStore struct {
	pgSession
	pool Pool
}

// NewPostgresStore creates a Store over a pgx pool.
func NewPostgresStore(pool Pool) *PostgresStore {
	return &PostgresStore{
		pgSession: pgSession{
			ClassRepository:   NewClassRepository(pool),
			SummaryRepository: NewSummaryRepository(pool),
		},
		pool: pool,
	}
}

// WithTx runs fn in a transaction. Single-row class reads inside fn lock the row.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Session) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	sess := pgSession{
		ClassRepository:   &ClassRepository{db: tx, lock: true},
		SummaryRepository: NewSummaryRepository(tx),
	}
	if err := fn(sess); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
