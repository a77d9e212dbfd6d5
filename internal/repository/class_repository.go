package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/sanmon-backend/internal/model"
)

const classColumns = `name_class, man_class, count_class, count_ill, proc_ill, closed, date, date_open, date_closed`

// ClassRepository handles class illness records.
type ClassRepository struct {
	db DBTX
	// lock adds FOR UPDATE to single-row reads; only set inside a transaction.
	lock bool
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(db DBTX) *ClassRepository {
	return &ClassRepository{db: db}
}

// GetClass retrieves a class by its name.
func (r *ClassRepository) GetClass(ctx context.Context, name string) (*model.ClassRecord, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE name_class = $1`
	if r.lock {
		query += ` FOR UPDATE`
	}
	c, err := scanClass(r.db.QueryRow(ctx, query, name))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// CreateClass inserts a new class. Returns ErrDuplicate if the name is taken.
func (r *ClassRepository) CreateClass(ctx context.Context, c *model.ClassRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO classes (`+classColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.NameClass, c.ManClass, c.CountClass, c.CountIll, c.ProcIll, c.Closed, c.Date, c.DateOpen, c.DateClosed,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// UpsertClass inserts a class or overwrites the existing row with the same name.
func (r *ClassRepository) UpsertClass(ctx context.Context, c *model.ClassRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO classes (`+classColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (name_class) DO UPDATE SET
		     man_class = EXCLUDED.man_class,
		     count_class = EXCLUDED.count_class,
		     count_ill = EXCLUDED.count_ill,
		     proc_ill = EXCLUDED.proc_ill,
		     closed = EXCLUDED.closed,
		     date = EXCLUDED.date,
		     date_open = EXCLUDED.date_open,
		     date_closed = EXCLUDED.date_closed,
		     updated_at = NOW()`,
		c.NameClass, c.ManClass, c.CountClass, c.CountIll, c.ProcIll, c.Closed, c.Date, c.DateOpen, c.DateClosed,
	)
	return err
}

// ListClasses retrieves all classes, short names first.
func (r *ClassRepository) ListClasses(ctx context.Context) ([]model.ClassRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+classColumns+` FROM classes ORDER BY char_length(name_class), name_class`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []model.ClassRecord
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

func scanClass(row pgx.Row) (*model.ClassRecord, error) {
	c := &model.ClassRecord{}
	err := row.Scan(&c.NameClass, &c.ManClass, &c.CountClass, &c.CountIll, &c.ProcIll,
		&c.Closed, &c.Date, &c.DateOpen, &c.DateClosed)
	if err != nil {
		return nil, err
	}
	return c, nil
}
