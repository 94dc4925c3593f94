package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

const singletonKey = 1

// Singleton stores exactly one row of T in a table keyed by id = 1
type Singleton[T any] struct {
	db      *DB
	sb      squirrel.StatementBuilderType
	table   string
	columns []string
	values  func(T) []any
	scan    func(rowScanner) (T, error)
}

// NewSingleton binds T to table. values must return one value per column, in order.
func NewSingleton[T any](db *DB, table string, columns []string, values func(T) []any, scan func(rowScanner) (T, error)) *Singleton[T] {
	return &Singleton[T]{
		db:      db,
		sb:      newStatementBuilder(),
		table:   table,
		columns: columns,
		values:  values,
		scan:    scan,
	}
}

// Get returns the stored value. found is false when nothing was ever written.
func (s *Singleton[T]) Get(ctx context.Context) (value T, found bool, err error) {
	query, args, err := s.sb.Select(s.columns...).
		From(s.table).
		Where(squirrel.Eq{"id": singletonKey}).
		ToSql()
	if err != nil {
		return value, false, fmt.Errorf("failed to build %s query: %w", s.table, err)
	}

	value, err = s.scan(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var zero T
			return zero, false, nil
		}
		return value, false, fmt.Errorf("failed to get %s: %w", s.table, err)
	}

	return value, true, nil
}

// Upsert replaces the stored value
func (s *Singleton[T]) Upsert(ctx context.Context, value T) error {
	set := make([]string, len(s.columns))
	for i, c := range s.columns {
		set[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}

	query, args, err := s.sb.Insert(s.table).
		Columns(append([]string{"id"}, s.columns...)...).
		Values(append([]any{singletonKey}, s.values(value)...)...).
		Suffix("ON CONFLICT(id) DO UPDATE SET " + strings.Join(set, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s upsert: %w", s.table, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.table, err)
	}

	return nil
}
