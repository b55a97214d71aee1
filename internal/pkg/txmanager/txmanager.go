// Package txmanager provides the atomic unit every top-level catalog
// operation runs in. The transaction travels through the context so
// repositories stay unaware of whether they run inside a unit or not.
package txmanager

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Manager runs a function inside one atomic unit of work. If fn returns an
// error the unit is rolled back; otherwise it is committed.
type Manager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

type sqlxManager struct {
	db *sqlx.DB
}

func NewManager(db *sqlx.DB) Manager {
	return &sqlxManager{db: db}
}

func (m *sqlxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested units join the outer transaction.
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// Querier is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx that the
// repositories use.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// FromContext returns the transaction bound to ctx, or db when the call runs
// outside a unit.
func FromContext(ctx context.Context, db *sqlx.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}
