package postgresql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// WithTx returns a context that makes GetQuerier use tx.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// WithTransaction executes fn inside a database transaction. Repositories
// called with the context passed to fn join the transaction.
func WithTransaction(ctx context.Context, db *database.DB, fn func(ctx context.Context) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				slog.Error("rollback error during panic recovery", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback error: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetQuerier returns either transaction or pool
// Used in repositories to support both transactional and non-transactional operations
func GetQuerier(ctx context.Context, db *database.DB) database.Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db.Pool
}

type transactor struct {
	db *database.DB
}

// NewTransactor adapts WithTransaction to database.Transactor.
func NewTransactor(db *database.DB) database.Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTransaction(ctx, t.db, fn)
}

// advisoryLock serializes writers on key until the surrounding transaction ends.
// Outside a transaction the lock is released as soon as the statement ends.
func advisoryLock(ctx context.Context, db *database.DB, key string) error {
	q := GetQuerier(ctx, db)
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	return nil
}
