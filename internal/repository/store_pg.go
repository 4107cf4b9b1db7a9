package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore runs units of work as SERIALIZABLE postgres transactions and
// retries the ones that lose a serialization conflict.
type PgStore struct {
	pool        *pgxpool.Pool
	outbox      OutboxRepository
	maxAttempts int
	logger      *slog.Logger
}

// NewPgStore creates a PgStore. maxAttempts below 1 is treated as 1.
func NewPgStore(pool *pgxpool.Pool, outbox OutboxRepository, maxAttempts int, logger *slog.Logger) *PgStore {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &PgStore{pool: pool, outbox: outbox, maxAttempts: maxAttempts, logger: logger}
}

func (s *PgStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	for attempt := 1; ; attempt++ {
		err := s.run(ctx, opts, fn)
		if err == nil || !isSerializationFailure(err) || attempt >= s.maxAttempts {
			return err
		}
		s.logger.Debug("retrying conflicting transaction", "attempt", attempt, "error", err)
	}
}

func (s *PgStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (s *PgStore) run(ctx context.Context, opts pgx.TxOptions, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx, outbox: s.outbox}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isSerializationFailure matches serialization_failure and deadlock_detected.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// pgTx implements Tx on top of a single pgx transaction.
type pgTx struct {
	tx     pgx.Tx
	outbox OutboxRepository
}

func (t *pgTx) AppendEvents(ctx context.Context, drafts ...domain.OutboxDraft) error {
	for _, d := range drafts {
		if err := t.outbox.Insert(ctx, t.tx, d); err != nil {
			return err
		}
	}
	return nil
}
