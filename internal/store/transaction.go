// Package store provides abstractions and implementations for data persistence
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Fraanv1/TPI-Programacion-II/internal/platform/logger"
)

// txState tracks where a Coordinator is in its lifecycle. Exactly one of
// commit or rollback ever reaches the backing store.
type txState int

const (
	txUnstarted txState = iota
	txActive
	txCommitted
	txRolledBack
	txClosed
)

// Coordinator owns one database connection for the duration of a unit of
// work. Begin starts the transaction (suspending the connection's ambient
// auto-commit until the outcome is decided), Commit and Rollback settle it,
// and Close releases the connection on every path. A Coordinator that is
// still active when Close runs is rolled back, so a forgotten commit always
// degrades safely to rollback.
//
// The usual shape is:
//
//	co, err := store.NewCoordinator(ctx, db, logger)
//	if err != nil { ... }
//	defer co.Close()
//	if err := co.Begin(ctx); err != nil { ... }
//	// participating store calls via co.Tx()
//	return co.Commit()
type Coordinator struct {
	conn   *sql.Conn
	tx     *sql.Tx
	state  txState
	logger *slog.Logger
}

// NewCoordinator acquires a dedicated connection from db. Returns
// ErrConnection if the handle is nil or the pool cannot supply a connection.
func NewCoordinator(ctx context.Context, db *sql.DB, log *slog.Logger) (*Coordinator, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil database handle", ErrConnection)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{conn: conn, state: txUnstarted, logger: log}, nil
}

// Begin moves the coordinator from unstarted to active. Fails with
// ErrTransactionState if a transaction was already started or the
// coordinator has been closed, and ErrConnection if the connection is gone.
func (c *Coordinator) Begin(ctx context.Context) error {
	if c.state != txUnstarted {
		return fmt.Errorf("%w: transaction already started or finished", ErrTransactionState)
	}
	if c.conn == nil {
		return fmt.Errorf("%w: no connection held", ErrConnection)
	}
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	c.tx = tx
	c.state = txActive
	return nil
}

// Tx exposes the active transaction for participating store variants.
// It is nil outside the active state.
func (c *Coordinator) Tx() *sql.Tx {
	if c.state != txActive {
		return nil
	}
	return c.tx
}

// Active reports whether a transaction is in flight.
func (c *Coordinator) Active() bool {
	return c.state == txActive
}

// Commit settles the unit of work. Fails with ErrTransactionState when no
// transaction is active. A commit the driver rejects leaves the coordinator
// settled (the driver has already discarded the transaction).
func (c *Coordinator) Commit() error {
	if c.state != txActive {
		return fmt.Errorf("%w: commit requires an active transaction", ErrTransactionState)
	}
	if err := c.tx.Commit(); err != nil {
		c.state = txRolledBack
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	c.state = txCommitted
	return nil
}

// Rollback discards the unit of work. It is a no-op outside the active
// state and best-effort inside it: a rollback failure is logged, never
// returned, so it cannot mask the error that triggered it.
func (c *Coordinator) Rollback() {
	if c.state != txActive {
		return
	}
	if err := c.tx.Rollback(); err != nil {
		c.logger.Error("failed to roll back transaction",
			slog.String("error", err.Error()))
	}
	c.state = txRolledBack
}

// Close tears the scope down: rolls back if still active, then releases the
// connection. Safe to call more than once and on every exit path, which is
// why callers defer it right after construction.
func (c *Coordinator) Close() {
	if c.state == txClosed {
		return
	}
	if c.state == txActive {
		c.Rollback()
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("failed to release connection",
				slog.String("error", err.Error()))
		}
		c.conn = nil
	}
	c.state = txClosed
}

// TxFn is a function that executes within a database transaction.
// The transaction is committed if the function returns nil, or rolled back
// if it returns an error or panics.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction executes fn inside a Coordinator scope: one dedicated
// connection, begin, fn, then commit on success or rollback on failure.
// The deferred Close guarantees the rollback and the connection release on
// panic as well.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	log := logger.FromContext(ctx)

	co, err := NewCoordinator(ctx, db, log)
	if err != nil {
		return err
	}
	defer co.Close()

	if err := co.Begin(ctx); err != nil {
		return err
	}

	if err := fn(ctx, co.Tx()); err != nil {
		co.Rollback()
		log.Debug("rolled back transaction due to error",
			slog.String("error", err.Error()))
		return err
	}

	return co.Commit()
}
