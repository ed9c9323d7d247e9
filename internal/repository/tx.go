package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/joseph-ayodele/pantry-receipts/internal/common"
)

// MaxRetries is how many times a transaction is re-run after a transient
// failure, so a unit of work runs at most MaxRetries+1 times.
const MaxRetries = 2

var retryBackoff = 100 * time.Millisecond

// IsTransient reports whether a driver error is worth retrying: lock
// contention, serialization failures and dropped connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, common.ErrTransientStorage) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return true
		case pgErr.Code == "55P03", pgErr.Code == "57P01", pgErr.Code == "53300":
			return true
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		}
		return false
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// classify tags transient driver errors with common.ErrTransientStorage.
func classify(err error) error {
	if err == nil || errors.Is(err, common.ErrTransientStorage) {
		return err
	}
	if IsTransient(err) {
		return fmt.Errorf("%w: %w", common.ErrTransientStorage, err)
	}
	return err
}

// InTx runs fn in a transaction and commits it. A transient failure rolls
// back and re-runs fn up to MaxRetries more times; any other error is
// returned after rollback.
func (db *DB) InTx(ctx context.Context, fn func(q *Queries) error) error {
	var err error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			db.logger.Warn("db.tx.retry", "attempt", attempt, "max_retries", MaxRetries, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
		err = db.runTx(ctx, fn)
		if err == nil || !IsTransient(err) {
			return err
		}
	}
	return classify(err)
}

func (db *DB) runTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				db.logger.Warn("db.tx.rollback_failed", "error", rbErr)
			}
		}
	}()
	if err = fn(newQueries(tx, db.dialect, db.logger)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
