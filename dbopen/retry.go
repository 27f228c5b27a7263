package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// busyBackoff is the wait schedule between attempts when SQLite reports
// lock contention. Its length bounds the number of retries: len+1 attempts
// total, with a growing pause after each busy failure but the last.
var busyBackoff = []time.Duration{
	100 * time.Millisecond,
	200 * time.Millisecond,
	300 * time.Millisecond,
}

// IsBusy reports whether err is SQLite lock contention. Driver errors are
// not typed, so this matches the three message forms modernc.org/sqlite
// emits for SQLITE_BUSY and table locks.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// retryBusy runs op, waiting out the backoff schedule on busy errors.
// Non-busy errors return immediately; a busy error that outlives the
// schedule is returned wrapped with the attempt count.
func retryBusy(ctx context.Context, op func() error) error {
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil || !IsBusy(err) {
			return err
		}
		if attempt == len(busyBackoff) {
			return fmt.Errorf("dbopen: still busy after %d attempts: %w", attempt+1, err)
		}
		if werr := sleepCtx(ctx, busyBackoff[attempt]); werr != nil {
			return fmt.Errorf("dbopen: retry wait: %w", werr)
		}
	}
}

// RunTx executes fn inside a transaction, retrying the whole transaction
// on SQLITE_BUSY per the backoff schedule. fn returning an error rolls the
// transaction back and, unless busy, ends the retry loop too.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	return retryBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("dbopen: begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("dbopen: commit: %w", err)
		}
		return nil
	})
}

// Exec executes a single statement, retrying on SQLITE_BUSY per the
// backoff schedule.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retryBusy(ctx, func() error {
		var err error
		res, err = db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
