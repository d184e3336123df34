// Package sqlite implements the order, catalog and API key repositories on
// an embedded SQLite file, for a single register running without a
// database server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	dbschema "github.com/xenking/pos-order-engine/db"
)

// timeLayout is fixed width and always UTC so that text comparison of
// stored timestamps matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// readConns bounds the read pool. WAL readers never wait for the writer.
const readConns = 4

// DB is one SQLite file opened through two pools: a single connection that
// serializes every write and takes the write lock when its transaction
// begins, and a read-only pool whose statements see WAL snapshots and run
// alongside a commit.
type DB struct {
	write *sql.DB
	read  *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*DB, error) {
	const pragmas = "_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)"

	write, err := sql.Open("sqlite", fmt.Sprintf("file:%s?%s&_txlock=immediate", path, pragmas))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %q: %w", path, err)
	}
	write.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, write); err != nil {
		_ = write.Close()
		return nil, err
	}

	read, err := sql.Open("sqlite", fmt.Sprintf("file:%s?%s&_pragma=query_only(1)", path, pragmas))
	if err != nil {
		_ = write.Close()
		return nil, fmt.Errorf("opening sqlite %q for reads: %w", path, err)
	}
	read.SetMaxOpenConns(readConns)
	read.SetMaxIdleConns(readConns)

	return &DB{write: write, read: read}, nil
}

// PingContext checks both pools.
func (db *DB) PingContext(ctx context.Context) error {
	if err := db.write.PingContext(ctx); err != nil {
		return err
	}
	return db.read.PingContext(ctx)
}

// Close closes both pools.
func (db *DB) Close() error {
	return errors.Join(db.read.Close(), db.write.Close())
}

// RunMigrations executes the embedded SQLite DDL schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, dbschema.SQLiteSchema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", s)
	}
	return t, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// the given table.column.
func isUniqueViolation(err error, column string) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE && strings.Contains(se.Error(), column)
}
