// Package sqlite implements the conversation store driver on SQLite.
package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/strandlabs/strand/store"
)

// DB is the SQLite driver.
type DB struct {
	db *sql.DB
}

// New opens (or creates) the database at dsn. WAL keeps concurrent
// readers from blocking the single writer.
func New(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(10000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	return &DB{db: db}, nil
}

// Close implements store.Driver.
func (d *DB) Close() error {
	return d.db.Close()
}

var _ store.Driver = (*DB)(nil)
