// Package postgres implements the conversation store driver on PostgreSQL.
package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/strandlabs/strand/store"
)

// DB is the PostgreSQL driver.
type DB struct {
	db *sql.DB
}

// New opens a connection pool for the given DSN.
func New(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return &DB{db: db}, nil
}

// Close implements store.Driver.
func (d *DB) Close() error {
	return d.db.Close()
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

var _ store.Driver = (*DB)(nil)
