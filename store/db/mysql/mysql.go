// Package mysql implements the conversation store driver on MySQL.
package mysql

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/strandlabs/strand/store"
)

// DB is the MySQL driver.
type DB struct {
	db *sql.DB
}

// New opens a connection pool for the given DSN.
func New(dsn string) (*DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	return &DB{db: db}, nil
}

// Close implements store.Driver.
func (d *DB) Close() error {
	return d.db.Close()
}

var _ store.Driver = (*DB)(nil)
