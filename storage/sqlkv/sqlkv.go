// Package sqlkv stores the store's keys in a single SQL table, on PostgreSQL or SQLite.
package sqlkv

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/saber-pedagogico/saber/core/store"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// both drivers support ON CONFLICT upserts
const upsertQuery = `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

type Storage struct {
	db *sqlx.DB
}

// Open connects to the database, waits for it to answer and creates the table if needed.
func Open(driver, dsn string) (*Storage, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, errors.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if driver == DriverSQLite {
		// a single connection: ":memory:" databases are per connection
		db.SetMaxOpenConns(1)
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}

	s := &Storage{db: db}
	if err = s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

func (s *Storage) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, "creating kv_store table")
	}
	return nil
}

func (s *Storage) Save(key, value string) error {
	q := s.db.Rebind(upsertQuery)
	if _, err := s.db.Exec(q, key, value, time.Now().UTC()); err != nil {
		return errors.Wrapf(err, "saving %s", key)
	}
	return nil
}

func (s *Storage) Load(key string) (string, error) {
	var value string
	err := s.db.Get(&value, s.db.Rebind(`SELECT value FROM kv_store WHERE key = ?`), key)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "loading %s", key)
	}
	return value, nil
}

func (s *Storage) Remove(key string) error {
	if _, err := s.db.Exec(s.db.Rebind(`DELETE FROM kv_store WHERE key = ?`), key); err != nil {
		return errors.Wrapf(err, "removing %s", key)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
