package pg

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sliceline.app/internal/auth"
	"sliceline.app/internal/pizza"
)

// QueryLogger receives the statement text of every database operation.
// Argument values are never passed along.
type QueryLogger interface {
	DBQuery(query string)
}

// Store implements auth.UserDirectory, auth.RevocationStore and
// pizza.Service on PostgreSQL.
type Store struct {
	db  *sql.DB
	log QueryLogger
}

var (
	_ auth.UserDirectory   = (*Store)(nil)
	_ auth.RevocationStore = (*Store)(nil)
	_ pizza.Service        = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithQueryLogger forwards statement text to the logging pipeline.
func WithQueryLogger(l QueryLogger) Option {
	return func(s *Store) { s.log = l }
}

// Open connects with pool settings tuned for the API workload.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db, opts...), nil
}

// New wraps an existing connection pool (used by tests with sqlmock).
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the pool for readiness probes.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) logQuery(query string) {
	if s.log != nil {
		s.log.DBQuery(query)
	}
}

// likePattern converts the API's `*` wildcard into a SQL LIKE pattern.
func likePattern(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "*" {
		return "%"
	}
	return strings.ReplaceAll(name, "*", "%")
}

func pageWindow(page, limit, defaultLimit int) (offset, fetch int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if page < 0 {
		page = 0
	}
	// Fetch one extra row to learn whether another page exists.
	return page * limit, limit + 1
}
