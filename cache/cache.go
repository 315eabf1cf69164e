// Package cache stores fetched payloads in SQLite together with the time they
// were fetched. Records older than the validity window are evicted on read.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const table = "cache_entries"

// Record is a cached payload and the moment it was fetched
type Record struct {
	Key       string
	Payload   []byte
	FetchedAt time.Time
}

// Age of the record relative to now
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.FetchedAt)
}

// Fresh reports whether the record is still inside its validity window
func (r Record) Fresh(now time.Time, maxAge time.Duration) bool {
	return r.Age(now) <= maxAge
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*Store)

// WithClock replaces the wall clock, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func connection(database string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)", database))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)

	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return db, nil
}

// Open connects to an already migrated cache database
func Open(database string, opts ...Option) (*Store, error) {
	db, err := connection(database)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the record stored under key regardless of its age
func (s *Store) Lookup(ctx context.Context, key string) (Record, bool, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("payload", "fetched_at").From(table).Where(sb.Equal("key", key))
	query, args := sb.Build()

	var (
		payload   []byte
		fetchedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query error: %w", err)
	}

	return Record{Key: key, Payload: payload, FetchedAt: time.UnixMilli(fetchedAt)}, true, nil
}

// Get returns the payload under key unless it is older than maxAge. A stale
// record is deleted and reported as a miss.
func (s *Store) Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool, error) {
	rec, ok, err := s.Lookup(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	now := s.now()
	if rec.Fresh(now, maxAge) {
		return rec.Payload, true, nil
	}

	log.WithFields(log.Fields{
		"key": key,
		"age": rec.Age(now).Round(time.Second).String(),
	}).Info("Evicting stale cache entry")

	if err := s.Delete(ctx, key); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// Put stores payload under key, stamped with the current time
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.ReplaceInto(table).Cols("key", "payload", "fetched_at").Values(key, payload, s.now().UnixMilli())
	query, args := ib.Build()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	db := sqlbuilder.SQLite.NewDeleteBuilder()
	db.DeleteFrom(table).Where(db.Equal("key", key))
	query, args := db.Build()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

// Prune removes every record older than maxAge
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()

	db := sqlbuilder.SQLite.NewDeleteBuilder()
	db.DeleteFrom(table).Where(db.LessThan("fetched_at", cutoff))
	query, args := db.Build()

	log.WithFields(log.Fields{
		"sql":  query,
		"args": args,
	}).Debug("Pruning cache")

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete error: %w", err)
	}
	return res.RowsAffected()
}
