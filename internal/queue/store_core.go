package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"vidpipe/internal/config"
)

var (
	// ErrDuplicateID is returned by CreateJob when the id already exists.
	ErrDuplicateID = errors.New("duplicate job id")
	// ErrConflict is returned when a conditional write matched no row because
	// the job is no longer in an allowed state or is owned by another worker.
	ErrConflict = errors.New("job state conflict")
	// ErrInvalidTransition marks a request no store state could satisfy, such
	// as an unknown target or a claim without a worker id.
	ErrInvalidTransition = errors.New("invalid transition")
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// Store manages job persistence.
type Store struct {
	db       *sql.DB
	driver   string
	location string
	ttl      time.Duration
	now      func() time.Time
}

// Option customizes a Store at open time.
type Option func(*Store)

// WithClock replaces the wall clock used for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL. Queries never
// contain literal question marks.
func (s *Store) rebind(query string) string {
	if s.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	query = s.rebind(query)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ensureContext(ctx), s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ensureContext(ctx), s.rebind(query), args...)
}

// Open connects to the configured job database and initializes the schema.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store := &Store{
		driver: cfg.Store.Driver,
		ttl:    cfg.JobTTL(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}

	var err error
	switch store.driver {
	case driverSQLite:
		err = store.openSQLite(cfg)
	case driverPostgres:
		err = store.openPostgres(cfg)
	default:
		err = fmt.Errorf("unsupported store driver %q", store.driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.initSchema(context.Background()); err != nil {
		_ = store.db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) openSQLite(cfg *config.Config) error {
	path := cfg.Store.DSN
	if path == "" {
		path = cfg.DatabasePath()
	}
	// Pragmas in the DSN apply to every pooled connection, not just the first.
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	s.db = db
	s.location = path
	return nil
}

func (s *Store) openPostgres(cfg *config.Config) error {
	db, err := sql.Open("postgres", cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open postgres db: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	s.db = db
	s.location = redactDSN(cfg.Store.DSN)
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
