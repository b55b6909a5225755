package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"ghostink/pkg/domain"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

const sweepBatch = 500

type SQLite struct {
	db           *sql.DB
	cb           breaker
	queryTimeout time.Duration
	memory       bool
}

func (s *SQLite) DB() *sql.DB {
	return s.db
}
func NewSQLite(path string) (*SQLite, error) {
	return NewSQLiteWithConfig(path, Options{})
}

func NewSQLiteWithConfig(path string, opts Options) (*SQLite, error) {
	opts = opts.withDefaults()
	memory := strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
	db, err := sql.Open("sqlite3", sqliteDSN(path, memory))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), opts.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping db")
	}
	s := &SQLite{
		db:           db,
		queryTimeout: opts.QueryTimeout,
		memory:       memory,
	}
	if err := migrate(ctx, db, goose.DialectSQLite3, "migrations/sqlite"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migration failed")
	}
	if memory {
		// shared-cache memory databases report SQLITE_LOCKED instead of
		// waiting on busy_timeout, so writers are serialised in the pool.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}
	return s, nil
}

// sqliteDSN sets the pragmas on every pooled connection rather than on
// whichever connection happens to run a PRAGMA statement.
func sqliteDSN(path string, memory bool) string {
	params := "_busy_timeout=5000&_synchronous=FULL"
	if !memory {
		params += "&_journal_mode=WAL"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params
}

func (s *SQLite) Create(ctx context.Context, p *domain.Paste) error {
	if err := s.cb.check(); err != nil {
		return err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	q := `INSERT INTO pastes (id, content, expires_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(queryCtx, q, p.ID, p.Content, p.ExpiresAt.UTC())
	if isSQLiteUnique(err) {
		s.cb.record(nil)
		return ErrDuplicateID
	}
	s.cb.record(err)
	return errors.Wrap(err, "db create")
}
func (s *SQLite) Get(ctx context.Context, id string, now time.Time) (*domain.Paste, error) {
	if err := s.cb.check(); err != nil {
		return nil, err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	q := `SELECT id, content, expires_at FROM pastes WHERE id = ? AND expires_at > ?`
	var p domain.Paste
	err := s.db.QueryRowContext(queryCtx, q, id, now.UTC()).Scan(&p.ID, &p.Content, &p.ExpiresAt)
	if err == sql.ErrNoRows {
		s.cb.record(nil)
		return nil, domain.ErrPasteNotFound
	}
	s.cb.record(err)
	if err != nil {
		return nil, errors.Wrap(err, "db get")
	}
	return &p, nil
}

// DeleteExpired removes rows in batches so a large backlog does not hold the
// write lock for the whole sweep. Every batch uses the same now.
func (s *SQLite) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := s.cb.check(); err != nil {
		return 0, err
	}
	now = now.UTC()
	total := 0
	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}
		queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		result, err := s.db.ExecContext(queryCtx, `
			DELETE FROM pastes
			WHERE id IN (
				SELECT id FROM pastes
				WHERE expires_at <= ?
				LIMIT ?
			)
		`, now, sweepBatch)
		cancel()
		s.cb.record(err)
		if err != nil {
			return total, errors.Wrap(err, "cleanup batch failed")
		}
		deleted, _ := result.RowsAffected()
		total += int(deleted)
		if deleted < sweepBatch {
			return total, nil
		}
	}
}

func (s *SQLite) Ping(ctx context.Context) error {
	var result int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func isSQLiteUnique(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		se.ExtendedCode == sqlite3.ErrConstraintUnique
}
