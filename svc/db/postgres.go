package db

import (
	"context"
	"database/sql"
	"time"

	"ghostink/pkg/domain"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

const pgUniqueViolation = "23505"

type Postgres struct {
	db           *sql.DB
	cb           breaker
	queryTimeout time.Duration
}

// NewPostgres wraps an already opened handle. Migrations are not run.
func NewPostgres(db *sql.DB, queryTimeout time.Duration) *Postgres {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &Postgres{db: db, queryTimeout: queryTimeout}
}

func OpenPostgres(ctx context.Context, dsn string, opts Options) (*Postgres, error) {
	opts = opts.withDefaults()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, opts.QueryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping db")
	}
	if err := migrate(ctx, db, goose.DialectPostgres, "migrations/postgres"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migration failed")
	}
	return NewPostgres(db, opts.QueryTimeout), nil
}

func (s *Postgres) Create(ctx context.Context, p *domain.Paste) error {
	if err := s.cb.check(); err != nil {
		return err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	q := `INSERT INTO pastes (id, content, expires_at) VALUES ($1, $2, $3)`
	_, err := s.db.ExecContext(queryCtx, q, p.ID, p.Content, p.ExpiresAt.UTC())
	if isPgUnique(err) {
		s.cb.record(nil)
		return ErrDuplicateID
	}
	s.cb.record(err)
	return errors.Wrap(err, "db create")
}

func (s *Postgres) Get(ctx context.Context, id string, now time.Time) (*domain.Paste, error) {
	if err := s.cb.check(); err != nil {
		return nil, err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	q := `SELECT id, content, expires_at FROM pastes WHERE id = $1 AND expires_at > $2`
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

func (s *Postgres) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := s.cb.check(); err != nil {
		return 0, err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	result, err := s.db.ExecContext(queryCtx, `DELETE FROM pastes WHERE expires_at <= $1`, now.UTC())
	s.cb.record(err)
	if err != nil {
		return 0, errors.Wrap(err, "delete expired")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return int(n), nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

func isPgUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
