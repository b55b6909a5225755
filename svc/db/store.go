package db

import (
	"context"
	"strings"
	"time"

	"ghostink/pkg/domain"

	"github.com/pkg/errors"
)

// ErrDuplicateID is returned by Create when the id is already taken.
var ErrDuplicateID = errors.New("paste id already exists")

// Store is the persistence contract every backend implements. Get must hide
// rows whose expiry is not after now, and DeleteExpired must remove exactly
// the rows with expires_at <= now.
type Store interface {
	Create(ctx context.Context, p *domain.Paste) error
	Get(ctx context.Context, id string, now time.Time) (*domain.Paste, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	QueryTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = defaultMaxOpenConns
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = defaultMaxIdleConns
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = defaultQueryTimeout
	}
	return o
}

const (
	defaultMaxOpenConns = 100
	defaultMaxIdleConns = 10
	defaultQueryTimeout = 5 * time.Second
)

// Open picks a backend from the shape of url:
//
//	postgres://... or postgresql://...  Postgres
//	badger://<dir> or badger://:memory: Badger
//	sqlite://<path>, file:..., <path>   SQLite
func Open(ctx context.Context, url string, opts Options) (Store, error) {
	opts = opts.withDefaults()
	switch {
	case url == "":
		return nil, errors.New("empty database url")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url, opts)
	case strings.HasPrefix(url, "badger://"):
		return NewBadger(strings.TrimPrefix(url, "badger://"))
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteWithConfig(strings.TrimPrefix(url, "sqlite://"), opts)
	default:
		return NewSQLiteWithConfig(url, opts)
	}
}

// Kind names the backend behind s for logs and metrics.
func Kind(s Store) string {
	switch s.(type) {
	case *SQLite:
		return "sqlite"
	case *Postgres:
		return "postgres"
	case *Badger:
		return "badger"
	}
	return "unknown"
}
