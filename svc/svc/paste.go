package svc

import (
	"context"
	"sync/atomic"
	"time"

	"ghostink/cfg"
	"ghostink/metrics"
	"ghostink/pkg/domain"
	"ghostink/svc/cache"
	"ghostink/svc/db"
	"ghostink/svc/util"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Paste is the paste store service. Reads go LRU, then Redis, then the
// backend; each layer re-checks expiry against the caller's clock.
type Paste struct {
	store      db.Store
	lru        *cache.LRU
	rdb        *db.Redis
	defaultTTL time.Duration
	redisTTL   time.Duration
	now        func() time.Time
	group      singleflight.Group
	cleaning   atomic.Bool
}

// NewPaste wires the service. lru and rdb are optional; c may be nil in
// which case defaults apply.
func NewPaste(store db.Store, lru *cache.LRU, rdb *db.Redis, c *cfg.Cfg) *Paste {
	if store == nil {
		panic("paste service: nil store")
	}
	p := &Paste{
		store:      store,
		lru:        lru,
		rdb:        rdb,
		defaultTTL: domain.DefaultTTL,
		redisTTL:   10 * time.Minute,
		now:        time.Now,
	}
	if c != nil {
		if c.DefaultTTL > 0 {
			p.defaultTTL = c.DefaultTTL
		}
		if c.RedisCacheTTL > 0 {
			p.redisTTL = c.RedisCacheTTL
		}
	}
	return p
}

// SetClock replaces the time source. Tests only.
func (p *Paste) SetClock(now func() time.Time) {
	p.now = now
}

// Put stores content under a fresh UUID. A nil expiresAt means now plus the
// default TTL. A past expiresAt is accepted; the paste is simply never
// readable.
func (p *Paste) Put(ctx context.Context, content string, expiresAt *time.Time) (*domain.Paste, error) {
	id, err := util.NewPasteID()
	if err != nil {
		return nil, errors.Wrap(err, "gen id")
	}
	now := p.now()
	exp := now.Add(p.defaultTTL)
	if expiresAt != nil {
		exp = *expiresAt
	}
	paste := &domain.Paste{ID: id, Content: content, ExpiresAt: exp.UTC()}
	if err := p.store.Create(ctx, paste); err != nil {
		if errors.Is(err, db.ErrDuplicateID) {
			util.Error().Str("paste_id", id).Msg("paste id collision")
			metrics.StoreErrors.WithLabelValues("create").Inc()
			return nil, domain.ErrIDCollision
		}
		metrics.StoreErrors.WithLabelValues("create").Inc()
		return nil, errors.Wrap(err, "create paste")
	}
	if paste.Live(now) {
		p.cache(ctx, paste, now)
	}
	metrics.PasteCreated.Inc()
	return paste, nil
}

// Get returns a live paste or domain.ErrPasteNotFound. Ids that are not
// UUIDs cannot exist and are reported as not found without a lookup.
func (p *Paste) Get(ctx context.Context, id string) (*domain.Paste, error) {
	if !util.ValidPasteID(id) {
		metrics.PasteNotFound.Inc()
		return nil, domain.ErrPasteNotFound
	}
	now := p.now()
	if p.lru != nil {
		if paste, ok := p.lru.Get(id, now); ok {
			metrics.CacheHits.WithLabelValues("lru").Inc()
			metrics.PasteRetrieved.Inc()
			return paste, nil
		}
		metrics.CacheMisses.WithLabelValues("lru").Inc()
	}
	v, err, shared := p.group.Do(id, func() (interface{}, error) {
		return p.load(context.WithoutCancel(ctx), id, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrPasteNotFound) {
			metrics.PasteNotFound.Inc()
		}
		return nil, err
	}
	paste := v.(*domain.Paste)
	if shared && !paste.Live(now) {
		metrics.PasteNotFound.Inc()
		return nil, domain.ErrPasteNotFound
	}
	metrics.PasteRetrieved.Inc()
	return paste, nil
}

func (p *Paste) load(ctx context.Context, id string, now time.Time) (*domain.Paste, error) {
	if p.rdb != nil {
		paste, err := p.rdb.GetPaste(ctx, id)
		if err != nil {
			util.Warn().Err(err).Str("paste_id", id).Msg("redis lookup failed")
		}
		if paste != nil && paste.Live(now) {
			metrics.CacheHits.WithLabelValues("redis").Inc()
			if p.lru != nil {
				p.lru.Add(paste)
			}
			return paste, nil
		}
		metrics.CacheMisses.WithLabelValues("redis").Inc()
	}
	paste, err := p.store.Get(ctx, id, now)
	if err != nil {
		if errors.Is(err, domain.ErrPasteNotFound) {
			return nil, domain.ErrPasteNotFound
		}
		metrics.StoreErrors.WithLabelValues("get").Inc()
		return nil, errors.Wrap(err, "get paste")
	}
	p.cache(ctx, paste, now)
	return paste, nil
}

func (p *Paste) cache(ctx context.Context, paste *domain.Paste, now time.Time) {
	if p.lru != nil {
		p.lru.Add(paste)
	}
	if p.rdb != nil {
		if err := p.rdb.CachePaste(ctx, paste, p.redisTTL, now); err != nil {
			util.Warn().Err(err).Str("paste_id", paste.ID).Msg("failed to cache in Redis")
		}
	}
}

// SweepExpired deletes every paste with expires_at <= now, using a single
// now for the whole call.
func (p *Paste) SweepExpired(ctx context.Context) (int, error) {
	now := p.now()
	n, err := p.store.DeleteExpired(ctx, now)
	metrics.SweepCycles.Inc()
	if err != nil {
		metrics.StoreErrors.WithLabelValues("sweep").Inc()
		return n, errors.Wrap(err, "sweep expired")
	}
	metrics.PastesSwept.Add(float64(n))
	return n, nil
}

// Health pings the backend and, when configured, Redis.
func (p *Paste) Health(ctx context.Context) error {
	if err := p.StoreHealth(ctx); err != nil {
		return err
	}
	return p.CacheHealth(ctx)
}

func (p *Paste) StoreHealth(ctx context.Context) error {
	return errors.Wrap(p.store.Ping(ctx), "store ping")
}

// CacheHealth reports Redis reachability; nil when Redis is not configured.
func (p *Paste) CacheHealth(ctx context.Context) error {
	if p.rdb == nil {
		return nil
	}
	return errors.Wrap(p.rdb.Ping(ctx), "redis ping")
}

// CacheConfigured reports whether a Redis layer is wired.
func (p *Paste) CacheConfigured() bool {
	return p.rdb != nil
}

// StartCleaner runs SweepExpired every interval until ctx is done. The
// returned channel closes when the worker exits. Only one cleaner may run per
// service.
func (p *Paste) StartCleaner(ctx context.Context, interval time.Duration) (<-chan struct{}, error) {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done, nil
	}
	if !p.cleaning.CompareAndSwap(false, true) {
		return nil, errors.New("cleaner already running")
	}
	go p.runCleaner(ctx, interval, done)
	return done, nil
}

func (p *Paste) runCleaner(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	defer p.cleaning.Store(false)
	cleanupRequestID := util.RequestIDFrom("")
	ctx = util.SetRequestID(ctx, cleanupRequestID)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	util.Info().
		Str("request_id", cleanupRequestID).
		Dur("interval", interval).
		Msg("cleanup worker started")
	for {
		select {
		case <-ctx.Done():
			util.Info().
				Str("request_id", cleanupRequestID).
				Msg("cleanup worker shutting down")
			return
		case <-ticker.C:
			deleted, err := p.SweepExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				util.Error().
					Err(err).
					Str("request_id", cleanupRequestID).
					Msg("cleanup failed")
			} else if deleted > 0 {
				util.Info().
					Int("deleted", deleted).
					Str("request_id", cleanupRequestID).
					Msg("cleanup completed")
			}
		}
	}
}
