package cache

import (
	"errors"
	"time"

	"ghostink/pkg/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is the in-process read cache. Pastes are immutable, so an entry only
// needs to be dropped once it expires.
type LRU struct {
	c *lru.Cache[string, *domain.Paste]
}

func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		return nil, errors.New("cache size must be positive")
	}
	if size > 100000 {
		return nil, errors.New("cache size too large")
	}
	c, err := lru.New[string, *domain.Paste](size)
	if err != nil {
		return nil, err
	}
	return &LRU{c: c}, nil
}

// Get returns the cached paste if it is still live at now.
func (l *LRU) Get(id string, now time.Time) (*domain.Paste, bool) {
	p, ok := l.c.Get(id)
	if !ok {
		return nil, false
	}
	if !p.Live(now) {
		l.c.Remove(id)
		return nil, false
	}
	return p, true
}

func (l *LRU) Add(p *domain.Paste) {
	l.c.Add(p.ID, p)
}

func (l *LRU) Len() int {
	return l.c.Len()
}
