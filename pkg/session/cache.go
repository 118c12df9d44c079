package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const cacheKey = "session"

// CachedRepository keeps the last loaded session in memory for ttl. Writes go
// through to the backend first and then refresh the cache.
type CachedRepository struct {
	next  Repository
	cache *cache.Cache
	mu    sync.Mutex
}

var _ = Repository(&CachedRepository{})

func NewCachedRepository(next Repository, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *CachedRepository) Load(ctx context.Context) (Session, error) {
	if v, ok := r.cache.Get(cacheKey); ok {
		return v.(Session), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.next.Load(ctx)
	if err != nil {
		return Session{}, err
	}
	r.cache.SetDefault(cacheKey, s)

	return s, nil
}

func (r *CachedRepository) Save(ctx context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Delete(cacheKey)
	if err := r.next.Save(ctx, s); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	r.cache.SetDefault(cacheKey, s)

	return nil
}

func (r *CachedRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Delete(cacheKey)
	if err := r.next.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	return nil
}
