package client

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"marquee/lists"
	"marquee/models"
)

// DefaultCacheTTL bounds how long a list read is served from cache
const DefaultCacheTTL = 5 * time.Minute

// Session groups the repositories for one signed-in user. Each Session owns
// its caches; nothing is shared between sessions.
type Session struct {
	Client    *Client
	Watched   *WatchedRepo
	Watchlist *WatchlistRepo
	Search    *SearchRepo
}

// NewSession creates repositories over c whose list caches live for ttl.
// A non-positive ttl uses DefaultCacheTTL.
func NewSession(c *Client, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Session{
		Client:    c,
		Watched:   &WatchedRepo{client: c, cache: newTTLCache[models.WatchedFilter, []models.WatchedItem](ttl)},
		Watchlist: &WatchlistRepo{client: c, cache: newTTLCache[struct{}, []models.WatchlistItem](ttl)},
		Search:    &SearchRepo{client: c},
	}
}

// Invalidate drops every cached list
func (s *Session) Invalidate() {
	s.Watched.cache.clear()
	s.Watchlist.cache.clear()
}

// loading counts requests in flight
type loading struct {
	n atomic.Int32
}

func (l *loading) begin() func() {
	l.n.Add(1)
	return func() { l.n.Add(-1) }
}

// Loading reports whether a request is in flight
func (l *loading) Loading() bool { return l.n.Load() > 0 }

// WatchedRepo reads the watched list through a cache and writes through to the API
type WatchedRepo struct {
	loading
	client *Client
	cache  *ttlCache[models.WatchedFilter, []models.WatchedItem]
	group  singleflight.Group

	mu    sync.RWMutex
	items []models.WatchedItem
}

// List returns cached items for filter when fresh, otherwise fetches them.
// Concurrent misses for the same filter share one request.
func (r *WatchedRepo) List(ctx context.Context, filter models.WatchedFilter) ([]models.WatchedItem, error) {
	if items, ok := r.cache.get(filter); ok {
		r.setItems(items)
		return slices.Clone(items), nil
	}

	key := fmt.Sprintf("%q|%q|%q", filter.Search, filter.DateFrom, filter.DateTo)
	v, err, _ := r.group.Do(key, func() (any, error) {
		defer r.begin()()
		gen := r.cache.generation()
		items, err := r.client.ListWatched(ctx, filter)
		if err != nil {
			return nil, err
		}
		// a write that finished meanwhile makes this result stale
		r.cache.setIfCurrent(filter, items, gen)
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	items := v.([]models.WatchedItem)
	r.setItems(items)
	return slices.Clone(items), nil
}

// Add creates an item and invalidates cached lists
func (r *WatchedRepo) Add(ctx context.Context, in lists.WatchedInput) (*models.WatchedItem, error) {
	defer r.begin()()
	item, err := r.client.AddWatched(ctx, in)
	if err != nil {
		return nil, err
	}
	r.cache.clear()
	return item, nil
}

// Update applies patch and invalidates cached lists
func (r *WatchedRepo) Update(ctx context.Context, id int, patch lists.WatchedPatch) (*models.WatchedItem, error) {
	defer r.begin()()
	item, err := r.client.UpdateWatched(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	r.cache.clear()
	return item, nil
}

// Remove deletes an item and invalidates cached lists
func (r *WatchedRepo) Remove(ctx context.Context, id int) error {
	defer r.begin()()
	if err := r.client.RemoveWatched(ctx, id); err != nil {
		return err
	}
	r.cache.clear()
	return nil
}

// Items returns a copy of the most recently listed items
func (r *WatchedRepo) Items() []models.WatchedItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}

func (r *WatchedRepo) setItems(items []models.WatchedItem) {
	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
}

// WatchlistRepo reads the watchlist through a cache and writes through to the API
type WatchlistRepo struct {
	loading
	client *Client
	cache  *ttlCache[struct{}, []models.WatchlistItem]
	group  singleflight.Group

	mu    sync.RWMutex
	items []models.WatchlistItem
}

// List returns the cached watchlist when fresh, otherwise fetches it
func (r *WatchlistRepo) List(ctx context.Context) ([]models.WatchlistItem, error) {
	if items, ok := r.cache.get(struct{}{}); ok {
		r.setItems(items)
		return slices.Clone(items), nil
	}

	v, err, _ := r.group.Do("watchlist", func() (any, error) {
		defer r.begin()()
		gen := r.cache.generation()
		items, err := r.client.ListWatchlist(ctx)
		if err != nil {
			return nil, err
		}
		r.cache.setIfCurrent(struct{}{}, items, gen)
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	items := v.([]models.WatchlistItem)
	r.setItems(items)
	return slices.Clone(items), nil
}

// Add creates an entry and invalidates the cache
func (r *WatchlistRepo) Add(ctx context.Context, in lists.WatchlistInput) (*models.WatchlistItem, error) {
	defer r.begin()()
	item, err := r.client.AddWatchlist(ctx, in)
	if err != nil {
		return nil, err
	}
	r.cache.clear()
	return item, nil
}

// Remove deletes an entry and invalidates the cache
func (r *WatchlistRepo) Remove(ctx context.Context, id int) error {
	defer r.begin()()
	if err := r.client.RemoveWatchlist(ctx, id); err != nil {
		return err
	}
	r.cache.clear()
	return nil
}

// Items returns a copy of the most recently listed entries
func (r *WatchlistRepo) Items() []models.WatchlistItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}

func (r *WatchlistRepo) setItems(items []models.WatchlistItem) {
	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
}

// SearchRepo keeps the results of the last search
type SearchRepo struct {
	loading
	client *Client

	mu      sync.RWMutex
	results []models.MediaSummary
}

// Search runs a title search and stores its results
func (r *SearchRepo) Search(ctx context.Context, kind models.MediaType, query string) ([]models.MediaSummary, error) {
	defer r.begin()()
	results, err := r.client.Search(ctx, kind, query)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.results = results
	r.mu.Unlock()
	return slices.Clone(results), nil
}

// Results returns a copy of the last search results
func (r *SearchRepo) Results() []models.MediaSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.results)
}
