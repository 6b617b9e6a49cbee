package history

import (
	"context"
	"sync"
	"time"

	"github.com/mbd888/txrisk/internal/metrics"
	"github.com/mbd888/txrisk/internal/risk"
	"github.com/mbd888/txrisk/internal/syncutil"
)

// DefaultCacheEntries bounds how many accounts a CachingProvider remembers.
const DefaultCacheEntries = 10000

// CachingProvider remembers successful fetches for a short TTL. Concurrent
// misses for the same account wait on a per-account lock, so a burst of
// lookups reaches the upstream once. Errors are never cached.
type CachingProvider struct {
	next       risk.HistoryProvider
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	locks      *syncutil.KeyedMutex

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	records []risk.TransactionRecord
	limit   int // the limit the records were fetched with
	expires time.Time
}

// CacheOption configures a CachingProvider.
type CacheOption func(*CachingProvider)

// WithCacheClock overrides the clock used for expiry.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(p *CachingProvider) { p.now = now }
}

// WithMaxEntries bounds the number of cached accounts.
func WithMaxEntries(n int) CacheOption {
	return func(p *CachingProvider) {
		if n > 0 {
			p.maxEntries = n
		}
	}
}

// NewCachingProvider wraps next with a TTL cache.
func NewCachingProvider(next risk.HistoryProvider, ttl time.Duration, opts ...CacheOption) *CachingProvider {
	p := &CachingProvider{
		next:       next,
		ttl:        ttl,
		maxEntries: DefaultCacheEntries,
		now:        time.Now,
		locks:      syncutil.NewKeyedMutex(syncutil.DefaultShards),
		entries:    make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetHistory serves from cache when an unexpired entry covers limit.
func (p *CachingProvider) GetHistory(ctx context.Context, accountID string, limit int) ([]risk.TransactionRecord, error) {
	if recs, ok := p.lookup(accountID, limit); ok {
		metrics.HistoryCacheTotal.WithLabelValues("hit").Inc()
		return recs, nil
	}

	unlock, err := p.locks.LockContext(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Another caller may have filled the entry while we waited.
	if recs, ok := p.lookup(accountID, limit); ok {
		metrics.HistoryCacheTotal.WithLabelValues("hit").Inc()
		return recs, nil
	}
	metrics.HistoryCacheTotal.WithLabelValues("miss").Inc()

	recs, err := p.next.GetHistory(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}
	p.store(accountID, limit, recs)
	return clip(recs, limit), nil
}

func (p *CachingProvider) lookup(accountID string, limit int) ([]risk.TransactionRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[accountID]
	if !ok {
		return nil, false
	}
	if !p.now().Before(e.expires) {
		delete(p.entries, accountID)
		return nil, false
	}
	// A shorter fetch cannot answer a longer request unless it was already
	// the whole history.
	if limit > e.limit && len(e.records) >= e.limit {
		return nil, false
	}
	return clip(e.records, limit), true
}

func (p *CachingProvider) store(accountID string, limit int, recs []risk.TransactionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if len(p.entries) >= p.maxEntries {
		for id, e := range p.entries {
			if !now.Before(e.expires) {
				delete(p.entries, id)
			}
		}
		// Still full: drop an arbitrary entry.
		for id := range p.entries {
			if len(p.entries) < p.maxEntries {
				break
			}
			delete(p.entries, id)
		}
	}

	p.entries[accountID] = cacheEntry{
		records: clip(recs, len(recs)),
		limit:   limit,
		expires: now.Add(p.ttl),
	}
}

// Len reports the number of cached accounts, expired or not.
func (p *CachingProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// clip returns a copy of at most limit records.
func clip(recs []risk.TransactionRecord, limit int) []risk.TransactionRecord {
	if limit <= 0 || limit > len(recs) {
		limit = len(recs)
	}
	out := make([]risk.TransactionRecord, limit)
	copy(out, recs[:limit])
	return out
}
