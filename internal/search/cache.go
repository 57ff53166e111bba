package search

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"moviestream/searchservice/internal/domain"
	"moviestream/searchservice/internal/metrics"
)

const (
	defaultCacheTTL        = 10 * time.Minute
	defaultCacheMaxEntries = 500
)

type cachedResponse struct {
	response  domain.SearchResponse
	updatedAt time.Time
	expiresAt time.Time
}

// Cache is a TTL response cache with an optional Redis tier in front of the
// in-memory map. Sync events invalidate everything: after an index write the
// cheapest correct move is to start cold.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*cachedResponse
	ttl        time.Duration
	maxEntries int
	redis      *RedisCacheBackend
}

func NewCache(ttl time.Duration, redis *RedisCacheBackend) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{
		entries:    make(map[string]*cachedResponse),
		ttl:        ttl,
		maxEntries: defaultCacheMaxEntries,
		redis:      redis,
	}
}

func (c *Cache) Get(ctx context.Context, key string) (domain.SearchResponse, bool) {
	if c.redis != nil {
		resp, found, err := c.redis.Get(ctx, key)
		if err == nil && found {
			metrics.CacheHitsTotal.Inc()
			return resp, true
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		if ok {
			delete(c.entries, key)
		}
		metrics.CacheMissesTotal.Inc()
		return domain.SearchResponse{}, false
	}
	metrics.CacheHitsTotal.Inc()
	return cloneResponse(entry.response), true
}

func (c *Cache) Set(ctx context.Context, key string, response domain.SearchResponse) {
	// Never cache degraded responses; the next request should retry the
	// engine instead of replaying the failure.
	if response.Error != "" {
		return
	}

	if c.redis != nil {
		_ = c.redis.Set(ctx, key, response, c.ttl)
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cachedResponse{
		response:  cloneResponse(response),
		updatedAt: now,
		expiresAt: now.Add(c.ttl),
	}
	c.trimLocked(now)
}

// InvalidateAll drops every cached response. Wired as the syncer's change
// hook so index writes are visible on the next search.
func (c *Cache) InvalidateAll(ctx context.Context) {
	if c.redis != nil {
		_ = c.redis.InvalidateAll(ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cachedResponse)
}

func (c *Cache) trimLocked(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}

	type pair struct {
		key   string
		entry *cachedResponse
	}
	items := make([]pair, 0, len(c.entries))
	for key, entry := range c.entries {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-c.maxEntries; i++ {
		delete(c.entries, items[i].key)
	}
}

func cloneResponse(response domain.SearchResponse) domain.SearchResponse {
	cloned := response
	if response.Data != nil {
		cloned.Data = make([]domain.Movie, len(response.Data))
		copy(cloned.Data, response.Data)
	}
	return cloned
}

func buildCacheKey(request domain.SearchRequest) string {
	return strings.Join([]string{
		"q=" + strings.ToLower(strings.TrimSpace(request.Query)),
		"p=" + strconv.Itoa(request.Page),
		"l=" + strconv.Itoa(request.Limit),
		"sb=" + string(request.SortBy),
		"f=" + filtersKey(request.Filters),
	}, "|")
}

func filtersKey(filters domain.SearchFilters) string {
	recommended := ""
	if filters.Recommended != nil {
		recommended = strconv.FormatBool(*filters.Recommended)
	}
	return strings.Join([]string{
		"t=" + strings.ToLower(filters.Type),
		"s=" + strings.ToLower(filters.Section),
		"r=" + recommended,
		"yf=" + strconv.Itoa(filters.YearFrom),
		"yt=" + strconv.Itoa(filters.YearTo),
		"c=" + strings.Join(sortedLower(filters.CategorySlugs), ","),
		"n=" + strings.Join(sortedLower(filters.CountrySlugs), ","),
	}, ";")
}

func sortedLower(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, raw := range values {
		value := strings.ToLower(strings.TrimSpace(raw))
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
