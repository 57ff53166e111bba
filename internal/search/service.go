// Package search is the front door for every search request: it prefers the
// index, falls back to the relational merge path, and caches responses.
package search

import (
	"context"
	"log/slog"

	"moviestream/searchservice/internal/domain"
)

// Indexer is the slice of the index client this service needs. A nil Indexer
// means Elasticsearch was unreachable at startup; every query then takes the
// merge path.
type Indexer interface {
	Search(ctx context.Context, req domain.SearchRequest) domain.SearchResponse
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
	Health(ctx context.Context) error
}

type Service struct {
	index        Indexer
	orchestrator *Orchestrator
	cache        *Cache
	log          *slog.Logger
}

func NewService(index Indexer, orchestrator *Orchestrator, cache *Cache, log *slog.Logger) *Service {
	return &Service{
		index:        index,
		orchestrator: orchestrator,
		cache:        cache,
		log:          log,
	}
}

// Search serves one query. The response always carries the same shape; an
// engine failure shows up as a degraded Source, never as an error return.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) domain.SearchResponse {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = 24
	}
	req.SortBy = domain.NormalizeSortBy(string(req.SortBy))

	key := buildCacheKey(req)
	if s.cache != nil && !req.NoCache {
		if resp, ok := s.cache.Get(ctx, key); ok {
			resp.Source = "cache"
			return resp
		}
	}

	resp, cacheable := s.dispatch(ctx, req)
	if cacheable && s.cache != nil && !req.NoCache {
		s.cache.Set(ctx, key, resp)
	}
	return resp
}

// dispatch picks the index or the merge path. A response produced while the
// index is failing is not cacheable: caching it would replay the outage for a
// full TTL instead of retrying the engine on the next request.
func (s *Service) dispatch(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, bool) {
	if s.index == nil {
		return s.orchestrator.Search(ctx, req), true
	}

	resp := s.index.Search(ctx, req)
	if resp.Error == "" {
		return resp, true
	}

	s.log.Warn("index search degraded, using merge path", "query", req.Query, "error", resp.Error)
	return s.orchestrator.Search(ctx, req), false
}

// Suggest serves typeahead from the index only; without an index there is no
// cheap prefix source, so it degrades to no suggestions.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) []string {
	if s.index == nil {
		return []string{}
	}
	suggestions, err := s.index.Suggest(ctx, prefix, limit)
	if err != nil {
		s.log.Warn("suggest failed", "prefix", prefix, "error", err)
		return []string{}
	}
	return suggestions
}

// InvalidateCache drops all cached responses. The syncer calls this after
// every index mutation.
func (s *Service) InvalidateCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
}

// IndexHealthy reports whether the index path is up.
func (s *Service) IndexHealthy(ctx context.Context) bool {
	return s.index != nil && s.index.Health(ctx) == nil
}
