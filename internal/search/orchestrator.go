package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"moviestream/searchservice/internal/domain"
	"moviestream/searchservice/internal/metrics"
	"moviestream/searchservice/internal/normalize"
	"moviestream/searchservice/internal/providers"
)

const (
	// localScanCap bounds the exhaustive catalog scan of the fallback path.
	localScanCap = 1000

	// externalPageSize is the page size the upstream APIs serve.
	externalPageSize = 24

	// maxExternalPages caps how deep the fan-out reads each provider.
	maxExternalPages = 3

	maxConcurrentFetches = 4
)

// LocalProvider is the relational fallback search.
type LocalProvider interface {
	Search(ctx context.Context, rawQuery, normalizedQuery string, page, limit int) (domain.MovieListResponse, error)
}

// Orchestrator is the degraded search path: it merges the local catalog with
// the external metadata APIs when the index cannot answer. Local rows win
// every slug collision because they carry the richer, synced record.
type Orchestrator struct {
	local     LocalProvider
	externals []providers.MetadataProvider
	log       *slog.Logger
	timeout   time.Duration
}

func NewOrchestrator(local LocalProvider, externals []providers.MetadataProvider, log *slog.Logger, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Orchestrator{local: local, externals: externals, log: log, timeout: timeout}
}

// Search runs the merge path. Provider failures degrade to fewer results,
// never to an error response.
func (o *Orchestrator) Search(ctx context.Context, req domain.SearchRequest) domain.SearchResponse {
	start := time.Now()
	metrics.SearchFallbacksTotal.Inc()

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = 24
	}

	resp := domain.SearchResponse{
		Data:   []domain.Movie{},
		Page:   req.Page,
		Limit:  req.Limit,
		SortBy: req.SortBy,
		Source: "merge",
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		resp.ElapsedMS = time.Since(start).Milliseconds()
		return resp
	}
	normalized := normalize.Text(query)

	merged := o.collectLocal(ctx, query, normalized)
	seen := make(map[string]struct{}, len(merged))
	for _, movie := range merged {
		seen[movie.Slug] = struct{}{}
	}

	for _, page := range o.collectExternal(ctx, query, req) {
		for _, movie := range page {
			if _, dup := seen[movie.Slug]; dup {
				continue
			}
			seen[movie.Slug] = struct{}{}
			merged = append(merged, movie)
		}
	}

	merged = applyFilters(merged, req.Filters)
	sortMovies(merged, req.SortBy)

	resp.Total = len(merged)
	resp.TotalPages = domain.TotalPages(resp.Total, req.Limit)

	lo := (req.Page - 1) * req.Limit
	if lo > len(merged) {
		lo = len(merged)
	}
	hi := lo + req.Limit
	if hi > len(merged) {
		hi = len(merged)
	}
	resp.Data = append(resp.Data, merged[lo:hi]...)
	resp.ElapsedMS = time.Since(start).Milliseconds()
	return resp
}

func (o *Orchestrator) collectLocal(ctx context.Context, query, normalized string) []domain.Movie {
	if o.local == nil {
		return nil
	}
	local, err := o.local.Search(ctx, query, normalized, 1, localScanCap)
	if err != nil {
		o.log.Warn("local fallback search failed", "query", query, "error", err)
		return nil
	}
	return local.Items
}

// collectExternal fans out one fetch per provider page with bounded
// concurrency. The result keeps provider order, then page order, so merge
// precedence stays deterministic; a failed page contributes nothing.
func (o *Orchestrator) collectExternal(ctx context.Context, query string, req domain.SearchRequest) [][]domain.Movie {
	if len(o.externals) == 0 {
		return nil
	}

	pages := (req.Page*req.Limit + externalPageSize - 1) / externalPageSize
	if pages < 1 {
		pages = 1
	}
	if pages > maxExternalPages {
		pages = maxExternalPages
	}

	type slot struct {
		provider providers.MetadataProvider
		page     int
	}
	slots := make([]slot, 0, len(o.externals)*pages)
	for _, provider := range o.externals {
		for page := 1; page <= pages; page++ {
			slots = append(slots, slot{provider: provider, page: page})
		}
	}

	results := make([][]domain.Movie, len(slots))
	sem := semaphore.NewWeighted(maxConcurrentFetches)
	var wg sync.WaitGroup

	for i, s := range slots {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, s slot) {
			defer wg.Done()
			defer sem.Release(1)

			fetchCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			list, err := s.provider.Search(fetchCtx, query, s.page)
			if err != nil {
				o.log.Warn("external provider page failed",
					"provider", s.provider.Name(),
					"page", s.page,
					"error", err)
				return
			}
			results[i] = list.Items
		}(i, s)
	}
	wg.Wait()
	return results
}

func applyFilters(movies []domain.Movie, f domain.SearchFilters) []domain.Movie {
	if filtersEmpty(f) {
		return movies
	}

	out := movies[:0]
	for _, movie := range movies {
		if matchesFilters(movie, f) {
			out = append(out, movie)
		}
	}
	return out
}

func filtersEmpty(f domain.SearchFilters) bool {
	return f.Type == "" && f.Section == "" && f.Recommended == nil &&
		f.YearFrom == 0 && f.YearTo == 0 &&
		len(f.CategorySlugs) == 0 && len(f.CountrySlugs) == 0
}

func matchesFilters(movie domain.Movie, f domain.SearchFilters) bool {
	if f.Type != "" && movie.Type != f.Type {
		return false
	}
	if f.Section != "" && movie.Section != f.Section {
		return false
	}
	if f.Recommended != nil && movie.IsRecommended != *f.Recommended {
		return false
	}
	if f.YearFrom > 0 && movie.Year < f.YearFrom {
		return false
	}
	if f.YearTo > 0 && movie.Year > f.YearTo {
		return false
	}
	if len(f.CategorySlugs) > 0 && !hasAnySlug(movie.Categories, f.CategorySlugs) {
		return false
	}
	if len(f.CountrySlugs) > 0 && !hasAnySlug(movie.Countries, f.CountrySlugs) {
		return false
	}
	return true
}

func hasAnySlug(refs []domain.TaxonomyRef, wanted []string) bool {
	for _, ref := range refs {
		for _, slug := range wanted {
			if ref.Slug == slug {
				return true
			}
		}
	}
	return false
}

// sortMovies applies a non-relevance sort wholesale, replacing the merge
// order entirely. Relevance keeps the merge order (local first).
func sortMovies(movies []domain.Movie, sortBy domain.SearchSortBy) {
	switch sortBy {
	case domain.SearchSortByYear:
		sort.SliceStable(movies, func(i, j int) bool { return movies[i].Year > movies[j].Year })
	case domain.SearchSortByRating:
		sort.SliceStable(movies, func(i, j int) bool { return movies[i].Rating > movies[j].Rating })
	case domain.SearchSortByView:
		sort.SliceStable(movies, func(i, j int) bool { return movies[i].View > movies[j].View })
	}
}
