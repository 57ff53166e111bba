package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"moviestream/searchservice/internal/domain"
	"moviestream/searchservice/internal/providers"
)

type fakeLocal struct {
	items []domain.Movie
	err   error
	calls int32
}

func (f *fakeLocal) Search(_ context.Context, _, _ string, _, _ int) (domain.MovieListResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return domain.MovieListResponse{}, f.err
	}
	return domain.MovieListResponse{Status: true, Items: f.items}, nil
}

type fakeExternal struct {
	name  string
	pages map[int][]domain.Movie
	err   error
	calls int32
}

func (f *fakeExternal) Name() string { return f.name }

func (f *fakeExternal) Search(_ context.Context, _ string, page int) (domain.MovieListResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return domain.MovieListResponse{}, f.err
	}
	return domain.MovieListResponse{Status: true, Items: f.pages[page]}, nil
}

func (f *fakeExternal) Latest(_ context.Context, page int) (domain.MovieListResponse, error) {
	return domain.MovieListResponse{Status: true, Items: f.pages[page]}, nil
}

func (f *fakeExternal) Detail(_ context.Context, _ string) (domain.Movie, []domain.Episode, error) {
	return domain.Movie{}, nil, errors.New("not implemented")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(local LocalProvider, externals ...providers.MetadataProvider) *Orchestrator {
	return NewOrchestrator(local, externals, testLogger(), time.Second)
}

func TestOrchestratorBlankQuerySkipsAllProviders(t *testing.T) {
	local := &fakeLocal{items: []domain.Movie{{Slug: "a"}}}
	external := &fakeExternal{name: "ext"}
	orch := newTestOrchestrator(local, external)

	resp := orch.Search(context.Background(), domain.SearchRequest{Query: "   ", Page: 1, Limit: 10})
	if len(resp.Data) != 0 || resp.Total != 0 {
		t.Fatalf("blank query must return empty, got %+v", resp)
	}
	if atomic.LoadInt32(&local.calls) != 0 || atomic.LoadInt32(&external.calls) != 0 {
		t.Fatalf("blank query must not touch providers")
	}
}

func TestOrchestratorLocalWinsSlugCollisions(t *testing.T) {
	local := &fakeLocal{items: []domain.Movie{
		{Slug: "shared", Name: "Local Copy", EpisodeCount: 12},
		{Slug: "local-only", Name: "Local Only"},
	}}
	external := &fakeExternal{name: "ext", pages: map[int][]domain.Movie{
		1: {
			{Slug: "shared", Name: "External Copy"},
			{Slug: "external-only", Name: "External Only"},
		},
	}}
	orch := newTestOrchestrator(local, external)

	resp := orch.Search(context.Background(), domain.SearchRequest{Query: "x", Page: 1, Limit: 10})
	if resp.Total != 3 {
		t.Fatalf("expected 3 merged movies, got %d", resp.Total)
	}
	for _, movie := range resp.Data {
		if movie.Slug == "shared" && movie.Name != "Local Copy" {
			t.Fatalf("local row must win the collision, got %q", movie.Name)
		}
	}
	if resp.Data[0].Slug != "shared" || resp.Data[1].Slug != "local-only" {
		t.Fatalf("local results must come first: %+v", resp.Data)
	}
}

func TestOrchestratorDeduplicatesAcrossExternals(t *testing.T) {
	a := &fakeExternal{name: "a", pages: map[int][]domain.Movie{1: {{Slug: "m1", Name: "From A"}, {Slug: "m2", Name: "From A"}}}}
	b := &fakeExternal{name: "b", pages: map[int][]domain.Movie{1: {{Slug: "m2", Name: "From B"}, {Slug: "m3", Name: "From B"}}}}
	orch := newTestOrchestrator(&fakeLocal{}, a, b)

	resp := orch.Search(context.Background(), domain.SearchRequest{Query: "m", Page: 1, Limit: 10})
	if resp.Total != 3 {
		t.Fatalf("expected {m1,m2,m3}, got %d results", resp.Total)
	}
	for _, movie := range resp.Data {
		if movie.Slug == "m2" && movie.Name != "From A" {
			t.Fatalf("first provider must win external collisions, got %q", movie.Name)
		}
	}
}

func TestOrchestratorProviderFailureDegradesToFewerResults(t *testing.T) {
	ok := &fakeExternal{name: "ok", pages: map[int][]domain.Movie{1: {{Slug: "alive"}}}}
	down := &fakeExternal{name: "down", err: errors.New("connection refused")}
	orch := newTestOrchestrator(&fakeLocal{}, down, ok)

	resp := orch.Search(context.Background(), domain.SearchRequest{Query: "x", Page: 1, Limit: 10})
	if resp.Error != "" {
		t.Fatalf("provider failure must not error the response: %q", resp.Error)
	}
	if resp.Total != 1 || resp.Data[0].Slug != "alive" {
		t.Fatalf("expected the healthy provider's result, got %+v", resp.Data)
	}
}

func TestOrchestratorPaginatesMergedResults(t *testing.T) {
	var items []domain.Movie
	for i := 0; i < 25; i++ {
		items = append(items, domain.Movie{Slug: "m" + string(rune('a'+i))})
	}
	orch := newTestOrchestrator(&fakeLocal{items: items})

	page3 := orch.Search(context.Background(), domain.SearchRequest{Query: "x", Page: 3, Limit: 10})
	if page3.Total != 25 || page3.TotalPages != 3 {
		t.Fatalf("unexpected totals: %+v", page3)
	}
	if len(page3.Data) != 5 {
		t.Fatalf("page 3 of 25/10 should hold 5, got %d", len(page3.Data))
	}

	page9 := orch.Search(context.Background(), domain.SearchRequest{Query: "x", Page: 9, Limit: 10})
	if len(page9.Data) != 0 {
		t.Fatalf("out-of-range page must be empty, got %d", len(page9.Data))
	}
}

func TestOrchestratorSortOverridesMergeOrder(t *testing.T) {
	local := &fakeLocal{items: []domain.Movie{{Slug: "old", Year: 1990}}}
	external := &fakeExternal{name: "ext", pages: map[int][]domain.Movie{1: {{Slug: "new", Year: 2024}}}}
	orch := newTestOrchestrator(local, external)

	resp := orch.Search(context.Background(), domain.SearchRequest{
		Query: "x", Page: 1, Limit: 10, SortBy: domain.SearchSortByYear,
	})
	if resp.Data[0].Slug != "new" {
		t.Fatalf("year sort must override local-first order: %+v", resp.Data)
	}
}

func TestOrchestratorAppliesFilters(t *testing.T) {
	local := &fakeLocal{items: []domain.Movie{
		{Slug: "keep", Type: "series", Year: 2020, Categories: []domain.TaxonomyRef{{Slug: "hanh-dong"}}},
		{Slug: "wrong-type", Type: "single", Year: 2020},
		{Slug: "wrong-year", Type: "series", Year: 2000},
	}}
	orch := newTestOrchestrator(local)

	resp := orch.Search(context.Background(), domain.SearchRequest{
		Query: "x", Page: 1, Limit: 10,
		Filters: domain.SearchFilters{
			Type:          "series",
			YearFrom:      2010,
			CategorySlugs: []string{"hanh-dong"},
		},
	})
	if resp.Total != 1 || resp.Data[0].Slug != "keep" {
		t.Fatalf("unexpected filtered results: %+v", resp.Data)
	}
}

func TestOrchestratorFetchesDeepPagesForLaterWindows(t *testing.T) {
	external := &fakeExternal{name: "ext", pages: map[int][]domain.Movie{}}
	orch := newTestOrchestrator(&fakeLocal{}, external)

	orch.Search(context.Background(), domain.SearchRequest{Query: "x", Page: 3, Limit: 24})
	if got := atomic.LoadInt32(&external.calls); got != 3 {
		t.Fatalf("page 3 at limit 24 needs 3 provider pages, got %d fetches", got)
	}
}
