package catalog

import (
	"context"
	"errors"
	"testing"

	"moviestream/searchservice/internal/domain"
)

type fakeLister struct {
	movies []domain.Movie
	err    error
	calls  int
}

func (f *fakeLister) GetMovies(_ context.Context, page, limit int) ([]domain.Movie, int, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	start := (page - 1) * limit
	if start >= len(f.movies) {
		return []domain.Movie{}, len(f.movies), nil
	}
	end := start + limit
	if end > len(f.movies) {
		end = len(f.movies)
	}
	return f.movies[start:end], len(f.movies), nil
}

func testMovies() []domain.Movie {
	return []domain.Movie{
		{Slug: "ha-noi-mua-dong", Name: "Hà Nội Mùa Đông", OriginName: "Hanoi Winter"},
		{Slug: "sai-gon-dem-nay", Name: "Sài Gòn Đêm Nay", Description: "một câu chuyện về Hà Nội"},
		{Slug: "dark-knight", Name: "Kỵ Sĩ Bóng Đêm", OriginName: "The Dark Knight"},
	}
}

func TestSearchBlankQueryReturnsEmpty(t *testing.T) {
	store := &fakeLister{movies: testMovies()}
	provider := NewSearchProvider(store)

	for _, query := range []string{"", "   "} {
		resp, err := provider.Search(context.Background(), query, "", 1, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Items) != 0 {
			t.Fatalf("blank query %q returned %d items", query, len(resp.Items))
		}
		if resp.Pagination != (domain.Pagination{}) {
			t.Fatalf("blank query must zero pagination, got %+v", resp.Pagination)
		}
	}
	if store.calls != 0 {
		t.Fatalf("blank query must not touch the store, got %d calls", store.calls)
	}
}

func TestSearchMatchesAcrossFields(t *testing.T) {
	provider := NewSearchProvider(&fakeLister{movies: testMovies()})

	// "ha noi" hits the name of one movie and the description of another.
	resp, err := provider.Search(context.Background(), "ha noi", "", 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(resp.Items))
	}

	resp, err = provider.Search(context.Background(), "dark knight", "", 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Slug != "dark-knight" {
		t.Fatalf("expected originName match, got %+v", resp.Items)
	}
}

func TestSearchIsAccentAndCaseInsensitive(t *testing.T) {
	provider := NewSearchProvider(&fakeLister{movies: testMovies()})

	for _, query := range []string{"Hà Nội", "HA NOI", "hà nội"} {
		resp, err := provider.Search(context.Background(), query, "", 1, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Items) != 2 {
			t.Fatalf("query %q matched %d items, want 2", query, len(resp.Items))
		}
	}
}

func TestSearchPaginatesMatches(t *testing.T) {
	var movies []domain.Movie
	for i := 0; i < 7; i++ {
		movies = append(movies, domain.Movie{
			Slug: string(rune('a' + i)),
			Name: "Phim Hành Động",
		})
	}
	provider := NewSearchProvider(&fakeLister{movies: movies})

	resp, err := provider.Search(context.Background(), "hanh dong", "", 2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 3 {
		t.Fatalf("page 2 should hold 3 items, got %d", len(resp.Items))
	}
	if resp.Pagination.TotalItems != 7 || resp.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", resp.Pagination)
	}

	resp, err = provider.Search(context.Background(), "hanh dong", "", 3, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("last page should hold 1 item, got %d", len(resp.Items))
	}

	resp, err = provider.Search(context.Background(), "hanh dong", "", 9, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 0 {
		t.Fatalf("out-of-range page should be empty, got %d items", len(resp.Items))
	}
}

func TestSearchScansAllCatalogPages(t *testing.T) {
	var movies []domain.Movie
	for i := 0; i < 1200; i++ {
		name := "Filler"
		if i == 1150 {
			name = "Ngọc Trong Đá"
		}
		movies = append(movies, domain.Movie{Slug: string(rune(i)), Name: name})
	}
	store := &fakeLister{movies: movies}
	provider := NewSearchProvider(store)

	resp, err := provider.Search(context.Background(), "ngoc trong da", "", 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("match past the first scan page was missed, got %d items", len(resp.Items))
	}
	if store.calls < 3 {
		t.Fatalf("expected full catalog scan, got %d store calls", store.calls)
	}
}

func TestSearchPropagatesStoreErrors(t *testing.T) {
	wantErr := errors.New("connection refused")
	provider := NewSearchProvider(&fakeLister{err: wantErr})

	_, err := provider.Search(context.Background(), "anything", "", 1, 10)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestSearchUsesPreNormalizedQuery(t *testing.T) {
	provider := NewSearchProvider(&fakeLister{movies: testMovies()})

	resp, err := provider.Search(context.Background(), "Hà Nội", "ha noi", 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 matches with pre-normalized query, got %d", len(resp.Items))
	}
}
