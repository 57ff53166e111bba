package catalog

import (
	"context"
	"fmt"

	"moviestream/searchservice/internal/domain"
	"moviestream/searchservice/internal/normalize"
)

// MovieLister is the slice of Repository the fallback search needs.
type MovieLister interface {
	GetMovies(ctx context.Context, page, limit int) ([]domain.Movie, int, error)
}

const defaultScanPageSize = 500

// SearchProvider is the relational fallback used when the index is down: it
// walks the whole catalog and does accent-insensitive substring matching over
// name, originName and description. Correctness over speed; the index path
// handles the hot traffic.
type SearchProvider struct {
	store        MovieLister
	scanPageSize int
}

func NewSearchProvider(store MovieLister) *SearchProvider {
	return &SearchProvider{store: store, scanPageSize: defaultScanPageSize}
}

// Search returns the page/limit window of all catalog rows matching rawQuery.
// A blank query returns an empty result with zeroed pagination rather than
// the full catalog. normalizedQuery may be passed pre-folded by the caller;
// when empty it is derived from rawQuery.
func (p *SearchProvider) Search(ctx context.Context, rawQuery, normalizedQuery string, page, limit int) (domain.MovieListResponse, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 24
	}

	needle := normalizedQuery
	if needle == "" {
		needle = normalize.Text(rawQuery)
	}
	if needle == "" {
		return domain.MovieListResponse{
			Status: true,
			Items:  []domain.Movie{},
		}, nil
	}

	var matches []domain.Movie
	for scanPage := 1; ; scanPage++ {
		batch, _, err := p.store.GetMovies(ctx, scanPage, p.scanPageSize)
		if err != nil {
			return domain.MovieListResponse{}, fmt.Errorf("scan catalog page %d: %w", scanPage, err)
		}
		for _, movie := range batch {
			if p.matches(movie, needle) {
				matches = append(matches, movie)
			}
		}
		if len(batch) < p.scanPageSize {
			break
		}
	}

	total := len(matches)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	items := make([]domain.Movie, end-start)
	copy(items, matches[start:end])

	return domain.MovieListResponse{
		Status: true,
		Items:  items,
		Pagination: domain.Pagination{
			TotalItems:   total,
			TotalPages:   domain.TotalPages(total, limit),
			CurrentPage:  page,
			ItemsPerPage: limit,
		},
	}, nil
}

func (p *SearchProvider) matches(movie domain.Movie, needle string) bool {
	return normalize.Contains(movie.Name, needle) ||
		normalize.Contains(movie.OriginName, needle) ||
		normalize.Contains(movie.Description, needle)
}
