// Package providers defines the contract external movie metadata sources
// implement. Concrete providers live in subpackages, one per upstream API.
package providers

import (
	"context"

	"moviestream/searchservice/internal/domain"
)

// MetadataProvider is one upstream movie API. Implementations must be safe
// for concurrent use; the orchestrator fans out page fetches in parallel.
type MetadataProvider interface {
	Name() string

	// Search returns one page of movies matching the keyword.
	Search(ctx context.Context, keyword string, page int) (domain.MovieListResponse, error)

	// Latest returns one page of the most recently updated movies; the
	// importer walks this feed.
	Latest(ctx context.Context, page int) (domain.MovieListResponse, error)

	// Detail returns the full movie record plus its flattened episodes.
	// A missing slug yields retry.ErrNotFound.
	Detail(ctx context.Context, slug string) (domain.Movie, []domain.Episode, error)
}
