package domain

type SearchSortBy string

const (
	SearchSortByRelevance SearchSortBy = "relevance"
	SearchSortByYear      SearchSortBy = "year"
	SearchSortByRating    SearchSortBy = "rating"
	SearchSortByView      SearchSortBy = "view"
)

// SearchFilters are non-scoring constraints applied alongside the text query.
// Category and country filters match element slugs inside the nested mapping.
type SearchFilters struct {
	Type          string   `json:"type,omitempty"`
	Section       string   `json:"section,omitempty"`
	Recommended   *bool    `json:"recommended,omitempty"`
	YearFrom      int      `json:"yearFrom,omitempty"`
	YearTo        int      `json:"yearTo,omitempty"`
	CategorySlugs []string `json:"categories,omitempty"`
	CountrySlugs  []string `json:"countries,omitempty"`
}

type SearchRequest struct {
	Query   string
	Page    int
	Limit   int
	SortBy  SearchSortBy
	Filters SearchFilters
	NoCache bool
}

// SearchResponse is the shape every search entry point returns. Engine
// failures populate Error and zero the counts instead of surfacing as an
// exception; callers must check Error.
type SearchResponse struct {
	Data       []Movie      `json:"data"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"totalPages"`
	SortBy     SearchSortBy `json:"sortBy"`
	Source     string       `json:"source,omitempty"`
	ElapsedMS  int64        `json:"elapsedMs"`
	Error      string       `json:"error,omitempty"`
}

// Pagination mirrors the external metadata APIs' pagination block.
type Pagination struct {
	TotalItems   int `json:"totalItems"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"totalItemsPerPage"`
}

// MovieListResponse is the list shape shared by the external providers and
// the merge-based fallback search.
type MovieListResponse struct {
	Status     bool       `json:"status"`
	Items      []Movie    `json:"items"`
	Pagination Pagination `json:"pagination"`
}

func NormalizeSortBy(raw string) SearchSortBy {
	switch SearchSortBy(raw) {
	case SearchSortByYear:
		return SearchSortByYear
	case SearchSortByRating:
		return SearchSortByRating
	case SearchSortByView:
		return SearchSortByView
	default:
		return SearchSortByRelevance
	}
}

// TotalPages computes the page count for a total at the given page size.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}
