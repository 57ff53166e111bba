package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"moviestream/searchservice/internal/domain"
	"moviestream/searchservice/internal/normalize"
)

// Search runs the query against the movies index. Engine failures are folded
// into the response shape (Error set, empty data, zero total) instead of
// being returned, so the HTTP layer always has something serializable.
func (c *Client) Search(ctx context.Context, req domain.SearchRequest) domain.SearchResponse {
	start := time.Now()

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
		Source: "elasticsearch",
	}

	body := buildSearchBody(req)
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		resp.Error = err.Error()
		return resp
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(MoviesIndex),
		c.es.Search.WithBody(&buf),
		c.es.Search.WithTrackTotalHits(true),
	)
	observe("search", start, err)
	if err != nil {
		c.log.Error("index search failed", "query", req.Query, "error", err)
		resp.Error = err.Error()
		return resp
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		c.log.Error("index search failed", "query", req.Query, "status", res.Status())
		resp.Error = fmt.Sprintf("search error [%s]: %s", res.Status(), truncate(raw, 512))
		return resp
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source domain.Movie `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		resp.Error = err.Error()
		return resp
	}

	for _, hit := range parsed.Hits.Hits {
		resp.Data = append(resp.Data, hit.Source)
	}
	resp.Total = parsed.Hits.Total.Value
	resp.TotalPages = domain.TotalPages(resp.Total, req.Limit)
	resp.ElapsedMS = time.Since(start).Milliseconds()
	return resp
}

// buildSearchBody translates a request into the ES query DSL. A blank query
// browses via match_all; otherwise text relevance comes from a multi_match
// over names and credits plus a heavily boosted exact-name term, and a
// non-relevance sort replaces scoring wholesale.
func buildSearchBody(req domain.SearchRequest) map[string]any {
	query := strings.TrimSpace(req.Query)

	boolQuery := map[string]any{}
	if query == "" {
		boolQuery["must"] = []any{map[string]any{"match_all": map[string]any{}}}
	} else {
		boolQuery["should"] = []any{
			map[string]any{
				"multi_match": map[string]any{
					"query": query,
					"fields": []string{
						"name^3",
						"name.autocomplete^2",
						"originName^2",
						"originName.autocomplete",
						"description",
						"actors",
						"directors",
					},
					"fuzziness": "AUTO",
				},
			},
			map[string]any{
				"term": map[string]any{
					"name.keyword": map[string]any{
						"value": query,
						"boost": 5,
					},
				},
			},
		}
		boolQuery["minimum_should_match"] = 1
	}

	if filters := buildFilterClauses(req.Filters); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	body := map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"from":  (req.Page - 1) * req.Limit,
		"size":  req.Limit,
	}

	switch req.SortBy {
	case domain.SearchSortByYear:
		body["sort"] = []any{map[string]any{"year": "desc"}}
	case domain.SearchSortByRating:
		body["sort"] = []any{map[string]any{"rating": "desc"}}
	case domain.SearchSortByView:
		body["sort"] = []any{map[string]any{"view": "desc"}}
	}
	return body
}

func buildFilterClauses(f domain.SearchFilters) []any {
	var clauses []any

	if f.Type != "" {
		clauses = append(clauses, map[string]any{"term": map[string]any{"type": f.Type}})
	}
	if f.Section != "" {
		clauses = append(clauses, map[string]any{"term": map[string]any{"section": f.Section}})
	}
	if f.Recommended != nil {
		clauses = append(clauses, map[string]any{"term": map[string]any{"isRecommended": *f.Recommended}})
	}
	if f.YearFrom > 0 || f.YearTo > 0 {
		bounds := map[string]any{}
		if f.YearFrom > 0 {
			bounds["gte"] = f.YearFrom
		}
		if f.YearTo > 0 {
			bounds["lte"] = f.YearTo
		}
		clauses = append(clauses, map[string]any{"range": map[string]any{"year": bounds}})
	}
	if len(f.CategorySlugs) > 0 {
		clauses = append(clauses, map[string]any{
			"nested": map[string]any{
				"path": "categories",
				"query": map[string]any{
					"terms": map[string]any{"categories.slug": f.CategorySlugs},
				},
			},
		})
	}
	if len(f.CountrySlugs) > 0 {
		clauses = append(clauses, map[string]any{
			"nested": map[string]any{
				"path": "countries",
				"query": map[string]any{
					"terms": map[string]any{"countries.slug": f.CountrySlugs},
				},
			},
		})
	}
	return clauses
}

// Suggest returns up to limit distinct titles matching the prefix on the
// autocomplete sub-fields. Each hit contributes whichever of name or
// originName actually matched, so an English origin title surfaces as itself
// rather than as its Vietnamese counterpart.
func (c *Client) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  prefix,
				"type":   "phrase_prefix",
				"fields": []string{"name.autocomplete", "originName.autocomplete"},
			},
		},
		"size":    limit * 2,
		"_source": []string{"name", "originName"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(MoviesIndex),
		c.es.Search.WithBody(&buf),
	)
	observe("suggest", start, err)
	if err != nil {
		return nil, fmt.Errorf("index: suggest: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("index: suggest [%s]: %s", res.Status(), truncate(raw, 512))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Name       string `json:"name"`
					OriginName string `json:"originName"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("index: decode suggest: %w", err)
	}

	folded := normalize.Text(prefix)
	seen := make(map[string]struct{})
	suggestions := make([]string, 0, limit)
	for _, hit := range parsed.Hits.Hits {
		title := pickSuggestion(hit.Source.Name, hit.Source.OriginName, folded)
		if title == "" {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		suggestions = append(suggestions, title)
		if len(suggestions) == limit {
			break
		}
	}
	return suggestions, nil
}

// pickSuggestion chooses the title that carries the prefix. When neither
// matches cleanly (the engine matched a later word, or via folding rules this
// check doesn't replicate) the primary name wins.
func pickSuggestion(name, originName, foldedPrefix string) string {
	if hasTokenPrefix(name, foldedPrefix) {
		return name
	}
	if hasTokenPrefix(originName, foldedPrefix) {
		return originName
	}
	if name != "" {
		return name
	}
	return originName
}

func hasTokenPrefix(title, foldedPrefix string) bool {
	if title == "" || foldedPrefix == "" {
		return false
	}
	folded := normalize.Text(title)
	if strings.HasPrefix(folded, foldedPrefix) {
		return true
	}
	for _, token := range strings.Fields(folded) {
		if strings.HasPrefix(token, foldedPrefix) {
			return true
		}
	}
	return false
}

func truncate(raw []byte, max int) string {
	if len(raw) <= max {
		return string(raw)
	}
	return string(raw[:max]) + "..."
}
