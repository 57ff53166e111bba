package index

import (
	"encoding/json"
	"strings"
	"testing"

	"moviestream/searchservice/internal/domain"
)

func boolQuery(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	query, ok := body["query"].(map[string]any)
	if !ok {
		t.Fatalf("missing query: %v", body)
	}
	b, ok := query["bool"].(map[string]any)
	if !ok {
		t.Fatalf("missing bool query: %v", query)
	}
	return b
}

func TestBuildSearchBodyBlankQueryIsMatchAll(t *testing.T) {
	body := buildSearchBody(domain.SearchRequest{Query: "  ", Page: 1, Limit: 10})
	b := boolQuery(t, body)

	must, ok := b["must"].([]any)
	if !ok || len(must) != 1 {
		t.Fatalf("expected single must clause, got %v", b["must"])
	}
	if _, ok := must[0].(map[string]any)["match_all"]; !ok {
		t.Fatalf("expected match_all, got %v", must[0])
	}
	if _, ok := b["should"]; ok {
		t.Fatalf("blank query must not produce should clauses")
	}
}

func TestBuildSearchBodyTextQuery(t *testing.T) {
	body := buildSearchBody(domain.SearchRequest{Query: "hà nội", Page: 1, Limit: 10})
	b := boolQuery(t, body)

	should, ok := b["should"].([]any)
	if !ok || len(should) != 2 {
		t.Fatalf("expected multi_match + exact term, got %v", b["should"])
	}
	if b["minimum_should_match"] != 1 {
		t.Fatalf("expected minimum_should_match 1, got %v", b["minimum_should_match"])
	}

	raw, _ := json.Marshal(should)
	for _, want := range []string{"name^3", "name.autocomplete^2", "originName^2", "name.keyword", `"boost":5`, `"fuzziness":"AUTO"`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("should clauses missing %q: %s", want, raw)
		}
	}
}

func TestBuildSearchBodyPagination(t *testing.T) {
	body := buildSearchBody(domain.SearchRequest{Query: "x", Page: 3, Limit: 20})
	if body["from"] != 40 {
		t.Fatalf("expected from 40, got %v", body["from"])
	}
	if body["size"] != 20 {
		t.Fatalf("expected size 20, got %v", body["size"])
	}
}

func TestBuildSearchBodySortOverridesRelevance(t *testing.T) {
	cases := map[domain.SearchSortBy]string{
		domain.SearchSortByYear:   "year",
		domain.SearchSortByRating: "rating",
		domain.SearchSortByView:   "view",
	}
	for sortBy, field := range cases {
		body := buildSearchBody(domain.SearchRequest{Query: "x", Page: 1, Limit: 10, SortBy: sortBy})
		sort, ok := body["sort"].([]any)
		if !ok || len(sort) != 1 {
			t.Fatalf("sortBy %q: missing sort clause", sortBy)
		}
		if sort[0].(map[string]any)[field] != "desc" {
			t.Fatalf("sortBy %q: expected %s desc, got %v", sortBy, field, sort[0])
		}
	}

	body := buildSearchBody(domain.SearchRequest{Query: "x", Page: 1, Limit: 10, SortBy: domain.SearchSortByRelevance})
	if _, ok := body["sort"]; ok {
		t.Fatalf("relevance must sort by score, got explicit sort %v", body["sort"])
	}
}

func TestBuildSearchBodyFilters(t *testing.T) {
	recommended := true
	body := buildSearchBody(domain.SearchRequest{
		Query: "x", Page: 1, Limit: 10,
		Filters: domain.SearchFilters{
			Type:          "series",
			Section:       "phim-bo",
			Recommended:   &recommended,
			YearFrom:      2010,
			YearTo:        2020,
			CategorySlugs: []string{"hanh-dong"},
			CountrySlugs:  []string{"viet-nam", "han-quoc"},
		},
	})
	b := boolQuery(t, body)

	filters, ok := b["filter"].([]any)
	if !ok {
		t.Fatalf("missing filter clauses")
	}
	if len(filters) != 6 {
		t.Fatalf("expected 6 filter clauses, got %d", len(filters))
	}

	raw, _ := json.Marshal(filters)
	for _, want := range []string{
		`"type":"series"`,
		`"section":"phim-bo"`,
		`"isRecommended":true`,
		`"gte":2010`,
		`"lte":2020`,
		`"path":"categories"`,
		`"categories.slug":["hanh-dong"]`,
		`"path":"countries"`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("filter clauses missing %q: %s", want, raw)
		}
	}
}

func TestBuildSearchBodyNoFiltersOmitsFilterKey(t *testing.T) {
	body := buildSearchBody(domain.SearchRequest{Query: "x", Page: 1, Limit: 10})
	if _, ok := boolQuery(t, body)["filter"]; ok {
		t.Fatalf("empty filters must not emit a filter key")
	}
}
