package phimapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"moviestream/searchservice/internal/retry"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewProvider(Config{
		BaseURL: srv.URL,
		Client:  srv.Client(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestSearchParsesFlatListShape(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/api/tim-kiem" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("keyword"); got != "tây du ký" {
			t.Fatalf("unexpected keyword %q", got)
		}
		io.WriteString(w, `{
			"status": true,
			"items": [
				{"slug": "tay-du-ky", "name": "Tây Du Ký", "origin_name": "Journey to the West", "year": 1986,
				 "category": [{"id": "1", "name": "Cổ Trang", "slug": "co-trang"}]}
			],
			"pagination": {"totalItems": 1, "totalPages": 1, "currentPage": 1, "totalItemsPerPage": 24}
		}`)
	})

	resp, err := provider.Search(context.Background(), "tây du ký", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Status || len(resp.Items) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	movie := resp.Items[0]
	if movie.Slug != "tay-du-ky" || movie.Year != 1986 {
		t.Fatalf("unexpected movie: %+v", movie)
	}
	if len(movie.Categories) != 1 || movie.Categories[0].Slug != "co-trang" {
		t.Fatalf("unexpected categories: %+v", movie.Categories)
	}
	if resp.Pagination.TotalItems != 1 || resp.Pagination.ItemsPerPage != 24 {
		t.Fatalf("unexpected pagination: %+v", resp.Pagination)
	}
}

func TestDetailFlattensEpisodes(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/phim/tay-du-ky" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{
			"status": true,
			"movie": {"slug": "tay-du-ky", "name": "Tây Du Ký"},
			"episodes": [
				{"server_name": "Vietsub #1", "server_data": [
					{"slug": "1", "name": "Tập 1", "link_m3u8": "https://cdn/1.m3u8"},
					{"slug": "2", "name": "Tập 2", "link_m3u8": "https://cdn/2.m3u8"}
				]}
			]
		}`)
	})

	movie, episodes, err := provider.Detail(context.Background(), "tay-du-ky")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if movie.Slug != "tay-du-ky" {
		t.Fatalf("unexpected movie: %+v", movie)
	}
	if len(episodes) != 2 || episodes[0].Slug != "tay-du-ky-1" {
		t.Fatalf("unexpected episodes: %+v", episodes)
	}
	if episodes[0].ServerName != "Vietsub #1" {
		t.Fatalf("server name lost: %+v", episodes[0])
	}
}

func TestDetailMapsMissingSlugToNotFound(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, _, err := provider.Detail(context.Background(), "khong-ton-tai")
	if !errors.Is(err, retry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchRetriesServerErrors(t *testing.T) {
	attempts := 0
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"status": true, "items": [], "pagination": {}}`)
	})

	resp, err := provider.Search(context.Background(), "x", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected retry after 502, got %d attempts", attempts)
	}
	if !resp.Status {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSearchRejectsMalformedPayload(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>maintenance</html>`)
	})

	if _, err := provider.Search(context.Background(), "x", 1); err == nil {
		t.Fatalf("expected error on malformed payload")
	}
}
