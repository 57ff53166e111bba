package ophim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
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

func TestSearchUnwrapsDataEnvelope(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/api/tim-kiem" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{
			"status": "success",
			"data": {
				"APP_DOMAIN_CDN_IMAGE": "https://img.ophim.live/uploads/movies",
				"items": [
					{"slug": "dao-hai-tac", "name": "Đảo Hải Tặc", "thumb_url": "dao-hai-tac-thumb.jpg"}
				],
				"params": {"pagination": {"totalItems": 1, "totalPages": 1, "currentPage": 1, "totalItemsPerPage": 24}}
			}
		}`)
	})

	resp, err := provider.Search(context.Background(), "đảo hải tặc", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Status || len(resp.Items) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got := resp.Items[0].ThumbURL; !strings.HasPrefix(got, "https://img.ophim.live/") {
		t.Fatalf("relative thumb not prefixed with CDN: %q", got)
	}
	if resp.Pagination.TotalItems != 1 {
		t.Fatalf("unexpected pagination: %+v", resp.Pagination)
	}
}

func TestDetailUsesFlatShape(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/phim/dao-hai-tac" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{
			"status": true,
			"movie": {"slug": "dao-hai-tac", "name": "Đảo Hải Tặc"},
			"episodes": [{"server_name": "Vietsub", "server_data": [{"slug": "1", "name": "Tập 1"}]}]
		}`)
	})

	movie, episodes, err := provider.Detail(context.Background(), "dao-hai-tac")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if movie.Slug != "dao-hai-tac" {
		t.Fatalf("unexpected movie: %+v", movie)
	}
	if len(episodes) != 1 || episodes[0].Slug != "dao-hai-tac-1" {
		t.Fatalf("unexpected episodes: %+v", episodes)
	}
}

func TestSearchRejectsFailedStatus(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status": "error", "data": {"items": []}}`)
	})

	resp, err := provider.Search(context.Background(), "x", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status {
		t.Fatalf("non-success status must map to Status=false")
	}
}
