// Package phimapi implements the phimapi.com metadata provider.
package phimapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"moviestream/searchservice/internal/domain"
	"moviestream/searchservice/internal/providers/common"
)

const (
	defaultBaseURL   = "https://phimapi.com"
	defaultUserAgent = "movie-stream-search/1.0"
)

type Config struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
	Logger    *slog.Logger
}

type Provider struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	userAgent string
}

// listPayload is the flat list shape phimapi uses for search and the
// latest-updates feed.
type listPayload struct {
	Status     bool              `json:"status"`
	Items      []common.Item     `json:"items"`
	Pagination common.Pagination `json:"pagination"`
}

type detailPayload struct {
	Status   bool                  `json:"status"`
	Msg      string                `json:"msg"`
	Movie    common.Item           `json:"movie"`
	Episodes []common.EpisodeGroup `json:"episodes"`
}

func NewProvider(cfg Config) *Provider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Provider{client: client, log: log, baseURL: baseURL, userAgent: userAgent}
}

func (p *Provider) Name() string {
	return "phimapi"
}

func (p *Provider) Search(ctx context.Context, keyword string, page int) (domain.MovieListResponse, error) {
	uri := p.baseURL + "/v1/api/tim-kiem?keyword=" + url.QueryEscape(strings.TrimSpace(keyword)) +
		"&page=" + strconv.Itoa(normalizePage(page))
	return p.list(ctx, uri)
}

func (p *Provider) Latest(ctx context.Context, page int) (domain.MovieListResponse, error) {
	uri := p.baseURL + "/danh-sach/phim-moi-cap-nhat?page=" + strconv.Itoa(normalizePage(page))
	return p.list(ctx, uri)
}

func (p *Provider) Detail(ctx context.Context, slug string) (domain.Movie, []domain.Episode, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Movie{}, nil, fmt.Errorf("phimapi: empty slug")
	}

	var payload detailPayload
	uri := p.baseURL + "/phim/" + url.PathEscape(slug)
	if err := common.GetJSON(ctx, p.client, p.log, p.Name(), p.userAgent, uri, &payload); err != nil {
		return domain.Movie{}, nil, err
	}
	if !payload.Status {
		return domain.Movie{}, nil, fmt.Errorf("phimapi: detail %q: %s", slug, payload.Msg)
	}

	movie, ok := payload.Movie.ToMovie("")
	if !ok {
		return domain.Movie{}, nil, fmt.Errorf("phimapi: detail %q: movie missing slug or name", slug)
	}
	return movie, common.FlattenEpisodes(movie.Slug, payload.Episodes), nil
}

func (p *Provider) list(ctx context.Context, uri string) (domain.MovieListResponse, error) {
	var payload listPayload
	if err := common.GetJSON(ctx, p.client, p.log, p.Name(), p.userAgent, uri, &payload); err != nil {
		return domain.MovieListResponse{}, err
	}

	items := make([]domain.Movie, 0, len(payload.Items))
	for _, item := range payload.Items {
		if movie, ok := item.ToMovie(""); ok {
			items = append(items, movie)
		}
	}
	return domain.MovieListResponse{
		Status:     payload.Status,
		Items:      items,
		Pagination: payload.Pagination.ToPagination(),
	}, nil
}

func normalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
