// Package ophim implements the ophim1.com metadata provider. Unlike phimapi
// it wraps list responses in a data envelope and serves relative image paths
// that need the CDN prefix from pathImage.
package ophim

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
	defaultBaseURL   = "https://ophim1.com"
	defaultImageBase = "https://img.ophim.live/uploads/movies"
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

type listPayload struct {
	Status string `json:"status"`
	Data   struct {
		Items     []common.Item `json:"items"`
		PathImage string        `json:"APP_DOMAIN_CDN_IMAGE"`
		Params    struct {
			Pagination common.Pagination `json:"pagination"`
		} `json:"params"`
	} `json:"data"`
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
	return "ophim"
}

func (p *Provider) Search(ctx context.Context, keyword string, page int) (domain.MovieListResponse, error) {
	uri := p.baseURL + "/v1/api/tim-kiem?keyword=" + url.QueryEscape(strings.TrimSpace(keyword)) +
		"&page=" + strconv.Itoa(normalizePage(page))
	return p.list(ctx, uri)
}

func (p *Provider) Latest(ctx context.Context, page int) (domain.MovieListResponse, error) {
	uri := p.baseURL + "/v1/api/danh-sach/phim-moi-cap-nhat?page=" + strconv.Itoa(normalizePage(page))
	return p.list(ctx, uri)
}

func (p *Provider) Detail(ctx context.Context, slug string) (domain.Movie, []domain.Episode, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Movie{}, nil, fmt.Errorf("ophim: empty slug")
	}

	var payload detailPayload
	uri := p.baseURL + "/phim/" + url.PathEscape(slug)
	if err := common.GetJSON(ctx, p.client, p.log, p.Name(), p.userAgent, uri, &payload); err != nil {
		return domain.Movie{}, nil, err
	}
	if !payload.Status {
		return domain.Movie{}, nil, fmt.Errorf("ophim: detail %q: %s", slug, payload.Msg)
	}

	movie, ok := payload.Movie.ToMovie(defaultImageBase)
	if !ok {
		return domain.Movie{}, nil, fmt.Errorf("ophim: detail %q: movie missing slug or name", slug)
	}
	return movie, common.FlattenEpisodes(movie.Slug, payload.Episodes), nil
}

func (p *Provider) list(ctx context.Context, uri string) (domain.MovieListResponse, error) {
	var payload listPayload
	if err := common.GetJSON(ctx, p.client, p.log, p.Name(), p.userAgent, uri, &payload); err != nil {
		return domain.MovieListResponse{}, err
	}

	imageBase := strings.TrimSpace(payload.Data.PathImage)
	if imageBase == "" {
		imageBase = defaultImageBase
	}

	items := make([]domain.Movie, 0, len(payload.Data.Items))
	for _, item := range payload.Data.Items {
		if movie, ok := item.ToMovie(imageBase); ok {
			items = append(items, movie)
		}
	}
	return domain.MovieListResponse{
		Status:     strings.EqualFold(payload.Status, "success"),
		Items:      items,
		Pagination: payload.Data.Params.Pagination.ToPagination(),
	}, nil
}

func normalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
