// Package index talks to Elasticsearch. The catalog stays the source of
// truth; the index is a read-optimized projection kept current by the sync
// layer, and every search entry point degrades gracefully when it is down.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"moviestream/searchservice/internal/metrics"
)

const (
	MoviesIndex   = "movies"
	EpisodesIndex = "episodes"
)

// Client wraps the Elasticsearch client with movie-level operations.
type Client struct {
	es  *elasticsearch.Client
	log *slog.Logger
}

// New creates a client for the given URL and pings the cluster. A failed ping
// is returned as an error so the caller can choose to run without the index.
func New(ctx context.Context, url string, log *slog.Logger) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("index: create client: %w", err)
	}

	c := &Client{es: es, log: log}
	res, err := es.Ping(es.Ping.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("index: ping %s: %w", url, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("index: ping %s: %s", url, res.Status())
	}
	return c, nil
}

// Initialize creates the movies and episodes indices when they don't exist.
// Existing indices are left untouched, so startup is idempotent.
func (c *Client) Initialize(ctx context.Context) error {
	for name, mapping := range map[string]string{
		MoviesIndex:   moviesMapping,
		EpisodesIndex: episodesMapping,
	} {
		exists, err := c.indexExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := c.createIndex(ctx, name, mapping); err != nil {
			return err
		}
		c.log.Info("created index", "index", name)
	}
	return nil
}

// Reindex drops both indices and recreates them empty. The caller is
// expected to follow up with a full sync.
func (c *Client) Reindex(ctx context.Context) error {
	res, err := c.es.Indices.Delete(
		[]string{MoviesIndex, EpisodesIndex},
		c.es.Indices.Delete.WithContext(ctx),
		c.es.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("index: delete indices: %w", err)
	}
	drainAndClose(res.Body)
	if res.IsError() {
		return fmt.Errorf("index: delete indices: %s", res.Status())
	}
	return c.Initialize(ctx)
}

// Health reports whether the cluster answers a ping.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index: ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index: ping: %s", res.Status())
	}
	return nil
}

// CountMovies returns the number of documents in the movies index.
func (c *Client) CountMovies(ctx context.Context) (int, error) {
	return c.count(ctx, MoviesIndex, nil)
}

// Refresh makes all pending writes visible to search.
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(MoviesIndex, EpisodesIndex),
	)
	if err != nil {
		return fmt.Errorf("index: refresh: %w", err)
	}
	drainAndClose(res.Body)
	if res.IsError() {
		return fmt.Errorf("index: refresh: %s", res.Status())
	}
	return nil
}

func (c *Client) indexExists(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.Exists(
		[]string{name},
		c.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("index: check %s: %w", name, err)
	}
	drainAndClose(res.Body)
	return res.StatusCode == 200, nil
}

func (c *Client) createIndex(ctx context.Context, name, mapping string) error {
	res, err := c.es.Indices.Create(
		name,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("index: create %s: %w", name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index: create %s [%s]: %s", name, res.Status(), body)
	}
	return nil
}

// count runs _count with an optional query body against one index.
func (c *Client) count(ctx context.Context, indexName string, query map[string]any) (int, error) {
	var body io.Reader
	if query != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(map[string]any{"query": query}); err != nil {
			return 0, err
		}
		body = &buf
	}

	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(indexName),
		c.es.Count.WithBody(body),
	)
	if err != nil {
		return 0, fmt.Errorf("index: count %s: %w", indexName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return 0, fmt.Errorf("index: count %s [%s]: %s", indexName, res.Status(), raw)
	}

	var parsed struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("index: decode count: %w", err)
	}
	return parsed.Count, nil
}

// observe records one index operation in the metrics registry.
func observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IndexRequestsTotal.WithLabelValues(operation, status).Inc()
	metrics.IndexRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}
