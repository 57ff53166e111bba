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
)

// BulkReport summarizes one _bulk call. Partial failure is normal: the
// successful items stay indexed and the failures are listed per document.
type BulkReport struct {
	Indexed int      `json:"indexed"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// IndexMovie upserts a single movie document keyed by slug. Re-indexing the
// same movie overwrites in place, never duplicates.
func (c *Client) IndexMovie(ctx context.Context, movie domain.Movie) (err error) {
	defer func(start time.Time) { observe("index_movie", start, err) }(time.Now())

	body, err := json.Marshal(movie)
	if err != nil {
		return fmt.Errorf("index: marshal movie %q: %w", movie.Slug, err)
	}

	res, err := c.es.Index(
		MoviesIndex,
		bytes.NewReader(body),
		c.es.Index.WithDocumentID(movie.Slug),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index: index movie %q: %w", movie.Slug, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index: index movie %q [%s]: %s", movie.Slug, res.Status(), raw)
	}
	return nil
}

// IndexMovies writes one _bulk request for the given chunk. Item-level
// failures do not fail the call; they are counted and reported.
func (c *Client) IndexMovies(ctx context.Context, movies []domain.Movie) (report BulkReport, err error) {
	defer func(start time.Time) { observe("bulk_movies", start, err) }(time.Now())

	if len(movies) == 0 {
		return BulkReport{}, nil
	}

	var buf bytes.Buffer
	for _, movie := range movies {
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`, MoviesIndex, movie.Slug)
		doc, merr := json.Marshal(movie)
		if merr != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", movie.Slug, merr))
			continue
		}
		buf.WriteString(meta)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	return c.bulk(ctx, &buf, report)
}

// IndexEpisodes bulk-writes episode documents keyed by their globally unique
// slug, then recomputes episodeCount for every movie touched. Counts are
// always recomputed from the episodes index, never incremented, so replays
// stay idempotent.
func (c *Client) IndexEpisodes(ctx context.Context, episodes []domain.Episode) (report BulkReport, err error) {
	defer func(start time.Time) { observe("bulk_episodes", start, err) }(time.Now())

	if len(episodes) == 0 {
		return BulkReport{}, nil
	}

	var buf bytes.Buffer
	touched := make(map[string]struct{})
	for _, ep := range episodes {
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`, EpisodesIndex, ep.Slug)
		doc, merr := json.Marshal(ep)
		if merr != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", ep.Slug, merr))
			continue
		}
		buf.WriteString(meta)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
		touched[ep.MovieSlug] = struct{}{}
	}

	report, err = c.bulk(ctx, &buf, report)
	if err != nil {
		return report, err
	}

	for movieSlug := range touched {
		if cerr := c.RecomputeEpisodeCount(ctx, movieSlug); cerr != nil {
			c.log.Warn("episode count recompute failed", "movieSlug", movieSlug, "error", cerr)
		}
	}
	return report, nil
}

// RecomputeEpisodeCount counts the movie's episode documents and writes the
// result onto the movie document.
func (c *Client) RecomputeEpisodeCount(ctx context.Context, movieSlug string) error {
	count, err := c.count(ctx, EpisodesIndex, map[string]any{
		"term": map[string]any{"movieSlug": movieSlug},
	})
	if err != nil {
		return err
	}

	update := fmt.Sprintf(`{"doc":{"episodeCount":%d}}`, count)
	res, err := c.es.Update(
		MoviesIndex,
		movieSlug,
		strings.NewReader(update),
		c.es.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index: update episode count for %q: %w", movieSlug, err)
	}
	defer res.Body.Close()
	// 404 means the movie document isn't indexed yet; the count lands on the
	// next movie sync.
	if res.IsError() && res.StatusCode != 404 {
		raw, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index: update episode count for %q [%s]: %s", movieSlug, res.Status(), raw)
	}
	return nil
}

// DeleteMovie removes the movie document and cascades to its episode
// documents via delete_by_query. A missing movie document is not an error.
func (c *Client) DeleteMovie(ctx context.Context, slug string) (err error) {
	defer func(start time.Time) { observe("delete_movie", start, err) }(time.Now())

	res, err := c.es.Delete(
		MoviesIndex,
		slug,
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index: delete movie %q: %w", slug, err)
	}
	drainAndClose(res.Body)
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("index: delete movie %q: %s", slug, res.Status())
	}

	query := fmt.Sprintf(`{"query":{"term":{"movieSlug":%q}}}`, slug)
	res, err = c.es.DeleteByQuery(
		[]string{EpisodesIndex},
		strings.NewReader(query),
		c.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index: delete episodes for %q: %w", slug, err)
	}
	drainAndClose(res.Body)
	if res.IsError() {
		return fmt.Errorf("index: delete episodes for %q: %s", slug, res.Status())
	}
	return nil
}

// bulk sends the NDJSON payload and folds item errors into the report.
func (c *Client) bulk(ctx context.Context, payload io.Reader, report BulkReport) (BulkReport, error) {
	res, err := c.es.Bulk(
		payload,
		c.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return report, fmt.Errorf("index: bulk: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return report, fmt.Errorf("index: bulk [%s]: %s", res.Status(), raw)
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return report, fmt.Errorf("index: decode bulk response: %w", err)
	}

	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Error != nil || result.Status >= 400 {
				report.Failed++
				reason := fmt.Sprintf("status %d", result.Status)
				if result.Error != nil {
					reason = result.Error.Reason
				}
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", result.ID, reason))
			} else {
				report.Indexed++
			}
		}
	}
	return report, nil
}
