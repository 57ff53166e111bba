// Package syncer pushes catalog state into the search index. All writes flow
// one way, catalog to index; every operation is idempotent so a crashed run
// can simply be repeated.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moviestream/searchservice/internal/catalog"
	"moviestream/searchservice/internal/domain"
	"moviestream/searchservice/internal/index"
	"moviestream/searchservice/internal/metrics"
)

// syncTolerance is the absolute catalog/index count difference still
// considered in sync, covering incremental writes in flight.
const syncTolerance = 5

// Catalog is the slice of the repository the syncer reads from.
type Catalog interface {
	GetMovies(ctx context.Context, page, limit int) ([]domain.Movie, int, error)
	GetMovieBySlug(ctx context.Context, slug string) (domain.Movie, error)
	GetEpisodesByMovieSlug(ctx context.Context, movieSlug string) ([]domain.Episode, error)
	CountMovies(ctx context.Context) (int, error)
	GetSyncSnapshot(ctx context.Context, movieSlug string) (domain.SyncSnapshot, error)
	SaveSyncSnapshot(ctx context.Context, snap domain.SyncSnapshot) error
}

// Index is the slice of the index client the syncer writes to.
type Index interface {
	IndexMovie(ctx context.Context, movie domain.Movie) error
	IndexMovies(ctx context.Context, movies []domain.Movie) (index.BulkReport, error)
	IndexEpisodes(ctx context.Context, episodes []domain.Episode) (index.BulkReport, error)
	DeleteMovie(ctx context.Context, slug string) error
	CountMovies(ctx context.Context) (int, error)
	Refresh(ctx context.Context) error
}

// FullSyncReport summarizes one full catalog walk.
type FullSyncReport struct {
	CatalogTotal int           `json:"catalogTotal"`
	Indexed      int           `json:"indexed"`
	Failed       int           `json:"failed"`
	Errors       []string      `json:"errors,omitempty"`
	Elapsed      time.Duration `json:"-"`
	ElapsedMS    int64         `json:"elapsedMs"`
}

type Service struct {
	catalog   Catalog
	index     Index
	log       *slog.Logger
	pageSize  int
	chunkSize int

	// onChange fires after every index mutation so caches can drop stale
	// entries. Nil when no cache is wired.
	onChange func()
}

func New(cat Catalog, idx Index, log *slog.Logger, pageSize, chunkSize int) *Service {
	if pageSize <= 0 {
		pageSize = 1000
	}
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &Service{
		catalog:   cat,
		index:     idx,
		log:       log,
		pageSize:  pageSize,
		chunkSize: chunkSize,
	}
}

// SetChangeHook registers a callback invoked after index mutations.
func (s *Service) SetChangeHook(fn func()) {
	s.onChange = fn
}

// FullSync walks the whole catalog in pages and bulk-indexes it in fixed
// chunks. Duplicate slugs within a run collapse to the last occurrence, so
// re-running never duplicates documents.
func (s *Service) FullSync(ctx context.Context) (FullSyncReport, error) {
	start := time.Now()
	report := FullSyncReport{}

	seen := make(map[string]int)
	var movies []domain.Movie

	for page := 1; ; page++ {
		batch, total, err := s.catalog.GetMovies(ctx, page, s.pageSize)
		if err != nil {
			metrics.SyncRunsTotal.WithLabelValues("full", "error").Inc()
			return report, fmt.Errorf("syncer: read catalog page %d: %w", page, err)
		}
		report.CatalogTotal = total

		for _, movie := range batch {
			if at, dup := seen[movie.Slug]; dup {
				movies[at] = movie
				continue
			}
			seen[movie.Slug] = len(movies)
			movies = append(movies, movie)
		}
		if len(batch) < s.pageSize {
			break
		}
	}

	for offset := 0; offset < len(movies); offset += s.chunkSize {
		end := offset + s.chunkSize
		if end > len(movies) {
			end = len(movies)
		}
		chunk, err := s.index.IndexMovies(ctx, movies[offset:end])
		if err != nil {
			metrics.SyncRunsTotal.WithLabelValues("full", "error").Inc()
			return report, fmt.Errorf("syncer: bulk chunk at %d: %w", offset, err)
		}
		report.Indexed += chunk.Indexed
		report.Failed += chunk.Failed
		report.Errors = append(report.Errors, chunk.Errors...)
	}

	if err := s.index.Refresh(ctx); err != nil {
		s.log.Warn("refresh after full sync failed", "error", err)
	}
	if s.onChange != nil {
		s.onChange()
	}

	report.Elapsed = time.Since(start)
	report.ElapsedMS = report.Elapsed.Milliseconds()
	metrics.SyncRunsTotal.WithLabelValues("full", "ok").Inc()
	metrics.SyncDocumentsTotal.Add(float64(report.Indexed))
	s.log.Info("full sync finished",
		"catalogTotal", report.CatalogTotal,
		"indexed", report.Indexed,
		"failed", report.Failed,
		"elapsed", report.Elapsed)
	return report, nil
}

// SyncMovie mirrors one movie and its episodes into the index and refreshes
// the movie's sync snapshot.
func (s *Service) SyncMovie(ctx context.Context, slug string) error {
	movie, err := s.catalog.GetMovieBySlug(ctx, slug)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("movie", "error").Inc()
		return fmt.Errorf("syncer: load movie %q: %w", slug, err)
	}
	episodes, err := s.catalog.GetEpisodesByMovieSlug(ctx, slug)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("movie", "error").Inc()
		return fmt.Errorf("syncer: load episodes for %q: %w", slug, err)
	}

	if err := s.index.IndexMovie(ctx, movie); err != nil {
		metrics.SyncRunsTotal.WithLabelValues("movie", "error").Inc()
		return err
	}
	report, err := s.index.IndexEpisodes(ctx, episodes)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("movie", "error").Inc()
		return err
	}
	if report.Failed > 0 {
		s.log.Warn("episode sync had failures", "movieSlug", slug, "failed", report.Failed)
	}

	if err := s.UpdateSnapshot(ctx, slug, episodes); err != nil {
		s.log.Warn("snapshot update failed", "movieSlug", slug, "error", err)
	}
	if s.onChange != nil {
		s.onChange()
	}

	metrics.SyncRunsTotal.WithLabelValues("movie", "ok").Inc()
	metrics.SyncDocumentsTotal.Add(float64(1 + report.Indexed))
	return nil
}

// DeleteMovie removes a movie and its episodes from the index after the
// catalog row is gone.
func (s *Service) DeleteMovie(ctx context.Context, slug string) error {
	if err := s.index.DeleteMovie(ctx, slug); err != nil {
		metrics.SyncRunsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}
	if s.onChange != nil {
		s.onChange()
	}
	metrics.SyncRunsTotal.WithLabelValues("delete", "ok").Inc()
	return nil
}

// CheckSyncStatus compares catalog and index document counts. The two are
// considered in sync when they differ by at most syncTolerance.
func (s *Service) CheckSyncStatus(ctx context.Context) (domain.SyncStatus, error) {
	relational, err := s.catalog.CountMovies(ctx)
	if err != nil {
		return domain.SyncStatus{}, fmt.Errorf("syncer: count catalog: %w", err)
	}
	indexed, err := s.index.CountMovies(ctx)
	if err != nil {
		return domain.SyncStatus{}, fmt.Errorf("syncer: count index: %w", err)
	}

	diff := relational - indexed
	if diff < 0 {
		diff = -diff
	}
	return domain.SyncStatus{
		RelationalCount: relational,
		IndexCount:      indexed,
		InSync:          diff <= syncTolerance,
	}, nil
}

// UpdateSnapshot records the movie's current episode shape for change
// detection.
func (s *Service) UpdateSnapshot(ctx context.Context, movieSlug string, episodes []domain.Episode) error {
	snap := domain.SyncSnapshot{
		MovieSlug:    movieSlug,
		EpisodeCount: len(episodes),
		UpdatedAt:    time.Now().UTC(),
	}
	if len(episodes) > 0 {
		snap.LastEpisodeSlug = episodes[len(episodes)-1].Slug
	}
	return s.catalog.SaveSyncSnapshot(ctx, snap)
}

// DetectEpisodeChanges reports whether the given episode set differs from
// the stored snapshot. A missing snapshot always counts as changed.
func (s *Service) DetectEpisodeChanges(ctx context.Context, movieSlug string, episodes []domain.Episode) (bool, error) {
	snap, err := s.catalog.GetSyncSnapshot(ctx, movieSlug)
	if errors.Is(err, catalog.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	if snap.EpisodeCount != len(episodes) {
		return true, nil
	}
	last := ""
	if len(episodes) > 0 {
		last = episodes[len(episodes)-1].Slug
	}
	return snap.LastEpisodeSlug != last, nil
}
