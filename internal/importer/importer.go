// Package importer pulls movies from an external metadata provider into the
// catalog and pushes each imported movie through the sync layer.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moviestream/searchservice/internal/domain"
	"moviestream/searchservice/internal/providers"
	"moviestream/searchservice/internal/retry"
)

// Catalog is the write surface the importer needs.
type Catalog interface {
	SaveMovie(ctx context.Context, movie domain.Movie) (domain.Movie, error)
	SaveEpisode(ctx context.Context, ep domain.Episode) (domain.Episode, error)
	SetEpisodeCount(ctx context.Context, movieSlug string, count int) error
}

// Sync mirrors imported movies into the search index.
type Sync interface {
	SyncMovie(ctx context.Context, slug string) error
	DetectEpisodeChanges(ctx context.Context, movieSlug string, episodes []domain.Episode) (bool, error)
}

// Report summarizes one import run.
type Report struct {
	PagesFetched     int      `json:"pagesFetched"`
	MoviesImported   int      `json:"moviesImported"`
	EpisodesImported int      `json:"episodesImported"`
	Unchanged        int      `json:"unchanged"`
	Failed           int      `json:"failed"`
	Errors           []string `json:"errors,omitempty"`
	ElapsedMS        int64    `json:"elapsedMs"`
}

type Service struct {
	provider providers.MetadataProvider
	catalog  Catalog
	sync     Sync
	log      *slog.Logger
}

func New(provider providers.MetadataProvider, cat Catalog, sync Sync, log *slog.Logger) *Service {
	return &Service{provider: provider, catalog: cat, sync: sync, log: log}
}

// Run imports the given number of latest-updates pages. One broken movie
// never aborts the run; it is counted and the walk continues.
func (s *Service) Run(ctx context.Context, pages int) (Report, error) {
	start := time.Now()
	if pages <= 0 {
		pages = 1
	}

	var report Report
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		list, err := s.provider.Latest(ctx, page)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("page %d: %v", page, err))
			s.log.Warn("latest-updates page failed", "provider", s.provider.Name(), "page", page, "error", err)
			continue
		}
		report.PagesFetched++

		for _, item := range list.Items {
			if err := s.ImportMovie(ctx, item.Slug, &report); err != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", item.Slug, err))
			}
		}
	}

	report.ElapsedMS = time.Since(start).Milliseconds()
	s.log.Info("import finished",
		"provider", s.provider.Name(),
		"pages", report.PagesFetched,
		"movies", report.MoviesImported,
		"episodes", report.EpisodesImported,
		"unchanged", report.Unchanged,
		"failed", report.Failed)
	return report, nil
}

// ImportMovie fetches one movie's detail, upserts it with its episodes and
// syncs it into the index. A vanished upstream slug is skipped, not an error.
func (s *Service) ImportMovie(ctx context.Context, slug string, report *Report) error {
	if report == nil {
		report = &Report{}
	}

	movie, episodes, err := s.provider.Detail(ctx, slug)
	if errors.Is(err, retry.ErrNotFound) {
		s.log.Warn("movie vanished upstream", "provider", s.provider.Name(), "slug", slug)
		return nil
	}
	if err != nil {
		return err
	}

	changed, err := s.sync.DetectEpisodeChanges(ctx, movie.Slug, episodes)
	if err != nil {
		s.log.Warn("episode change detection failed", "slug", movie.Slug, "error", err)
		changed = true
	}

	if _, err := s.catalog.SaveMovie(ctx, movie); err != nil {
		return err
	}
	for _, ep := range episodes {
		if _, err := s.catalog.SaveEpisode(ctx, ep); err != nil {
			return err
		}
	}
	if err := s.catalog.SetEpisodeCount(ctx, movie.Slug, len(episodes)); err != nil {
		return err
	}
	report.MoviesImported++
	report.EpisodesImported += len(episodes)

	if !changed {
		report.Unchanged++
		return nil
	}
	if err := s.sync.SyncMovie(ctx, movie.Slug); err != nil {
		return fmt.Errorf("sync after import: %w", err)
	}
	return nil
}
