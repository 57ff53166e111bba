// Package catalog is the PostgreSQL system of record for movies and
// episodes. The search index is a derived copy; nothing here ever reads the
// index back.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"moviestream/searchservice/internal/domain"
)

var ErrNotFound = errors.New("catalog: not found")

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Migrate creates the catalog tables when they don't exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS movies (
			slug TEXT PRIMARY KEY,
			movie_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			origin_name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'movie',
			status TEXT NOT NULL DEFAULT '',
			section TEXT,
			is_recommended BOOLEAN NOT NULL DEFAULT FALSE,
			year INT NOT NULL DEFAULT 0,
			quality TEXT NOT NULL DEFAULT '',
			lang TEXT NOT NULL DEFAULT '',
			view BIGINT NOT NULL DEFAULT 0,
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			actors TEXT[] NOT NULL DEFAULT '{}',
			directors TEXT[] NOT NULL DEFAULT '{}',
			categories JSONB NOT NULL DEFAULT '[]',
			countries JSONB NOT NULL DEFAULT '[]',
			thumb_url TEXT NOT NULL DEFAULT '',
			poster_url TEXT NOT NULL DEFAULT '',
			trailer_url TEXT NOT NULL DEFAULT '',
			episode_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			modified_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS episodes (
			slug TEXT PRIMARY KEY,
			movie_slug TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			server_name TEXT NOT NULL DEFAULT '',
			filename TEXT NOT NULL DEFAULT '',
			link_embed TEXT NOT NULL DEFAULT '',
			link_m3u8 TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS episodes_movie_slug_idx ON episodes (movie_slug)`,
		`CREATE TABLE IF NOT EXISTS movie_sync_snapshots (
			movie_slug TEXT PRIMARY KEY,
			episode_count INT NOT NULL DEFAULT 0,
			last_episode_slug TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("catalog migrate: %w", err)
		}
	}
	return nil
}

const movieColumns = `slug, movie_id, name, origin_name, description, type, status,
	COALESCE(section, ''), is_recommended, year, quality, lang, view, rating,
	actors, directors, categories, countries,
	thumb_url, poster_url, trailer_url, episode_count, created_at, modified_at`

// GetMovies returns one page of the catalog ordered by most recently
// modified, plus the total row count.
func (r *Repository) GetMovies(ctx context.Context, page, limit int) ([]domain.Movie, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 24
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM movies`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movies: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+movieColumns+` FROM movies ORDER BY modified_at DESC, slug LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	movies := make([]domain.Movie, 0, limit)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, 0, err
		}
		movies = append(movies, movie)
	}
	return movies, total, rows.Err()
}

func (r *Repository) GetMovieBySlug(ctx context.Context, slug string) (domain.Movie, error) {
	row := r.db.QueryRow(ctx, `SELECT `+movieColumns+` FROM movies WHERE slug = $1`, slug)
	movie, err := scanMovie(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Movie{}, ErrNotFound
	}
	return movie, err
}

// SaveMovie upserts by slug and returns the stored row. episode_count is
// owned by the sync layer and deliberately not written here.
func (r *Repository) SaveMovie(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	categories, err := json.Marshal(refsOrEmpty(movie.Categories))
	if err != nil {
		return domain.Movie{}, fmt.Errorf("marshal categories: %w", err)
	}
	countries, err := json.Marshal(refsOrEmpty(movie.Countries))
	if err != nil {
		return domain.Movie{}, fmt.Errorf("marshal countries: %w", err)
	}

	now := time.Now().UTC()
	if movie.CreatedAt.IsZero() {
		movie.CreatedAt = now
	}
	movie.ModifiedAt = now

	var section any
	if movie.Section != "" {
		section = movie.Section
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO movies (
			slug, movie_id, name, origin_name, description, type, status, section,
			is_recommended, year, quality, lang, view, rating, actors, directors,
			categories, countries, thumb_url, poster_url, trailer_url, created_at, modified_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		ON CONFLICT (slug) DO UPDATE SET
			movie_id = EXCLUDED.movie_id,
			name = EXCLUDED.name,
			origin_name = EXCLUDED.origin_name,
			description = EXCLUDED.description,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			section = EXCLUDED.section,
			is_recommended = EXCLUDED.is_recommended,
			year = EXCLUDED.year,
			quality = EXCLUDED.quality,
			lang = EXCLUDED.lang,
			view = EXCLUDED.view,
			rating = EXCLUDED.rating,
			actors = EXCLUDED.actors,
			directors = EXCLUDED.directors,
			categories = EXCLUDED.categories,
			countries = EXCLUDED.countries,
			thumb_url = EXCLUDED.thumb_url,
			poster_url = EXCLUDED.poster_url,
			trailer_url = EXCLUDED.trailer_url,
			modified_at = EXCLUDED.modified_at`,
		movie.Slug, movie.MovieID, movie.Name, movie.OriginName, movie.Description,
		movie.Type, movie.Status, section, movie.IsRecommended, movie.Year,
		movie.Quality, movie.Lang, movie.View, movie.Rating,
		stringsOrEmpty(movie.Actors), stringsOrEmpty(movie.Directors),
		categories, countries,
		movie.ThumbURL, movie.PosterURL, movie.TrailerURL,
		movie.CreatedAt, movie.ModifiedAt)
	if err != nil {
		return domain.Movie{}, fmt.Errorf("save movie %q: %w", movie.Slug, err)
	}
	return r.GetMovieBySlug(ctx, movie.Slug)
}

// DeleteMovie removes the movie plus its episodes and sync snapshot.
func (r *Repository) DeleteMovie(ctx context.Context, slug string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM episodes WHERE movie_slug = $1`, slug); err != nil {
		return fmt.Errorf("delete episodes for %q: %w", slug, err)
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM movie_sync_snapshots WHERE movie_slug = $1`, slug); err != nil {
		return fmt.Errorf("delete snapshot for %q: %w", slug, err)
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM movies WHERE slug = $1`, slug); err != nil {
		return fmt.Errorf("delete movie %q: %w", slug, err)
	}
	return nil
}

func (r *Repository) CountMovies(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM movies`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return total, nil
}

func (r *Repository) GetEpisodesByMovieSlug(ctx context.Context, movieSlug string) ([]domain.Episode, error) {
	rows, err := r.db.Query(ctx, `
		SELECT slug, movie_slug, name, server_name, filename, link_embed, link_m3u8
		FROM episodes WHERE movie_slug = $1 ORDER BY slug`, movieSlug)
	if err != nil {
		return nil, fmt.Errorf("list episodes for %q: %w", movieSlug, err)
	}
	defer rows.Close()

	var episodes []domain.Episode
	for rows.Next() {
		var ep domain.Episode
		if err := rows.Scan(&ep.Slug, &ep.MovieSlug, &ep.Name, &ep.ServerName,
			&ep.Filename, &ep.LinkEmbed, &ep.LinkM3U8); err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

func (r *Repository) SaveEpisode(ctx context.Context, ep domain.Episode) (domain.Episode, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO episodes (slug, movie_slug, name, server_name, filename, link_embed, link_m3u8)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (slug) DO UPDATE SET
			movie_slug = EXCLUDED.movie_slug,
			name = EXCLUDED.name,
			server_name = EXCLUDED.server_name,
			filename = EXCLUDED.filename,
			link_embed = EXCLUDED.link_embed,
			link_m3u8 = EXCLUDED.link_m3u8`,
		ep.Slug, ep.MovieSlug, ep.Name, ep.ServerName, ep.Filename, ep.LinkEmbed, ep.LinkM3U8)
	if err != nil {
		return domain.Episode{}, fmt.Errorf("save episode %q: %w", ep.Slug, err)
	}
	return ep, nil
}

// SetEpisodeCount records the derived count on the movie row. Only the sync
// layer calls this; counts are always recomputed, never incremented.
func (r *Repository) SetEpisodeCount(ctx context.Context, movieSlug string, count int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE movies SET episode_count = $2 WHERE slug = $1`, movieSlug, count)
	if err != nil {
		return fmt.Errorf("set episode count for %q: %w", movieSlug, err)
	}
	return nil
}

func (r *Repository) GetSyncSnapshot(ctx context.Context, movieSlug string) (domain.SyncSnapshot, error) {
	var snap domain.SyncSnapshot
	err := r.db.QueryRow(ctx, `
		SELECT movie_slug, episode_count, last_episode_slug, updated_at
		FROM movie_sync_snapshots WHERE movie_slug = $1`, movieSlug).
		Scan(&snap.MovieSlug, &snap.EpisodeCount, &snap.LastEpisodeSlug, &snap.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SyncSnapshot{}, ErrNotFound
	}
	if err != nil {
		return domain.SyncSnapshot{}, fmt.Errorf("get snapshot for %q: %w", movieSlug, err)
	}
	return snap, nil
}

func (r *Repository) SaveSyncSnapshot(ctx context.Context, snap domain.SyncSnapshot) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO movie_sync_snapshots (movie_slug, episode_count, last_episode_slug, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (movie_slug) DO UPDATE SET
			episode_count = EXCLUDED.episode_count,
			last_episode_slug = EXCLUDED.last_episode_slug,
			updated_at = EXCLUDED.updated_at`,
		snap.MovieSlug, snap.EpisodeCount, snap.LastEpisodeSlug, snap.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save snapshot for %q: %w", snap.MovieSlug, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (domain.Movie, error) {
	var (
		movie      domain.Movie
		categories []byte
		countries  []byte
	)
	err := row.Scan(
		&movie.Slug, &movie.MovieID, &movie.Name, &movie.OriginName, &movie.Description,
		&movie.Type, &movie.Status, &movie.Section, &movie.IsRecommended, &movie.Year,
		&movie.Quality, &movie.Lang, &movie.View, &movie.Rating,
		&movie.Actors, &movie.Directors, &categories, &countries,
		&movie.ThumbURL, &movie.PosterURL, &movie.TrailerURL,
		&movie.EpisodeCount, &movie.CreatedAt, &movie.ModifiedAt)
	if err != nil {
		return domain.Movie{}, err
	}
	if err := json.Unmarshal(categories, &movie.Categories); err != nil {
		return domain.Movie{}, fmt.Errorf("decode categories for %q: %w", movie.Slug, err)
	}
	if err := json.Unmarshal(countries, &movie.Countries); err != nil {
		return domain.Movie{}, fmt.Errorf("decode countries for %q: %w", movie.Slug, err)
	}
	return movie, nil
}

func refsOrEmpty(refs []domain.TaxonomyRef) []domain.TaxonomyRef {
	if refs == nil {
		return []domain.TaxonomyRef{}
	}
	return refs
}

func stringsOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
