package domain

import "time"

// TaxonomyRef is one category or country attached to a movie. Categories and
// countries are kept as ordered lists of these refs; the search index models
// them as nested documents so each element's fields stay independent.
type TaxonomyRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Movie is the unit stored in the catalog and mirrored into the search index.
// Slug is the join key across the catalog, the index and the external APIs;
// there is exactly one index document per slug.
type Movie struct {
	MovieID       string        `json:"movieId"`
	Slug          string        `json:"slug"`
	Name          string        `json:"name"`
	OriginName    string        `json:"originName"`
	Description   string        `json:"description"`
	Type          string        `json:"type"`
	Status        string        `json:"status"`
	Section       string        `json:"section,omitempty"`
	IsRecommended bool          `json:"isRecommended"`
	Year          int           `json:"year"`
	Quality       string        `json:"quality"`
	Lang          string        `json:"lang"`
	View          int64         `json:"view"`
	Rating        float64       `json:"rating,omitempty"`
	Actors        []string      `json:"actors,omitempty"`
	Directors     []string      `json:"directors,omitempty"`
	Categories    []TaxonomyRef `json:"categories,omitempty"`
	Countries     []TaxonomyRef `json:"countries,omitempty"`
	ThumbURL      string        `json:"thumbUrl,omitempty"`
	PosterURL     string        `json:"posterUrl,omitempty"`
	TrailerURL    string        `json:"trailerUrl,omitempty"`
	EpisodeCount  int           `json:"episodeCount"`
	CreatedAt     time.Time     `json:"createdAt"`
	ModifiedAt    time.Time     `json:"modifiedAt"`
}

// Episode slugs are globally unique: the owning movie's slug prefixed onto the
// source episode slug, because upstream reuses slugs like "1" or "full"
// across movies. MovieSlug is a lookup key only, never an ownership pointer.
type Episode struct {
	Slug       string `json:"slug"`
	MovieSlug  string `json:"movieSlug"`
	Name       string `json:"name"`
	ServerName string `json:"serverName,omitempty"`
	Filename   string `json:"filename,omitempty"`
	LinkEmbed  string `json:"linkEmbed,omitempty"`
	LinkM3U8   string `json:"linkM3u8,omitempty"`
}

// SyncSnapshot is a cheap per-movie record used to detect "new episode
// arrived" without re-reading the full episode set.
type SyncSnapshot struct {
	MovieSlug       string    `json:"movieSlug"`
	EpisodeCount    int       `json:"episodeCount"`
	LastEpisodeSlug string    `json:"lastEpisodeSlug,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// SyncStatus compares the catalog row count with the index document count.
// InSync tolerates a small absolute difference so in-flight incremental
// writes don't trip false alarms.
type SyncStatus struct {
	RelationalCount int  `json:"relationalCount"`
	IndexCount      int  `json:"indexCount"`
	InSync          bool `json:"isInSync"`
}
