// Package common holds the wire shapes shared by the Vietnamese movie
// metadata APIs and their mapping onto domain types.
package common

import (
	"strings"
	"time"

	"moviestream/searchservice/internal/domain"
)

// Item is one movie as the upstream APIs serialize it.
type Item struct {
	ID             string   `json:"_id"`
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	OriginName     string   `json:"origin_name"`
	Content        string   `json:"content"`
	Type           string   `json:"type"`
	Status         string   `json:"status"`
	PosterURL      string   `json:"poster_url"`
	ThumbURL       string   `json:"thumb_url"`
	TrailerURL     string   `json:"trailer_url"`
	EpisodeCurrent string   `json:"episode_current"`
	EpisodeTotal   string   `json:"episode_total"`
	Quality        string   `json:"quality"`
	Lang           string   `json:"lang"`
	Year           int      `json:"year"`
	View           int64    `json:"view"`
	Actor          []string `json:"actor"`
	Director       []string `json:"director"`
	TMDB           struct {
		VoteAverage float64 `json:"vote_average"`
	} `json:"tmdb"`
	Created struct {
		Time time.Time `json:"time"`
	} `json:"created"`
	Modified struct {
		Time time.Time `json:"time"`
	} `json:"modified"`
	Category []TaxonomyItem `json:"category"`
	Country  []TaxonomyItem `json:"country"`
}

type TaxonomyItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Pagination is the upstream pagination block.
type Pagination struct {
	TotalItems   int `json:"totalItems"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"totalItemsPerPage"`
}

// EpisodeGroup is one streaming server's episode list on a detail response.
type EpisodeGroup struct {
	ServerName string        `json:"server_name"`
	ServerData []EpisodeItem `json:"server_data"`
}

type EpisodeItem struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Filename  string `json:"filename"`
	LinkEmbed string `json:"link_embed"`
	LinkM3U8  string `json:"link_m3u8"`
}

// ToMovie maps an upstream item onto the domain movie. imageBase prefixes
// relative poster/thumb paths; pass "" when the API returns absolute URLs.
func (it Item) ToMovie(imageBase string) (domain.Movie, bool) {
	slug := strings.TrimSpace(it.Slug)
	name := strings.TrimSpace(it.Name)
	if slug == "" || name == "" {
		return domain.Movie{}, false
	}
	return domain.Movie{
		MovieID:     it.ID,
		Slug:        slug,
		Name:        name,
		OriginName:  strings.TrimSpace(it.OriginName),
		Description: strings.TrimSpace(it.Content),
		Type:        it.Type,
		Status:      it.Status,
		Year:        it.Year,
		Quality:     it.Quality,
		Lang:        it.Lang,
		View:        it.View,
		Rating:      it.TMDB.VoteAverage,
		Actors:      cleanList(it.Actor),
		Directors:   cleanList(it.Director),
		Categories:  toRefs(it.Category),
		Countries:   toRefs(it.Country),
		ThumbURL:    absoluteURL(imageBase, it.ThumbURL),
		PosterURL:   absoluteURL(imageBase, it.PosterURL),
		TrailerURL:  it.TrailerURL,
		CreatedAt:   it.Created.Time,
		ModifiedAt:  it.Modified.Time,
	}, true
}

// FlattenEpisodes turns per-server episode groups into domain episodes.
// Upstream episode slugs repeat across movies ("1", "full"), so the stored
// slug is prefixed with the owning movie's slug to stay globally unique. The
// same source slug on two servers collapses to one episode, last server wins.
func FlattenEpisodes(movieSlug string, groups []EpisodeGroup) []domain.Episode {
	bySlug := make(map[string]int)
	var episodes []domain.Episode

	for _, group := range groups {
		for _, item := range group.ServerData {
			sourceSlug := strings.TrimSpace(item.Slug)
			if sourceSlug == "" {
				continue
			}
			ep := domain.Episode{
				Slug:       movieSlug + "-" + sourceSlug,
				MovieSlug:  movieSlug,
				Name:       strings.TrimSpace(item.Name),
				ServerName: strings.TrimSpace(group.ServerName),
				Filename:   item.Filename,
				LinkEmbed:  item.LinkEmbed,
				LinkM3U8:   item.LinkM3U8,
			}
			if at, dup := bySlug[ep.Slug]; dup {
				episodes[at] = ep
				continue
			}
			bySlug[ep.Slug] = len(episodes)
			episodes = append(episodes, ep)
		}
	}
	return episodes
}

// ToPagination maps the upstream pagination block.
func (p Pagination) ToPagination() domain.Pagination {
	return domain.Pagination{
		TotalItems:   p.TotalItems,
		TotalPages:   p.TotalPages,
		CurrentPage:  p.CurrentPage,
		ItemsPerPage: p.ItemsPerPage,
	}
}

func toRefs(items []TaxonomyItem) []domain.TaxonomyRef {
	refs := make([]domain.TaxonomyRef, 0, len(items))
	for _, item := range items {
		if item.Slug == "" && item.Name == "" {
			continue
		}
		refs = append(refs, domain.TaxonomyRef{ID: item.ID, Name: item.Name, Slug: item.Slug})
	}
	return refs
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func absoluteURL(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || base == "" {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
