package common

import "testing"

func TestToMovieRequiresSlugAndName(t *testing.T) {
	item := Item{Slug: "tay-du-ky", Name: "Tây Du Ký", Year: 1986}
	movie, ok := item.ToMovie("")
	if !ok {
		t.Fatalf("expected valid movie")
	}
	if movie.Slug != "tay-du-ky" || movie.Year != 1986 {
		t.Fatalf("unexpected movie: %+v", movie)
	}

	if _, ok := (Item{Name: "No Slug"}).ToMovie(""); ok {
		t.Fatalf("missing slug must be rejected")
	}
	if _, ok := (Item{Slug: "no-name"}).ToMovie(""); ok {
		t.Fatalf("missing name must be rejected")
	}
}

func TestToMoviePrefixesRelativeImages(t *testing.T) {
	item := Item{Slug: "s", Name: "n", ThumbURL: "thumb.jpg", PosterURL: "https://cdn.example.com/poster.jpg"}
	movie, _ := item.ToMovie("https://img.example.com/uploads/")

	if movie.ThumbURL != "https://img.example.com/uploads/thumb.jpg" {
		t.Fatalf("relative thumb not prefixed: %q", movie.ThumbURL)
	}
	if movie.PosterURL != "https://cdn.example.com/poster.jpg" {
		t.Fatalf("absolute poster must pass through: %q", movie.PosterURL)
	}
}

func TestFlattenEpisodesPrefixesMovieSlug(t *testing.T) {
	groups := []EpisodeGroup{
		{ServerName: "Server A", ServerData: []EpisodeItem{
			{Slug: "1", Name: "Tập 1", LinkM3U8: "https://a/1.m3u8"},
			{Slug: "2", Name: "Tập 2"},
		}},
	}
	episodes := FlattenEpisodes("tay-du-ky", groups)
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(episodes))
	}
	if episodes[0].Slug != "tay-du-ky-1" || episodes[0].MovieSlug != "tay-du-ky" {
		t.Fatalf("unexpected episode: %+v", episodes[0])
	}
}

func TestFlattenEpisodesCollapsesDuplicateSlugsLastServerWins(t *testing.T) {
	groups := []EpisodeGroup{
		{ServerName: "Server A", ServerData: []EpisodeItem{{Slug: "1", LinkM3U8: "https://a/1.m3u8"}}},
		{ServerName: "Server B", ServerData: []EpisodeItem{{Slug: "1", LinkM3U8: "https://b/1.m3u8"}}},
	}
	episodes := FlattenEpisodes("phim", groups)
	if len(episodes) != 1 {
		t.Fatalf("expected 1 episode after collapse, got %d", len(episodes))
	}
	if episodes[0].ServerName != "Server B" || episodes[0].LinkM3U8 != "https://b/1.m3u8" {
		t.Fatalf("last server must win: %+v", episodes[0])
	}
}

func TestFlattenEpisodesSkipsBlankSlugs(t *testing.T) {
	groups := []EpisodeGroup{
		{ServerData: []EpisodeItem{{Slug: "  "}, {Slug: "full", Name: "Full"}}},
	}
	episodes := FlattenEpisodes("phim-le", groups)
	if len(episodes) != 1 || episodes[0].Slug != "phim-le-full" {
		t.Fatalf("unexpected episodes: %+v", episodes)
	}
}
