package services

import (
	"testing"
	"time"

	"github.com/zmb3/spotify/v2"
)

func TestChunkStrings(t *testing.T) {
	cases := []struct {
		name string
		in   int
		size int
		want []int
	}{
		{"Empty", 0, 50, nil},
		{"Single Partial", 3, 50, []int{3}},
		{"Exact Multiple", 100, 50, []int{50, 50}},
		{"Trailing Remainder", 120, 50, []int{50, 50, 20}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ids := make([]string, tc.in)
			for i := range ids {
				ids[i] = "id"
			}

			chunks := chunkStrings(ids, tc.size)
			if len(chunks) != len(tc.want) {
				t.Fatalf("expected %d chunks, got %d", len(tc.want), len(chunks))
			}
			for i, chunk := range chunks {
				if len(chunk) != tc.want[i] {
					t.Errorf("chunk %d: expected length %d, got %d", i, tc.want[i], len(chunk))
				}
			}
		})
	}

	t.Run("Invalid Size", func(t *testing.T) {
		if chunks := chunkStrings([]string{"a"}, 0); chunks != nil {
			t.Errorf("expected nil for zero size, got %v", chunks)
		}
	})
}

func TestTimestampParsing(t *testing.T) {
	parsed, err := time.Parse(spotify.TimestampLayout, "2024-05-01T12:30:45Z")
	if err != nil {
		t.Fatalf("failed to parse timestamp: %v", err)
	}

	want := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	if !parsed.Equal(want) {
		t.Errorf("expected %v, got %v", want, parsed)
	}
}

func TestTrackFromAPI(t *testing.T) {
	full := spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:          "track1",
			Name:        "The Track",
			Duration:    215000,
			Explicit:    true,
			PreviewURL:  "https://preview",
			TrackNumber: 3,
			Artists: []spotify.SimpleArtist{
				{ID: "a1", Name: "Alpha"},
				{ID: "a2", Name: "Beta"},
			},
		},
		Album: spotify.SimpleAlbum{
			ID:          "album1",
			Name:        "The Album",
			AlbumType:   "album",
			ReleaseDate: "2019-05-01",
			Images:      []spotify.Image{{URL: "https://img/album1"}},
		},
		Popularity: 55,
	}

	track := trackFromAPI(full)

	if track.ID != "track1" || track.Name != "The Track" {
		t.Errorf("unexpected identity %q %q", track.ID, track.Name)
	}
	if track.DurationMS != 215000 || !track.Explicit || track.TrackNumber != 3 {
		t.Errorf("unexpected scalar fields %+v", track)
	}
	if track.Popularity == nil || *track.Popularity != 55 {
		t.Errorf("unexpected popularity %v", track.Popularity)
	}
	if track.Album == nil || track.Album.ID != "album1" {
		t.Fatalf("expected album, got %v", track.Album)
	}
	if track.Album.ImageURL != "https://img/album1" {
		t.Errorf("unexpected image %q", track.Album.ImageURL)
	}
	if track.ReleaseDate != "2019-05-01" {
		t.Errorf("expected album release date on track, got %q", track.ReleaseDate)
	}
	if len(track.Artists) != 2 || track.Artists[0].ID != "a1" {
		t.Errorf("unexpected artists %v", track.Artists)
	}
}

func TestFullArtistFromAPI(t *testing.T) {
	full := spotify.FullArtist{
		SimpleArtist: spotify.SimpleArtist{ID: "a1", Name: "Alpha"},
		Popularity:   80,
		Genres:       []string{"rock", "indie"},
		Images:       []spotify.Image{{URL: "https://img/a1"}},
	}

	artist := fullArtistFromAPI(full)

	if artist.ID != "a1" || artist.Name != "Alpha" {
		t.Errorf("unexpected identity %+v", artist)
	}
	if artist.Popularity == nil || *artist.Popularity != 80 {
		t.Errorf("unexpected popularity %v", artist.Popularity)
	}
	if len(artist.Genres) != 2 {
		t.Errorf("unexpected genres %v", artist.Genres)
	}
	if artist.ImageURL != "https://img/a1" {
		t.Errorf("unexpected image %q", artist.ImageURL)
	}
}

func TestFirstImageURL(t *testing.T) {
	if got := firstImageURL(nil); got != "" {
		t.Errorf("expected empty for no images, got %q", got)
	}
	images := []spotify.Image{{URL: "first"}, {URL: "second"}}
	if got := firstImageURL(images); got != "first" {
		t.Errorf("expected first image, got %q", got)
	}
}
