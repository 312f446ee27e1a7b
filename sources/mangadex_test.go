package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mangalib-app/mangalib/internal"
)

const dexSearchFixture = `{
  "data": [
    {
      "id": "uuid-solo",
      "attributes": {
        "title": {"en": "Solo Leveling"},
        "description": {"es": "Un cazador<br>renace.", "en": "A hunter reborn."},
        "status": "completed",
        "year": 2018,
        "originalLanguage": "ko",
        "tags": [
          {"attributes": {"name": {"en": "Action"}}},
          {"attributes": {"name": {"en": "Fantasy"}}}
        ]
      },
      "relationships": [
        {"id": "cv", "type": "cover_art", "attributes": {"fileName": "cover.jpg"}}
      ]
    }
  ],
  "total": 1
}`

const dexDetailFixture = `{
  "data": {
    "id": "uuid-solo",
    "attributes": {
      "title": {"ja-ro": "Ore dake Level Up na Ken"},
      "description": {},
      "status": "hiatus",
      "originalLanguage": "ja",
      "tags": []
    },
    "relationships": [
      {"id": "a1", "type": "author", "attributes": {"name": "Chugong"}},
      {"id": "a2", "type": "artist", "attributes": {"name": "Jang Sung-rak"}}
    ]
  }
}`

const dexChaptersFixture = `{
  "data": [
    {"id": "ch-1", "attributes": {"chapter": "1", "title": "", "volume": "1", "publishAt": "2021-01-01T00:00:00+00:00"}},
    {"id": "ch-2", "attributes": {"chapter": "2", "title": "La torre", "volume": "1", "publishAt": "2021-01-08T00:00:00+00:00"}}
  ],
  "total": 179
}`

const dexAtHomeFixture = `{
  "baseUrl": "https://node.example.mangadex.network",
  "chapter": {
    "hash": "abc123",
    "data": ["1.png", "2.png"]
  }
}`

func newDexTestServer(t *testing.T) *MangaDex {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/manga/uuid-solo", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(dexDetailFixture))
	})
	mux.HandleFunc("/manga", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(dexSearchFixture))
	})
	mux.HandleFunc("/chapter", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(dexChaptersFixture))
	})
	mux.HandleFunc("/at-home/server/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(dexAtHomeFixture))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	s := NewMangaDex(5 * time.Second)
	s.BaseURL = ts.URL
	s.UploadsURL = "https://uploads.example"
	return s
}

func TestMangaDexSearch(t *testing.T) {
	s := newDexTestServer(t)

	mangas, err := s.Search(context.Background(), "solo", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(mangas) != 1 {
		t.Fatalf("got %d results", len(mangas))
	}

	m := mangas[0]
	if m.ID != "uuid-solo" {
		t.Errorf("id = %q, want the bare uuid", m.ID)
	}
	if m.Source != internal.SourceMangaDex {
		t.Errorf("source = %q", m.Source)
	}
	if m.Title != "Solo Leveling" {
		t.Errorf("title = %q", m.Title)
	}
	// Spanish description wins and the <br> becomes a newline.
	if m.Description != "Un cazador\nrenace." {
		t.Errorf("description = %q", m.Description)
	}
	if m.CoverURL != "https://uploads.example/covers/uuid-solo/cover.jpg.512.jpg" {
		t.Errorf("cover = %q", m.CoverURL)
	}
	if m.Status != internal.StatusCompleted {
		t.Errorf("status = %q", m.Status)
	}
	if m.Type != internal.TypeManhwa {
		t.Errorf("type = %q, want manhwa from originalLanguage ko", m.Type)
	}
	if m.Year == nil || *m.Year != 2018 {
		t.Errorf("year = %v", m.Year)
	}
	if len(m.Tags) != 2 {
		t.Errorf("tags = %v", m.Tags)
	}
}

func TestMangaDexDetails(t *testing.T) {
	s := newDexTestServer(t)

	detail, err := s.Details(context.Background(), "uuid-solo")
	if err != nil {
		t.Fatal(err)
	}
	if detail.Title != "Ore dake Level Up na Ken" {
		t.Errorf("title = %q, want ja-ro fallback", detail.Title)
	}
	if detail.Description != internal.NoDescription {
		t.Errorf("description = %q, want placeholder", detail.Description)
	}
	if detail.Author != "Chugong" || detail.Artist != "Jang Sung-rak" {
		t.Errorf("credits = %q / %q", detail.Author, detail.Artist)
	}
	if detail.Status != internal.StatusHiatus {
		t.Errorf("status = %q", detail.Status)
	}
}

func TestMangaDexChapters(t *testing.T) {
	s := newDexTestServer(t)

	feed, err := s.Chapters(context.Background(), "uuid-solo", 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if feed.Total != 179 || len(feed.Chapters) != 2 {
		t.Fatalf("feed = %d chapters, total %d", len(feed.Chapters), feed.Total)
	}
	if feed.Chapters[0].Title != "Capítulo 1" {
		t.Errorf("untitled chapter = %q, want numbered fallback", feed.Chapters[0].Title)
	}
	if feed.Chapters[1].Title != "La torre" {
		t.Errorf("titled chapter = %q", feed.Chapters[1].Title)
	}
}

func TestMangaDexPages(t *testing.T) {
	s := newDexTestServer(t)

	pages, err := s.Pages(context.Background(), "ch-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if pages.Total != 2 {
		t.Fatalf("total = %d", pages.Total)
	}
	want := "https://node.example.mangadex.network/data/abc123/1.png"
	if pages.Pages[0] != want {
		t.Errorf("page = %q, want %q", pages.Pages[0], want)
	}
}

func TestMangaDexNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)

	s := NewMangaDex(5 * time.Second)
	s.BaseURL = ts.URL

	_, err := s.Details(context.Background(), "missing")
	if internal.Classify(err) != internal.ErrNotFound {
		t.Errorf("kind = %v, want NOT_FOUND", internal.Classify(err))
	}
}

func TestPickLocalized(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]string
		want string
	}{
		{"es wins", map[string]string{"es": "Hola", "en": "Hello"}, "Hola"},
		{"es-la next", map[string]string{"es-la": "Hola", "en": "Hello"}, "Hola"},
		{"en next", map[string]string{"en": "Hello", "ja-ro": "Konnichiwa"}, "Hello"},
		{"stable fallback", map[string]string{"fr": "Bonjour", "de": "Hallo"}, "Hallo"},
		{"empty", map[string]string{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickLocalized(tt.in); got != tt.want {
				t.Errorf("pickLocalized = %q, want %q", got, tt.want)
			}
		})
	}
}
