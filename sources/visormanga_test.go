package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// VisorManga shares the Madara scraping helpers; this only checks the ids
// and routing come out under its own tag.
func TestVisorMangaChapters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manga/berserk", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(madaraDetailFixture))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	s := NewVisorManga(5 * time.Second)
	s.BaseURL = ts.URL

	feed, err := s.Chapters(context.Background(), "berserk", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if feed.Total != 2 || len(feed.Chapters) != 1 {
		t.Fatalf("feed = %d of %d", len(feed.Chapters), feed.Total)
	}
	if feed.Chapters[0].ID != "visormanga-berserk-ch1" {
		t.Errorf("chapter id = %q", feed.Chapters[0].ID)
	}
	if feed.Chapters[0].Source != "visormanga" {
		t.Errorf("source = %q", feed.Chapters[0].Source)
	}
}
