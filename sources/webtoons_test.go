package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mangalib-app/mangalib/internal"
)

const webtoonsSearchFixture = `<!DOCTYPE html>
<html><body>
<ul class="card_lst">
  <li>
    <a href="/es/fantasy/tower-of-god/list?title_no=95239">
      <img src="https://webtoon-phinf.pstatic.net/tog-thumb.jpg" alt="Tower of God">
      <p class="subj">Tower of God</p>
      <p class="author">SIU</p>
      <span class="genre">Fantasía</span>
    </a>
  </li>
  <li>
    <a href="/es/action/otro/list?title_no=1234">
      <img src="https://webtoon-phinf.pstatic.net/otro.jpg">
      <p class="subj">Otro Webtoon</p>
      <p class="author">Alguien</p>
    </a>
  </li>
</ul>
</body></html>`

const webtoonsListFixture = `<!DOCTYPE html>
<html><head>
<meta property="og:image" content="https://webtoon-phinf.pstatic.net/tog-cover.jpg">
</head><body>
<h1 class="subj">Tower of God</h1>
<h2 class="genre">Fantasía</h2>
<div class="author_area">SIU</div>
<div id="_asideDetail">
  <p class="summary">Bam entra a la torre.</p>
  <p class="day_info">LUNES</p>
</div>
<ul id="_listUl">
  <li data-episode-no="2"><a href="/es/fantasy/tower-of-god/ep2/viewer?title_no=95239&episode_no=2"><span class="subj"><span>Ep. 2</span></span><span class="date">2020-01-08</span></a></li>
  <li data-episode-no="1"><a href="/es/fantasy/tower-of-god/ep1/viewer?title_no=95239&episode_no=1"><span class="subj"><span>Ep. 1</span></span><span class="date">2020-01-01</span></a></li>
</ul>
</body></html>`

const webtoonsViewerFixture = `<!DOCTYPE html>
<html><body>
<div id="_imageList">
  <img data-url="https://webtoon-phinf.pstatic.net/ep1/001.jpg">
  <img data-url="https://webtoon-phinf.pstatic.net/ep1/002.jpg">
  <img data-url="https://ads.example.com/banner.jpg">
</div>
</body></html>`

func newWebtoonsTestServer(t *testing.T) *Webtoons {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/es/search", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(webtoonsSearchFixture))
	})
	mux.HandleFunc("/es/genre/any/any/list", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(webtoonsListFixture))
	})
	mux.HandleFunc("/es/genre/any/any/viewer", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(webtoonsViewerFixture))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	s := NewWebtoons(5 * time.Second)
	s.BaseURL = ts.URL
	return s
}

func TestWebtoonsSearch(t *testing.T) {
	s := newWebtoonsTestServer(t)

	mangas, err := s.Search(context.Background(), "tower", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(mangas) != 2 {
		t.Fatalf("got %d results", len(mangas))
	}

	m := mangas[0]
	if m.ID != "webtoons-95239" {
		t.Errorf("id = %q", m.ID)
	}
	if m.Title != "Tower of God" || m.Author != "SIU" {
		t.Errorf("record = %q by %q", m.Title, m.Author)
	}
	if m.Type != internal.TypeWebtoon {
		t.Errorf("type = %q", m.Type)
	}
	if !strings.HasPrefix(m.CoverURL, "/api/proxy-image?url=") {
		t.Errorf("cover = %q, want it proxied", m.CoverURL)
	}
}

func TestWebtoonsSearchHonorsLimit(t *testing.T) {
	s := newWebtoonsTestServer(t)
	mangas, err := s.Search(context.Background(), "tower", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(mangas) != 1 {
		t.Errorf("got %d results, want 1", len(mangas))
	}
}

func TestWebtoonsChapters(t *testing.T) {
	s := newWebtoonsTestServer(t)

	feed, err := s.Chapters(context.Background(), "95239", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if feed.Total != 2 {
		t.Fatalf("total = %d", feed.Total)
	}
	// The site lists newest first; the feed comes back oldest first.
	if feed.Chapters[0].ID != "webtoons-95239-ep1" {
		t.Errorf("first chapter id = %q", feed.Chapters[0].ID)
	}
	if feed.Chapters[0].Chapter != "1" || feed.Chapters[1].Chapter != "2" {
		t.Errorf("order = %q, %q", feed.Chapters[0].Chapter, feed.Chapters[1].Chapter)
	}
}

func TestWebtoonsDetails(t *testing.T) {
	s := newWebtoonsTestServer(t)

	detail, err := s.Details(context.Background(), "95239")
	if err != nil {
		t.Fatal(err)
	}
	if detail.Title != "Tower of God" {
		t.Errorf("title = %q", detail.Title)
	}
	if detail.Description != "Bam entra a la torre." {
		t.Errorf("description = %q", detail.Description)
	}
	if detail.Status != internal.StatusOngoing {
		t.Errorf("status = %q", detail.Status)
	}
}

func TestWebtoonsPages(t *testing.T) {
	s := newWebtoonsTestServer(t)

	pages, err := s.Pages(context.Background(), "95239", "1")
	if err != nil {
		t.Fatal(err)
	}
	if pages.Total != 2 {
		t.Fatalf("total = %d, the off-host banner must be filtered out", pages.Total)
	}
	for _, p := range pages.Pages {
		if !strings.HasPrefix(p, "/api/proxy-image?url=") {
			t.Errorf("page %q not proxied", p)
		}
	}
}

func TestWebtoonsPagesRequireEpisode(t *testing.T) {
	s := newWebtoonsTestServer(t)
	if _, err := s.Pages(context.Background(), "95239", ""); err == nil {
		t.Fatal("want error without an episode number")
	}
}
