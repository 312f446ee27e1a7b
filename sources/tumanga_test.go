package sources

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mangalib-app/mangalib/internal"
)

const tumangaSearchFixture = `<!DOCTYPE html>
<html><body>
<div class="gm_h">
  <div class="item">
    <a href="/online/solo-leveling"><img src="/covers/solo.jpg" alt="Solo Leveling"></a>
    <h3 class="title">Solo Leveling</h3>
  </div>
  <div class="item">
    <a href="/online/berserk"><img data-src="/covers/berserk.jpg" alt="Berserk"></a>
    <h3 class="title">Berserk</h3>
  </div>
</div>
</body></html>`

const tumangaDetailFixture = `<!DOCTYPE html>
<html><head>
<meta property="og:image" content="https://tumanga.net/covers/solo.jpg">
</head><body>
<h1>Solo Leveling</h1>
<div class="description">El cazador más débil de la humanidad.</div>
<div class="genres"><a href="/genero/accion">Acción</a><a href="/genero/fantasia">Fantasía</a></div>
<span class="status">Finalizado</span>
<div class="main_chapters">
  <div class="indi_chap"><a class="chap_go" href="/leer/solo-leveling-2">Capítulo 2</a></div>
  <div class="indi_chap"><a class="chap_go" href="/leer/solo-leveling-1.5">Capítulo 1.5</a></div>
  <div class="indi_chap"><a class="chap_go" href="/leer/solo-leveling-1">Capítulo 1</a></div>
</div>
</body></html>`

func xorEncode(path, key string) string {
	raw := make([]byte, len(path))
	for i := range path {
		raw[i] = path[i] ^ key[i%len(key)]
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func tumangaReaderFixture(key string) string {
	p1 := xorEncode("/pic_source/solo-leveling/1/001.jpg", key)
	p2 := xorEncode("/pic_source/solo-leveling/1/002.jpg", key)
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><meta name="ad:check" content="%s"></head><body>
<script>var PIC_ARRAY = ["%s", "%s"];</script>
</body></html>`, key, p1, p2)
}

func newTuMangaTestServer(t *testing.T) *TuManga {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/biblioteca", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(tumangaSearchFixture))
	})
	mux.HandleFunc("/online/solo-leveling", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(tumangaDetailFixture))
	})
	mux.HandleFunc("/leer/solo-leveling-1", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(tumangaReaderFixture("k3y")))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	s := NewTuManga(5 * time.Second)
	s.BaseURL = ts.URL
	return s
}

func TestTuMangaSearch(t *testing.T) {
	s := newTuMangaTestServer(t)

	mangas, err := s.Search(context.Background(), "solo", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(mangas) != 2 {
		t.Fatalf("got %d results", len(mangas))
	}
	if mangas[0].ID != "tumanga-solo-leveling" {
		t.Errorf("id = %q", mangas[0].ID)
	}
	if mangas[1].Title != "Berserk" {
		t.Errorf("second title = %q", mangas[1].Title)
	}
}

func TestTuMangaDetails(t *testing.T) {
	s := newTuMangaTestServer(t)

	detail, err := s.Details(context.Background(), "solo-leveling")
	if err != nil {
		t.Fatal(err)
	}
	if detail.Title != "Solo Leveling" {
		t.Errorf("title = %q", detail.Title)
	}
	if detail.Status != internal.StatusCompleted {
		t.Errorf("status = %q, want completed from 'Finalizado'", detail.Status)
	}
	if len(detail.Tags) != 2 {
		t.Errorf("tags = %v", detail.Tags)
	}
}

func TestTuMangaChaptersSortedOldestFirst(t *testing.T) {
	s := newTuMangaTestServer(t)

	feed, err := s.Chapters(context.Background(), "solo-leveling", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if feed.Total != 3 {
		t.Fatalf("total = %d", feed.Total)
	}
	want := []string{"1", "1.5", "2"}
	for i, w := range want {
		if feed.Chapters[i].Chapter != w {
			t.Errorf("chapter[%d] = %q, want %q", i, feed.Chapters[i].Chapter, w)
		}
	}
	if feed.Chapters[1].ID != "tumanga-solo-leveling-ch1.5" {
		t.Errorf("chapter id = %q", feed.Chapters[1].ID)
	}
}

func TestTuMangaPagesDecoded(t *testing.T) {
	s := newTuMangaTestServer(t)

	pages, err := s.Pages(context.Background(), "solo-leveling", "1")
	if err != nil {
		t.Fatal(err)
	}
	if pages.Total != 2 {
		t.Fatalf("total = %d", pages.Total)
	}
	want := s.BaseURL + "/pic_source/solo-leveling/1/001.jpg"
	if pages.Pages[0] != want {
		t.Errorf("page = %q, want %q", pages.Pages[0], want)
	}
}

func TestXorDecode(t *testing.T) {
	const key = "clave"
	const path = "/pic_source/x/1.jpg"
	decoded, err := xorDecode(xorEncode(path, key), key)
	if err != nil {
		t.Fatal(err)
	}
	if decoded != path {
		t.Errorf("decoded = %q, want %q", decoded, path)
	}

	if _, err := xorDecode("!!!not base64!!!", key); err == nil {
		t.Error("want error on invalid base64")
	}
}
