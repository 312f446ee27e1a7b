package sources

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/internal"
)

// TuManga scrapes tumanga.net. The reader obfuscates page URLs: the HTML
// carries them base64-encoded and XOR-ed with a per-page key published in a
// meta tag.
type TuManga struct {
	BaseURL string
	client  *http.Client
}

func NewTuManga(timeout time.Duration) *TuManga {
	return &TuManga{
		BaseURL: "https://tumanga.net",
		client:  newHTTPClient(timeout),
	}
}

func (s *TuManga) Name() string      { return internal.SourceTuManga }
func (s *TuManga) HasChapters() bool { return true }

var (
	tumangaSlugRe       = regexp.MustCompile(`/online/([\w-]+)`)
	tumangaChapterNumRe = regexp.MustCompile(`-([\d.]+)/?$`)
	tumangaPicArrayRe   = regexp.MustCompile(`PIC_ARRAY\s*=\s*\[([^\]]*)\]`)
	tumangaQuotedRe     = regexp.MustCompile(`"([^"]+)"`)
)

func (s *TuManga) Search(ctx context.Context, query string, limit int) ([]internal.Manga, error) {
	doc, err := getDoc(ctx, s.client, s.Name(), s.BaseURL+"/biblioteca?title="+url.QueryEscape(query), s.BaseURL)
	if err != nil {
		return nil, err
	}

	var mangas []internal.Manga
	doc.Find(".gm_h .item, .gm_h-item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		a := item.Find(`a[href*="/online/"]`).First()
		href := attrOr(a, "href")
		slug := matchGroup(tumangaSlugRe, href)
		if slug == "" {
			return true
		}

		img := item.Find("img").First()
		title := internal.CleanScraped(item.Find(".title, h3, h4").First().Text())
		if title == "" {
			title = internal.CleanScraped(attrOr(img, "alt"))
		}
		if title == "" {
			return true
		}

		m := internal.Manga{
			ID:        catalog.Compose(s.Name(), slug),
			Source:    s.Name(),
			Title:     title,
			CoverURL:  absoluteURL(s.BaseURL, attrOr(img, "data-src", "src")),
			Status:    internal.StatusOngoing,
			Type:      internal.TypeManga,
			SourceURL: absoluteURL(s.BaseURL, href),
		}
		m.ApplyDefaults()
		mangas = append(mangas, m)
		return len(mangas) < limit
	})
	return mangas, nil
}

func (s *TuManga) Details(ctx context.Context, nativeID string) (*internal.MangaDetail, error) {
	doc, err := s.detailDoc(ctx, nativeID)
	if err != nil {
		return nil, err
	}

	title := internal.CleanScraped(doc.Find("h1").First().Text())
	if title == "" {
		return nil, internal.NewSourceError(s.Name(), internal.ErrNotFound,
			fmt.Errorf("series %s has no detail page", nativeID))
	}

	description := internal.CleanScraped(doc.Find(".description, .sinopsis").First().Text())
	if description == "" {
		description = attrOr(doc.Find(`meta[property="og:description"]`).First(), "content")
	}

	cover := attrOr(doc.Find(`meta[property="og:image"]`).First(), "content")
	if cover == "" {
		cover = attrOr(doc.Find(".cover img, .thumb img").First(), "data-src", "src")
	}

	var tags []string
	doc.Find(`.genres a, a[href*="/genero/"]`).Each(func(_ int, a *goquery.Selection) {
		if g := internal.CleanScraped(a.Text()); g != "" {
			tags = append(tags, g)
		}
	})

	m := internal.Manga{
		ID:          catalog.Compose(s.Name(), nativeID),
		Source:      s.Name(),
		Title:       title,
		Description: internal.CleanDescription(description),
		CoverURL:    absoluteURL(s.BaseURL, cover),
		Author:      internal.CleanScraped(doc.Find(`a[href*="/autor/"], .author`).First().Text()),
		Status:      scrapedStatus(doc.Find(".status, .estado").First().Text()),
		Type:        internal.TypeManga,
		Tags:        tags,
		SourceURL:   s.BaseURL + "/online/" + nativeID,
	}
	m.ApplyDefaults()

	return &internal.MangaDetail{Manga: m}, nil
}

func (s *TuManga) Chapters(ctx context.Context, nativeID string, offset, limit int) (internal.ChapterFeed, error) {
	doc, err := s.detailDoc(ctx, nativeID)
	if err != nil {
		return internal.ChapterFeed{}, err
	}

	var chapters []internal.Chapter
	doc.Find(".main_chapters .indi_chap a.chap_go").Each(func(_ int, a *goquery.Selection) {
		href := attrOr(a, "href")
		num := matchGroup(tumangaChapterNumRe, strings.TrimSuffix(href, "/"))
		if num == "" {
			return
		}
		title := internal.CleanScraped(a.Text())
		if title == "" {
			title = "Capítulo " + num
		}
		chapters = append(chapters, internal.Chapter{
			ID:      catalog.ComposeChapter(s.Name(), nativeID, num),
			Chapter: num,
			Title:   title,
			URL:     absoluteURL(s.BaseURL, href),
			Source:  s.Name(),
		})
	})

	// Listed newest-first on the site.
	for i, j := 0, len(chapters)-1; i < j; i, j = i+1, j-1 {
		chapters[i], chapters[j] = chapters[j], chapters[i]
	}

	total := len(chapters)
	if offset >= total {
		return internal.ChapterFeed{Chapters: []internal.Chapter{}, Total: total}, nil
	}
	chapters = chapters[offset:]
	if limit > 0 && len(chapters) > limit {
		chapters = chapters[:limit]
	}
	return internal.ChapterFeed{Chapters: chapters, Total: total}, nil
}

func (s *TuManga) Pages(ctx context.Context, nativeID, chapter string) (internal.PageSet, error) {
	if chapter == "" {
		return internal.PageSet{}, internal.NewSourceError(s.Name(), internal.ErrNotFound,
			fmt.Errorf("missing chapter number for %s", nativeID))
	}

	readerURL := fmt.Sprintf("%s/leer/%s-%s", s.BaseURL, nativeID, chapter)
	doc, err := getDoc(ctx, s.client, s.Name(), readerURL, s.BaseURL+"/online/"+nativeID)
	if err != nil {
		return internal.PageSet{}, err
	}

	key := attrOr(doc.Find(`meta[name="ad:check"]`).First(), "content")
	html, _ := doc.Html()
	arr := matchGroup(tumangaPicArrayRe, html)
	if key == "" || arr == "" {
		return internal.PageSet{}, internal.NewSourceError(s.Name(), internal.ErrParsing,
			fmt.Errorf("reader markup changed for %s capítulo %s", nativeID, chapter))
	}

	var pages []string
	for _, q := range tumangaQuotedRe.FindAllStringSubmatch(arr, -1) {
		path, err := xorDecode(q[1], key)
		if err != nil {
			continue
		}
		pages = append(pages, absoluteURL(s.BaseURL, path))
	}

	if len(pages) == 0 {
		return internal.PageSet{}, internal.NewSourceError(s.Name(), internal.ErrParsing,
			fmt.Errorf("no pages decoded for %s capítulo %s", nativeID, chapter))
	}
	return internal.PageSet{Pages: pages, Total: len(pages), Source: s.Name()}, nil
}

func (s *TuManga) detailDoc(ctx context.Context, slug string) (*goquery.Document, error) {
	return getDoc(ctx, s.client, s.Name(), s.BaseURL+"/online/"+slug, s.BaseURL)
}

// xorDecode undoes the reader obfuscation: base64, then XOR against the
// key repeated over the payload.
func xorDecode(encoded, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(raw))
	for i, b := range raw {
		out[i] = b ^ key[i%len(key)]
	}
	return string(out), nil
}

func matchGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return ""
}

// scrapedStatus maps the Spanish status labels the scraped sites use.
func scrapedStatus(text string) internal.Status {
	switch {
	case strings.Contains(strings.ToLower(text), "finalizado"),
		strings.Contains(strings.ToLower(text), "completado"),
		strings.Contains(strings.ToLower(text), "completo"):
		return internal.StatusCompleted
	case strings.Contains(strings.ToLower(text), "pausado"),
		strings.Contains(strings.ToLower(text), "hiatus"):
		return internal.StatusHiatus
	case strings.Contains(strings.ToLower(text), "cancelado"):
		return internal.StatusCancelled
	}
	return internal.StatusOngoing
}
