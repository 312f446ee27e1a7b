package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mangalib-app/mangalib/internal"
)

// VisorManga runs the same Madara theme as MangaLector under a different
// domain, so it shares the scraping helpers.
type VisorManga struct {
	BaseURL string
	client  *http.Client
}

func NewVisorManga(timeout time.Duration) *VisorManga {
	return &VisorManga{
		BaseURL: "https://visormanga.com",
		client:  newHTTPClient(timeout),
	}
}

func (s *VisorManga) Name() string      { return internal.SourceVisorManga }
func (s *VisorManga) HasChapters() bool { return true }

func (s *VisorManga) Search(ctx context.Context, query string, limit int) ([]internal.Manga, error) {
	u := s.BaseURL + "/?s=" + url.QueryEscape(query) + "&post_type=wp-manga"
	doc, err := getDoc(ctx, s.client, s.Name(), u, s.BaseURL)
	if err != nil {
		return nil, err
	}
	return scrapeSearchResults(doc, s.Name(), s.BaseURL, lectorSlugRe, limit), nil
}

func (s *VisorManga) Details(ctx context.Context, nativeID string) (*internal.MangaDetail, error) {
	doc, err := s.detailDoc(ctx, nativeID)
	if err != nil {
		return nil, err
	}
	m, err := scrapeMadaraDetail(doc, s.Name(), s.BaseURL, nativeID)
	if err != nil {
		return nil, err
	}
	return &internal.MangaDetail{Manga: *m}, nil
}

func (s *VisorManga) Chapters(ctx context.Context, nativeID string, offset, limit int) (internal.ChapterFeed, error) {
	doc, err := s.detailDoc(ctx, nativeID)
	if err != nil {
		return internal.ChapterFeed{}, err
	}

	chapters := scrapeMadaraChapters(doc, s.Name(), s.BaseURL, nativeID)
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

func (s *VisorManga) Pages(ctx context.Context, nativeID, chapter string) (internal.PageSet, error) {
	if chapter == "" {
		return internal.PageSet{}, internal.NewSourceError(s.Name(), internal.ErrNotFound,
			fmt.Errorf("missing chapter number for %s", nativeID))
	}

	doc, err := s.detailDoc(ctx, nativeID)
	if err != nil {
		return internal.PageSet{}, err
	}

	var chapterURL string
	for _, c := range scrapeMadaraChapters(doc, s.Name(), s.BaseURL, nativeID) {
		if c.Chapter == chapter {
			chapterURL = c.URL
			break
		}
	}
	if chapterURL == "" {
		return internal.PageSet{}, internal.NewSourceError(s.Name(), internal.ErrNotFound,
			fmt.Errorf("capítulo %s of %s not listed", chapter, nativeID))
	}

	reader, err := getDoc(ctx, s.client, s.Name(), chapterURL, s.BaseURL+"/manga/"+nativeID)
	if err != nil {
		return internal.PageSet{}, err
	}

	pages := scrapeMadaraPages(reader)
	if len(pages) == 0 {
		return internal.PageSet{}, internal.NewSourceError(s.Name(), internal.ErrParsing,
			fmt.Errorf("no pages in capítulo %s of %s", chapter, nativeID))
	}
	return internal.PageSet{Pages: pages, Total: len(pages), Source: s.Name()}, nil
}

func (s *VisorManga) detailDoc(ctx context.Context, slug string) (*goquery.Document, error) {
	return getDoc(ctx, s.client, s.Name(), s.BaseURL+"/manga/"+slug, s.BaseURL)
}
