package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/internal"
)

// MangaLector scrapes a Madara-themed Spanish reader. Chapter pages live
// either as <img> tags or, on some series, only inside a preloaded script
// array.
type MangaLector struct {
	BaseURL string
	client  *http.Client
}

func NewMangaLector(timeout time.Duration) *MangaLector {
	return &MangaLector{
		BaseURL: "https://mangalector.com",
		client:  newHTTPClient(timeout),
	}
}

func (s *MangaLector) Name() string      { return internal.SourceMangaLector }
func (s *MangaLector) HasChapters() bool { return true }

var (
	lectorSlugRe       = regexp.MustCompile(`/manga/([\w-]+)`)
	lectorChapterNumRe = regexp.MustCompile(`(?i)cap[ií]tulo\s*([\d.]+)`)
	lectorHrefNumRe    = regexp.MustCompile(`-([\d.]+)/?$`)
	lectorYearRe       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	preloadedImagesRe  = regexp.MustCompile(`chapter_preloaded_images\s*=\s*\[([^\]]*)\]`)
	quotedURLRe        = regexp.MustCompile(`["']\s*(https?:[^"'\s]+)\s*["']`)
)

func (s *MangaLector) Search(ctx context.Context, query string, limit int) ([]internal.Manga, error) {
	u := s.BaseURL + "/?s=" + url.QueryEscape(query) + "&post_type=wp-manga"
	doc, err := getDoc(ctx, s.client, s.Name(), u, s.BaseURL)
	if err != nil {
		return nil, err
	}
	return scrapeSearchResults(doc, s.Name(), s.BaseURL, lectorSlugRe, limit), nil
}

func (s *MangaLector) Details(ctx context.Context, nativeID string) (*internal.MangaDetail, error) {
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

func (s *MangaLector) Chapters(ctx context.Context, nativeID string, offset, limit int) (internal.ChapterFeed, error) {
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

func (s *MangaLector) Pages(ctx context.Context, nativeID, chapter string) (internal.PageSet, error) {
	if chapter == "" {
		return internal.PageSet{}, internal.NewSourceError(s.Name(), internal.ErrNotFound,
			fmt.Errorf("missing chapter number for %s", nativeID))
	}

	// Chapter URLs are not derivable from the number alone, so the list is
	// scanned for the matching entry.
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

func (s *MangaLector) detailDoc(ctx context.Context, slug string) (*goquery.Document, error) {
	return getDoc(ctx, s.client, s.Name(), s.BaseURL+"/manga/"+slug, s.BaseURL)
}

// scrapeSearchResults walks result anchors that link into the reader's
// series path. Shared by the Madara-style scrapers.
func scrapeSearchResults(doc *goquery.Document, source, baseURL string, slugRe *regexp.Regexp, limit int) []internal.Manga {
	var mangas []internal.Manga
	seen := make(map[string]bool)
	doc.Find(`a[href*="/manga/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := attrOr(a, "href")
		slug := matchGroup(slugRe, href)
		if slug == "" || seen[slug] {
			return true
		}

		item := a.Closest(".row, .c-tabs-item__content, .item, article")
		if item.Length() == 0 {
			item = a.Parent().Parent()
		}
		img := item.Find("img").First()

		title := internal.CleanScraped(item.Find(".post-title, h3, h4").First().Text())
		if title == "" {
			title = internal.CleanScraped(a.Text())
		}
		if title == "" {
			title = internal.CleanScraped(attrOr(img, "alt"))
		}
		if title == "" {
			return true
		}
		seen[slug] = true

		m := internal.Manga{
			ID:        catalog.Compose(source, slug),
			Source:    source,
			Title:     title,
			CoverURL:  absoluteURL(baseURL, attrOr(img, "data-src", "data-lazy-src", "src")),
			Status:    internal.StatusOngoing,
			Type:      internal.TypeManga,
			SourceURL: absoluteURL(baseURL, href),
		}
		m.ApplyDefaults()
		mangas = append(mangas, m)
		return len(mangas) < limit
	})
	return mangas
}

func scrapeMadaraDetail(doc *goquery.Document, source, baseURL, slug string) (*internal.Manga, error) {
	title := internal.CleanScraped(doc.Find(".post-title h1, h1").First().Text())
	if title == "" {
		return nil, internal.NewSourceError(source, internal.ErrNotFound,
			fmt.Errorf("series %s has no detail page", slug))
	}

	description := internal.CleanScraped(doc.Find(".summary__content, .description-summary").First().Text())
	if description == "" {
		description = attrOr(doc.Find(`meta[property="og:description"]`).First(), "content")
	}

	cover := attrOr(doc.Find(".summary_image img").First(), "data-src", "data-lazy-src", "src")
	if cover == "" {
		cover = attrOr(doc.Find(`meta[property="og:image"]`).First(), "content")
	}

	var tags []string
	doc.Find(".genres-content a").Each(func(_ int, a *goquery.Selection) {
		if g := internal.CleanScraped(a.Text()); g != "" {
			tags = append(tags, g)
		}
	})

	var year *int
	if m := lectorYearRe.FindString(doc.Find(".post-status, .post-content").Text()); m != "" {
		if y, err := strconv.Atoi(m); err == nil {
			year = &y
		}
	}

	manga := internal.Manga{
		ID:          catalog.Compose(source, slug),
		Source:      source,
		Title:       title,
		Description: internal.CleanDescription(description),
		CoverURL:    absoluteURL(baseURL, cover),
		Author:      internal.CleanScraped(doc.Find(".author-content a, .author-content").First().Text()),
		Artist:      internal.CleanScraped(doc.Find(".artist-content a, .artist-content").First().Text()),
		Status:      scrapedStatus(doc.Find(".post-status .summary-content").Last().Text()),
		Type:        internal.TypeManga,
		Year:        year,
		Tags:        tags,
		SourceURL:   baseURL + "/manga/" + slug,
	}
	manga.ApplyDefaults()
	return &manga, nil
}

// scrapeMadaraChapters returns the chapter list oldest-first. The markup
// lists newest-first but ordering is not guaranteed, so entries are sorted
// by numeric chapter.
func scrapeMadaraChapters(doc *goquery.Document, source, baseURL, slug string) []internal.Chapter {
	var chapters []internal.Chapter
	doc.Find(".wp-manga-chapter a, li.wp-manga-chapter > a").Each(func(_ int, a *goquery.Selection) {
		href := attrOr(a, "href")
		text := internal.CleanScraped(a.Text())

		num := matchGroup(lectorChapterNumRe, text)
		if num == "" {
			num = matchGroup(lectorHrefNumRe, strings.TrimSuffix(href, "/"))
		}
		if num == "" {
			return
		}

		title := text
		if title == "" {
			title = "Capítulo " + num
		}
		chapters = append(chapters, internal.Chapter{
			ID:      catalog.ComposeChapter(source, slug, num),
			Chapter: num,
			Title:   title,
			URL:     absoluteURL(baseURL, href),
			Source:  source,
		})
	})

	sort.SliceStable(chapters, func(i, j int) bool {
		a, _ := strconv.ParseFloat(chapters[i].Chapter, 64)
		b, _ := strconv.ParseFloat(chapters[j].Chapter, 64)
		return a < b
	})
	return chapters
}

// scrapeMadaraPages reads the reader images, falling back to the preloaded
// script array some themes use instead of markup.
func scrapeMadaraPages(doc *goquery.Document) []string {
	var pages []string
	doc.Find(".reading-content img, .page-break img, #readerarea img").Each(func(_ int, img *goquery.Selection) {
		if src := strings.TrimSpace(attrOr(img, "data-src", "data-lazy-src", "src")); src != "" {
			pages = append(pages, src)
		}
	})
	if len(pages) > 0 {
		return pages
	}

	html, _ := doc.Html()
	if arr := matchGroup(preloadedImagesRe, html); arr != "" {
		for _, m := range quotedURLRe.FindAllStringSubmatch(arr, -1) {
			pages = append(pages, strings.ReplaceAll(m[1], `\/`, "/"))
		}
	}
	return pages
}
