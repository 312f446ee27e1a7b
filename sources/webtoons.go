package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/internal"
)

// Webtoons scrapes the Spanish portal. Its images only load with a site
// referer, so covers and pages go through the image proxy route.
type Webtoons struct {
	BaseURL string
	client  *http.Client
}

func NewWebtoons(timeout time.Duration) *Webtoons {
	return &Webtoons{
		BaseURL: "https://www.webtoons.com",
		client:  newHTTPClient(timeout),
	}
}

func (s *Webtoons) Name() string      { return internal.SourceWebtoons }
func (s *Webtoons) HasChapters() bool { return true }

// listURL works for any title_no; the site redirects to the canonical
// genre/slug path.
func (s *Webtoons) listURL(titleNo string) string {
	return s.BaseURL + "/es/genre/any/any/list?title_no=" + titleNo
}

func (s *Webtoons) viewerURL(titleNo, episodeNo string) string {
	return s.BaseURL + "/es/genre/any/any/viewer?title_no=" + titleNo + "&episode_no=" + episodeNo
}

func (s *Webtoons) Search(ctx context.Context, query string, limit int) ([]internal.Manga, error) {
	doc, err := getDoc(ctx, s.client, s.Name(), s.BaseURL+"/es/search?keyword="+url.QueryEscape(query), s.BaseURL)
	if err != nil {
		return nil, err
	}

	var mangas []internal.Manga
	doc.Find(`a[href*="title_no="]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := attrOr(a, "href")
		titleNo := queryParam(href, "title_no")
		if titleNo == "" {
			return true
		}

		title := internal.CleanScraped(a.Find(".subj").First().Text())
		if title == "" {
			return true
		}

		m := internal.Manga{
			ID:        catalog.Compose(s.Name(), titleNo),
			Source:    s.Name(),
			Title:     title,
			CoverURL:  ProxyImageURL(attrOr(a.Find("img").First(), "src", "data-src")),
			Author:    internal.CleanScraped(a.Find(".author").First().Text()),
			Status:    internal.StatusOngoing,
			Type:      internal.TypeWebtoon,
			SourceURL: absoluteURL(s.BaseURL, href),
		}
		if genre := internal.CleanScraped(a.Find(".genre").First().Text()); genre != "" {
			m.Tags = []string{genre}
		}
		m.ApplyDefaults()
		mangas = append(mangas, m)
		return len(mangas) < limit
	})
	return mangas, nil
}

func (s *Webtoons) Details(ctx context.Context, nativeID string) (*internal.MangaDetail, error) {
	doc, err := getDoc(ctx, s.client, s.Name(), s.listURL(nativeID), s.BaseURL)
	if err != nil {
		return nil, err
	}

	title := internal.CleanScraped(doc.Find("h1.subj").First().Text())
	if title == "" {
		title = internal.CleanScraped(doc.Find("h3.subj").First().Text())
	}
	if title == "" {
		return nil, internal.NewSourceError(s.Name(), internal.ErrNotFound,
			fmt.Errorf("title %s has no detail page", nativeID))
	}

	cover := attrOr(doc.Find(`meta[property="og:image"]`).First(), "content")
	description := internal.CleanScraped(doc.Find("#_asideDetail .summary").First().Text())
	if description == "" {
		description = attrOr(doc.Find(`meta[property="og:description"]`).First(), "content")
	}

	status := internal.StatusOngoing
	if day := strings.ToUpper(doc.Find("#_asideDetail .day_info").First().Text()); strings.Contains(day, "FIN") ||
		strings.Contains(day, "COMPLETADO") {
		status = internal.StatusCompleted
	}

	m := internal.Manga{
		ID:          catalog.Compose(s.Name(), nativeID),
		Source:      s.Name(),
		Title:       title,
		Description: internal.CleanDescription(description),
		CoverURL:    ProxyImageURL(cover),
		Author:      internal.CleanScraped(doc.Find(".author_area").First().Text()),
		Status:      status,
		Type:        internal.TypeWebtoon,
		SourceURL:   s.listURL(nativeID),
	}
	if genre := internal.CleanScraped(doc.Find("h2.genre").First().Text()); genre != "" {
		m.Tags = []string{genre}
	}
	m.ApplyDefaults()

	return &internal.MangaDetail{Manga: m}, nil
}

func (s *Webtoons) Chapters(ctx context.Context, nativeID string, offset, limit int) (internal.ChapterFeed, error) {
	doc, err := getDoc(ctx, s.client, s.Name(), s.listURL(nativeID), s.BaseURL)
	if err != nil {
		return internal.ChapterFeed{}, err
	}

	var chapters []internal.Chapter
	doc.Find("#_listUl li").Each(func(_ int, li *goquery.Selection) {
		episodeNo := attrOr(li, "data-episode-no")
		href := attrOr(li.Find("a").First(), "href")
		if episodeNo == "" {
			episodeNo = queryParam(href, "episode_no")
		}
		if episodeNo == "" {
			return
		}

		title := internal.CleanScraped(li.Find(".subj span").First().Text())
		if title == "" {
			title = internal.CleanScraped(li.Find(".subj").First().Text())
		}

		chapters = append(chapters, internal.Chapter{
			ID:        catalog.ComposeChapter(s.Name(), nativeID, episodeNo),
			Chapter:   episodeNo,
			Title:     title,
			PublishAt: internal.CleanScraped(li.Find(".date").First().Text()),
			URL:       absoluteURL(s.BaseURL, href),
			Source:    s.Name(),
		})
	})

	// The list page is newest-first; readers expect oldest-first.
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

func (s *Webtoons) Pages(ctx context.Context, nativeID, episode string) (internal.PageSet, error) {
	if episode == "" {
		return internal.PageSet{}, internal.NewSourceError(s.Name(), internal.ErrNotFound,
			fmt.Errorf("missing episode number for title %s", nativeID))
	}

	doc, err := getDoc(ctx, s.client, s.Name(), s.viewerURL(nativeID, episode), s.listURL(nativeID))
	if err != nil {
		return internal.PageSet{}, err
	}

	var pages []string
	doc.Find("#_imageList img").Each(func(_ int, img *goquery.Selection) {
		src := attrOr(img, "data-url", "src")
		if src == "" {
			return
		}
		if !strings.Contains(src, "webtoon-phinf") && !strings.Contains(src, "pstatic.net") {
			return
		}
		pages = append(pages, ProxyImageURL(src))
	})

	if len(pages) == 0 {
		return internal.PageSet{}, internal.NewSourceError(s.Name(), internal.ErrParsing,
			fmt.Errorf("no pages in episode %s of title %s", episode, nativeID))
	}
	return internal.PageSet{Pages: pages, Total: len(pages), Source: s.Name()}, nil
}

// ProxyImageURL routes a referer-guarded image through the local proxy.
func ProxyImageURL(raw string) string {
	if raw == "" {
		return ""
	}
	return "/api/proxy-image?url=" + url.QueryEscape(raw)
}

func queryParam(rawURL, key string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(key)
}
