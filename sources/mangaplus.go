package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/internal"
)

// MangaPlus answers in a binary wire format with no public JSON variant.
// Rather than carry a schema for it, the adapter pulls what it needs out of
// the raw payload: asset URLs identify titles and chapters, and the
// printable runs around them carry names and descriptions. Pages are
// encrypted server-side, so reading happens on the official viewer.
type MangaPlus struct {
	APIURL string
	client *http.Client
}

func NewMangaPlus(timeout time.Duration) *MangaPlus {
	return &MangaPlus{
		APIURL: "https://jumpg-webapi.tokyo-cdn.com/api",
		client: newHTTPClient(timeout),
	}
}

func (s *MangaPlus) Name() string      { return internal.SourceMangaPlus }
func (s *MangaPlus) HasChapters() bool { return true }

const mangaplusViewer = "https://mangaplus.shueisha.co.jp/viewer/"

const mangaplusPagesNote = "MANGA Plus cifra sus páginas. Usa el visor oficial para leer este capítulo."

var (
	plusTitleAssetRe   = regexp.MustCompile(`https://jumpg-assets\.tokyo-cdn\.com/secure/title/(\d+)/[\w./-]*title_thumbnail[\w./-]*\.(?:jpg|png|webp)[\w?=&-]*`)
	plusChapterAssetRe = regexp.MustCompile(`https://jumpg-assets\.tokyo-cdn\.com/secure/title/\d+/chapter/(\d+)/[\w./-]+`)
	plusChapterNameRe  = regexp.MustCompile(`#(\d+(?:\.\d+)?)`)
)

// plusTitle is one entry recovered from the title list payload.
type plusTitle struct {
	id     string
	name   string
	author string
	cover  string
}

func (s *MangaPlus) Search(ctx context.Context, query string, limit int) ([]internal.Manga, error) {
	// There is no search endpoint; the full catalog is one request and
	// filtering happens here.
	titles, err := s.allTitles(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	mangas := make([]internal.Manga, 0, limit)
	for _, t := range titles {
		if !strings.Contains(strings.ToLower(t.name), needle) {
			continue
		}
		mangas = append(mangas, s.mapTitle(t))
		if len(mangas) >= limit {
			break
		}
	}
	return mangas, nil
}

func (s *MangaPlus) allTitles(ctx context.Context) ([]plusTitle, error) {
	body, err := getBytes(ctx, s.client, s.Name(), s.APIURL+"/title_list/allV2", nil)
	if err != nil {
		return nil, err
	}

	matches := plusTitleAssetRe.FindAllSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return nil, internal.NewSourceError(s.Name(), internal.ErrParsing,
			fmt.Errorf("no titles in payload (%d bytes)", len(body)))
	}

	titles := make([]plusTitle, 0, len(matches))
	prevEnd := 0
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		start, end := m[0], m[1]
		id := string(body[m[2]:m[3]])

		// The name and author of an entry sit between the previous
		// thumbnail URL and this one.
		runs := printableRuns(body[prevEnd:start], 3)
		prevEnd = end

		if seen[id] {
			continue
		}
		seen[id] = true

		t := plusTitle{id: id, cover: string(body[start:end])}
		if len(runs) > 0 {
			t.name = runs[0]
		}
		if len(runs) > 1 {
			t.author = runs[1]
		}
		if t.name == "" {
			continue
		}
		titles = append(titles, t)
	}
	return titles, nil
}

func (s *MangaPlus) Details(ctx context.Context, nativeID string) (*internal.MangaDetail, error) {
	body, err := getBytes(ctx, s.client, s.Name(), s.APIURL+"/title_detailV3?title_id="+nativeID, nil)
	if err != nil {
		return nil, err
	}

	idx := plusTitleAssetRe.FindSubmatchIndex(body)
	if idx == nil {
		return nil, internal.NewSourceError(s.Name(), internal.ErrNotFound,
			fmt.Errorf("title %s not in payload", nativeID))
	}

	t := plusTitle{id: nativeID, cover: string(body[idx[0]:idx[1]])}
	runs := printableRuns(body[:idx[0]], 3)
	if len(runs) > 0 {
		t.name = runs[0]
	}
	if len(runs) > 1 {
		t.author = runs[1]
	}

	manga := s.mapTitle(t)

	// The overview is the longest prose run after the thumbnail block.
	var overview string
	for _, run := range printableRuns(body[idx[1]:], 40) {
		if strings.HasPrefix(run, "http") {
			continue
		}
		if len(run) > len(overview) {
			overview = run
		}
	}
	if overview != "" {
		manga.Description = internal.CleanDescription(overview)
	}

	return &internal.MangaDetail{Manga: manga}, nil
}

func (s *MangaPlus) Chapters(ctx context.Context, nativeID string, offset, limit int) (internal.ChapterFeed, error) {
	body, err := getBytes(ctx, s.client, s.Name(), s.APIURL+"/title_detailV3?title_id="+nativeID, nil)
	if err != nil {
		return internal.ChapterFeed{}, err
	}

	idMatches := plusChapterAssetRe.FindAllSubmatch(body, -1)
	nameMatches := plusChapterNameRe.FindAllSubmatch(body, -1)

	seen := make(map[string]bool, len(idMatches))
	chapters := make([]internal.Chapter, 0, len(idMatches))
	for i, m := range idMatches {
		chapterID := string(m[1])
		if seen[chapterID] {
			continue
		}
		seen[chapterID] = true

		num := fmt.Sprintf("%d", len(chapters)+1)
		if i < len(nameMatches) {
			num = string(nameMatches[i][1])
		}

		chapters = append(chapters, internal.Chapter{
			ID:      catalog.Compose(s.Name(), chapterID),
			Chapter: num,
			Title:   "Capítulo " + num,
			URL:     mangaplusViewer + chapterID,
			Source:  s.Name(),
		})
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

func (s *MangaPlus) Pages(ctx context.Context, nativeID, _ string) (internal.PageSet, error) {
	return internal.PageSet{
		Pages:     []string{},
		Source:    s.Name(),
		Note:      mangaplusPagesNote,
		ViewerURL: mangaplusViewer + nativeID,
	}, nil
}

func (s *MangaPlus) mapTitle(t plusTitle) internal.Manga {
	m := internal.Manga{
		ID:        catalog.Compose(s.Name(), t.id),
		Source:    s.Name(),
		Title:     internal.CleanScraped(t.name),
		CoverURL:  t.cover,
		Author:    internal.CleanScraped(t.author),
		Status:    internal.StatusOngoing,
		Type:      internal.TypeManga,
		SourceURL: "https://mangaplus.shueisha.co.jp/titles/" + t.id,
	}
	m.ApplyDefaults()
	return m
}

// printableRuns collects maximal runs of printable ASCII of at least min
// bytes, trimmed, skipping runs that are pure wire noise.
func printableRuns(b []byte, min int) []string {
	var runs []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		run := strings.TrimSpace(string(b[start:end]))
		start = -1
		if len(run) < min {
			return
		}
		runs = append(runs, run)
	}
	for i, c := range b {
		if c >= 0x20 && c < 0x7f {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(b))
	return runs
}
