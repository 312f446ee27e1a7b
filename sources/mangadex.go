package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/antihax/optional"

	"github.com/mangalib-app/mangalib/internal"
)

// MangaDex is the default source: its ids are bare UUIDs with no prefix.
type MangaDex struct {
	BaseURL    string
	UploadsURL string
	client     *http.Client
}

func NewMangaDex(timeout time.Duration) *MangaDex {
	return &MangaDex{
		BaseURL:    "https://api.mangadex.org",
		UploadsURL: "https://uploads.mangadex.org",
		client:     newHTTPClient(timeout),
	}
}

func (s *MangaDex) Name() string      { return internal.SourceMangaDex }
func (s *MangaDex) HasChapters() bool { return true }

// MangaDexSearchOpts are the optional query parameters of /manga.
type MangaDexSearchOpts struct {
	Limit              optional.Int32
	Offset             optional.Int32
	TranslatedLanguage optional.String
	OrderRelevance     optional.String
}

func (s *MangaDex) Search(ctx context.Context, query string, limit int) ([]internal.Manga, error) {
	raw, err := s.searchManga(ctx, query, &MangaDexSearchOpts{
		Limit:              optional.NewInt32(int32(limit)),
		TranslatedLanguage: optional.NewString("es"),
		OrderRelevance:     optional.NewString("desc"),
	})
	if err != nil {
		return nil, err
	}

	mangas := make([]internal.Manga, 0, len(raw))
	for _, m := range raw {
		mangas = append(mangas, s.mapManga(m))
	}
	return mangas, nil
}

func (s *MangaDex) searchManga(ctx context.Context, title string, opts *MangaDexSearchOpts) ([]dexManga, error) {
	params := url.Values{}
	params.Set("title", title)
	params.Add("contentRating[]", "safe")
	params.Add("contentRating[]", "suggestive")
	params.Add("includes[]", "cover_art")
	if opts != nil && opts.Limit.IsSet() {
		params.Set("limit", strconv.Itoa(int(opts.Limit.Value())))
	}
	if opts != nil && opts.Offset.IsSet() {
		params.Set("offset", strconv.Itoa(int(opts.Offset.Value())))
	}
	if opts != nil && opts.TranslatedLanguage.IsSet() {
		params.Add("translatedLanguage[]", opts.TranslatedLanguage.Value())
	}
	if opts != nil && opts.OrderRelevance.IsSet() {
		params.Set("order[relevance]", opts.OrderRelevance.Value())
	}

	var list dexList
	if err := getJSON(ctx, s.client, s.Name(), s.BaseURL+"/manga?"+params.Encode(), &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (s *MangaDex) Details(ctx context.Context, nativeID string) (*internal.MangaDetail, error) {
	params := url.Values{}
	params.Add("includes[]", "cover_art")
	params.Add("includes[]", "author")
	params.Add("includes[]", "artist")

	var resp dexEntity
	u := fmt.Sprintf("%s/manga/%s?%s", s.BaseURL, nativeID, params.Encode())
	if err := getJSON(ctx, s.client, s.Name(), u, &resp); err != nil {
		return nil, err
	}

	manga := s.mapManga(resp.Data)
	for _, rel := range resp.Data.Relationships {
		switch rel.Type {
		case "author":
			if rel.Attributes.Name != "" {
				manga.Author = rel.Attributes.Name
			}
		case "artist":
			if rel.Attributes.Name != "" {
				manga.Artist = rel.Attributes.Name
			}
		}
	}
	manga.ApplyDefaults()

	return &internal.MangaDetail{Manga: manga}, nil
}

func (s *MangaDex) Chapters(ctx context.Context, nativeID string, offset, limit int) (internal.ChapterFeed, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{}
	params.Set("manga", nativeID)
	params.Add("translatedLanguage[]", "es")
	params.Set("order[chapter]", "asc")
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	params.Add("contentRating[]", "safe")
	params.Add("contentRating[]", "suggestive")

	var list dexChapterList
	if err := getJSON(ctx, s.client, s.Name(), s.BaseURL+"/chapter?"+params.Encode(), &list); err != nil {
		return internal.ChapterFeed{}, err
	}

	chapters := make([]internal.Chapter, 0, len(list.Data))
	for _, c := range list.Data {
		chapters = append(chapters, mapDexChapter(c))
	}
	return internal.ChapterFeed{Chapters: chapters, Total: list.Total}, nil
}

// Pages talks to the at-home server; nativeID here is a chapter UUID.
func (s *MangaDex) Pages(ctx context.Context, nativeID, _ string) (internal.PageSet, error) {
	var resp dexAtHome
	if err := getJSON(ctx, s.client, s.Name(), s.BaseURL+"/at-home/server/"+nativeID, &resp); err != nil {
		return internal.PageSet{}, err
	}

	pages := make([]string, 0, len(resp.Chapter.Data))
	for _, file := range resp.Chapter.Data {
		pages = append(pages, fmt.Sprintf("%s/data/%s/%s", resp.BaseURL, resp.Chapter.Hash, file))
	}
	return internal.PageSet{Pages: pages, Total: len(pages), Source: s.Name()}, nil
}

// mapManga shapes one raw API entity into the canonical record. Pure; any
// missing field degrades to its default.
func (s *MangaDex) mapManga(raw dexManga) internal.Manga {
	attrs := raw.Attributes

	var coverURL string
	for _, rel := range raw.Relationships {
		if rel.Type == "cover_art" && rel.Attributes.FileName != "" {
			coverURL = fmt.Sprintf("%s/covers/%s/%s.512.jpg", s.UploadsURL, raw.ID, rel.Attributes.FileName)
			break
		}
	}

	tags := make([]string, 0, len(attrs.Tags))
	for _, t := range attrs.Tags {
		if name := pickLocalized(t.Attributes.Name); name != "" {
			tags = append(tags, name)
		}
	}

	m := internal.Manga{
		ID:          raw.ID,
		Source:      s.Name(),
		Title:       pickLocalized(attrs.Title),
		Description: internal.CleanDescription(pickLocalized(attrs.Description)),
		CoverURL:    coverURL,
		Status:      mapDexStatus(attrs.Status),
		Type:        typeFromLanguage(attrs.OriginalLanguage),
		Year:        attrs.Year,
		Tags:        tags,
		SourceURL:   "https://mangadex.org/title/" + raw.ID,
	}
	m.ApplyDefaults()
	return m
}

func mapDexChapter(raw dexChapter) internal.Chapter {
	num := raw.Attributes.Chapter
	if num == "" {
		num = "0"
	}
	title := raw.Attributes.Title
	if title == "" {
		title = "Capítulo " + num
	}
	return internal.Chapter{
		ID:        raw.ID,
		Chapter:   num,
		Title:     title,
		Volume:    raw.Attributes.Volume,
		PublishAt: raw.Attributes.PublishAt,
		Source:    internal.SourceMangaDex,
	}
}

// pickLocalized prefers es, then en, then romanized ja; otherwise the first
// value in key order so the choice is stable.
func pickLocalized(m map[string]string) string {
	for _, lang := range []string{"es", "es-la", "en", "ja-ro"} {
		if v := m[lang]; v != "" {
			return v
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if m[k] != "" {
			return m[k]
		}
	}
	return ""
}

func mapDexStatus(status string) internal.Status {
	switch status {
	case "completed":
		return internal.StatusCompleted
	case "hiatus":
		return internal.StatusHiatus
	case "cancelled":
		return internal.StatusCancelled
	}
	return internal.StatusOngoing
}

func typeFromLanguage(lang string) internal.Type {
	switch lang {
	case "ko":
		return internal.TypeManhwa
	case "zh", "zh-hk":
		return internal.TypeManhua
	}
	return internal.TypeManga
}

type dexList struct {
	Data  []dexManga `json:"data"`
	Total int        `json:"total"`
}

type dexEntity struct {
	Data dexManga `json:"data"`
}

type dexManga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title            map[string]string `json:"title"`
		Description      map[string]string `json:"description"`
		Status           string            `json:"status"`
		Year             *int              `json:"year"`
		OriginalLanguage string            `json:"originalLanguage"`
		ContentRating    string            `json:"contentRating"`
		Tags             []dexTag          `json:"tags"`
	} `json:"attributes"`
	Relationships []dexRelationship `json:"relationships"`
}

type dexTag struct {
	Attributes struct {
		Name map[string]string `json:"name"`
	} `json:"attributes"`
}

type dexRelationship struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		FileName string `json:"fileName"`
		Name     string `json:"name"`
	} `json:"attributes"`
}

type dexChapterList struct {
	Data  []dexChapter `json:"data"`
	Total int          `json:"total"`
}

type dexChapter struct {
	ID         string `json:"id"`
	Attributes struct {
		Chapter   string `json:"chapter"`
		Title     string `json:"title"`
		Volume    string `json:"volume"`
		PublishAt string `json:"publishAt"`
	} `json:"attributes"`
}

type dexAtHome struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash string   `json:"hash"`
		Data []string `json:"data"`
	} `json:"chapter"`
}
