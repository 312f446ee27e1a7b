package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/ratelimit"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/internal"
)

// Jikan wraps the MyAnimeList REST mirror. The public API allows three
// requests per second, so every call goes through a local limiter and a
// 429 gets one retry after a backoff.
type Jikan struct {
	BaseURL string
	client  *http.Client
	limiter ratelimit.Limiter
}

func NewJikan(timeout time.Duration) *Jikan {
	return &Jikan{
		BaseURL: "https://api.jikan.moe/v4",
		client:  newHTTPClient(timeout),
		limiter: ratelimit.New(3),
	}
}

func (s *Jikan) Name() string      { return internal.SourceJikan }
func (s *Jikan) HasChapters() bool { return false }

const jikanNote = "MyAnimeList solo provee información. Los capítulos deben buscarse en otras fuentes."

func (s *Jikan) getJSON(ctx context.Context, url string, out any) error {
	s.limiter.Take()
	err := getJSON(ctx, s.client, s.Name(), url, out)
	if err == nil {
		return nil
	}

	if internal.Classify(err) != internal.ErrRateLimit {
		return err
	}

	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return internal.NewSourceError(s.Name(), internal.ErrTimeout, ctx.Err())
	}
	s.limiter.Take()
	return getJSON(ctx, s.client, s.Name(), url, out)
}

func (s *Jikan) Search(ctx context.Context, query string, limit int) ([]internal.Manga, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sfw", "true")

	var resp jikanList
	if err := s.getJSON(ctx, s.BaseURL+"/manga?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return mapJikanEntries(resp.Data), nil
}

func (s *Jikan) Details(ctx context.Context, nativeID string) (*internal.MangaDetail, error) {
	if _, err := strconv.Atoi(nativeID); err != nil {
		return nil, internal.NewSourceError(s.Name(), internal.ErrNotFound,
			fmt.Errorf("non-numeric id %q", nativeID))
	}

	var resp struct {
		Data jikanEntry `json:"data"`
	}
	if err := s.getJSON(ctx, s.BaseURL+"/manga/"+nativeID+"/full", &resp); err != nil {
		return nil, err
	}

	detail := &internal.MangaDetail{Manga: mapJikanEntry(resp.Data), Note: jikanNote}
	for _, group := range resp.Data.Relations {
		for _, entry := range group.Entry {
			if entry.Type != "manga" {
				continue
			}
			detail.Relations = append(detail.Relations, internal.Relation{
				ID:       catalog.Compose(s.Name(), strconv.Itoa(entry.MalID)),
				Title:    entry.Name,
				Relation: group.Relation,
			})
		}
	}
	for _, link := range resp.Data.External {
		detail.ExternalLinks = append(detail.ExternalLinks, internal.ExternalLink{Site: link.Name, URL: link.URL})
	}
	return detail, nil
}

func (s *Jikan) Chapters(ctx context.Context, nativeID string, offset, limit int) (internal.ChapterFeed, error) {
	return internal.ChapterFeed{Chapters: []internal.Chapter{}}, nil
}

func (s *Jikan) Pages(ctx context.Context, nativeID, chapter string) (internal.PageSet, error) {
	return internal.PageSet{Pages: []string{}, Source: s.Name(), Note: jikanNote}, nil
}

// Top lists ranked manga. filter is "bypopularity" or "publishing"; empty
// means the overall ranking.
func (s *Jikan) Top(ctx context.Context, filter string, limit int) ([]internal.Manga, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if filter != "" {
		params.Set("filter", filter)
	}

	var resp jikanList
	if err := s.getJSON(ctx, s.BaseURL+"/top/manga?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return mapJikanEntries(resp.Data), nil
}

func mapJikanEntries(entries []jikanEntry) []internal.Manga {
	mangas := make([]internal.Manga, 0, len(entries))
	for _, entry := range entries {
		mangas = append(mangas, mapJikanEntry(entry))
	}
	return mangas
}

func mapJikanEntry(entry jikanEntry) internal.Manga {
	title := entry.Title
	if entry.TitleEnglish != "" {
		title = entry.TitleEnglish
	}

	var author, artist string
	if len(entry.Authors) > 0 {
		author = entry.Authors[0].Name
		artist = author
	}

	tags := make([]string, 0, len(entry.Genres)+len(entry.Themes))
	for _, g := range entry.Genres {
		tags = append(tags, g.Name)
	}
	for _, t := range entry.Themes {
		tags = append(tags, t.Name)
	}

	var year *int
	if entry.Published.Prop.From.Year != nil {
		year = entry.Published.Prop.From.Year
	}

	m := internal.Manga{
		ID:          catalog.Compose(internal.SourceJikan, strconv.Itoa(entry.MalID)),
		Source:      internal.SourceJikan,
		Title:       title,
		Description: internal.CleanDescription(entry.Synopsis),
		CoverURL:    entry.Images.JPG.LargeImageURL,
		Author:      author,
		Artist:      artist,
		Status:      mapJikanStatus(entry.Status),
		Type:        mapJikanType(entry.Type),
		Year:        year,
		Tags:        tags,
		Score:       entry.Score,
		Popularity:  entry.Popularity,
		SourceURL:   entry.URL,
	}
	if m.CoverURL == "" {
		m.CoverURL = entry.Images.JPG.ImageURL
	}
	m.ApplyDefaults()
	return m
}

func mapJikanStatus(status string) internal.Status {
	switch status {
	case "Finished":
		return internal.StatusCompleted
	case "On Hiatus":
		return internal.StatusHiatus
	case "Discontinued":
		return internal.StatusCancelled
	case "Not yet published":
		return internal.StatusUpcoming
	}
	return internal.StatusOngoing
}

func mapJikanType(t string) internal.Type {
	switch t {
	case "Manhwa":
		return internal.TypeManhwa
	case "Manhua":
		return internal.TypeManhua
	case "Light Novel", "Novel":
		return internal.TypeLightNovel
	case "One-shot":
		return internal.TypeOneshot
	}
	return internal.TypeManga
}

type jikanList struct {
	Data []jikanEntry `json:"data"`
}

type jikanEntry struct {
	MalID  int `json:"mal_id"`
	Images struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
	Title        string   `json:"title"`
	TitleEnglish string   `json:"title_english"`
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	Synopsis     string   `json:"synopsis"`
	Score        *float64 `json:"score"`
	Popularity   *int     `json:"popularity"`
	URL          string   `json:"url"`
	Published    struct {
		Prop struct {
			From struct {
				Year *int `json:"year"`
			} `json:"from"`
		} `json:"prop"`
	} `json:"published"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Themes []struct {
		Name string `json:"name"`
	} `json:"themes"`
	Relations []struct {
		Relation string `json:"relation"`
		Entry    []struct {
			MalID int    `json:"mal_id"`
			Type  string `json:"type"`
			Name  string `json:"name"`
		} `json:"entry"`
	} `json:"relations"`
	External []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"external"`
}
