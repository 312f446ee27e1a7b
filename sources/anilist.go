package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/internal"
)

// AniList serves metadata over GraphQL. It hosts no readable chapters, so
// details carry a note plus relations and recommendations instead.
type AniList struct {
	BaseURL string
	client  *http.Client
}

func NewAniList(timeout time.Duration) *AniList {
	return &AniList{
		BaseURL: "https://graphql.anilist.co",
		client:  newHTTPClient(timeout),
	}
}

func (s *AniList) Name() string      { return internal.SourceAniList }
func (s *AniList) HasChapters() bool { return false }

const anilistNote = "AniList solo provee información. Los capítulos deben buscarse en otras fuentes."

const anilistSearchQuery = `
query ($search: String, $perPage: Int) {
  Page(perPage: $perPage) {
    media(search: $search, type: MANGA, sort: POPULARITY_DESC) {
      id
      title { romaji english native }
      description(asHtml: false)
      coverImage { large medium }
      format
      status
      startDate { year }
      genres
      tags { name }
      averageScore
      popularity
      countryOfOrigin
      siteUrl
    }
  }
}`

const anilistDetailQuery = `
query ($id: Int) {
  Media(id: $id, type: MANGA) {
    id
    title { romaji english native }
    description(asHtml: false)
    coverImage { extraLarge large medium }
    format
    status
    startDate { year }
    genres
    tags { name }
    averageScore
    popularity
    countryOfOrigin
    siteUrl
    staff {
      edges {
        role
        node { name { full } }
      }
    }
    relations {
      edges {
        relationType
        node {
          id
          title { romaji }
          coverImage { medium }
        }
      }
    }
    recommendations(sort: RATING_DESC, perPage: 5) {
      nodes {
        mediaRecommendation {
          id
          title { romaji }
          coverImage { medium }
        }
      }
    }
    externalLinks { site url }
  }
}`

func (s *AniList) query(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return internal.NewSourceError(s.Name(), internal.ErrUnknown, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL, bytes.NewReader(body))
	if err != nil {
		return internal.NewSourceError(s.Name(), internal.ErrUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return internal.NewSourceError(s.Name(), internal.Classify(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return internal.NewSourceError(s.Name(), internal.ClassifyStatus(resp.StatusCode),
			fmt.Errorf("status %d", resp.StatusCode))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return internal.NewSourceError(s.Name(), internal.ErrParsing, err)
	}
	if len(envelope.Errors) > 0 {
		msg := envelope.Errors[0].Message
		kind := internal.ErrUnknown
		if strings.Contains(strings.ToLower(msg), "not found") {
			kind = internal.ErrNotFound
		}
		return internal.NewSourceError(s.Name(), kind, fmt.Errorf("graphql: %s", msg))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return internal.NewSourceError(s.Name(), internal.ErrParsing, err)
	}
	return nil
}

func (s *AniList) Search(ctx context.Context, query string, limit int) ([]internal.Manga, error) {
	var data struct {
		Page struct {
			Media []anilistMedia `json:"media"`
		} `json:"Page"`
	}
	err := s.query(ctx, anilistSearchQuery, map[string]any{"search": query, "perPage": limit}, &data)
	if err != nil {
		return nil, err
	}

	mangas := make([]internal.Manga, 0, len(data.Page.Media))
	for _, media := range data.Page.Media {
		mangas = append(mangas, mapAniListMedia(media))
	}
	return mangas, nil
}

func (s *AniList) Details(ctx context.Context, nativeID string) (*internal.MangaDetail, error) {
	id, err := strconv.Atoi(nativeID)
	if err != nil {
		return nil, internal.NewSourceError(s.Name(), internal.ErrNotFound,
			fmt.Errorf("non-numeric id %q", nativeID))
	}

	var data struct {
		Media anilistMedia `json:"Media"`
	}
	if err := s.query(ctx, anilistDetailQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}

	media := data.Media
	manga := mapAniListMedia(media)

	// Story/art credits come from the staff list.
	for _, edge := range media.Staff.Edges {
		role := strings.ToLower(edge.Role)
		switch {
		case strings.Contains(role, "story") && manga.Author == internal.UnknownPerson:
			manga.Author = edge.Node.Name.Full
		case strings.Contains(role, "art") && manga.Artist == internal.UnknownPerson:
			manga.Artist = edge.Node.Name.Full
		}
	}
	if manga.Artist == internal.UnknownPerson {
		manga.Artist = manga.Author
	}

	detail := &internal.MangaDetail{Manga: manga, Note: anilistNote}
	for _, edge := range media.Relations.Edges {
		detail.Relations = append(detail.Relations, internal.Relation{
			ID:       catalog.Compose(s.Name(), strconv.Itoa(edge.Node.ID)),
			Title:    edge.Node.Title.Romaji,
			Relation: edge.RelationType,
			CoverURL: edge.Node.CoverImage.Medium,
		})
	}
	for _, node := range media.Recommendations.Nodes {
		if node.MediaRecommendation == nil {
			continue
		}
		detail.Recommendations = append(detail.Recommendations, internal.Relation{
			ID:       catalog.Compose(s.Name(), strconv.Itoa(node.MediaRecommendation.ID)),
			Title:    node.MediaRecommendation.Title.Romaji,
			CoverURL: node.MediaRecommendation.CoverImage.Medium,
		})
	}
	for _, link := range media.ExternalLinks {
		detail.ExternalLinks = append(detail.ExternalLinks, internal.ExternalLink{Site: link.Site, URL: link.URL})
	}
	return detail, nil
}

func (s *AniList) Chapters(ctx context.Context, nativeID string, offset, limit int) (internal.ChapterFeed, error) {
	return internal.ChapterFeed{Chapters: []internal.Chapter{}}, nil
}

func (s *AniList) Pages(ctx context.Context, nativeID, chapter string) (internal.PageSet, error) {
	return internal.PageSet{Pages: []string{}, Source: s.Name(), Note: anilistNote}, nil
}

func mapAniListMedia(media anilistMedia) internal.Manga {
	// Country of origin beats the source default; explicit one-shot
	// format beats both.
	t := internal.TypeManga
	switch media.CountryOfOrigin {
	case "KR":
		t = internal.TypeManhwa
	case "CN":
		t = internal.TypeManhua
	}
	if media.Format == "ONE_SHOT" {
		t = internal.TypeOneshot
	}

	title := media.Title.English
	if title == "" {
		title = media.Title.Romaji
	}
	if title == "" {
		title = media.Title.Native
	}

	cover := media.CoverImage.ExtraLarge
	if cover == "" {
		cover = media.CoverImage.Large
	}
	if cover == "" {
		cover = media.CoverImage.Medium
	}

	tags := append([]string{}, media.Genres...)
	for _, tag := range media.Tags {
		tags = append(tags, tag.Name)
	}

	var score *float64
	if media.AverageScore != nil {
		v := float64(*media.AverageScore)
		score = &v
	}

	m := internal.Manga{
		ID:          catalog.Compose(internal.SourceAniList, strconv.Itoa(media.ID)),
		Source:      internal.SourceAniList,
		Title:       title,
		Description: internal.CleanDescription(media.Description),
		CoverURL:    cover,
		Status:      mapAniListStatus(media.Status),
		Type:        t,
		Year:        media.StartDate.Year,
		Tags:        tags,
		Score:       score,
		Popularity:  media.Popularity,
		SourceURL:   media.SiteURL,
	}
	m.ApplyDefaults()
	return m
}

func mapAniListStatus(status string) internal.Status {
	switch status {
	case "FINISHED":
		return internal.StatusCompleted
	case "NOT_YET_RELEASED":
		return internal.StatusUpcoming
	case "CANCELLED":
		return internal.StatusCancelled
	case "HIATUS":
		return internal.StatusHiatus
	}
	return internal.StatusOngoing
}

type anilistMedia struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Description string `json:"description"`
	CoverImage  struct {
		ExtraLarge string `json:"extraLarge"`
		Large      string `json:"large"`
		Medium     string `json:"medium"`
	} `json:"coverImage"`
	Format    string `json:"format"`
	Status    string `json:"status"`
	StartDate struct {
		Year *int `json:"year"`
	} `json:"startDate"`
	Genres []string `json:"genres"`
	Tags   []struct {
		Name string `json:"name"`
	} `json:"tags"`
	AverageScore    *int   `json:"averageScore"`
	Popularity      *int   `json:"popularity"`
	CountryOfOrigin string `json:"countryOfOrigin"`
	SiteURL         string `json:"siteUrl"`
	Staff           struct {
		Edges []struct {
			Role string `json:"role"`
			Node struct {
				Name struct {
					Full string `json:"full"`
				} `json:"name"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"staff"`
	Relations struct {
		Edges []struct {
			RelationType string `json:"relationType"`
			Node         struct {
				ID    int `json:"id"`
				Title struct {
					Romaji string `json:"romaji"`
				} `json:"title"`
				CoverImage struct {
					Medium string `json:"medium"`
				} `json:"coverImage"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"relations"`
	Recommendations struct {
		Nodes []struct {
			MediaRecommendation *struct {
				ID    int `json:"id"`
				Title struct {
					Romaji string `json:"romaji"`
				} `json:"title"`
				CoverImage struct {
					Medium string `json:"medium"`
				} `json:"coverImage"`
			} `json:"mediaRecommendation"`
		} `json:"nodes"`
	} `json:"recommendations"`
	ExternalLinks []struct {
		Site string `json:"site"`
		URL  string `json:"url"`
	} `json:"externalLinks"`
}
