package internal

// Source tags for every upstream the aggregator knows about. The order in
// which they are dispatched lives in the sources package.
const (
	SourceMangaDex    = "mangadex"
	SourceMangaPlus   = "mangaplus"
	SourceWebtoons    = "webtoons"
	SourceTuManga     = "tumanga"
	SourceAniList     = "anilist"
	SourceJikan       = "jikan"
	SourceVisorManga  = "visormanga"
	SourceMangaLector = "mangalector"
)

// Publication status, mapped from each source's own vocabulary.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusHiatus    Status = "hiatus"
	StatusCancelled Status = "cancelled"
	StatusUpcoming  Status = "upcoming"
)

// Content type, inferred from origin country, format or source identity.
type Type string

const (
	TypeManga      Type = "manga"
	TypeManhwa     Type = "manhwa"
	TypeManhua     Type = "manhua"
	TypeWebtoon    Type = "webtoon"
	TypeOneshot    Type = "oneshot"
	TypeLightNovel Type = "lightnovel"
)

// Placeholders used whenever a source gives us nothing.
const (
	NoCoverURL    = "/images/no-cover.jpg"
	NoDescription = "Sin descripción disponible"
	UnknownPerson = "Desconocido"
	NoTitle       = "Sin título"
)

// MaxTags bounds the tag list on every normalized record.
const MaxTags = 10

// Manga is the canonical record every source result is shaped into.
type Manga struct {
	ID          string   `json:"id"`
	Source      string   `json:"source"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CoverURL    string   `json:"coverUrl"`
	Author      string   `json:"author"`
	Artist      string   `json:"artist"`
	Status      Status   `json:"status"`
	Type        Type     `json:"type"`
	Year        *int     `json:"year"`
	Tags        []string `json:"tags"`
	Score       *float64 `json:"score,omitempty"`
	Popularity  *int     `json:"popularity,omitempty"`
	SourceURL   string   `json:"sourceUrl,omitempty"`
}

// ApplyDefaults fills the fields that must never be empty. Normalizers call
// this last so a partially parsed record still comes out whole.
func (m *Manga) ApplyDefaults() {
	if m.Title == "" {
		m.Title = NoTitle
	}
	if m.Description == "" {
		m.Description = NoDescription
	}
	if m.CoverURL == "" {
		m.CoverURL = NoCoverURL
	}
	if m.Author == "" {
		m.Author = UnknownPerson
	}
	if m.Artist == "" {
		m.Artist = m.Author
	}
	if m.Status == "" {
		m.Status = StatusOngoing
	}
	if m.Type == "" {
		m.Type = TypeManga
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if len(m.Tags) > MaxTags {
		m.Tags = m.Tags[:MaxTags]
	}
}

// Relation links a record to another entry on the same source
// (sequel, adaptation, recommendation...).
type Relation struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Relation string `json:"relation,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
}

type ExternalLink struct {
	Site string `json:"site"`
	URL  string `json:"url"`
}

// MangaDetail is a Manga plus the extras only the detail endpoints carry.
// Metadata-only sources fill Note to tell clients chapters live elsewhere.
type MangaDetail struct {
	Manga
	Relations       []Relation     `json:"relations,omitempty"`
	Recommendations []Relation     `json:"recommendations,omitempty"`
	ExternalLinks   []ExternalLink `json:"externalLinks,omitempty"`
	Note            string         `json:"-"`
}

// Chapter ordering is whatever the source returns; it is never re-sorted
// across sources.
type Chapter struct {
	ID        string `json:"id"`
	Chapter   string `json:"chapter"`
	Title     string `json:"title"`
	Volume    string `json:"volume,omitempty"`
	PublishAt string `json:"publishAt,omitempty"`
	URL       string `json:"url,omitempty"`
	Source    string `json:"source"`
}

type ChapterFeed struct {
	Chapters []Chapter `json:"chapters"`
	Total    int       `json:"total"`
}

// PageSet holds the page image URLs of one chapter. Sources whose pages are
// encrypted return no pages and a ViewerURL instead; that is a terminal
// answer, not a failure.
type PageSet struct {
	Pages     []string `json:"pages"`
	Total     int      `json:"total"`
	Source    string   `json:"source"`
	Note      string   `json:"note,omitempty"`
	ViewerURL string   `json:"viewerUrl,omitempty"`
}

// SourceStatus is the per-source diagnostic attached to aggregated search
// responses, one entry per attempted source.
type SourceStatus struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}
