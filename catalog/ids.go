package catalog

import (
	"errors"
	"regexp"
	"strings"

	"github.com/mangalib-app/mangalib/internal"
)

// ErrInvalidID is reported when an identifier cannot be decomposed.
var ErrInvalidID = errors.New("invalid identifier")

// Prefix table checked in order; first match wins. MangaDex uses bare
// native ids, so anything without a recognized prefix falls through to it.
var idPrefixes = []struct {
	prefix string
	source string
}{
	{"tumanga-", internal.SourceTuManga},
	{"visormanga-", internal.SourceVisorManga},
	{"mangalector-", internal.SourceMangaLector},
	{"anilist-", internal.SourceAniList},
	{"jikan-", internal.SourceJikan},
	{"mangaplus_", internal.SourceMangaPlus},
	{"webtoons-", internal.SourceWebtoons},
}

// Compose builds the composite id for a native id on the given source.
// MangaDex ids stay bare; Manga Plus historically uses an underscore.
func Compose(source, nativeID string) string {
	switch source {
	case internal.SourceMangaDex:
		return nativeID
	case internal.SourceMangaPlus:
		return "mangaplus_" + nativeID
	default:
		return source + "-" + nativeID
	}
}

// ComposeChapter builds a composite chapter id. Webtoons counts episodes,
// everything else counts chapters.
func ComposeChapter(source, slug, chapter string) string {
	if source == internal.SourceWebtoons {
		return "webtoons-" + slug + "-ep" + chapter
	}
	return Compose(source, slug) + "-ch" + chapter
}

// Decompose resolves a composite id back to its source and native id.
func Decompose(id string) (source, nativeID string, err error) {
	if strings.TrimSpace(id) == "" {
		return "", "", ErrInvalidID
	}

	for _, p := range idPrefixes {
		if strings.HasPrefix(id, p.prefix) {
			native := strings.TrimPrefix(id, p.prefix)
			if native == "" {
				return "", "", ErrInvalidID
			}
			return p.source, native, nil
		}
	}
	return internal.SourceMangaDex, id, nil
}

var (
	chapterSuffixRe = regexp.MustCompile(`-ch(\d+(?:\.\d+)?)$`)
	episodeSuffixRe = regexp.MustCompile(`-ep(\d+)$`)
)

// ChapterRef is a decomposed chapter id: the owning source, the parent
// manga's native id and the chapter (or episode) number.
type ChapterRef struct {
	Source  string
	Slug    string
	Chapter string
}

// SplitChapterID recovers the parent slug and chapter number from ids like
// "tumanga-some-slug-ch12.5" or "webtoons-95239-ep7". Slugs may themselves
// contain dashes and digits, so the split point is the trailing suffix,
// never the first dash.
func SplitChapterID(id string) (ChapterRef, error) {
	source, native, err := Decompose(id)
	if err != nil {
		return ChapterRef{}, err
	}

	suffix := chapterSuffixRe
	if source == internal.SourceWebtoons {
		suffix = episodeSuffixRe
	}

	m := suffix.FindStringSubmatch(native)
	if m == nil {
		// No chapter suffix: the id addresses the chapter directly
		// (MangaDex chapter UUIDs, Manga Plus numeric chapter ids).
		return ChapterRef{Source: source, Slug: native}, nil
	}
	return ChapterRef{
		Source:  source,
		Slug:    strings.TrimSuffix(native, m[0]),
		Chapter: m[1],
	}, nil
}
