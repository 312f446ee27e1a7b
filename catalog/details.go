package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mangalib-app/mangalib/internal"
)

// ErrUnknownSource is reported when an id names a source the registry does
// not carry.
var ErrUnknownSource = fmt.Errorf("unknown source")

// DetailResult pairs a manga's details with its chapter list. For
// metadata-only sources Chapters is empty and Note explains why; that is a
// complete answer, not an error.
type DetailResult struct {
	Manga         *internal.MangaDetail `json:"manga"`
	Chapters      []internal.Chapter    `json:"chapters"`
	TotalChapters int                   `json:"totalChapters"`
	Note          string                `json:"note,omitempty"`
}

// Details routes a composite id to its source and fetches details and
// chapters in parallel. A chapter failure degrades to an empty list; a
// detail failure is the whole request failing.
func (a *Aggregator) Details(ctx context.Context, id string) (*DetailResult, error) {
	source, native, err := Decompose(id)
	if err != nil {
		return nil, err
	}
	return a.SourceDetails(ctx, source, native)
}

// SourceDetails is Details with the source already resolved; native may
// still carry the source prefix, which is stripped.
func (a *Aggregator) SourceDetails(ctx context.Context, source, nativeID string) (*DetailResult, error) {
	src, ok := a.registry.Get(source)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	nativeID = StripPrefix(source, nativeID)

	if !src.HasChapters() {
		detail, err := src.Details(ctx, nativeID)
		if err != nil {
			return nil, err
		}
		return &DetailResult{
			Manga:    detail,
			Chapters: []internal.Chapter{},
			Note:     detail.Note,
		}, nil
	}

	var (
		wg     sync.WaitGroup
		detail *internal.MangaDetail
		derr   error
		feed   internal.ChapterFeed
		ferr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		detail, derr = src.Details(ctx, nativeID)
	}()
	go func() {
		defer wg.Done()
		feed, ferr = src.Chapters(ctx, nativeID, 0, 100)
	}()
	wg.Wait()

	if derr != nil {
		return nil, derr
	}
	if ferr != nil {
		a.log.Warn("chapter fetch failed, degrading to empty list",
			"source", source, "id", nativeID, "error", ferr)
		feed = internal.ChapterFeed{Chapters: []internal.Chapter{}}
	}
	if feed.Chapters == nil {
		feed.Chapters = []internal.Chapter{}
	}

	return &DetailResult{
		Manga:         detail,
		Chapters:      feed.Chapters,
		TotalChapters: feed.Total,
	}, nil
}

// Chapters routes a composite manga id to its source's chapter list.
func (a *Aggregator) Chapters(ctx context.Context, id string, offset, limit int) (internal.ChapterFeed, error) {
	source, native, err := Decompose(id)
	if err != nil {
		return internal.ChapterFeed{}, err
	}
	src, ok := a.registry.Get(source)
	if !ok {
		return internal.ChapterFeed{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if limit <= 0 {
		limit = 100
	}
	return src.Chapters(ctx, native, offset, limit)
}

// Pages resolves a composite chapter id to its page URLs. The optional
// chapter and slug override what the id itself encodes (some callers know
// them from the chapter list and skip a re-parse).
func (a *Aggregator) Pages(ctx context.Context, chapterID, chapter, slug string) (internal.PageSet, error) {
	ref, err := SplitChapterID(chapterID)
	if err != nil {
		return internal.PageSet{}, err
	}
	if chapter != "" {
		ref.Chapter = chapter
	}
	if slug != "" {
		ref.Slug = slug
	}

	src, ok := a.registry.Get(ref.Source)
	if !ok {
		return internal.PageSet{}, fmt.Errorf("%w: %q", ErrUnknownSource, ref.Source)
	}
	return src.Pages(ctx, ref.Slug, ref.Chapter)
}

// SourcePages is Pages with the source fixed by the route.
func (a *Aggregator) SourcePages(ctx context.Context, source, chapterID, chapter, slug string) (internal.PageSet, error) {
	src, ok := a.registry.Get(source)
	if !ok {
		return internal.PageSet{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	ref := ChapterRef{Source: source, Slug: StripPrefix(source, chapterID), Chapter: chapter}
	if slug != "" {
		ref.Slug = slug
	} else if parsed, err := SplitChapterID(chapterID); err == nil && parsed.Source == source {
		ref.Slug = parsed.Slug
		if ref.Chapter == "" {
			ref.Chapter = parsed.Chapter
		}
	}
	return src.Pages(ctx, ref.Slug, ref.Chapter)
}

// StripPrefix removes the source's id prefix when present, so routes that
// name the source explicitly accept both bare and composite ids.
func StripPrefix(source, id string) string {
	for _, p := range idPrefixes {
		if p.source == source {
			if trimmed, ok := strings.CutPrefix(id, p.prefix); ok && trimmed != "" {
				return trimmed
			}
		}
	}
	return id
}
