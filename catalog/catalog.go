package catalog

import (
	"context"

	"github.com/mangalib-app/mangalib/internal"
)

// Source is implemented by every upstream adapter. Implementations do their
// own network I/O and parsing and hand back normalized records; they never
// see each other.
type Source interface {
	Name() string

	// HasChapters is false for metadata-only sources (AniList, Jikan):
	// their Chapters is always empty and their details carry a note.
	HasChapters() bool

	Search(ctx context.Context, query string, limit int) ([]internal.Manga, error)
	Details(ctx context.Context, nativeID string) (*internal.MangaDetail, error)
	Chapters(ctx context.Context, nativeID string, offset, limit int) (internal.ChapterFeed, error)
	Pages(ctx context.Context, nativeID, chapter string) (internal.PageSet, error)
}

// Registry holds the fixed set of sources in dispatch order. Lookups are
// by tag; there is no runtime configuration of sources.
type Registry struct {
	ordered []Source
	byName  map[string]Source
}

func NewRegistry(srcs ...Source) *Registry {
	r := &Registry{byName: make(map[string]Source, len(srcs))}
	for _, s := range srcs {
		r.ordered = append(r.ordered, s)
		r.byName[s.Name()] = s
	}
	return r
}

func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// All returns the sources in dispatch order.
func (r *Registry) All() []Source {
	return r.ordered
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ordered))
	for _, s := range r.ordered {
		names = append(names, s.Name())
	}
	return names
}
