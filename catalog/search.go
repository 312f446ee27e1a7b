package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mangalib-app/mangalib/internal"
)

// DefaultLimit caps search results when the caller does not say otherwise.
const DefaultLimit = 20

// SearchOptions narrow an aggregated search.
type SearchOptions struct {
	// Type keeps only records of one content type ("all" or "" keeps everything).
	Type string
	// Source restricts the fan-out to one source ("all" or "" queries every source).
	Source string
	Limit  int
}

// SearchResult is the merged outcome of one fan-out, plus one status entry
// per attempted source so clients can show partial failures.
type SearchResult struct {
	Results []internal.Manga               `json:"results"`
	Status  map[string]internal.SourceStatus `json:"sourceStatus"`
}

// Aggregator fans queries out across the registry and routes id-addressed
// requests to the owning source.
type Aggregator struct {
	registry *Registry
	log      *slog.Logger
}

func NewAggregator(registry *Registry, log *slog.Logger) *Aggregator {
	return &Aggregator{registry: registry, log: log}
}

// Search queries the selected sources concurrently. A failing source never
// delays or cancels the others; it just shows up as success:false in the
// status map. Even all sources failing is an empty result, not an error.
func (a *Aggregator) Search(ctx context.Context, query string, opts SearchOptions) SearchResult {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var selected []Source
	if opts.Source == "" || opts.Source == "all" {
		selected = a.registry.All()
	} else if src, ok := a.registry.Get(opts.Source); ok {
		selected = []Source{src}
	}

	type outcome struct {
		name   string
		mangas []internal.Manga
		err    error
	}

	outcomes := make([]outcome, len(selected))
	var wg sync.WaitGroup
	for i, src := range selected {
		outcomes[i].name = src.Name()

		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i].err = fmt.Errorf("panic: %v", r)
				}
			}()
			outcomes[i].mangas, outcomes[i].err = src.Search(ctx, query, limit)
		}(i, src)
	}
	wg.Wait()

	status := make(map[string]internal.SourceStatus, len(outcomes))
	var merged []internal.Manga
	for _, o := range outcomes {
		if o.err != nil {
			a.log.Warn("source search failed", "source", o.name, "error", o.err)
			status[o.name] = internal.SourceStatus{Success: false, Error: o.err.Error()}
			continue
		}
		status[o.name] = internal.SourceStatus{Success: true, Count: len(o.mangas)}
		merged = append(merged, o.mangas...)
	}

	if opts.Type != "" && opts.Type != "all" {
		filtered := merged[:0]
		for _, m := range merged {
			if string(m.Type) == opts.Type {
				filtered = append(filtered, m)
			}
		}
		merged = filtered
	}

	// Dedup by normalized title, first occurrence wins. Dispatch order is
	// fixed and within-source order comes from the adapter, so the output
	// is deterministic for identical source responses.
	seen := make(map[string]bool, len(merged))
	deduped := make([]internal.Manga, 0, len(merged))
	for _, m := range merged {
		key := internal.TitleKey(m.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, m)
	}

	if len(deduped) > limit {
		deduped = deduped[:limit]
	}

	return SearchResult{Results: deduped, Status: status}
}
