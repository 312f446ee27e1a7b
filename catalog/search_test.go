package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mangalib-app/mangalib/internal"
)

// stubSource is a canned Source for orchestration tests.
type stubSource struct {
	name        string
	hasChapters bool
	results     []internal.Manga
	searchErr   error
	searchPanic bool
	delay       time.Duration

	detail     *internal.MangaDetail
	detailErr  error
	feed       internal.ChapterFeed
	chaptersErr error
	pageSet    internal.PageSet
	pagesErr   error
}

func (s *stubSource) Name() string      { return s.name }
func (s *stubSource) HasChapters() bool { return s.hasChapters }

func (s *stubSource) Search(ctx context.Context, query string, limit int) ([]internal.Manga, error) {
	if s.searchPanic {
		panic("selector broke")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.results, nil
}

func (s *stubSource) Details(context.Context, string) (*internal.MangaDetail, error) {
	return s.detail, s.detailErr
}

func (s *stubSource) Chapters(context.Context, string, int, int) (internal.ChapterFeed, error) {
	return s.feed, s.chaptersErr
}

func (s *stubSource) Pages(context.Context, string, string) (internal.PageSet, error) {
	return s.pageSet, s.pagesErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func manga(source, id, title string) internal.Manga {
	m := internal.Manga{ID: id, Source: source, Title: title}
	m.ApplyDefaults()
	return m
}

func TestSearchMergesInDispatchOrder(t *testing.T) {
	agg := NewAggregator(NewRegistry(
		&stubSource{name: "alpha", results: []internal.Manga{manga("alpha", "a1", "First")}, delay: 20 * time.Millisecond},
		&stubSource{name: "beta", results: []internal.Manga{manga("beta", "b1", "Second")}},
	), testLogger())

	result := agg.Search(context.Background(), "q", SearchOptions{})
	if len(result.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(result.Results))
	}
	// alpha answered last but is registered first, so it leads the merge.
	if result.Results[0].ID != "a1" || result.Results[1].ID != "b1" {
		t.Errorf("merge order = %s, %s; want a1, b1", result.Results[0].ID, result.Results[1].ID)
	}
}

func TestSearchDedupByTitleFirstWins(t *testing.T) {
	agg := NewAggregator(NewRegistry(
		&stubSource{name: "alpha", results: []internal.Manga{manga("alpha", "a1", "Solo Leveling")}},
		&stubSource{name: "beta", results: []internal.Manga{
			manga("beta", "b1", "Solo  Leveling!"),
			manga("beta", "b2", "Tower of God"),
		}},
	), testLogger())

	result := agg.Search(context.Background(), "solo", SearchOptions{})
	if len(result.Results) != 2 {
		t.Fatalf("got %d results, want 2 after dedup", len(result.Results))
	}
	if result.Results[0].ID != "a1" {
		t.Errorf("kept %s, want the first occurrence a1", result.Results[0].ID)
	}
}

func TestSearchPartialFailure(t *testing.T) {
	agg := NewAggregator(NewRegistry(
		&stubSource{name: "alpha", results: []internal.Manga{manga("alpha", "a1", "One")}},
		&stubSource{name: "beta", searchErr: errors.New("status 503")},
		&stubSource{name: "gamma", searchPanic: true},
	), testLogger())

	result := agg.Search(context.Background(), "q", SearchOptions{})

	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Results))
	}
	if len(result.Status) != 3 {
		t.Fatalf("got %d status entries, want one per attempted source", len(result.Status))
	}
	if !result.Status["alpha"].Success || result.Status["alpha"].Count != 1 {
		t.Errorf("alpha status = %+v", result.Status["alpha"])
	}
	if result.Status["beta"].Success || result.Status["beta"].Error == "" {
		t.Errorf("beta status = %+v", result.Status["beta"])
	}
	if result.Status["gamma"].Success {
		t.Errorf("a panicking source must surface as a failed status, got %+v", result.Status["gamma"])
	}
}

func TestSearchAllSourcesFailing(t *testing.T) {
	agg := NewAggregator(NewRegistry(
		&stubSource{name: "alpha", searchErr: errors.New("down")},
		&stubSource{name: "beta", searchErr: errors.New("down")},
	), testLogger())

	result := agg.Search(context.Background(), "q", SearchOptions{})
	if len(result.Results) != 0 {
		t.Errorf("got %d results, want 0", len(result.Results))
	}
	if len(result.Status) != 2 {
		t.Errorf("got %d status entries, want 2", len(result.Status))
	}
}

func TestSearchSingleSource(t *testing.T) {
	alpha := &stubSource{name: "alpha", results: []internal.Manga{manga("alpha", "a1", "One")}}
	beta := &stubSource{name: "beta", results: []internal.Manga{manga("beta", "b1", "Two")}}
	agg := NewAggregator(NewRegistry(alpha, beta), testLogger())

	result := agg.Search(context.Background(), "q", SearchOptions{Source: "beta"})
	if len(result.Results) != 1 || result.Results[0].ID != "b1" {
		t.Fatalf("results = %+v, want only beta's", result.Results)
	}
	if _, ok := result.Status["alpha"]; ok {
		t.Error("alpha was not attempted, it must not appear in the status map")
	}
}

func TestSearchUnknownSourceYieldsEmpty(t *testing.T) {
	agg := NewAggregator(NewRegistry(
		&stubSource{name: "alpha", results: []internal.Manga{manga("alpha", "a1", "One")}},
	), testLogger())

	result := agg.Search(context.Background(), "q", SearchOptions{Source: "nope"})
	if len(result.Results) != 0 || len(result.Status) != 0 {
		t.Errorf("unknown source should attempt nothing, got %+v", result)
	}
}

func TestSearchTypeFilterAndLimit(t *testing.T) {
	var results []internal.Manga
	for i := 0; i < 30; i++ {
		m := manga("alpha", fmt.Sprintf("a%d", i), fmt.Sprintf("Title %d", i))
		if i%2 == 0 {
			m.Type = internal.TypeManhwa
		}
		results = append(results, m)
	}
	agg := NewAggregator(NewRegistry(&stubSource{name: "alpha", results: results}), testLogger())

	filtered := agg.Search(context.Background(), "q", SearchOptions{Type: "manhwa", Limit: 50})
	for _, m := range filtered.Results {
		if m.Type != internal.TypeManhwa {
			t.Fatalf("type filter leaked %q", m.Type)
		}
	}
	if len(filtered.Results) != 15 {
		t.Errorf("got %d manhwa, want 15", len(filtered.Results))
	}

	capped := agg.Search(context.Background(), "q", SearchOptions{})
	if len(capped.Results) != DefaultLimit {
		t.Errorf("got %d results, want default limit %d", len(capped.Results), DefaultLimit)
	}
}
