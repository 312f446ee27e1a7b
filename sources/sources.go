package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/internal"
)

// Browser-ish UA; several of the scraped sites refuse the Go default.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const defaultTimeout = 10 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// All returns the eight adapters in dispatch order. The order fixes the
// merge order of aggregated searches, so it never changes at runtime.
func All(timeout time.Duration) []catalog.Source {
	return []catalog.Source{
		NewMangaDex(timeout),
		NewMangaPlus(timeout),
		NewWebtoons(timeout),
		NewTuManga(timeout),
		NewAniList(timeout),
		NewJikan(timeout),
		NewVisorManga(timeout),
		NewMangaLector(timeout),
	}
}

// get issues a GET with browser headers and classifies non-200 statuses
// into a SourceError. Callers own the body on success.
func get(ctx context.Context, client *http.Client, source, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, internal.NewSourceError(source, internal.ErrUnknown, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, internal.NewSourceError(source, internal.Classify(err), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, internal.NewSourceError(source, internal.ClassifyStatus(resp.StatusCode),
			fmt.Errorf("status %d", resp.StatusCode))
	}
	return resp, nil
}

func getJSON(ctx context.Context, client *http.Client, source, url string, out any) error {
	resp, err := get(ctx, client, source, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return internal.NewSourceError(source, internal.ErrParsing, err)
	}
	return nil
}

func getBytes(ctx context.Context, client *http.Client, source, url string, headers map[string]string) ([]byte, error) {
	resp, err := get(ctx, client, source, url, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, internal.NewSourceError(source, internal.Classify(err), err)
	}
	return body, nil
}

func getDoc(ctx context.Context, client *http.Client, source, url, referer string) (*goquery.Document, error) {
	headers := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "es-ES,es;q=0.9,en;q=0.8",
	}
	if referer != "" {
		headers["Referer"] = referer
	}

	resp, err := get(ctx, client, source, url, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, internal.NewSourceError(source, internal.ErrParsing, err)
	}
	return doc, nil
}

// attrOr returns the first non-empty attribute from the list, so lazy-load
// variants (data-src, data-lazy-src) win over a placeholder src.
func attrOr(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}

func absoluteURL(base, href string) string {
	if href == "" {
		return ""
	}
	if len(href) >= 4 && href[:4] == "http" {
		return href
	}
	return base + href
}
