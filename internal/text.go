package internal

import (
	"html"
	"regexp"
	"strings"
)

var (
	brTagRe    = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlTagRe  = regexp.MustCompile(`<[^>]*>`)
	newlinesRe = regexp.MustCompile(`\n{3,}`)
	titleKeyRe = regexp.MustCompile(`[^a-z0-9]`)
	spacesRe   = regexp.MustCompile(`\s+`)
	ctrlRe     = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
)

// CleanDescription strips markup and entities from a source description.
// <br> becomes a newline, runs of 3+ newlines collapse to 2. An empty
// result yields the placeholder, never "".
func CleanDescription(desc string) string {
	if strings.TrimSpace(desc) == "" {
		return NoDescription
	}

	s := brTagRe.ReplaceAllString(desc, "\n")
	s = htmlTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = newlinesRe.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	if s == "" {
		return NoDescription
	}
	return s
}

// TitleKey lowers a title and strips everything outside [a-z0-9]. Used as
// the dedup key across sources. Known to collide across languages and
// romanization variants; kept as-is on purpose.
func TitleKey(title string) string {
	return titleKeyRe.ReplaceAllString(strings.ToLower(title), "")
}

// CleanScraped drops control characters and collapses whitespace in text
// pulled out of HTML or binary payloads.
func CleanScraped(s string) string {
	s = ctrlRe.ReplaceAllString(s, "")
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}
