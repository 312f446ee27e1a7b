package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/internal"
	"github.com/mangalib-app/mangalib/library"
)

type searchResponse struct {
	Success      bool                             `json:"success"`
	Count        int                              `json:"count"`
	Results      []internal.Manga                 `json:"results"`
	SourceStatus map[string]internal.SourceStatus `json:"sourceStatus"`
}

type detailResponse struct {
	Success       bool                  `json:"success"`
	Manga         *internal.MangaDetail `json:"manga"`
	Chapters      []internal.Chapter    `json:"chapters"`
	TotalChapters int                   `json:"totalChapters"`
	Note          string                `json:"note,omitempty"`
}

type chaptersResponse struct {
	Success  bool               `json:"success"`
	MangaID  string             `json:"mangaId"`
	Chapters []internal.Chapter `json:"chapters"`
	Total    int                `json:"total"`
}

type pagesResponse struct {
	Success   bool     `json:"success"`
	Pages     []string `json:"pages"`
	Total     int      `json:"total"`
	Source    string   `json:"source"`
	Note      string   `json:"note,omitempty"`
	ViewerURL string   `json:"viewerUrl,omitempty"`
}

func detailBody(result *catalog.DetailResult) detailResponse {
	return detailResponse{
		Success:       true,
		Manga:         result.Manga,
		Chapters:      result.Chapters,
		TotalChapters: result.TotalChapters,
		Note:          result.Note,
	}
}

func pagesBody(set internal.PageSet) pagesResponse {
	return pagesResponse{
		Success:   true,
		Pages:     set.Pages,
		Total:     set.Total,
		Source:    set.Source,
		Note:      set.Note,
		ViewerURL: set.ViewerURL,
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query", "q parameter is required")
		return
	}

	opts := catalog.SearchOptions{
		Type:   r.URL.Query().Get("type"),
		Source: r.URL.Query().Get("source"),
		Limit:  queryInt(r, "limit", 0),
	}

	cacheKey := fmt.Sprintf("search:%s:%s:%s:%d", q, opts.Type, opts.Source, opts.Limit)
	var cached searchResponse
	if ok, err := s.lib.Cache.Get(cacheKey, &cached); err == nil && ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	result := s.agg.Search(r.Context(), q, opts)
	body := searchResponse{
		Success:      true,
		Count:        len(result.Results),
		Results:      result.Results,
		SourceStatus: result.Status,
	}
	if err := s.lib.Cache.Set(cacheKey, body, library.TTLSearch); err != nil {
		s.log.Warn("caching search result", "error", err)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	src, ok := s.registry.Get("jikan")
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source", "no ranking source registered")
		return
	}
	lister, ok := src.(topLister)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source", "ranking source has no listings")
		return
	}

	filter := ""
	switch r.URL.Query().Get("filter") {
	case "", "popular":
		filter = "bypopularity"
	case "publishing":
		filter = "publishing"
	default:
		writeError(w, http.StatusBadRequest, "invalid filter", "filter must be popular or publishing")
		return
	}

	limit := queryInt(r, "limit", catalog.DefaultLimit)
	mangas, err := lister.Top(r.Context(), filter, limit)
	if err != nil {
		writeRouted(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": mangas})
}

func (s *Server) handleManga(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cacheKey := "details:" + id
	var cached detailResponse
	if ok, err := s.lib.Cache.Get(cacheKey, &cached); err == nil && ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	result, err := s.agg.Details(r.Context(), id)
	if err != nil {
		writeRouted(w, err)
		return
	}
	body := detailBody(result)
	if err := s.lib.Cache.Set(cacheKey, body, library.TTLDetails); err != nil {
		s.log.Warn("caching details", "error", err)
	}
	writeJSON(w, http.StatusOK, body)
}

// handleDetails is the query-parameter form of handleManga; source, when
// given, skips id-based routing.
func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id", "id parameter is required")
		return
	}

	source := r.URL.Query().Get("source")
	var (
		result *catalog.DetailResult
		err    error
	)
	if source != "" {
		result, err = s.agg.SourceDetails(r.Context(), source, id)
	} else {
		result, err = s.agg.Details(r.Context(), id)
	}
	if err != nil {
		writeRouted(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detailBody(result))
}

func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)

	cacheKey := fmt.Sprintf("chapters:%s:%d:%d", id, offset, limit)
	var cached chaptersResponse
	if ok, err := s.lib.Cache.Get(cacheKey, &cached); err == nil && ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	feed, err := s.agg.Chapters(r.Context(), id, offset, limit)
	if err != nil {
		writeRouted(w, err)
		return
	}
	body := chaptersResponse{Success: true, MangaID: id, Chapters: feed.Chapters, Total: feed.Total}
	if err := s.lib.Cache.Set(cacheKey, body, library.TTLChapters); err != nil {
		s.log.Warn("caching chapters", "error", err)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "chapterID")
	chapter := r.URL.Query().Get("chapter")
	slug := r.URL.Query().Get("slug")

	cacheKey := fmt.Sprintf("pages:%s:%s:%s", chapterID, chapter, slug)
	var cached pagesResponse
	if ok, err := s.lib.Cache.Get(cacheKey, &cached); err == nil && ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	pages, err := s.agg.Pages(r.Context(), chapterID, chapter, slug)
	if err != nil {
		writeRouted(w, err)
		return
	}
	body := pagesBody(pages)
	if err := s.lib.Cache.Set(cacheKey, body, library.TTLPages); err != nil {
		s.log.Warn("caching pages", "error", err)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSourceManga(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	id := chi.URLParam(r, "id")

	result, err := s.agg.SourceDetails(r.Context(), source, id)
	if err != nil {
		writeRouted(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detailBody(result))
}

func (s *Server) handleSourcePages(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	chapterID := chi.URLParam(r, "chapterID")
	chapter := r.URL.Query().Get("chapter")
	slug := r.URL.Query().Get("slug")

	pages, err := s.agg.SourcePages(r.Context(), source, chapterID, chapter, slug)
	if err != nil {
		writeRouted(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagesBody(pages))
}

func (s *Server) handleFavoritesList(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.lib.Favorites.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": entries})
}

func (s *Server) handleFavoritesAdd(w http.ResponseWriter, r *http.Request) {
	var e library.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if err := s.lib.Favorites.Add(e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid favorite", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleFavoritesRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.Favorites.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.lib.History.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (s *Server) handleHistoryRecord(w http.ResponseWriter, r *http.Request) {
	var e library.HistoryEntry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if err := s.lib.History.Record(e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid history entry", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleHistoryRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.History.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleNotificationsList(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.lib.Notifications.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": entries})
}

func (s *Server) handleNotificationsAdd(w http.ResponseWriter, r *http.Request) {
	var n library.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if err := s.lib.Notifications.Add(n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.Notifications.MarkRead(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, "not found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (s *Server) handleNotificationsRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.Notifications.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
