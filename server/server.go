// Package server exposes the aggregated catalog and the reader library as
// a JSON API.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/internal"
	"github.com/mangalib-app/mangalib/library"
)

// topLister is the optional ranked-listings capability; only sources that
// back a ranking site implement it.
type topLister interface {
	Top(ctx context.Context, filter string, limit int) ([]internal.Manga, error)
}

type Server struct {
	agg      *catalog.Aggregator
	registry *catalog.Registry
	lib      *library.Library
	log      *slog.Logger
	proxy    *http.Client
}

func New(agg *catalog.Aggregator, registry *catalog.Registry, lib *library.Library, log *slog.Logger) *Server {
	return &Server{
		agg:      agg,
		registry: registry,
		lib:      lib,
		log:      log,
		proxy:    &http.Client{Timeout: proxyTimeout},
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.log))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/top", s.handleTop)
		r.Get("/manga/{id}", s.handleManga)
		r.Get("/details", s.handleDetails)
		r.Get("/chapters/{id}", s.handleChapters)
		r.Get("/pages/{chapterID}", s.handlePages)
		r.Get("/source/{source}/{id}", s.handleSourceManga)
		r.Get("/source/{source}/chapter/{chapterID}", s.handleSourcePages)
		r.Get("/proxy-image", s.handleProxyImage)

		r.Get("/favorites", s.handleFavoritesList)
		r.Post("/favorites", s.handleFavoritesAdd)
		r.Delete("/favorites/{id}", s.handleFavoritesRemove)

		r.Get("/history", s.handleHistoryList)
		r.Post("/history", s.handleHistoryRecord)
		r.Delete("/history/{id}", s.handleHistoryRemove)

		r.Get("/notifications", s.handleNotificationsList)
		r.Post("/notifications", s.handleNotificationsAdd)
		r.Post("/notifications/{id}/read", s.handleNotificationsRead)
		r.Delete("/notifications/{id}", s.handleNotificationsRemove)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"sources": s.registry.Names(),
	})
}
