package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/internal"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, short, message string) {
	writeJSON(w, status, errorBody{Error: short, Message: message})
}

// writeRouted maps routing and upstream failures to status codes: bad ids
// are the client's fault, a missing record is 404, everything else is the
// upstream's fault.
func writeRouted(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid id", err.Error())
	case errors.Is(err, catalog.ErrUnknownSource):
		writeError(w, http.StatusNotFound, "unknown source", err.Error())
	case internal.Classify(err) == internal.ErrNotFound:
		writeError(w, http.StatusNotFound, "not found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "upstream error", err.Error())
	}
}
