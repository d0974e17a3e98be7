package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/speakify/internal/activity"
	"github.com/nikhilbhutani/speakify/internal/models"
	"github.com/nikhilbhutani/speakify/internal/speakify"
)

// HistorySource lists and deletes past conversions.
type HistorySource interface {
	FetchHistory(ctx context.Context, limit, offset int) (models.HistoryPage, error)
	DeleteHistoryItem(ctx context.Context, id string) error
}

type HistoryHandler struct {
	source HistorySource
}

func NewHistoryHandler(source HistorySource) *HistoryHandler {
	return &HistoryHandler{source: source}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	page, err := h.source.FetchHistory(r.Context(), limit, offset)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.source.DeleteHistoryItem(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	if errors.Is(err, activity.ErrNotFound) {
		return http.StatusNotFound
	}
	var apiErr *speakify.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}
