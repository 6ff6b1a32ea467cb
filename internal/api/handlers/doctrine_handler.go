package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/doctrinekb/internal/models"
)

type doctrineCatalog interface {
	List(ctx context.Context) ([]models.Doctrine, error)
	Count(ctx context.Context, country, warfareType string) (int, error)
}

type DoctrineHandler struct {
	catalog doctrineCatalog
}

func NewDoctrineHandler(catalog doctrineCatalog) *DoctrineHandler {
	return &DoctrineHandler{catalog: catalog}
}

func (h *DoctrineHandler) ListDoctrines(w http.ResponseWriter, r *http.Request) {
	docs, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

type chunkCount struct {
	Country     string `json:"country"`
	WarfareType string `json:"warfare_type"`
	Chunks      int    `json:"chunks"`
}

// CountChunks serves GET /api/doctrines/{country}/chunks?warfare_type=.
func (h *DoctrineHandler) CountChunks(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	warfare := r.URL.Query().Get("warfare_type")

	n, err := h.catalog.Count(r.Context(), country, warfare)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chunkCount{Country: country, WarfareType: warfare, Chunks: n})
}
