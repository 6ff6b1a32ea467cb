package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/doctrinekb/internal/core"
	"github.com/markdave123-py/doctrinekb/internal/models"
)

type documentIngester interface {
	Ingest(ctx context.Context, doc models.Document) (*models.IngestResult, error)
}

type DocumentHandler struct {
	docs           documentIngester
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewDocumentHandler(docs documentIngester, maxUploadMB int, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{docs: docs, maxUploadBytes: int64(maxUploadMB) << 20, logger: logger}
}

// IngestDocument accepts a multipart upload (file, country, warfare_type,
// source) and ingests it synchronously.
func (h *DocumentHandler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc := models.Document{
		Country:     strings.TrimSpace(r.FormValue("country")),
		WarfareType: strings.TrimSpace(r.FormValue("warfare_type")),
		Source:      strings.TrimSpace(r.FormValue("source")),
		FileName:    filepath.Base(header.Filename),
		ContentType: contentType,
		Content:     data,
	}
	if doc.Source == "" {
		doc.Source = doc.FileName
	}

	res, err := h.docs.Ingest(r.Context(), doc)
	if err != nil {
		status := ingestStatus(err)
		h.logger.Warn("ingest request failed", "file", doc.FileName, "status", status, "error", err)
		if res == nil {
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, status, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ingestStatus maps the ingestion error taxonomy onto HTTP.
func ingestStatus(err error) int {
	var (
		extErr *core.ExtractionError
		pErr   *core.PersistenceError
	)
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &extErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &pErr):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
