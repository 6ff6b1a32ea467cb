package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/markdave123-py/doctrinekb/internal/core"
	"github.com/markdave123-py/doctrinekb/internal/models"
)

type chatService interface {
	Ask(ctx context.Context, question, country, warfareType string) (string, error)
	Search(ctx context.Context, question, country string, limit int) ([]models.SearchHit, error)
}

type ChatHandler struct {
	chat   chatService
	logger *slog.Logger
}

func NewChatHandler(chat chatService, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{chat: chat, logger: logger}
}

type ChatRequest struct {
	Question    string `json:"question"`
	Country     string `json:"country"`
	WarfareType string `json:"warfare_type"`
}

type ChatResponse struct {
	Answer string `json:"answer"`
}

func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.chat.Ask(r.Context(), req.Question, req.Country, req.WarfareType)
	if err != nil {
		h.writeKBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer})
}

// Search serves GET /api/chat/search?q=&country=&limit=.
func (h *ChatHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	question := strings.TrimSpace(q.Get("q"))
	if question == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 5
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 50 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = n
	}

	hits, err := h.chat.Search(r.Context(), question, q.Get("country"), limit)
	if err != nil {
		h.writeKBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (h *ChatHandler) writeKBError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("knowledge base request failed", "error", err)
	writeError(w, http.StatusBadGateway, "knowledge base unavailable: "+err.Error())
}
