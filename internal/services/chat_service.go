package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/markdave123-py/doctrinekb/internal/core"
	"github.com/markdave123-py/doctrinekb/internal/models"
)

// AllFilter is the UI value meaning "no filter".
const AllFilter = "All"

// countryAliases are rewritten to the name the knowledge base stores.
// Longer names come first so "United States of America" is matched whole.
var countryAliases = regexp.MustCompile(`(?i)\b(united states of america|united states|usa)\b`)

const canonicalAmerica = "America"

type ChatService struct {
	kb core.KnowledgeBase
}

func NewChatService(kb core.KnowledgeBase) *ChatService {
	return &ChatService{kb: kb}
}

// BuildQuestion normalises country aliases in question and appends the
// country and warfare filters the agent expects.
func BuildQuestion(question, country, warfareType string) string {
	q := countryAliases.ReplaceAllString(strings.TrimSpace(question), canonicalAmerica)

	if c := strings.TrimSpace(country); c != "" && !strings.EqualFold(c, AllFilter) {
		q += " (Focus on " + c + ")"
	}
	if w := strings.TrimSpace(warfareType); w != "" && !strings.EqualFold(w, AllFilter) {
		q += " regarding " + w + " warfare"
	}
	return q
}

// Ask forwards a filtered question to the knowledge base.
func (s *ChatService) Ask(ctx context.Context, question, country, warfareType string) (string, error) {
	return s.kb.Ask(ctx, BuildQuestion(question, country, warfareType))
}

// Search returns the chunks closest to question. "All" searches every country.
func (s *ChatService) Search(ctx context.Context, question, country string, limit int) ([]models.SearchHit, error) {
	if strings.EqualFold(strings.TrimSpace(country), AllFilter) {
		country = ""
	}
	if country != "" {
		country = countryAliases.ReplaceAllString(strings.TrimSpace(country), canonicalAmerica)
	}
	return s.kb.Search(ctx, question, country, limit)
}
