package ingestion_engine

import (
	"strconv"
	"strings"

	"github.com/markdave123-py/doctrinekb/internal/models"
)

// DocID is the idempotency key of the i-th chunk of a doctrine. The warfare
// segment is omitted when the document has no warfare type.
func DocID(country, warfareType string, i int) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(country)))
	if wt := strings.ToLower(strings.TrimSpace(warfareType)); wt != "" {
		b.WriteByte('_')
		b.WriteString(wt)
	}
	b.WriteString("_doctrine_")
	b.WriteString(strconv.Itoa(i))
	return b.String()
}

// BuildChunks maps chunk texts to chunk store rows in order.
func BuildChunks(doc models.Document, texts []string) []models.DoctrineChunk {
	rows := make([]models.DoctrineChunk, len(texts))
	for i, text := range texts {
		rows[i] = models.DoctrineChunk{
			DocID:       DocID(doc.Country, doc.WarfareType, i),
			Country:     doc.Country,
			WarfareType: doc.WarfareType,
			Content:     text,
			Source:      doc.Source,
		}
	}
	return rows
}
