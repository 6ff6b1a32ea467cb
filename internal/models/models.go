package models

import (
	"time"
)

// Document is a doctrine source submitted for ingestion. It only lives for
// the duration of one ingestion call.
type Document struct {
	Country     string `json:"country"`
	WarfareType string `json:"warfare_type"` // empty when not applicable (combined arms etc.)
	Source      string `json:"source"`       // free-text provenance
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`
}

// PageDiagnostic records a page dropped by the page filter.
type PageDiagnostic struct {
	Page   int    `json:"page"`
	Reason string `json:"reason"`
}

// ExtractedText is the cleaned, page-separated text of a document.
type ExtractedText struct {
	Text         string           `json:"-"`
	PageCount    int              `json:"page_count"`
	SkippedPages []PageDiagnostic `json:"skipped_pages"`
}

// DoctrineChunk is one persisted row of the chunk store.
type DoctrineChunk struct {
	DocID       string `db:"doc_id" json:"doc_id"`
	Country     string `db:"country" json:"country"`
	WarfareType string `db:"warfare_type" json:"warfare_type"`
	Content     string `db:"chunk" json:"chunk"`
	Source      string `db:"source" json:"source"`
}

// WriteReport summarises one committed chunk batch.
type WriteReport struct {
	Inserted []string `json:"inserted"`
	Skipped  []string `json:"skipped"` // doc_ids that already existed
}

// IngestResult is what the ingestion driver reports for one document.
type IngestResult struct {
	RunID         string    `json:"run_id"`
	Country       string    `json:"country"`
	WarfareType   string    `json:"warfare_type"`
	PageCount     int       `json:"page_count"`
	ChunksWritten int       `json:"chunks_written"`
	ChunksSkipped int       `json:"chunks_skipped"`
	SkippedPages  []int     `json:"skipped_pages"`
	Errors        []string  `json:"errors"`
	ArchiveURL    string    `json:"archive_url,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	Duration      string    `json:"duration"`
}

// Succeeded reports whether the document was fully ingested.
func (r *IngestResult) Succeeded() bool {
	return len(r.Errors) == 0
}

// Doctrine is one known (country, warfare type) combination in the store.
type Doctrine struct {
	Country     string `db:"country" json:"country"`
	WarfareType string `db:"warfare_type" json:"warfare_type"`
}

// PersonnelRecord is one row of the military personnel table.
type PersonnelRecord struct {
	Country       string  `db:"country" json:"country"`
	Active        int64   `db:"active_military" json:"active_military"`
	Reserve       int64   `db:"reserve_military" json:"reserve_military"`
	Paramilitary  int64   `db:"paramilitary" json:"paramilitary"`
	Total         int64   `db:"total" json:"total"`
	Per1000Total  float64 `db:"per_1000_total" json:"per_1000_total"`
	Per1000Active float64 `db:"per_1000_active" json:"per_1000_active"`
	Ref           string  `db:"ref" json:"ref"`
}

// SearchHit is one knowledge-base search result.
type SearchHit struct {
	ID          string  `json:"id"`
	Content     string  `json:"content"`
	Country     string  `json:"country"`
	WarfareType string  `json:"warfare_type"`
	Relevance   float64 `json:"relevance"`
}
