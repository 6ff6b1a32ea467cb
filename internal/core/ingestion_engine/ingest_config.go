package ingestion_engine

import (
	"fmt"

	"github.com/markdave123-py/doctrinekb/internal/core"
)

// Chunking defaults, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// IngestConfig tunes the pipeline.
//
// ChunkSize:    maximum characters per chunk (e.g., 1000-2000).
// ChunkOverlap: characters repeated between consecutive chunks (e.g., 200).
// Bucket:       object storage bucket for archiving uploads; empty disables archiving.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Bucket       string
}

// Validate rejects chunking parameters the splitter cannot honour.
func (c *IngestConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return &core.ConfigurationError{Field: "CHUNK_SIZE", Reason: fmt.Sprintf("must be positive, got %d", c.ChunkSize)}
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return &core.ConfigurationError{
			Field:  "CHUNK_OVERLAP",
			Reason: fmt.Sprintf("must be in [0, %d), got %d", c.ChunkSize, c.ChunkOverlap),
		}
	}
	return nil
}
