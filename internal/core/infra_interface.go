package core

import (
	"context"
	"io"

	"github.com/markdave123-py/doctrinekb/internal/models"
)

// ChunkStore defines the persistence operations the ingestion pipeline and
// the read-side services need. It abstracts Postgres/SQLite so higher layers
// never depend on a specific DB.
type ChunkStore interface {
	// InsertChunks writes one document's chunks in a single transaction.
	// Existing doc_ids are skipped, any other failure rolls back the batch.
	InsertChunks(ctx context.Context, chunks []models.DoctrineChunk) (*models.WriteReport, error)
	CountChunks(ctx context.Context, country, warfareType string) (int, error)
	ListDoctrines(ctx context.Context) ([]models.Doctrine, error)

	InsertPersonnel(ctx context.Context, records []models.PersonnelRecord) (inserted int, err error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// DocumentExtractor turns raw document bytes into filtered, page-separated text.
// The contentType hint helps the extractor choose the right parsing strategy.
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (*models.ExtractedText, error)
}

// KnowledgeBase is the external Q&A oracle that indexes the chunk store.
type KnowledgeBase interface {
	Ask(ctx context.Context, question string) (string, error)
	// Search returns the chunks most relevant to question. An empty country
	// searches every doctrine.
	Search(ctx context.Context, question, country string, limit int) ([]models.SearchHit, error)
}
