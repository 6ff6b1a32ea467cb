package ingestion_engine

import (
	"context"

	"github.com/markdave123-py/doctrinekb/internal/models"
)

type Ingestor interface {
	Ingest(ctx context.Context, doc models.Document) (*models.IngestResult, error)
	IngestObject(ctx context.Context, bucket, key string, doc models.Document) (*models.IngestResult, error)
}
