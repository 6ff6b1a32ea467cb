package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/markdave123-py/doctrinekb/internal/core"
	"github.com/markdave123-py/doctrinekb/internal/core/ingestion_engine"
	objectclient "github.com/markdave123-py/doctrinekb/internal/core/object-client"
	"github.com/markdave123-py/doctrinekb/internal/models"
)

// ObjectLister enumerates keys under a prefix.
type ObjectLister interface {
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)
}

// DocumentService is the entry point for ingesting doctrine documents from
// uploads, local files and object storage.
type DocumentService struct {
	ingestor ingestion_engine.Ingestor
	lister   ObjectLister
	logger   *slog.Logger
}

// NewDocumentService wires the service. lister may be nil when object
// storage is not configured.
func NewDocumentService(ingestor ingestion_engine.Ingestor, lister ObjectLister, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{ingestor: ingestor, lister: lister, logger: logger}
}

func (s *DocumentService) Ingest(ctx context.Context, doc models.Document) (*models.IngestResult, error) {
	return s.ingestor.Ingest(ctx, doc)
}

// IngestFile reads a local file and ingests it with the metadata in meta.
func (s *DocumentService) IngestFile(ctx context.Context, path string, meta models.Document) (*models.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	meta.Content = data
	meta.FileName = filepath.Base(path)
	if meta.ContentType == "" {
		meta.ContentType = contentTypeFor(path)
	}
	if meta.Source == "" {
		meta.Source = meta.FileName
	}
	return s.ingestor.Ingest(ctx, meta)
}

// IngestLocation ingests a local path, one s3://bucket/key object, or every
// object under an s3://bucket/prefix/ ending in a slash. One result is
// returned per document; failures of individual documents are joined into
// the error without stopping the others.
//
// Under a prefix each object is its own doctrine. Its warfare type is taken
// from the object's file name unless meta names one, in which case the
// prefix must hold a single object.
func (s *DocumentService) IngestLocation(ctx context.Context, location string, meta models.Document) ([]*models.IngestResult, error) {
	if !strings.HasPrefix(location, "s3://") {
		res, err := s.IngestFile(ctx, location, meta)
		if res == nil {
			return nil, err
		}
		return []*models.IngestResult{res}, err
	}

	bucket, key, err := objectclient.ParseS3URI(location)
	if err != nil {
		return nil, err
	}

	if key != "" && !strings.HasSuffix(key, "/") {
		if meta.Source == "" {
			meta.Source = location
		}
		res, err := s.ingestor.IngestObject(ctx, bucket, key, meta)
		return []*models.IngestResult{res}, err
	}

	if s.lister == nil {
		return nil, errors.New("object storage is not configured")
	}
	keys, err := s.lister.ListKeys(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	docs, err := prefixDocuments(bucket, keys, meta)
	if err != nil {
		return nil, err
	}
	return s.ingestObjects(ctx, bucket, keys, docs)
}

// prefixDocuments assigns metadata to every object of a prefix batch and
// rejects batches where two objects would share chunk ids.
func prefixDocuments(bucket string, keys []string, meta models.Document) ([]models.Document, error) {
	if meta.WarfareType != "" && len(keys) > 1 {
		return nil, fmt.Errorf("%w: a warfare type applies to one document but the prefix holds %d objects", core.ErrInvalidInput, len(keys))
	}

	docs := make([]models.Document, len(keys))
	owner := make(map[string]string, len(keys))
	for i, key := range keys {
		doc := meta
		if doc.WarfareType == "" {
			doc.WarfareType = warfareFromKey(key)
		}
		if doc.Source == "" {
			doc.Source = fmt.Sprintf("s3://%s/%s", bucket, key)
		}
		doc.ContentType = contentTypeFor(key)

		id := ingestion_engine.DocID(doc.Country, doc.WarfareType, 0)
		if prev, ok := owner[id]; ok {
			return nil, fmt.Errorf("%w: %s and %s map to the same doctrine (%s, %s)", core.ErrInvalidInput, prev, key, doc.Country, doc.WarfareType)
		}
		owner[id] = key
		docs[i] = doc
	}
	return docs, nil
}

// warfareFromKey turns "china/naval_ops.pdf" into "Naval Ops".
func warfareFromKey(key string) string {
	stem := strings.TrimSuffix(path.Base(key), path.Ext(key))
	words := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// ingestObjects processes the batch one document at a time, in key order.
func (s *DocumentService) ingestObjects(ctx context.Context, bucket string, keys []string, docs []models.Document) ([]*models.IngestResult, error) {
	results := make([]*models.IngestResult, 0, len(keys))
	var errs []error

	for i, key := range keys {
		res, err := s.ingestor.IngestObject(ctx, bucket, key, docs[i])
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	s.logger.Info("batch ingestion finished", "bucket", bucket, "documents", len(keys), "failed", len(errs))
	return results, errors.Join(errs...)
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".pdf" {
		return "application/pdf"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
