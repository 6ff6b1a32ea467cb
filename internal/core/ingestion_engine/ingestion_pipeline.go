package ingestion_engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/doctrinekb/internal/core"
	"github.com/markdave123-py/doctrinekb/internal/models"
)

// ErrNoRelevantText is returned when every page of a document was filtered out.
var ErrNoRelevantText = errors.New("no relevant text after page filtering")

var _ Ingestor = (*DocumentIngestor)(nil)

// DocumentIngestor runs extract -> chunk -> write for one document at a time.
//
// store:     chunk store; one connection is taken per Ingest call.
// obj:       optional object storage used to archive uploads and fetch batch inputs.
// extractor: document text extraction with page filtering.
// splitter:  chunker configured from cfg.
type DocumentIngestor struct {
	store     core.ChunkStore
	obj       core.ObjectClient
	extractor core.DocumentExtractor
	splitter  *TextSplitter
	cfg       *IngestConfig
	logger    *slog.Logger
}

// NewDocumentIngestor validates cfg and wires the pipeline. obj may be nil.
func NewDocumentIngestor(store core.ChunkStore, obj core.ObjectClient, extractor core.DocumentExtractor, cfg *IngestConfig, logger *slog.Logger) (*DocumentIngestor, error) {
	if cfg == nil {
		cfg = &IngestConfig{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentIngestor{
		store:     store,
		obj:       obj,
		extractor: extractor,
		splitter:  NewTextSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Ingest processes one submitted document. The result is always non-nil and
// lists every failure; the returned error is the first one, typed as
// *core.ExtractionError or *core.PersistenceError where applicable. A failed
// ingestion leaves nothing behind in the chunk store and is not retried.
func (i *DocumentIngestor) Ingest(ctx context.Context, doc models.Document) (*models.IngestResult, error) {
	return i.ingest(ctx, doc, true)
}

// IngestObject fetches a document from object storage and ingests it.
// Objects that already live in storage are not archived again.
func (i *DocumentIngestor) IngestObject(ctx context.Context, bucket, key string, doc models.Document) (*models.IngestResult, error) {
	if i.obj == nil {
		res := i.newResult(doc)
		err := &core.ConfigurationError{Field: "BUCKET_NAME", Reason: "object storage is not configured"}
		res.Errors = append(res.Errors, err.Error())
		return res, err
	}

	data, err := i.obj.GetFile(ctx, bucket, key)
	if err != nil {
		res := i.newResult(doc)
		extErr := &core.ExtractionError{Cause: fmt.Errorf("fetch s3://%s/%s: %w", bucket, key, err)}
		res.Errors = append(res.Errors, extErr.Error())
		return res, extErr
	}

	doc.Content = data
	if doc.FileName == "" {
		doc.FileName = path.Base(key)
	}
	return i.ingest(ctx, doc, false)
}

func (i *DocumentIngestor) ingest(ctx context.Context, doc models.Document, archive bool) (*models.IngestResult, error) {
	start := time.Now()
	res := i.newResult(doc)
	res.StartedAt = start
	log := i.logger.With("run_id", res.RunID, "country", doc.Country, "warfare_type", doc.WarfareType)

	fail := func(err error) (*models.IngestResult, error) {
		res.Errors = append(res.Errors, err.Error())
		res.Duration = time.Since(start).String()
		log.Error("ingestion failed", "error", err)
		return res, err
	}

	if err := validateDocument(doc); err != nil {
		return fail(err)
	}

	extracted, err := i.extractor.Extract(ctx, doc.Content, doc.ContentType)
	if err != nil {
		return fail(err)
	}
	res.PageCount = extracted.PageCount
	for _, sp := range extracted.SkippedPages {
		res.SkippedPages = append(res.SkippedPages, sp.Page)
	}

	texts := i.splitter.Split(extracted.Text)
	if len(texts) == 0 {
		return fail(&core.ExtractionError{Cause: ErrNoRelevantText})
	}
	log.Info("document chunked", "pages", extracted.PageCount, "skipped_pages", len(extracted.SkippedPages), "chunks", len(texts))

	report, err := i.store.InsertChunks(ctx, BuildChunks(doc, texts))
	if err != nil {
		return fail(err)
	}
	res.ChunksWritten = len(report.Inserted)
	res.ChunksSkipped = len(report.Skipped)

	if archive {
		res.ArchiveURL = i.archive(ctx, res.RunID, doc, log)
	}

	res.Duration = time.Since(start).String()
	log.Info("ingestion complete", "written", res.ChunksWritten, "skipped", res.ChunksSkipped)
	return res, nil
}

// archive stores the original upload next to its run ID. Failures are
// logged only; the chunks are already committed.
func (i *DocumentIngestor) archive(ctx context.Context, runID string, doc models.Document, log *slog.Logger) string {
	if i.obj == nil || i.cfg.Bucket == "" {
		return ""
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(doc.FileName), " ", "_"))
	if name == "." || name == "/" {
		name = "document"
	}
	key := path.Join("doctrines", strings.ToLower(strings.TrimSpace(doc.Country)), runID, name)

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := i.obj.UploadFile(ctx, i.cfg.Bucket, key, bytes.NewReader(doc.Content), contentType)
	if err != nil {
		log.Warn("archiving source document failed", "key", key, "error", err)
		return ""
	}
	return url
}

func (i *DocumentIngestor) newResult(doc models.Document) *models.IngestResult {
	return &models.IngestResult{
		RunID:        uuid.NewString(),
		Country:      doc.Country,
		WarfareType:  doc.WarfareType,
		SkippedPages: []int{},
		Errors:       []string{},
		StartedAt:    time.Now(),
	}
}

func validateDocument(doc models.Document) error {
	if strings.TrimSpace(doc.Country) == "" {
		return fmt.Errorf("%w: country is required", core.ErrInvalidInput)
	}
	if strings.ContainsRune(doc.Country+doc.WarfareType+doc.Source, 0) {
		return fmt.Errorf("%w: metadata contains NUL bytes", core.ErrInvalidInput)
	}
	return nil
}
