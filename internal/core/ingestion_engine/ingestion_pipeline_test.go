package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/doctrinekb/internal/config"
	"github.com/markdave123-py/doctrinekb/internal/core"
	db "github.com/markdave123-py/doctrinekb/internal/core/database"
	"github.com/markdave123-py/doctrinekb/internal/models"
	"github.com/markdave123-py/doctrinekb/internal/testutil"
)

// Two paragraphs under 100 characters each: two chunks at size 100.
const twoParagraphs = "Air interdiction disrupts enemy logistics well before forces reach the front line.\n\n" +
	"Close air support integrates fires with the scheme of manoeuvre on the ground.\n"

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract(context.Context, []byte, string) (*models.ExtractedText, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.ExtractedText{
		Text:         s.text,
		PageCount:    3,
		SkippedPages: []models.PageDiagnostic{{Page: 2, Reason: "keyword: contents"}},
	}, nil
}

type upload struct {
	bucket, key, contentType string
	body                     []byte
}

var _ core.ObjectClient = (*fakeObjects)(nil)

type fakeObjects struct {
	uploads   []upload
	objects   map[string][]byte
	uploadErr error
}

func (f *fakeObjects) UploadFile(_ context.Context, bucket, key string, data io.Reader, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	body, _ := io.ReadAll(data)
	f.uploads = append(f.uploads, upload{bucket: bucket, key: key, contentType: contentType, body: body})
	return "https://" + bucket + ".s3.amazonaws.com/" + key, nil
}

func (f *fakeObjects) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return data, nil
}

func newTestStore(t *testing.T) *db.DatabaseClient {
	t.Helper()
	cfg := &config.Config{DatabaseURL: "sqlite://" + filepath.Join(t.TempDir(), "doctrine.db")}
	store, err := db.NewDatabaseClient(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestIngestor(t *testing.T, store core.ChunkStore, obj core.ObjectClient, ext core.DocumentExtractor, bucket string) *DocumentIngestor {
	t.Helper()
	ing, err := NewDocumentIngestor(store, obj, ext, &IngestConfig{ChunkSize: 100, ChunkOverlap: 20, Bucket: bucket}, discardLogger())
	require.NoError(t, err)
	return ing
}

func chinaAir() models.Document {
	return models.Document{
		Country:     "China",
		WarfareType: "Air",
		Source:      "PLAAF Science of Campaigns",
		FileName:    "plaaf campaigns.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4 stub"),
	}
}

func TestIngest_WritesChunks(t *testing.T) {
	store := newTestStore(t)
	ing := newTestIngestor(t, store, nil, stubExtractor{text: twoParagraphs}, "")

	res, err := ing.Ingest(context.Background(), chinaAir())
	require.NoError(t, err)

	assert.True(t, res.Succeeded())
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, []int{2}, res.SkippedPages)
	assert.Equal(t, 2, res.ChunksWritten)
	assert.Equal(t, 0, res.ChunksSkipped)
	assert.Empty(t, res.ArchiveURL)

	rows, err := store.DB().Query(`SELECT doc_id, country, warfare_type, source FROM military_doctrines ORDER BY doc_id`)
	require.NoError(t, err)
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id, country, warfare, source string
		require.NoError(t, rows.Scan(&id, &country, &warfare, &source))
		assert.Equal(t, "China", country)
		assert.Equal(t, "Air", warfare)
		assert.Equal(t, "PLAAF Science of Campaigns", source)
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"china_air_doctrine_0", "china_air_doctrine_1"}, ids)
}

func TestIngest_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ing := newTestIngestor(t, store, nil, stubExtractor{text: twoParagraphs}, "")
	ctx := context.Background()

	_, err := ing.Ingest(ctx, chinaAir())
	require.NoError(t, err)

	res, err := ing.Ingest(ctx, chinaAir())
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunksWritten)
	assert.Equal(t, 2, res.ChunksSkipped)

	n, err := store.CountChunks(ctx, "China", "Air")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIngest_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *models.Document)
	}{
		{"blank country", func(d *models.Document) { d.Country = "  " }},
		{"nul in warfare type", func(d *models.Document) { d.WarfareType = "Air\x00" }},
		{"nul in source", func(d *models.Document) { d.Source = "PLAAF\x00Campaigns" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			ing := newTestIngestor(t, store, nil, stubExtractor{text: twoParagraphs}, "")

			doc := chinaAir()
			tt.mutate(&doc)

			res, err := ing.Ingest(context.Background(), doc)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
			require.NotNil(t, res)
			assert.False(t, res.Succeeded())
			assert.Len(t, res.Errors, 1)

			docs, err := store.ListDoctrines(context.Background())
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestIngest_ExtractionFailure(t *testing.T) {
	store := newTestStore(t)
	extErr := &core.ExtractionError{Cause: errors.New("open pdf: malformed")}
	ing := newTestIngestor(t, store, nil, stubExtractor{err: extErr}, "")

	res, err := ing.Ingest(context.Background(), chinaAir())

	var got *core.ExtractionError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 0, res.ChunksWritten)
	assert.Contains(t, res.Errors[0], "malformed")
}

func TestIngest_NoRelevantText(t *testing.T) {
	ing := newTestIngestor(t, newTestStore(t), nil, stubExtractor{text: "  \n"}, "")

	_, err := ing.Ingest(context.Background(), chinaAir())
	assert.ErrorIs(t, err, ErrNoRelevantText)

	var extErr *core.ExtractionError
	assert.True(t, errors.As(err, &extErr))
}

func TestIngest_RollsBackOnWriteFailure(t *testing.T) {
	store := newTestStore(t)
	_, err := store.DB().Exec(`
		CREATE TRIGGER reject_second_chunk BEFORE INSERT ON military_doctrines
		WHEN NEW.doc_id = 'china_air_doctrine_1'
		BEGIN SELECT RAISE(ABORT, 'boom'); END;
	`)
	require.NoError(t, err)

	ing := newTestIngestor(t, store, nil, stubExtractor{text: twoParagraphs}, "")
	res, err := ing.Ingest(context.Background(), chinaAir())

	var pErr *core.PersistenceError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "china_air_doctrine_1", pErr.DocID)
	assert.False(t, res.Succeeded())

	n, err := store.CountChunks(context.Background(), "China", "Air")
	require.NoError(t, err)
	assert.Zero(t, n, "the first chunk must not survive the rollback")
}

func TestIngest_ArchivesUpload(t *testing.T) {
	obj := &fakeObjects{}
	ing := newTestIngestor(t, newTestStore(t), obj, stubExtractor{text: twoParagraphs}, "doctrine-archive")

	res, err := ing.Ingest(context.Background(), chinaAir())
	require.NoError(t, err)

	require.Len(t, obj.uploads, 1)
	up := obj.uploads[0]
	assert.Equal(t, "doctrine-archive", up.bucket)
	assert.Equal(t, "doctrines/china/"+res.RunID+"/plaaf_campaigns.pdf", up.key)
	assert.Equal(t, "application/pdf", up.contentType)
	assert.Equal(t, []byte("%PDF-1.4 stub"), up.body)
	assert.Equal(t, "https://doctrine-archive.s3.amazonaws.com/"+up.key, res.ArchiveURL)
}

func TestIngest_ArchiveFailureIsNotFatal(t *testing.T) {
	obj := &fakeObjects{uploadErr: errors.New("AccessDenied")}
	ing := newTestIngestor(t, newTestStore(t), obj, stubExtractor{text: twoParagraphs}, "doctrine-archive")

	res, err := ing.Ingest(context.Background(), chinaAir())
	require.NoError(t, err)
	assert.Equal(t, 2, res.ChunksWritten)
	assert.Empty(t, res.ArchiveURL)
}

func TestIngestObject(t *testing.T) {
	obj := &fakeObjects{objects: map[string][]byte{"inbox/usa/fm3-0.pdf": []byte("%PDF-1.4 stub")}}
	ing := newTestIngestor(t, newTestStore(t), obj, stubExtractor{text: twoParagraphs}, "doctrine-archive")

	doc := models.Document{Country: "USA", WarfareType: "Land", Source: "FM 3-0"}
	res, err := ing.IngestObject(context.Background(), "inbox", "usa/fm3-0.pdf", doc)
	require.NoError(t, err)

	assert.Equal(t, 2, res.ChunksWritten)
	assert.Empty(t, obj.uploads, "objects already in storage are not archived again")

	_, err = ing.IngestObject(context.Background(), "inbox", "missing.pdf", doc)
	var extErr *core.ExtractionError
	assert.True(t, errors.As(err, &extErr))
}

func TestIngestObject_WithoutObjectStorage(t *testing.T) {
	ing := newTestIngestor(t, newTestStore(t), nil, stubExtractor{text: twoParagraphs}, "")

	_, err := ing.IngestObject(context.Background(), "inbox", "a.pdf", models.Document{Country: "USA"})
	assert.True(t, config.IsConfigurationError(err))
}

func TestIngest_RealPDF(t *testing.T) {
	store := newTestStore(t)
	ing, err := NewDocumentIngestor(store, nil, NewExtractor(discardLogger(), false), nil, discardLogger())
	require.NoError(t, err)

	doc := chinaAir()
	doc.Content = testutil.TextPDF(airProse, "Glossary of terms used in this publication and related works", jointProse)

	res, err := ing.Ingest(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, []int{2}, res.SkippedPages)
	assert.Equal(t, 1, res.ChunksWritten)
}

// sharedOverlap is the length of the longest prefix of next that ends prev.
func sharedOverlap(prev, next string, limit int) int {
	for k := min(limit, len(next)); k > 0; k-- {
		if strings.HasSuffix(prev, next[:k]) {
			return k
		}
	}
	return 0
}

func TestIngest_PDFChunksOverlapAcrossPages(t *testing.T) {
	sentences := func(topic string, n int) string {
		var b strings.Builder
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "Sentence %02d of the %s doctrine describes campaign planning. ", i, topic)
		}
		return strings.TrimSpace(b.String())
	}
	page1 := sentences("air", 14)
	page3 := sentences("naval", 13)
	require.Greater(t, len(page1)+len(page3), 1600)

	store := newTestStore(t)
	ing, err := NewDocumentIngestor(store, nil, NewExtractor(discardLogger(), false),
		&IngestConfig{ChunkSize: 1000, ChunkOverlap: 200}, discardLogger())
	require.NoError(t, err)

	doc := chinaAir()
	doc.Content = testutil.TextPDF(page1, "Table of Contents: chapter one, chapter two, chapter three and annexes", page3)

	res, err := ing.Ingest(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, res.SkippedPages)
	assert.Equal(t, 2, res.ChunksWritten)

	rows, err := store.DB().Query(`SELECT doc_id, chunk FROM military_doctrines ORDER BY doc_id`)
	require.NoError(t, err)
	defer rows.Close()

	var ids, chunks []string
	for rows.Next() {
		var id, chunk string
		require.NoError(t, rows.Scan(&id, &chunk))
		ids = append(ids, id)
		chunks = append(chunks, chunk)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"china_air_doctrine_0", "china_air_doctrine_1"}, ids)

	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 1000, "chunk %d too long", i)
	}
	assert.Contains(t, chunks[0], "Sentence 00 of the air doctrine")
	assert.Contains(t, chunks[1], "Sentence 12 of the naval doctrine")
	assert.NotContains(t, chunks[0]+chunks[1], "Table of Contents")

	shared := sharedOverlap(chunks[0], chunks[1], 200)
	assert.Greater(t, shared, 0, "second chunk should start with the tail of the first")
	assert.Contains(t, chunks[1][:shared], "of the air doctrine")
}

func TestNewDocumentIngestor_RejectsBadConfig(t *testing.T) {
	_, err := NewDocumentIngestor(nil, nil, nil, &IngestConfig{ChunkSize: 10, ChunkOverlap: 10}, nil)
	assert.True(t, config.IsConfigurationError(err))
}
