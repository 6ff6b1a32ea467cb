package ingestion_engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"

	"github.com/markdave123-py/doctrinekb/internal/core"
	"github.com/markdave123-py/doctrinekb/internal/models"
)

var _ core.DocumentExtractor = (*Extractor)(nil)

var pdfMagic = []byte("%PDF-")

// pageSource is anything that can hand out page text in reading order.
// Pages are numbered from 1.
type pageSource interface {
	NumPages() int
	PageText(n int) (string, error)
}

// Extractor reads PDFs page by page with ledongthuc/pdf and falls back to
// docconv for other office formats, where form feeds delimit pages.
type Extractor struct {
	logger         *slog.Logger
	useReadability bool
}

// NewExtractor builds an extractor that reports skipped pages on logger.
func NewExtractor(logger *slog.Logger, useReadability bool) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger, useReadability: useReadability}
}

// Extract returns the concatenated text of all relevant pages, each followed
// by a newline. Any failure to open or parse the document is an
// *core.ExtractionError and no partial text is returned.
func (e *Extractor) Extract(ctx context.Context, data []byte, contentType string) (*models.ExtractedText, error) {
	if len(data) == 0 {
		return nil, &core.ExtractionError{Cause: errors.New("document is empty")}
	}

	var (
		src pageSource
		err error
	)
	if isPDF(data, contentType) {
		src, err = openPDF(data)
	} else {
		src, err = e.convert(data, contentType)
	}
	if err != nil {
		return nil, &core.ExtractionError{Cause: err}
	}

	return e.extractPages(ctx, src)
}

// extractPages runs every page through the page filter and accumulates the
// relevant ones.
func (e *Extractor) extractPages(ctx context.Context, src pageSource) (out *models.ExtractedText, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &core.ExtractionError{Cause: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	total := src.NumPages()
	res := &models.ExtractedText{PageCount: total, SkippedPages: []models.PageDiagnostic{}}

	var b strings.Builder
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := src.PageText(n)
		if err != nil {
			return nil, &core.ExtractionError{Cause: fmt.Errorf("page %d: %w", n, err)}
		}

		text := strings.TrimSpace(raw)
		if ok, reason := ClassifyPage(text); !ok {
			e.logger.Info("skipping page", "page", n, "reason", reason)
			res.SkippedPages = append(res.SkippedPages, models.PageDiagnostic{Page: n, Reason: reason})
			continue
		}

		// NUL is rejected by Postgres text columns.
		b.WriteString(strings.ReplaceAll(text, "\x00", ""))
		b.WriteByte('\n')
	}

	res.Text = b.String()
	return res, nil
}

func (e *Extractor) convert(data []byte, contentType string) (pageSource, error) {
	resp, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return nil, fmt.Errorf("docconv %q: %w", contentType, err)
	}
	return textPages(strings.Split(resp.Body, "\f")), nil
}

func isPDF(data []byte, contentType string) bool {
	if bytes.HasPrefix(data, pdfMagic) {
		return true
	}
	return strings.HasPrefix(strings.ToLower(contentType), "application/pdf")
}

// pdfPages iterates a parsed PDF.
type pdfPages struct {
	r *pdf.Reader
}

func openPDF(data []byte) (src *pdfPages, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("open pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfPages{r: r}, nil
}

func (p *pdfPages) NumPages() int { return p.r.NumPage() }

func (p *pdfPages) PageText(n int) (string, error) {
	page := p.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// textPages adapts already-converted text split on page boundaries.
type textPages []string

func (t textPages) NumPages() int { return len(t) }

func (t textPages) PageText(n int) (string, error) { return t[n-1], nil }
