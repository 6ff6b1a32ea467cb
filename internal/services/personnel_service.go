package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/markdave123-py/doctrinekb/internal/core"
	"github.com/markdave123-py/doctrinekb/internal/models"
)

// Header names of the "military personnel by country" table.
const (
	colCountry       = "Country"
	colActive        = "Active military"
	colReserve       = "Reserve military"
	colParamilitary  = "Paramilitary"
	colTotal         = "Total"
	colPer1000Total  = "Per 1,000 capita (total)"
	colPer1000Active = "Per 1,000 capita (active)"
	colRef           = "Ref"
)

var requiredColumns = []string{colCountry, colActive, colReserve, colParamilitary, colTotal}

// footnotes strips wiki-style markers such as [a] or [12].
var footnotes = regexp.MustCompile(`\[[^\]]*\]`)

type PersonnelService struct {
	store  core.ChunkStore
	logger *slog.Logger
}

func NewPersonnelService(store core.ChunkStore, logger *slog.Logger) *PersonnelService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersonnelService{store: store, logger: logger}
}

// Import parses the CSV in r and stores its rows. Countries already present
// are left untouched. It returns the number of rows parsed and inserted.
func (s *PersonnelService) Import(ctx context.Context, r io.Reader) (parsed, inserted int, err error) {
	records, err := ParsePersonnelCSV(r)
	if err != nil {
		return 0, 0, err
	}
	inserted, err = s.store.InsertPersonnel(ctx, records)
	if err != nil {
		return len(records), 0, err
	}
	s.logger.Info("personnel imported", "rows", len(records), "inserted", inserted, "skipped", len(records)-inserted)
	return len(records), inserted, nil
}

// ParsePersonnelCSV reads the personnel table. Numeric cells may carry
// thousands separators and footnote markers; empty cells become zero.
func ParsePersonnelCSV(r io.Reader) ([]models.PersonnelRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: csv is empty", core.ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: read header: %v", core.ErrInvalidInput, err)
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", core.ErrInvalidInput, c)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []models.PersonnelRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", core.ErrInvalidInput, line, err)
		}

		country := strings.TrimSpace(footnotes.ReplaceAllString(cell(row, colCountry), ""))
		if country == "" {
			continue
		}

		rec := models.PersonnelRecord{Country: country, Ref: cell(row, colRef)}
		ints := []struct {
			col string
			dst *int64
		}{
			{colActive, &rec.Active},
			{colReserve, &rec.Reserve},
			{colParamilitary, &rec.Paramilitary},
			{colTotal, &rec.Total},
		}
		for _, f := range ints {
			if *f.dst, err = parseCount(cell(row, f.col)); err != nil {
				return nil, fmt.Errorf("%w: line %d column %q: %v", core.ErrInvalidInput, line, f.col, err)
			}
		}
		if rec.Per1000Total, err = parseRate(cell(row, colPer1000Total)); err != nil {
			return nil, fmt.Errorf("%w: line %d column %q: %v", core.ErrInvalidInput, line, colPer1000Total, err)
		}
		if rec.Per1000Active, err = parseRate(cell(row, colPer1000Active)); err != nil {
			return nil, fmt.Errorf("%w: line %d column %q: %v", core.ErrInvalidInput, line, colPer1000Active, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func cleanNumber(s string) string {
	s = footnotes.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "-" || s == "\u2014" || s == "N/A" {
		return ""
	}
	return s
}

func parseCount(s string) (int64, error) {
	s = cleanNumber(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func parseRate(s string) (float64, error) {
	s = cleanNumber(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
