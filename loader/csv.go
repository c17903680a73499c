package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/brunobiangulo/goldeneval/eval"
)

// CSVLoader reads comma-separated files whose first row is the header.
type CSVLoader struct{}

func (l *CSVLoader) SupportedFormats() []string { return []string{"csv"} }

func (l *CSVLoader) Load(ctx context.Context, path string) ([]eval.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV: %w", err)
	}
	defer f.Close()

	return DecodeCSV(f)
}

// DecodeCSV reads a header row followed by data rows. Headers and values are
// trimmed, short rows are padded with "", blank rows are skipped and quoted
// fields may contain commas or newlines.
func DecodeCSV(r io.Reader) ([]eval.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []eval.RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading CSV header: %v", ErrParsingFailed, err)
	}
	header = trimHeader(header)

	records := make([]eval.RawRecord, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading CSV row: %v", ErrParsingFailed, err)
		}
		if rec, ok := rowRecord(header, row); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// trimHeader trims header cells and strips a leading UTF-8 byte order mark.
func trimHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// rowRecord maps a row onto header names. Columns with an empty header are
// ignored; a row whose cells are all blank is reported as not ok.
func rowRecord(header, row []string) (eval.RawRecord, bool) {
	rec := make(eval.RawRecord, len(header))
	blank := true
	for i, name := range header {
		if name == "" {
			continue
		}
		var v string
		if i < len(row) {
			v = strings.TrimSpace(row[i])
		}
		if v != "" {
			blank = false
		}
		rec[name] = v
	}
	return rec, !blank
}
