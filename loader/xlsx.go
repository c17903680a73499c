package loader

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/goldeneval/eval"
)

// XLSXLoader reads every non-empty sheet of a workbook. Row 1 of each sheet
// is that sheet's header.
type XLSXLoader struct{}

func (l *XLSXLoader) SupportedFormats() []string { return []string{"xlsx", "xlsm"} }

func (l *XLSXLoader) Load(ctx context.Context, path string) ([]eval.RawRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening XLSX: %v", ErrParsingFailed, err)
	}
	defer f.Close()

	records := make([]eval.RawRecord, 0)
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: reading sheet %q: %v", ErrParsingFailed, sheet, err)
		}
		if len(rows) < 2 {
			continue
		}

		header := trimHeader(rows[0])
		for _, row := range rows[1:] {
			if rec, ok := rowRecord(header, row); ok {
				records = append(records, rec)
			}
		}
	}
	return records, nil
}
