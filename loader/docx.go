package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/brunobiangulo/goldeneval/eval"
)

// DOCXLoader reads Word documents. Every table with a header row yields one
// record per body row; paragraph text is parsed as a Q:/A: transcript.
type DOCXLoader struct{}

func (l *DOCXLoader) SupportedFormats() []string { return []string{"docx"} }

func (l *DOCXLoader) Load(ctx context.Context, path string) ([]eval.RawRecord, error) {
	data, err := readDocxDocument(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	return DecodeDOCX(data)
}

func readDocxDocument(path string) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening document.xml: %w", err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("word/document.xml not found in DOCX")
}

// DOCX XML structures (simplified)
type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxBody struct {
	Paras  []docxPara  `xml:"p"`
	Tables []docxTable `xml:"tbl"`
}

type docxPara struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paras []docxPara `xml:"p"`
}

// DecodeDOCX converts the contents of word/document.xml into records. Table
// records come first, in table order, followed by transcript records.
func DecodeDOCX(data []byte) ([]eval.RawRecord, error) {
	var doc docxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing DOCX XML: %v", ErrParsingFailed, err)
	}

	records := make([]eval.RawRecord, 0)
	for _, tbl := range doc.Body.Tables {
		if len(tbl.Rows) < 2 {
			continue
		}
		header := trimHeader(tableRow(tbl.Rows[0]))
		for _, row := range tbl.Rows[1:] {
			if rec, ok := rowRecord(header, tableRow(row)); ok {
				records = append(records, rec)
			}
		}
	}

	var text strings.Builder
	for _, p := range doc.Body.Paras {
		text.WriteString(extractParaText(p))
		text.WriteString("\n")
	}
	return append(records, ParseTranscript(text.String())...), nil
}

func tableRow(row docxRow) []string {
	cells := make([]string, 0, len(row.Cells))
	for _, cell := range row.Cells {
		parts := make([]string, 0, len(cell.Paras))
		for _, p := range cell.Paras {
			if t := extractParaText(p); t != "" {
				parts = append(parts, t)
			}
		}
		cells = append(cells, strings.Join(parts, "\n"))
	}
	return cells
}

func extractParaText(para docxPara) string {
	var b strings.Builder
	for _, run := range para.Runs {
		for _, t := range run.Text {
			b.WriteString(t.Content)
		}
	}
	return b.String()
}
