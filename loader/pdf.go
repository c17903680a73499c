package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/brunobiangulo/goldeneval/eval"
)

// PDFLoader extracts the text of every page and parses it as a Q/A
// transcript.
type PDFLoader struct{}

func (l *PDFLoader) SupportedFormats() []string { return []string{"pdf"} }

func (l *PDFLoader) Load(ctx context.Context, path string) ([]eval.RawRecord, error) {
	text, err := extractPDFText(ctx, path)
	if err != nil {
		return nil, err
	}
	return ParseTranscript(text), nil
}

func extractPDFText(ctx context.Context, path string) (text string, err error) {
	// The pdf package panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: reading PDF: %v", ErrParsingFailed, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening PDF: %v", ErrParsingFailed, err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("loader: skipping unreadable PDF page", "path", path, "page", i, "error", err)
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}

	return b.String(), nil
}
