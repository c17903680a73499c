// Package loader turns dataset files into loosely-typed records for the
// scoring engine.
package loader

import (
	"context"
	"errors"

	"github.com/brunobiangulo/goldeneval/eval"
)

var (
	ErrUnsupportedFormat = errors.New("loader: unsupported file format")
	ErrParsingFailed     = errors.New("loader: parsing failed")
)

// Loader reads one dataset file format.
type Loader interface {
	Load(ctx context.Context, path string) ([]eval.RawRecord, error)
	SupportedFormats() []string
}
