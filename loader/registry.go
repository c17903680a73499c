package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brunobiangulo/goldeneval/eval"
)

// Registry maps file extensions (without the dot, lower-case) to loaders.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry returns a registry with every built-in loader registered.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]Loader)}

	for _, l := range []Loader{&JSONLoader{}, &CSVLoader{}, &XLSXLoader{}, &TranscriptLoader{}, &PDFLoader{}, &DOCXLoader{}} {
		for _, f := range l.SupportedFormats() {
			r.loaders[f] = l
		}
	}
	return r
}

func (r *Registry) Get(format string) (Loader, error) {
	l, ok := r.loaders[normalizeFormat(format)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return l, nil
}

func (r *Registry) Register(format string, l Loader) {
	r.loaders[normalizeFormat(format)] = l
}

// SupportedFormats lists the registered extensions in sorted order.
func (r *Registry) SupportedFormats() []string {
	formats := make([]string, 0, len(r.loaders))
	for f := range r.loaders {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// LoadFile picks a loader by the file extension of path and runs it.
func (r *Registry) LoadFile(ctx context.Context, path string) ([]eval.RawRecord, error) {
	format := FormatOf(path)
	l, err := r.Get(format)
	if err != nil {
		return nil, err
	}

	records, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	slog.Debug("loader: file loaded", "path", path, "format", format, "records", len(records))
	return records, nil
}

// FormatOf returns the lower-case extension of path without the dot.
func FormatOf(path string) string {
	return normalizeFormat(filepath.Ext(path))
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(format, "."))
}
