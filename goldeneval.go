package goldeneval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/brunobiangulo/goldeneval/eval"
	"github.com/brunobiangulo/goldeneval/loader"
	"github.com/brunobiangulo/goldeneval/store"
)

// Engine is the main entry point: it loads datasets, keeps the dataset
// library and scores actual answers against golden ones.
type Engine interface {
	// Evaluate scores actual records against golden records.
	Evaluate(ctx context.Context, golden, actual []eval.RawRecord, opts ...EvalOption) (*eval.Report, error)

	// EvaluateFiles loads both datasets from files and scores them.
	EvaluateFiles(ctx context.Context, goldenPath, actualPath string, opts ...EvalOption) (*eval.Report, error)

	// EvaluateDataset scores actual records against a stored golden dataset.
	EvaluateDataset(ctx context.Context, goldenName string, actual []eval.RawRecord, opts ...EvalOption) (*eval.Report, error)

	// ImportDataset loads a file into the library under name. Skips the
	// write if the file hash is unchanged.
	ImportDataset(ctx context.Context, name, kind, path string, opts ...ImportOption) (*Dataset, error)

	// ImportRecords stores already-loaded records under name.
	ImportRecords(ctx context.Context, name, kind string, records []eval.RawRecord, opts ...ImportOption) (*Dataset, error)

	// ListDatasets returns all stored datasets.
	ListDatasets(ctx context.Context) ([]Dataset, error)

	// GetDataset returns one stored dataset.
	GetDataset(ctx context.Context, name string) (*Dataset, error)

	// DatasetRecords returns the records of a stored dataset.
	DatasetRecords(ctx context.Context, name string) ([]eval.RawRecord, error)

	// DeleteDataset removes a stored dataset.
	DeleteDataset(ctx context.Context, name string) error

	// Stats returns library counts.
	Stats(ctx context.Context) (*store.Stats, error)

	// LoadFile parses a dataset file without storing it.
	LoadFile(ctx context.Context, path string) ([]eval.RawRecord, error)

	// SupportedFormats lists the loadable file extensions.
	SupportedFormats() []string

	// Close cleanly shuts down the engine.
	Close() error
}

// Dataset describes a stored dataset.
type Dataset struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
	ContentHash string `json:"content_hash"`
	RecordCount int    `json:"record_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`

	// Unchanged is set by imports that were skipped because the content
	// hash matched the stored dataset.
	Unchanged bool `json:"unchanged,omitempty"`
}

func datasetFromStore(d *store.Dataset) *Dataset {
	return &Dataset{
		ID:          d.ID,
		Name:        d.Name,
		Kind:        d.Kind,
		Source:      d.Source,
		Description: d.Description,
		ContentHash: d.ContentHash,
		RecordCount: d.RecordCount,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// EvalOption configures an evaluation run.
type EvalOption func(*evalOptions)

type evalOptions struct {
	goldenName string
	actualName string
	workers    int
}

// WithNames labels the two sides of the report.
func WithNames(golden, actual string) EvalOption {
	return func(o *evalOptions) {
		o.goldenName = golden
		o.actualName = actual
	}
}

// WithWorkers overrides Config.Workers for this run.
func WithWorkers(n int) EvalOption {
	return func(o *evalOptions) { o.workers = n }
}

// ImportOption configures dataset imports.
type ImportOption func(*importOptions)

type importOptions struct {
	force       bool
	description string
}

// WithForceReimport rewrites the dataset even if its hash hasn't changed.
func WithForceReimport() ImportOption {
	return func(o *importOptions) { o.force = true }
}

// WithDescription attaches a free-text description to the dataset.
func WithDescription(s string) ImportOption {
	return func(o *importOptions) { o.description = s }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg     Config
	store   *store.Store
	loaders *loader.Registry
	closed  atomic.Bool
}

// New creates a new goldeneval engine with the given configuration.
func New(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbPath := cfg.resolveDBPath()
	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	slog.Debug("engine: store opened", "path", dbPath)

	return &engine{
		cfg:     cfg,
		store:   s,
		loaders: loader.NewRegistry(),
	}, nil
}

func (e *engine) checkOpen() error {
	if e.closed.Load() {
		return ErrStoreClosed
	}
	return nil
}

// Evaluate runs the scoring engine over two record sets.
func (e *engine) Evaluate(ctx context.Context, golden, actual []eval.RawRecord, opts ...EvalOption) (*eval.Report, error) {
	options := &evalOptions{workers: e.cfg.Workers}
	for _, o := range opts {
		o(options)
	}

	ev := eval.NewEvaluator()
	ev.SetWorkers(options.workers)
	ev.SetThresholds(e.cfg.Thresholds)

	report, err := ev.Run(ctx, golden, actual)
	if err != nil {
		return nil, err
	}
	report.GoldenName = options.goldenName
	report.ActualName = options.actualName
	return report, nil
}

// EvaluateFiles loads both files through the loader registry and evaluates.
// Report names default to the file base names.
func (e *engine) EvaluateFiles(ctx context.Context, goldenPath, actualPath string, opts ...EvalOption) (*eval.Report, error) {
	golden, err := e.LoadFile(ctx, goldenPath)
	if err != nil {
		return nil, fmt.Errorf("loading golden dataset: %w", err)
	}
	actual, err := e.LoadFile(ctx, actualPath)
	if err != nil {
		return nil, fmt.Errorf("loading actual responses: %w", err)
	}

	opts = append([]EvalOption{WithNames(filepath.Base(goldenPath), filepath.Base(actualPath))}, opts...)
	return e.Evaluate(ctx, golden, actual, opts...)
}

// EvaluateDataset evaluates against a stored golden dataset.
func (e *engine) EvaluateDataset(ctx context.Context, goldenName string, actual []eval.RawRecord, opts ...EvalOption) (*eval.Report, error) {
	ds, err := e.GetDataset(ctx, goldenName)
	if err != nil {
		return nil, err
	}
	if ds.Kind != store.KindGolden {
		return nil, fmt.Errorf("%w: %s is an %s dataset", ErrInvalidKind, goldenName, ds.Kind)
	}

	golden, err := e.DatasetRecords(ctx, goldenName)
	if err != nil {
		return nil, err
	}

	opts = append([]EvalOption{WithNames(goldenName, "")}, opts...)
	return e.Evaluate(ctx, golden, actual, opts...)
}

// ImportDataset loads path and stores it under name.
func (e *engine) ImportDataset(ctx context.Context, name, kind, path string, opts ...ImportOption) (*Dataset, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	options := &importOptions{}
	for _, o := range opts {
		o(options)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	hash, err := fileHash(absPath)
	if err != nil {
		return nil, fmt.Errorf("hashing file: %w", err)
	}

	if existing, ok, err := e.unchanged(ctx, name, kind, hash, options); err != nil || ok {
		return existing, err
	}

	records, err := e.LoadFile(ctx, absPath)
	if err != nil {
		return nil, err
	}

	return e.save(ctx, store.Dataset{
		Name:        name,
		Kind:        kind,
		Source:      absPath,
		Description: options.description,
		ContentHash: hash,
	}, records)
}

// ImportRecords stores records under name. The content hash is computed
// over the records themselves.
func (e *engine) ImportRecords(ctx context.Context, name, kind string, records []eval.RawRecord, opts ...ImportOption) (*Dataset, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	options := &importOptions{}
	for _, o := range opts {
		o(options)
	}

	hash, err := recordsHash(records)
	if err != nil {
		return nil, fmt.Errorf("hashing records: %w", err)
	}

	if existing, ok, err := e.unchanged(ctx, name, kind, hash, options); err != nil || ok {
		return existing, err
	}

	return e.save(ctx, store.Dataset{
		Name:        name,
		Kind:        kind,
		Source:      "inline",
		Description: options.description,
		ContentHash: hash,
	}, records)
}

// unchanged validates an import and reports whether the stored dataset
// already holds the same content.
func (e *engine) unchanged(ctx context.Context, name, kind, hash string, options *importOptions) (*Dataset, bool, error) {
	if name == "" {
		return nil, false, fmt.Errorf("%w: dataset name is required", ErrInvalidConfig)
	}
	if !store.ValidKind(kind) {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if options.force {
		return nil, false, nil
	}

	existing, err := e.store.GetDataset(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("looking up dataset: %w", err)
	}
	if existing.Kind != kind {
		return nil, false, fmt.Errorf("%w: %s is stored as %s", ErrDatasetExists, name, existing.Kind)
	}
	if existing.ContentHash != hash {
		return nil, false, nil
	}

	slog.Info("import: dataset unchanged", "name", name, "kind", kind, "records", existing.RecordCount)
	ds := datasetFromStore(existing)
	ds.Unchanged = true
	return ds, true, nil
}

func (e *engine) save(ctx context.Context, ds store.Dataset, records []eval.RawRecord) (*Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, ds.Name)
	}

	rows := make([]map[string]string, len(records))
	for i, r := range records {
		rows[i] = r
	}

	if _, err := e.store.UpsertDataset(ctx, ds, rows); err != nil {
		return nil, fmt.Errorf("storing dataset: %w", err)
	}

	slog.Info("import: dataset stored",
		"name", ds.Name, "kind", ds.Kind, "source", ds.Source, "records", len(records))

	return e.GetDataset(ctx, ds.Name)
}

// ListDatasets returns all stored datasets.
func (e *engine) ListDatasets(ctx context.Context) ([]Dataset, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	list, err := e.store.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Dataset, len(list))
	for i := range list {
		result[i] = *datasetFromStore(&list[i])
	}
	return result, nil
}

// GetDataset returns one stored dataset.
func (e *engine) GetDataset(ctx context.Context, name string) (*Dataset, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	d, err := e.store.GetDataset(ctx, name)
	if err != nil {
		return nil, translateStoreError(err, name)
	}
	return datasetFromStore(d), nil
}

// DatasetRecords returns the records of a stored dataset in import order.
func (e *engine) DatasetRecords(ctx context.Context, name string) ([]eval.RawRecord, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	d, err := e.store.GetDataset(ctx, name)
	if err != nil {
		return nil, translateStoreError(err, name)
	}

	rows, err := e.store.DatasetRecords(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	records := make([]eval.RawRecord, len(rows))
	for i, r := range rows {
		records[i] = r
	}
	return records, nil
}

// DeleteDataset removes a stored dataset.
func (e *engine) DeleteDataset(ctx context.Context, name string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if err := e.store.DeleteDataset(ctx, name); err != nil {
		return translateStoreError(err, name)
	}
	slog.Info("datasets: deleted", "name", name)
	return nil
}

// Stats returns library counts.
func (e *engine) Stats(ctx context.Context) (*store.Stats, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.store.Stats(ctx)
}

// LoadFile parses a dataset file.
func (e *engine) LoadFile(ctx context.Context, path string) ([]eval.RawRecord, error) {
	records, err := e.loaders.LoadFile(ctx, path)
	if err != nil {
		return nil, translateLoadError(err)
	}
	return records, nil
}

// SupportedFormats lists the loadable file extensions.
func (e *engine) SupportedFormats() []string {
	return e.loaders.SupportedFormats()
}

// Close shuts down the engine.
func (e *engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	return e.store.Close()
}

// translateStoreError maps store errors onto package sentinels.
func translateStoreError(err error, name string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	return err
}

// translateLoadError maps loader errors onto package sentinels while keeping
// the loader error in the chain.
func translateLoadError(err error) error {
	switch {
	case errors.Is(err, loader.ErrUnsupportedFormat):
		return fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	case errors.Is(err, loader.ErrParsingFailed):
		return fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}
	return err
}

// fileHash computes the SHA-256 hash of a file's content.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// recordsHash computes the SHA-256 hash of the records' canonical JSON.
func recordsHash(records []eval.RawRecord) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
