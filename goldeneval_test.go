//go:build cgo

package goldeneval

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brunobiangulo/goldeneval/eval"
)

func newTestEngine(t *testing.T) Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "library.db")
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const goldenJSON = `[
  {"question": "What is the capital of France?", "expected_answer": "Paris"},
  {"question": "Who wrote Hamlet?", "expected_answer": "William Shakespeare"},
  {"question": "Largest planet?", "expected_answer": "Jupiter"}
]`

const actualCSV = `question,actual_answer
what is the capital of france?,Paris
Who wrote Hamlet?,Shakespeare
`

func TestEvaluateFiles(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	golden := writeTestFile(t, dir, "golden.json", goldenJSON)
	actual := writeTestFile(t, dir, "run.csv", actualCSV)

	report, err := e.EvaluateFiles(context.Background(), golden, actual)
	if err != nil {
		t.Fatalf("EvaluateFiles: %v", err)
	}

	if report.GoldenName != "golden.json" || report.ActualName != "run.csv" {
		t.Errorf("names = (%q, %q)", report.GoldenName, report.ActualName)
	}
	if report.TotalQuestions != 3 {
		t.Fatalf("TotalQuestions = %d, want 3", report.TotalQuestions)
	}

	got := report.Results[1]
	if got.ExactMatch || math.Abs(got.BLEUScore-100*math.Exp(-1)) > 0.01 || got.TokenOverlap != 50 {
		t.Errorf("Hamlet record = %+v", got.EvaluationRecord)
	}
	if report.Results[2].ActualAnswer != "" {
		t.Errorf("unmatched question has answer %q", report.Results[2].ActualAnswer)
	}
	if !approx(report.Summary.ExactMatch, 100.0/3) || report.Summary.Accuracy != report.Summary.ExactMatch {
		t.Errorf("summary = %+v", report.Summary)
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func TestEvaluateWithOptions(t *testing.T) {
	e := newTestEngine(t)
	golden := []eval.RawRecord{{"question": "Q", "expected_answer": "A"}}
	actual := []eval.RawRecord{{"question": "Q", "actual_answer": "A"}}

	report, err := e.Evaluate(context.Background(), golden, actual, WithNames("g", "a"), WithWorkers(3))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.GoldenName != "g" || report.ActualName != "a" {
		t.Errorf("names = (%q, %q)", report.GoldenName, report.ActualName)
	}
	if report.Grade != eval.GradeExcellent {
		t.Errorf("Grade = %q, want excellent", report.Grade)
	}
}

func TestEvaluateFilesErrors(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	golden := writeTestFile(t, dir, "golden.json", goldenJSON)
	broken := writeTestFile(t, dir, "broken.json", `[{"question": `)
	unknown := writeTestFile(t, dir, "notes.odt", "x")

	if _, err := e.EvaluateFiles(context.Background(), golden, broken); !errors.Is(err, ErrParsingFailed) {
		t.Errorf("broken JSON: error = %v, want ErrParsingFailed", err)
	}
	if _, err := e.EvaluateFiles(context.Background(), unknown, golden); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("odt: error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestImportAndEvaluateDataset(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	path := writeTestFile(t, t.TempDir(), "golden.json", goldenJSON)

	ds, err := e.ImportDataset(ctx, "geo", "golden", path, WithDescription("trivia"))
	if err != nil {
		t.Fatalf("ImportDataset: %v", err)
	}
	if ds.Unchanged || ds.RecordCount != 3 || ds.Description != "trivia" || ds.Source != path {
		t.Errorf("unexpected dataset %+v", ds)
	}

	again, err := e.ImportDataset(ctx, "geo", "golden", path)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if !again.Unchanged || again.ID != ds.ID {
		t.Errorf("re-import should be a no-op, got %+v", again)
	}

	forced, err := e.ImportDataset(ctx, "geo", "golden", path, WithForceReimport())
	if err != nil {
		t.Fatalf("forced import: %v", err)
	}
	if forced.Unchanged {
		t.Error("forced import reported unchanged")
	}

	actual := []eval.RawRecord{{"question": "Largest planet?", "answer": "Jupiter"}}
	report, err := e.EvaluateDataset(ctx, "geo", actual, WithNames("geo", "adhoc"))
	if err != nil {
		t.Fatalf("EvaluateDataset: %v", err)
	}
	if report.GoldenName != "geo" || report.ActualName != "adhoc" {
		t.Errorf("names = (%q, %q)", report.GoldenName, report.ActualName)
	}
	if report.Analytics.ExactMatches != 1 || report.Analytics.Unmatched != 2 {
		t.Errorf("analytics = %+v", report.Analytics)
	}
}

func TestImportRecords(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	records := []eval.RawRecord{
		{"question": "Q1", "actual_answer": "A1"},
		{"question": "Q2", "actual_answer": "A2"},
	}

	ds, err := e.ImportRecords(ctx, "run-1", "actual", records)
	if err != nil {
		t.Fatalf("ImportRecords: %v", err)
	}
	if ds.Source != "inline" || ds.Kind != "actual" || ds.RecordCount != 2 {
		t.Errorf("unexpected dataset %+v", ds)
	}

	got, err := e.DatasetRecords(ctx, "run-1")
	if err != nil {
		t.Fatalf("DatasetRecords: %v", err)
	}
	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	again, err := e.ImportRecords(ctx, "run-1", "actual", records)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Unchanged {
		t.Error("identical records should be unchanged")
	}

	// Evaluating against an actual dataset is refused.
	if _, err := e.EvaluateDataset(ctx, "run-1", records); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("EvaluateDataset(actual) = %v, want ErrInvalidKind", err)
	}
}

func TestImportErrors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	records := []eval.RawRecord{{"question": "Q", "expected_answer": "A"}}

	if _, err := e.ImportRecords(ctx, "x", "reference", records); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("bad kind: %v, want ErrInvalidKind", err)
	}
	if _, err := e.ImportRecords(ctx, "x", "golden", nil); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("empty: %v, want ErrEmptyDataset", err)
	}
	if _, err := e.ImportRecords(ctx, "x", "golden", records); err != nil {
		t.Fatal(err)
	}
	changed := []eval.RawRecord{{"question": "Q", "actual_answer": "B"}}
	if _, err := e.ImportRecords(ctx, "x", "actual", changed); !errors.Is(err, ErrDatasetExists) {
		t.Errorf("kind change: %v, want ErrDatasetExists", err)
	}
	if _, err := e.ImportRecords(ctx, "x", "actual", changed, WithForceReimport()); err != nil {
		t.Errorf("forced kind change: %v", err)
	}
}

func TestDatasetLifecycle(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for _, name := range []string{"b", "a"} {
		if _, err := e.ImportRecords(ctx, name, "golden", []eval.RawRecord{{"question": name}}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := e.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	if len(list) != 2 || list[0].Name != "a" {
		t.Errorf("unexpected list %+v", list)
	}

	stats, err := e.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Datasets != 2 || stats.Records != 2 {
		t.Errorf("stats = %+v", stats)
	}

	if err := e.DeleteDataset(ctx, "a"); err != nil {
		t.Fatalf("DeleteDataset: %v", err)
	}
	if _, err := e.GetDataset(ctx, "a"); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("GetDataset after delete: %v, want ErrDatasetNotFound", err)
	}
	if err := e.DeleteDataset(ctx, "a"); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("second delete: %v, want ErrDatasetNotFound", err)
	}
	if _, err := e.EvaluateDataset(ctx, "missing", nil); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("EvaluateDataset(missing): %v, want ErrDatasetNotFound", err)
	}
}

func TestClosedEngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "library.db")
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := e.ListDatasets(context.Background()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("ListDatasets after close: %v, want ErrStoreClosed", err)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = -1
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New: %v, want ErrInvalidConfig", err)
	}
}
