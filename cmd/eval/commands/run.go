package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/goldeneval"
	"github.com/brunobiangulo/goldeneval/eval"
)

// errBelowThreshold is returned when --fail-under is set and the run's F1
// falls below it.
var errBelowThreshold = errors.New("f1 below --fail-under")

var (
	runGolden        string
	runGoldenDataset string
	runActual        string
	runFormat        string
	runOutput        string
	runWorkers       int
	runFailUnder     float64
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score an answers file against a golden dataset",
		Long: `Score every golden question against the answers file and print a report.

The golden side is either a file (--golden) or a dataset previously stored
with "goldeneval datasets import" (--golden-dataset). Questions are matched
case-insensitively; golden questions without an answer are scored against
an empty answer.

Examples:
  goldeneval run --golden golden.json --actual answers.csv
  goldeneval run --golden-dataset geography --actual answers.xlsx --workers 8
  goldeneval run --golden golden.csv --actual answers.md --format json --output report.json
  goldeneval run --golden golden.json --actual answers.csv --fail-under 70`,
		Args: cobra.NoArgs,
		RunE: runRun,
	}

	cmd.Flags().StringVar(&runGolden, "golden", "", "Golden dataset file")
	cmd.Flags().StringVar(&runGoldenDataset, "golden-dataset", "", "Name of a stored golden dataset")
	cmd.Flags().StringVar(&runActual, "actual", "", "Actual answers file")
	cmd.Flags().StringVarP(&runFormat, "format", "f", "text", "Report format: text or json")
	cmd.Flags().StringVarP(&runOutput, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().IntVar(&runWorkers, "workers", 0, "Concurrent scoring workers (default from config)")
	cmd.Flags().Float64Var(&runFailUnder, "fail-under", 0, "Exit non-zero when the run F1 is below this value")

	cmd.MarkFlagsMutuallyExclusive("golden", "golden-dataset")
	cmd.MarkFlagsOneRequired("golden", "golden-dataset")
	_ = cmd.MarkFlagRequired("actual")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFormat != "text" && runFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", runFormat)
	}
	if runFailUnder < 0 || runFailUnder > 100 {
		return fmt.Errorf("--fail-under must be within [0,100], got %v", runFailUnder)
	}

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()

	var opts []goldeneval.EvalOption
	if cmd.Flags().Changed("workers") {
		if err := validatePositiveInt(runWorkers, "--workers"); err != nil {
			return err
		}
		opts = append(opts, goldeneval.WithWorkers(runWorkers))
	}

	var report *eval.Report
	if runGolden != "" {
		report, err = e.EvaluateFiles(ctx, runGolden, runActual, opts...)
	} else {
		var actual []eval.RawRecord
		actual, err = e.LoadFile(ctx, runActual)
		if err != nil {
			return fmt.Errorf("loading actual responses: %w", err)
		}
		opts = append(opts, goldeneval.WithNames(runGoldenDataset, filepath.Base(runActual)))
		report, err = e.EvaluateDataset(ctx, runGoldenDataset, actual, opts...)
	}
	if err != nil {
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), summaryLine(report))

	if runFailUnder > 0 && report.Summary.F1Score < runFailUnder {
		return fmt.Errorf("%w: %.2f < %.2f", errBelowThreshold, report.Summary.F1Score, runFailUnder)
	}
	return nil
}

func writeReport(stdout io.Writer, report *eval.Report) error {
	var data []byte
	switch runFormat {
	case "json":
		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		data = append(b, '\n')
	default:
		data = []byte(eval.FormatReport(report))
	}

	if runOutput == "" {
		_, err := stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(runOutput); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(runOutput, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func summaryLine(r *eval.Report) string {
	return fmt.Sprintf("%d questions: exact match %.2f, BLEU %.2f, F1 %.2f, grade %s (run %s)",
		r.TotalQuestions, r.Summary.ExactMatch, r.Summary.BLEUScore, r.Summary.F1Score, r.Grade, r.RunID)
}

func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}
