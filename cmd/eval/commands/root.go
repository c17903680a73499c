package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/brunobiangulo/goldeneval"
)

var (
	configPath string
	dbPath     string
	verbose    bool
)

// NewRootCmd creates the goldeneval command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goldeneval",
		Short: "Score answers against a golden dataset",
		Long: `goldeneval compares a system's answers with a golden dataset of
question/expected-answer pairs and reports exact match, BLEU, token overlap
and precision/recall/F1 per question and for the whole run.

Datasets can be JSON, CSV, Excel, plain-text/markdown transcripts or PDF.
Golden datasets can be imported into a local SQLite library and reused.

Examples:
  goldeneval run --golden golden.json --actual answers.csv
  goldeneval datasets import geography golden.xlsx
  goldeneval run --golden-dataset geography --actual answers.csv --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			setupLogging(cmd.ErrOrStderr(), verbose)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the dataset library (overrides config)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewDatasetsCmd())
	cmd.AddCommand(NewFormatsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadConfig resolves configuration: file (or defaults), then GOLDENEVAL_*
// environment variables, then the --db flag.
func loadConfig() (goldeneval.Config, error) {
	cfg := goldeneval.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = goldeneval.LoadConfig(configPath)
		if err != nil {
			return cfg, fmt.Errorf("loading config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func openEngine() (goldeneval.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	e, err := goldeneval.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing engine: %w", err)
	}
	return e, nil
}
