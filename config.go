package goldeneval

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/goldeneval/eval"
)

// Config holds all configuration for the goldeneval engine.
type Config struct {
	// DBPath is the full path to the SQLite dataset library.
	// If empty, defaults to ~/.goldeneval/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "goldeneval".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.goldeneval/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Workers bounds how many questions are scored concurrently. 0 or 1
	// scores sequentially.
	Workers int `json:"workers" yaml:"workers"`

	// Thresholds label questions (badge, status) and runs (grade).
	Thresholds eval.Thresholds `json:"thresholds" yaml:"thresholds"`

	// MaxUploadBytes caps request bodies accepted by the HTTP service.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// DefaultConfig returns a Config with sensible defaults.
// The dataset library is stored in ~/.goldeneval/goldeneval.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:         "goldeneval",
		StorageDir:     "home",
		Workers:        4,
		Thresholds:     eval.DefaultThresholds(),
		MaxUploadBytes: 32 << 20,
	}
}

// LoadConfig reads a YAML (or JSON) config file over DefaultConfig and
// validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from GOLDENEVAL_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("GOLDENEVAL_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := getenv("GOLDENEVAL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: GOLDENEVAL_WORKERS=%q", ErrInvalidConfig, v)
		}
		c.Workers = n
	}
	return c.Validate()
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("%w: max_upload_bytes must be >= 0", ErrInvalidConfig)
	}
	switch c.StorageDir {
	case "", "home", "local", "cwd":
	default:
		return fmt.Errorf("%w: unknown storage_dir %q", ErrInvalidConfig, c.StorageDir)
	}

	t := c.Thresholds
	for name, v := range map[string]float64{
		"high_score":   t.HighScore,
		"medium_score": t.MediumScore,
		"partial_bleu": t.PartialBLEU,
		"excellent_f1": t.ExcellentF1,
		"good_f1":      t.GoodF1,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: thresholds.%s must be within [0,100], got %v", ErrInvalidConfig, name, v)
		}
	}
	if t.MediumScore > t.HighScore {
		return fmt.Errorf("%w: thresholds.medium_score exceeds high_score", ErrInvalidConfig)
	}
	if t.GoodF1 > t.ExcellentF1 {
		return fmt.Errorf("%w: thresholds.good_f1 exceeds excellent_f1", ErrInvalidConfig)
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "goldeneval"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db"
		}
		return filepath.Join(home, ".goldeneval", name+".db")
	}
}
