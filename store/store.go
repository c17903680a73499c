package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a named dataset does not exist.
var ErrNotFound = errors.New("store: dataset not found")

// Dataset kinds.
const (
	KindGolden = "golden"
	KindActual = "actual"
)

// ValidKind reports whether kind is a known dataset kind.
func ValidKind(kind string) bool {
	return kind == KindGolden || kind == KindActual
}

// Dataset represents a row in the datasets table.
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
}

// Stats holds row counts for the library.
type Stats struct {
	Datasets       int `json:"datasets"`
	GoldenDatasets int `json:"golden_datasets"`
	ActualDatasets int `json:"actual_datasets"`
	Records        int `json:"records"`
}

// Store wraps the SQLite dataset library.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path, creates the
// schema and applies pending migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Dataset operations ---

// UpsertDataset inserts or replaces a dataset by name together with all of
// its records, in one transaction. RecordCount is taken from records.
// Returns the dataset ID.
func (s *Store) UpsertDataset(ctx context.Context, ds Dataset, records []map[string]string) (int64, error) {
	if !ValidKind(ds.Kind) {
		return 0, fmt.Errorf("invalid dataset kind %q", ds.Kind)
	}

	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO datasets (name, kind, source, description, content_hash, record_count)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				kind = excluded.kind,
				source = excluded.source,
				description = excluded.description,
				content_hash = excluded.content_hash,
				record_count = excluded.record_count,
				updated_at = CURRENT_TIMESTAMP
		`, ds.Name, ds.Kind, ds.Source, ds.Description, ds.ContentHash, len(records))
		if err != nil {
			return fmt.Errorf("upserting dataset: %w", err)
		}

		// LastInsertId is unreliable when the upsert took the UPDATE path.
		if err := tx.QueryRowContext(ctx, "SELECT id FROM datasets WHERE name = ?", ds.Name).Scan(&id); err != nil {
			return fmt.Errorf("reading dataset id: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM dataset_records WHERE dataset_id = ?", id); err != nil {
			return fmt.Errorf("clearing records: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, "INSERT INTO dataset_records (dataset_id, position, fields) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, rec := range records {
			fields, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encoding record %d: %w", i, err)
			}
			if _, err := stmt.ExecContext(ctx, id, i, string(fields)); err != nil {
				return fmt.Errorf("inserting record %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

const datasetColumns = `id, name, kind, source, description, content_hash, record_count, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(row scanner) (*Dataset, error) {
	d := &Dataset{}
	if err := row.Scan(&d.ID, &d.Name, &d.Kind, &d.Source, &d.Description,
		&d.ContentHash, &d.RecordCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return d, nil
}

// GetDataset retrieves a dataset by name.
func (s *Store) GetDataset(ctx context.Context, name string) (*Dataset, error) {
	d, err := scanDataset(s.db.QueryRowContext(ctx,
		"SELECT "+datasetColumns+" FROM datasets WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDatasets returns all datasets ordered by name.
func (s *Store) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+datasetColumns+" FROM datasets ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// DatasetRecords returns the records of a dataset in import order.
func (s *Store) DatasetRecords(ctx context.Context, datasetID int64) ([]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT fields FROM dataset_records WHERE dataset_id = ? ORDER BY position", datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]map[string]string, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		rec := make(map[string]string)
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset and its records.
func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM datasets WHERE name = ?", name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Stats returns dataset and record counts.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM datasets", &stats.Datasets},
		{"SELECT COUNT(*) FROM datasets WHERE kind = 'golden'", &stats.GoldenDatasets},
		{"SELECT COUNT(*) FROM datasets WHERE kind = 'actual'", &stats.ActualDatasets},
		{"SELECT COUNT(*) FROM dataset_records", &stats.Records},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
