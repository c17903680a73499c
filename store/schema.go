package store

// schemaSQL is the base DDL (migration version 1).
const schemaSQL = `
-- Named datasets with hash-based change detection
CREATE TABLE IF NOT EXISTS datasets (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL CHECK (kind IN ('golden', 'actual')),
    source TEXT NOT NULL DEFAULT '',
    content_hash TEXT NOT NULL,
    record_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per loaded record, fields kept as a JSON object
CREATE TABLE IF NOT EXISTS dataset_records (
    dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    fields JSON NOT NULL,
    PRIMARY KEY (dataset_id, position)
);

CREATE INDEX IF NOT EXISTS idx_datasets_kind ON datasets(kind);
`
