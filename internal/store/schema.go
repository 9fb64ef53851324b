package store

const schema = `
CREATE TABLE IF NOT EXISTS operations (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    app_id TEXT NOT NULL,
    scope TEXT NOT NULL,
    command TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    status TEXT NOT NULL,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_operations_app ON operations(app_id);
CREATE INDEX IF NOT EXISTS idx_operations_started ON operations(started_at);
`
