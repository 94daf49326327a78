package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the ledger tables. Column types are chosen so the same
// statements run on SQLite and PostgreSQL. Timestamps are Unix nanoseconds
// and latency is stored in nanoseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS usage_records (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    user_name TEXT NOT NULL,
    label_user TEXT NOT NULL,
    status TEXT NOT NULL,
    status_code INTEGER NOT NULL,

    prompt_tokens INTEGER NOT NULL,
    completion_tokens INTEGER NOT NULL,
    total_tokens INTEGER NOT NULL,

    prompt_cost DOUBLE PRECISION NOT NULL,
    completion_cost DOUBLE PRECISION NOT NULL,
    total_cost DOUBLE PRECISION NOT NULL,

    latency_ns BIGINT NOT NULL,
    error TEXT,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_records_created_at ON usage_records(created_at);
CREATE INDEX IF NOT EXISTS idx_usage_records_user_name ON usage_records(user_name);
CREATE INDEX IF NOT EXISTS idx_usage_records_status ON usage_records(status);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT (version) DO NOTHING
`

// GetSchemaVersion retrieves the newest applied schema version.
const GetSchemaVersion = `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`

const insertRecord = `
INSERT INTO usage_records (
    id, request_id, user_name, label_user, status, status_code,
    prompt_tokens, completion_tokens, total_tokens,
    prompt_cost, completion_cost, total_cost,
    latency_ns, error, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectRecords = `
SELECT id, request_id, user_name, label_user, status, status_code,
    prompt_tokens, completion_tokens, total_tokens,
    prompt_cost, completion_cost, total_cost,
    latency_ns, error, created_at
FROM usage_records`

const summarizeByUser = `
SELECT user_name,
    COUNT(*),
    SUM(CASE WHEN status <> ? THEN 1 ELSE 0 END),
    COALESCE(SUM(prompt_tokens), 0),
    COALESCE(SUM(completion_tokens), 0),
    COALESCE(SUM(total_tokens), 0),
    COALESCE(SUM(total_cost), 0)
FROM usage_records
WHERE created_at >= ?
GROUP BY user_name
ORDER BY SUM(total_cost) DESC, user_name ASC`

const pruneRecords = `DELETE FROM usage_records WHERE created_at < ?`

const countRecords = `SELECT COUNT(*) FROM usage_records`
