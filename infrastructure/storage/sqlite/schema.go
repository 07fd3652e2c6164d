package sqlite

import (
	"database/sql"
	"errors"
)

const schema = `
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		version TEXT NOT NULL,
		version_number INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		published_at INTEGER,
		deleted_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_policies_status ON policies(status);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS approval_requests (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL REFERENCES policies(id),
		approver_id TEXT NOT NULL,
		status TEXT NOT NULL,
		sequence_order INTEGER NOT NULL,
		comments TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		approved_at INTEGER,
		UNIQUE (policy_id, approver_id)
	);
	CREATE INDEX IF NOT EXISTS idx_approval_requests_approver ON approval_requests(approver_id);
	CREATE INDEX IF NOT EXISTS idx_approval_requests_status ON approval_requests(status);

	CREATE TABLE IF NOT EXISTS policy_versions (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL REFERENCES policies(id),
		version TEXT NOT NULL,
		version_number INTEGER NOT NULL,
		content TEXT NOT NULL,
		change_summary TEXT,
		created_by TEXT,
		created_at INTEGER NOT NULL,
		UNIQUE (policy_id, version_number)
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL,
		type TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		data BLOB NOT NULL,
		UNIQUE (policy_id, sequence)
	);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
`

// Migrate creates the tables if they don't exist.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}
