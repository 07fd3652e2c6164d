package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMigrationFailed indicates the schema could not be created.
var ErrMigrationFailed = errors.New("postgres: migration failed")

const schemaTemplate = `
	CREATE SCHEMA IF NOT EXISTS {{schema}};

	CREATE TABLE IF NOT EXISTS {{schema}}.policies (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		version TEXT NOT NULL,
		version_number INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ,
		deleted_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_policies_status ON {{schema}}.policies(status);

	CREATE TABLE IF NOT EXISTS {{schema}}.users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS {{schema}}.approval_requests (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL REFERENCES {{schema}}.policies(id),
		approver_id TEXT NOT NULL,
		status TEXT NOT NULL,
		sequence_order INTEGER NOT NULL,
		comments TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		approved_at TIMESTAMPTZ,
		UNIQUE (policy_id, approver_id)
	);
	CREATE INDEX IF NOT EXISTS idx_approval_requests_approver ON {{schema}}.approval_requests(approver_id);

	CREATE TABLE IF NOT EXISTS {{schema}}.policy_versions (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL REFERENCES {{schema}}.policies(id),
		version TEXT NOT NULL,
		version_number INTEGER NOT NULL,
		content TEXT NOT NULL,
		change_summary TEXT,
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (policy_id, version_number)
	);

	CREATE TABLE IF NOT EXISTS {{schema}}.events (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL,
		type TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL,
		sequence BIGINT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		UNIQUE (policy_id, sequence)
	);
`

// Migrate creates the schema and tables if they don't exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	ddl := strings.ReplaceAll(schemaTemplate, "{{schema}}", quoteSchema(schema))
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

func quoteSchema(schema string) string {
	if schema == "" {
		schema = "public"
	}
	return pgx.Identifier{schema}.Sanitize()
}

// table returns the quoted, schema-qualified name of a table.
func table(schema, name string) string {
	return quoteSchema(schema) + "." + pgx.Identifier{name}.Sanitize()
}
