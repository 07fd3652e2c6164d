package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/infrastructure/storage/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.Open(sqlite.DefaultConfig(), sqlite.WithPath(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedPolicy(t *testing.T, db *sql.DB, title string) *policy.Policy {
	t.Helper()

	p := policy.New(title)
	if err := sqlite.NewPolicyStore(db).Save(context.Background(), p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return p
}
