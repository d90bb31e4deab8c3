package testutil

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"winsbygroup.com/licenseagent/internal/sqlite"
)

// NewTestDB returns a migrated agent database in a temp directory.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return NewTestDBAt(t, filepath.Join(t.TempDir(), "agent.db"))
}

// NewTestDBAt opens (or creates) a migrated agent database at dbPath and
// closes it when the test ends.
func NewTestDBAt(t *testing.T, dbPath string) *sqlx.DB {
	t.Helper()

	// DSN pragmas apply to every pooled connection
	db, err := sqlx.Open("sqlite3", "file:"+dbPath+"?_busy_timeout=5000&_journal_mode=DELETE")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := sqlite.RunMigrations(db.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := sqlite.VerifyApplicationID(db.DB); err != nil {
		t.Fatalf("verify application id: %v", err)
	}

	return db
}
