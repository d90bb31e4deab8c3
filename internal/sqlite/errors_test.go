package sqlite_test

import (
	"errors"
	"fmt"
	"testing"

	"winsbygroup.com/licenseagent/internal/sqlite"
)

func TestConstraintOf(t *testing.T) {
	db := openMemory(t)
	if err := sqlite.RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO installation (installation_id, install_uuid, created_at) VALUES (1, 'a', 0);`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO license_key (product_id, license_key, payload, signature, sign_date, expires, activated_at)
		VALUES (1, 'K', x'00', x'00', 0, 0, 0);`); err != nil {
		t.Fatalf("insert license: %v", err)
	}

	tests := []struct {
		name string
		stmt string
		want sqlite.Constraint
	}{
		{"duplicate rowid", `INSERT INTO installation (installation_id, install_uuid, created_at) VALUES (1, 'b', 0);`, sqlite.UniqueConstraint},
		{"duplicate composite key", `INSERT INTO license_key (product_id, license_key, payload, signature, sign_date, expires, activated_at)
			VALUES (1, 'K', x'00', x'00', 0, 0, 0);`, sqlite.UniqueConstraint},
		{"second installation", `INSERT INTO installation (installation_id, install_uuid, created_at) VALUES (2, 'c', 0);`, sqlite.CheckConstraint},
		{"missing uuid", `INSERT INTO installation (installation_id, install_uuid, created_at) VALUES (1, NULL, 0);`, sqlite.NotNullConstraint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Exec(tt.stmt)
			if err == nil {
				t.Fatal("expected statement to fail")
			}
			wrapped := fmt.Errorf("insert: %w", err)
			if got := sqlite.ConstraintOf(wrapped); got != tt.want {
				t.Errorf("expected %v, got %v (%v)", tt.want, got, err)
			}
			if sqlite.IsUniqueConstraintError(wrapped) != (tt.want == sqlite.UniqueConstraint) {
				t.Errorf("IsUniqueConstraintError disagrees with %v", tt.want)
			}
		})
	}

	t.Run("foreign errors", func(t *testing.T) {
		if got := sqlite.ConstraintOf(errors.New("boom")); got != sqlite.NoConstraint {
			t.Errorf("expected none, got %v", got)
		}
		if got := sqlite.ConstraintOf(nil); got != sqlite.NoConstraint {
			t.Errorf("expected none for nil, got %v", got)
		}
		_, err := db.Exec(`SELECT * FROM no_such_table;`)
		if got := sqlite.ConstraintOf(err); got != sqlite.NoConstraint {
			t.Errorf("expected none for a non-constraint sqlite error, got %v", got)
		}
	})
}
