package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/GuiaBolso/darwin"
	_ "github.com/mattn/go-sqlite3"
)

// ApplicationID is the SQLite application_id for license agent databases.
// "LICA" in ASCII: L=0x4C, I=0x49, C=0x43, A=0x41
const ApplicationID = 0x4C494341

// ErrInvalidDatabase is returned when the database is not a license agent database.
var ErrInvalidDatabase = errors.New("not a valid 'licenseagent' database")

// defineMigrations returns the schema steps in ascending version order.
// Comments must only appear after sql on a line (they are stripped before the checksum).
// *NEVER* change/remove a step once released; darwin stores a checksum of each script.
func defineMigrations() []darwin.Migration {
	return []darwin.Migration{
		{Version: 1.00, Description: "Set application_id", Script: `
		PRAGMA application_id = 0x4C494341;`},

		// a single row; the CHECK keeps a second install id from ever being written
		{Version: 1.01, Description: "Create Table 'installation'", Script: `
		CREATE TABLE IF NOT EXISTS installation (
			installation_id INTEGER PRIMARY KEY CHECK (installation_id = 1),
			install_uuid VARCHAR(36) NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		);`},

		// payload and signature are the bytes exactly as the activation service sent them
		{Version: 1.02, Description: "Create Table 'license_key'", Script: `
		CREATE TABLE IF NOT EXISTS license_key (
			product_id INTEGER NOT NULL,
			license_key VARCHAR(255) NOT NULL,
			machine_code VARCHAR(255) NOT NULL DEFAULT '',
			payload BLOB NOT NULL,
			signature BLOB NOT NULL,
			sign_date INTEGER NOT NULL,
			expires INTEGER NOT NULL,
			activated_at INTEGER NOT NULL,
			CONSTRAINT pk_license_key PRIMARY KEY (product_id, license_key)
		);`},

		{Version: 1.03, Description: "Create Index 'idx_license_key_expires'", Script: `
		CREATE INDEX IF NOT EXISTS idx_license_key_expires ON license_key (expires ASC);`},
	}
}

// changes returns a user-friendly display of database version changes
func changes(v1, v2 float64) string {
	if v1 != v2 {
		return fmt.Sprintf("DB Version: %.2f (migrated from %.2f to %.2f)", v2, v1, v2)
	}
	return fmt.Sprintf("DB Version: %.2f", v1)
}

// currentVersion reads from migration table to get the latest version and number of steps applied
func currentVersion(db *sql.DB) (count int, ver float64, err error) {
	// might not have any migrations yet...
	s := `select count(*) as n from sqlite_master where tbl_name = 'darwin_migrations';`
	err = db.QueryRow(s).Scan(&count)
	if err != nil || count == 0 {
		return 0, 0, err
	}

	s = `select count(*) as n, max(version) as ver from darwin_migrations;`
	err = db.QueryRow(s).Scan(&count, &ver)
	return count, ver, err
}

// minifiedMigrations returns our migrations with minified scripts so comments or formatting changes
// will not generate a new checksum
func minifiedMigrations() []darwin.Migration {
	migrations := defineMigrations()
	for i := range migrations {
		migrations[i].Script = minify(migrations[i].Script)
	}
	return migrations
}

// minify simplifies the script to keep certain changes (spaces, tabs, case and comments) from
// creating a new checksum
func minify(script string) string {
	b := strings.Builder{}
	s := strings.ToLower(strings.ReplaceAll(script, "/*", "--"))
	lines := strings.Split(s, "\n")
	for _, line := range lines {
		if i := strings.Index(line, "--"); i != -1 {
			line = line[0:i]
		}
		b.WriteString(strings.TrimSpace(line) + "\n")
	}
	result := strings.TrimSpace(strings.ReplaceAll(b.String(), "\t", " "))
	before := 0
	for len(result) != before {
		before = len(result)
		result = strings.ReplaceAll(result, "  ", " ")
	}
	return strings.TrimSpace(result)
}

// progress returns the steps attempted during this migration
func progress(ch <-chan darwin.MigrationInfo) string {
	var b strings.Builder

	for info := range ch {
		_, _ = fmt.Fprintf(&b, "v%.2f: \"%s\" (%s) Error: %v\n",
			info.Migration.Version, info.Migration.Description, info.Status.String(), info.Error)
	}
	return b.String()
}

// VerifyApplicationID rejects databases owned by another application. A fresh
// database (application_id 0, no tables) is accepted.
func VerifyApplicationID(db *sql.DB) error {
	var appID int
	if err := db.QueryRow("PRAGMA application_id;").Scan(&appID); err != nil {
		return fmt.Errorf("read application_id: %w", err)
	}

	// Accept our application ID
	if appID == ApplicationID {
		return nil
	}

	// Reject non-zero application IDs that aren't ours
	if appID != 0 {
		return fmt.Errorf("%w (application_id 0x%X)", ErrInvalidDatabase, appID)
	}

	// appID is 0 - only accept if database is empty (no user tables)
	var tableCount int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check tables: %w", err)
	}
	if tableCount > 0 {
		return fmt.Errorf("%w (has tables but no application_id)", ErrInvalidDatabase)
	}

	return nil
}

// RunMigrations brings an already-open database up to the current schema.
func RunMigrations(db *sql.DB) error {
	if err := VerifyApplicationID(db); err != nil {
		return err
	}

	count, v1, err := currentVersion(db)
	if err != nil {
		return err
	}

	migrations := minifiedMigrations()
	if count == len(migrations) && v1 == migrations[count-1].Version {
		log.Printf("Database version %.2f is current, no migrations needed", v1)
		return nil // already up to date
	}

	// setup for the migrations
	driver := darwin.NewGenericDriver(db, darwin.SqliteDialect{})
	infoChan := make(chan darwin.MigrationInfo, len(migrations))
	d := darwin.New(driver, migrations, infoChan)

	// perform the migrations
	var v2 float64
	if err := d.Migrate(); err != nil {
		close(infoChan)
		_, v2, _ = currentVersion(db)
		prog := progress(infoChan)
		log.Printf("migration (was v%.2f now v%.2f): %v (%s)", v1, v2, err, prog)
		return fmt.Errorf("migration error: %w\n%s", err, prog)
	}
	close(infoChan)

	_, v2, err = currentVersion(db)
	if err != nil {
		return err
	}

	log.Print(changes(v1, v2))
	return nil
}
