// Package backup writes gzip-compressed SQL dumps of the agent database.
package backup

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

type Service struct {
	db     *sqlx.DB
	dbPath string
}

func NewService(db *sqlx.DB, dbPath string) *Service {
	return &Service{
		db:     db,
		dbPath: dbPath,
	}
}

// Result describes a completed backup.
type Result struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// Create dumps the database into dir, or a "backups" directory next to the
// database when dir is empty.
func (s *Service) Create(ctx context.Context, dir string) (*Result, error) {
	if dir == "" {
		dir = filepath.Join(filepath.Dir(s.dbPath), "backups")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	filename := time.Now().Format("2006-01-02_15.04.05") + "_licenseagent.sql.gz"
	path := filepath.Join(dir, filename)

	// VACUUM INTO gives a consistent snapshot without holding a read
	// transaction open for the whole dump
	snapshot := filepath.Join(dir, "snapshot.db")
	os.Remove(snapshot)
	defer os.Remove(snapshot)
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, snapshot); err != nil {
		return nil, fmt.Errorf("vacuum into snapshot: %w", err)
	}

	snap, err := sqlx.Open("sqlite3", "file:"+snapshot+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer snap.Close()

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := Dump(ctx, snap, gz); err != nil {
		os.Remove(path)
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat backup file: %w", err)
	}

	return &Result{
		Filename: filename,
		Path:     path,
		Size:     info.Size(),
	}, nil
}

// Dump writes the schema and rows of db as SQL that recreates it.
func Dump(ctx context.Context, db *sqlx.DB, out io.Writer) error {
	w := bufio.NewWriter(out)

	fmt.Fprintln(w, "-- License Agent Database Backup")
	fmt.Fprintf(w, "-- Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintln(w, "BEGIN TRANSACTION;")
	fmt.Fprintln(w)

	var schemas []schemaObject
	if err := db.SelectContext(ctx, &schemas, schemaSQL); err != nil {
		return fmt.Errorf("query schemas: %w", err)
	}
	for _, schema := range schemas {
		fmt.Fprintf(w, "%s;\n", schema.SQL)
	}
	fmt.Fprintln(w)

	var tables []string
	if err := db.SelectContext(ctx, &tables, tablesSQL); err != nil {
		return fmt.Errorf("query tables: %w", err)
	}
	for _, table := range tables {
		if err := dumpRows(ctx, db, table, w); err != nil {
			return fmt.Errorf("dump %s: %w", table, err)
		}
	}

	// application_id is not part of the schema text
	var appID int
	if err := db.GetContext(ctx, &appID, `PRAGMA application_id;`); err != nil {
		return fmt.Errorf("read application_id: %w", err)
	}
	fmt.Fprintf(w, "PRAGMA application_id = %d;\n", appID)
	fmt.Fprintln(w, "COMMIT;")

	return w.Flush()
}

type schemaObject struct {
	Type string `db:"type"`
	Name string `db:"name"`
	SQL  string `db:"sql"`
}

const schemaSQL = `
SELECT type, name, sql
FROM sqlite_master
WHERE sql IS NOT NULL
  AND name NOT LIKE 'sqlite_%'
ORDER BY
	CASE type
		WHEN 'table' THEN 1
		WHEN 'index' THEN 2
		WHEN 'trigger' THEN 3
		WHEN 'view' THEN 4
	END,
	name
`

const tablesSQL = `
SELECT name
FROM sqlite_master
WHERE type = 'table'
  AND name NOT LIKE 'sqlite_%'
ORDER BY name
`

func dumpRows(ctx context.Context, db *sqlx.DB, table string, w io.Writer) error {
	rows, err := db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %q", table))
	if err != nil {
		return fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return fmt.Errorf("get column types: %w", err)
	}
	quoted := make([]string, len(columns))
	blob := make([]bool, len(columns))
	for i, col := range columns {
		quoted[i] = fmt.Sprintf("%q", col)
		blob[i] = strings.EqualFold(types[i].DatabaseTypeName(), "BLOB")
	}
	cols := strings.Join(quoted, ", ")

	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = formatValue(v, blob[i])
		}
		fmt.Fprintf(w, "INSERT INTO %q (%s) VALUES (%s);\n", table, cols, strings.Join(values, ", "))
	}
	return rows.Err()
}

func formatValue(v any, blob bool) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		if !blob {
			return "'" + strings.ReplaceAll(string(val), "'", "''") + "'"
		}
		// signed payloads must survive byte for byte
		return "X'" + hex.EncodeToString(val) + "'"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case int64, float64:
		return fmt.Sprintf("%v", val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case time.Time:
		return "'" + val.Format(time.RFC3339Nano) + "'"
	}
	return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
}
