package repository

import (
	"strings"
	"testing"

	"zero-trust-access-platform/internal/db"
)

// ddlColumns parses the column names out of a CREATE TABLE body in the
// embedded migration, so the statement constants can be checked against
// the schema without a database.
func ddlColumns(t *testing.T, ddl, table string) map[string]bool {
	t.Helper()
	marker := "CREATE TABLE " + table + " ("
	start := strings.Index(ddl, marker)
	if start < 0 {
		t.Fatalf("migration has no CREATE TABLE for %q", table)
	}
	body := ddl[start+len(marker):]
	end := strings.Index(body, ");")
	if end < 0 {
		t.Fatalf("unterminated CREATE TABLE for %q", table)
	}
	cols := make(map[string]bool)
	for _, line := range strings.Split(body[:end], "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cols[fields[0]] = true
	}
	return cols
}

func TestStatementColumnsMatchMigration(t *testing.T) {
	ddl, err := db.MigrationFS.ReadFile("migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	tests := []struct {
		table   string
		columns string
	}{
		{"login_events", loginEventColumns},
		{"device_events", deviceEventColumns},
		{"file_access_events", fileAccessEventColumns},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			defined := ddlColumns(t, string(ddl), tt.table)
			for _, col := range strings.Split(tt.columns, ",") {
				col = strings.TrimSpace(col)
				if !defined[col] {
					t.Errorf("%s references column %q not defined in migration", tt.table, col)
				}
			}
		})
	}
}
