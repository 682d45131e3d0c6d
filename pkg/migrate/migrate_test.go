package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir(""))
}

func TestLocalEntriesMigrationMatchesStoreColumns(t *testing.T) {
	b, err := fs.ReadFile(Embedded(), "migrations/20250601090000_create_local_entries.sql")
	require.NoError(t, err)

	sql := string(b)
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS local_entries",
		"entry_key  VARCHAR(255) PRIMARY KEY",
		"value      TEXT NOT NULL",
		"updated_at TIMESTAMP",
		"DROP TABLE IF EXISTS local_entries",
	} {
		require.Truef(t, strings.Contains(sql, want), "migration missing %q", want)
	}
}

func TestDialect(t *testing.T) {
	d, err := Dialect("postgres")
	require.NoError(t, err)
	require.Equal(t, "postgres", d)

	d, err = Dialect("sqlite")
	require.NoError(t, err)
	require.Equal(t, "sqlite3", d)

	_, err = Dialect("mysql")
	require.Error(t, err)
}

func TestCreateSQLMigrationProducesValidFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 7, 1, 12, 30, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Entry Owner!", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20250701123000_add_entry_owner.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "add entry owner", now)
	require.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20250101000000_no_down.sql"), []byte("-- +goose Up\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	_, err := CreateSQLMigration(t.TempDir(), "!!!", time.Now())
	require.Error(t, err)
}
