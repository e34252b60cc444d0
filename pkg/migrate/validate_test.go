package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeMigration(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const validMigration = `-- +goose Up
CREATE TABLE demo (id uuid PRIMARY KEY);
-- +goose Down
DROP TABLE demo;
`

func TestValidateDirAcceptsWellFormedMigrations(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101000000_create_demo.sql", validMigration)
	writeMigration(t, dir, "20260102000000_add_index.sql", validMigration)

	require.NoError(t, ValidateDir(dir))
}

func TestValidateDirReportsAllProblems(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "bad-name.sql", validMigration)
	writeMigration(t, dir, "20260101000000_missing_down.sql", "-- +goose Up\nSELECT 1;\n")

	err := ValidateDir(dir)
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101000000_first.sql", validMigration)
	writeMigration(t, dir, "20260101000000_second.sql", validMigration)

	require.Error(t, ValidateDir(dir))
}
