package migrate

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateSQLMigrationSanitizesNameAndValidates(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Reservations Index!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_reservations_index.sql"), "got %s", path)
	require.Equal(t, dir, filepath.Dir(path))

	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := CreateSQLMigration("", "name")
	require.Error(t, err)

	_, err = CreateSQLMigration(dir, "")
	require.Error(t, err)

	_, err = CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}
