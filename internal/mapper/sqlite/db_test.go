package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 3; i++ {
		d, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, d.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	d := openTestDB(t)

	var mode string
	require.NoError(t, d.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, d.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	d := openTestDB(t)

	var version int
	require.NoError(t, d.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var name string
	err := d.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_records_type_seq'").Scan(&name)
	require.NoError(t, err)
}

func TestClose_NilDB(t *testing.T) {
	var d DB
	assert.NoError(t, d.Close())
}
