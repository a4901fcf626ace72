package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wander.db")

	db, err := Open(Config{Dialect: DialectSQLite, Path: path})
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM cell_documents").Scan(&n))
	assert.Zero(t, n)

	applied, err := NewMigrationManager(db, DialectSQLite).GetAppliedMigrations()
	require.NoError(t, err)
	assert.True(t, applied[1])
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db, err := Open(Config{Dialect: DialectSQLite, Path: filepath.Join(t.TempDir(), "w.db")})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewMigrationManager(db, DialectSQLite).RunMigrations())

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRebind(t *testing.T) {
	q := "UPDATE t SET a = ?, b = ? WHERE c = ?"
	assert.Equal(t, q, Rebind(DialectSQLite, q))
	assert.Equal(t, "UPDATE t SET a = $1, b = $2 WHERE c = $3", Rebind(DialectPostgres, q))
}
