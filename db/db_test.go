package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRunsMigrations(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "test_payflow.db"))
	require.NoError(t, err)
	defer d.Close()

	for _, table := range []string{"users", "jobs", "shifts", "expenses", "budgets", "receipts", "receipt_items"} {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		assert.NoError(t, err, "could not query %s", table)
	}

	var version int
	require.NoError(t, d.QueryRow("SELECT version FROM schema_migrations").Scan(&version))
	assert.Equal(t, 3, version)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "again.db")
	d, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, d.Close())
}

func TestForeignKeysEnforced(t *testing.T) {
	d, err := Open(":memory:")
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Exec("INSERT INTO jobs (user_id, name) VALUES (999, 'ghost')")
	assert.Error(t, err, "insert referencing a missing user should fail")
}

func TestUniqueViolation(t *testing.T) {
	d, err := Open(":memory:")
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Exec("INSERT INTO users (username, password_hash) VALUES ('amy', 'x')")
	require.NoError(t, err)
	_, err = d.Exec("INSERT INTO users (username, password_hash) VALUES ('amy', 'y')")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(assert.AnError))
}

func TestParseURL(t *testing.T) {
	cases := []struct {
		in      string
		dialect Dialect
		dsn     string
	}{
		{"sqlite:///db.sqlite3", SQLite, "db.sqlite3?_foreign_keys=on&_busy_timeout=5000"},
		{"sqlite:////var/lib/payflow.db", SQLite, "/var/lib/payflow.db?_foreign_keys=on&_busy_timeout=5000"},
		{":memory:", SQLite, ":memory:?_foreign_keys=on&_busy_timeout=5000"},
		{"file:x.db?mode=rwc", SQLite, "file:x.db?mode=rwc&_foreign_keys=on&_busy_timeout=5000"},
		{"postgresql://u:p@localhost/payflow", Postgres, "postgresql://u:p@localhost/payflow"},
	}
	for _, tc := range cases {
		dialect, dsn := ParseURL(tc.in)
		assert.Equal(t, tc.dialect, dialect, tc.in)
		assert.Equal(t, tc.dsn, dsn, tc.in)
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	assert.Equal(t, "SELECT * FROM jobs WHERE id = $1 AND user_id = $2", pg.Rebind("SELECT * FROM jobs WHERE id = ? AND user_id = ?"))

	lite := &DB{Dialect: SQLite}
	assert.Equal(t, "SELECT 1 WHERE a = ?", lite.Rebind("SELECT 1 WHERE a = ?"))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("mypassword")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("mypassword", hash))
	assert.False(t, CheckPasswordHash("wrongpassword", hash))
	assert.False(t, CheckPasswordHash("mypassword", DummyHash()))
}

func TestMigrationDB(t *testing.T) {
	d, err := Open(":memory:")
	require.NoError(t, err)
	defer d.Close()

	conn, owned, err := migrationDB(d)
	require.NoError(t, err)
	assert.False(t, owned)
	assert.Same(t, d.DB, conn, "sqlite migrates on the shared handle")

	// sql.Open does not dial, so no server is needed.
	pg := &DB{DB: d.DB, Dialect: Postgres, dsn: "postgres://user:pw@127.0.0.1:1/payflow"}
	conn, owned, err = migrationDB(pg)
	require.NoError(t, err)
	assert.True(t, owned)
	assert.NotSame(t, d.DB, conn, "postgres migrates on its own pool")
	require.NoError(t, conn.Close())
}
