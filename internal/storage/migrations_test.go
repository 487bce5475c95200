package storage

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_FreshDB(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db, SQLite).Run())

	for _, table := range []string{"news_items", "schema_migrations"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}

	for _, idx := range []string{
		"idx_news_items_category_ts",
		"idx_news_items_source_url",
		"idx_news_items_category_city",
	} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx,
		).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db, SQLite)
	require.NoError(t, runner.Run())
	require.NoError(t, runner.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestMigrationRunner_RecordsNames(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db, SQLite).Run())

	rows, err := db.Query("SELECT version, name FROM schema_migrations ORDER BY version")
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var v int
		var n string
		require.NoError(t, rows.Scan(&v, &n))
		names = append(names, n)
	}
	assert.Equal(t, []string{"news_items", "news_items_city"}, names)
}

func TestDialect_Rebind(t *testing.T) {
	q := "SELECT * FROM news_items WHERE category = ? AND city = ? LIMIT ?"
	assert.Equal(t, q, SQLite.rebind(q))
	assert.Equal(t,
		"SELECT * FROM news_items WHERE category = $1 AND city = $2 LIMIT $3",
		Postgres.rebind(q))
}
