package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/deusflow/newscrawler/internal/model"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) driverName() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore implements NewsStore on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (creating if needed) a SQLite database at path and migrates it.
func OpenSQLite(path string) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open(SQLite.driverName(), path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return open(db, SQLite)
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open(Postgres.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return open(db, Postgres)
}

func open(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := NewMigrationRunner(db, dialect).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	store, err := NewSQLStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("news store ready", "driver", dialect.driverName())
	return store, nil
}

// NewSQLStore wraps an already-migrated database.
func NewSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("nil database")
	}
	if dialect == SQLite {
		// One writer at a time; also keeps :memory: databases on one connection.
		db.SetMaxOpenConns(1)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

const itemColumns = "id, title, summary, content, category, ts, image_url, source, source_url, youtube_url, city"

func (s *SQLStore) GetByCategory(ctx context.Context, category, city string, limit int) ([]model.NewsItem, error) {
	query := "SELECT " + itemColumns + " FROM news_items WHERE category = ?"
	args := []any{category}
	if city != "" {
		query += " AND city = ?"
		args = append(args, city)
	}
	query += " ORDER BY ts DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s items: %w", category, err)
	}
	defer rows.Close()

	var items []model.NewsItem
	for rows.Next() {
		var it model.NewsItem
		var ts int64
		if err := rows.Scan(&it.ID, &it.Title, &it.Summary, &it.Content, &it.Category, &ts,
			&it.ImageURL, &it.Source, &it.SourceURL, &it.YoutubeURL, &it.City); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Timestamp = fromMillis(ts)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLStore) CheckExists(ctx context.Context, urls []string) (map[string]bool, error) {
	found := make(map[string]bool)
	var clean []string
	for _, u := range urls {
		if u != "" {
			clean = append(clean, u)
		}
	}

	for _, batch := range chunks(clean, batchSize) {
		query := "SELECT DISTINCT source_url FROM news_items WHERE source_url IN (" + placeholders(len(batch)) + ")"
		rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), toArgs(batch)...)
		if err != nil {
			return nil, fmt.Errorf("check existing urls: %w", err)
		}
		for rows.Next() {
			var u string
			if err := rows.Scan(&u); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan url: %w", err)
			}
			found[u] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return found, nil
}

// Save upserts items in one transaction.
func (s *SQLStore) Save(ctx context.Context, items []model.NewsItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`
		INSERT INTO news_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title       = excluded.title,
			summary     = excluded.summary,
			content     = excluded.content,
			category    = excluded.category,
			ts          = excluded.ts,
			image_url   = excluded.image_url,
			source      = excluded.source,
			source_url  = excluded.source_url,
			youtube_url = excluded.youtube_url,
			city        = excluded.city
	`))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, it.ID, it.Title, it.Summary, it.Content, it.Category,
			it.Timestamp.UnixMilli(), it.ImageURL, it.Source, it.SourceURL, it.YoutubeURL, it.City); err != nil {
			return fmt.Errorf("upsert %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, batch := range chunks(ids, batchSize) {
		query := "DELETE FROM news_items WHERE id IN (" + placeholders(len(batch)) + ")"
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(query), toArgs(batch)...); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetLastUpdateTime(ctx context.Context, category string) (time.Time, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT MAX(ts) FROM news_items WHERE category = ?"), category,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("last update for %s: %w", category, err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return fromMillis(ts.Int64), nil
}

func (s *SQLStore) Stats(ctx context.Context) ([]CategoryStats, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT category, COUNT(*), MAX(ts) FROM news_items GROUP BY category ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var out []CategoryStats
	for rows.Next() {
		var st CategoryStats
		var ts int64
		if err := rows.Scan(&st.Category, &st.Count, &ts); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		st.LastUpdate = fromMillis(ts)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
