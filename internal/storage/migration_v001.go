package storage

import "database/sql"

// migrateV001 creates the news_items table. Timestamps are Unix
// milliseconds so both dialects order and compare them the same way.
// source_url is indexed but not unique: the same link may legitimately be
// stored under two categories.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS news_items (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			summary     TEXT NOT NULL DEFAULT '',
			content     TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL,
			ts          BIGINT NOT NULL,
			image_url   TEXT NOT NULL DEFAULT '',
			source      TEXT NOT NULL DEFAULT '',
			source_url  TEXT NOT NULL DEFAULT '',
			youtube_url TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_news_items_category_ts ON news_items(category, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_news_items_source_url  ON news_items(source_url)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// migrateV002 adds the city column used by LOCAL items.
func migrateV002(tx *sql.Tx) error {
	stmts := []string{
		`ALTER TABLE news_items ADD COLUMN city TEXT NOT NULL DEFAULT ''`,
		`CREATE INDEX IF NOT EXISTS idx_news_items_category_city ON news_items(category, city)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
