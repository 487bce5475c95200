package app

import (
	"fmt"
	"log/slog"

	"github.com/deusflow/newscrawler/internal/config"
	"github.com/deusflow/newscrawler/internal/storage"
)

// openStore picks the NewsStore implementation named by STORE_DRIVER.
func openStore(cfg *config.Config) (storage.NewsStore, error) {
	switch cfg.StoreDriver {
	case "postgres":
		slog.Info("using PostgreSQL store")
		return storage.OpenPostgres(cfg.DatabaseURL)
	case "sqlite":
		slog.Info("using SQLite store", "path", cfg.SQLitePath)
		return storage.OpenSQLite(cfg.SQLitePath)
	case "file":
		slog.Info("using file store", "path", cfg.SnapshotPath)
		s := storage.NewMemoryStore(cfg.SnapshotPath)
		if err := s.Load(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
