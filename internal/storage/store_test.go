package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscrawler/internal/model"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db, SQLite).Run())
	s, err := NewSQLStore(db, SQLite)
	require.NoError(t, err)
	return s
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func item(id, cat string, age time.Duration) model.NewsItem {
	return model.NewsItem{
		ID:        id,
		Title:     "title " + id,
		Summary:   "summary " + id,
		Content:   "content " + id,
		Category:  cat,
		Timestamp: base.Add(-age),
		Source:    "CBC",
		SourceURL: "https://example.com/news/" + id,
	}
}

// storeCases runs the same contract checks against every implementation.
func storeCases(t *testing.T, open func(t *testing.T) NewsStore) {
	ctx := context.Background()

	t.Run("GetByCategory orders newest first", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Save(ctx, []model.NewsItem{
			item("a", model.China, 3*time.Hour),
			item("b", model.China, time.Hour),
			item("c", model.China, 2*time.Hour),
			item("d", model.USA, 0),
		}))

		got, err := s.GetByCategory(ctx, model.China, "", 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "b", got[0].ID)
		assert.Equal(t, "c", got[1].ID)
		assert.Equal(t, "a", got[2].ID)
		assert.True(t, got[0].Timestamp.Equal(base.Add(-time.Hour)))

		limited, err := s.GetByCategory(ctx, model.China, "", 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})

	t.Run("GetByCategory filters by city", func(t *testing.T) {
		s := open(t)
		a := item("a", model.Local, 0)
		a.City = "Kingston"
		b := item("b", model.Local, time.Minute)
		b.City = "Halifax"
		require.NoError(t, s.Save(ctx, []model.NewsItem{a, b}))

		got, err := s.GetByCategory(ctx, model.Local, "Halifax", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].ID)
		assert.Equal(t, "Halifax", got[0].City)
	})

	t.Run("Save upserts by id", func(t *testing.T) {
		s := open(t)
		it := item("a", model.Canada, 0)
		require.NoError(t, s.Save(ctx, []model.NewsItem{it}))
		it.Title = "updated"
		require.NoError(t, s.Save(ctx, []model.NewsItem{it}))

		got, err := s.GetByCategory(ctx, model.Canada, "", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "updated", got[0].Title)
	})

	t.Run("CheckExists returns stored source urls", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Save(ctx, []model.NewsItem{item("a", model.USA, 0)}))

		found, err := s.CheckExists(ctx, []string{
			"https://example.com/news/a",
			"https://example.com/news/zz",
			"",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"https://example.com/news/a": true}, found)

		empty, err := s.CheckExists(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("DeleteMany removes ids", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Save(ctx, []model.NewsItem{
			item("a", model.USA, 0),
			item("b", model.USA, time.Minute),
			item("c", model.USA, 2*time.Minute),
		}))
		require.NoError(t, s.DeleteMany(ctx, []string{"a", "c", "missing"}))
		require.NoError(t, s.DeleteMany(ctx, nil))

		got, err := s.GetByCategory(ctx, model.USA, "", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].ID)
	})

	t.Run("GetLastUpdateTime", func(t *testing.T) {
		s := open(t)
		last, err := s.GetLastUpdateTime(ctx, model.International)
		require.NoError(t, err)
		assert.True(t, last.IsZero())

		require.NoError(t, s.Save(ctx, []model.NewsItem{
			item("a", model.International, 5*time.Hour),
			item("b", model.International, time.Hour),
		}))
		last, err = s.GetLastUpdateTime(ctx, model.International)
		require.NoError(t, err)
		assert.True(t, last.Equal(base.Add(-time.Hour)), "got %v", last)
	})

	t.Run("Stats", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Save(ctx, []model.NewsItem{
			item("a", model.USA, 0),
			item("b", model.USA, time.Hour),
			item("c", model.China, 0),
		}))
		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, model.China, stats[0].Category)
		assert.Equal(t, 1, stats[0].Count)
		assert.Equal(t, model.USA, stats[1].Category)
		assert.Equal(t, 2, stats[1].Count)
		assert.True(t, stats[1].LastUpdate.Equal(base))
	})
}

func TestSQLStore(t *testing.T) {
	storeCases(t, func(t *testing.T) NewsStore { return openTestStore(t) })
}

func TestMemoryStore(t *testing.T) {
	storeCases(t, func(t *testing.T) NewsStore { return NewMemoryStore("") })
}

func TestSQLStore_DeleteManyAcrossBatches(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	var items []model.NewsItem
	var ids []string
	for i := 0; i < batchSize+25; i++ {
		id := fmt.Sprintf("item-%04d", i)
		items = append(items, item(id, model.China, time.Duration(i)*time.Second))
		ids = append(ids, id)
	}
	require.NoError(t, s.Save(ctx, items))

	urls := make([]string, len(items))
	for i, it := range items {
		urls[i] = it.SourceURL
	}
	found, err := s.CheckExists(ctx, urls)
	require.NoError(t, err)
	assert.Len(t, found, len(items))

	require.NoError(t, s.DeleteMany(ctx, ids))
	got, err := s.GetByCategory(ctx, model.China, "", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenSQLite_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "news.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(context.Background(), []model.NewsItem{item("a", model.USA, 0)}))
	assert.FileExists(t, path)
}

func TestMemoryStore_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "news.json")

	s := NewMemoryStore(path)
	require.NoError(t, s.Save(ctx, []model.NewsItem{
		item("a", model.USA, 0),
		item("b", model.USA, time.Hour),
	}))
	require.NoError(t, s.DeleteMany(ctx, []string{"b"}))

	restored := NewMemoryStore(path)
	require.NoError(t, restored.Load())
	got, err := restored.GetByCategory(ctx, model.USA, "", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestMemoryStore_LoadMissingFile(t *testing.T) {
	s := NewMemoryStore(filepath.Join(t.TempDir(), "absent.json"))
	assert.NoError(t, s.Load())
}

func TestChunks(t *testing.T) {
	assert.Nil(t, chunks(nil, 3))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, chunks([]string{"a", "b", "c"}, 2))
}
