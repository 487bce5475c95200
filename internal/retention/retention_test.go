package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscrawler/internal/config"
	"github.com/deusflow/newscrawler/internal/model"
	"github.com/deusflow/newscrawler/internal/storage"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeBlobs struct {
	mu      sync.Mutex
	deleted []string
	fail    bool
}

func (f *fakeBlobs) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("bucket unavailable")
	}
	f.deleted = append(f.deleted, url)
	return nil
}

func newEnforcer(t *testing.T, limit int, items []model.NewsItem) (*Enforcer, *storage.MemoryStore, *fakeBlobs) {
	t.Helper()
	store := storage.NewMemoryStore("")
	require.NoError(t, store.Save(context.Background(), items))

	cfg := config.DefaultAppConfig()
	cfg.RetentionLimits[model.China] = limit
	blobs := &fakeBlobs{}
	e := New(store, blobs, config.NewStatic(cfg))
	e.Now = func() time.Time { return now }
	return e, store, blobs
}

func series(n int, step time.Duration) []model.NewsItem {
	items := make([]model.NewsItem, n)
	for i := range items {
		items[i] = model.NewsItem{
			ID:        fmt.Sprintf("item-%02d", i),
			Title:     fmt.Sprintf("story %d", i),
			Category:  model.China,
			Timestamp: now.Add(-time.Duration(i) * step),
		}
	}
	return items
}

func TestEnforce_EvictsOldestBeyondLimit(t *testing.T) {
	items := series(60, time.Minute)
	e, store, _ := newEnforcer(t, 50, items)

	rep, err := e.Enforce(context.Background(), model.China)
	require.NoError(t, err)
	assert.Equal(t, 10, rep.Evicted)
	assert.Equal(t, 10, rep.Overflow)
	assert.Equal(t, 0, rep.Expired)

	left, err := store.GetByCategory(context.Background(), model.China, "", 0)
	require.NoError(t, err)
	require.Len(t, left, 50)
	// The ten oldest (item-50..item-59) are gone.
	assert.Equal(t, "item-49", left[len(left)-1].ID)
}

func TestEnforce_AgeAndCountUnion(t *testing.T) {
	// 5 items an hour apart plus 3 older than the cutoff; limit 4.
	items := series(5, time.Hour)
	for i := 0; i < 3; i++ {
		items = append(items, model.NewsItem{
			ID:        fmt.Sprintf("stale-%d", i),
			Category:  model.China,
			Timestamp: now.Add(-MaxAge - time.Duration(i+1)*time.Hour),
		})
	}
	e, store, _ := newEnforcer(t, 4, items)

	rep, err := e.Enforce(context.Background(), model.China)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Evicted)
	assert.Equal(t, 3, rep.Expired)
	assert.Equal(t, 1, rep.Overflow)

	left, err := store.GetByCategory(context.Background(), model.China, "", 0)
	require.NoError(t, err)
	assert.Len(t, left, 4)
	for _, it := range left {
		assert.False(t, it.Timestamp.Before(now.Add(-MaxAge)))
	}
}

func TestEnforce_NothingToDo(t *testing.T) {
	e, _, _ := newEnforcer(t, 50, series(3, time.Minute))
	rep, err := e.Enforce(context.Background(), model.China)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Evicted)
	assert.Equal(t, 3, rep.Stored)
}

func TestEnforce_ReadsLimitEveryCall(t *testing.T) {
	store := storage.NewMemoryStore("")
	require.NoError(t, store.Save(context.Background(), series(10, time.Minute)))
	settings := config.NewStatic(config.DefaultAppConfig())
	e := New(store, nil, settings)
	e.Now = func() time.Time { return now }

	rep, err := e.Enforce(context.Background(), model.China)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Evicted)

	cfg := settings.Get()
	cfg.RetentionLimits[model.China] = 6
	require.NoError(t, settings.Save(cfg))

	rep, err = e.Enforce(context.Background(), model.China)
	require.NoError(t, err)
	assert.Equal(t, 6, rep.Limit)
	assert.Equal(t, 4, rep.Evicted)
}

func TestEnforce_DeletesGeneratedImages(t *testing.T) {
	items := series(3, time.Minute)
	items[1].ImageURL = "https://storage.googleapis.com/bucket/generated-images/china/abc.jpg"
	items[2].ImageURL = "https://example.com/og.jpg"
	e, _, blobs := newEnforcer(t, 1, items)

	rep, err := e.Enforce(context.Background(), model.China)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Evicted)
	assert.Equal(t, 1, rep.Blobs)
	assert.Equal(t, []string{items[1].ImageURL}, blobs.deleted)
}

func TestEnforce_BlobFailureStillDeletesRecords(t *testing.T) {
	items := series(2, time.Minute)
	items[1].ImageURL = "/blobs/generated-images/china/abc.jpg"
	e, store, blobs := newEnforcer(t, 1, items)
	blobs.fail = true

	rep, err := e.Enforce(context.Background(), model.China)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Evicted)
	assert.Equal(t, 0, rep.Blobs)

	left, err := store.GetByCategory(context.Background(), model.China, "", 0)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestSelect(t *testing.T) {
	cutoff := now.Add(-MaxAge)
	items := []model.NewsItem{
		{ID: "a", Timestamp: now},
		{ID: "b", Timestamp: now.Add(-time.Hour)},
		{ID: "c", Timestamp: cutoff.Add(-time.Second)},
	}
	got := Select(items, 2, cutoff)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)

	assert.Empty(t, Select(nil, 2, cutoff))
}
