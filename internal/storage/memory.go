package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/deusflow/newscrawler/internal/model"
)

// MemoryStore keeps items in memory, optionally mirrored to a JSON file.
type MemoryStore struct {
	filePath string
	items    map[string]model.NewsItem
	mu       sync.RWMutex
}

// NewMemoryStore returns an empty store. With a non-empty filePath every
// write is snapshotted to that file; call Load to restore it.
func NewMemoryStore(filePath string) *MemoryStore {
	return &MemoryStore{
		filePath: filePath,
		items:    make(map[string]model.NewsItem),
	}
}

// Load loads existing items from the snapshot file
func (m *MemoryStore) Load() error {
	if m.filePath == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var items []model.NewsItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return nil
}

// snapshot writes all items to the file. Caller holds the lock.
func (m *MemoryStore) snapshot() error {
	if m.filePath == "" {
		return nil
	}
	items := make([]model.NewsItem, 0, len(m.items))
	for _, it := range m.items {
		items = append(items, it)
	}
	sortNewestFirst(items)

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp := m.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return os.Rename(tmp, m.filePath)
}

// Snapshot writes the current contents to the snapshot file.
func (m *MemoryStore) Snapshot() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot()
}

func (m *MemoryStore) GetByCategory(ctx context.Context, category, city string, limit int) ([]model.NewsItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.NewsItem
	for _, it := range m.items {
		if it.Category != category {
			continue
		}
		if city != "" && it.City != city {
			continue
		}
		out = append(out, it)
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) CheckExists(ctx context.Context, urls []string) (map[string]bool, error) {
	want := make(map[string]bool, len(urls))
	for _, u := range urls {
		if u != "" {
			want[u] = true
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make(map[string]bool)
	for _, it := range m.items {
		if want[it.SourceURL] {
			found[it.SourceURL] = true
		}
	}
	return found, nil
}

func (m *MemoryStore) Save(ctx context.Context, items []model.NewsItem) error {
	if len(items) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, it := range items {
		m.items[it.ID] = it
	}
	return m.snapshot()
}

func (m *MemoryStore) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.items, id)
	}
	return m.snapshot()
}

func (m *MemoryStore) GetLastUpdateTime(ctx context.Context, category string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last time.Time
	for _, it := range m.items {
		if it.Category == category && it.Timestamp.After(last) {
			last = it.Timestamp
		}
	}
	return last, nil
}

func (m *MemoryStore) Stats(ctx context.Context) ([]CategoryStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byCat := map[string]*CategoryStats{}
	for _, it := range m.items {
		st, ok := byCat[it.Category]
		if !ok {
			st = &CategoryStats{Category: it.Category}
			byCat[it.Category] = st
		}
		st.Count++
		if it.Timestamp.After(st.LastUpdate) {
			st.LastUpdate = it.Timestamp
		}
	}

	out := make([]CategoryStats, 0, len(byCat))
	for _, st := range byCat {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (m *MemoryStore) Close() error {
	return m.Snapshot()
}

func sortNewestFirst(items []model.NewsItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].ID > items[j].ID
	})
}
