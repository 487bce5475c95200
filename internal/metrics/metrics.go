package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	RunsCompleted        int64
	RunsFailed           int64
	CandidatesSearched   int64
	CandidatesFiltered   int64
	DuplicatesFiltered   int64
	SummarizationsFailed int64
	ItemsSaved           int64
	ItemsEvicted         int64
	ImagesGenerated      int64
	NotificationsSent    int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime     time.Time
	LastRunCategory string
	LastErrorTime   time.Time
	LastError       string
	IsHealthy       bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

// RunStats are the counts of one pipeline run.
type RunStats struct {
	Category   string
	Searched   int
	Filtered   int
	Duplicates int
	Saved      int
	Evicted    int
	Duration   time.Duration
}

// RecordRun adds a completed run to the counters and marks the process healthy.
func (m *Metrics) RecordRun(s RunStats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RunsCompleted++
	m.CandidatesSearched += int64(s.Searched)
	m.CandidatesFiltered += int64(s.Filtered)
	m.DuplicatesFiltered += int64(s.Duplicates)
	m.ItemsSaved += int64(s.Saved)
	m.ItemsEvicted += int64(s.Evicted)

	m.LastProcessingTime = s.Duration
	m.TotalProcessingTime += s.Duration
	m.ProcessingCount++
	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}

	m.LastRunTime = time.Now()
	m.LastRunCategory = s.Category
	m.IsHealthy = true
}

func (m *Metrics) IncrementSummarizationsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummarizationsFailed++
}

func (m *Metrics) IncrementImagesGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ImagesGenerated++
}

func (m *Metrics) IncrementNotificationsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotificationsSent++
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsFailed++
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"runs_completed":             m.RunsCompleted,
		"runs_failed":                m.RunsFailed,
		"candidates_searched":        m.CandidatesSearched,
		"candidates_filtered":        m.CandidatesFiltered,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"summarizations_failed":      m.SummarizationsFailed,
		"items_saved":                m.ItemsSaved,
		"items_evicted":              m.ItemsEvicted,
		"images_generated":           m.ImagesGenerated,
		"notifications_sent":         m.NotificationsSent,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_run_category":          m.LastRunCategory,
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
