// Package notify fans "data updated" events out to presentation layers.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/deusflow/newscrawler/internal/metrics"
)

const TypeNewsUpdated = "news_updated"

type Event struct {
	Type     string    `json:"type"`
	Category string    `json:"category"`
	Context  string    `json:"context,omitempty"`
	Count    int       `json:"count"`
	Titles   []string  `json:"titles,omitempty"`
	Time     time.Time `json:"time"`
}

// Sink receives published events.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// Publisher is what the crawler depends on.
type Publisher interface {
	Publish(ev Event)
}

// Bus queues events on a buffered channel. Publish never blocks; when the
// queue is full the event is dropped.
type Bus struct {
	events chan Event

	mu    sync.RWMutex
	sinks []Sink
}

func NewBus(size int, sinks ...Sink) *Bus {
	if size <= 0 {
		size = 16
	}
	return &Bus{events: make(chan Event, size), sinks: sinks}
}

func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	select {
	case b.events <- ev:
	default:
		slog.Warn("notification queue full, dropping event", "type", ev.Type, "category", ev.Category)
	}
}

// Run delivers queued events until ctx is done.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.events:
			b.deliver(ctx, ev)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, ev Event) {
	b.mu.RLock()
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Send(ctx, ev); err != nil {
			slog.Warn("notification sink failed", "type", ev.Type, "category", ev.Category, "err", err)
			continue
		}
		metrics.Global.IncrementNotificationsSent()
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
