package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Budget caps daily requests to the text and image models. A zero limit
// means unlimited.
type Budget struct {
	mu         sync.Mutex
	textCount  int
	imageCount int
	maxText    int
	maxImage   int
	resetTime  time.Time
	now        func() time.Time
}

func NewBudget(maxText, maxImage int) *Budget {
	b := &Budget{
		maxText:  maxText,
		maxImage: maxImage,
		now:      time.Now,
	}
	b.resetTime = b.now().Add(24 * time.Hour) // Reset daily
	return b
}

// UseText records one text request, or fails when the daily cap is reached.
func (b *Budget) UseText() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.maxText > 0 && b.textCount >= b.maxText {
		slog.Warn("text model budget reached", "used", b.textCount, "limit", b.maxText)
		return fmt.Errorf("text model budget exceeded (%d/%d)", b.textCount, b.maxText)
	}
	b.textCount++
	slog.Debug("model usage", "text", b.textCount, "text_limit", b.maxText)
	return nil
}

// UseImage records one image request, or fails when the daily cap is reached.
func (b *Budget) UseImage() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.maxImage > 0 && b.imageCount >= b.maxImage {
		slog.Warn("image model budget reached", "used", b.imageCount, "limit", b.maxImage)
		return fmt.Errorf("image model budget exceeded (%d/%d)", b.imageCount, b.maxImage)
	}
	b.imageCount++
	slog.Debug("model usage", "image", b.imageCount, "image_limit", b.maxImage)
	return nil
}

// GetStats returns current budget statistics
func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]interface{}{
		"text_used":   b.textCount,
		"text_limit":  b.maxText,
		"image_used":  b.imageCount,
		"image_limit": b.maxImage,
		"reset_time":  b.resetTime.Format(time.RFC3339),
	}
}

// checkReset resets counters if reset time has passed
func (b *Budget) checkReset() {
	if b.now().After(b.resetTime) {
		slog.Info("resetting model budget", "text", b.textCount, "image", b.imageCount)
		b.textCount = 0
		b.imageCount = 0
		b.resetTime = b.now().Add(24 * time.Hour)
	}
}
