package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudget_TextCap(t *testing.T) {
	b := NewBudget(2, 0)
	require.NoError(t, b.UseText())
	require.NoError(t, b.UseText())
	assert.Error(t, b.UseText())

	for i := 0; i < 10; i++ {
		require.NoError(t, b.UseImage(), "zero image limit is unlimited")
	}
}

func TestBudget_DailyReset(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	b := NewBudget(1, 1)
	b.now = func() time.Time { return now }
	b.resetTime = now.Add(24 * time.Hour)

	require.NoError(t, b.UseImage())
	require.Error(t, b.UseImage())

	now = now.Add(25 * time.Hour)
	assert.NoError(t, b.UseImage())

	stats := b.GetStats()
	assert.Equal(t, 1, stats["image_used"])
}

func TestBudget_NilIsUnlimited(t *testing.T) {
	var b *Budget
	assert.NoError(t, b.UseText())
	assert.NoError(t, b.UseImage())
}
