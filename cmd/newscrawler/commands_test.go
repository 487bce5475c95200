package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscrawler/internal/retention"
	"github.com/deusflow/newscrawler/internal/storage"
)

func TestCategoryArgs(t *testing.T) {
	tests := []struct {
		args    []string
		wantCat string
		wantCtx string
	}{
		{[]string{"local"}, "LOCAL", ""},
		{[]string{"Local", " Kingston "}, "LOCAL", "Kingston"},
		{[]string{"gta"}, "GTA", ""},
		{[]string{"usa"}, "USA", ""},
		{[]string{"tech-ai"}, "tech-ai", ""},
	}

	for _, tt := range tests {
		cat, ctx := categoryArgs(tt.args)
		assert.Equal(t, tt.wantCat, cat, "args %v", tt.args)
		assert.Equal(t, tt.wantCtx, ctx, "args %v", tt.args)
	}
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	writeStats(&buf, nil)
	assert.Equal(t, "No items stored.\n", buf.String())

	buf.Reset()
	writeStats(&buf, []storage.CategoryStats{
		{Category: "USA", Count: 3, LastUpdate: time.Now()},
		{Category: "GTA", Count: 2, LastUpdate: time.Now()},
	})
	out := buf.String()
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "USA")
	assert.Regexp(t, `TOTAL\s+5`, out)
}

func TestWritePruneReports(t *testing.T) {
	var buf bytes.Buffer
	writePruneReports(&buf, []retention.Report{{Category: "USA"}})
	assert.Equal(t, "Nothing to prune.\n", buf.String())

	buf.Reset()
	writePruneReports(&buf, []retention.Report{
		{Category: "USA", Stored: 60, Overflow: 10, Evicted: 10},
		{Category: "CANADA"},
	})
	assert.Equal(t, "USA: evicted 10 of 60 (expired 0, over limit 10)\n", buf.String())
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "run", "should-update", "backfill", "insert", "prune", "stats", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestStatsCommand_RunsWithoutModelKeys(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEXT_BACKEND", "gemini")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "news.db"))
	t.Setenv("SETTINGS_PATH", filepath.Join(dir, "settings.yaml"))
	t.Setenv("BLOB_DIR", filepath.Join(dir, "blobs"))
	t.Setenv("BLOB_BUCKET", "")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"stats"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "No items stored.")
}
