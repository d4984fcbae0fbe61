package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primebench/primebench/internal/config"
	"github.com/primebench/primebench/internal/export"
	"github.com/primebench/primebench/internal/results"
	"github.com/primebench/primebench/internal/stream"
)

func TestEndpointFor(t *testing.T) {
	tests := []struct {
		transport, endpoint, want string
	}{
		{"sse", "", sseEndpoint},
		{"sse", "/custom", "/custom"},
		{"ws", "", wsEndpoint},
		{"ws", sseEndpoint, wsEndpoint},
		{"ws", "/custom/ws", "/custom/ws"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, endpointFor(tt.transport, tt.endpoint), "%s %q", tt.transport, tt.endpoint)
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	applyFlags(cfg, "http://example:9000", "ws", 40, 10, "/tmp/out", "debug")

	assert.Equal(t, "http://example:9000", cfg.Client.BaseURL)
	assert.Equal(t, "ws", cfg.Client.Transport)
	assert.Equal(t, 40, cfg.Request.ItemSize)
	assert.Equal(t, 10, cfg.Request.IterationCount)
	assert.Equal(t, "/tmp/out", cfg.Client.ExportDir)
	assert.Equal(t, "debug", cfg.Client.LogLevel)

	before := *cfg
	applyFlags(cfg, "", "", 0, 0, "", "")
	assert.Equal(t, before, *cfg)
}

func TestOpenArchive(t *testing.T) {
	store := results.NewStore()
	store.Append(results.Item{Value: "11", Elapsed: 0.25})
	store.Append(results.Item{Value: "13", Elapsed: 0.75})
	a := export.NewArchive("0b5f0c2e-0000-0000-0000-000000000000",
		stream.Params{ItemSize: 2, IterationCount: 5}, stream.Completed, store.Snapshot(),
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, export.WriteArchive(&buf, a))
	path := filepath.Join(t.TempDir(), "run.pbarc")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := openArchive(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.SessionID, got.SessionID)
	assert.Equal(t, stream.Completed, got.Status)
	assert.Len(t, got.Items, 2)
	assert.InDelta(t, 0.5, got.Aggregate.Mean, 1e-12)
}

func TestOpenArchiveErrors(t *testing.T) {
	_, err := openArchive(filepath.Join(t.TempDir(), "missing.pbarc"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "table.csv")
	require.NoError(t, os.WriteFile(path, []byte("value,time\n"), 0o644))
	_, err = openArchive(path)
	assert.ErrorIs(t, err, export.ErrNotArchive)
}
