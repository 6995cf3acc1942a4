package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cellfield/bubbles/internal/config"
	"github.com/cellfield/bubbles/internal/model/core"
	"github.com/cellfield/bubbles/internal/render"
	"github.com/cellfield/bubbles/internal/storage"
	gormstorage "github.com/cellfield/bubbles/internal/storage/gorm"
	"github.com/cellfield/bubbles/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ storage.Backend  = storage.Nop{}
	_ storage.Backend  = (*memory.Backend)(nil)
	_ storage.Exporter = (*memory.Backend)(nil)
	_ storage.Backend  = (*gormstorage.Backend)(nil)
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		typ     string
		want    any
		wantErr bool
	}{
		{"", storage.Nop{}, false},
		{"none", storage.Nop{}, false},
		{"memory", &memory.Backend{}, false},
		{"sqlite", &gormstorage.Backend{}, false},
		{"postgres", &gormstorage.Backend{}, false},
		{"redis", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			b, err := storage.NewBackend(config.StorageConfig{Type: tt.typ}, zerolog.Nop())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown storage type")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
		})
	}
}

func TestNop(t *testing.T) {
	var b storage.Nop
	assert.NoError(t, b.Init())
	assert.NoError(t, b.StartRun(&core.Run{}))
	assert.NoError(t, b.RecordFrame(&core.Frame{}))
	assert.NoError(t, b.EndRun(core.Outcome{}))
	assert.NoError(t, b.Close())
}

func TestFrameObserver(t *testing.T) {
	b := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartRun(&core.Run{UUID: "obs"}))

	obs := storage.FrameObserver(b)
	require.NoError(t, obs.ObserveFrame(context.Background(), render.FrameStats{
		Index:       4,
		Phase:       1.25,
		MaxDistance: 17.5,
		Duration:    3 * time.Millisecond,
	}))

	frames := b.GetFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, core.Frame{Index: 4, Phase: 1.25, MaxDistance: 17.5, Duration: 3 * time.Millisecond}, frames[0])
}

func TestFrameObserver_PropagatesError(t *testing.T) {
	b := memory.New(config.MemoryConfig{})
	err := storage.FrameObserver(b).ObserveFrame(context.Background(), render.FrameStats{})
	assert.True(t, errors.Is(err, memory.ErrNoRun))
}

func TestNewBackend_SqliteEndToEnd(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "runs.db")},
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	run := &core.Run{UUID: "e2e", StartedAt: time.Now()}
	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.RecordFrame(&core.Frame{Index: 0}))
	require.NoError(t, b.EndRun(core.Outcome{FinishedAt: time.Now()}))
}
