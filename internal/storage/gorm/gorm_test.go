package gormstorage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cellfield/bubbles/internal/config"
	"github.com/cellfield/bubbles/internal/database"
	"github.com/cellfield/bubbles/internal/model"
	"github.com/cellfield/bubbles/internal/model/core"
	"github.com/cellfield/bubbles/internal/queue"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(Dependencies{
		Manager: database.NewManager(zerolog.Nop()),
		Config: config.StorageConfig{
			Type:   "sqlite",
			SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "catalog.db")},
		},
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestInit_RequiresManager(t *testing.T) {
	assert.Error(t, New(Dependencies{}).Init())
}

func TestInitClose(t *testing.T) {
	b := newTestBackend(t)
	assert.True(t, b.dbReady)
	require.NotNil(t, b.frames)

	require.NoError(t, b.Close())
	assert.False(t, b.dbReady)
	assert.NoError(t, b.Close(), "second close is a no-op")
}

func TestRecordFrame_BeforeStart(t *testing.T) {
	b := newTestBackend(t)
	assert.ErrorIs(t, b.RecordFrame(&core.Frame{}), ErrNoRun)
	assert.ErrorIs(t, b.EndRun(core.Outcome{}), ErrNoRun)
}

func TestRunLifecycle(t *testing.T) {
	b := newTestBackend(t)
	started := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	run := &core.Run{
		UUID:      "1f6c2a4e-3b5d-4c7e-8f90-a1b2c3d4e5f6",
		StartedAt: started,
		Width:     32,
		Height:    16,
		Frames:    4,
		Cells:     3,
		Seed:      7,
		Variant:   "static",
		Format:    "gif",
		Params:    map[string]any{"dither": false},
	}
	require.NoError(t, b.StartRun(run))
	require.NotZero(t, run.ID)

	for i := range 4 {
		require.NoError(t, b.RecordFrame(&core.Frame{
			Index:       i,
			Phase:       float64(i) * 0.5,
			MaxDistance: float64(10 + i),
			Duration:    time.Millisecond,
		}))
	}
	require.NoError(t, b.EndRun(core.Outcome{FinishedAt: started.Add(time.Minute), OutputSize: 512}))

	got, frames, err := b.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RunFinished, got.Status)
	assert.Equal(t, int64(512), got.OutputSize)
	assert.Equal(t, "static", got.Variant)
	assert.Equal(t, false, got.Params["dither"])
	assert.True(t, got.FinishedAt.Equal(started.Add(time.Minute)))

	require.Len(t, frames, 4)
	for i, f := range frames {
		assert.Equal(t, i, f.Index)
		assert.InDelta(t, float64(10+i), f.MaxDistance, 1e-9)
		assert.Equal(t, time.Millisecond, f.Duration)
	}
	assert.True(t, b.frames.Empty())
}

func TestEndRun_Failure(t *testing.T) {
	b := newTestBackend(t)
	run := &core.Run{UUID: "failing-run", StartedAt: time.Now()}
	require.NoError(t, b.StartRun(run))

	require.NoError(t, b.EndRun(core.Outcome{FinishedAt: time.Now(), Err: errors.New("encoder exploded")}))

	var row model.Run
	require.NoError(t, b.deps.Manager.DB.First(&row, run.ID).Error)
	assert.Equal(t, "failed", row.Status)
	assert.Equal(t, "encoder exploded", row.Error)
	require.NotNil(t, row.FinishedAt)
}

func TestStartRun_NotInitialized(t *testing.T) {
	b := New(Dependencies{Manager: database.NewManager(zerolog.Nop())})
	assert.Error(t, b.StartRun(&core.Run{UUID: "x"}))
}

func TestClose_SavesInMemoryCatalog(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "saved", "catalog.db")
	b := New(Dependencies{
		Manager: database.NewManager(zerolog.Nop()),
		Config: config.StorageConfig{
			Type:   "sqlite",
			SQLite: config.SQLiteConfig{DumpPath: dump},
		},
	})
	require.NoError(t, b.Init())
	require.True(t, b.deps.Manager.InMemory())

	run := &core.Run{UUID: "kept-after-close", StartedAt: time.Now()}
	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.RecordFrame(&core.Frame{Index: 0, MaxDistance: 3}))
	require.NoError(t, b.EndRun(core.Outcome{FinishedAt: time.Now()}))
	require.NoError(t, b.Close())

	snap := database.NewManager(zerolog.Nop())
	db, err := snap.GetSqliteDB(dump)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	var runs, frames int64
	require.NoError(t, db.Model(&model.Run{}).Where("uuid = ?", "kept-after-close").Count(&runs).Error)
	require.NoError(t, db.Model(&model.FrameStat{}).Count(&frames).Error)
	assert.Equal(t, int64(1), runs)
	assert.Equal(t, int64(1), frames)
}

func TestClose_FileCatalogNotDumped(t *testing.T) {
	dir := t.TempDir()
	b := New(Dependencies{
		Manager: database.NewManager(zerolog.Nop()),
		Config: config.StorageConfig{
			Type: "sqlite",
			SQLite: config.SQLiteConfig{
				Path:     filepath.Join(dir, "catalog.db"),
				DumpPath: filepath.Join(dir, "dump.db"),
			},
		},
	})
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	assert.NoFileExists(t, filepath.Join(dir, "dump.db"))
}

func TestWriteQueue_KeepsItemsOnFailure(t *testing.T) {
	m := database.NewManager(zerolog.Nop())
	require.NoError(t, m.Connect(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "closed.db")},
	}))
	require.NoError(t, m.Setup())
	require.NoError(t, m.Close())

	q := queue.New[model.FrameStat]()
	q.Push(model.FrameStat{RunID: 1, FrameIndex: 0}, model.FrameStat{RunID: 1, FrameIndex: 1})

	assert.Error(t, writeQueue(m.DB, q, "frame stats"))
	assert.Equal(t, 2, q.Len(), "rows are pushed back for the next flush")
}
