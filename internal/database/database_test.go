package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cellfield/bubbles/internal/config"
	"github.com/cellfield/bubbles/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.False(t, m.IsValid)
	assert.False(t, m.ShouldSaveLocal)
	assert.Nil(t, m.DB)
}

func TestConnect_Sqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	m := NewManager(zerolog.Nop())

	require.NoError(t, m.Connect(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: path},
	}))
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, path, m.SqliteFilePath)

	require.NoError(t, m.Setup())
	assert.True(t, m.DB.Migrator().HasTable(&model.Run{}))
	assert.True(t, m.DB.Migrator().HasTable(&model.FrameStat{}))
}

func TestConnect_PostgresFallsBackToSqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.db")
	m := NewManager(zerolog.Nop())

	err := m.Connect(config.StorageConfig{
		Type: "postgres",
		// nothing listens on port 1
		Postgres: config.PostgresConfig{
			Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "d", SSLMode: "disable",
		},
		SQLite: config.SQLiteConfig{Path: path},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
}

func TestConnect_UnknownType(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Connect(config.StorageConfig{Type: "memory"}))
}

func TestSetup_NotConnected(t *testing.T) {
	assert.Error(t, NewManager(zerolog.Nop()).Setup())
}

func TestDumpToDisk(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.Connect(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "live.db")},
	}))
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Setup())
	require.NoError(t, m.DB.Create(&model.Run{UUID: "dump-me", Status: "finished"}).Error)

	out := filepath.Join(dir, "snapshot.db")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))
	require.NoError(t, m.DumpToDisk(out))

	snap := NewManager(zerolog.Nop())
	db, err := snap.GetSqliteDB(out)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&model.Run{}).Where("uuid = ?", "dump-me").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	_ = sqlDB.Close()
}

func TestDumpToDisk_RequiresSqlite(t *testing.T) {
	assert.Error(t, NewManager(zerolog.Nop()).DumpToDisk(filepath.Join(t.TempDir(), "x.db")))
}

func TestConnect_SqliteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "nested", "bubbles.db")
	m := NewManager(zerolog.Nop())

	require.NoError(t, m.Connect(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: path},
	}))
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Setup())
	assert.FileExists(t, path)
	assert.False(t, m.InMemory())
}

func TestDumpToDisk_CreatesDirectory(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.Connect(config.StorageConfig{Type: "sqlite"}))
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Setup())
	assert.True(t, m.InMemory())

	out := filepath.Join(t.TempDir(), "dumps", "catalog.db")
	require.NoError(t, m.DumpToDisk(out))
	assert.FileExists(t, out)
}
