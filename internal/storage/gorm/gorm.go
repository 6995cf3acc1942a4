// Package gormstorage implements the storage.Backend interface on GORM
// (SQLite or PostgreSQL) with a frame queue drained by a background writer.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cellfield/bubbles/internal/config"
	"github.com/cellfield/bubbles/internal/database"
	"github.com/cellfield/bubbles/internal/model"
	"github.com/cellfield/bubbles/internal/model/convert"
	"github.com/cellfield/bubbles/internal/model/core"
	"github.com/cellfield/bubbles/internal/queue"
	"gorm.io/gorm"
)

// ErrNoRun is returned when frames arrive before StartRun.
var ErrNoRun = errors.New("no run started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	Manager *database.Manager
	Config  config.StorageConfig
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	frames *queue.Queue[model.FrameStat]
	runID  atomic.Uint64

	stopChan chan struct{}
	wg       sync.WaitGroup
	writeMu  sync.Mutex
	dbReady  bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init connects if needed, migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	m := b.deps.Manager
	if m == nil {
		return errors.New("gorm backend needs a database manager")
	}
	if m.DB == nil {
		if err := m.Connect(b.deps.Config); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}
	if err := m.Setup(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.frames = queue.New[model.FrameStat]()
	b.stopChan = make(chan struct{})
	b.dbReady = true
	b.startDBWriter()
	return nil
}

// Close stops the DB writer goroutine, writes what is left and closes the database.
func (b *Backend) Close() error {
	if !b.dbReady {
		return nil
	}
	close(b.stopChan)
	b.wg.Wait()
	b.dbReady = false

	err := b.flush()
	if err == nil {
		err = b.saveLocal()
	}
	return errors.Join(err, b.deps.Manager.Close())
}

// saveLocal snapshots an in-memory catalog to the configured dump path.
func (b *Backend) saveLocal() error {
	m := b.deps.Manager
	path := b.deps.Config.SQLite.DumpPath
	if !m.InMemory() || path == "" {
		return nil
	}
	if err := m.DumpToDisk(path); err != nil {
		return fmt.Errorf("failed to save in-memory catalog: %w", err)
	}
	m.Logger.Info().Str("path", path).Msg("Saved in-memory catalog to disk")
	return nil
}

func (b *Backend) db() *gorm.DB {
	return b.deps.Manager.DB
}

// StartRun inserts the run row and assigns its ID.
func (b *Backend) StartRun(run *core.Run) error {
	if !b.dbReady {
		return errors.New("backend not initialized")
	}
	if run.Status == "" {
		run.Status = core.RunRunning
	}

	row := convert.CoreToRun(*run)
	if err := b.db().Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	run.ID = row.ID
	b.runID.Store(uint64(row.ID))

	b.deps.Manager.Logger.Info().Str("uuid", run.UUID).Uint("id", row.ID).Msg("Run started")
	return nil
}

// RecordFrame queues a frame for the writer.
func (b *Backend) RecordFrame(f *core.Frame) error {
	runID := uint(b.runID.Load())
	if runID == 0 {
		return ErrNoRun
	}
	b.frames.Push(convert.CoreToFrameStat(runID, *f))
	return nil
}

// EndRun writes pending frames and updates the run row.
func (b *Backend) EndRun(outcome core.Outcome) error {
	runID := uint(b.runID.Load())
	if runID == 0 {
		return ErrNoRun
	}
	if err := b.flush(); err != nil {
		return err
	}

	status := core.RunFinished
	errText := ""
	if outcome.Err != nil {
		status = core.RunFailed
		errText = outcome.Err.Error()
	}
	finished := outcome.FinishedAt
	err := b.db().Model(&model.Run{}).Where("id = ?", runID).Updates(map[string]any{
		"finished_at": &finished,
		"status":      string(status),
		"error":       errText,
		"output_size": outcome.OutputSize,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update run %d: %w", runID, err)
	}

	b.deps.Manager.Logger.Info().Uint("id", runID).Str("status", string(status)).Msg("Run ended")
	return nil
}

// GetRun loads a run with its frame statistics ordered by frame index.
func (b *Backend) GetRun(id uint) (core.Run, []core.Frame, error) {
	var row model.Run
	err := b.db().Preload("FrameStats", func(db *gorm.DB) *gorm.DB {
		return db.Order("frame_index")
	}).First(&row, id).Error
	if err != nil {
		return core.Run{}, nil, err
	}

	frames := make([]core.Frame, 0, len(row.FrameStats))
	for _, fs := range row.FrameStats {
		frames = append(frames, convert.FrameStatToCore(fs))
	}
	return convert.RunToCore(row), frames, nil
}

// flush drains the frame queue into the database.
func (b *Backend) flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return writeQueue(b.db(), b.frames, "frame stats")
}

// writeQueue writes all items from a queue to the database in a transaction.
// Items that fail to write are pushed back.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain()
	tx := db.Begin()
	if tx.Error != nil {
		q.Push(items...)
		return fmt.Errorf("error starting %s transaction: %w", name, tx.Error)
	}
	if err := tx.Create(&items).Error; err != nil {
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Push(items...)
		return fmt.Errorf("error committing %s: %w", name, err)
	}
	return nil
}

// startDBWriter starts the background goroutine that drains the queue into the DB.
func (b *Backend) startDBWriter() {
	log := b.deps.Manager.Logger

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-b.stopChan:
				return
			case <-b.frames.Ready():
				if err := b.flush(); err != nil {
					log.Error().Err(err).Msg("DB writer failed")
				}
			}
		}
	}()
}
