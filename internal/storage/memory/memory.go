// Package memory keeps the run catalog in memory and exports a JSON report
// when the run ends.
package memory

import (
	"errors"
	"sync"

	"github.com/cellfield/bubbles/internal/config"
	"github.com/cellfield/bubbles/internal/model/core"
)

// ErrNoRun is returned when frames arrive before StartRun.
var ErrNoRun = errors.New("no run started")

// Backend stores run data in memory and exports to JSON
type Backend struct {
	cfg    config.MemoryConfig
	run    *core.Run
	frames []core.Frame

	idCounter    uint
	exportedPath string
	mu           sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run, discarding anything recorded before.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	run.ID = b.idCounter
	if run.Status == "" {
		run.Status = core.RunRunning
	}
	b.run = run
	b.frames = make([]core.Frame, 0, run.Frames)
	b.exportedPath = ""
	return nil
}

// RecordFrame appends the statistics of one frame.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.frames = append(b.frames, *f)
	return nil
}

// EndRun closes the run and writes the report.
func (b *Backend) EndRun(outcome core.Outcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.run.FinishedAt = outcome.FinishedAt
	b.run.OutputSize = outcome.OutputSize
	if outcome.Err != nil {
		b.run.Status = core.RunFailed
		b.run.Error = outcome.Err.Error()
	} else {
		b.run.Status = core.RunFinished
	}
	return b.exportJSON()
}

// GetRun returns a copy of the current run.
func (b *Backend) GetRun() (core.Run, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.run == nil {
		return core.Run{}, false
	}
	return *b.run, true
}

// GetFrames returns a copy of the recorded frames.
func (b *Backend) GetFrames() []core.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Frame(nil), b.frames...)
}

// ExportedFilePath returns the path of the last written report.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exportedPath
}
