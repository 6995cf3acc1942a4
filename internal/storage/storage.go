// Package storage records runs and their per-frame statistics in a catalog.
package storage

import (
	"context"

	"github.com/cellfield/bubbles/internal/model/core"
	"github.com/cellfield/bubbles/internal/render"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management (StartRun assigns the run ID)
	StartRun(run *core.Run) error
	EndRun(outcome core.Outcome) error

	// Frame recording
	RecordFrame(f *core.Frame) error
}

// Exporter is an optional interface for backends that write a report file.
type Exporter interface {
	ExportedFilePath() string
}

// Nop discards everything. It backs the "none" storage type.
type Nop struct{}

func (Nop) Init() error                   { return nil }
func (Nop) Close() error                  { return nil }
func (Nop) StartRun(*core.Run) error      { return nil }
func (Nop) EndRun(core.Outcome) error     { return nil }
func (Nop) RecordFrame(*core.Frame) error { return nil }

// FrameObserver records every emitted frame in b.
func FrameObserver(b Backend) render.Observer {
	return render.ObserverFunc(func(_ context.Context, stats render.FrameStats) error {
		return b.RecordFrame(&core.Frame{
			Index:       stats.Index,
			Phase:       stats.Phase,
			MaxDistance: stats.MaxDistance,
			Duration:    stats.Duration,
		})
	})
}
