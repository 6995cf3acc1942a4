// Package core holds the storage-agnostic records of a rendering run.
package core

import "time"

// RunStatus is the lifecycle state of a catalogued run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// Run describes one invocation of the generator.
type Run struct {
	ID         uint
	UUID       string
	StartedAt  time.Time
	FinishedAt time.Time
	Width      int
	Height     int
	Frames     int
	Cells      int
	Seed       uint64
	Variant    string
	OutputPath string
	Format     string
	Status     RunStatus
	Error      string
	OutputSize int64
	Params     map[string]any
}

// Frame is the statistics of one emitted frame.
type Frame struct {
	Index       int
	Phase       float64
	MaxDistance float64
	Duration    time.Duration
}

// Outcome closes a run.
type Outcome struct {
	FinishedAt time.Time
	Err        error
	OutputSize int64
}
