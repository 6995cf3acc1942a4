package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&FrameStat{},
}

// Run is one generator invocation.
type Run struct {
	gorm.Model
	UUID       string         `json:"uuid" gorm:"size:36;uniqueIndex"`
	StartedAt  time.Time      `json:"startedAt" gorm:"index"`
	FinishedAt *time.Time     `json:"finishedAt"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Frames     int            `json:"frames"`
	Cells      int            `json:"cells"`
	Seed       uint64         `json:"seed"`
	Variant    string         `json:"variant" gorm:"size:16"`
	OutputPath string         `json:"outputPath" gorm:"size:1024"`
	Format     string         `json:"format" gorm:"size:8"`
	Status     string         `json:"status" gorm:"size:16;index"`
	Error      string         `json:"error" gorm:"size:2048"`
	OutputSize int64          `json:"outputSize"`
	Params     datatypes.JSON `json:"params"`
	FrameStats []FrameStat    `json:"frameStats" gorm:"foreignKey:RunID"`
}

// TableName returns the table name for Run
func (*Run) TableName() string {
	return "runs"
}

// FrameStat is the per-frame statistics of a run.
type FrameStat struct {
	ID          uint    `json:"id" gorm:"primarykey;autoIncrement"`
	RunID       uint    `json:"runId" gorm:"index:idx_run_frame,unique"`
	FrameIndex  int     `json:"frameIndex" gorm:"index:idx_run_frame,unique"`
	Phase       float64 `json:"phase"`
	MaxDistance float64 `json:"maxDistance"`
	DurationMs  float64 `json:"durationMs"`
}

// TableName returns the table name for FrameStat
func (*FrameStat) TableName() string {
	return "frame_stats"
}
