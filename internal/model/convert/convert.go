// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"time"

	"github.com/cellfield/bubbles/internal/model"
	"github.com/cellfield/bubbles/internal/model/core"
	"gorm.io/datatypes"
)

// paramsToJSON converts run parameters to datatypes.JSON for DB storage.
func paramsToJSON(params map[string]any) datatypes.JSON {
	if len(params) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(params)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToRun converts a core.Run to a GORM model.Run.
func CoreToRun(r core.Run) model.Run {
	m := model.Run{
		UUID:       r.UUID,
		StartedAt:  r.StartedAt,
		Width:      r.Width,
		Height:     r.Height,
		Frames:     r.Frames,
		Cells:      r.Cells,
		Seed:       r.Seed,
		Variant:    r.Variant,
		OutputPath: r.OutputPath,
		Format:     r.Format,
		Status:     string(r.Status),
		Error:      r.Error,
		OutputSize: r.OutputSize,
		Params:     paramsToJSON(r.Params),
	}
	m.ID = r.ID
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		m.FinishedAt = &finished
	}
	return m
}

// RunToCore converts a GORM model.Run back to a core.Run.
func RunToCore(m model.Run) core.Run {
	r := core.Run{
		ID:         m.ID,
		UUID:       m.UUID,
		StartedAt:  m.StartedAt,
		Width:      m.Width,
		Height:     m.Height,
		Frames:     m.Frames,
		Cells:      m.Cells,
		Seed:       m.Seed,
		Variant:    m.Variant,
		OutputPath: m.OutputPath,
		Format:     m.Format,
		Status:     core.RunStatus(m.Status),
		Error:      m.Error,
		OutputSize: m.OutputSize,
	}
	if m.FinishedAt != nil {
		r.FinishedAt = *m.FinishedAt
	}
	if len(m.Params) > 0 {
		_ = json.Unmarshal(m.Params, &r.Params)
	}
	return r
}

// CoreToFrameStat converts a core.Frame of run runID to a GORM model.FrameStat.
func CoreToFrameStat(runID uint, f core.Frame) model.FrameStat {
	return model.FrameStat{
		RunID:       runID,
		FrameIndex:  f.Index,
		Phase:       f.Phase,
		MaxDistance: f.MaxDistance,
		DurationMs:  float64(f.Duration) / float64(time.Millisecond),
	}
}

// FrameStatToCore converts a GORM model.FrameStat back to a core.Frame.
func FrameStatToCore(m model.FrameStat) core.Frame {
	return core.Frame{
		Index:       m.FrameIndex,
		Phase:       m.Phase,
		MaxDistance: m.MaxDistance,
		Duration:    time.Duration(m.DurationMs * float64(time.Millisecond)),
	}
}
