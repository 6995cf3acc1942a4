package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunReport is the root JSON structure
type RunReport struct {
	UUID       string         `json:"uuid"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Frames     int            `json:"frames"`
	Cells      int            `json:"cells"`
	Seed       uint64         `json:"seed"`
	Variant    string         `json:"variant"`
	OutputPath string         `json:"outputPath"`
	Format     string         `json:"format"`
	OutputSize int64          `json:"outputSize"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	FrameStats []FrameJSON    `json:"frameStats"`
}

// FrameJSON is one frame of the report
type FrameJSON struct {
	Index       int     `json:"index"`
	Phase       float64 `json:"phase"`
	MaxDistance float64 `json:"maxDistance"`
	DurationMs  float64 `json:"durationMs"`
}

func (b *Backend) buildReport() RunReport {
	r := b.run
	report := RunReport{
		UUID:       r.UUID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Width:      r.Width,
		Height:     r.Height,
		Frames:     r.Frames,
		Cells:      r.Cells,
		Seed:       r.Seed,
		Variant:    r.Variant,
		OutputPath: r.OutputPath,
		Format:     r.Format,
		OutputSize: r.OutputSize,
		Status:     string(r.Status),
		Error:      r.Error,
		Params:     r.Params,
		FrameStats: make([]FrameJSON, 0, len(b.frames)),
	}
	for _, f := range b.frames {
		report.FrameStats = append(report.FrameStats, FrameJSON{
			Index:       f.Index,
			Phase:       f.Phase,
			MaxDistance: f.MaxDistance,
			DurationMs:  float64(f.Duration) / float64(time.Millisecond),
		})
	}
	return report
}

// exportJSON writes the run report to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	report := b.buildReport()

	timestamp := b.run.StartedAt.UTC().Format("20060102_150405")
	filename := fmt.Sprintf("run_%s_%s.json", timestamp, b.run.UUID)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, report)
	} else {
		err = writeJSON(outputPath, report)
	}
	if err != nil {
		return err
	}

	b.exportedPath = outputPath
	return nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return f.Close()
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if err := json.NewEncoder(gw).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return f.Close()
}
