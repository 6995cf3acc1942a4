package convert

import (
	"testing"
	"time"

	"github.com/cellfield/bubbles/internal/model/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRoundTrip(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := core.Run{
		ID:         7,
		UUID:       "0b7e1a7c-2f0e-4e4e-9c59-0c7d4b8c2a11",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Width:      320,
		Height:     200,
		Frames:     24,
		Cells:      12,
		Seed:       42,
		Variant:    "orbit",
		OutputPath: "out.gif",
		Format:     "gif",
		Status:     core.RunFinished,
		OutputSize: 1234,
		Params:     map[string]any{"dither": true, "delay": float64(4)},
	}

	m := CoreToRun(in)
	assert.Equal(t, uint(7), m.ID)
	require.NotNil(t, m.FinishedAt)
	assert.JSONEq(t, `{"dither": true, "delay": 4}`, string(m.Params))

	assert.Equal(t, in, RunToCore(m))
}

func TestCoreToRun_Unfinished(t *testing.T) {
	m := CoreToRun(core.Run{UUID: "x", Status: core.RunRunning})
	assert.Nil(t, m.FinishedAt)
	assert.Equal(t, "{}", string(m.Params))
	assert.Equal(t, "running", m.Status)
}

func TestFrameStatRoundTrip(t *testing.T) {
	f := core.Frame{Index: 3, Phase: 1.5, MaxDistance: 42.25, Duration: 1500 * time.Microsecond}

	m := CoreToFrameStat(9, f)
	assert.Equal(t, uint(9), m.RunID)
	assert.Equal(t, 3, m.FrameIndex)
	assert.InDelta(t, 1.5, m.DurationMs, 1e-9)

	assert.Equal(t, f, FrameStatToCore(m))
}
