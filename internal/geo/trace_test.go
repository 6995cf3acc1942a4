package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cellfield/bubbles/internal/geom"
	"github.com/cellfield/bubbles/internal/render"
	sf "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func observe(t *testing.T, r *Recorder, frames ...[]geom.Point) {
	t.Helper()
	for i, sites := range frames {
		require.NoError(t, r.ObserveFrame(context.Background(), render.FrameStats{Index: i, Sites: sites}))
	}
}

func TestRecorder_StaticAndMoving(t *testing.T) {
	r := NewRecorder()
	observe(t, r,
		[]geom.Point{{X: 5, Y: 5}, {X: 0, Y: 0}},
		[]geom.Point{{X: 5, Y: 5}, {X: 1, Y: 2}},
		[]geom.Point{{X: 5, Y: 5}, {X: 1, Y: 2}},
		[]geom.Point{{X: 5, Y: 5}, {X: 3, Y: 4}},
	)
	assert.Equal(t, 4, r.Frames())

	gs, err := r.Geometries()
	require.NoError(t, err)
	require.Len(t, gs, 2)
	assert.Equal(t, sf.TypePoint, gs[0].Type())
	require.Equal(t, sf.TypeLineString, gs[1].Type())

	ls := gs[1].MustAsLineString()
	assert.Equal(t, 3, ls.Coordinates().Length(), "repeated positions collapse")
}

func TestRecorder_SiteCountMismatch(t *testing.T) {
	r := NewRecorder()
	observe(t, r, []geom.Point{{X: 1, Y: 1}})
	err := r.ObserveFrame(context.Background(), render.FrameStats{Index: 1, Sites: []geom.Point{{}, {}}})
	assert.Error(t, err)
}

func TestRecorder_WriteTo(t *testing.T) {
	r := NewRecorder()
	observe(t, r,
		[]geom.Point{{X: 2, Y: 3}, {X: 0, Y: 0}},
		[]geom.Point{{X: 2, Y: 3}, {X: 4, Y: 1}},
	)

	var buf bytes.Buffer
	_, err := r.WriteTo(&buf)
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	assert.Equal(t, "Point", doc.Features[0].Geometry.Type)
	assert.JSONEq(t, `[2,3]`, string(doc.Features[0].Geometry.Coordinates))
	assert.Equal(t, true, doc.Features[0].Properties["static"])
	assert.Equal(t, "LineString", doc.Features[1].Geometry.Type)
	assert.JSONEq(t, `[[0,0],[4,1]]`, string(doc.Features[1].Geometry.Coordinates))
	assert.Equal(t, float64(1), doc.Features[1].Properties["point"])
}

func TestRecorder_Empty(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewRecorder().WriteTo(&buf)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, buf.String())
}

func TestRecorder_Save(t *testing.T) {
	r := NewRecorder()
	observe(t, r, []geom.Point{{X: 1, Y: 1}})

	path := filepath.Join(t.TempDir(), "trace.geojson")
	require.NoError(t, r.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)

	assert.Error(t, r.Save(filepath.Join(t.TempDir(), "missing", "trace.geojson")))
}

func TestTrackGeometry_RejectsNonFinite(t *testing.T) {
	_, err := trackGeometry([]float64{math.Inf(1), 0})
	assert.Error(t, err)

	_, err = trackGeometry([]float64{0, 0, math.NaN(), 1})
	assert.Error(t, err)

	g, err := trackGeometry([]float64{0, 0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, sf.TypeLineString, g.Type())
}

func TestRecorder_SaveReportsGeometryError(t *testing.T) {
	r := NewRecorder()
	r.tracks = [][]float64{{math.NaN(), 0}}

	path := filepath.Join(t.TempDir(), "trace.geojson")
	assert.Error(t, r.Save(path))
	assert.NoFileExists(t, path)
}
