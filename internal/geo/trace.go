// Package geo records feature point trajectories and exports them as a
// GeoJSON FeatureCollection in pixel coordinates.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cellfield/bubbles/internal/render"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Feature is one GeoJSON feature.
type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// FeatureCollection is the GeoJSON document written by Recorder.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Recorder collects the positions of every feature point across frames. It
// implements render.Observer.
type Recorder struct {
	mu     sync.Mutex
	tracks [][]float64
	frames int
}

var _ render.Observer = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ObserveFrame appends the frame's site positions. Consecutive repeats are
// collapsed.
func (r *Recorder) ObserveFrame(_ context.Context, stats render.FrameStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tracks == nil {
		r.tracks = make([][]float64, len(stats.Sites))
	}
	if len(stats.Sites) != len(r.tracks) {
		return fmt.Errorf("frame %d has %d sites, expected %d", stats.Index, len(stats.Sites), len(r.tracks))
	}

	for i, p := range stats.Sites {
		x, y := float64(p.X), float64(p.Y)
		t := r.tracks[i]
		if n := len(t); n >= 2 && t[n-2] == x && t[n-1] == y {
			continue
		}
		r.tracks[i] = append(t, x, y)
	}
	r.frames++
	return nil
}

// Frames is the number of frames observed.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Geometries returns one geometry per feature point: a Point when it never
// moved, a LineString through its positions otherwise.
func (r *Recorder) Geometries() ([]geom.Geometry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]geom.Geometry, 0, len(r.tracks))
	for i, t := range r.tracks {
		g, err := trackGeometry(t)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func trackGeometry(flat []float64) (geom.Geometry, error) {
	if len(flat) == 2 {
		pt, err := geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: flat[0], Y: flat[1]},
			Type: geom.DimXY,
		})
		if err != nil {
			return geom.Geometry{}, err
		}
		return pt.AsGeometry(), nil
	}
	seq := geom.NewSequence(append([]float64(nil), flat...), geom.DimXY)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return geom.Geometry{}, err
	}
	return ls.AsGeometry(), nil
}

// Collection builds the FeatureCollection of all tracks.
func (r *Recorder) Collection() (FeatureCollection, error) {
	gs, err := r.Geometries()
	if err != nil {
		return FeatureCollection{}, err
	}
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
	for i, g := range gs {
		raw, err := g.MarshalJSON()
		if err != nil {
			return FeatureCollection{}, fmt.Errorf("encoding track %d: %w", i, err)
		}
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: raw,
			Properties: map[string]any{
				"point":  i,
				"static": g.Type() == geom.TypePoint,
			},
		})
	}
	return fc, nil
}

// WriteTo writes the FeatureCollection as JSON.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	fc, err := r.Collection()
	if err != nil {
		return 0, err
	}
	return writeCollection(w, fc)
}

func writeCollection(w io.Writer, fc FeatureCollection) (int64, error) {
	data, err := json.Marshal(fc)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(append(data, '\n'))
	return int64(n), err
}

// Save writes the FeatureCollection to path. Nothing is created when the
// tracks cannot be encoded.
func (r *Recorder) Save(path string) error {
	fc, err := r.Collection()
	if err != nil {
		return fmt.Errorf("building trace: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	if _, err := writeCollection(f, fc); err != nil {
		f.Close()
		return fmt.Errorf("writing trace file: %w", err)
	}
	return f.Close()
}
