// Package geom holds the integer pixel coordinates shared by the field,
// sampler and trajectory recorder.
package geom

import "math"

// Point is an integer pixel coordinate.
type Point struct {
	X, Y int64
}

// Vec is a real-valued position used while computing motion.
type Vec struct {
	X, Y float64
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y int64) Point {
	return Point{X: x, Y: y}
}

// Truncate converts v to a pixel coordinate, truncating toward zero.
func (v Vec) Truncate() Point {
	return Point{X: int64(v.X), Y: int64(v.Y)}
}

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	dx := float64(p.X - q.X)
	dy := float64(p.Y - q.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Diagonal is the distance between opposite corners of a width x height grid,
// i.e. from (0,0) to (width-1, height-1).
func Diagonal(width, height int) float64 {
	return Distance(Point{}, Point{X: int64(width) - 1, Y: int64(height) - 1})
}
