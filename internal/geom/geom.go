package geom

import "math"

// Point is a position in the galaxy in light-years.
type Point struct {
	X, Y, Z float64
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// DistXYZ returns the Euclidean distance from p to the point (x, y, z).
func DistXYZ(p Point, x, y, z float64) float64 {
	return Dist(p, Point{X: x, Y: y, Z: z})
}
