package network

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// LineLength returns the geodesic length of a polyline in metres.
func LineLength(ls orb.LineString) float64 {
	if len(ls) < 2 {
		return 0
	}
	return geo.Length(ls)
}

// Bearing returns the initial bearing from a to b in degrees (0-360).
func Bearing(a, b orb.Point) float64 {
	return math.Mod(geo.Bearing(a, b)+360, 360)
}

// Interpolate linearly interpolates between two points.
func Interpolate(a, b orb.Point, fraction float64) orb.Point {
	return orb.Point{
		a[0] + (b[0]-a[0])*fraction,
		a[1] + (b[1]-a[1])*fraction,
	}
}

// PointAlong resolves the point and bearing d metres along ls. Distances
// outside the line are clamped to its ends. A line with fewer than two points
// yields its only point (or the zero point) and a bearing of 0.
func PointAlong(ls orb.LineString, d float64) (orb.Point, float64) {
	switch len(ls) {
	case 0:
		return orb.Point{}, 0
	case 1:
		return ls[0], 0
	}
	if d <= 0 {
		return ls[0], Bearing(ls[0], ls[1])
	}

	var walked float64
	for i := 1; i < len(ls); i++ {
		step := geo.Distance(ls[i-1], ls[i])
		if walked+step >= d && step > 0 {
			return Interpolate(ls[i-1], ls[i], (d-walked)/step), Bearing(ls[i-1], ls[i])
		}
		walked += step
	}
	last := len(ls) - 1
	return ls[last], Bearing(ls[last-1], ls[last])
}

// Projection is the nearest point on a polyline to some target point.
type Projection struct {
	Point    orb.Point
	Distance float64 // metres along the line from its start
	Offset   float64 // metres between the target and Point
	Segment  int     // index of the segment's first vertex
}

// ProjectOnto finds the point of ls closest to p. Segments are treated as
// straight in a local equirectangular frame, which is accurate at track scale.
func ProjectOnto(ls orb.LineString, p orb.Point) (Projection, bool) {
	if len(ls) == 0 {
		return Projection{}, false
	}
	if len(ls) == 1 {
		return Projection{Point: ls[0], Offset: geo.Distance(ls[0], p)}, true
	}

	best := Projection{Offset: math.Inf(1)}
	var walked float64
	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		step := geo.Distance(a, b)
		_, ratio := distanceToSegment(p, a, b)
		q := Interpolate(a, b, ratio)
		if off := geo.Distance(p, q); off < best.Offset {
			best = Projection{Point: q, Distance: walked + ratio*step, Offset: off, Segment: i - 1}
		}
		walked += step
	}
	return best, true
}

// distanceToSegment returns the planar distance from p to segment ab and the
// clamped ratio (0..1) of the foot of the perpendicular along ab.
func distanceToSegment(p, a, b orb.Point) (float64, float64) {
	k := math.Cos((a[1] + b[1]) / 2 * math.Pi / 180)
	ax, ay := a[0]*k, a[1]
	bx, by := b[0]*k, b[1]
	px, py := p[0]*k, p[1]

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay), 0
	}
	ratio := ((px-ax)*dx + (py-ay)*dy) / lenSq
	ratio = math.Max(0, math.Min(1, ratio))
	fx, fy := ax+ratio*dx, ay+ratio*dy
	return math.Hypot(px-fx, py-fy), ratio
}
