package geostat

import (
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
)

// Hull is the convex hull of a set of positions, used to mask grid
// evaluation to the region actually covered by observations. The hull
// is computed eagerly so a Hull is immutable and safe to share across
// grid workers.
type Hull struct {
	vertices []vec2d.T
}

// NewHull computes the convex hull of the given positions with
// quickhull. Vertices come back in counter-clockwise order.
func NewHull(points []vec2d.T) *Hull {
	h := &Hull{}
	if len(points) < 3 {
		h.vertices = append([]vec2d.T(nil), points...)
		return h
	}
	minX, maxX := extremePoints(points)
	h.vertices = append(quickHull(points, maxX, minX), quickHull(points, minX, maxX)...)
	return h
}

// HullOf is NewHull over observation positions.
func HullOf(obs []Observation) *Hull {
	pts := make([]vec2d.T, len(obs))
	for i := range obs {
		pts[i] = obs[i].Pos
	}
	return NewHull(pts)
}

// Vertices returns the hull polygon.
func (h *Hull) Vertices() []vec2d.T { return h.vertices }

// Rect is the axis-aligned bounding box of the hull.
func (h *Hull) Rect() vec2d.Rect {
	r := vec2d.Rect{Min: vec2d.MaxVal, Max: vec2d.MinVal}
	for i := range h.vertices {
		r.Extend(&h.vertices[i])
	}
	return r
}

// Contains reports whether a point lies inside the hull; points on the
// boundary count as inside so conditioning positions at the extremes
// are never masked away.
func (h *Hull) Contains(p vec2d.T) bool {
	if len(h.vertices) < 3 {
		return false
	}
	for i, start := range h.vertices {
		end := h.vertices[(i+1)%len(h.vertices)]
		v := vec2d.Sub(&p, &start)
		o := vec2d.Sub(&end, &start)
		if cross(v, o) > 0 {
			return false
		}
	}
	return true
}

func cross(lhs, rhs vec2d.T) float64 {
	return lhs[0]*rhs[1] - lhs[1]*rhs[0]
}

func extremePoints(points []vec2d.T) (minX, maxX vec2d.T) {
	minX = vec2d.T{math.MaxFloat64, 0}
	maxX = vec2d.T{-math.MaxFloat64, 0}
	for _, p := range points {
		if p[0] < minX[0] {
			minX = p
		}
		if maxX[0] < p[0] {
			maxX = p
		}
	}
	return minX, maxX
}

func quickHull(points []vec2d.T, start, end vec2d.T) []vec2d.T {
	line := vec2d.Sub(&end, &start)

	var lhs []vec2d.T
	var farthest vec2d.T
	best := 0.0
	for _, p := range points {
		v := vec2d.Sub(&p, &start)
		if d := cross(line, v); d > 0 {
			lhs = append(lhs, p)
			if d > best {
				best = d
				farthest = p
			}
		}
	}
	if len(lhs) == 0 {
		return []vec2d.T{end}
	}

	return append(
		quickHull(lhs, farthest, end),
		quickHull(lhs, start, farthest)...)
}
