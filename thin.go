package geostat

import (
	vec2d "github.com/flywave/go3d/float64/vec2"
)

// CellFilter thins observations on a regular cell raster: all
// observations sharing a cell are merged into one with the averaged
// position and value. Duplicate or near-duplicate stations make the
// kriging covariance matrix singular at zero nugget; thinning is the
// explicit pre-conditioning step for that, never applied implicitly.
type CellFilter struct {
	CellSize vec2d.T
}

func NewCellFilter(cellSize vec2d.T) *CellFilter {
	return &CellFilter{CellSize: cellSize}
}

type cell struct {
	pos   vec2d.T
	value float64
	num   int
}

// Filter merges the observations cell-wise. Output order follows cell
// raster order, deterministic for a given input.
func (f *CellFilter) Filter(obs []Observation) ([]Observation, error) {
	if len(obs) == 0 {
		return nil, errValidation("no observations to filter")
	}
	if f.CellSize[0] <= 0 || f.CellSize[1] <= 0 {
		return nil, errValidation("cell size must be positive, got %v", f.CellSize)
	}

	min, max := boundsOf(obs)
	span := vec2d.Sub(&max, &min)
	xs := int(span[0]/f.CellSize[0]) + 1
	ys := int(span[1]/f.CellSize[1]) + 1
	cells := make([]cell, xs*ys)

	for _, o := range obs {
		p := vec2d.Sub(&o.Pos, &min)
		x, y := int(p[0]/f.CellSize[0]), int(p[1]/f.CellSize[1])
		c := &cells[x+xs*y]
		c.num++
		c.pos.Add(&o.Pos)
		c.value += o.Value
	}

	out := make([]Observation, 0, len(obs))
	for i := range cells {
		c := &cells[i]
		if c.num == 0 {
			continue
		}
		inv := 1.0 / float64(c.num)
		out = append(out, Observation{
			Pos:   vec2d.T{c.pos[0] * inv, c.pos[1] * inv},
			Value: c.value * inv,
		})
	}
	return out, nil
}

func boundsOf(obs []Observation) (min, max vec2d.T) {
	min, max = obs[0].Pos, obs[0].Pos
	for _, o := range obs[1:] {
		for i := 0; i < 2; i++ {
			if o.Pos[i] < min[i] {
				min[i] = o.Pos[i]
			}
			if o.Pos[i] > max[i] {
				max[i] = o.Pos[i]
			}
		}
	}
	return min, max
}
