// Package mesh holds the triangular mesh model shared by the readers,
// rasterizer and cross-section samplers.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidIndex is returned when a triangle references a vertex that does not exist
var ErrInvalidIndex = errors.New("triangle references a missing vertex")

// Vertex is a mesh node. Z carries the node attribute (depth for AdH meshes).
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Triangle is a mesh element referencing three 0-based vertex indices
type Triangle struct {
	V        [3]int `json:"v"`
	Material int    `json:"material,omitempty"`
}

// Mesh is a set of vertices and the triangles connecting them
type Mesh struct {
	Vertices  []Vertex   `json:"vertices"`
	Triangles []Triangle `json:"triangles"`
}

// Validate checks that every triangle index references an existing vertex
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, t := range m.Triangles {
		for _, v := range t.V {
			if v < 0 || v >= n {
				return fmt.Errorf("triangle %d index %d (vertex count %d): %w", i, v, n, ErrInvalidIndex)
			}
		}
	}
	return nil
}

// Bounds returns the planar extent of the mesh vertices
func (m *Mesh) Bounds() orb.Bound {
	if len(m.Vertices) == 0 {
		return orb.Bound{}
	}

	b := orb.Bound{
		Min: orb.Point{m.Vertices[0].X, m.Vertices[0].Y},
		Max: orb.Point{m.Vertices[0].X, m.Vertices[0].Y},
	}
	for _, v := range m.Vertices[1:] {
		b = b.Extend(orb.Point{v.X, v.Y})
	}
	return b
}

// Depths returns the vertex attribute as a flat slice in vertex order
func (m *Mesh) Depths() []float64 {
	out := make([]float64, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Z
	}
	return out
}

// Project returns a copy of the mesh with every vertex passed through p.
// Triangles are shared with the receiver since projection never changes topology.
func (m *Mesh) Project(p orb.Projection) *Mesh {
	if p == nil {
		return m
	}

	out := &Mesh{
		Vertices:  make([]Vertex, len(m.Vertices)),
		Triangles: m.Triangles,
	}
	for i, v := range m.Vertices {
		pt := p(orb.Point{v.X, v.Y})
		out.Vertices[i] = Vertex{X: pt[0], Y: pt[1], Z: v.Z}
	}
	return out
}

// ProjectionByName maps a configured projection name to an orb projection.
// An empty name or "none" yields a nil projection, meaning coordinates are used as-is.
func ProjectionByName(name string) (orb.Projection, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "wgs84-to-mercator":
		return project.WGS84.ToMercator, nil
	case "mercator-to-wgs84":
		return project.Mercator.ToWGS84, nil
	default:
		return nil, fmt.Errorf("unsupported projection: %s", name)
	}
}

// Summary describes the distribution of a per-vertex field
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Stats summarizes the finite entries of values. NaN and Inf are skipped; a
// field with no finite entries yields a zero Summary.
func Stats(values []float64) Summary {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return Summary{}
	}

	s := Summary{Count: len(finite), Min: finite[0], Max: finite[0]}
	for _, v := range finite[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if len(finite) == 1 {
		s.Mean = finite[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(finite, nil)
	return s
}
