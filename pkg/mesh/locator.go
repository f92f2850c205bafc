package mesh

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// baryEpsilon lets points that sit exactly on a shared edge resolve to a triangle
const baryEpsilon = 1e-9

// Locator answers point-in-triangle queries using a uniform bucket grid
// laid over the triangle bounding boxes.
type Locator struct {
	mesh    *Mesh
	bounds  orb.Bound
	nx, ny  int
	cellW   float64
	cellH   float64
	buckets [][]int32
}

// NewLocator indexes the triangles of m. The grid is sized so that each
// bucket holds roughly one triangle on average.
func NewLocator(m *Mesh) (*Locator, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	l := &Locator{mesh: m, bounds: m.Bounds()}
	if len(m.Triangles) == 0 {
		return l, nil
	}

	w, h := l.bounds.Max[0]-l.bounds.Min[0], l.bounds.Max[1]-l.bounds.Min[1]
	aspect := 1.0
	if w > 0 && h > 0 {
		aspect = w / h
	}
	n := float64(len(m.Triangles))
	l.nx = max(1, int(math.Ceil(math.Sqrt(n*aspect))))
	l.ny = max(1, int(math.Ceil(n/float64(l.nx))))

	// Avoid zero-width cells for degenerate (collinear) meshes
	l.cellW = math.Max(w, 1e-12) / float64(l.nx)
	l.cellH = math.Max(h, 1e-12) / float64(l.ny)
	l.buckets = make([][]int32, l.nx*l.ny)

	for ti, t := range m.Triangles {
		a, b, c := m.Vertices[t.V[0]], m.Vertices[t.V[1]], m.Vertices[t.V[2]]
		i0, j0 := l.cell(math.Min(a.X, math.Min(b.X, c.X)), math.Min(a.Y, math.Min(b.Y, c.Y)))
		i1, j1 := l.cell(math.Max(a.X, math.Max(b.X, c.X)), math.Max(a.Y, math.Max(b.Y, c.Y)))
		for j := j0; j <= j1; j++ {
			for i := i0; i <= i1; i++ {
				k := j*l.nx + i
				l.buckets[k] = append(l.buckets[k], int32(ti))
			}
		}
	}

	return l, nil
}

// cell clamps a coordinate to its bucket column and row
func (l *Locator) cell(x, y float64) (int, int) {
	i := int((x - l.bounds.Min[0]) / l.cellW)
	j := int((y - l.bounds.Min[1]) / l.cellH)
	return min(max(i, 0), l.nx-1), min(max(j, 0), l.ny-1)
}

// Locate returns the triangle containing (x, y) and the barycentric weights
// of its three vertices.
func (l *Locator) Locate(x, y float64) (int, [3]float64, bool) {
	if l.buckets == nil || !l.bounds.Contains(orb.Point{x, y}) {
		return -1, [3]float64{}, false
	}

	i, j := l.cell(x, y)
	for _, ti := range l.buckets[j*l.nx+i] {
		t := l.mesh.Triangles[ti]
		if w, ok := Barycentric(l.mesh.Vertices[t.V[0]], l.mesh.Vertices[t.V[1]], l.mesh.Vertices[t.V[2]], x, y); ok {
			return int(ti), w, true
		}
	}
	return -1, [3]float64{}, false
}

// Interpolate linearly interpolates a per-vertex field at (x, y). ok is false
// off the mesh or when values does not have one entry per vertex.
func (l *Locator) Interpolate(x, y float64, values []float64) (float64, bool) {
	if l.mesh.CheckValues(values) != nil {
		return math.NaN(), false
	}
	ti, w, ok := l.Locate(x, y)
	if !ok {
		return math.NaN(), false
	}
	return l.mesh.Evaluate(ti, w, values), true
}

// Evaluate combines the field values at the vertices of triangle ti using
// barycentric weights w. values must have one entry per vertex.
func (m *Mesh) Evaluate(ti int, w [3]float64, values []float64) float64 {
	t := m.Triangles[ti]
	return w[0]*values[t.V[0]] + w[1]*values[t.V[1]] + w[2]*values[t.V[2]]
}

// CheckValues verifies that a per-vertex field lines up with the mesh vertices
func (m *Mesh) CheckValues(values []float64) error {
	if len(values) != len(m.Vertices) {
		return fmt.Errorf("field has %d values, mesh has %d vertices", len(values), len(m.Vertices))
	}
	return nil
}

// Barycentric returns the weights of (x, y) relative to triangle abc.
// ok is false when the point lies outside the triangle or the triangle is degenerate.
func Barycentric(a, b, c Vertex, x, y float64) ([3]float64, bool) {
	det := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if det == 0 {
		return [3]float64{}, false
	}

	l1 := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / det
	l2 := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / det
	l3 := 1 - l1 - l2
	if l1 < -baryEpsilon || l2 < -baryEpsilon || l3 < -baryEpsilon {
		return [3]float64{}, false
	}
	return [3]float64{l1, l2, l3}, true
}
