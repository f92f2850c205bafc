// Package raster renders per-vertex mesh fields onto regular grids, the
// fixed-resolution aggregation step that makes large meshes cheap to display
// and to sample.
package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrissnell/meshview/pkg/mesh"
	"github.com/paulmach/orb"
)

// Agg selects how overlapping triangles combine into a pixel
type Agg string

const (
	// AggLinear keeps the last interpolated value written to a pixel
	AggLinear Agg = "linear"
	AggMax    Agg = "max"
	AggMean   Agg = "mean"
)

// MaxPixels caps the size of a single grid (4096x4096)
const MaxPixels = 1 << 24

var (
	ErrEmptyGrid     = errors.New("raster dimensions must be positive")
	ErrTooManyPixels = fmt.Errorf("raster exceeds %d pixels", MaxPixels)
)

// CheckSize rejects grid dimensions that are empty or larger than MaxPixels
func CheckSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%dx%d: %w", width, height, ErrEmptyGrid)
	}
	// Compare by division so huge dimensions cannot overflow the product
	if width > MaxPixels/height {
		return fmt.Errorf("%dx%d: %w", width, height, ErrTooManyPixels)
	}
	return nil
}

// Options controls a rasterization pass
type Options struct {
	Width  int
	Height int
	// Bounds of the output grid. A zero Bound means the mesh extent.
	Bounds orb.Bound
	Agg    Agg
}

// Grid is a north-up raster. Data is row-major with row 0 at Bounds.Max[1];
// pixels not covered by any triangle hold NaN.
type Grid struct {
	Bounds orb.Bound `json:"bounds"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Data   []float64 `json:"-"`
}

// NewGrid allocates a grid with every pixel set to NaN
func NewGrid(b orb.Bound, width, height int) (*Grid, error) {
	if err := CheckSize(width, height); err != nil {
		return nil, err
	}
	if b.Max[0] <= b.Min[0] || b.Max[1] <= b.Min[1] {
		return nil, fmt.Errorf("raster bounds %v have no area", b)
	}

	g := &Grid{Bounds: b, Width: width, Height: height, Data: make([]float64, width*height)}
	for i := range g.Data {
		g.Data[i] = math.NaN()
	}
	return g, nil
}

// PixelSize returns the width and height of one pixel in map units
func (g *Grid) PixelSize() (float64, float64) {
	return (g.Bounds.Max[0] - g.Bounds.Min[0]) / float64(g.Width),
		(g.Bounds.Max[1] - g.Bounds.Min[1]) / float64(g.Height)
}

// Center returns the map coordinate of the center of pixel (i, j)
func (g *Grid) Center(i, j int) (float64, float64) {
	dx, dy := g.PixelSize()
	return g.Bounds.Min[0] + (float64(i)+0.5)*dx, g.Bounds.Max[1] - (float64(j)+0.5)*dy
}

// Value returns the raw pixel value at column i, row j
func (g *Grid) Value(i, j int) float64 {
	return g.Data[j*g.Width+i]
}

// At samples the pixel containing (x, y). Points on the east or south edge
// resolve to the last column or row.
func (g *Grid) At(x, y float64) (float64, bool) {
	if !g.Bounds.Contains(orb.Point{x, y}) {
		return math.NaN(), false
	}

	dx, dy := g.PixelSize()
	i := min(int((x-g.Bounds.Min[0])/dx), g.Width-1)
	j := min(int((g.Bounds.Max[1]-y)/dy), g.Height-1)
	v := g.Data[j*g.Width+i]
	return v, !math.IsNaN(v)
}

// Range returns the smallest and largest finite pixel values. ok is false
// when the grid holds no data.
func (g *Grid) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Data {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

// Rasterize scan-converts every triangle of m onto a grid, linearly
// interpolating values at each pixel center.
func Rasterize(m *mesh.Mesh, values []float64, opts Options) (*Grid, error) {
	if err := m.CheckValues(values); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	bounds := opts.Bounds
	if bounds == (orb.Bound{}) {
		bounds = m.Bounds()
	}
	g, err := NewGrid(bounds, opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}

	agg := opts.Agg
	if agg == "" {
		agg = AggLinear
	}
	var counts []int
	switch agg {
	case AggLinear, AggMax:
	case AggMean:
		counts = make([]int, len(g.Data))
	default:
		return nil, fmt.Errorf("unknown aggregation %q", agg)
	}

	dx, dy := g.PixelSize()
	for _, t := range m.Triangles {
		a, b, c := m.Vertices[t.V[0]], m.Vertices[t.V[1]], m.Vertices[t.V[2]]
		va, vb, vc := values[t.V[0]], values[t.V[1]], values[t.V[2]]

		minX, maxX := math.Min(a.X, math.Min(b.X, c.X)), math.Max(a.X, math.Max(b.X, c.X))
		minY, maxY := math.Min(a.Y, math.Min(b.Y, c.Y)), math.Max(a.Y, math.Max(b.Y, c.Y))

		// Pixel columns whose centers fall inside [minX, maxX]
		i0 := max(int(math.Ceil((minX-g.Bounds.Min[0])/dx-0.5)), 0)
		i1 := min(int(math.Floor((maxX-g.Bounds.Min[0])/dx-0.5)), g.Width-1)
		j0 := max(int(math.Ceil((g.Bounds.Max[1]-maxY)/dy-0.5)), 0)
		j1 := min(int(math.Floor((g.Bounds.Max[1]-minY)/dy-0.5)), g.Height-1)

		for j := j0; j <= j1; j++ {
			for i := i0; i <= i1; i++ {
				x, y := g.Center(i, j)
				w, ok := mesh.Barycentric(a, b, c, x, y)
				if !ok {
					continue
				}
				v := w[0]*va + w[1]*vb + w[2]*vc
				k := j*g.Width + i

				switch agg {
				case AggLinear:
					g.Data[k] = v
				case AggMax:
					if math.IsNaN(g.Data[k]) || v > g.Data[k] {
						g.Data[k] = v
					}
				case AggMean:
					if counts[k] == 0 {
						g.Data[k] = v
					} else {
						g.Data[k] += v
					}
					counts[k]++
				}
			}
		}
	}

	if agg == AggMean {
		for k, n := range counts {
			if n > 1 {
				g.Data[k] /= float64(n)
			}
		}
	}

	return g, nil
}

// FitBounds returns grid dimensions for b whose longest side is size pixels,
// preserving the aspect ratio of b.
func FitBounds(b orb.Bound, size int) (int, int) {
	w, h := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	if w <= 0 || h <= 0 || size <= 0 {
		return max(size, 1), max(size, 1)
	}
	if w >= h {
		return size, max(1, int(math.Round(float64(size)*h/w)))
	}
	return max(1, int(math.Round(float64(size)*w/h))), size
}
