package xsection

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrissnell/meshview/pkg/adh"
	"github.com/chrissnell/meshview/pkg/mesh"
	"github.com/chrissnell/meshview/pkg/raster"
	"github.com/paulmach/orb"
)

// minRasterSize keeps at least this many pixels across each axis of the
// sampling grid used by the max and mean aggregations
const minRasterSize = 10

var ErrNoPaths = errors.New("no paths to sample")

// Profile is a field sampled along one path
type Profile struct {
	Path    orb.LineString `json:"path"`
	Samples []Sample       `json:"samples"`
	Values  Values         `json:"values"`
}

// Distances returns the distance of every sample from the start of the path
func (p *Profile) Distances() []float64 {
	out := make([]float64, len(p.Samples))
	for i, s := range p.Samples {
		out[i] = s.Distance
	}
	return out
}

// LineCrossSection samples a single per-vertex field along polylines. With
// the linear aggregation each sample is interpolated exactly from the
// triangle that contains it. Max and mean rasterize the mesh over the extent
// of the paths, one pixel per resolution step, and read the pixel under each
// sample.
type LineCrossSection struct {
	Mesh       *mesh.Mesh
	Values     []float64
	Resolution float64
	Agg        raster.Agg
	// Locator is reused for linear sampling when set and built on demand otherwise
	Locator *mesh.Locator
}

// Compute returns one profile per path, in path order
func (l *LineCrossSection) Compute(paths []orb.LineString) ([]Profile, error) {
	smp, err := newSampler(l.Mesh, l.Locator, paths, l.Resolution, l.Agg)
	if err != nil {
		return nil, err
	}
	values, err := smp.sample(l.Values)
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, len(paths))
	for i, path := range paths {
		profiles[i] = Profile{Path: path, Samples: smp.samples[i], Values: values[i]}
	}
	return profiles, nil
}

// Surface is a dataset sampled along one path at every timestep. Values is
// indexed [time][sample].
type Surface struct {
	Path      orb.LineString `json:"path"`
	Samples   []Sample       `json:"samples"`
	Times     []float64      `json:"times"`
	TimeUnits string         `json:"time_units,omitempty"`
	Values    []Values       `json:"values"`
}

// SurfaceCrossSection samples every timestep of a dataset along polylines.
// Column selects the dataset component; a negative column on a vector
// dataset samples the vector magnitude.
type SurfaceCrossSection struct {
	Mesh       *mesh.Mesh
	Dataset    *adh.Dataset
	Column     int
	Resolution float64
	Agg        raster.Agg
}

// Compute returns one surface per path, in path order
func (s *SurfaceCrossSection) Compute(paths []orb.LineString) ([]Surface, error) {
	if err := s.Dataset.Validate(len(s.Mesh.Vertices)); err != nil {
		return nil, err
	}
	smp, err := newSampler(s.Mesh, nil, paths, s.Resolution, s.Agg)
	if err != nil {
		return nil, err
	}

	surfaces := make([]Surface, len(paths))
	for i, path := range paths {
		surfaces[i] = Surface{
			Path:      path,
			Samples:   smp.samples[i],
			Times:     s.Dataset.Times(),
			TimeUnits: s.Dataset.TimeUnits,
			Values:    make([]Values, len(s.Dataset.Steps)),
		}
	}

	for step := range s.Dataset.Steps {
		field, err := s.Dataset.Field(step, s.Column)
		if err != nil {
			return nil, err
		}
		values, err := smp.sample(field)
		if err != nil {
			return nil, fmt.Errorf("time %v: %w", s.Dataset.Steps[step].Time, err)
		}
		for i := range surfaces {
			surfaces[i].Values[step] = values[i]
		}
	}
	return surfaces, nil
}

// location is a sample resolved to a triangle; tri is -1 off the mesh
type location struct {
	tri int
	w   [3]float64
}

// sampler evaluates per-vertex fields at the samples of a fixed set of paths
type sampler struct {
	mesh    *mesh.Mesh
	agg     raster.Agg
	samples [][]Sample

	// linear
	located [][]location

	// max and mean
	bounds        orb.Bound
	width, height int
}

func newSampler(m *mesh.Mesh, loc *mesh.Locator, paths []orb.LineString, resolution float64, agg raster.Agg) (*sampler, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	if !(resolution > 0) {
		return nil, ErrBadResolution
	}
	if agg == "" {
		agg = raster.AggLinear
	}

	smp := &sampler{mesh: m, agg: agg, samples: make([][]Sample, len(paths))}
	for i, path := range paths {
		samples, err := SamplePath(path, resolution)
		if err != nil {
			return nil, fmt.Errorf("path %d: %w", i, err)
		}
		smp.samples[i] = samples
	}

	switch agg {
	case raster.AggLinear:
		if loc == nil {
			var err error
			if loc, err = mesh.NewLocator(m); err != nil {
				return nil, err
			}
		}
		smp.located = make([][]location, len(paths))
		for i, samples := range smp.samples {
			smp.located[i] = make([]location, len(samples))
			for k, sm := range samples {
				ti, w, ok := loc.Locate(sm.X, sm.Y)
				if !ok {
					ti = -1
				}
				smp.located[i][k] = location{tri: ti, w: w}
			}
		}
	case raster.AggMax, raster.AggMean:
		b, ok := pathBounds(paths, resolution)
		if !ok {
			return nil, ErrNoPaths
		}
		smp.bounds = b
		smp.width = gridSize(b.Max[0]-b.Min[0], resolution)
		smp.height = gridSize(b.Max[1]-b.Min[1], resolution)
		if err := raster.CheckSize(smp.width, smp.height); err != nil {
			return nil, fmt.Errorf("resolution %v is too fine for the path extent: %w", resolution, err)
		}
	default:
		return nil, fmt.Errorf("unknown aggregation %q", agg)
	}
	return smp, nil
}

// sample returns the field values for every path, in path order
func (smp *sampler) sample(values []float64) ([]Values, error) {
	if err := smp.mesh.CheckValues(values); err != nil {
		return nil, err
	}

	out := make([]Values, len(smp.samples))
	if smp.located != nil {
		for i, locs := range smp.located {
			out[i] = make(Values, len(locs))
			for k, l := range locs {
				if l.tri < 0 {
					out[i][k] = math.NaN()
					continue
				}
				out[i][k] = smp.mesh.Evaluate(l.tri, l.w, values)
			}
		}
		return out, nil
	}

	grid, err := raster.Rasterize(smp.mesh, values, raster.Options{
		Width:  smp.width,
		Height: smp.height,
		Bounds: smp.bounds,
		Agg:    smp.agg,
	})
	if err != nil {
		return nil, err
	}
	for i, samples := range smp.samples {
		out[i] = sampleGrid(grid, samples)
	}
	return out, nil
}

// pathBounds returns the combined extent of paths, padded so flat extents
// still have area
func pathBounds(paths []orb.LineString, resolution float64) (orb.Bound, bool) {
	var b orb.Bound
	first := true
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		if first {
			b = p.Bound()
			first = false
			continue
		}
		b = b.Union(p.Bound())
	}
	if first {
		return b, false
	}

	// Horizontal or vertical paths have a flat extent; pad by half a step
	// so the grid has area and the path runs through pixel centers.
	if b.Max[0]-b.Min[0] < resolution {
		b.Min[0] -= resolution / 2
		b.Max[0] += resolution / 2
	}
	if b.Max[1]-b.Min[1] < resolution {
		b.Min[1] -= resolution / 2
		b.Max[1] += resolution / 2
	}
	return b, true
}

// gridSize returns the pixel count that keeps pixels no wider than resolution
func gridSize(extent, resolution float64) int {
	n := math.Ceil(extent / resolution)
	if n > float64(raster.MaxPixels) {
		return raster.MaxPixels + 1
	}
	return max(minRasterSize, int(n))
}

func sampleGrid(g *raster.Grid, samples []Sample) Values {
	out := make(Values, len(samples))
	for i, s := range samples {
		out[i], _ = g.At(s.X, s.Y)
	}
	return out
}
