package xsection

import (
	"sync"

	"github.com/chrissnell/meshview/pkg/mesh"
	"github.com/chrissnell/meshview/pkg/raster"
	"github.com/paulmach/orb"
)

// FieldFunc returns the per-vertex field to sample for a time index
type FieldFunc func(step int) ([]float64, error)

// Section keeps the profiles for the most recent polylines and time index and
// recomputes them only when either changes. It is safe for concurrent use.
type Section struct {
	mesh       *mesh.Mesh
	field      FieldFunc
	resolution float64
	agg        raster.Agg

	mu       sync.Mutex
	locator  *mesh.Locator
	paths    []orb.LineString
	step     int
	profiles []Profile
	valid    bool
}

// NewSection creates a section over m whose field for each time index comes from field
func NewSection(m *mesh.Mesh, field FieldFunc, resolution float64, agg raster.Agg) *Section {
	return &Section{mesh: m, field: field, resolution: resolution, agg: agg}
}

// Update returns profiles for paths at time index step. recomputed reports
// whether the cached result was stale.
func (s *Section) Update(paths []orb.LineString, step int) (profiles []Profile, recomputed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.valid && s.step == step && samePaths(s.paths, paths) {
		return s.profiles, false, nil
	}

	values, err := s.field(step)
	if err != nil {
		return nil, false, err
	}
	if s.locator == nil && (s.agg == "" || s.agg == raster.AggLinear) {
		// The mesh never changes, so one index serves every recompute
		if s.locator, err = mesh.NewLocator(s.mesh); err != nil {
			return nil, false, err
		}
	}
	lcs := &LineCrossSection{Mesh: s.mesh, Values: values, Resolution: s.resolution, Agg: s.agg, Locator: s.locator}
	profiles, err = lcs.Compute(paths)
	if err != nil {
		return nil, false, err
	}

	// Keep our own copy so later edits to the caller's slices don't alias the cache key
	s.paths = make([]orb.LineString, len(paths))
	for i, p := range paths {
		s.paths[i] = p.Clone()
	}
	s.step = step
	s.profiles = profiles
	s.valid = true
	return profiles, true, nil
}

// Invalidate drops the cached profiles
func (s *Section) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = false
	s.profiles = nil
}

func samePaths(a, b []orb.LineString) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
