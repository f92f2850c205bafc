// Package catalog loads the configured meshes and their datasets on demand and
// keeps them in memory for the lifetime of the process.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/chrissnell/meshview/pkg/adh"
	"github.com/chrissnell/meshview/pkg/config"
	"github.com/chrissnell/meshview/pkg/mesh"
	"github.com/paulmach/orb"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for dataset or field names that are not configured
	ErrNotFound = errors.New("not found")
)

// Entry is a loaded mesh with its time-series fields
type Entry struct {
	Name   string
	Mesh   *mesh.Mesh
	Fields map[string]*adh.Dataset
	// order of Fields as configured
	FieldNames []string
}

// Field returns a named dataset. An empty name selects the first configured one.
func (e *Entry) Field(name string) (*adh.Dataset, error) {
	if name == "" {
		if len(e.FieldNames) == 0 {
			return nil, fmt.Errorf("mesh %s has no datasets: %w", e.Name, ErrNotFound)
		}
		name = e.FieldNames[0]
	}
	d, ok := e.Fields[name]
	if !ok {
		return nil, fmt.Errorf("dataset %s/%s: %w", e.Name, name, ErrNotFound)
	}
	return d, nil
}

// Values resolves the per-vertex field to display: the mesh depth when
// field is empty and no step is requested, otherwise a dataset step.
func (e *Entry) Values(field string, step, column int, useDepth bool) ([]float64, error) {
	if useDepth {
		return e.Mesh.Depths(), nil
	}
	d, err := e.Field(field)
	if err != nil {
		return nil, err
	}
	return d.Field(step, column)
}

// Catalog is a registry of configured datasets
type Catalog struct {
	configs map[string]config.DatasetData
	names   []string
	logger  *zap.SugaredLogger

	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates a catalog over the configured datasets. Nothing is read until first use.
func New(datasets []config.DatasetData, logger *zap.SugaredLogger) *Catalog {
	c := &Catalog{
		configs: make(map[string]config.DatasetData, len(datasets)),
		entries: make(map[string]*Entry),
		logger:  logger,
	}
	for _, ds := range datasets {
		c.configs[ds.Name] = ds
		c.names = append(c.names, ds.Name)
	}
	sort.Strings(c.names)
	return c
}

// Names returns the configured dataset names in sorted order
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Loaded reports how many datasets have been read into memory
func (c *Catalog) Loaded() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Get returns a loaded entry, reading its files on first access
func (c *Catalog) Get(name string) (*Entry, error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		return e, nil
	}

	cfg, ok := c.configs[name]
	if !ok {
		return nil, fmt.Errorf("mesh %s: %w", name, ErrNotFound)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have loaded it while we waited for the write lock
	if e, ok := c.entries[name]; ok {
		return e, nil
	}

	e, err := Load(cfg)
	if err != nil {
		return nil, err
	}
	c.logger.Infow("loaded mesh", "name", name, "vertices", len(e.Mesh.Vertices),
		"triangles", len(e.Mesh.Triangles), "datasets", len(e.FieldNames))
	c.entries[name] = e
	return e, nil
}

// LoadAll loads every configured dataset, returning all failures combined
func (c *Catalog) LoadAll() error {
	var errs error
	for _, name := range c.names {
		if _, err := c.Get(name); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Load reads a mesh and its datasets from disk, applies the configured
// projection and checks every dataset lines up with the mesh vertices.
func Load(cfg config.DatasetData) (*Entry, error) {
	m, err := adh.Read3DMFile(cfg.Mesh)
	if err != nil {
		return nil, fmt.Errorf("loading mesh %s: %w", cfg.Name, err)
	}

	proj, err := mesh.ProjectionByName(cfg.Projection)
	if err != nil {
		return nil, fmt.Errorf("mesh %s: %w", cfg.Name, err)
	}
	m = m.Project(proj)

	e := &Entry{Name: cfg.Name, Mesh: m, Fields: make(map[string]*adh.Dataset)}
	for _, f := range cfg.Data {
		d, err := adh.ReadMesh2DFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("loading dataset %s/%s: %w", cfg.Name, f.Name, err)
		}
		if err := d.Validate(len(m.Vertices)); err != nil {
			return nil, fmt.Errorf("dataset %s/%s: %w", cfg.Name, f.Name, err)
		}
		e.Fields[f.Name] = d
		e.FieldNames = append(e.FieldNames, f.Name)
	}
	return e, nil
}

// FieldSummary describes one dataset attached to a mesh
type FieldSummary struct {
	Name      string         `json:"name"`
	Kind      adh.Kind       `json:"kind"`
	Columns   []string       `json:"columns"`
	TimeUnits string         `json:"time_units,omitempty"`
	Times     []float64      `json:"times"`
	Stats     []mesh.Summary `json:"stats"`
}

// Summary describes a loaded mesh for listings
type Summary struct {
	Name      string         `json:"name"`
	Vertices  int            `json:"vertices"`
	Triangles int            `json:"triangles"`
	Bounds    orb.Bound      `json:"bounds"`
	Depth     mesh.Summary   `json:"depth"`
	Datasets  []FieldSummary `json:"datasets"`
}

// Summarize computes counts, bounds and per-step statistics for an entry.
// Vector datasets are summarized by magnitude.
func Summarize(e *Entry) (*Summary, error) {
	s := &Summary{
		Name:      e.Name,
		Vertices:  len(e.Mesh.Vertices),
		Triangles: len(e.Mesh.Triangles),
		Bounds:    e.Mesh.Bounds(),
		Depth:     mesh.Stats(e.Mesh.Depths()),
	}

	for _, name := range e.FieldNames {
		d := e.Fields[name]
		fs := FieldSummary{
			Name:      name,
			Kind:      d.Kind,
			Columns:   d.Columns,
			TimeUnits: d.TimeUnits,
			Times:     d.Times(),
			Stats:     make([]mesh.Summary, len(d.Steps)),
		}
		for i := range d.Steps {
			values, err := d.Field(i, -1)
			if err != nil {
				return nil, err
			}
			fs.Stats[i] = mesh.Stats(values)
		}
		s.Datasets = append(s.Datasets, fs)
	}
	return s, nil
}
