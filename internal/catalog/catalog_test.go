package catalog

import (
	"errors"
	"testing"

	"github.com/chrissnell/meshview/pkg/adh"
	"github.com/chrissnell/meshview/pkg/config"
	"go.uber.org/zap"
)

const testdata = "../../pkg/adh/testdata/"

func testConfig() []config.DatasetData {
	return []config.DatasetData{
		{
			Name: "square",
			Mesh: testdata + "square.3dm",
			Data: []config.FieldData{
				{Name: "depth", Path: testdata + "square_depth.dat"},
				{Name: "velocity", Path: testdata + "square_velocity.dat"},
			},
		},
		{
			Name: "broken",
			Mesh: testdata + "missing.3dm",
		},
	}
}

func TestCatalogGet(t *testing.T) {
	c := New(testConfig(), zap.NewNop().Sugar())

	if names := c.Names(); len(names) != 2 || names[0] != "broken" || names[1] != "square" {
		t.Errorf("unexpected names %v", names)
	}

	if c.Loaded() != 0 {
		t.Errorf("nothing should load before the first Get")
	}
	e, err := c.Get("square")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Loaded() != 1 {
		t.Errorf("expected 1 loaded dataset, got %d", c.Loaded())
	}
	if len(e.Mesh.Vertices) != 4 || len(e.FieldNames) != 2 {
		t.Errorf("unexpected entry: %d vertices, fields %v", len(e.Mesh.Vertices), e.FieldNames)
	}

	again, _ := c.Get("square")
	if again != e {
		t.Errorf("second Get should return the cached entry")
	}

	d, err := e.Field("")
	if err != nil || d.Name != "Depth" {
		t.Errorf("empty field name should select the first dataset, got %v (%v)", d, err)
	}
	if _, err := e.Field("salinity"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := c.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Get("broken"); err == nil {
		t.Errorf("expected an error for a missing mesh file")
	}
	if err := c.LoadAll(); err == nil {
		t.Errorf("LoadAll should report the broken dataset")
	}
}

func TestEntryValues(t *testing.T) {
	e, err := Load(testConfig()[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	depth, err := e.Values("", 0, 0, true)
	if err != nil || depth[2] != 2 {
		t.Errorf("expected mesh depth, got %v (%v)", depth, err)
	}

	step1, err := e.Values("depth", 1, 0, false)
	if err != nil || step1[0] != 0.5 {
		t.Errorf("expected step 1 values, got %v (%v)", step1, err)
	}

	mag, err := e.Values("velocity", 0, -1, false)
	if err != nil || mag[0] != 5 {
		t.Errorf("expected velocity magnitude, got %v (%v)", mag, err)
	}
}

func TestLoadRejectsMismatchedDataset(t *testing.T) {
	cfg := config.DatasetData{
		Name: "mismatch",
		Mesh: testdata + "square.3dm",
		Data: []config.FieldData{{Name: "depth", Path: testdata + "short_depth.dat"}},
	}
	if _, err := Load(cfg); !errors.Is(err, adh.ErrRowCount) {
		t.Errorf("expected ErrRowCount, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	e, err := Load(testConfig()[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err := Summarize(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Vertices != 4 || s.Triangles != 2 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.Depth.Max != 2 || s.Depth.Min != 0 {
		t.Errorf("unexpected depth summary %+v", s.Depth)
	}
	if len(s.Datasets) != 2 || len(s.Datasets[0].Stats) != 2 {
		t.Fatalf("unexpected dataset summaries %+v", s.Datasets)
	}
	if s.Datasets[0].Stats[1].Max != 2.5 {
		t.Errorf("expected max 2.5 at the second step, got %v", s.Datasets[0].Stats[1].Max)
	}
}
