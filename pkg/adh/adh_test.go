package adh

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chrissnell/meshview/pkg/mesh"
)

func TestRead3DMFile(t *testing.T) {
	m, err := Read3DMFile("testdata/square.3dm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.Vertices) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(m.Vertices))
	}
	if len(m.Triangles) != 2 {
		t.Fatalf("expected 2 triangles, got %d", len(m.Triangles))
	}

	if m.Triangles[1].V != [3]int{0, 2, 3} {
		t.Errorf("node ids should be converted to 0-based indices, got %v", m.Triangles[1].V)
	}
	if m.Triangles[1].Material != 2 {
		t.Errorf("expected material 2, got %d", m.Triangles[1].Material)
	}

	wantDepths := []float64{0, 1, 2, 1}
	for i, want := range wantDepths {
		if m.Vertices[i].Z != want {
			t.Errorf("vertex %d: depth %v, expected %v", i, m.Vertices[i].Z, want)
		}
	}
	if m.Vertices[2].X != 10 || m.Vertices[2].Y != 10 {
		t.Errorf("unexpected coordinates for vertex 2: %+v", m.Vertices[2])
	}
}

func TestRead3DM(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		vertices  int
		triangles int
		wantErr   error
		anyErr    bool
	}{
		{
			name:      "lowercase row types and blank lines",
			input:     "MESH2D\ne3t 1 1 2 3 1\n\nnd 1 0 0 0\nnd 2 1 0 0\nnd 3 0 1 0\n",
			vertices:  3,
			triangles: 1,
		},
		{
			name:      "header only",
			input:     "MESH2D\n",
			vertices:  0,
			triangles: 0,
		},
		{
			name:      "header row is never parsed",
			input:     "ND 1 0 0 0\nND 2 1 0 0\n",
			vertices:  1,
			triangles: 0,
		},
		{
			name:    "dangling node reference",
			input:   "MESH2D\nE3T 1 1 2 4 1\nND 1 0 0 0\nND 2 1 0 0\nND 3 0 1 0\n",
			wantErr: mesh.ErrInvalidIndex,
		},
		{
			name:   "bad coordinate",
			input:  "MESH2D\nND 1 0 abc 0\n",
			anyErr: true,
		},
		{
			name:   "short element row",
			input:  "MESH2D\nE3T 1 1 2\n",
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Read3DM(strings.NewReader(tt.input))
			if tt.wantErr != nil || tt.anyErr {
				if err == nil {
					t.Fatalf("expected an error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(m.Vertices) != tt.vertices || len(m.Triangles) != tt.triangles {
				t.Errorf("got %d vertices / %d triangles, expected %d / %d",
					len(m.Vertices), len(m.Triangles), tt.vertices, tt.triangles)
			}
		})
	}
}

func TestReadMesh2DScalar(t *testing.T) {
	d, err := ReadMesh2DFile("testdata/square_depth.dat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Name != "Depth" || d.Kind != Scalar || d.TimeUnits != "SECONDS" {
		t.Errorf("unexpected header: name=%q kind=%q units=%q", d.Name, d.Kind, d.TimeUnits)
	}
	if len(d.Columns) != 1 || d.Columns[0] != "Depth" {
		t.Errorf("unexpected columns %v", d.Columns)
	}

	times := d.Times()
	if len(times) != 2 || times[0] != 0 || times[1] != 3600 {
		t.Fatalf("unexpected times %v", times)
	}

	m, err := Read3DMFile("testdata/square.3dm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Validate(len(m.Vertices)); err != nil {
		t.Errorf("dataset should line up with its mesh: %v", err)
	}

	step, ok := d.Step(3600)
	if !ok {
		t.Fatalf("expected a step at t=3600")
	}
	if len(step.Values) != 4 || step.Values[2][0] != 2.5 {
		t.Errorf("unexpected values at t=3600: %v", step.Values)
	}
	if _, ok := d.Step(1); ok {
		t.Errorf("did not expect a step at t=1")
	}

	col, err := d.Column(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col[1] != 1.0 {
		t.Errorf("expected 1.0, got %v", col[1])
	}
	if _, err := d.Column(0, 1); err == nil {
		t.Errorf("expected an error for a missing column")
	}
}

func TestReadMesh2DVector(t *testing.T) {
	d, err := ReadMesh2DFile("testdata/square_velocity.dat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Kind != Vector {
		t.Errorf("expected a vector dataset, got %q", d.Kind)
	}
	if len(d.Columns) != 2 || d.Columns[0] != "Velocity_0" || d.Columns[1] != "Velocity_1" {
		t.Errorf("unexpected columns %v", d.Columns)
	}
	if len(d.Steps) != 1 || len(d.Steps[0].Values) != 4 {
		t.Fatalf("status flags should be skipped, got %d steps", len(d.Steps))
	}

	mag, err := d.Field(0, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{5, 0, 1, 2}
	for i := range want {
		if math.Abs(mag[i]-want[i]) > 1e-12 {
			t.Errorf("magnitude %d: got %v, expected %v", i, mag[i], want[i])
		}
	}

	vy, err := d.Field(0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vy[3] != -2 {
		t.Errorf("expected -2, got %v", vy[3])
	}
}

func TestReadMesh2DErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "not a dataset",
			input:   "MESH2D\nND 1 0 0 0\n",
			wantErr: ErrNotDataset,
		},
		{
			name:    "wrong object type",
			input:   "DATASET\nOBJTYPE \"mesh3d\"\n",
			wantErr: ErrNotDataset,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: ErrNotDataset,
		},
		{
			name:    "short timestep",
			input:   "DATASET\nOBJTYPE \"mesh2d\"\nBEGSCL\nND 3\nNC 1\nNAME \"Depth\"\nTS 0 0\n1\n2\nENDDS\n",
			wantErr: ErrRowCount,
		},
		{
			name:    "row width changes within a step",
			input:   "DATASET\nOBJTYPE \"mesh2d\"\nBEGVEC\nND 2\nNC 1\nNAME \"Velocity\"\nTS 0 0\n1 2\n3\nENDDS\n",
			wantErr: ErrRowWidth,
		},
		{
			name:    "later step has fewer components",
			input:   "DATASET\nOBJTYPE \"mesh2d\"\nBEGVEC\nND 2\nNC 1\nNAME \"Velocity\"\nTS 0 0\n1 2\n3 4\nTS 0 60\n5\n6\nENDDS\n",
			wantErr: ErrRowWidth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMesh2D(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestReadMesh2DLeadingBlankLines(t *testing.T) {
	input := "\n\nDATASET\n\nOBJTYPE \"mesh2d\"\nBEGSCL\nND 2\nNC 1\nNAME \"Depth\"\nTS 0 0\n1\n2\nENDDS\n"
	d, err := ReadMesh2D(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name != "Depth" || len(d.Steps) != 1 || len(d.Steps[0].Values) != 2 {
		t.Errorf("unexpected dataset %+v", d)
	}
}

func TestColumnShortRow(t *testing.T) {
	d := &Dataset{
		Kind:    Vector,
		Columns: []string{"Velocity_0", "Velocity_1"},
		Steps:   []Step{{Time: 0, Values: [][]float64{{1, 2}, {3}}}},
	}
	if _, err := d.Column(0, 1); !errors.Is(err, ErrRowWidth) {
		t.Errorf("expected ErrRowWidth, got %v", err)
	}
}

func TestDatasetValidate(t *testing.T) {
	d := &Dataset{Steps: []Step{{Time: 0, Values: [][]float64{{1}, {2}}}}}
	if err := d.Validate(3); !errors.Is(err, ErrRowCount) {
		t.Errorf("expected ErrRowCount, got %v", err)
	}
}
