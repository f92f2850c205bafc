package app

import (
	"bytes"
	"encoding/csv"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb/geojson"
)

const testdata = "../../pkg/adh/testdata/"

func writePathFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "path.geojson")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write path file: %v", err)
	}
	return p
}

func TestInfo(t *testing.T) {
	var buf bytes.Buffer
	err := Info(&buf, MeshOptions{Mesh: testdata + "square.3dm", Dataset: testdata + "square_depth.dat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"vertices", "4", "triangles", "timesteps", "t=3600"} {
		if !strings.Contains(out, want) {
			t.Errorf("info output missing %q:\n%s", want, out)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		opts MeshOptions
	}{
		{"no mesh", MeshOptions{}},
		{"missing mesh", MeshOptions{Mesh: testdata + "missing.3dm"}},
		{"bad projection", MeshOptions{Mesh: testdata + "square.3dm", Projection: "utm"}},
		{"mismatched dataset", MeshOptions{Mesh: testdata + "square.3dm", Dataset: testdata + "short_depth.dat"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.opts); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestRasterize(t *testing.T) {
	out := filepath.Join(t.TempDir(), "depth.png")
	err := Rasterize(RasterizeOptions{
		MeshOptions: MeshOptions{Mesh: testdata + "square.3dm"},
		Out:         out,
		Width:       40,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 40 {
		t.Errorf("expected a 40x40 image for a square mesh, got %v", b)
	}

	if err := Rasterize(RasterizeOptions{MeshOptions: MeshOptions{Mesh: testdata + "square.3dm"}}); err == nil {
		t.Errorf("expected an error without an output file")
	}
}

func TestCrossSection(t *testing.T) {
	pathFile := writePathFile(t, `{"type":"LineString","coordinates":[[1,5],[9,5]]}`)
	opts := SectionOptions{
		MeshOptions: MeshOptions{Mesh: testdata + "square.3dm", Dataset: testdata + "square_depth.dat", Step: 1},
		PathFile:    pathFile,
		Resolution:  0.5,
	}

	var buf bytes.Buffer
	if err := CrossSection(&buf, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Fatalf("expected GeoJSON on stdout: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Errorf("expected one feature, got %d", len(fc.Features))
	}

	dir := t.TempDir()
	opts.Out = filepath.Join(dir, "profile.png")
	opts.CSV = filepath.Join(dir, "profile.csv")
	buf.Reset()
	if err := CrossSection(&buf, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written to stdout with file outputs")
	}
	if _, err := os.Stat(opts.Out); err != nil {
		t.Errorf("expected a plot file: %v", err)
	}

	f, err := os.Open(opts.CSV)
	if err != nil {
		t.Fatalf("failed to open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to read csv: %v", err)
	}
	// header plus samples every 0.5 over a length 8 path
	if len(rows) != 18 {
		t.Errorf("expected 18 csv rows, got %d", len(rows))
	}
	if rows[0][4] != "value" || rows[1][4] == "" {
		t.Errorf("unexpected csv rows %v", rows[:2])
	}
}

func TestSurfaceSection(t *testing.T) {
	pathFile := writePathFile(t, `{"type":"MultiLineString","coordinates":[[[1,5],[9,5]],[[5,1],[5,9]]]}`)
	out := filepath.Join(t.TempDir(), "surface.png")

	err := SurfaceSection(SectionOptions{
		MeshOptions: MeshOptions{Mesh: testdata + "square.3dm", Dataset: testdata + "square_depth.dat"},
		PathFile:    pathFile,
		Out:         out,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"surface_0.png", "surface_1.png"} {
		if _, err := os.Stat(filepath.Join(filepath.Dir(out), name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	err = SurfaceSection(SectionOptions{
		MeshOptions: MeshOptions{Mesh: testdata + "square.3dm"},
		PathFile:    pathFile,
		Out:         out,
	})
	if err == nil {
		t.Errorf("expected an error without a dataset")
	}
}

func TestNumberedPath(t *testing.T) {
	tests := []struct {
		out      string
		i, n     int
		expected string
	}{
		{"a.png", 0, 1, "a.png"},
		{"a.png", 2, 3, "a_2.png"},
		{"dir/plot", 1, 2, "dir/plot_1"},
	}

	for _, tt := range tests {
		if got := numberedPath(tt.out, tt.i, tt.n); got != tt.expected {
			t.Errorf("numberedPath(%q, %d, %d) = %q, expected %q", tt.out, tt.i, tt.n, got, tt.expected)
		}
	}
}
