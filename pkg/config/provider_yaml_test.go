package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "meshview.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  listen-addr: 127.0.0.1
  http-port: 9090
  auth-token: s3cret
raster:
  width: 800
  colormap: blue-red
  agg: max
pathstore:
  path: paths.db
datasets:
  - name: bay
    mesh: data/bay.3dm
    projection: wgs84-to-mercator
    data:
      - path: data/bay_depth.dat
      - name: velocity
        path: /abs/bay_vel.dat
downloads:
  - url: https://example.com/bay.3dm
    file: bay.3dm
`)
	dir := filepath.Dir(path)

	cfg, err := NewYAMLProvider(path).LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != "127.0.0.1" || cfg.Server.HTTPPort != 9090 || cfg.Server.AuthToken != "s3cret" {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Raster.Width != 800 || cfg.Raster.Colormap != "blue-red" || cfg.Raster.Agg != "max" {
		t.Errorf("unexpected raster config %+v", cfg.Raster)
	}
	if cfg.PathStore == nil || cfg.PathStore.Path != filepath.Join(dir, "paths.db") {
		t.Errorf("unexpected path store config %+v", cfg.PathStore)
	}

	if len(cfg.Datasets) != 1 {
		t.Fatalf("expected 1 dataset, got %d", len(cfg.Datasets))
	}
	ds := cfg.Datasets[0]
	if ds.Mesh != filepath.Join(dir, "data", "bay.3dm") {
		t.Errorf("relative mesh path should resolve against the config dir, got %s", ds.Mesh)
	}
	if ds.Projection != "wgs84-to-mercator" {
		t.Errorf("unexpected projection %q", ds.Projection)
	}
	if len(ds.Data) != 2 {
		t.Fatalf("expected 2 data files, got %d", len(ds.Data))
	}
	if ds.Data[0].Name != "bay_depth" {
		t.Errorf("unnamed data should take the file name, got %q", ds.Data[0].Name)
	}
	if ds.Data[1].Path != "/abs/bay_vel.dat" {
		t.Errorf("absolute paths should be kept, got %s", ds.Data[1].Path)
	}

	if len(cfg.Downloads) != 1 || cfg.Downloads[0].URL != "https://example.com/bay.3dm" || cfg.Downloads[0].File != "bay.3dm" {
		t.Errorf("unexpected downloads %+v", cfg.Downloads)
	}
}

func TestYAMLProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing name",
			body: "datasets:\n  - mesh: a.3dm\n",
		},
		{
			name: "missing mesh",
			body: "datasets:\n  - name: a\n",
		},
		{
			name: "duplicate name",
			body: "datasets:\n  - name: a\n    mesh: a.3dm\n  - name: a\n    mesh: b.3dm\n",
		},
		{
			name: "invalid yaml",
			body: "datasets: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewYAMLProvider(writeConfig(t, tt.body)).LoadConfig(); err == nil {
				t.Errorf("expected an error")
			}
		})
	}

	if _, err := NewYAMLProvider("/nonexistent/meshview.yaml").LoadConfig(); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}
