package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file. Relative file
// paths in the config are resolved against the directory holding it.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Server    ServerYAML     `yaml:"server,omitempty"`
		Raster    RasterYAML     `yaml:"raster,omitempty"`
		PathStore *PathStoreYAML `yaml:"pathstore,omitempty"`
		Datasets  []DatasetYAML  `yaml:"datasets"`
		Downloads []DownloadYAML `yaml:"downloads,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(y.filename)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	// Convert to our internal format
	config := &ConfigData{
		Server: ServerData{
			ListenAddr:  yamlConfig.Server.ListenAddr,
			HTTPPort:    yamlConfig.Server.HTTPPort,
			TLSCertPath: yamlConfig.Server.TLSCertPath,
			TLSKeyPath:  yamlConfig.Server.TLSKeyPath,
			AuthToken:   yamlConfig.Server.AuthToken,
		},
		Raster: RasterData{
			Width:      yamlConfig.Raster.Width,
			Height:     yamlConfig.Raster.Height,
			Colormap:   yamlConfig.Raster.Colormap,
			Agg:        yamlConfig.Raster.Agg,
			Resolution: yamlConfig.Raster.Resolution,
		},
		Datasets:  make([]DatasetData, len(yamlConfig.Datasets)),
		Downloads: make([]DownloadData, len(yamlConfig.Downloads)),
	}

	if yamlConfig.PathStore != nil {
		config.PathStore = &PathStoreData{Path: resolve(yamlConfig.PathStore.Path)}
	}

	seen := make(map[string]bool)
	for i, ds := range yamlConfig.Datasets {
		if ds.Name == "" {
			return nil, fmt.Errorf("dataset %d has no name", i)
		}
		if seen[ds.Name] {
			return nil, fmt.Errorf("duplicate dataset name: %s", ds.Name)
		}
		seen[ds.Name] = true
		if ds.Mesh == "" {
			return nil, fmt.Errorf("dataset %s has no mesh file", ds.Name)
		}

		config.Datasets[i] = DatasetData{
			Name:       ds.Name,
			Mesh:       resolve(ds.Mesh),
			Projection: ds.Projection,
			Data:       make([]FieldData, len(ds.Data)),
		}
		for j, f := range ds.Data {
			name := f.Name
			if name == "" {
				// Default to the file name without extension
				name = filepath.Base(f.Path)
				name = name[:len(name)-len(filepath.Ext(name))]
			}
			config.Datasets[i].Data[j] = FieldData{Name: name, Path: resolve(f.Path)}
		}
	}

	// Download file names stay relative; they are placed under the download directory
	for i, d := range yamlConfig.Downloads {
		config.Downloads[i] = DownloadData{URL: d.URL, File: d.File}
	}

	return config, nil
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags
type ServerYAML struct {
	ListenAddr  string `yaml:"listen-addr,omitempty"`
	HTTPPort    int    `yaml:"http-port,omitempty"`
	TLSCertPath string `yaml:"tls-cert,omitempty"`
	TLSKeyPath  string `yaml:"tls-key,omitempty"`
	AuthToken   string `yaml:"auth-token,omitempty"`
}

type RasterYAML struct {
	Width      int     `yaml:"width,omitempty"`
	Height     int     `yaml:"height,omitempty"`
	Colormap   string  `yaml:"colormap,omitempty"`
	Agg        string  `yaml:"agg,omitempty"`
	Resolution float64 `yaml:"resolution,omitempty"`
}

type PathStoreYAML struct {
	Path string `yaml:"path"`
}

type DatasetYAML struct {
	Name       string      `yaml:"name"`
	Mesh       string      `yaml:"mesh"`
	Projection string      `yaml:"projection,omitempty"`
	Data       []FieldYAML `yaml:"data,omitempty"`
}

type FieldYAML struct {
	Name string `yaml:"name,omitempty"`
	Path string `yaml:"path"`
}

type DownloadYAML struct {
	URL  string `yaml:"url"`
	File string `yaml:"file"`
}
