package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// LoadConfig reads and validates the complete configuration
	LoadConfig() (*ConfigData, error)
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Server    ServerData     `json:"server"`
	Raster    RasterData     `json:"raster"`
	PathStore *PathStoreData `json:"pathstore,omitempty"`
	Datasets  []DatasetData  `json:"datasets"`
	Downloads []DownloadData `json:"downloads,omitempty"`
}

// ServerData holds the REST server listener settings
type ServerData struct {
	ListenAddr  string `json:"listen_addr,omitempty"`
	HTTPPort    int    `json:"http_port,omitempty"`
	TLSCertPath string `json:"tls_cert_path,omitempty"`
	TLSKeyPath  string `json:"tls_key_path,omitempty"`
	// AuthToken guards the endpoints that modify saved paths. Empty leaves them open.
	AuthToken string `json:"-"`
}

// RasterData holds rendering defaults used when a request doesn't specify them
type RasterData struct {
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Colormap   string  `json:"colormap,omitempty"`
	Agg        string  `json:"agg,omitempty"`
	Resolution float64 `json:"resolution,omitempty"`
}

// PathStoreData configures the SQLite store for saved cross-section paths
type PathStoreData struct {
	Path string `json:"path"`
}

// DatasetData describes a mesh and the time-series files recorded on it
type DatasetData struct {
	Name       string      `json:"name"`
	Mesh       string      `json:"mesh"`
	Projection string      `json:"projection,omitempty"`
	Data       []FieldData `json:"data,omitempty"`
}

// FieldData is one mesh2d dataset file attached to a mesh
type FieldData struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// DownloadData is a sample data file fetched by the download-data command
type DownloadData struct {
	URL  string `json:"url"`
	File string `json:"file"`
}
