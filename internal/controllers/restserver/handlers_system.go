package restserver

import (
	"net/http"
	"os"
	"runtime"
	"time"
)

// SystemInfo represents basic server information
type SystemInfo struct {
	Status         string `json:"status"`
	OS             string `json:"os"`
	Architecture   string `json:"architecture"`
	Hostname       string `json:"hostname"`
	Datasets       int    `json:"datasets"`
	LoadedDatasets int    `json:"loaded_datasets"`
	SavedPaths     bool   `json:"saved_paths"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	Timestamp      int64  `json:"timestamp"`
}

// GetHealth handles GET /health
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	hostname, _ := os.Hostname()

	info := SystemInfo{
		Status:         "ok",
		OS:             runtime.GOOS,
		Architecture:   runtime.GOARCH,
		Hostname:       hostname,
		Datasets:       len(h.controller.Catalog.Names()),
		LoadedDatasets: h.controller.Catalog.Loaded(),
		SavedPaths:     h.controller.Paths != nil,
		UptimeSeconds:  int64(time.Since(h.controller.started).Seconds()),
		Timestamp:      time.Now().Unix(),
	}

	h.formatter.WriteResponse(w, req, info, map[string]string{"Cache-Control": "no-cache"})
}
