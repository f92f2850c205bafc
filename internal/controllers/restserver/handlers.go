package restserver

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"slices"
	"strconv"
	"sync"

	"github.com/chrissnell/meshview/internal/catalog"
	"github.com/chrissnell/meshview/internal/pathstore"
	"github.com/chrissnell/meshview/pkg/adh"
	"github.com/chrissnell/meshview/pkg/raster"
	"github.com/chrissnell/meshview/pkg/render"
	"github.com/chrissnell/meshview/pkg/responseformat"
	"github.com/chrissnell/meshview/pkg/xsection"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
)

const (
	// maxBodySize bounds uploaded GeoJSON path documents
	maxBodySize = 4 << 20

	// maxCachedSections bounds the per-field cross-section cache; the least
	// recently used section is dropped first
	maxCachedSections = 64
)

// badRequest marks errors caused by the client's input
type badRequest struct {
	err error
}

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func badRequestf(format string, args ...any) error {
	return badRequest{err: fmt.Errorf(format, args...)}
}

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter

	// sections caches the most recent cross-section per dataset field and
	// resolution so repeated requests for the same paths and step skip sampling
	sectionsMu sync.Mutex
	sections   *lru.Cache[string, *xsection.Section]
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	// lru.New only fails for a non-positive size
	sections, _ := lru.New[string, *xsection.Section](maxCachedSections)
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
		sections:   sections,
	}
}

// writeError maps an error onto an HTTP status and writes it as JSON
func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := http.StatusInternalServerError
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, xsection.ErrNoPaths),
		errors.Is(err, xsection.ErrBadResolution),
		errors.Is(err, raster.ErrEmptyGrid),
		errors.Is(err, raster.ErrTooManyPixels),
		errors.Is(err, pathstore.ErrInvalidPath):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, pathstore.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.controller.logger.Errorw("request failed", "path", req.URL.Path, "error", err)
	}
	h.formatter.WriteError(w, status, err.Error())
}

// queryInt reads an integer query parameter, returning def when it is absent
func queryInt(req *http.Request, key string, def int) (int, error) {
	s := req.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, badRequestf("invalid %s %q", key, s)
	}
	return v, nil
}

// queryFloat reads a float query parameter, returning def when it is absent
func queryFloat(req *http.Request, key string, def float64) (float64, error) {
	s := req.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, badRequestf("invalid %s %q", key, s)
	}
	return v, nil
}

// fieldSelection is the field/step/column triple most endpoints accept
type fieldSelection struct {
	field  string
	step   int
	column int
}

func parseFieldSelection(req *http.Request) (fieldSelection, error) {
	sel := fieldSelection{field: req.URL.Query().Get("field")}
	var err error
	if sel.step, err = queryInt(req, "step", 0); err != nil {
		return sel, err
	}
	if sel.column, err = queryInt(req, "column", -1); err != nil {
		return sel, err
	}
	return sel, nil
}

// values resolves the selected per-vertex field. No field means mesh depth.
func (sel fieldSelection) values(e *catalog.Entry) ([]float64, error) {
	values, err := e.Values(sel.field, sel.step, sel.column, sel.field == "")
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return nil, badRequest{err: err}
	}
	return values, err
}

func (h *Handlers) entry(req *http.Request) (*catalog.Entry, error) {
	return h.controller.Catalog.Get(mux.Vars(req)["name"])
}

func (h *Handlers) resolution(req *http.Request, e *catalog.Entry) (float64, error) {
	def := h.controller.rasterConfig.Resolution
	if def == 0 {
		def = xsection.DefaultResolution(e.Mesh.Bounds())
	}
	return queryFloat(req, "resolution", def)
}

// readPaths loads polylines from a saved path id (path query parameter) or
// from a GeoJSON request body
func (h *Handlers) readPaths(req *http.Request) ([]orb.LineString, error) {
	if id := req.URL.Query().Get("path"); id != "" {
		if h.controller.Paths == nil {
			return nil, badRequestf("saved paths are not enabled")
		}
		p, err := h.controller.Paths.Get(req.Context(), id)
		if err != nil {
			return nil, err
		}
		return []orb.LineString{p.Line}, nil
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	paths, err := xsection.ParsePaths(body)
	if err != nil {
		return nil, badRequest{err: err}
	}
	return paths, nil
}

// ListDatasets handles GET /datasets
func (h *Handlers) ListDatasets(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, map[string]any{"datasets": h.controller.Catalog.Names()}, nil)
}

// GetDataset handles GET /datasets/{name}
func (h *Handlers) GetDataset(w http.ResponseWriter, req *http.Request) {
	e, err := h.entry(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	summary, err := catalog.Summarize(e)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.formatter.WriteResponse(w, req, summary, nil)
}

// GetRaster handles GET /datasets/{name}/raster.png
func (h *Handlers) GetRaster(w http.ResponseWriter, req *http.Request) {
	e, err := h.entry(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	sel, err := parseFieldSelection(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	values, err := sel.values(e)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	rc := h.controller.rasterConfig
	bounds := e.Mesh.Bounds()
	width, height := rc.Width, rc.Height
	if width == 0 || height == 0 {
		width, height = raster.FitBounds(bounds, max(width, height))
	}
	if width, err = queryInt(req, "width", width); err != nil {
		h.writeError(w, req, err)
		return
	}
	if height, err = queryInt(req, "height", height); err != nil {
		h.writeError(w, req, err)
		return
	}

	// scale > 1 rasterizes a coarser grid and upsamples it, trading detail for speed
	scale, err := queryInt(req, "scale", 1)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	if width <= 0 || height <= 0 || scale <= 0 {
		h.writeError(w, req, badRequestf("width, height and scale must be positive"))
		return
	}
	// The upsampled image is as large as the requested size, so cap that rather than the grid
	if err := raster.CheckSize(width, height); err != nil {
		h.writeError(w, req, err)
		return
	}

	agg := raster.Agg(rc.Agg)
	if a := req.URL.Query().Get("agg"); a != "" {
		agg = raster.Agg(a)
	}
	grid, err := raster.Rasterize(e.Mesh, values, raster.Options{
		Width:  max(width/scale, 1),
		Height: max(height/scale, 1),
		Bounds: bounds,
		Agg:    agg,
	})
	if err != nil {
		h.writeError(w, req, badRequest{err: err})
		return
	}

	cmapName := rc.Colormap
	if c := req.URL.Query().Get("cmap"); c != "" {
		cmapName = c
	}
	cmap, err := raster.Colormap(cmapName)
	if err != nil {
		h.writeError(w, req, badRequest{err: err})
		return
	}

	lo, hi, ok := grid.Range()
	if !ok {
		lo, hi = 0, 1
	}
	if lo, err = queryFloat(req, "min", lo); err != nil {
		h.writeError(w, req, err)
		return
	}
	if hi, err = queryFloat(req, "max", hi); err != nil {
		h.writeError(w, req, err)
		return
	}

	var img image.Image
	img, err = raster.Shade(grid, cmap, lo, hi)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	if scale > 1 {
		img = raster.Resize(img, width, height)
	}
	if err := h.formatter.WritePNG(w, img); err != nil {
		h.controller.logger.Errorf("error writing raster: %v", err)
	}
}

// section returns the cached cross-section for a dataset field, creating it on first use
func (h *Handlers) section(e *catalog.Entry, sel fieldSelection, resolution float64) *xsection.Section {
	key := fmt.Sprintf("%s|%s|%d|%g", e.Name, sel.field, sel.column, resolution)

	h.sectionsMu.Lock()
	defer h.sectionsMu.Unlock()

	if s, ok := h.sections.Get(key); ok {
		return s
	}
	field := func(step int) ([]float64, error) {
		return fieldSelection{field: sel.field, step: step, column: sel.column}.values(e)
	}
	s := xsection.NewSection(e.Mesh, field, resolution, raster.Agg(h.controller.rasterConfig.Agg))
	h.sections.Add(key, s)
	return s
}

// PostCrossSection handles POST /datasets/{name}/cross-section
func (h *Handlers) PostCrossSection(w http.ResponseWriter, req *http.Request) {
	e, err := h.entry(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	sel, err := parseFieldSelection(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	resolution, err := h.resolution(req, e)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	paths, err := h.readPaths(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	section := h.section(e, sel, resolution)
	if req.URL.Query().Get("refresh") == "true" {
		section.Invalidate()
	}
	profiles, recomputed, err := section.Update(paths, sel.step)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	kernel, err := queryInt(req, "smooth", 0)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	if kernel > 0 {
		// The cached profiles are shared, so smooth a copy
		profiles = slices.Clone(profiles)
		if err := xsection.Smooth(profiles, kernel); err != nil {
			h.writeError(w, req, badRequest{err: err})
			return
		}
	}

	switch responseformat.Requested(req) {
	case responseformat.FormatGeoJSON:
		h.formatter.WriteGeoJSON(w, xsection.ProfilesToFeatureCollection(profiles))
		return
	case responseformat.FormatPNG:
		label := sel.field
		if label == "" {
			label = "Depth"
		}
		p, err := render.ProfilePlot(profiles, e.Name+" cross section", label)
		if err != nil {
			h.writeError(w, req, err)
			return
		}
		err = h.formatter.WriteEncoded(w, "image/png", func(out io.Writer) error {
			return render.WritePNG(p, out, render.DefaultWidth, render.DefaultHeight)
		})
		if err != nil {
			h.controller.logger.Errorf("error writing cross-section plot: %v", err)
		}
		return
	}
	h.formatter.WriteResponse(w, req, map[string]any{
		"dataset":    e.Name,
		"field":      sel.field,
		"step":       sel.step,
		"resolution": resolution,
		"recomputed": recomputed,
		"profiles":   profiles,
	}, nil)
}

// PostSurfaceSection handles POST /datasets/{name}/surface-section
func (h *Handlers) PostSurfaceSection(w http.ResponseWriter, req *http.Request) {
	e, err := h.entry(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	sel, err := parseFieldSelection(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	d, err := e.Field(sel.field)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	resolution, err := h.resolution(req, e)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	paths, err := h.readPaths(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	if sel.column >= len(d.Columns) {
		h.writeError(w, req, badRequestf("column %d out of range (%d columns)", sel.column, len(d.Columns)))
		return
	}
	scs := &xsection.SurfaceCrossSection{
		Mesh:       e.Mesh,
		Dataset:    d,
		Column:     sel.column,
		Resolution: resolution,
		Agg:        raster.Agg(h.controller.rasterConfig.Agg),
	}
	surfaces, err := scs.Compute(paths)
	if err != nil {
		if errors.Is(err, adh.ErrRowCount) {
			err = badRequest{err: err}
		}
		h.writeError(w, req, err)
		return
	}

	h.formatter.WriteResponse(w, req, map[string]any{
		"dataset":    e.Name,
		"field":      d.Name,
		"resolution": resolution,
		"surfaces":   surfaces,
	}, nil)
}

// ListPaths handles GET /datasets/{name}/paths
func (h *Handlers) ListPaths(w http.ResponseWriter, req *http.Request) {
	if _, err := h.entry(req); err != nil {
		h.writeError(w, req, err)
		return
	}

	paths, err := h.controller.Paths.List(req.Context(), mux.Vars(req)["name"])
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	if responseformat.Requested(req) == responseformat.FormatGeoJSON {
		lines := make([]orb.LineString, len(paths))
		for i, p := range paths {
			lines[i] = p.Line
		}
		h.formatter.WriteGeoJSON(w, xsection.PathsToFeatureCollection(lines))
		return
	}
	h.formatter.WriteResponse(w, req, map[string]any{"paths": paths}, nil)
}

// SavePath handles POST /datasets/{name}/paths?name=... with a GeoJSON body.
// Every line in the body is saved under the same name.
func (h *Handlers) SavePath(w http.ResponseWriter, req *http.Request) {
	e, err := h.entry(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	name := req.URL.Query().Get("name")
	if name == "" {
		h.writeError(w, req, badRequestf("name is required"))
		return
	}

	lines, err := h.readPaths(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	saved, err := h.controller.Paths.SaveAll(req.Context(), e.Name, name, lines)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	h.formatter.WriteResponseStatus(w, req, http.StatusCreated, map[string]any{"paths": saved})
}

// GetPath handles GET /paths/{id}
func (h *Handlers) GetPath(w http.ResponseWriter, req *http.Request) {
	p, err := h.controller.Paths.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.formatter.WriteResponse(w, req, p, nil)
}

// DeletePath handles DELETE /paths/{id}
func (h *Handlers) DeletePath(w http.ResponseWriter, req *http.Request) {
	if err := h.controller.Paths.Delete(req.Context(), mux.Vars(req)["id"]); err != nil {
		h.writeError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
