package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chrissnell/meshview/pkg/adh"
	"github.com/chrissnell/meshview/pkg/mesh"
	"github.com/chrissnell/meshview/pkg/raster"
	"github.com/chrissnell/meshview/pkg/render"
	"github.com/chrissnell/meshview/pkg/xsection"
	"github.com/paulmach/orb"
)

// DefaultRasterSize is the longest side of a rasterized image when no size is given
const DefaultRasterSize = 600

// MeshOptions selects a mesh, an optional dataset and the field to read from it
type MeshOptions struct {
	Mesh       string
	Dataset    string
	Projection string
	Step       int
	Column     int // -1 selects the magnitude of vector datasets
}

// Loaded is a mesh with its optional dataset
type Loaded struct {
	Mesh    *mesh.Mesh
	Dataset *adh.Dataset
}

// Load reads and projects the mesh and dataset named by opts
func Load(opts MeshOptions) (*Loaded, error) {
	if opts.Mesh == "" {
		return nil, fmt.Errorf("a mesh file is required")
	}
	m, err := adh.Read3DMFile(opts.Mesh)
	if err != nil {
		return nil, err
	}
	proj, err := mesh.ProjectionByName(opts.Projection)
	if err != nil {
		return nil, err
	}
	l := &Loaded{Mesh: m.Project(proj)}

	if opts.Dataset != "" {
		l.Dataset, err = adh.ReadMesh2DFile(opts.Dataset)
		if err != nil {
			return nil, err
		}
		if err := l.Dataset.Validate(len(m.Vertices)); err != nil {
			return nil, fmt.Errorf("%s: %w", opts.Dataset, err)
		}
	}
	return l, nil
}

// Values returns the selected dataset field, or the mesh depth when no
// dataset was loaded
func (l *Loaded) Values(step, column int) ([]float64, error) {
	if l.Dataset == nil {
		return l.Mesh.Depths(), nil
	}
	return l.Dataset.Field(step, column)
}

// Info writes a summary of the mesh and dataset to w
func Info(w io.Writer, opts MeshOptions) error {
	l, err := Load(opts)
	if err != nil {
		return err
	}

	b := l.Mesh.Bounds()
	depth := mesh.Stats(l.Mesh.Depths())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "mesh\t%s\n", opts.Mesh)
	fmt.Fprintf(tw, "vertices\t%d\n", len(l.Mesh.Vertices))
	fmt.Fprintf(tw, "triangles\t%d\n", len(l.Mesh.Triangles))
	fmt.Fprintf(tw, "bounds\t[%g, %g] - [%g, %g]\n", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	fmt.Fprintf(tw, "depth\tmin %g\tmax %g\tmean %g\n", depth.Min, depth.Max, depth.Mean)

	if d := l.Dataset; d != nil {
		fmt.Fprintf(tw, "dataset\t%s (%s, columns %s)\n", d.Name, d.Kind, strings.Join(d.Columns, ", "))
		fmt.Fprintf(tw, "timesteps\t%d\n", len(d.Steps))
		for i, step := range d.Steps {
			values, err := d.Field(i, opts.Column)
			if err != nil {
				return err
			}
			s := mesh.Stats(values)
			fmt.Fprintf(tw, "  t=%g %s\tmin %g\tmax %g\tmean %g\n", step.Time, d.TimeUnits, s.Min, s.Max, s.Mean)
		}
	}
	return tw.Flush()
}

// RasterizeOptions configures a rasterize run
type RasterizeOptions struct {
	MeshOptions
	Out      string
	Width    int
	Height   int
	Colormap string
	Agg      string
	Scale    int // rasterize at 1/Scale of the output size and upsample
}

// Rasterize renders the selected field to a PNG file
func Rasterize(opts RasterizeOptions) error {
	if opts.Out == "" {
		return fmt.Errorf("an output file is required")
	}
	l, err := Load(opts.MeshOptions)
	if err != nil {
		return err
	}
	values, err := l.Values(opts.Step, opts.Column)
	if err != nil {
		return err
	}

	bounds := l.Mesh.Bounds()
	width, height := opts.Width, opts.Height
	if width == 0 || height == 0 {
		size := max(width, height)
		if size == 0 {
			size = DefaultRasterSize
		}
		width, height = raster.FitBounds(bounds, size)
	}
	scale := max(opts.Scale, 1)
	grid, err := raster.Rasterize(l.Mesh, values, raster.Options{
		Width:  max(width/scale, 1),
		Height: max(height/scale, 1),
		Bounds: bounds,
		Agg:    raster.Agg(opts.Agg),
	})
	if err != nil {
		return err
	}

	cmap, err := raster.Colormap(opts.Colormap)
	if err != nil {
		return err
	}
	var img image.Image
	img, err = raster.ShadeAuto(grid, cmap)
	if err != nil {
		return err
	}
	if scale > 1 {
		img = raster.Resize(img, width, height)
	}

	f, err := os.Create(opts.Out)
	if err != nil {
		return err
	}
	if err := raster.EncodePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SectionOptions configures the cross-section and surface-section commands
type SectionOptions struct {
	MeshOptions
	PathFile   string
	Out        string
	CSV        string
	Resolution float64
	Agg        string
	Colormap   string
	Smooth     int // median filter kernel applied to profiles, 0 disables
}

// ReadPathsFile reads polylines from a GeoJSON file
func ReadPathsFile(path string) ([]orb.LineString, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	paths, err := xsection.ParsePaths(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return paths, nil
}

func (o SectionOptions) prepare() (*Loaded, []orb.LineString, float64, error) {
	if o.PathFile == "" {
		return nil, nil, 0, fmt.Errorf("a GeoJSON path file is required")
	}
	l, err := Load(o.MeshOptions)
	if err != nil {
		return nil, nil, 0, err
	}
	paths, err := ReadPathsFile(o.PathFile)
	if err != nil {
		return nil, nil, 0, err
	}
	res := o.Resolution
	if res == 0 {
		res = xsection.DefaultResolution(l.Mesh.Bounds())
	}
	return l, paths, res, nil
}

// CrossSection samples the selected field along each path. Profiles go to a
// PNG plot with Out, to a CSV file with CSV, and to w as GeoJSON when
// neither is set.
func CrossSection(w io.Writer, opts SectionOptions) error {
	l, paths, res, err := opts.prepare()
	if err != nil {
		return err
	}
	values, err := l.Values(opts.Step, opts.Column)
	if err != nil {
		return err
	}

	lcs := &xsection.LineCrossSection{Mesh: l.Mesh, Values: values, Resolution: res, Agg: raster.Agg(opts.Agg)}
	profiles, err := lcs.Compute(paths)
	if err != nil {
		return err
	}
	if opts.Smooth > 0 {
		if err := xsection.Smooth(profiles, opts.Smooth); err != nil {
			return err
		}
	}

	if opts.Out != "" {
		label := "depth"
		if l.Dataset != nil {
			label = l.Dataset.Name
		}
		p, err := render.ProfilePlot(profiles, "Cross section", label)
		if err != nil {
			return err
		}
		if err := render.SavePNG(p, opts.Out, render.DefaultWidth, render.DefaultHeight); err != nil {
			return err
		}
	}
	if opts.CSV != "" {
		if err := writeProfilesCSV(opts.CSV, profiles); err != nil {
			return err
		}
	}
	if opts.Out == "" && opts.CSV == "" {
		return json.NewEncoder(w).Encode(xsection.ProfilesToFeatureCollection(profiles))
	}
	return nil
}

// writeProfilesCSV writes one row per sample. Samples off the mesh have an
// empty value.
func writeProfilesCSV(path string, profiles []xsection.Profile) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.Write([]string{"path", "x", "y", "distance", "value"})
	for i, p := range profiles {
		for j, s := range p.Samples {
			value := ""
			if v := p.Values[j]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				value = strconv.FormatFloat(v, 'g', -1, 64)
			}
			cw.Write([]string{
				strconv.Itoa(i),
				strconv.FormatFloat(s.X, 'g', -1, 64),
				strconv.FormatFloat(s.Y, 'g', -1, 64),
				strconv.FormatFloat(s.Distance, 'g', -1, 64),
				value,
			})
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Close()
}

// SurfaceSection renders a distance-by-time heat map for every path. With
// several paths the path index is appended to the output file name.
func SurfaceSection(opts SectionOptions) error {
	if opts.Out == "" {
		return fmt.Errorf("an output file is required")
	}
	l, paths, res, err := opts.prepare()
	if err != nil {
		return err
	}
	if l.Dataset == nil {
		return fmt.Errorf("a dataset file is required")
	}

	scs := &xsection.SurfaceCrossSection{
		Mesh:       l.Mesh,
		Dataset:    l.Dataset,
		Column:     opts.Column,
		Resolution: res,
		Agg:        raster.Agg(opts.Agg),
	}
	surfaces, err := scs.Compute(paths)
	if err != nil {
		return err
	}

	for i := range surfaces {
		p, err := render.SurfacePlot(&surfaces[i], l.Dataset.Name, opts.Colormap)
		if err != nil {
			return err
		}
		if err := render.SavePNG(p, numberedPath(opts.Out, i, len(surfaces)), render.DefaultWidth, render.DefaultHeight); err != nil {
			return err
		}
	}
	return nil
}

// numberedPath returns out unchanged for a single output, otherwise
// name_i.ext
func numberedPath(out string, i, n int) string {
	if n <= 1 {
		return out
	}
	ext := filepath.Ext(out)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(out, ext), i, ext)
}
