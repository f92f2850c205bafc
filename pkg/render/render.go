// Package render draws cross-section profiles and surfaces as static plots
package render

import (
	"fmt"
	"io"
	"math"

	"github.com/chrissnell/meshview/pkg/raster"
	"github.com/chrissnell/meshview/pkg/xsection"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Default plot size used by the command line and the REST server
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// ProfilePlot draws value against distance, one line per profile. Runs of
// samples off the mesh break the line instead of being drawn as zero.
func ProfilePlot(profiles []xsection.Profile, title, valueLabel string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Distance"
	p.Y.Label.Text = valueLabel
	p.Add(plotter.NewGrid())

	for i, prof := range profiles {
		segments := finiteRuns(prof)
		for k, xys := range segments {
			line, err := plotter.NewLine(xys)
			if err != nil {
				return nil, fmt.Errorf("profile %d: %w", i, err)
			}
			line.Color = plotutil.Color(i)
			line.Dashes = plotutil.Dashes(0)
			p.Add(line)
			if k == 0 && len(profiles) > 1 {
				p.Legend.Add(fmt.Sprintf("path %d", i), line)
			}
		}
	}
	return p, nil
}

// finiteRuns splits a profile into contiguous runs of on-mesh samples
func finiteRuns(prof xsection.Profile) []plotter.XYs {
	var runs []plotter.XYs
	var cur plotter.XYs
	for i, s := range prof.Samples {
		v := prof.Values[i]
		if math.IsNaN(v) {
			if len(cur) > 0 {
				runs = append(runs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: s.Distance, Y: v})
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// surfaceGrid adapts a Surface to plotter.GridXYZ: columns are samples along
// the path, rows are timesteps.
type surfaceGrid struct {
	s *xsection.Surface
}

func (g surfaceGrid) Dims() (c, r int)   { return len(g.s.Samples), len(g.s.Times) }
func (g surfaceGrid) Z(c, r int) float64 { return g.s.Values[r][c] }
func (g surfaceGrid) X(c int) float64    { return g.s.Samples[c].Distance }
func (g surfaceGrid) Y(r int) float64    { return g.s.Times[r] }

// SurfacePlot draws a distance by time heat map of a surface cross-section
func SurfacePlot(s *xsection.Surface, title, cmapName string) (*plot.Plot, error) {
	if len(s.Samples) < 2 || len(s.Times) < 2 {
		return nil, fmt.Errorf("surface needs at least 2 samples and 2 timesteps, got %d and %d", len(s.Samples), len(s.Times))
	}

	cmap, err := raster.Colormap(cmapName)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Distance"
	p.Y.Label.Text = "Time"
	if s.TimeUnits != "" {
		p.Y.Label.Text = fmt.Sprintf("Time (%s)", s.TimeUnits)
	}

	cmap.SetMax(1)
	cmap.SetMin(0)
	h := plotter.NewHeatMap(surfaceGrid{s: s}, cmap.Palette(255))
	if !(h.Max > h.Min) {
		// Constant surfaces still need a non-empty range to index the palette
		h.Max = h.Min + 1
	}
	p.Add(h)
	return p, nil
}

// WritePNG renders p as a PNG of the given size
func WritePNG(p *plot.Plot, w io.Writer, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG renders p to a PNG file
func SavePNG(p *plot.Plot, path string, width, height vg.Length) error {
	return p.Save(width, height, path)
}
