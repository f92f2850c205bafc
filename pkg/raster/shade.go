package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sort"

	"golang.org/x/image/draw"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

var colormaps = map[string]func() palette.ColorMap{
	"kindlmann":          moreland.Kindlmann,
	"extended-kindlmann": moreland.ExtendedKindlmann,
	"blackbody":          moreland.BlackBody,
	"extended-blackbody": moreland.ExtendedBlackBody,
	"blue-red":           func() palette.ColorMap { return moreland.SmoothBlueRed() },
	"blue-tan":           func() palette.ColorMap { return moreland.SmoothBlueTan() },
	"green-purple":       func() palette.ColorMap { return moreland.SmoothGreenPurple() },
	"purple-orange":      func() palette.ColorMap { return moreland.SmoothPurpleOrange() },
}

// DefaultColormap is used when no colormap is configured
const DefaultColormap = "kindlmann"

// Colormap returns a fresh color map by name
func Colormap(name string) (palette.ColorMap, error) {
	if name == "" {
		name = DefaultColormap
	}
	fn, ok := colormaps[name]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q (available: %v)", name, ColormapNames())
	}
	return fn(), nil
}

// ColormapNames lists the supported colormap names in sorted order
func ColormapNames() []string {
	names := make([]string, 0, len(colormaps))
	for name := range colormaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shade maps every pixel through cmap, stretching [lo, hi] over the full
// color range. NaN pixels are left transparent; values outside the range clamp.
func Shade(g *Grid, cmap palette.ColorMap, lo, hi float64) (*image.NRGBA, error) {
	if hi <= lo {
		// A constant field still needs a non-empty range to index the color map
		hi = lo + 1
	}
	cmap.SetMin(lo)
	cmap.SetMax(hi)

	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for j := 0; j < g.Height; j++ {
		for i := 0; i < g.Width; i++ {
			v := g.Value(i, j)
			if math.IsNaN(v) {
				continue
			}
			c, err := cmap.At(math.Max(lo, math.Min(hi, v)))
			if err != nil {
				return nil, fmt.Errorf("shading pixel (%d,%d): %w", i, j, err)
			}
			img.Set(i, j, color.NRGBAModel.Convert(c))
		}
	}
	return img, nil
}

// ShadeAuto shades g stretched over its own finite value range
func ShadeAuto(g *Grid, cmap palette.ColorMap) (*image.NRGBA, error) {
	lo, hi, ok := g.Range()
	if !ok {
		return image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height)), nil
	}
	return Shade(g, cmap, lo, hi)
}

// Resize scales a shaded image to width x height with bilinear filtering
func Resize(src image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// EncodePNG writes img as PNG
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
