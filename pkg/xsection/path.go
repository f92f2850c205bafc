// Package xsection samples mesh fields along polylines, producing distance
// profiles for a single field or distance-by-time surfaces for a dataset.
package xsection

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MaxSamples caps the number of points generated for a single path
const MaxSamples = 1_000_000

// DefaultDivisions is how many samples span the longest side of a mesh at
// the default resolution
const DefaultDivisions = 200

var ErrBadResolution = errors.New("resolution must be positive")

// DefaultResolution is the sampling step used when none is given
func DefaultResolution(b orb.Bound) float64 {
	return math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]) / DefaultDivisions
}

// Sample is a point along a path and its distance from the path start
type Sample struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Distance float64 `json:"distance"`
}

// SamplePath places points every resolution map units along each segment
// of path. Every path vertex is included, so the last sample always sits on
// the final vertex and reports the full path length.
func SamplePath(path orb.LineString, resolution float64) ([]Sample, error) {
	if !(resolution > 0) {
		return nil, ErrBadResolution
	}
	if len(path) == 0 {
		return nil, nil
	}

	if n := planar.Length(path) / resolution; n > MaxSamples {
		return nil, fmt.Errorf("path would produce %.0f samples at resolution %v (max %d)", n, resolution, MaxSamples)
	}

	samples := []Sample{{X: path[0][0], Y: path[0][1]}}
	travelled := 0.0
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		segLen := planar.Distance(a, b)
		if segLen == 0 {
			continue
		}

		steps := int(math.Ceil(segLen / resolution))
		for k := 1; k < steps; k++ {
			f := float64(k) * resolution / segLen
			samples = append(samples, Sample{
				X:        a[0] + f*(b[0]-a[0]),
				Y:        a[1] + f*(b[1]-a[1]),
				Distance: travelled + float64(k)*resolution,
			})
		}

		travelled += segLen
		samples = append(samples, Sample{X: b[0], Y: b[1], Distance: travelled})
	}
	return samples, nil
}

// Values is a series of sampled values. NaN marks samples off the mesh and
// is written as null in JSON.
type Values []float64

// MarshalJSON encodes NaN and Inf as null since JSON has no representation for them
func (v Values) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(v)*8+2)
	buf = append(buf, '[')
	for i, f := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, f, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

// nullable converts v for generic encoders (GeoJSON properties) that cannot see MarshalJSON
func (v Values) nullable() []any {
	out := make([]any, len(v))
	for i, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out[i] = f
	}
	return out
}
