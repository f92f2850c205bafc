package xsection

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MedianFilter smooths v with a sliding median of kernel samples. The window
// shrinks at the ends instead of padding, and off-mesh (NaN) samples neither
// contribute to nor receive a value.
func MedianFilter(v Values, kernel int) (Values, error) {
	if kernel < 1 || kernel%2 == 0 {
		return nil, fmt.Errorf("median kernel must be a positive odd integer, got %d", kernel)
	}

	half := kernel / 2
	out := make(Values, len(v))
	window := make([]float64, 0, kernel)
	for i := range v {
		if math.IsNaN(v[i]) {
			out[i] = math.NaN()
			continue
		}

		window = window[:0]
		for j := max(i-half, 0); j <= min(i+half, len(v)-1); j++ {
			if !math.IsNaN(v[j]) {
				window = append(window, v[j])
			}
		}
		sort.Float64s(window)
		out[i] = stat.Quantile(0.5, stat.Empirical, window, nil)
	}
	return out, nil
}

// Smooth applies MedianFilter to the values of every profile in place
func Smooth(profiles []Profile, kernel int) error {
	for i := range profiles {
		v, err := MedianFilter(profiles[i].Values, kernel)
		if err != nil {
			return err
		}
		profiles[i].Values = v
	}
	return nil
}
