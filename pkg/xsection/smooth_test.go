package xsection

import (
	"math"
	"testing"
)

func TestMedianFilter(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name     string
		values   Values
		kernel   int
		expected Values
	}{
		{
			name:     "kernel 1 is identity",
			values:   Values{3, 1, 2},
			kernel:   1,
			expected: Values{3, 1, 2},
		},
		{
			name:     "spike removed",
			values:   Values{1, 1, 9, 1, 1},
			kernel:   3,
			expected: Values{1, 1, 1, 1, 1},
		},
		{
			name:     "off-mesh samples stay off-mesh",
			values:   Values{nan, 2, 8, 2, nan},
			kernel:   5,
			expected: Values{nan, 2, 2, 2, nan},
		},
		{
			name:     "empty",
			values:   Values{},
			kernel:   3,
			expected: Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MedianFilter(tt.values, tt.kernel)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d values, got %d", len(tt.expected), len(got))
			}
			for i := range got {
				if math.IsNaN(tt.expected[i]) {
					if !math.IsNaN(got[i]) {
						t.Errorf("index %d: expected NaN, got %v", i, got[i])
					}
					continue
				}
				if got[i] != tt.expected[i] {
					t.Errorf("index %d: expected %v, got %v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestMedianFilterKernel(t *testing.T) {
	for _, k := range []int{0, -1, 2, 4} {
		if _, err := MedianFilter(Values{1, 2, 3}, k); err == nil {
			t.Errorf("kernel %d: expected an error", k)
		}
	}
}

func TestSmooth(t *testing.T) {
	input := Values{1, 9, 1}
	profiles := []Profile{{Values: input}}
	if err := Smooth(profiles, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profiles[0].Values[1] != 1 {
		t.Errorf("expected the spike smoothed, got %v", profiles[0].Values)
	}
	if input[1] != 9 {
		t.Errorf("the input values should not be modified")
	}
}
