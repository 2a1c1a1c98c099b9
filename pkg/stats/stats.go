// Package stats summarizes the value distribution of a volume. The summary
// backs the solid-color threshold mapping: callers pick an isosurface
// threshold as a percentile of the observed field rather than an absolute
// physical value.
package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"thermalvis/pkg/volume"
)

// Summary holds the distribution of dequantized sample values.
type Summary struct {
	Min         float64
	Max         float64
	Percentiles map[int]float64
}

// Summarize dequantizes every sample of the volume and computes the minimum,
// maximum, and the requested percentiles (0-100).
func Summarize(v *volume.Volume, percentiles ...int) (Summary, error) {
	if len(v.Data) == 0 {
		return Summary{}, fmt.Errorf("cannot summarize empty volume")
	}

	values := make([]float64, len(v.Data))
	for i, b := range v.Data {
		values[i] = v.Dequantize(b)
	}
	sort.Float64s(values)

	s := Summary{
		Min:         values[0],
		Max:         values[len(values)-1],
		Percentiles: make(map[int]float64, len(percentiles)),
	}
	for _, p := range percentiles {
		if p < 0 || p > 100 {
			return Summary{}, fmt.Errorf("percentile %d out of range [0,100]", p)
		}
		s.Percentiles[p] = stat.Quantile(float64(p)/100, stat.Empirical, values, nil)
	}
	return s, nil
}

// Threshold returns the percentile value when present, falling back to the
// midpoint of the observed range.
func (s Summary) Threshold(percentile int) float64 {
	if v, ok := s.Percentiles[percentile]; ok {
		return v
	}
	return (s.Min + s.Max) / 2
}
