// Package lod produces coarser approximations of a volume by block
// averaging, and selects the approximation tier from camera distance so that
// distant (cheap) views never pay for full-resolution sampling.
package lod

import (
	"fmt"
	"math"
	"sort"

	"thermalvis/pkg/volume"
)

// Downsample reduces a volume by the given stride using non-overlapping
// axis-aligned blocks of side stride. Boundary blocks are truncated to the
// remaining extent, never wrapped or padded. Each output voxel is the
// arithmetic mean of its block's samples, rounded half away from zero.
//
// The output dimensions are ceil(dim/stride) per axis, the spacing is
// multiplied by stride, and the value range is copied verbatim so the
// quantization mapping of the source still applies. stride 1 returns the
// input volume unchanged.
func Downsample(v *volume.Volume, stride int) (*volume.Volume, error) {
	if stride < 1 {
		return nil, fmt.Errorf("downsample stride must be >= 1, got %d", stride)
	}
	if stride == 1 {
		return v, nil
	}

	var meta volume.Meta
	for i := 0; i < 3; i++ {
		meta.Dims[i] = (v.Dims[i] + stride - 1) / stride
		meta.Spacing[i] = v.Spacing[i] * float64(stride)
		meta.Origin[i] = v.Origin[i]
	}
	meta.ValueRange = v.ValueRange

	nx, ny, nz := v.Dims[0], v.Dims[1], v.Dims[2]
	out := make([]byte, meta.VoxelCount())

	idx := 0
	for bz := 0; bz < nz; bz += stride {
		z1 := bz + stride
		if z1 > nz {
			z1 = nz
		}
		for by := 0; by < ny; by += stride {
			y1 := by + stride
			if y1 > ny {
				y1 = ny
			}
			for bx := 0; bx < nx; bx += stride {
				x1 := bx + stride
				if x1 > nx {
					x1 = nx
				}

				sum := 0
				count := 0
				for z := bz; z < z1; z++ {
					for y := by; y < y1; y++ {
						row := z*ny*nx + y*nx
						for x := bx; x < x1; x++ {
							sum += int(v.Data[row+x])
							count++
						}
					}
				}

				// Samples are unsigned, so rounding half away from
				// zero is floor(mean + 0.5).
				out[idx] = byte(math.Floor(float64(sum)/float64(count) + 0.5))
				idx++
			}
		}
	}

	return &volume.Volume{Meta: meta, Data: out}, nil
}

// TierPolicy maps camera distance to a downsampling stride. Thresholds must
// be ascending; distances below Thresholds[i] select stride i+1, and
// anything beyond the last threshold selects stride len(Thresholds)+1.
// The mapping is monotone: a larger distance never selects a finer tier.
type TierPolicy struct {
	Thresholds []float64
}

// DefaultTierPolicy returns the documented example mapping: distance < 2
// selects stride 1, < 4 stride 2, < 8 stride 3, else stride 4.
func DefaultTierPolicy() TierPolicy {
	return TierPolicy{Thresholds: []float64{2, 4, 8}}
}

// NewTierPolicy builds a policy from explicit thresholds, sorting them so
// the monotone mapping holds regardless of configuration order.
func NewTierPolicy(thresholds []float64) TierPolicy {
	sorted := make([]float64, len(thresholds))
	copy(sorted, thresholds)
	sort.Float64s(sorted)
	return TierPolicy{Thresholds: sorted}
}

// Tier returns the downsampling stride for a camera distance.
func (p TierPolicy) Tier(distance float64) int {
	for i, th := range p.Thresholds {
		if distance < th {
			return i + 1
		}
	}
	return len(p.Thresholds) + 1
}
