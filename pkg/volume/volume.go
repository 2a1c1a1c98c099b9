// Package volume owns the quantized 3D thermal scalar field, its physical
// metadata, and the byte-to-physical quantization mapping. All downstream
// components (LOD reduction, raymarching, isosurface extraction) consume a
// Volume read-only; a Volume is never mutated after construction.
package volume

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

var (
	// ErrDataShapeMismatch indicates that the raw byte buffer length does
	// not match the declared grid dimensions. Detected before any traversal.
	ErrDataShapeMismatch = errors.New("volume data length does not match dimensions")

	// ErrBadMetadata indicates non-positive dimensions or spacing, or an
	// inverted value range.
	ErrBadMetadata = errors.New("invalid volume metadata")
)

// Meta describes the physical layout of a volume. It doubles as the on-disk
// metadata record (YAML sidecar next to the raw byte buffer).
type Meta struct {
	// Dims is the grid size in voxels per axis (nx, ny, nz).
	Dims [3]int `yaml:"dimensions"`

	// Spacing is the physical size of one voxel per axis.
	Spacing [3]float64 `yaml:"spacing"`

	// Origin is the world position of voxel (0,0,0). Defaults to zero.
	Origin [3]float64 `yaml:"origin"`

	// ValueRange maps stored bytes to physical units: byte 0 is
	// ValueRange[0], byte 255 is ValueRange[1].
	ValueRange [2]float64 `yaml:"valueRange"`
}

// Volume is an immutable quantized scalar field. Data is flat in z-major
// order: index = z*(ny*nx) + y*nx + x.
type Volume struct {
	Meta
	Data []byte
}

// Validate checks the metadata for internal consistency. It is called by
// Load, and again by consumers that receive a volume across a message
// boundary, so malformed input is always reported before grid traversal.
func (m Meta) Validate() error {
	for i := 0; i < 3; i++ {
		if m.Dims[i] <= 0 {
			return fmt.Errorf("%w: dimension %d is %d", ErrBadMetadata, i, m.Dims[i])
		}
		if m.Spacing[i] <= 0 {
			return fmt.Errorf("%w: spacing %d is %g", ErrBadMetadata, i, m.Spacing[i])
		}
	}
	if m.ValueRange[0] > m.ValueRange[1] {
		return fmt.Errorf("%w: value range [%g, %g] is inverted",
			ErrBadMetadata, m.ValueRange[0], m.ValueRange[1])
	}
	return nil
}

// VoxelCount returns nx*ny*nz.
func (m Meta) VoxelCount() int {
	return m.Dims[0] * m.Dims[1] * m.Dims[2]
}

// Load constructs a Volume from metadata and a raw byte buffer. The buffer
// is adopted, not copied; the caller must not retain a mutable reference.
func Load(meta Meta, raw []byte) (*Volume, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if want := meta.VoxelCount(); len(raw) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d for %dx%dx%d",
			ErrDataShapeMismatch, len(raw), want, meta.Dims[0], meta.Dims[1], meta.Dims[2])
	}
	return &Volume{Meta: meta, Data: raw}, nil
}

// Dequantize maps a stored byte to its physical value. This is the single
// source of truth for the affine mapping; other packages must use it rather
// than re-deriving the formula.
func (m Meta) Dequantize(b byte) float64 {
	return m.dequantizeF(float64(b))
}

// dequantizeF is Dequantize over a fractional byte coordinate, shared with
// the trilinear sampler so the mapping lives in one place.
func (m Meta) dequantizeF(b float64) float64 {
	return m.ValueRange[0] + b/255.0*(m.ValueRange[1]-m.ValueRange[0])
}

// Quantize maps a physical value back to a stored byte, clamping to the
// value range. It is the inverse of Dequantize up to one quantization step.
func (m Meta) Quantize(v float64) byte {
	span := m.ValueRange[1] - m.ValueRange[0]
	if span <= 0 {
		return 0
	}
	t := (v - m.ValueRange[0]) / span * 255.0
	if t < 0 {
		return 0
	}
	if t > 255 {
		return 255
	}
	return byte(math.Round(t))
}

// At returns the stored byte at voxel (x, y, z). Callers are responsible
// for bounds; the hot paths clamp before calling.
func (v *Volume) At(x, y, z int) byte {
	return v.Data[z*v.Dims[1]*v.Dims[0]+y*v.Dims[0]+x]
}

// Bounds returns the axis-aligned physical extent of the volume, from the
// origin to the far corner of the last voxel cell.
func (v *Volume) Bounds() (min, max r3.Vec) {
	min = r3.Vec{X: v.Origin[0], Y: v.Origin[1], Z: v.Origin[2]}
	max = r3.Vec{
		X: v.Origin[0] + float64(v.Dims[0]-1)*v.Spacing[0],
		Y: v.Origin[1] + float64(v.Dims[1]-1)*v.Spacing[1],
		Z: v.Origin[2] + float64(v.Dims[2]-1)*v.Spacing[2],
	}
	return min, max
}

// clampIndex clamps i into [0, n-1].
func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// voxelCoord converts a world position to continuous voxel coordinates,
// clamped to the grid.
func (v *Volume) voxelCoord(p r3.Vec) (fx, fy, fz float64) {
	fx = (p.X - v.Origin[0]) / v.Spacing[0]
	fy = (p.Y - v.Origin[1]) / v.Spacing[1]
	fz = (p.Z - v.Origin[2]) / v.Spacing[2]
	fx = math.Min(math.Max(fx, 0), float64(v.Dims[0]-1))
	fy = math.Min(math.Max(fy, 0), float64(v.Dims[1]-1))
	fz = math.Min(math.Max(fz, 0), float64(v.Dims[2]-1))
	return fx, fy, fz
}

// SampleNearest returns the dequantized value of the voxel nearest to the
// world position p.
func (v *Volume) SampleNearest(p r3.Vec) float64 {
	fx, fy, fz := v.voxelCoord(p)
	x := clampIndex(int(math.Round(fx)), v.Dims[0])
	y := clampIndex(int(math.Round(fy)), v.Dims[1])
	z := clampIndex(int(math.Round(fz)), v.Dims[2])
	return v.Dequantize(v.At(x, y, z))
}

// SampleTrilinear returns the trilinearly interpolated physical value at the
// world position p. Positions outside the grid are clamped to the boundary.
// Because the quantization mapping is affine, interpolating bytes and then
// dequantizing is equivalent to interpolating physical values.
func (v *Volume) SampleTrilinear(p r3.Vec) float64 {
	fx, fy, fz := v.voxelCoord(p)

	x0 := int(fx)
	y0 := int(fy)
	z0 := int(fz)
	x1 := clampIndex(x0+1, v.Dims[0])
	y1 := clampIndex(y0+1, v.Dims[1])
	z1 := clampIndex(z0+1, v.Dims[2])

	tx := fx - float64(x0)
	ty := fy - float64(y0)
	tz := fz - float64(z0)

	c000 := float64(v.At(x0, y0, z0))
	c100 := float64(v.At(x1, y0, z0))
	c010 := float64(v.At(x0, y1, z0))
	c110 := float64(v.At(x1, y1, z0))
	c001 := float64(v.At(x0, y0, z1))
	c101 := float64(v.At(x1, y0, z1))
	c011 := float64(v.At(x0, y1, z1))
	c111 := float64(v.At(x1, y1, z1))

	c00 := c000 + (c100-c000)*tx
	c10 := c010 + (c110-c010)*tx
	c01 := c001 + (c101-c001)*tx
	c11 := c011 + (c111-c011)*tx

	c0 := c00 + (c10-c00)*ty
	c1 := c01 + (c11-c01)*ty

	return v.dequantizeF(c0 + (c1-c0)*tz)
}

// LoadMetaFile reads a YAML metadata record from disk.
func LoadMetaFile(path string) (Meta, error) {
	var meta Meta
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("error reading metadata file: %w", err)
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("error parsing metadata file: %w", err)
	}
	return meta, nil
}

// LoadRawFile reads the raw byte buffer from disk.
func LoadRawFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading volume data file: %w", err)
	}
	return data, nil
}

// LoadFiles reads a metadata sidecar plus its raw buffer and assembles the
// Volume, failing fast on any shape mismatch.
func LoadFiles(metaPath, rawPath string) (*Volume, error) {
	meta, err := LoadMetaFile(metaPath)
	if err != nil {
		return nil, err
	}
	raw, err := LoadRawFile(rawPath)
	if err != nil {
		return nil, err
	}
	return Load(meta, raw)
}
