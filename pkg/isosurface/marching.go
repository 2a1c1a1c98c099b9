// Package isosurface extracts threshold surfaces from a quantized volume as
// flat-shaded triangle geometry using marching tetrahedra. Decomposing each
// hexahedral cell into tetrahedra sidesteps the face ambiguities of naive
// cube marching; the one remaining ambiguity (the two-above/two-below quad)
// is resolved with a fixed diagonal, which can leave a visible seam in
// symmetric cells.
package isosurface

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"thermalvis/pkg/volume"
)

// cornerOffsets enumerates the 8 corners of a hexahedral cell in the
// conventional order: bottom face counter-clockwise, then top face.
var cornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// tetrahedra decomposes a cell into 6 tetrahedra as a fan around the fixed
// 0-6 body diagonal. Every tetrahedron shares that diagonal, so adjacent
// tetrahedra within a cell agree on their shared faces.
var tetrahedra = [6][4]int{
	{0, 5, 1, 6},
	{0, 1, 2, 6},
	{0, 2, 3, 6},
	{0, 3, 7, 6},
	{0, 7, 4, 6},
	{0, 4, 5, 6},
}

// corner holds everything the tetrahedron pass needs about one cell corner.
type corner struct {
	pos   mgl32.Vec3
	value float64
	grad  float64
}

// Extract walks the volume's cells at the given stride and emits the
// threshold surface for thresh8 (in quantized byte units) as an unindexed
// triangle soup in cell-traversal order: z-major, then y, then x.
//
// Facet winding is consistent across the surface: every triangle's normal
// points from the at-or-above region toward the below region.
//
// The cell stride is independent of the volume's LOD tier; boundary cells
// are narrower, with corner indices clamped to the last valid sample (never
// wrapped). A zero-triangle mesh is a valid result meaning no surface
// crosses the threshold. Malformed metadata or a data/dims mismatch is
// reported before any traversal begins.
func Extract(v *volume.Volume, thresh8 byte, stride int, mode ColorMode) (*Mesh, error) {
	if err := v.Meta.Validate(); err != nil {
		return nil, err
	}
	if want := v.VoxelCount(); len(v.Data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d",
			volume.ErrDataShapeMismatch, len(v.Data), want)
	}
	if stride < 1 {
		return nil, fmt.Errorf("cell stride must be >= 1, got %d", stride)
	}

	mesh := &Mesh{}
	thresh := float64(thresh8)
	nx, ny, nz := v.Dims[0], v.Dims[1], v.Dims[2]
	withGrad := mode == ColorGradientMagnitude

	var corners [8]corner
	for z := 0; z < nz-1; z += stride {
		for y := 0; y < ny-1; y += stride {
			for x := 0; x < nx-1; x += stride {
				for i, off := range cornerOffsets {
					cx := clampIndex(x+off[0]*stride, nx)
					cy := clampIndex(y+off[1]*stride, ny)
					cz := clampIndex(z+off[2]*stride, nz)

					corners[i].pos = mgl32.Vec3{
						float32(v.Origin[0] + float64(cx)*v.Spacing[0]),
						float32(v.Origin[1] + float64(cy)*v.Spacing[1]),
						float32(v.Origin[2] + float64(cz)*v.Spacing[2]),
					}
					corners[i].value = float64(v.At(cx, cy, cz))
					if withGrad {
						corners[i].grad = gradientMagnitude(v, cx, cy, cz)
					}
				}

				for _, tet := range tetrahedra {
					marchTetrahedron(mesh, &corners, tet, thresh, withGrad)
				}
			}
		}
	}

	return mesh, nil
}

// tetEdgeTable lists, per classification mask (bit i set when the
// tetrahedron's i-th vertex is at or above the threshold), the local edges
// whose crossings form the surface. One or three bits set yield a triangle;
// two bits a quad. Edge orders are chosen for the positive orientation
// shared by every tetrahedron in the fan, so each facet normal points from
// the at-or-above side toward the below side regardless of which slots the
// minority vertices occupy.
var tetEdgeTable = [16][][2]int{
	0x1: {{0, 1}, {0, 2}, {0, 3}},
	0x2: {{1, 0}, {1, 3}, {1, 2}},
	0x3: {{0, 2}, {0, 3}, {1, 3}, {1, 2}},
	0x4: {{2, 0}, {2, 1}, {2, 3}},
	0x5: {{0, 3}, {0, 1}, {2, 1}, {2, 3}},
	0x6: {{1, 0}, {1, 3}, {2, 3}, {2, 0}},
	0x7: {{3, 0}, {3, 1}, {3, 2}},
	0x8: {{3, 0}, {3, 2}, {3, 1}},
	0x9: {{0, 1}, {0, 2}, {3, 2}, {3, 1}},
	0xA: {{1, 2}, {1, 0}, {3, 0}, {3, 2}},
	0xB: {{2, 0}, {2, 3}, {2, 1}},
	0xC: {{2, 0}, {2, 1}, {3, 1}, {3, 0}},
	0xD: {{1, 0}, {1, 2}, {1, 3}},
	0xE: {{0, 1}, {0, 3}, {0, 2}},
}

// marchTetrahedron classifies one tetrahedron against the threshold and
// appends its surface triangles, if any, to the mesh.
func marchTetrahedron(mesh *Mesh, corners *[8]corner, tet [4]int, thresh float64, withGrad bool) {
	mask := 0
	for i, ci := range tet {
		if corners[ci].value >= thresh {
			mask |= 1 << i
		}
	}

	edges := tetEdgeTable[mask]
	if edges == nil {
		// Fully inside or fully outside: no crossing.
		return
	}

	var q [4]isoVertex
	for i, e := range edges {
		q[i] = interpEdge(corners, tet[e[0]], tet[e[1]], thresh)
	}
	appendTriangle(mesh, q[0], q[1], q[2], withGrad)
	if len(edges) == 4 {
		// The quad is split along its fixed first-to-third diagonal. The
		// split does not adapt to the vertex configuration and can seam
		// in symmetric cells.
		appendTriangle(mesh, q[0], q[2], q[3], withGrad)
	}
}

// isoVertex is a surface vertex produced by edge interpolation.
type isoVertex struct {
	pos  mgl32.Vec3
	grad float32
}

// interpEdge locates the threshold crossing on the edge between corners a
// and b. When both endpoints carry the same value, t defaults to 0.5 (the
// edge midpoint) to avoid a zero-denominator; this is handled internally
// and never surfaced as an error. The per-vertex gradient is interpolated
// with the same parameter as the position.
func interpEdge(corners *[8]corner, a, b int, thresh float64) isoVertex {
	ca, cb := corners[a], corners[b]
	t := 0.5
	if ca.value != cb.value {
		t = (thresh - ca.value) / (cb.value - ca.value)
	}
	return isoVertex{
		pos:  ca.pos.Add(cb.pos.Sub(ca.pos).Mul(float32(t))),
		grad: float32(ca.grad + t*(cb.grad-ca.grad)),
	}
}

// appendTriangle emits one flat-shaded triangle into the soup.
func appendTriangle(mesh *Mesh, a, b, c isoVertex, withGrad bool) {
	n := b.pos.Sub(a.pos).Cross(c.pos.Sub(a.pos))
	if n.Len() > 0 {
		n = n.Normalize()
	}

	mesh.Positions = append(mesh.Positions,
		a.pos.X(), a.pos.Y(), a.pos.Z(),
		b.pos.X(), b.pos.Y(), b.pos.Z(),
		c.pos.X(), c.pos.Y(), c.pos.Z())
	for i := 0; i < 3; i++ {
		mesh.Normals = append(mesh.Normals, n.X(), n.Y(), n.Z())
	}
	if withGrad {
		mesh.Scalars = append(mesh.Scalars, a.grad, b.grad, c.grad)
	}
}

// gradientMagnitude estimates the field gradient magnitude at a grid point
// using central differences, one-sided at the grid boundaries. Differences
// are taken in byte units and scaled to physical units per distance by the
// byte-to-physical factor and the voxel spacing, then combined as a
// Euclidean norm.
func gradientMagnitude(v *volume.Volume, x, y, z int) float64 {
	// Byte-to-physical scale, derived from the volume's own mapping.
	scale := (v.Dequantize(255) - v.Dequantize(0)) / 255.0

	axisDelta := func(lo, hi int, span float64) float64 {
		if span == 0 {
			return 0
		}
		return float64(hi-lo) * scale / span
	}

	x0, x1 := clampIndex(x-1, v.Dims[0]), clampIndex(x+1, v.Dims[0])
	y0, y1 := clampIndex(y-1, v.Dims[1]), clampIndex(y+1, v.Dims[1])
	z0, z1 := clampIndex(z-1, v.Dims[2]), clampIndex(z+1, v.Dims[2])

	gx := axisDelta(int(v.At(x0, y, z)), int(v.At(x1, y, z)), float64(x1-x0)*v.Spacing[0])
	gy := axisDelta(int(v.At(x, y0, z)), int(v.At(x, y1, z)), float64(y1-y0)*v.Spacing[1])
	gz := axisDelta(int(v.At(x, y, z0)), int(v.At(x, y, z1)), float64(z1-z0)*v.Spacing[2])

	return math.Sqrt(gx*gx + gy*gy + gz*gz)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
