package isosurface

// ColorMode selects the per-vertex attribute attached to an extracted mesh.
type ColorMode int

const (
	// ColorSolid produces positions and normals only; the surface is
	// shaded with a single color chosen by the caller.
	ColorSolid ColorMode = iota

	// ColorGradientMagnitude additionally attaches one scalar per vertex
	// holding the local gradient magnitude of the field.
	ColorGradientMagnitude
)

// Mesh is an unindexed triangle soup. Positions and Normals are flat xyz
// triples, three vertices per triangle; normals are constant within a
// triangle (flat shading). Scalars, when present, carries one value per
// vertex aligned 1:1 with Positions. Adjacent cells regenerate shared
// vertices independently; there is no deduplication.
type Mesh struct {
	Positions []float32
	Normals   []float32
	Scalars   []float32
}

// TriangleCount returns the number of triangles in the soup.
func (m *Mesh) TriangleCount() int {
	return len(m.Positions) / 9
}

// Empty reports whether the mesh holds no geometry. An empty mesh is a
// valid extraction outcome meaning no surface crosses the threshold; it is
// not an error.
func (m *Mesh) Empty() bool {
	return len(m.Positions) == 0
}
