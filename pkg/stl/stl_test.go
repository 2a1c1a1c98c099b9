package stl

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"thermalvis/pkg/isosurface"
)

// TestSaveToSTL verifies that the STL file can be written with the binary
// layout: 80-byte header, uint32 count, 50 bytes per triangle.
func TestSaveToSTL(t *testing.T) {
	triangles := []Triangle{
		{
			Normal:  [3]float32{0, 0, 1},
			Vertex1: [3]float32{0, 0, 0},
			Vertex2: [3]float32{1, 0, 0},
			Vertex3: [3]float32{0, 1, 0},
		},
	}

	path := filepath.Join(t.TempDir(), "test.stl")
	if err := SaveToSTL(path, triangles); err != nil {
		t.Fatalf("Failed to save STL: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}

	wantSize := 80 + 4 + 50*len(triangles)
	if len(raw) != wantSize {
		t.Errorf("Expected file size %d, got %d", wantSize, len(raw))
	}

	count := binary.LittleEndian.Uint32(raw[80:84])
	if count != uint32(len(triangles)) {
		t.Errorf("Expected triangle count %d, got %d", len(triangles), count)
	}
}

// TestFromMesh verifies the soup-to-facet conversion preserves vertex and
// normal layout.
func TestFromMesh(t *testing.T) {
	mesh := &isosurface.Mesh{
		Positions: []float32{
			0, 0, 0, 1, 0, 0, 0, 1, 0,
			2, 2, 2, 3, 2, 2, 2, 3, 2,
		},
		Normals: []float32{
			0, 0, 1, 0, 0, 1, 0, 0, 1,
			0, 0, -1, 0, 0, -1, 0, 0, -1,
		},
	}

	triangles := FromMesh(mesh)
	if len(triangles) != 2 {
		t.Fatalf("Expected 2 triangles, got %d", len(triangles))
	}

	if triangles[0].Vertex2 != [3]float32{1, 0, 0} {
		t.Errorf("Unexpected vertex: %v", triangles[0].Vertex2)
	}
	if triangles[1].Normal != [3]float32{0, 0, -1} {
		t.Errorf("Unexpected normal: %v", triangles[1].Normal)
	}
}

// TestFromMeshEmpty verifies an empty soup converts to zero facets.
func TestFromMeshEmpty(t *testing.T) {
	if got := FromMesh(&isosurface.Mesh{}); len(got) != 0 {
		t.Errorf("Expected no triangles, got %d", len(got))
	}
}
