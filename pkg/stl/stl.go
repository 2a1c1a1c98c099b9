// Package stl writes triangle geometry as binary STL files.
package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"thermalvis/pkg/isosurface"
)

// Triangle is a single facet with a flat normal and three vertices.
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// FromMesh converts an extracted triangle soup into STL facets. Per-vertex
// scalars have no STL representation and are dropped.
func FromMesh(m *isosurface.Mesh) []Triangle {
	count := m.TriangleCount()
	triangles := make([]Triangle, 0, count)
	for i := 0; i < count; i++ {
		p := m.Positions[i*9 : i*9+9]
		n := m.Normals[i*9 : i*9+3]
		triangles = append(triangles, Triangle{
			Normal:  [3]float32{n[0], n[1], n[2]},
			Vertex1: [3]float32{p[0], p[1], p[2]},
			Vertex2: [3]float32{p[3], p[4], p[5]},
			Vertex3: [3]float32{p[6], p[7], p[8]},
		})
	}
	return triangles
}

// SaveToSTL writes triangles to path in the binary STL layout: an 80-byte
// header, a uint32 facet count, then one 50-byte record per facet.
func SaveToSTL(path string, triangles []Triangle) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create STL file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	var header [80]byte
	copy(header[:], "thermalvis isosurface")
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write STL header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	for _, t := range triangles {
		if err := binary.Write(w, binary.LittleEndian, t); err != nil {
			return fmt.Errorf("failed to write triangle: %w", err)
		}
		// Attribute byte count, unused.
		if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil {
			return fmt.Errorf("failed to write attribute bytes: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush STL file: %w", err)
	}
	return nil
}
