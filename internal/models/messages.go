// Package models defines the wire-format records exchanged with the
// extraction worker and external collaborators.
package models

import (
	"thermalvis/pkg/isosurface"
	"thermalvis/pkg/volume"
)

// ExtractionRequest is the self-contained message submitted to the
// extraction scheduler. It carries everything the isolated worker needs; no
// shared state crosses the boundary with it.
type ExtractionRequest struct {
	// Dims, Spacing, Origin and ValueRange describe the snapshot grid.
	Dims       [3]int
	Spacing    [3]float64
	Origin     [3]float64
	ValueRange [2]float64

	// Thresh8 is the surface threshold in quantized byte units (0-255).
	Thresh8 uint8

	// Data is the volume byte buffer. Ownership transfers to the worker
	// on submission; a caller that still needs the buffer afterwards must
	// retain its own copy beforehand.
	Data []byte

	// QualityStride is the cell-skip stride, 1 (full quality) to 4.
	QualityStride int

	// ColorMode selects the optional per-vertex attribute.
	ColorMode isosurface.ColorMode
}

// Volume assembles the snapshot into a Volume, failing fast on malformed
// metadata or a data/shape mismatch before any traversal.
func (r ExtractionRequest) Volume() (*volume.Volume, error) {
	return volume.Load(volume.Meta{
		Dims:       r.Dims,
		Spacing:    r.Spacing,
		Origin:     r.Origin,
		ValueRange: r.ValueRange,
	}, r.Data)
}

// ExtractionResponse is the worker's reply: flat float32 triples for
// positions and normals plus the optional per-vertex scalars. Empty slices
// signal "no surface at this threshold", not an error.
type ExtractionResponse struct {
	Positions []float32
	Normals   []float32
	Scalars   []float32
}

// ResponseFromMesh converts extractor output into the wire record.
func ResponseFromMesh(m *isosurface.Mesh) ExtractionResponse {
	return ExtractionResponse{
		Positions: m.Positions,
		Normals:   m.Normals,
		Scalars:   m.Scalars,
	}
}
