// Package scheduler offloads isosurface extraction to isolated worker
// goroutines so the interactive rendering path never blocks. Each submitted
// request runs exactly one extraction and resolves exactly once, on its own
// result channel; there is no cancellation primitive, and arbitration of
// overlapping in-flight requests is the caller's concern.
package scheduler

import (
	"errors"
	"fmt"
	"sync/atomic"

	"thermalvis/internal/models"
	"thermalvis/pkg/isosurface"
)

// ErrWorkerFailure marks an internal failure inside the extraction worker.
// It is surfaced as a rejected Result, never conflated with the valid
// empty-surface outcome.
var ErrWorkerFailure = errors.New("extraction worker failure")

// Result is the terminal outcome of one extraction request. Exactly one of
// Mesh and Err is set: a nil Err with an empty mesh means no surface
// crosses the threshold.
type Result struct {
	// ID echoes the request id so callers with several in-flight
	// extractions can correlate results, which arrive in completion
	// order, not submission order.
	ID   uint64
	Mesh *isosurface.Mesh
	Err  error
}

// ProgressFunc receives human-readable progress lines. Delivery is
// fire-and-forget and best-effort.
type ProgressFunc func(format string, args ...interface{})

// Scheduler hands extraction requests to worker goroutines. The zero value
// is not usable; construct with New.
type Scheduler struct {
	nextID   atomic.Uint64
	progress ProgressFunc
}

// New returns a Scheduler. progress may be nil.
func New(progress ProgressFunc) *Scheduler {
	if progress == nil {
		progress = func(string, ...interface{}) {}
	}
	return &Scheduler{progress: progress}
}

// Submit hands a self-contained request to an isolated worker and returns
// immediately. The returned channel is buffered and delivers exactly one
// Result; requests are assigned monotonically increasing ids.
//
// The request's Data buffer is transferred, not copied: from this call on
// it belongs to the worker, and a caller that still needs the bytes must
// have kept its own copy.
func (s *Scheduler) Submit(req models.ExtractionRequest) (uint64, <-chan Result) {
	id := s.nextID.Add(1)
	ch := make(chan Result, 1)

	go s.run(id, req, ch)
	return id, ch
}

// run executes one extraction in isolation. Any panic is recovered and
// reported as a rejected Result so a worker fault can never take down the
// rendering path or masquerade as an empty surface.
func (s *Scheduler) run(id uint64, req models.ExtractionRequest, ch chan<- Result) {
	defer func() {
		if r := recover(); r != nil {
			ch <- Result{ID: id, Err: fmt.Errorf("%w: %v", ErrWorkerFailure, r)}
		}
	}()

	if req.QualityStride < 1 || req.QualityStride > 4 {
		ch <- Result{ID: id, Err: fmt.Errorf("%w: quality stride %d out of range [1,4]",
			ErrWorkerFailure, req.QualityStride)}
		return
	}

	// Malformed metadata is rejected here, before the extractor ever
	// touches the grid.
	vol, err := req.Volume()
	if err != nil {
		ch <- Result{ID: id, Err: fmt.Errorf("%w: %v", ErrWorkerFailure, err)}
		return
	}

	s.progress("extraction %d: marching %dx%dx%d at stride %d, threshold %d",
		id, vol.Dims[0], vol.Dims[1], vol.Dims[2], req.QualityStride, req.Thresh8)

	mesh, err := isosurface.Extract(vol, req.Thresh8, req.QualityStride, req.ColorMode)
	if err != nil {
		ch <- Result{ID: id, Err: fmt.Errorf("%w: %v", ErrWorkerFailure, err)}
		return
	}

	s.progress("extraction %d: %d triangles", id, mesh.TriangleCount())
	ch <- Result{ID: id, Mesh: mesh}
}
