// Package engine ties the visualization components together in one explicit
// context value: the loaded volume, its LOD tier cache, the active surface
// mesh, the extraction scheduler, and the per-frame render parameters.
// Nothing is looked up globally; every operation goes through an Engine.
//
// The rendering path is single-threaded cooperative: SelectTier, Frame and
// ApplyResult are called from the frame loop only. Extraction workers never
// touch the Engine; their results cross back as scheduler.Result values and
// are applied on the frame path.
package engine

import (
	"fmt"

	"thermalvis/internal/models"
	"thermalvis/pkg/config"
	"thermalvis/pkg/isosurface"
	"thermalvis/pkg/lod"
	"thermalvis/pkg/raymarch"
	"thermalvis/pkg/scheduler"
	"thermalvis/pkg/stats"
	"thermalvis/pkg/volume"
)

// Engine owns the volume, its reduced tiers, the active mesh, and the
// extraction scheduler.
type Engine struct {
	base   *volume.Volume
	tiers  map[int]*volume.Volume
	policy lod.TierPolicy

	activeStride int
	mesh         *isosurface.Mesh

	sched    *scheduler.Scheduler
	params   raymarch.Params
	quality  int
	progress scheduler.ProgressFunc

	summary    stats.Summary
	summarized bool
}

// New builds an Engine around a loaded volume. progress may be nil.
func New(vol *volume.Volume, cfg *config.Config, progress scheduler.ProgressFunc) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if progress == nil {
		progress = func(string, ...interface{}) {}
	}

	params := raymarch.DefaultParams().
		WithSteps(cfg.Raymarch.Steps).
		WithWindow(cfg.Raymarch.WinMin, cfg.Raymarch.WinMax)
	params.BaseOpacity = cfg.Raymarch.BaseOpacity

	return &Engine{
		base:         vol,
		tiers:        map[int]*volume.Volume{1: vol},
		policy:       lod.NewTierPolicy(cfg.LOD.DistanceThresholds),
		activeStride: 1,
		sched:        scheduler.New(progress),
		params:       params,
		quality:      cfg.Extraction.QualityStride,
		progress:     progress,
	}
}

// SelectTier picks the LOD tier for the given camera distance. Re-selecting
// the already-active tier is a no-op; a newly needed tier is built once via
// block-average reduction and cached for the rest of the session.
func (e *Engine) SelectTier(distance float64) error {
	stride := e.policy.Tier(distance)
	if stride == e.activeStride {
		return nil
	}

	if _, ok := e.tiers[stride]; !ok {
		reduced, err := lod.Downsample(e.base, stride)
		if err != nil {
			return fmt.Errorf("failed to build LOD tier %d: %w", stride, err)
		}
		e.tiers[stride] = reduced
		e.progress("built LOD tier %d: %dx%dx%d", stride,
			reduced.Dims[0], reduced.Dims[1], reduced.Dims[2])
	}

	e.activeStride = stride
	return nil
}

// ActiveVolume returns the volume of the currently selected tier.
func (e *Engine) ActiveVolume() *volume.Volume {
	return e.tiers[e.activeStride]
}

// ActiveStride returns the stride of the currently selected tier.
func (e *Engine) ActiveStride() int {
	return e.activeStride
}

// ActiveMesh returns the surface geometry most recently applied, or nil.
func (e *Engine) ActiveMesh() *isosurface.Mesh {
	return e.mesh
}

// RequestSurface submits an asynchronous extraction of the surface at the
// given physical threshold against the active tier. The call never blocks:
// it snapshots the tier's byte buffer (the scheduler owns the snapshot from
// here on), hands it to a worker, and returns the request id plus the
// channel its single Result will arrive on.
func (e *Engine) RequestSurface(threshold float64, mode isosurface.ColorMode) (uint64, <-chan scheduler.Result) {
	vol := e.ActiveVolume()
	snapshot := make([]byte, len(vol.Data))
	copy(snapshot, vol.Data)

	return e.sched.Submit(models.ExtractionRequest{
		Dims:          vol.Dims,
		Spacing:       vol.Spacing,
		Origin:        vol.Origin,
		ValueRange:    vol.ValueRange,
		Thresh8:       vol.Quantize(threshold),
		Data:          snapshot,
		QualityStride: e.quality,
		ColorMode:     mode,
	})
}

// ApplyResult installs a delivered extraction result as the active mesh.
// On a rejected result the prior visualization state is left untouched and
// false is returned; partial geometry is never displayed.
func (e *Engine) ApplyResult(res scheduler.Result) bool {
	if res.Err != nil {
		e.progress("extraction %d rejected: %v", res.ID, res.Err)
		return false
	}
	e.mesh = res.Mesh
	return true
}

// Params returns the render parameters applied for the current frame.
func (e *Engine) Params() raymarch.Params {
	return e.params
}

// Frame applies a renderable-parameters value for the next frame. This is
// the only way compositor state changes; call sites build a new Params and
// hand it over once per frame.
func (e *Engine) Frame(p raymarch.Params) {
	e.params = p
}

// SurfaceThreshold maps a percentile of the volume's value distribution to
// a physical threshold, computing and caching the distribution summary on
// first use.
func (e *Engine) SurfaceThreshold(percentile int) (float64, error) {
	if !e.summarized {
		s, err := stats.Summarize(e.base, 25, 50, 75, 90, percentile)
		if err != nil {
			return 0, err
		}
		e.summary = s
		e.summarized = true
	}
	if v, ok := e.summary.Percentiles[percentile]; ok {
		return v, nil
	}
	// Percentile not in the cached set: compute it directly.
	s, err := stats.Summarize(e.base, percentile)
	if err != nil {
		return 0, err
	}
	e.summary.Percentiles[percentile] = s.Percentiles[percentile]
	return s.Percentiles[percentile], nil
}
