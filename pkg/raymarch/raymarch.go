// Package raymarch implements direct volume rendering of a quantized
// thermal field: ray-box entry/exit computation, jittered equal-increment
// sampling, a windowed opacity transfer with a green-yellow-red color ramp,
// and front-to-back compositing with early termination.
package raymarch

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"thermalvis/pkg/volume"
)

// Ray is a world-space ray. Dir need not be normalized; the slab test and
// stepping are parameterized in units of Dir.
type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec
}

// Sample is one composited ray contribution: premultiplied color plus
// accumulated alpha.
type Sample struct {
	R, G, B float64
	A       float64
}

// earlyExitAlpha bounds per-ray cost: once accumulated alpha exceeds this,
// further samples cannot contribute visibly.
const earlyExitAlpha = 0.98

// IntersectBox computes the entry and exit parameters of a ray against an
// axis-aligned box using the slab method. hit is false when the ray misses
// the box entirely or the exit lies at or behind the origin (tmax <= 0).
func IntersectBox(ray Ray, boxMin, boxMax r3.Vec) (tmin, tmax float64, hit bool) {
	tmin = math.Inf(-1)
	tmax = math.Inf(1)

	slab := func(o, d, lo, hi float64) bool {
		if d == 0 {
			return o >= lo && o <= hi
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		return true
	}

	if !slab(ray.Origin.X, ray.Dir.X, boxMin.X, boxMax.X) ||
		!slab(ray.Origin.Y, ray.Dir.Y, boxMin.Y, boxMax.Y) ||
		!slab(ray.Origin.Z, ray.Dir.Z, boxMin.Z, boxMax.Z) {
		return 0, 0, false
	}

	if tmax < tmin || tmax <= 0 {
		return tmin, tmax, false
	}
	return tmin, tmax, true
}

// Jitter derives a deterministic sub-step offset in [0,1) from the ray's
// origin and direction bit patterns. There is no stateful RNG: the same ray
// always jitters identically, so a static camera renders stable frames
// while neighboring rays decorrelate enough to suppress banding.
func Jitter(ray Ray) float64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, f := range [6]float64{
		ray.Origin.X, ray.Origin.Y, ray.Origin.Z,
		ray.Dir.X, ray.Dir.Y, ray.Dir.Z,
	} {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	return float64(h.Sum64()>>11) / float64(1<<53)
}

// March composites a single ray through the volume front-to-back and
// returns its color and alpha contribution. Sampling is trilinear. The
// accumulated alpha is non-decreasing along the ray and never exceeds 1; a
// ray that misses the bounding box (or exits behind the origin) contributes
// nothing. BaseOpacity is clamped into [0,1] before sampling so an
// out-of-range configuration cannot push a sample's alpha past 1.
func March(vol *volume.Volume, ray Ray, p Params) Sample {
	boxMin, boxMax := vol.Bounds()
	tmin, tmax, hit := IntersectBox(ray, boxMin, boxMax)
	if !hit {
		return Sample{}
	}
	if tmin < 0 {
		tmin = 0
	}

	steps := p.Steps
	if steps <= 0 {
		steps = DefaultParams().Steps
	}
	base := p.BaseOpacity
	if base < 0 {
		base = 0
	} else if base > 1 {
		base = 1
	}
	dt := (tmax - tmin) / float64(steps)
	jit := Jitter(ray)

	var out Sample
	for i := 0; i < steps; i++ {
		t := tmin + (float64(i)+jit)*dt
		pos := r3.Add(ray.Origin, r3.Scale(t, ray.Dir))
		value := vol.SampleTrilinear(pos)

		alpha := base * smoothstep(p.WinMin, p.WinMax, value)
		if alpha <= 0 {
			continue
		}

		u := 0.0
		if p.WinMax > p.WinMin {
			u = (value - p.WinMin) / (p.WinMax - p.WinMin)
		}
		r, g, b := rampColor(u)

		w := (1 - out.A) * alpha
		out.R += w * r
		out.G += w * g
		out.B += w * b
		out.A += w

		if out.A > earlyExitAlpha {
			break
		}
	}
	return out
}
