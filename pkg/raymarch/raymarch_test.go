package raymarch

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"thermalvis/pkg/volume"
)

// hotVolume builds a volume saturated at the top of its value range.
func hotVolume(t *testing.T, size int) *volume.Volume {
	t.Helper()
	meta := volume.Meta{
		Dims:       [3]int{size, size, size},
		Spacing:    [3]float64{1, 1, 1},
		ValueRange: [2]float64{0, 1},
	}
	data := make([]byte, meta.VoxelCount())
	for i := range data {
		data[i] = 255
	}
	vol, err := volume.Load(meta, data)
	if err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}
	return vol
}

// TestIntersectBox verifies entry/exit parameters and the miss cases,
// including an exit at or behind the ray origin.
func TestIntersectBox(t *testing.T) {
	boxMin := r3.Vec{X: 0, Y: 0, Z: 0}
	boxMax := r3.Vec{X: 2, Y: 2, Z: 2}

	// Straight through the box.
	tmin, tmax, hit := IntersectBox(Ray{
		Origin: r3.Vec{X: 1, Y: 1, Z: -1},
		Dir:    r3.Vec{Z: 1},
	}, boxMin, boxMax)
	if !hit {
		t.Fatal("Expected a hit through the box")
	}
	if math.Abs(tmin-1) > 1e-9 || math.Abs(tmax-3) > 1e-9 {
		t.Errorf("Expected entry 1 and exit 3, got %f and %f", tmin, tmax)
	}

	// Ray pointing away: the box lies entirely behind, exit <= 0.
	if _, _, hit := IntersectBox(Ray{
		Origin: r3.Vec{X: 1, Y: 1, Z: -1},
		Dir:    r3.Vec{Z: -1},
	}, boxMin, boxMax); hit {
		t.Error("Expected a miss for a box behind the origin")
	}

	// Parallel ray outside a slab.
	if _, _, hit := IntersectBox(Ray{
		Origin: r3.Vec{X: 5, Y: 1, Z: -1},
		Dir:    r3.Vec{Z: 1},
	}, boxMin, boxMax); hit {
		t.Error("Expected a miss for a parallel ray outside the box")
	}

	// Origin inside: entry is negative, exit positive, still a hit.
	tmin, tmax, hit = IntersectBox(Ray{
		Origin: r3.Vec{X: 1, Y: 1, Z: 1},
		Dir:    r3.Vec{Z: 1},
	}, boxMin, boxMax)
	if !hit || tmin >= 0 || tmax <= 0 {
		t.Errorf("Expected inside origin to hit with tmin<0<tmax, got %f %f %v", tmin, tmax, hit)
	}
}

// TestJitterDeterministic verifies the per-ray jitter is a pure function of
// the ray and stays in [0,1).
func TestJitterDeterministic(t *testing.T) {
	a := Ray{Origin: r3.Vec{X: 1, Y: 2, Z: 3}, Dir: r3.Vec{Z: 1}}
	b := Ray{Origin: r3.Vec{X: 1, Y: 2.5, Z: 3}, Dir: r3.Vec{Z: 1}}

	ja := Jitter(a)
	if ja != Jitter(a) {
		t.Error("Expected identical rays to jitter identically")
	}
	if ja < 0 || ja >= 1 {
		t.Errorf("Jitter %f outside [0,1)", ja)
	}
	if ja == Jitter(b) {
		t.Error("Expected neighboring rays to jitter differently")
	}
}

// TestWindowClampInvariant verifies WinMin <= WinMax after an adversarial
// sequence of bound updates, and that bounds are clamped, never swapped.
func TestWindowClampInvariant(t *testing.T) {
	p := DefaultParams()

	updates := []func(*Params){
		func(p *Params) { p.SetWinMin(5) },
		func(p *Params) { p.SetWinMax(-3) },
		func(p *Params) { p.SetWinMin(-10) },
		func(p *Params) { p.SetWinMax(2) },
		func(p *Params) { p.SetWinMin(100) },
		func(p *Params) { p.SetWinMax(0.5) },
	}
	for i, update := range updates {
		update(&p)
		if p.WinMin > p.WinMax {
			t.Fatalf("After update %d the window is inverted: [%f, %f]", i, p.WinMin, p.WinMax)
		}
	}

	// Setting a minimum above the maximum clamps the minimum.
	p = Params{WinMin: 0, WinMax: 1}
	p.SetWinMin(2)
	if p.WinMin != 1 || p.WinMax != 1 {
		t.Errorf("Expected min clamped to max, got [%f, %f]", p.WinMin, p.WinMax)
	}

	// WithWindow keeps the invariant for an inconsistent pair.
	p = DefaultParams().WithWindow(5, 2)
	if p.WinMin > p.WinMax {
		t.Errorf("WithWindow produced inverted window [%f, %f]", p.WinMin, p.WinMax)
	}

	// And a consistent raised pair lands exactly.
	p = DefaultParams().WithWindow(5, 10)
	if p.WinMin != 5 || p.WinMax != 10 {
		t.Errorf("Expected window [5, 10], got [%f, %f]", p.WinMin, p.WinMax)
	}
}

// TestMarchAlphaBounded verifies the accumulated alpha never exceeds 1 even
// with full per-sample opacity, and that a miss contributes nothing.
func TestMarchAlphaBounded(t *testing.T) {
	vol := hotVolume(t, 8)
	p := Params{Steps: 200, BaseOpacity: 1, WinMin: 0, WinMax: 0.5}

	through := Ray{Origin: r3.Vec{X: 3.5, Y: 3.5, Z: -2}, Dir: r3.Vec{Z: 1}}
	s := March(vol, through, p)
	if s.A <= 0 || s.A > 1 {
		t.Errorf("Expected accumulated alpha in (0, 1], got %f", s.A)
	}

	miss := Ray{Origin: r3.Vec{X: 3.5, Y: 3.5, Z: -2}, Dir: r3.Vec{Z: -1}}
	if s := March(vol, miss, p); s != (Sample{}) {
		t.Errorf("Expected a missing ray to contribute nothing, got %+v", s)
	}
}

// TestMarchBaseOpacityClamped verifies an out-of-range base opacity is
// clamped: an opacity above 1 cannot push the accumulated alpha past 1, and
// a negative opacity contributes nothing.
func TestMarchBaseOpacityClamped(t *testing.T) {
	vol := hotVolume(t, 8)
	ray := Ray{Origin: r3.Vec{X: 3.5, Y: 3.5, Z: -2}, Dir: r3.Vec{Z: 1}}

	s := March(vol, ray, Params{Steps: 64, BaseOpacity: 4, WinMin: 0, WinMax: 0.5})
	if s.A <= 0 || s.A > 1 {
		t.Errorf("Expected accumulated alpha in (0, 1], got %f", s.A)
	}

	if s := March(vol, ray, Params{Steps: 64, BaseOpacity: -1, WinMin: 0, WinMax: 0.5}); s != (Sample{}) {
		t.Errorf("Expected a negative opacity to contribute nothing, got %+v", s)
	}
}

// TestMarchDeterministic verifies a static ray composites identically
// across repeated frames.
func TestMarchDeterministic(t *testing.T) {
	vol := hotVolume(t, 8)
	p := Params{Steps: 64, BaseOpacity: 0.4, WinMin: 0, WinMax: 1}
	ray := Ray{Origin: r3.Vec{X: 2.2, Y: 4.1, Z: -3}, Dir: r3.Vec{Z: 1}}

	a := March(vol, ray, p)
	b := March(vol, ray, p)
	if a != b {
		t.Errorf("Expected identical composites across frames, got %+v vs %+v", a, b)
	}
}

// TestCompositeMonotone verifies the front-to-back recurrence keeps the
// accumulated alpha non-decreasing and bounded by 1 for any alpha sequence.
func TestCompositeMonotone(t *testing.T) {
	alphas := []float64{0.1, 0.9, 0.3, 1.0, 0.0, 0.7, 0.2}

	acc := 0.0
	for i, alpha := range alphas {
		w := (1 - acc) * alpha
		next := acc + w
		if next < acc {
			t.Fatalf("Step %d decreased accumulated alpha: %f -> %f", i, acc, next)
		}
		if next > 1 {
			t.Fatalf("Step %d exceeded alpha 1: %f", i, next)
		}
		acc = next
	}
}

// TestRampColor verifies the two-segment green->yellow->red ramp endpoints
// and midpoint.
func TestRampColor(t *testing.T) {
	cases := []struct {
		u       float64
		r, g, b float64
	}{
		{0, 0, 1, 0},
		{0.5, 1, 1, 0},
		{1, 1, 0, 0},
	}
	for _, c := range cases {
		r, g, b := rampColor(c.u)
		if math.Abs(r-c.r) > 1e-9 || math.Abs(g-c.g) > 1e-9 || math.Abs(b-c.b) > 1e-9 {
			t.Errorf("rampColor(%f) = (%f, %f, %f), expected (%f, %f, %f)",
				c.u, r, g, b, c.r, c.g, c.b)
		}
	}
}

// TestSmoothstep verifies the window transfer saturates correctly.
func TestSmoothstep(t *testing.T) {
	if got := smoothstep(0.2, 0.8, 0.1); got != 0 {
		t.Errorf("Expected 0 below the window, got %f", got)
	}
	if got := smoothstep(0.2, 0.8, 0.9); got != 1 {
		t.Errorf("Expected 1 above the window, got %f", got)
	}
	mid := smoothstep(0.2, 0.8, 0.5)
	if math.Abs(mid-0.5) > 1e-9 {
		t.Errorf("Expected 0.5 at the window center, got %f", mid)
	}
	// Degenerate window degrades to a hard step.
	if smoothstep(0.5, 0.5, 0.4) != 0 || smoothstep(0.5, 0.5, 0.6) != 1 {
		t.Error("Expected a degenerate window to behave as a step")
	}
}

// TestRenderImageSize verifies the preview renderer produces the requested
// image dimensions with opaque pixels.
func TestRenderImageSize(t *testing.T) {
	vol := hotVolume(t, 4)
	img := RenderImage(vol, DefaultParams(), 16, 12)

	bounds := img.Bounds()
	if bounds.Dx() != 16 || bounds.Dy() != 12 {
		t.Errorf("Expected 16x12 image, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	if _, _, _, a := img.At(8, 6).RGBA(); a != 0xffff {
		t.Error("Expected opaque preview pixels")
	}
}
