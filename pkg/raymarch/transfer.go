package raymarch

// Params is an explicit renderable-parameters value for the compositor.
// Call sites never mutate rendering state directly; they build a Params
// (functionally, via the With* helpers or the Set* clamping setters) and the
// frame loop applies it once per frame.
type Params struct {
	// Steps is the number of equal increments between ray entry and exit.
	Steps int

	// BaseOpacity is the per-sample opacity ceiling.
	BaseOpacity float64

	// WinMin and WinMax bound the value window mapped to full display
	// intensity. The invariant WinMin <= WinMax holds after any sequence
	// of updates through the setters.
	WinMin float64
	WinMax float64
}

// DefaultParams returns the compositor defaults.
func DefaultParams() Params {
	return Params{Steps: 96, BaseOpacity: 0.35, WinMin: 0, WinMax: 1}
}

// SetWinMin updates the lower window bound. A value above the current upper
// bound is clamped to it; the bounds are never silently swapped.
func (p *Params) SetWinMin(v float64) {
	if v > p.WinMax {
		v = p.WinMax
	}
	p.WinMin = v
}

// SetWinMax updates the upper window bound, clamped against the lower one.
func (p *Params) SetWinMax(v float64) {
	if v < p.WinMin {
		v = p.WinMin
	}
	p.WinMax = v
}

// WithWindow returns a copy of p with both window bounds updated through
// the clamping setters. The extra SetWinMax pass lets a raised pair escape
// the old window while still clamping an inconsistent pair.
func (p Params) WithWindow(min, max float64) Params {
	p.SetWinMax(max)
	p.SetWinMin(min)
	p.SetWinMax(max)
	return p
}

// WithSteps returns a copy of p with the step count replaced.
func (p Params) WithSteps(steps int) Params {
	p.Steps = steps
	return p
}

// smoothstep is the Hermite ramp: 0 below e0, 1 above e1, smooth between.
// A degenerate window (e0 == e1) degrades to a hard step.
func smoothstep(e0, e1, x float64) float64 {
	if e0 >= e1 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := (x - e0) / (e1 - e0)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}

// rampColor maps a window-relative position u in [0,1] through the
// two-segment thermal ramp green -> yellow -> red.
func rampColor(u float64) (r, g, b float64) {
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}
	if u < 0.5 {
		// green (0,1,0) -> yellow (1,1,0)
		return u * 2, 1, 0
	}
	// yellow (1,1,0) -> red (1,0,0)
	return 1, 1 - (u-0.5)*2, 0
}
