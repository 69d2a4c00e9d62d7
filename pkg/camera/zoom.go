// pkg/camera/zoom.go
package camera

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// ZoomPreset is one discrete lens button derived from a device's range.
type ZoomPreset struct {
	Label  string
	Factor float64
}

const (
	// presetLockWindow suppresses competing zoom writes right after an
	// explicit preset tap.
	presetLockWindow = 450 * time.Millisecond

	// autoAdjustWindow is the longer window handed to the catalog so
	// the fallback-to-wide rule does not override the user's tap.
	autoAdjustWindow = 1200 * time.Millisecond

	// A full pinch gesture spans one scale unit of zoom change across
	// the device range.
	pinchScaleSpan = 1.0

	// Observer propagation is coalesced: a new value is reported only
	// when it moved by more than reportEpsilon and at most once per
	// reportInterval.
	reportEpsilon  = 0.02
	reportInterval = 120 * time.Millisecond

	// presetFactorTolerance deduplicates preset entries whose factors
	// collide within floating-point noise.
	presetFactorTolerance = 1e-3

	// telephotoAllowance lowers the bar for the 3x preset when a
	// physical telephoto lens serves that factor even though the
	// numeric ceiling sits just under 3x.
	telephotoAllowance = 0.9
)

// ZoomController owns the session's zoom scalar: it clamps the value to
// the active device's range, derives the discrete preset buttons, and
// reconciles continuous pinch input with discrete preset taps. Safe for
// concurrent use; the driver thread writes while the UI thread reads.
type ZoomController struct {
	mu sync.Mutex

	device   Device
	wideOnly func() bool

	factor          float64
	pinchAnchor     float64
	presetLockUntil time.Time
	macroEngaged    bool

	lastReported float64
	lastReportAt time.Time
	haveReport   bool

	now func() time.Time
}

// NewZoomController returns a controller clamped to the device's range,
// starting at the neutral factor. wideOnly reports whether the catalog
// is locked to the dedicated wide sensor (ultra-wide preset unavailable);
// nil means never.
func NewZoomController(device Device, wideOnly func() bool) *ZoomController {
	if wideOnly == nil {
		wideOnly = func() bool { return false }
	}
	z := &ZoomController{
		device:   device,
		wideOnly: wideOnly,
		now:      time.Now,
	}
	z.factor = clampZoom(device.NeutralZoom, device)
	z.pinchAnchor = z.factor
	return z
}

// WithClock replaces the controller's clock. Tests only.
func (z *ZoomController) WithClock(now func() time.Time) *ZoomController {
	z.now = now
	return z
}

func clampZoom(f float64, d Device) float64 {
	return math.Min(math.Max(f, d.MinZoom), d.MaxZoom)
}

// SetDevice swaps the active device and re-clamps the current factor
// into the new range before the next frame reads it.
func (z *ZoomController) SetDevice(device Device) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.device = device
	z.factor = clampZoom(z.factor, device)
	z.pinchAnchor = z.factor
}

// Factor returns the current zoom factor.
func (z *ZoomController) Factor() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.factor
}

// MacroEngaged reports whether the ultra-wide close-focus mode is on.
func (z *ZoomController) MacroEngaged() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.macroEngaged
}

// PresetLockActive reports whether an explicit preset tap is still
// holding off competing zoom writes.
func (z *ZoomController) PresetLockActive() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.now().Before(z.presetLockUntil)
}

// ComputePresets derives the discrete preset buttons for a device.
// wideOnly suppresses the ultra-wide entry (the dedicated wide sensor
// cannot reach below its own neutral framing).
func ComputePresets(d Device, wideOnly bool) []ZoomPreset {
	var out []ZoomPreset
	add := func(p ZoomPreset) {
		for _, q := range out {
			if math.Abs(q.Factor-p.Factor) < presetFactorTolerance {
				return
			}
		}
		out = append(out, p)
	}

	if d.HasLens(LensUltraWide) && d.MinZoom < d.NeutralZoom && !wideOnly {
		add(ZoomPreset{Label: "UW", Factor: d.MinZoom})
	}
	add(ZoomPreset{Label: "1x", Factor: d.NeutralZoom})

	for _, mult := range []float64{2, 3, 5} {
		factor := d.NeutralZoom * mult
		ceiling := factor
		if mult == 3 && d.HasLens(LensTelephoto) {
			// The physical tele lens serves 3x even when the numeric
			// ceiling is just shy of it.
			ceiling = factor * telephotoAllowance
		}
		if d.MaxZoom >= ceiling {
			add(ZoomPreset{Label: fmt.Sprintf("%dx", int(mult)), Factor: math.Min(factor, d.MaxZoom)})
		}
	}
	return out
}

// Presets derives the buttons for the active device.
func (z *ZoomController) Presets() []ZoomPreset {
	z.mu.Lock()
	d := z.device
	z.mu.Unlock()
	return ComputePresets(d, z.wideOnly())
}

// ApplyPreset jumps to a preset factor. The jump starts the preset-lock
// window, re-anchors the pinch baseline, and toggles macro: the
// ultra-wide entry engages it, any other entry disengages it. Returns
// the deadline the catalog's auto-adjust suppression should run to.
func (z *ZoomController) ApplyPreset(p ZoomPreset) time.Time {
	z.mu.Lock()
	defer z.mu.Unlock()

	z.factor = clampZoom(p.Factor, z.device)
	z.pinchAnchor = z.factor
	now := z.now()
	z.presetLockUntil = now.Add(presetLockWindow)
	z.macroEngaged = p.Label == "UW"
	return now.Add(autoAdjustWindow)
}

// PinchBegan captures the anchor for an incoming pinch gesture.
func (z *ZoomController) PinchBegan() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.pinchAnchor = z.factor
}

// ApplyPinch maps a multiplicative gesture scale onto the device range:
// one full scale unit of gesture spans the whole range, anchored at the
// factor captured when the gesture began, clamped at both ends. It never
// touches the preset lock. Returns the resulting factor.
func (z *ZoomController) ApplyPinch(gestureScale float64) float64 {
	z.mu.Lock()
	defer z.mu.Unlock()

	delta := (gestureScale - 1) / pinchScaleSpan * (z.device.MaxZoom - z.device.MinZoom)
	z.factor = clampZoom(z.pinchAnchor+delta, z.device)
	return z.factor
}

// ReportIfChanged returns the current factor when it is worth
// propagating to observers, coalescing high-frequency updates. The first
// call always reports.
func (z *ZoomController) ReportIfChanged() (float64, bool) {
	z.mu.Lock()
	defer z.mu.Unlock()

	now := z.now()
	if !shouldReport(z.haveReport, z.lastReported, z.lastReportAt, z.factor, now) {
		return z.lastReported, false
	}
	z.lastReported = z.factor
	z.lastReportAt = now
	z.haveReport = true
	return z.factor, true
}

// shouldReport is the pure coalescing decision: report when no value was
// reported yet, or when the value moved past epsilon and the minimum
// interval elapsed.
func shouldReport(have bool, last float64, lastAt time.Time, cur float64, now time.Time) bool {
	if !have {
		return true
	}
	if math.Abs(cur-last) <= reportEpsilon {
		return false
	}
	return now.Sub(lastAt) >= reportInterval
}
