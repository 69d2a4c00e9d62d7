package camera

import (
	"math"
	"testing"
	"time"
)

func testDevice() Device {
	return Device{
		ID:          "triple",
		MinZoom:     0.5,
		MaxZoom:     6,
		NeutralZoom: 1,
		Lenses:      []LensKind{LensUltraWide, LensWide, LensTelephoto},
	}
}

func TestComputePresets_Full(t *testing.T) {
	presets := ComputePresets(testDevice(), false)

	labels := make([]string, len(presets))
	for i, p := range presets {
		labels[i] = p.Label
	}
	want := []string{"UW", "1x", "2x", "3x", "5x"}
	if len(presets) != len(want) {
		t.Fatalf("presets = %v, want %v", labels, want)
	}
	for i, w := range want {
		if labels[i] != w {
			t.Errorf("preset[%d] = %s, want %s", i, labels[i], w)
		}
	}
}

func TestComputePresets_NoDuplicateFactors(t *testing.T) {
	devices := []Device{
		testDevice(),
		// min == neutral == max collapses everything onto one entry.
		{MinZoom: 1, MaxZoom: 1, NeutralZoom: 1, Lenses: []LensKind{LensUltraWide, LensWide}},
		{MinZoom: 1, MaxZoom: 10, NeutralZoom: 1, Lenses: []LensKind{LensWide}},
	}
	for _, d := range devices {
		presets := ComputePresets(d, false)
		for i := 0; i < len(presets); i++ {
			for j := i + 1; j < len(presets); j++ {
				if math.Abs(presets[i].Factor-presets[j].Factor) < presetFactorTolerance {
					t.Errorf("device %+v: presets %q and %q share factor %v",
						d, presets[i].Label, presets[j].Label, presets[i].Factor)
				}
			}
		}
	}
}

func TestComputePresets_UltraWideConditions(t *testing.T) {
	// No ultra-wide lens: no UW entry even though min < neutral.
	d := testDevice()
	d.Lenses = []LensKind{LensWide, LensTelephoto}
	for _, p := range ComputePresets(d, false) {
		if p.Label == "UW" {
			t.Error("UW entry present without an ultra-wide lens")
		}
	}

	// Wide-only selection mode suppresses the UW entry.
	for _, p := range ComputePresets(testDevice(), true) {
		if p.Label == "UW" {
			t.Error("UW entry present while locked to the wide sensor")
		}
	}

	// min == neutral: nothing below 1x to reach.
	d = testDevice()
	d.MinZoom = 1
	for _, p := range ComputePresets(d, false) {
		if p.Label == "UW" {
			t.Error("UW entry present with minZoom == neutralZoom")
		}
	}
}

func TestComputePresets_TelephotoLowersThreeXBar(t *testing.T) {
	d := testDevice()
	d.MaxZoom = 2.8

	has3x := func(presets []ZoomPreset) bool {
		for _, p := range presets {
			if p.Label == "3x" {
				return true
			}
		}
		return false
	}

	if !has3x(ComputePresets(d, false)) {
		t.Error("telephoto device with maxZoom 2.8 should still expose the 3x preset")
	}

	d.Lenses = []LensKind{LensUltraWide, LensWide}
	if has3x(ComputePresets(d, false)) {
		t.Error("non-telephoto device with maxZoom 2.8 should not expose the 3x preset")
	}
}

func TestApplyPinch_AlwaysInRange(t *testing.T) {
	d := testDevice()
	z := NewZoomController(d, nil)

	for _, scale := range []float64{0, 0.1, 0.5, 0.9, 1.0, 1.1, 1.5, 2.0, 5.0, 100} {
		z.PinchBegan()
		got := z.ApplyPinch(scale)
		if got < d.MinZoom || got > d.MaxZoom {
			t.Errorf("ApplyPinch(%v) = %v, outside [%v, %v]", scale, got, d.MinZoom, d.MaxZoom)
		}
	}
}

func TestApplyPinch_AnchoredAtGestureStart(t *testing.T) {
	d := testDevice()
	z := NewZoomController(d, nil)

	z.PinchBegan()
	first := z.ApplyPinch(1.1)
	if first <= d.NeutralZoom {
		t.Fatalf("pinch out from neutral = %v, want above %v", first, d.NeutralZoom)
	}

	// Same scale without re-anchoring keeps the same result: the
	// mapping is anchored, not incremental.
	again := z.ApplyPinch(1.1)
	if math.Abs(again-first) > 1e-9 {
		t.Errorf("repeated ApplyPinch(1.1) = %v, want %v", again, first)
	}
}

func TestApplyPreset_LockAndMacro(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }
	z := NewZoomController(testDevice(), nil).WithClock(clock)

	uw := ZoomPreset{Label: "UW", Factor: 0.5}
	suppressUntil := z.ApplyPreset(uw)

	if got := z.Factor(); got != 0.5 {
		t.Errorf("Factor after UW preset = %v, want 0.5", got)
	}
	if !z.MacroEngaged() {
		t.Error("UW preset should engage macro")
	}
	if !z.PresetLockActive() {
		t.Error("preset lock should be active right after a tap")
	}
	if want := now.Add(1200 * time.Millisecond); !suppressUntil.Equal(want) {
		t.Errorf("auto-adjust suppression deadline = %v, want %v", suppressUntil, want)
	}

	// Pinching must not move the lock.
	now = now.Add(400 * time.Millisecond)
	z.PinchBegan()
	z.ApplyPinch(1.2)
	now = now.Add(100 * time.Millisecond)
	if z.PresetLockActive() {
		t.Error("preset lock still active after 500ms; pinch must not extend it")
	}

	// Any non-UW preset disengages macro.
	z.ApplyPreset(ZoomPreset{Label: "1x", Factor: 1})
	if z.MacroEngaged() {
		t.Error("1x preset should disengage macro")
	}
}

func TestApplyPreset_ClampsToDeviceRange(t *testing.T) {
	z := NewZoomController(testDevice(), nil)
	z.ApplyPreset(ZoomPreset{Label: "5x", Factor: 50})
	if got := z.Factor(); got != 6 {
		t.Errorf("Factor = %v, want clamped to 6", got)
	}
}

func TestSetDevice_ReclampsFactor(t *testing.T) {
	z := NewZoomController(testDevice(), nil)
	z.ApplyPreset(ZoomPreset{Label: "5x", Factor: 5})

	z.SetDevice(Device{MinZoom: 1, MaxZoom: 2, NeutralZoom: 1})
	if got := z.Factor(); got != 2 {
		t.Errorf("Factor after switching to a 1-2x device = %v, want 2", got)
	}
}

func TestReportIfChanged_Coalescing(t *testing.T) {
	now := time.Unix(1000, 0)
	z := NewZoomController(testDevice(), nil).WithClock(func() time.Time { return now })

	// First call always reports.
	if _, ok := z.ReportIfChanged(); !ok {
		t.Fatal("first report suppressed, want unconditional")
	}

	// Sub-epsilon move: suppressed.
	z.PinchBegan()
	z.ApplyPinch(1.001)
	if _, ok := z.ReportIfChanged(); ok {
		t.Error("sub-epsilon change reported")
	}

	// Big move but inside the minimum interval: suppressed.
	z.ApplyPreset(ZoomPreset{Label: "5x", Factor: 5})
	now = now.Add(50 * time.Millisecond)
	if _, ok := z.ReportIfChanged(); ok {
		t.Error("change reported before the minimum interval elapsed")
	}

	// Same move once the interval passed: reported.
	now = now.Add(100 * time.Millisecond)
	got, ok := z.ReportIfChanged()
	if !ok {
		t.Fatal("change not reported after the minimum interval")
	}
	if got != 5 {
		t.Errorf("reported factor = %v, want 5", got)
	}
}
