package camera

import (
	"sync"
	"testing"
	"time"
)

func fmt4x3(w, h int, maxFPS float64) Format {
	return Format{
		PhotoWidth:  w,
		PhotoHeight: h,
		VideoWidth:  w,
		VideoHeight: h,
		MinFPS:      1,
		MaxFPS:      maxFPS,
	}
}

func wideDevice(id string, formats ...Format) Device {
	return Device{
		ID:          id,
		MinZoom:     1,
		MaxZoom:     10,
		NeutralZoom: 1,
		Lenses:      []LensKind{LensWide},
		Formats:     formats,
	}
}

func tripleDevice(id string, formats ...Format) Device {
	return Device{
		ID:          id,
		MinZoom:     0.5,
		MaxZoom:     10,
		NeutralZoom: 1,
		Lenses:      []LensKind{LensUltraWide, LensWide, LensTelephoto},
		Formats:     formats,
	}
}

func TestSelectDevice_EmptyList(t *testing.T) {
	c := NewCatalog(Quirks{})
	if sel := c.SelectDevice(nil, MaxPreset(), false); sel != nil {
		t.Errorf("SelectDevice with no devices = %+v, want nil", sel)
	}
}

func TestSelectDevice_MaxPicksGlobalLargest(t *testing.T) {
	devices := []Device{
		tripleDevice("triple", fmt4x3(4032, 3024, 60), fmt4x3(3264, 2448, 60)),
		wideDevice("wide", fmt4x3(8064, 6048, 30), fmt4x3(4032, 3024, 60)),
	}

	c := NewCatalog(Quirks{})
	sel := c.SelectDevice(devices, MaxPreset(), false)
	if sel == nil {
		t.Fatal("SelectDevice returned nil")
	}

	// Property: no available format anywhere has more pixels.
	for _, d := range devices {
		for _, f := range d.Formats {
			if f.PhotoPixels() > sel.Format.PhotoPixels() {
				t.Errorf("selected %d pixels but %s offers %d", sel.Format.PhotoPixels(), d.ID, f.PhotoPixels())
			}
		}
	}
	if sel.Device.ID != "wide" {
		t.Errorf("selected device = %s, want wide", sel.Device.ID)
	}
	if !c.WideOnly() {
		t.Error("max selection of a dedicated wide sensor should set WideOnly")
	}
}

func TestSelectDevice_MaxTieBreakPrefersDedicatedWide(t *testing.T) {
	same := fmt4x3(4032, 3024, 60)
	devices := []Device{
		tripleDevice("triple", same),
		wideDevice("wide", same),
	}

	c := NewCatalog(Quirks{})
	sel := c.SelectDevice(devices, MaxPreset(), false)
	if sel == nil {
		t.Fatal("SelectDevice returned nil")
	}
	if sel.Device.ID != "wide" {
		t.Errorf("tie should prefer the dedicated wide sensor, got %s", sel.Device.ID)
	}
}

func TestSelectDevice_MaxUsesVideoTrackUnderQuirk(t *testing.T) {
	bigPhotoTinyVideo := Format{
		PhotoWidth: 8064, PhotoHeight: 6048,
		VideoWidth: 1280, VideoHeight: 720,
		MinFPS: 1, MaxFPS: 30,
	}
	balanced := Format{
		PhotoWidth: 4032, PhotoHeight: 3024,
		VideoWidth: 3840, VideoHeight: 2160,
		MinFPS: 1, MaxFPS: 60,
	}
	devices := []Device{wideDevice("wide", bigPhotoTinyVideo, balanced)}

	c := NewCatalog(Quirks{UsesVideoTrackForPhotoResolution: true})
	sel := c.SelectDevice(devices, MaxPreset(), true)
	if sel == nil {
		t.Fatal("SelectDevice returned nil")
	}
	if sel.Format.VideoWidth != 3840 {
		t.Errorf("quirk path picked video track %dx%d, want 3840x2160",
			sel.Format.VideoWidth, sel.Format.VideoHeight)
	}

	// Without the video path the huge photo track wins.
	sel = c.SelectDevice(devices, MaxPreset(), false)
	if sel.Format.PhotoWidth != 8064 {
		t.Errorf("non-video path picked %dx%d, want 8064x6048", sel.Format.PhotoWidth, sel.Format.PhotoHeight)
	}
}

func TestSelectDevice_TargetPrefersMeetingTarget(t *testing.T) {
	under := fmt4x3(3840, 2880, 60) // ~11.1 MP
	over := fmt4x3(4200, 3150, 60)  // ~13.2 MP
	devices := []Device{wideDevice("wide", under, over)}

	c := NewCatalog(Quirks{})
	sel := c.SelectDevice(devices, MegapixelTarget(12), false)
	if sel == nil {
		t.Fatal("SelectDevice returned nil")
	}
	if sel.Format.PhotoWidth != 4200 {
		t.Errorf("target selection picked %dx%d, want the format that exceeds 12 MP",
			sel.Format.PhotoWidth, sel.Format.PhotoHeight)
	}
}

func TestSelectDevice_AutoPenalizesAspectAndLowFPS(t *testing.T) {
	native := fmt4x3(4032, 3024, 60) // 12.2 MP, 4:3
	wideScreen := Format{
		PhotoWidth: 4800, PhotoHeight: 2700, // 12.96 MP but 16:9
		VideoWidth: 4800, VideoHeight: 2700,
		MinFPS: 1, MaxFPS: 24,
	}
	devices := []Device{wideDevice("wide", wideScreen, native)}

	c := NewCatalog(Quirks{})
	sel := c.SelectDevice(devices, AutoPreset(), false)
	if sel == nil {
		t.Fatal("SelectDevice returned nil")
	}
	if sel.Format.PhotoWidth != 4032 {
		t.Errorf("auto selection picked %dx%d, want the 4:3 60fps format",
			sel.Format.PhotoWidth, sel.Format.PhotoHeight)
	}
}

func TestMaxMegapixels(t *testing.T) {
	d := wideDevice("wide", fmt4x3(4032, 3024, 60), fmt4x3(8064, 6048, 30))
	mp, ok := MaxMegapixels(d)
	if !ok {
		t.Fatal("MaxMegapixels not ok for device with formats")
	}
	want := 8064.0 * 6048.0 / 1e6
	if mp != want {
		t.Errorf("MaxMegapixels = %v, want %v", mp, want)
	}

	if _, ok := MaxMegapixels(Device{}); ok {
		t.Error("MaxMegapixels ok for device with no formats, want false")
	}
}

func TestMaybeFallbackToWide(t *testing.T) {
	small := fmt4x3(2592, 1944, 60) // ~5 MP
	big := fmt4x3(4032, 3024, 60)   // ~12.2 MP
	triple := tripleDevice("triple", small)
	wide := wideDevice("wide", big)
	devices := []Device{triple, wide}
	current := Selection{Device: triple, Format: small}

	now := time.Unix(1000, 0)
	c := NewCatalog(Quirks{}).WithClock(func() time.Time { return now })

	sel, ok := c.MaybeFallbackToWide(devices, current, false)
	if !ok {
		t.Fatal("fallback should fire for a 5 MP selection with a 12 MP wide sensor available")
	}
	if sel.Device.ID != "wide" {
		t.Errorf("fallback device = %s, want wide", sel.Device.ID)
	}

	// One-shot: never re-triggers within the session.
	if _, ok := c.MaybeFallbackToWide(devices, current, false); ok {
		t.Error("fallback re-triggered, want one-shot")
	}
}

func TestMaybeFallbackToWide_MacroExempt(t *testing.T) {
	small := fmt4x3(2592, 1944, 60)
	triple := tripleDevice("triple", small)
	wide := wideDevice("wide", fmt4x3(4032, 3024, 60))
	current := Selection{Device: triple, Format: small}

	c := NewCatalog(Quirks{})
	if _, ok := c.MaybeFallbackToWide([]Device{triple, wide}, current, true); ok {
		t.Error("fallback fired while macro engaged")
	}
}

func TestMaybeFallbackToWide_SuppressionWindow(t *testing.T) {
	small := fmt4x3(2592, 1944, 60)
	triple := tripleDevice("triple", small)
	wide := wideDevice("wide", fmt4x3(4032, 3024, 60))
	devices := []Device{triple, wide}
	current := Selection{Device: triple, Format: small}

	now := time.Unix(1000, 0)
	c := NewCatalog(Quirks{}).WithClock(func() time.Time { return now })
	c.SuppressAutoAdjust(now.Add(1200 * time.Millisecond))

	if _, ok := c.MaybeFallbackToWide(devices, current, false); ok {
		t.Error("fallback fired inside the suppression window")
	}

	now = now.Add(1500 * time.Millisecond)
	if _, ok := c.MaybeFallbackToWide(devices, current, false); !ok {
		t.Error("fallback should fire once the suppression window passed")
	}
}

func TestMaybeFallbackToWide_NotNeeded(t *testing.T) {
	big := fmt4x3(4032, 3024, 60)
	wide := wideDevice("wide", big)
	current := Selection{Device: wide, Format: big}

	c := NewCatalog(Quirks{})
	if _, ok := c.MaybeFallbackToWide([]Device{wide}, current, false); ok {
		t.Error("fallback fired for a selection already above the trigger threshold")
	}
}

func TestCatalog_ConcurrentSelectionAndProjection(t *testing.T) {
	// Selection runs on the control thread while the wide-only
	// projection is read from the UI thread. Run under -race.
	big := fmt4x3(4032, 3024, 60)
	devices := []Device{tripleDevice("triple", big), wideDevice("wide", big)}
	current := Selection{Device: devices[0], Format: big}
	c := NewCatalog(Quirks{})

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				c.SelectDevice(devices, MaxPreset(), false)
				c.SuppressAutoAdjust(time.Now().Add(time.Second))
				c.MaybeFallbackToWide(devices, current, false)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		for j := 0; j < 1000; j++ {
			c.WideOnly()
		}
	}()
	close(start)
	wg.Wait()

	if !c.WideOnly() {
		t.Error("WideOnly = false after max selection landed on the dedicated wide sensor")
	}
}
