// pkg/camera/format.go
package camera

import (
	"math"
	"sync"
	"time"
)

// PresetKind tags a ResolutionPreset value.
type PresetKind int

const (
	PresetAuto PresetKind = iota
	PresetMax
	PresetMegapixelTarget
)

// ResolutionPreset is the user-selected quality setting that drives
// device/format selection.
type ResolutionPreset struct {
	Kind PresetKind
	// Megapixels is only meaningful for PresetMegapixelTarget.
	Megapixels float64
}

// AutoPreset selects the best-scoring format without a fixed target.
func AutoPreset() ResolutionPreset { return ResolutionPreset{Kind: PresetAuto} }

// MaxPreset selects the largest format available on any device.
func MaxPreset() ResolutionPreset { return ResolutionPreset{Kind: PresetMax} }

// MegapixelTarget selects the format closest to n megapixels, preferring
// to meet or exceed the target.
func MegapixelTarget(n float64) ResolutionPreset {
	return ResolutionPreset{Kind: PresetMegapixelTarget, Megapixels: n}
}

func (p ResolutionPreset) String() string {
	switch p.Kind {
	case PresetMax:
		return "max"
	case PresetMegapixelTarget:
		return "target"
	}
	return "auto"
}

// Quirks captures per-platform camera subsystem divergences so the
// scoring logic stays pure and testable off-device.
type Quirks struct {
	// UsesVideoTrackForPhotoResolution is set on the platform whose
	// image capture path derives its output size from the video track.
	// Max selection then scores video pixels instead of photo pixels.
	UsesVideoTrackForPhotoResolution bool
}

// Selection is a chosen (device, format) pair.
type Selection struct {
	Device Device
	Format Format
}

const (
	// defaultMinRecommendedMP is the floor below which a format picks up
	// a small-format penalty during scoring.
	defaultMinRecommendedMP = 10.0

	// videoBand restricts video-track scoring to formats within 10% of
	// the largest video pixel count found.
	videoBand = 0.9

	// fallbackTriggerMP / fallbackTargetMP gate the fallback-to-wide
	// safety net: switch only when the current pick is under the
	// trigger and a dedicated wide sensor can do at least the target.
	fallbackTriggerMP = 8.0
	fallbackTargetMP  = 10.0
)

// Catalog scores and selects (device, format) pairs for a requested
// resolution preset. The fallback-to-wide safety net is stateful (it is
// one-shot and respects a suppression window after explicit user zoom
// actions), so Catalog carries a clock for deterministic tests. Safe
// for concurrent use; the control thread selects while the UI thread
// reads the wide-only projection.
type Catalog struct {
	mu sync.Mutex

	quirks           Quirks
	minRecommendedMP float64

	now func() time.Time

	suppressUntil    time.Time
	fallbackConsumed bool
	wideOnly         bool
}

// NewCatalog returns a Catalog with the given platform quirks.
func NewCatalog(quirks Quirks) *Catalog {
	return &Catalog{
		quirks:           quirks,
		minRecommendedMP: defaultMinRecommendedMP,
		now:              time.Now,
	}
}

// WithClock replaces the catalog's clock. Tests only.
func (c *Catalog) WithClock(now func() time.Time) *Catalog {
	c.now = now
	return c
}

// WideOnly reports whether the catalog is currently locked to a
// dedicated wide sensor (max-resolution selection or fallback).
func (c *Catalog) WideOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wideOnly
}

// SuppressAutoAdjust blocks the fallback-to-wide rule until the given
// deadline. Called after an explicit user zoom-preset action so the
// safety net does not fight the user's intent.
func (c *Catalog) SuppressAutoAdjust(until time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if until.After(c.suppressUntil) {
		c.suppressUntil = until
	}
}

// SelectDevice picks a (device, format) pair for the preset, or nil when
// the device list is empty. wantsVideoPath marks callers that will
// capture through the video track, which changes Max scoring on the
// platform with the video-track quirk.
func (c *Catalog) SelectDevice(devices []Device, preset ResolutionPreset, wantsVideoPath bool) *Selection {
	if len(devices) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var sel *Selection
	if preset.Kind == PresetMax {
		sel = c.selectMax(devices, wantsVideoPath)
	} else {
		sel = c.selectScored(devices, preset)
	}
	if sel != nil {
		c.wideOnly = preset.Kind == PresetMax && sel.Device.IsDedicatedWide()
	}
	return sel
}

// selectMax picks the largest format across every enumerated device.
// Ties prefer a dedicated wide sensor over a logical multi-lens device.
func (c *Catalog) selectMax(devices []Device, wantsVideoPath bool) *Selection {
	if c.quirks.UsesVideoTrackForPhotoResolution && wantsVideoPath {
		return c.selectMaxByVideoTrack(devices)
	}

	var best *Selection
	bestPixels := -1
	for _, d := range devices {
		for _, f := range d.Formats {
			px := f.PhotoPixels()
			if px > bestPixels || (px == bestPixels && best != nil && d.IsDedicatedWide() && !best.Device.IsDedicatedWide()) {
				best = &Selection{Device: d, Format: f}
				bestPixels = px
			}
		}
	}
	return best
}

// selectMaxByVideoTrack scores by video pixels, restricted to formats
// within 10% of the largest video track found, then picks the largest
// photo track inside that band. Guards against a format whose photo
// track is huge but whose video track (the one the capture path actually
// uses) is tiny.
func (c *Catalog) selectMaxByVideoTrack(devices []Device) *Selection {
	maxVideo := 0
	for _, d := range devices {
		for _, f := range d.Formats {
			if px := f.VideoPixels(); px > maxVideo {
				maxVideo = px
			}
		}
	}
	if maxVideo == 0 {
		return c.selectMax(devices, false)
	}

	floor := int(float64(maxVideo) * videoBand)
	var best *Selection
	bestPhoto := -1
	for _, d := range devices {
		for _, f := range d.Formats {
			if f.VideoPixels() < floor {
				continue
			}
			px := f.PhotoPixels()
			if px > bestPhoto || (px == bestPhoto && best != nil && d.IsDedicatedWide() && !best.Device.IsDedicatedWide()) {
				best = &Selection{Device: d, Format: f}
				bestPhoto = px
			}
		}
	}
	return best
}

// selectScored runs the weighted-penalty scoring for Auto and
// MegapixelTarget presets and returns the minimum-penalty pair.
func (c *Catalog) selectScored(devices []Device, preset ResolutionPreset) *Selection {
	var best *Selection
	bestScore := math.Inf(1)
	for _, d := range devices {
		for _, f := range d.Formats {
			score := c.scoreFormat(f, preset)
			if score < bestScore {
				best = &Selection{Device: d, Format: f}
				bestScore = score
			}
		}
	}
	return best
}

func (c *Catalog) scoreFormat(f Format, preset ResolutionPreset) float64 {
	w, h := float64(f.PhotoWidth), float64(f.PhotoHeight)
	if w == 0 || h == 0 {
		return math.Inf(1)
	}
	long, short := math.Max(w, h), math.Min(w, h)
	mp := f.PhotoMegapixels()

	// 4:3 is the sensor-native shape the rest of the pipeline assumes.
	penalty := 2 * math.Abs(long/short-4.0/3.0)

	if mp < c.minRecommendedMP {
		penalty += (c.minRecommendedMP - mp) * 5
	}

	switch preset.Kind {
	case PresetMegapixelTarget:
		target := preset.Megapixels * 1e6
		pixels := float64(f.PhotoPixels())
		if pixels >= target {
			penalty += (pixels - target) / target
		} else {
			// Falling short of the target is much worse than
			// overshooting it.
			penalty += (target-pixels)/target + 2
		}
	default: // PresetAuto
		penalty += -mp
	}

	if f.MaxFPS < 30 {
		penalty += 2
	}
	return penalty
}

// MaxMegapixels returns the largest photo megapixel count across the
// device's formats. ok is false when the device reports no formats.
func MaxMegapixels(d Device) (mp float64, ok bool) {
	for _, f := range d.Formats {
		if m := f.PhotoMegapixels(); m > mp {
			mp = m
			ok = true
		}
	}
	return mp, ok
}

// MaybeFallbackToWide is the safety net for logical devices that
// misreport capability: when the current selection delivers under 8
// effective megapixels and a dedicated wide sensor on the session can do
// 10 or more, it returns a one-time switch to that sensor's largest
// format. The rule never fires while macro is engaged or inside the
// suppression window following an explicit zoom-preset action.
func (c *Catalog) MaybeFallbackToWide(devices []Device, current Selection, macroEngaged bool) (*Selection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fallbackConsumed || macroEngaged {
		return nil, false
	}
	if c.now().Before(c.suppressUntil) {
		return nil, false
	}
	if current.Format.PhotoMegapixels() >= fallbackTriggerMP {
		return nil, false
	}

	var best *Selection
	bestMP := 0.0
	for _, d := range devices {
		if !d.IsDedicatedWide() {
			continue
		}
		mp, ok := MaxMegapixels(d)
		if !ok || mp < fallbackTargetMP || mp <= bestMP {
			continue
		}
		for _, f := range d.Formats {
			if f.PhotoMegapixels() == mp {
				best = &Selection{Device: d, Format: f}
				bestMP = mp
				break
			}
		}
	}
	if best == nil {
		return nil, false
	}

	c.fallbackConsumed = true
	c.wideOnly = true
	return best, true
}
