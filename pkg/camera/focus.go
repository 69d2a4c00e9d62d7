// pkg/camera/focus.go
package camera

import "math"

// Point is a location in on-screen pixels.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle in on-screen pixels.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Contains reports whether p falls inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Intersect returns the overlap of two rectangles. Empty overlap yields
// a zero-size rect.
func (r Rect) Intersect(o Rect) Rect {
	x1 := math.Max(r.X, o.X)
	y1 := math.Max(r.Y, o.Y)
	x2 := math.Min(r.X+r.W, o.X+o.W)
	y2 := math.Min(r.Y+r.H, o.Y+o.H)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// FocusRegion is a normalized rectangle in the captured image's own
// coordinate space, recording where the focus/crop guide pointed at
// capture time. Values are in [0,1]; never mutated after creation.
type FocusRegion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Orientation describes which way a surface is laid out.
type Orientation int

const (
	OrientationPortrait Orientation = iota
	OrientationLandscape
)

func (o Orientation) String() string {
	if o == OrientationLandscape {
		return "landscape"
	}
	return "portrait"
}

const (
	// minOverlayIntersectPx rejects guide boxes that barely overlap the
	// live preview.
	minOverlayIntersectPx = 24.0

	// minNormalizedSize rejects degenerate regions after normalization.
	minNormalizedSize = 0.01
)

// ExclusionZones returns the chrome areas where taps must not trigger
// focus: top and bottom bars in portrait, the top bar plus the side
// control panel in landscape. screen is the full view, the bar sizes are
// in pixels.
func ExclusionZones(o Orientation, screen Rect, topBar, bottomBar, sidePanel float64) []Rect {
	top := Rect{X: screen.X, Y: screen.Y, W: screen.W, H: topBar}
	if o == OrientationLandscape {
		side := Rect{X: screen.X + screen.W - sidePanel, Y: screen.Y, W: sidePanel, H: screen.H}
		return []Rect{top, side}
	}
	bottom := Rect{X: screen.X, Y: screen.Y + screen.H - bottomBar, W: screen.W, H: bottomBar}
	return []Rect{top, bottom}
}

// TapTarget converts a raw tap location into the preview-local
// coordinate the focus driver expects. The tap is ignored (nil) when it
// lands outside the live preview rectangle or inside any exclusion zone.
func TapTarget(tap Point, preview Rect, exclusions []Rect) *Point {
	if !preview.Contains(tap) {
		return nil
	}
	for _, zone := range exclusions {
		if zone.Contains(tap) {
			return nil
		}
	}
	return &Point{X: tap.X - preview.X, Y: tap.Y - preview.Y}
}

// NormalizedFocusRegion maps the on-screen guide box into the captured
// image's own coordinate space. Two coordinate systems are involved: the
// live preview (screen pixels, UI-orientation locked) and the delivered
// image buffer (sensor-native, possibly rotated 90 degrees from the
// preview). The recorded region must live in the image's space.
//
// Returns nil when the guide box sits off-preview or the region
// degenerates.
func NormalizedFocusRegion(overlay, preview Rect, imageWidth, imageHeight int, previewOrientation Orientation) *FocusRegion {
	if preview.W <= 0 || preview.H <= 0 || imageWidth <= 0 || imageHeight <= 0 {
		return nil
	}

	visible := overlay.Intersect(preview)
	if visible.W < minOverlayIntersectPx || visible.H < minOverlayIntersectPx {
		return nil
	}

	r := FocusRegion{
		X: (visible.X - preview.X) / preview.W,
		Y: (visible.Y - preview.Y) / preview.H,
		W: visible.W / preview.W,
		H: visible.H / preview.H,
	}

	imageOrientation := OrientationPortrait
	if imageWidth > imageHeight {
		imageOrientation = OrientationLandscape
	}
	if imageOrientation != previewOrientation {
		// Sensor emits the buffer rotated 90 degrees from the preview.
		r = FocusRegion{X: 1 - (r.Y + r.H), Y: r.X, W: r.H, H: r.W}
	}

	r.X = clamp01(r.X)
	r.Y = clamp01(r.Y)
	r.W = math.Min(r.W, 1-r.X)
	r.H = math.Min(r.H, 1-r.Y)
	if r.W < minNormalizedSize || r.H < minNormalizedSize {
		return nil
	}
	return &r
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
