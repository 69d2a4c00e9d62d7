// pkg/camera/camera.go
package camera

// LensKind identifies a physical lens on a camera device.
type LensKind int

const (
	LensUltraWide LensKind = iota
	LensWide
	LensTelephoto
)

func (k LensKind) String() string {
	switch k {
	case LensUltraWide:
		return "ultra-wide"
	case LensWide:
		return "wide"
	case LensTelephoto:
		return "telephoto"
	}
	return "unknown"
}

// Position is the side of the body a device faces.
type Position int

const (
	PositionBack Position = iota
	PositionFront
)

// Format is one discrete sensor configuration offered by a device:
// photo and video track sizes, a frame-rate range, and capability flags.
type Format struct {
	PhotoWidth  int
	PhotoHeight int
	VideoWidth  int
	VideoHeight int

	MinFPS float64
	MaxFPS float64

	SupportsPhotoHDR     bool
	SupportsVideoHDR     bool
	SupportsDepthCapture bool
}

// PhotoPixels returns the photo track pixel count.
func (f Format) PhotoPixels() int {
	return f.PhotoWidth * f.PhotoHeight
}

// VideoPixels returns the video track pixel count.
func (f Format) VideoPixels() int {
	return f.VideoWidth * f.VideoHeight
}

// PhotoMegapixels returns the photo resolution in megapixels.
func (f Format) PhotoMegapixels() float64 {
	return float64(f.PhotoPixels()) / 1e6
}

// Device describes one physical or logical camera. Enumerated once per
// session from the driver and read-only thereafter.
type Device struct {
	ID       string
	Name     string
	Position Position

	// NeutralZoom is the device-reported factor for the natural 1x
	// framing. On multi-lens devices it is usually not 1.0.
	MinZoom     float64
	MaxZoom     float64
	NeutralZoom float64

	Lenses  []LensKind
	Formats []Format

	SupportsFocusPoint    bool
	SupportsLowLightBoost bool
}

// HasLens reports whether the device exposes the given physical lens.
func (d Device) HasLens(kind LensKind) bool {
	for _, l := range d.Lenses {
		if l == kind {
			return true
		}
	}
	return false
}

// IsDedicatedWide reports whether the device is a single dedicated wide
// sensor (lens set exactly {wide}). Logical multi-lens devices are
// observed to misreport capability, so selection prefers these.
func (d Device) IsDedicatedWide() bool {
	return len(d.Lenses) == 1 && d.Lenses[0] == LensWide
}

// PhotoResult is what the capture driver hands back for a finished
// shutter operation. Filing it into a lot is the caller's job.
type PhotoResult struct {
	Locator string
	Width   int
	Height  int
}

// CaptureOptions parameterizes a single photo or recording request.
type CaptureOptions struct {
	DeviceID   string
	Format     Format
	ZoomFactor float64
	TargetFPS  int
	EnableHDR  bool
}

// Driver is the external camera subsystem the session controller runs
// against. ListDevices may legitimately return an empty list for a few
// hundred milliseconds after session start; callers poll.
type Driver interface {
	ListDevices() ([]Device, error)
	TakePhoto(opts CaptureOptions) (PhotoResult, error)
	StartRecording(opts CaptureOptions, onFinished func(PhotoResult), onError func(error)) error
	StopRecording() error

	// Focus is best-effort: failures are logged and swallowed, never
	// surfaced to the capture flow.
	Focus(p Point) error
}

// GallerySink persists a captured asset to the platform library.
type GallerySink interface {
	SaveToLibrary(locator string) error
}
