// internal/session/session.go
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sivam-Manoj/clearvalue-sample-cam/internal/config"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/internal/logging"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/pkg/camera"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/pkg/lots"
)

// Errors surfaced by the controller. Side-path failures (gallery,
// settings, focus) are logged here and never reach the caller.
var (
	ErrNoDeviceAvailable = errors.New("no camera device available")
	ErrCaptureBusy       = errors.New("capture already in flight")
	ErrNotStarted        = errors.New("session not started")
	ErrRecordingActive   = errors.New("recording already active")
)

const (
	defaultEnumerateInterval = 500 * time.Millisecond
	defaultEnumerateAttempts = 10

	normalPreviewFPS   = 30
	lowPowerPreviewFPS = 15
)

// Options wires the controller's collaborators. Driver is required;
// everything else has a usable default.
type Options struct {
	Driver  camera.Driver
	Gallery camera.GallerySink
	Log     *logging.Logger
	Quirks  camera.Quirks
	Config  *config.AppConfig

	// SaveConfig persists settings changes; failures are logged, never
	// surfaced. Nil disables persistence.
	SaveConfig func(*config.AppConfig) error

	EnumerateInterval time.Duration
	EnumerateAttempts int

	// Clock and Sleep are injectable for deterministic tests.
	Clock func() time.Time
	Sleep func(time.Duration)
}

// Controller runs one live capture session: it owns device selection,
// zoom state, the lot store, and the single-shutter busy gate. Mutations
// come from the control thread; projections (zoom readout, lot
// snapshots) are read from the UI thread.
type Controller struct {
	mu sync.Mutex

	driver  camera.Driver
	gallery camera.GallerySink
	log     *logging.Logger
	cfg     *config.AppConfig
	save    func(*config.AppConfig) error
	quirks  camera.Quirks

	catalog *camera.Catalog
	zoom    *camera.ZoomController
	lots    *lots.Store

	devices   []camera.Device
	selection *camera.Selection
	preset    camera.ResolutionPreset

	busy          bool
	pendingPreset *camera.ResolutionPreset
	recording     bool

	enumerateInterval time.Duration
	enumerateAttempts int
	now               func() time.Time
	sleep             func(time.Duration)
}

// New builds a controller; call Start before capturing.
func New(opts Options) *Controller {
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.Config == nil {
		opts.Config = &config.AppConfig{}
	}
	if opts.EnumerateInterval == 0 {
		opts.EnumerateInterval = defaultEnumerateInterval
	}
	if opts.EnumerateAttempts == 0 {
		opts.EnumerateAttempts = defaultEnumerateAttempts
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}

	c := &Controller{
		driver:            opts.Driver,
		gallery:           opts.Gallery,
		log:               opts.Log,
		cfg:               opts.Config,
		save:              opts.SaveConfig,
		quirks:            opts.Quirks,
		catalog:           camera.NewCatalog(opts.Quirks).WithClock(opts.Clock),
		lots:              lots.NewStore(),
		enumerateInterval: opts.EnumerateInterval,
		enumerateAttempts: opts.EnumerateAttempts,
		now:               opts.Clock,
		sleep:             opts.Sleep,
	}
	c.preset = c.startupPreset()
	return c
}

// startupPreset resolves the preset-on-start policy: restore the
// persisted choice when configured to, otherwise pin max.
func (c *Controller) startupPreset() camera.ResolutionPreset {
	cap := c.cfg.Capture
	if !cap.RestorePresetOnStart {
		return camera.MaxPreset()
	}
	switch cap.ResolutionPreset {
	case "max":
		return camera.MaxPreset()
	case "target":
		return camera.MegapixelTarget(cap.MegapixelTarget)
	default:
		return camera.AutoPreset()
	}
}

// Start enumerates devices (polling while the driver warms up) and
// selects the initial (device, format) pair. Terminal
// ErrNoDeviceAvailable only after the retry budget is spent.
func (c *Controller) Start() error {
	devices, err := c.enumerate()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = devices
	sel := c.catalog.SelectDevice(devices, c.preset, false)
	if sel == nil {
		return ErrNoDeviceAvailable
	}
	c.selection = sel
	c.zoom = camera.NewZoomController(sel.Device, c.catalog.WideOnly).WithClock(c.now)
	c.log.Infof("session started: device=%s format=%dx%d preset=%s",
		sel.Device.ID, sel.Format.PhotoWidth, sel.Format.PhotoHeight, c.preset)
	return nil
}

// enumerate polls the driver's device list. An empty list for the first
// several hundred milliseconds is normal on first run.
func (c *Controller) enumerate() ([]camera.Device, error) {
	for attempt := 1; attempt <= c.enumerateAttempts; attempt++ {
		devices, err := c.driver.ListDevices()
		if err != nil {
			c.log.Warnf("device enumeration attempt %d failed: %v", attempt, err)
		} else if len(devices) > 0 {
			return devices, nil
		}
		if attempt < c.enumerateAttempts {
			c.sleep(c.enumerateInterval)
		}
	}
	c.log.Errorf("device enumeration exhausted %d attempts", c.enumerateAttempts)
	return nil, ErrNoDeviceAvailable
}

// Refresh re-enumerates after the driver reports a device-list change.
func (c *Controller) Refresh() error {
	devices, err := c.enumerate()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.devices = devices
	c.mu.Unlock()
	return c.reselect()
}

// Zoom exposes the zoom controller; nil before Start.
func (c *Controller) Zoom() *camera.ZoomController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

// Lots exposes the lot store.
func (c *Controller) Lots() *lots.Store { return c.lots }

// Selection returns the active (device, format) pair, or nil.
func (c *Controller) Selection() *camera.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection == nil {
		return nil
	}
	sel := *c.selection
	return &sel
}

// Preset returns the active resolution preset.
func (c *Controller) Preset() camera.ResolutionPreset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preset
}

// Recording reports whether a recording is active.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// SetResolutionPreset re-selects the (device, format) pair for the new
// preset. A switch requested while a capture is in flight is deferred
// until that capture resolves, so the result is never attached to a
// session whose format changed underneath it.
func (c *Controller) SetResolutionPreset(p camera.ResolutionPreset) error {
	c.mu.Lock()
	c.preset = p
	c.persistPresetLocked(p)
	if c.busy {
		pending := p
		c.pendingPreset = &pending
		c.mu.Unlock()
		c.log.Infof("preset change to %s deferred: capture in flight", p)
		return nil
	}
	c.mu.Unlock()
	return c.reselect()
}

// persistPresetLocked writes the preset choice through the settings
// store. Non-fatal: failures are logged and swallowed.
func (c *Controller) persistPresetLocked(p camera.ResolutionPreset) {
	c.cfg.Capture.ResolutionPreset = p.String()
	if p.Kind == camera.PresetMegapixelTarget {
		c.cfg.Capture.MegapixelTarget = p.Megapixels
	}
	if c.save == nil {
		return
	}
	if err := c.save(c.cfg); err != nil {
		c.log.Warnf("settings persistence failed: %v", err)
	}
}

func (c *Controller) reselect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reselectLocked()
}

func (c *Controller) reselectLocked() error {
	if len(c.devices) == 0 {
		return ErrNoDeviceAvailable
	}
	sel := c.catalog.SelectDevice(c.devices, c.preset, c.recording)
	if sel == nil {
		return ErrNoDeviceAvailable
	}
	c.selection = sel
	if c.zoom != nil {
		c.zoom.SetDevice(sel.Device)
	}
	c.log.Infof("selected device=%s format=%dx%d", sel.Device.ID, sel.Format.PhotoWidth, sel.Format.PhotoHeight)
	return nil
}

// ApplyZoomPreset applies a discrete zoom tap and opens the auto-adjust
// suppression window so the fallback-to-wide rule does not fight it.
func (c *Controller) ApplyZoomPreset(p camera.ZoomPreset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.zoom == nil {
		return ErrNotStarted
	}
	suppressUntil := c.zoom.ApplyPreset(p)
	c.catalog.SuppressAutoAdjust(suppressUntil)
	return nil
}

// FocusAt maps a screen tap into preview-local coordinates and asks the
// driver to focus there. Best-effort: driver failures are swallowed.
func (c *Controller) FocusAt(tap camera.Point, preview camera.Rect, exclusions []camera.Rect) {
	target := camera.TapTarget(tap, preview, exclusions)
	if target == nil {
		return
	}
	if err := c.driver.Focus(*target); err != nil {
		c.log.Warnf("focus call failed (ignored): %v", err)
	}
}

// CaptureRequest describes one shutter press.
type CaptureRequest struct {
	Mode    lots.CaptureMode
	IsExtra bool
	// Focus is the focus region active at capture time, recorded with
	// the asset. May be nil.
	Focus *camera.FocusRegion
	// Done is invoked off the control thread with the filed asset or
	// the capture error. May be nil.
	Done func(lots.Asset, error)
}

// TakePhoto runs one asynchronous capture. Mode conflicts and the busy
// gate are rejected synchronously; the shutter itself is fire-and-forget
// so a burst of presses never blocks on the previous completion. One
// physical shutter operation at a time: a press while busy gets
// ErrCaptureBusy, not a queue slot.
func (c *Controller) TakePhoto(req CaptureRequest) error {
	c.mu.Lock()
	if c.selection == nil {
		c.mu.Unlock()
		return ErrNotStarted
	}
	if err := c.lots.CanCapture(req.Mode, req.IsExtra); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.busy {
		c.mu.Unlock()
		return ErrCaptureBusy
	}
	c.busy = true
	opts := c.captureOptionsLocked()
	c.mu.Unlock()

	go c.runCapture(req, opts)
	return nil
}

func (c *Controller) captureOptionsLocked() camera.CaptureOptions {
	fps := normalPreviewFPS
	if c.cfg.Capture.PerformanceMode == "low-power" {
		fps = lowPowerPreviewFPS
	}
	opts := camera.CaptureOptions{
		DeviceID:  c.selection.Device.ID,
		Format:    c.selection.Format,
		TargetFPS: fps,
		EnableHDR: c.selection.Format.SupportsPhotoHDR,
	}
	if c.zoom != nil {
		opts.ZoomFactor = c.zoom.Factor()
	}
	return opts
}

func (c *Controller) runCapture(req CaptureRequest, opts camera.CaptureOptions) {
	result, err := c.driver.TakePhoto(opts)
	if err != nil {
		c.log.Errorf("capture failed: %v", err)
		c.finishCapture()
		if req.Done != nil {
			req.Done(lots.Asset{}, fmt.Errorf("capture failed: %w", err))
		}
		return
	}

	asset := lots.Asset{
		ID:         uuid.NewString(),
		Locator:    result.Locator,
		Width:      result.Width,
		Height:     result.Height,
		Megapixels: float64(result.Width*result.Height) / 1e6,
		Focus:      req.Focus,
		Kind:       lots.KindPhoto,
		CapturedAt: c.now(),
	}

	if err := c.lots.Capture(req.Mode, req.IsExtra, asset); err != nil {
		// Lot state moved under a burst; surface it like a capture
		// error so the caller can re-aim.
		c.finishCapture()
		if req.Done != nil {
			req.Done(lots.Asset{}, err)
		}
		return
	}

	c.saveToGallery(asset.Locator)
	c.maybeFallbackToWide()
	c.finishCapture()
	if req.Done != nil {
		req.Done(asset, nil)
	}
}

// finishCapture releases the busy gate and applies a preset switch that
// was deferred while the shutter was in flight.
func (c *Controller) finishCapture() {
	c.mu.Lock()
	c.busy = false
	pending := c.pendingPreset
	c.pendingPreset = nil
	if pending != nil {
		c.preset = *pending
	}
	c.mu.Unlock()
	if pending != nil {
		if err := c.reselect(); err != nil {
			c.log.Errorf("deferred preset switch failed: %v", err)
		}
	}
}

// saveToGallery mirrors a capture into the platform library when
// enabled. Side path: never blocks or fails the capture flow.
func (c *Controller) saveToGallery(locator string) {
	if c.gallery == nil || !c.cfg.Capture.SaveToGallery {
		return
	}
	if err := c.gallery.SaveToLibrary(locator); err != nil {
		c.log.Warnf("gallery save failed (ignored): %v", err)
	}
}

// maybeFallbackToWide applies the catalog's one-shot safety net when the
// current selection underdelivers and a dedicated wide sensor can do
// better.
func (c *Controller) maybeFallbackToWide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection == nil || c.zoom == nil {
		return
	}
	// An explicit preset tap still holds the zoom; the device swap it
	// would trigger is a competing write.
	if c.zoom.PresetLockActive() {
		return
	}
	sel, ok := c.catalog.MaybeFallbackToWide(c.devices, *c.selection, c.zoom.MacroEngaged())
	if !ok {
		return
	}
	c.selection = sel
	c.zoom.SetDevice(sel.Device)
	c.log.Infof("fallback to dedicated wide sensor: device=%s", sel.Device.ID)
}

// StartRecording begins a video capture into the active lot. Gated on
// the lot's mode being established by at least one photo; callers
// surface ErrVideoNeedsMode as a user prompt.
func (c *Controller) StartRecording(done func(lots.Asset, error)) error {
	c.mu.Lock()
	if c.selection == nil {
		c.mu.Unlock()
		return ErrNotStarted
	}
	if c.recording {
		c.mu.Unlock()
		return ErrRecordingActive
	}
	snap := c.lots.ActiveSnapshot()
	if snap.Mode == nil {
		c.mu.Unlock()
		return lots.ErrVideoNeedsMode
	}
	lotIndex := c.lots.ActiveIndex()
	c.recording = true
	// The video track drives the photo resolution on the quirked
	// platform, so the recording path scores its own selection.
	if c.quirks.UsesVideoTrackForPhotoResolution {
		if err := c.reselectLocked(); err != nil {
			c.recording = false
			c.mu.Unlock()
			return err
		}
	}
	opts := c.captureOptionsLocked()
	c.mu.Unlock()

	onFinished := func(result camera.PhotoResult) {
		c.endRecording()

		asset := lots.Asset{
			ID:         uuid.NewString(),
			Locator:    result.Locator,
			Width:      result.Width,
			Height:     result.Height,
			Kind:       lots.KindVideo,
			CapturedAt: c.now(),
		}
		if err := c.lots.AttachVideo(lotIndex, asset); err != nil {
			c.log.Errorf("attach video failed: %v", err)
			if done != nil {
				done(lots.Asset{}, err)
			}
			return
		}
		c.saveToGallery(asset.Locator)
		if done != nil {
			done(asset, nil)
		}
	}
	onError := func(err error) {
		c.endRecording()
		c.log.Errorf("recording failed: %v", err)
		if done != nil {
			done(lots.Asset{}, fmt.Errorf("recording failed: %w", err))
		}
	}

	if err := c.driver.StartRecording(opts, onFinished, onError); err != nil {
		c.endRecording()
		return fmt.Errorf("start recording: %w", err)
	}
	return nil
}

// endRecording clears the recording flag and restores the photo-path
// selection on the quirked platform.
func (c *Controller) endRecording() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recording = false
	if c.quirks.UsesVideoTrackForPhotoResolution {
		if err := c.reselectLocked(); err != nil {
			c.log.Warnf("reselect after recording failed: %v", err)
		}
	}
}

// StopRecording asks the driver to finish the active recording; the
// completion callback files the asset.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.driver.StopRecording()
}
