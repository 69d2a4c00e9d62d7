// pkg/camera/opencv.go
package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// maxProbeIndex bounds the index scan during enumeration.
const maxProbeIndex = 5

// OpenCVDriver implements Driver against desktop webcams through OpenCV.
// It exists so the selection/zoom/lot pipeline runs against real frames
// off-device; webcams expose a single wide sensor with no optical zoom,
// so each enumerated device carries one synthetic format at the reported
// frame size and a fixed 1x zoom range.
type OpenCVDriver struct {
	mu          sync.Mutex
	captureDir  string
	openDevices map[string]*gocv.VideoCapture
	stopRec     chan struct{}
	recDone     chan struct{}
}

// NewOpenCVDriver stores captures under dir (created on demand).
func NewOpenCVDriver(dir string) *OpenCVDriver {
	return &OpenCVDriver{
		captureDir:  dir,
		openDevices: make(map[string]*gocv.VideoCapture),
	}
}

// ListDevices probes camera indexes sequentially; an index that opens is
// reported as an available device.
func (d *OpenCVDriver) ListDevices() ([]Device, error) {
	var devices []Device
	for i := 0; i < maxProbeIndex; i++ {
		cap, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		width := int(cap.Get(gocv.VideoCaptureFrameWidth))
		height := int(cap.Get(gocv.VideoCaptureFrameHeight))
		fps := cap.Get(gocv.VideoCaptureFPS)
		cap.Close()

		if width == 0 || height == 0 {
			continue
		}
		if fps == 0 {
			fps = 30
		}

		name := fmt.Sprintf("Camera %d", i)
		if i == 0 {
			name = "Built-in Camera"
		}
		devices = append(devices, Device{
			ID:          strconv.Itoa(i),
			Name:        name,
			Position:    PositionBack,
			MinZoom:     1,
			MaxZoom:     1,
			NeutralZoom: 1,
			Lenses:      []LensKind{LensWide},
			Formats: []Format{{
				PhotoWidth:  width,
				PhotoHeight: height,
				VideoWidth:  width,
				VideoHeight: height,
				MinFPS:      1,
				MaxFPS:      fps,
			}},
			SupportsFocusPoint: false,
		})
	}
	return devices, nil
}

func (d *OpenCVDriver) device(deviceID string) (*gocv.VideoCapture, error) {
	if cap, exists := d.openDevices[deviceID]; exists {
		return cap, nil
	}

	index, err := strconv.Atoi(deviceID)
	if err != nil {
		return nil, fmt.Errorf("invalid device ID: %s", deviceID)
	}
	cap, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("error opening camera %s: %v", deviceID, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("camera %s is not open", deviceID)
	}
	d.openDevices[deviceID] = cap
	return cap, nil
}

func (d *OpenCVDriver) capturePath(ext string) (string, error) {
	if err := os.MkdirAll(d.captureDir, 0755); err != nil {
		return "", fmt.Errorf("error creating capture directory: %v", err)
	}
	name := fmt.Sprintf("capture-%d%s", time.Now().UnixNano(), ext)
	return filepath.Join(d.captureDir, name), nil
}

// TakePhoto grabs one frame, encodes it as JPEG and writes it under the
// capture directory. The returned locator is the file path.
func (d *OpenCVDriver) TakePhoto(opts CaptureOptions) (PhotoResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cap, err := d.device(opts.DeviceID)
	if err != nil {
		return PhotoResult{}, err
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(opts.Format.PhotoWidth))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(opts.Format.PhotoHeight))

	img := gocv.NewMat()
	defer img.Close()

	if ok := cap.Read(&img); !ok || img.Empty() {
		return PhotoResult{}, fmt.Errorf("failed to read frame from camera %s", opts.DeviceID)
	}

	buf, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		return PhotoResult{}, fmt.Errorf("failed to encode frame: %v", err)
	}
	defer buf.Close()

	path, err := d.capturePath(".jpg")
	if err != nil {
		return PhotoResult{}, err
	}
	if err := os.WriteFile(path, buf.GetBytes(), 0644); err != nil {
		return PhotoResult{}, fmt.Errorf("failed to write capture: %v", err)
	}

	return PhotoResult{
		Locator: path,
		Width:   img.Cols(),
		Height:  img.Rows(),
	}, nil
}

// StartRecording writes frames into an AVI file until StopRecording.
func (d *OpenCVDriver) StartRecording(opts CaptureOptions, onFinished func(PhotoResult), onError func(error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopRec != nil {
		return fmt.Errorf("recording already in progress")
	}

	cap, err := d.device(opts.DeviceID)
	if err != nil {
		return err
	}

	path, err := d.capturePath(".avi")
	if err != nil {
		return err
	}

	fps := float64(opts.TargetFPS)
	if fps == 0 {
		fps = 30
	}
	width := opts.Format.VideoWidth
	height := opts.Format.VideoHeight
	writer, err := gocv.VideoWriterFile(path, "MJPG", fps, width, height, true)
	if err != nil {
		return fmt.Errorf("error opening video writer: %v", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stopRec = stop
	d.recDone = done

	go func() {
		defer close(done)
		defer writer.Close()

		img := gocv.NewMat()
		defer img.Close()

		interval := time.Duration(float64(time.Second) / fps)
		for {
			select {
			case <-stop:
				onFinished(PhotoResult{Locator: path, Width: width, Height: height})
				return
			default:
			}

			d.mu.Lock()
			ok := cap.Read(&img)
			d.mu.Unlock()
			if !ok || img.Empty() {
				onError(fmt.Errorf("failed to read frame during recording"))
				return
			}
			if err := writer.Write(img); err != nil {
				onError(fmt.Errorf("failed to write frame: %v", err))
				return
			}
			time.Sleep(interval)
		}
	}()
	return nil
}

// StopRecording signals the frame loop to finish and waits for it.
func (d *OpenCVDriver) StopRecording() error {
	d.mu.Lock()
	stop, done := d.stopRec, d.recDone
	d.stopRec, d.recDone = nil, nil
	d.mu.Unlock()

	if stop == nil {
		return fmt.Errorf("no recording in progress")
	}
	close(stop)
	<-done
	return nil
}

// Focus is a no-op: desktop webcams expose no focus-point control.
// Best-effort by contract, so success is the honest answer.
func (d *OpenCVDriver) Focus(p Point) error {
	return nil
}

// Close releases every open capture handle.
func (d *OpenCVDriver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, cap := range d.openDevices {
		cap.Close()
		delete(d.openDevices, id)
	}
}
