// internal/tui/update.go
package tui

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sivam-Manoj/clearvalue-sample-cam/internal/session"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/pkg/camera"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/pkg/lots"
)

// pinchStep is the gesture scale delta one keypress simulates.
const pinchStep = 0.05

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.currentTime = time.Time(msg)
		m.broadcastState()
		return m, timeTickCmd()

	case captureDoneMsg:
		if msg.err != nil {
			m.addCaptureMessage(fmt.Sprintf("Capture failed: %v", msg.err), true)
		} else {
			m.addCaptureMessage(fmt.Sprintf("Captured %s (%dx%d)", msg.asset.Locator, msg.asset.Width, msg.asset.Height), false)
			m.status = "Capture complete"
		}
		return m, m.waitForResult()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "tab":
			m.activeTab = (m.activeTab + 1) % tabType(len(m.tabs))

		case " ", "space":
			m.takePhoto()

		case "e":
			m.isExtra = !m.isExtra
			if m.isExtra {
				m.status = "Extra captures on"
			} else {
				m.status = "Extra captures off"
			}

		case "m":
			m.captureMode = (m.captureMode + 1) % 3
			m.status = fmt.Sprintf("Capture mode: %s", m.captureMode)

		case "p":
			m.cyclePreset()

		case "1", "2", "3", "4":
			m.applyZoomPreset(int(msg.String()[0] - '1'))

		case "z":
			m.pinch(1 + pinchStep)
		case "x":
			m.pinch(1 - pinchStep)

		case "n":
			idx := m.controller.Lots().AdvanceLot()
			m.status = fmt.Sprintf("Lot %d active", idx+1)
		case "b":
			idx := m.controller.Lots().RetreatLot()
			m.status = fmt.Sprintf("Lot %d active", idx+1)

		case "d":
			store := m.controller.Lots()
			if err := store.RemoveMainImage(store.ActiveIndex(), 0); err != nil {
				m.addCaptureMessage("Nothing to remove", true)
			} else {
				m.status = "Removed newest main image"
			}

		case "r":
			m.toggleRecording()

		case "s":
			if m.activeTab == serverTab {
				if m.server.IsRunning() {
					if err := m.server.Stop(); err != nil {
						m.status = fmt.Sprintf("Error stopping server: %v", err)
					} else {
						m.status = "Server stopped"
					}
				} else {
					if err := m.server.Start(); err != nil {
						m.status = fmt.Sprintf("Error starting server: %v", err)
					} else {
						m.status = fmt.Sprintf("Server started on port %s", m.server.Port())
					}
				}
			}
		}
	}
	return m, nil
}

func (m *Model) takePhoto() {
	err := m.controller.TakePhoto(session.CaptureRequest{
		Mode:    m.captureMode,
		IsExtra: m.isExtra,
		Done: func(asset lots.Asset, err error) {
			m.results <- captureDoneMsg{asset: asset, err: err}
		},
	})
	switch {
	case errors.Is(err, lots.ErrModeMismatch):
		m.addCaptureMessage("Lot locked to another mode; advance to a new lot or reset", true)
	case errors.Is(err, session.ErrCaptureBusy):
		m.addCaptureMessage("Shutter busy", true)
	case err != nil:
		m.addCaptureMessage(fmt.Sprintf("Capture rejected: %v", err), true)
	default:
		m.status = "Capturing..."
	}
}

func (m *Model) applyZoomPreset(index int) {
	zoom := m.controller.Zoom()
	if zoom == nil {
		return
	}
	presets := zoom.Presets()
	if index < 0 || index >= len(presets) {
		return
	}
	if err := m.controller.ApplyZoomPreset(presets[index]); err != nil {
		m.addCaptureMessage(fmt.Sprintf("Zoom preset failed: %v", err), true)
		return
	}
	m.status = fmt.Sprintf("Zoom %s (%.2fx)", presets[index].Label, zoom.Factor())
}

func (m *Model) pinch(scale float64) {
	zoom := m.controller.Zoom()
	if zoom == nil {
		return
	}
	zoom.PinchBegan()
	factor := zoom.ApplyPinch(scale)
	m.status = fmt.Sprintf("Zoom %.2fx", factor)
}

func (m *Model) cyclePreset() {
	var next camera.ResolutionPreset
	switch m.controller.Preset().Kind {
	case camera.PresetAuto:
		next = camera.MaxPreset()
	case camera.PresetMax:
		next = camera.MegapixelTarget(m.config.Capture.MegapixelTarget)
	default:
		next = camera.AutoPreset()
	}
	if err := m.controller.SetResolutionPreset(next); err != nil {
		m.addCaptureMessage(fmt.Sprintf("Preset change failed: %v", err), true)
		return
	}
	m.status = fmt.Sprintf("Resolution preset: %s", next)
}

func (m *Model) toggleRecording() {
	if m.controller.Recording() {
		if err := m.controller.StopRecording(); err != nil {
			m.addCaptureMessage(fmt.Sprintf("Stop recording failed: %v", err), true)
		} else {
			m.status = "Recording stopped"
		}
		return
	}

	err := m.controller.StartRecording(func(asset lots.Asset, err error) {
		m.results <- captureDoneMsg{asset: asset, err: err}
	})
	switch {
	case errors.Is(err, lots.ErrVideoNeedsMode):
		m.addCaptureMessage("Take a photo first to set the lot's mode, then record", true)
	case err != nil:
		m.addCaptureMessage(fmt.Sprintf("Recording failed to start: %v", err), true)
	default:
		m.status = "Recording..."
	}
}
