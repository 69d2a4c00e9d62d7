// internal/tui/model.go
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sivam-Manoj/clearvalue-sample-cam/internal/config"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/internal/server"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/internal/session"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/pkg/lots"
)

type tabType int

const (
	captureTab tabType = iota
	lotsTab
	serverTab
)

type tab struct {
	title string
	id    tabType
}

type captureMessage struct {
	text      string
	timestamp time.Time
	isError   bool
}

// Msg types
type tickMsg time.Time

type captureDoneMsg struct {
	asset lots.Asset
	err   error
}

// Model holds the capture console state.
type Model struct {
	config      *config.AppConfig
	width       int
	height      int
	status      string
	startTime   time.Time
	currentTime time.Time
	activeTab   tabType
	tabs        []tab

	controller *session.Controller
	server     *server.Server
	serverPort string

	captureMode lots.CaptureMode
	isExtra     bool
	messages    []captureMessage

	logViewport viewport.Model
	logs        []string

	lastState server.StateUpdate
	haveState bool

	results chan captureDoneMsg
}

// New returns a Model wired to a started session controller.
func New(cfg *config.AppConfig, controller *session.Controller) Model {
	now := time.Now()

	m := Model{
		config:      cfg,
		status:      "Ready",
		startTime:   now,
		currentTime: now,
		activeTab:   captureTab,
		controller:  controller,
		serverPort:  cfg.ServerPort,
		captureMode: lots.ModeBundle,
		tabs: []tab{
			{title: "Capture", id: captureTab},
			{title: "Lots", id: lotsTab},
			{title: "Server", id: serverTab},
		},
		logViewport: func() viewport.Model {
			vp := viewport.New(0, 10)
			vp.MouseWheelEnabled = true
			return vp
		}(),
		logs:    make([]string, 0),
		results: make(chan captureDoneMsg, 8),
	}

	m.server = server.New(cfg.ServerPort, m.logCallback)
	if err := m.server.Start(); err != nil {
		m.addLog("ERROR", fmt.Sprintf("Error starting server: %v", err))
	}

	return m
}

func (m *Model) addLog(level, message string) {
	m.logs = append(m.logs, fmt.Sprintf("[%s] %s", level, message))
	if len(m.logs) > 1000 {
		m.logs = m.logs[1:]
	}
	m.logViewport.SetContent(strings.Join(m.logs, "\n"))
}

func (m *Model) logCallback(level, message string) {
	m.addLog(level, message)
}

func (m *Model) addCaptureMessage(msg string, isError bool) {
	if isError {
		m.status = "Error: " + msg
	}
	m.messages = append(m.messages, captureMessage{
		text:      msg,
		timestamp: time.Now(),
		isError:   isError,
	})
	if len(m.messages) > 10 {
		m.messages = m.messages[1:]
	}
}

// broadcastState pushes the current session projection to observers.
// The zoom readout is coalesced by the controller; everything else
// (lot cursor, counts, mode, recording) broadcasts on any change.
func (m *Model) broadcastState() {
	zoom := m.controller.Zoom()
	if zoom == nil {
		return
	}
	factor, _ := zoom.ReportIfChanged()
	store := m.controller.Lots()
	snap := store.ActiveSnapshot()

	update := server.StateUpdate{
		ZoomFactor:   factor,
		MacroEngaged: zoom.MacroEngaged(),
		LotIndex:     store.ActiveIndex(),
		LotCount:     store.Len(),
		MainCount:    len(snap.MainImages),
		ExtraCount:   len(snap.ExtraImages),
		Recording:    m.controller.Recording(),
		Preset:       m.controller.Preset().String(),
	}
	if snap.Mode != nil {
		update.Mode = snap.Mode.String()
	}
	if sel := m.controller.Selection(); sel != nil {
		update.DeviceID = sel.Device.ID
	}
	if m.stateChanged(update) {
		m.server.BroadcastState(update)
	}
}

// stateChanged records the projection and reports whether it differs
// from the last one broadcast. The first projection always counts as
// changed.
func (m *Model) stateChanged(update server.StateUpdate) bool {
	if m.haveState && update == m.lastState {
		return false
	}
	m.lastState = update
	m.haveState = true
	return true
}

// Init runs any initial IO
func (m Model) Init() tea.Cmd {
	return tea.Batch(timeTickCmd(), m.waitForResult())
}

// waitForResult bridges async capture completions into the update loop.
func (m Model) waitForResult() tea.Cmd {
	return func() tea.Msg {
		return <-m.results
	}
}

// Helper command for time updates
func timeTickCmd() tea.Cmd {
	return tea.Every(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
