// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StateUpdate is the JSON payload pushed to observers. Zoom readouts
// arrive pre-coalesced (the zoom controller rate-limits propagation), so
// the broadcast volume stays bounded.
type StateUpdate struct {
	ZoomFactor   float64 `json:"zoom_factor"`
	MacroEngaged bool    `json:"macro_engaged"`
	LotIndex     int     `json:"lot_index"`
	LotCount     int     `json:"lot_count"`
	MainCount    int     `json:"main_count"`
	ExtraCount   int     `json:"extra_count"`
	Mode         string  `json:"mode,omitempty"`
	Recording    bool    `json:"recording"`
	DeviceID     string  `json:"device_id,omitempty"`
	Preset       string  `json:"preset,omitempty"`
}

// Server broadcasts session state and preview frames to websocket
// observers.
type Server struct {
	server          *http.Server
	port            string
	isRunning       bool
	upgrader        websocket.Upgrader
	wsConnections   map[*websocket.Conn]bool
	wsConnectionsMu sync.RWMutex
	logCallback     func(level, message string)
}

func New(port string, logCallback func(level, message string)) *Server {
	if logCallback == nil {
		logCallback = func(string, string) {}
	}
	return &Server{
		port:        port,
		logCallback: logCallback,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		wsConnections: make(map[*websocket.Conn]bool),
	}
}

func (s *Server) Start() error {
	if s.isRunning {
		return fmt.Errorf("server is already running")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/session", s.handleWebSocketSession)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "ClearValue Capture Observer")
	})

	s.server = &http.Server{
		Addr:    ":" + s.port,
		Handler: mux,
	}

	go func() {
		s.logCallback("INFO", fmt.Sprintf("Starting observer server on port %s", s.port))
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logCallback("ERROR", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	s.isRunning = true
	return nil
}

func (s *Server) Stop() error {
	if !s.isRunning {
		return fmt.Errorf("server is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %v", err)
	}

	s.isRunning = false
	return nil
}

func (s *Server) IsRunning() bool {
	return s.isRunning
}

func (s *Server) Port() string {
	return s.port
}

func (s *Server) handleWebSocketSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logCallback("ERROR", fmt.Sprintf("Error upgrading websocket connection: %v", err))
		return
	}

	s.logCallback("INFO", fmt.Sprintf("Observer connected from: %s", r.RemoteAddr))

	s.wsConnectionsMu.Lock()
	s.wsConnections[conn] = true
	s.wsConnectionsMu.Unlock()

	defer func() {
		conn.Close()
		s.wsConnectionsMu.Lock()
		delete(s.wsConnections, conn)
		s.wsConnectionsMu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// BroadcastState pushes a state update to every connected observer.
func (s *Server) BroadcastState(update StateUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		s.logCallback("ERROR", fmt.Sprintf("Error marshalling state update: %v", err))
		return
	}

	s.wsConnectionsMu.Lock()
	defer s.wsConnectionsMu.Unlock()
	for conn := range s.wsConnections {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logCallback("ERROR", fmt.Sprintf("Error writing state to websocket: %v", err))
			conn.Close()
			delete(s.wsConnections, conn)
		}
	}
}

// BroadcastFrame pushes a preview frame (JPEG bytes) to every connected
// observer.
func (s *Server) BroadcastFrame(frameBytes []byte) {
	s.wsConnectionsMu.Lock()
	defer s.wsConnectionsMu.Unlock()
	for conn := range s.wsConnections {
		if err := conn.WriteMessage(websocket.BinaryMessage, frameBytes); err != nil {
			s.logCallback("ERROR", fmt.Sprintf("Error writing frame to websocket: %v", err))
			conn.Close()
			delete(s.wsConnections, conn)
		}
	}
}
