// Package preview serves the latched state of a simulated chain over HTTP
// and websockets.
package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/coreman2200/tlc59711/internal/diagnostics"
	"github.com/coreman2200/tlc59711/sim"
)

const writeWait = 200 * time.Millisecond

// ChipState is one chip as the chain latched it.
type ChipState struct {
	Control    string     `json:"control"`
	Valid      bool       `json:"valid"`
	FC         uint8      `json:"fc"`
	Brightness [3]uint8   `json:"brightness"`
	Grayscale  [12]uint16 `json:"grayscale"`
}

type Frame struct {
	T       int64       `json:"t"`
	FrameID uint64      `json:"frame_id"`
	Chips   []ChipState `json:"chips"`
}

// Topology is sent to every frame client when it connects.
type Topology struct {
	Chips  int    `json:"chips"`
	Leds   int    `json:"leds"`
	Driver string `json:"driver"`
}

type Server struct {
	Addr   string
	Chips  int
	Driver string
	Logger zerolog.Logger

	mu          sync.Mutex
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	last        *Frame
	frameID     uint64
	active      map[string]bool
	startTime   time.Time
	upgrader    websocket.Upgrader
}

func New(addr string, chips int, driver string, log zerolog.Logger) *Server {
	return &Server{
		Addr:        addr,
		Chips:       chips,
		Driver:      driver,
		Logger:      log,
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		active:      map[string]bool{},
		startTime:   time.Now(),
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Handler routes the preview endpoints.
func (s *Server) Handler() http.Handler {
	mux := httprouter.New()
	mux.HandlerFunc(http.MethodGet, "/ws", s.handleFramesWS)
	mux.HandlerFunc(http.MethodGet, "/diag", s.handleDiagWS)
	mux.HandlerFunc(http.MethodGet, "/health", s.handleHealth)
	mux.HandlerFunc(http.MethodGet, "/frame", s.handleFrame)
	mux.HandlerFunc(http.MethodGet, "/frame/:chip", s.handleFrame)
	return mux
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    4096,
	}
	listenErrs := make(chan error, 1)
	go func() {
		s.Logger.Info().Str("addr", s.Addr).Msg("serving preview")
		listenErrs <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-listenErrs:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdown)
	}
}

// Latch is installed as sim.Bus.Latched: it broadcasts the chain state and
// pushes diagnostics that were not active on the previous frame.
func (s *Server) Latch(chips []sim.Chip) {
	f := &Frame{T: time.Now().UnixNano(), Chips: make([]ChipState, len(chips))}
	for k, c := range chips {
		ctl := c.Decoded()
		f.Chips[k] = ChipState{
			Control:    fmt.Sprintf("%#08x", c.Control),
			Valid:      c.Valid(),
			FC:         uint8(ctl.FC),
			Brightness: [3]uint8{ctl.BCR, ctl.BCG, ctl.BCB},
			Grayscale:  c.Grayscale,
		}
	}
	found := diagnostics.Chain(chips)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID++
	f.FrameID = s.frameID
	s.last = f
	b, _ := json.Marshal(f)
	s.broadcastLocked(s.clients, b)

	next := map[string]bool{}
	for _, d := range found {
		key := fmt.Sprintf("%s/%v", d.Code, d.Evidence["chip"])
		next[key] = true
		if !s.active[key] {
			s.pushLocked(d)
		}
	}
	s.active = next
}

// Push sends d to every diagnostics client.
func (s *Server) Push(d diagnostics.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushLocked(d)
}

func (s *Server) pushLocked(d diagnostics.Diagnostic) {
	s.Logger.Debug().Str("code", d.Code).Str("severity", string(d.Severity)).Msg(d.Summary)
	b, _ := json.Marshal(d)
	s.broadcastLocked(s.diagClients, b)
}

func (s *Server) broadcastLocked(set map[*websocket.Conn]bool, b []byte) {
	for c := range set {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			s.Logger.Debug().Err(err).Msg("write")
		}
	}
}

func (s *Server) handleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b, _ := json.Marshal(Topology{Chips: s.Chips, Leds: 4 * s.Chips, Driver: s.Driver})
	s.register(s.clients, conn, b)
}

func (s *Server) handleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b, _ := json.Marshal(diagnostics.Diagnostic{
		Severity: diagnostics.Info,
		Code:     "connected",
		Summary:  "diagnostics stream connected",
	})
	s.register(s.diagClients, conn, b)
}

// register sends hello and adds conn to set under the same lock, so a client
// that has read hello receives every later broadcast.
func (s *Server) register(set map[*websocket.Conn]bool, conn *websocket.Conn, hello []byte) {
	s.mu.Lock()
	set[conn] = true
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.TextMessage, hello)
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(set, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	respond(w, map[string]any{
		"frame_id": s.frameID,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"chips":    s.Chips,
		"driver":   s.Driver,
		"clients":  len(s.clients),
	}, http.StatusOK)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		respond(w, "no frame latched yet", http.StatusNotFound)
		return
	}
	name := httprouter.ParamsFromContext(r.Context()).ByName("chip")
	if name == "" {
		respond(w, last, http.StatusOK)
		return
	}
	var k int
	if _, err := fmt.Sscanf(name, "%d", &k); err != nil || k < 0 || k >= len(last.Chips) {
		respond(w, fmt.Sprintf("no chip %q", name), http.StatusNotFound)
		return
	}
	respond(w, last.Chips[k], http.StatusOK)
}

func respond(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if msg, ok := v.(string); ok {
		v = map[string]string{"error": msg}
	}
	json.NewEncoder(w).Encode(v)
}
