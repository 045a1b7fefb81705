// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sonoscope/internal/log"
)

// FeatureSocket broadcasts JSON-encoded snapshots to every connected
// WebSocket client. Snapshots cross into the broadcast goroutine
// through a buffered channel, so Send never blocks the analysis loop;
// a full queue and broadcasts closer together than minGap both drop
// the snapshot instead.
type FeatureSocket struct {
	listener net.Listener
	server   *http.Server
	upgrader websocket.Upgrader

	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex

	broadcast chan any
	lastSend  time.Time // touched by Send only, single caller
	minGap    time.Duration

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewFeatureSocket starts an HTTP server on port serving the /features
// WebSocket endpoint. Port 0 binds a free port; Addr reports it.
func NewFeatureSocket(port int, minGap time.Duration) (*FeatureSocket, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("websocket listen: %w", err)
	}

	s := &FeatureSocket{
		listener: listener,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Visualizer clients connect from file:// pages and other
			// origins; the feature stream is not privileged.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 64),
		minGap:    minGap,
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/features", s.handleUpgrade)
	s.server = &http.Server{Handler: mux}

	go func() {
		log.Infof("websocket transport listening on %s", listener.Addr())
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Errorf("websocket server: %v", err)
		}
	}()
	go s.broadcastLoop()

	return s, nil
}

// Addr returns the bound listen address.
func (s *FeatureSocket) Addr() net.Addr { return s.listener.Addr() }

func (s *FeatureSocket) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	n := len(s.clients)
	s.clientsMu.Unlock()
	log.Infof("websocket client connected (%d total)", n)

	// The only reads expected from a client are the close handshake.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.dropClient(conn)
				return
			}
		}
	}()
}

func (s *FeatureSocket) dropClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		conn.Close()
		log.Infof("websocket client disconnected (%d total)", len(s.clients))
	}
	s.clientsMu.Unlock()
}

func (s *FeatureSocket) broadcastLoop() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.broadcast:
			s.clientsMu.Lock()
			for conn := range s.clients {
				if err := conn.WriteJSON(data); err != nil {
					log.Warnf("websocket write: %v", err)
					delete(s.clients, conn)
					conn.Close()
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

// Send queues data for broadcast. Called from the analysis loop only.
func (s *FeatureSocket) Send(data any) error {
	now := time.Now()
	if now.Sub(s.lastSend) < s.minGap {
		return nil
	}
	s.lastSend = now

	select {
	case s.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects every client and shuts the server down.
// Idempotent; Send after Close is harmless.
func (s *FeatureSocket) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.clientsMu.Lock()
		for conn := range s.clients {
			conn.Close()
		}
		s.clients = make(map[*websocket.Conn]bool)
		s.clientsMu.Unlock()

		s.closeErr = s.server.Close()
	})
	return s.closeErr
}

var _ Transport = (*FeatureSocket)(nil)
