package websocket

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server pushes refreshed histories to websocket subscribers.
type Server struct {
	server *http.Server
	hub    *Hub
}

// NewServer creates a websocket server and starts its hub.
func NewServer() *Server {
	hub := NewHub()
	go hub.Run()
	return &Server{hub: hub}
}

// Handler routes the websocket endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/history", s.handleHistory)
	mux.HandleFunc("/ws/health", s.handleHealth)
	return mux
}

// Start listens on port until Shutdown.
func (s *Server) Start(port string) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: s.Handler(),
	}

	log.Printf("WebSocket server listening on :%s", port)
	return s.server.ListenAndServe()
}

// handleHistory upgrades the connection. Repeated "target" query values
// (mode:id) limit what the client receives.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	topics := make(map[string]bool)
	for _, t := range r.URL.Query()["target"] {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			topics[t] = true
		}
	}

	client := &Client{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		topics: topics,
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "healthy", "clients": %d}`, s.hub.ClientCount())
}

// Broadcast sends data to clients subscribed to key, and to clients with
// no subscription.
func (s *Server) Broadcast(key string, data []byte) {
	s.hub.Broadcast(key, data)
}

// ClientCount reports connected clients.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

// Shutdown stops the listener and disconnects clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
