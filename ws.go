package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSServer streams snapshot updates to connected dashboard clients.
type WSServer struct {
	addr string

	clients map[*websocket.Conn]bool
	mu      sync.RWMutex

	shutdown chan struct{}
}

func NewWSServer(addr string) *WSServer {
	return &WSServer{
		addr:     addr,
		clients:  make(map[*websocket.Conn]bool),
		shutdown: make(chan struct{}),
	}
}

func (ws *WSServer) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	ws.mu.Lock()
	ws.clients[conn] = true
	clientCount := len(ws.clients)
	ws.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"total_clients": clientCount,
		"remote_addr":   r.RemoteAddr,
	}).Info("🔌 New WebSocket client connected")

	defer func() {
		ws.mu.Lock()
		delete(ws.clients, conn)
		clientCount := len(ws.clients)
		ws.mu.Unlock()

		logger.WithFields(logrus.Fields{
			"total_clients": clientCount,
			"remote_addr":   r.RemoteAddr,
		}).Info("WebSocket client disconnected")
	}()

	// Keep the connection alive until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// BroadcastUpdate pushes a snapshot update to every connected client.
func (ws *WSServer) BroadcastUpdate(update WSUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal WebSocket update")
		return
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	for client := range ws.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.WithError(err).Warn("Dropping unresponsive WebSocket client")
			client.Close()
			delete(ws.clients, client)
		}
	}
}

func (ws *WSServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.handleConnection)

	logger.Infof("🌍 WebSocket server starting on %s", ws.addr)
	go func() {
		if err := http.ListenAndServe(ws.addr, mux); err != nil {
			logger.WithError(err).Error("WebSocket server error")
		}
	}()

	return nil
}

func (ws *WSServer) Stop() {
	ws.mu.Lock()
	for client := range ws.clients {
		client.Close()
		delete(ws.clients, client)
	}
	ws.mu.Unlock()

	close(ws.shutdown)
}
