package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/migchat/migchat-backend/internal/middleware"
	"github.com/migchat/migchat-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for WebSocket is handled at the HTTP layer already.
		return true
	},
}

// WSHandler upgrades authenticated clients and streams new direct
// messages to them as they arrive.
type WSHandler struct {
	Sessions SessionService
	Hub      *services.Hub
}

// Serve authenticates via the session token (Authorization header, or
// the token query parameter for browser WebSocket clients), registers
// the connection with the hub and blocks until the client goes away.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}

	userID, err := h.Sessions.Resolve(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	connID := h.Hub.Register(userID, conn)
	defer h.Hub.Unregister(userID, connID)

	// Reads only to detect disconnect; clients receive, they don't send.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
