package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/netwatch-dev/netwatch/internal/types"
)

var (
	tenantClients   = make(map[string]map[*websocket.Conn]bool)
	tenantClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// BroadcastRefresh tells every dashboard connected to the tenant to reload.
// Incident reads are short-poll tolerant, so this is an optimization, not a
// consistency mechanism.
func BroadcastRefresh(tenantID string) {
	tenantClientsMu.RLock()
	clients, exists := tenantClients[tenantID]
	if !exists || len(clients) == 0 {
		tenantClientsMu.RUnlock()
		return
	}

	// Copy the set so the lock is not held while writing to sockets
	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	tenantClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Failed to set write deadline for broadcast: %v", err)
			continue
		}

		err := conn.WriteJSON(map[string]string{
			"type":      "refresh",
			"message":   "Incident data updated",
			"tenant_id": tenantID,
		})

		if err != nil {
			log.Printf("Failed to broadcast refresh to client: %v", err)
			tenantClientsMu.Lock()
			if clients, exists := tenantClients[tenantID]; exists {
				delete(clients, conn)
				if len(clients) == 0 {
					delete(tenantClients, tenantID)
				}
			}
			tenantClientsMu.Unlock()
			conn.Close()
		}
	}
}

func WebSocket(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID is required"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline in pong handler: %v", err)
		}
		return nil
	})

	tenantClientsMu.Lock()
	if tenantClients[tenantID] == nil {
		tenantClients[tenantID] = make(map[*websocket.Conn]bool)
	}
	tenantClients[tenantID][conn] = true
	tenantClientsMu.Unlock()

	defer func() {
		tenantClientsMu.Lock()
		if clients, exists := tenantClients[tenantID]; exists {
			delete(clients, conn)
			if len(clients) == 0 {
				delete(tenantClients, tenantID)
			}
		}
		tenantClientsMu.Unlock()
		conn.Close()
	}()

	// Keep the connection alive with pings; exit on the first read error
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-pingTicker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
