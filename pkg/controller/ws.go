package controller

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HandleWebSocket upgrades the connection and registers the client for
// import progress events. The connection is read only to detect close.
func (c *Controller) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade error", "error", err)
		return
	}

	client := &Client{conn: conn}

	c.clientsMutex.Lock()
	c.clients[client] = true
	c.clientsMutex.Unlock()

	defer func() {
		c.clientsMutex.Lock()
		delete(c.clients, client)
		c.clientsMutex.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends one event to every connected client. Clients whose
// connection fails are dropped.
func (c *Controller) broadcast(eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal ws event", "type", eventType, "error", err)
		return
	}
	msg := WSMessage{Type: eventType, Data: data}

	c.clientsMutex.RLock()
	clients := make([]*Client, 0, len(c.clients))
	for client := range c.clients {
		clients = append(clients, client)
	}
	c.clientsMutex.RUnlock()

	for _, client := range clients {
		client.mu.Lock()
		err := client.conn.WriteJSON(msg)
		client.mu.Unlock()

		if err != nil {
			client.conn.Close()
			c.clientsMutex.Lock()
			delete(c.clients, client)
			c.clientsMutex.Unlock()
		}
	}
}
