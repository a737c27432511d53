// Package controller manages HTTP and WebSocket request handling for the
// audit log importer.
package controller

import (
	"encoding/json"
	"net/http"
	"sync"

	"audit-log-importer/pkg/importer"
	"audit-log-importer/pkg/store"

	"github.com/gorilla/schema"
	"github.com/gorilla/websocket"
)

// Controller wires the store and the import supervisor to the HTTP surface
// and broadcasts import progress to WebSocket clients.
type Controller struct {
	store      *store.Store
	supervisor *importer.Supervisor
	importOpts importer.Options

	clients      map[*Client]bool
	clientsMutex sync.RWMutex
	upgrader     websocket.Upgrader
	decoder      *schema.Decoder
}

// Client represents a WebSocket client connection.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

// WSMessage is the envelope of every WebSocket event.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewController creates a new Controller instance.
func NewController(st *store.Store, supervisor *importer.Supervisor, opts importer.Options) *Controller {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &Controller{
		store:      st,
		supervisor: supervisor,
		importOpts: opts,
		clients:    make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		decoder: decoder,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
