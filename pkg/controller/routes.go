package controller

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the Gorilla mux router.
func (c *Controller) SetupRouter() *mux.Router {
	r := mux.NewRouter()

	r.Use(loggingMiddleware)

	// Import lifecycle
	r.HandleFunc("/api/imports", c.HandleStartImport).Methods("POST")
	r.HandleFunc("/api/imports/active", c.HandleCancelImport).Methods("DELETE")

	// Query surface over ingested datasets
	r.HandleFunc("/api/datasets", c.HandleListDatasets).Methods("GET")
	r.HandleFunc("/api/datasets/{id}/stats", c.HandleDatasetStats).Methods("GET")
	r.HandleFunc("/api/datasets/{id}/templates", c.HandleTopTemplates).Methods("GET")
	r.HandleFunc("/api/datasets/{id}/slowest", c.HandleSlowestRecords).Methods("GET")

	// Progress and terminal results stream
	r.HandleFunc("/api/ws", c.HandleWebSocket).Methods("GET")

	return r
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		next.ServeHTTP(w, r)

		slog.Info(fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
	})
}
