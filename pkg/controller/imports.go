package controller

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"audit-log-importer/pkg/importer"
)

// StartImportRequest is the body of POST /api/imports.
type StartImportRequest struct {
	Dataset string `json:"dataset"`
	Path    string `json:"path"`
}

// HandleStartImport starts an import in the background. Any import already
// in flight is superseded: its session is canceled and it fails out through
// its own rollback path.
func (c *Controller) HandleStartImport(w http.ResponseWriter, r *http.Request) {
	var req StartImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Dataset == "" || req.Path == "" {
		writeError(w, http.StatusBadRequest, "dataset and path are required")
		return
	}
	if _, err := os.Stat(req.Path); err != nil {
		writeError(w, http.StatusBadRequest, "cannot read "+req.Path)
		return
	}

	session := c.supervisor.Begin()
	go c.runImport(session, req.Dataset, req.Path)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"dataset": req.Dataset,
	})
}

// HandleCancelImport cancels the active import, if any.
func (c *Controller) HandleCancelImport(w http.ResponseWriter, r *http.Request) {
	if !c.supervisor.CancelActive() {
		writeError(w, http.StatusNotFound, "no active import")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceling"})
}

// runImport drives one import to completion and broadcasts its progress and
// terminal result.
func (c *Controller) runImport(session *importer.Session, dataset, path string) {
	im := importer.New(c.store, c.importOpts, func(snap importer.Snapshot) {
		c.broadcast("importProgress", snap)
	})

	result, err := im.Run(session, dataset, path)
	if err != nil {
		if errors.Is(err, importer.ErrCanceled) {
			slog.Info("import canceled", "dataset", dataset)
		} else {
			slog.Error("import failed", "dataset", dataset, "error", err)
		}
		c.broadcast("importError", map[string]string{
			"dataset": dataset,
			"error":   err.Error(),
		})
		return
	}

	c.broadcast("importComplete", map[string]any{
		"dataset":         dataset,
		"recordsInserted": result.RecordsInserted,
		"badRecords":      result.BadRecords,
	})
}
