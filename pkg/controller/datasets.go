package controller

import (
	"net/http"
	"strconv"

	"audit-log-importer/pkg/store"

	"github.com/gorilla/mux"
)

// HandleListDatasets returns all datasets present in the store.
func (c *Controller) HandleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := c.store.ListDatasets()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, datasets)
}

// HandleDatasetStats returns aggregate statistics for one dataset.
func (c *Controller) HandleDatasetStats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	stats, err := c.store.GetDatasetStats(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats == nil {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleTopTemplates returns per-template aggregates, heaviest first.
// Filter options come from the query string.
func (c *Controller) HandleTopTemplates(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var filter store.TemplateFilter
	if err := c.decoder.Decode(&filter, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter: "+err.Error())
		return
	}

	stats, err := c.store.TopTemplates(id, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleSlowestRecords returns the slowest records of a dataset.
func (c *Controller) HandleSlowestRecords(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	records, err := c.store.SlowestRecords(id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}
