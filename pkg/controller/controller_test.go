package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audit-log-importer/pkg/importer"
	"audit-log-importer/pkg/store"
)

func newTestController(t *testing.T) (*Controller, http.Handler) {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	c := NewController(st, importer.NewSupervisor(), importer.Options{})
	return c, c.SetupRouter()
}

func entry(sec int, user, stmt string) string {
	return fmt.Sprintf(
		"2024-03-01 10:00:%02d,000 [query] |Client=10.0.0.1:5050|User=%s|Db=sales|State=EOF|ErrorCode=0|Time=%d|QueryId=q%02d|IsInternal=false|feIp=10.0.0.9|Stmt=%s\n",
		sec, user, 10+sec, sec, stmt)
}

func writeLog(t *testing.T, entries ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.log")
	if err := os.WriteFile(path, []byte(strings.Join(entries, "")), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// importFixture runs one import to completion on the controller's own
// pipeline, bypassing the async handler.
func importFixture(t *testing.T, c *Controller, dataset string) {
	t.Helper()
	path := writeLog(t,
		entry(0, "alice", "SELECT * FROM orders WHERE id = 1"),
		entry(1, "bob", "SELECT * FROM orders WHERE id = 2"),
		entry(2, "carol", "INSERT INTO audit_trail (a) VALUES (9)"),
	)
	im := importer.New(c.store, c.importOpts, nil)
	if _, err := im.Run(c.supervisor.Begin(), dataset, path); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
}

func doRequest(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestStartImportValidation(t *testing.T) {
	_, h := newTestController(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"missing dataset", `{"path": "/tmp/x.log"}`},
		{"missing path", `{"dataset": "prod"}`},
		{"nonexistent path", `{"dataset": "prod", "path": "/no/such/file.log"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, h, "POST", "/api/imports", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", w.Code)
			}
		})
	}
}

func TestStartImportAccepted(t *testing.T) {
	c, h := newTestController(t)
	path := writeLog(t, entry(0, "alice", "SELECT 1"))

	body := fmt.Sprintf(`{"dataset": "prod", "path": %q}`, path)
	w := doRequest(t, h, "POST", "/api/imports", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["status"] != "started" || resp["dataset"] != "prod" {
		t.Errorf("Unexpected response: %v", resp)
	}

	// The handler spawned a background import; cancel it so it cannot
	// outlive the test store.
	c.supervisor.CancelActive()
}

func TestCancelImportWithoutActive(t *testing.T) {
	_, h := newTestController(t)

	w := doRequest(t, h, "DELETE", "/api/imports/active", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestListDatasets(t *testing.T) {
	c, h := newTestController(t)
	importFixture(t, c, "prod")
	importFixture(t, c, "staging")

	w := doRequest(t, h, "GET", "/api/datasets", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var datasets []store.Dataset
	if err := json.Unmarshal(w.Body.Bytes(), &datasets); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(datasets) != 2 {
		t.Errorf("Expected 2 datasets, got %d", len(datasets))
	}
}

func TestDatasetStats(t *testing.T) {
	c, h := newTestController(t)
	importFixture(t, c, "prod")

	w := doRequest(t, h, "GET", "/api/datasets/prod/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats store.DatasetStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.RecordCount != 3 {
		t.Errorf("Expected 3 records, got %d", stats.RecordCount)
	}

	w = doRequest(t, h, "GET", "/api/datasets/nope/stats", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown dataset, got %d", w.Code)
	}
}

func TestTopTemplatesFilter(t *testing.T) {
	c, h := newTestController(t)
	importFixture(t, c, "prod")

	w := doRequest(t, h, "GET", "/api/datasets/prod/templates?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats []store.TemplateStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(stats) != 1 {
		t.Errorf("Expected 1 template with limit=1, got %d", len(stats))
	}
}

func TestSlowestRecords(t *testing.T) {
	c, h := newTestController(t)
	importFixture(t, c, "prod")

	w := doRequest(t, h, "GET", "/api/datasets/prod/slowest?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var records []store.SlowRecord
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	// entry() ramps Time with the second, so the latest entry is slowest.
	if records[0].QueryMS == nil || records[1].QueryMS == nil {
		t.Fatal("Expected query times on both records")
	}
	if *records[0].QueryMS < *records[1].QueryMS {
		t.Errorf("Records not ordered by query time: %d before %d",
			*records[0].QueryMS, *records[1].QueryMS)
	}
}
