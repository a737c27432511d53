// Package store manages the SQLite database holding imported audit log
// datasets and answers aggregate queries over them.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// Store owns the SQLite database. The connection is single-writer; an
// in-flight import has exclusive use of it for its transaction's duration.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database and ensures the schema is at the
// current version. A version mismatch drops and recreates the data tables.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite is single-writer; one connection avoids lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for the import pipeline, which manages
// its own transaction.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(schemaMeta); err != nil {
		return fmt.Errorf("failed to create meta table: %w", err)
	}

	var stored string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		// Fresh database
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	default:
		if v, convErr := strconv.Atoi(stored); convErr == nil && v == schemaVersion {
			// Make sure tables exist even if a previous recreate was interrupted
			if _, err := s.db.Exec(schemaData); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
			return s.ensureSecondaryIndexes()
		}
		slog.Warn("schema version mismatch, recreating data tables",
			"stored", stored, "current", schemaVersion)
		if _, err := s.db.Exec(dropData); err != nil {
			return fmt.Errorf("failed to drop outdated tables: %w", err)
		}
	}

	if _, err := s.db.Exec(schemaData); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(schemaVersion),
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return s.ensureSecondaryIndexes()
}

// DeleteDataset removes all rows of a dataset from both data tables.
// Re-import is destructive-then-reinsert, never a merge.
func (s *Store) DeleteDataset(datasetID string) error {
	if _, err := s.db.Exec(`DELETE FROM records WHERE dataset_id = ?`, datasetID); err != nil {
		return fmt.Errorf("failed to delete dataset records: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM query_templates WHERE dataset_id = ?`, datasetID); err != nil {
		return fmt.Errorf("failed to delete dataset templates: %w", err)
	}
	return nil
}

// Dataset summarizes one imported dataset.
type Dataset struct {
	ID          string `json:"id"`
	RecordCount int64  `json:"recordCount"`
	FirstTSMS   *int64 `json:"firstTsMs"`
	LastTSMS    *int64 `json:"lastTsMs"`
}

// ListDatasets returns all datasets present in the store.
func (s *Store) ListDatasets() ([]Dataset, error) {
	rows, err := s.db.Query(
		`SELECT dataset_id, COUNT(*), MIN(ts_ms), MAX(ts_ms)
		 FROM records GROUP BY dataset_id ORDER BY dataset_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	datasets := []Dataset{}
	for rows.Next() {
		var d Dataset
		if err := rows.Scan(&d.ID, &d.RecordCount, &d.FirstTSMS, &d.LastTSMS); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// DatasetStats aggregates a single dataset.
type DatasetStats struct {
	ID            string  `json:"id"`
	RecordCount   int64   `json:"recordCount"`
	TemplateCount int64   `json:"templateCount"`
	TotalQueryMS  int64   `json:"totalQueryMs"`
	AvgQueryMS    float64 `json:"avgQueryMs"`
	TotalScanRows int64   `json:"totalScanRows"`
}

// GetDatasetStats returns aggregate statistics for one dataset, or nil when
// the dataset does not exist.
func (s *Store) GetDatasetStats(datasetID string) (*DatasetStats, error) {
	stats := &DatasetStats{ID: datasetID}
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(query_ms), 0),
		        COALESCE(AVG(query_ms), 0),
		        COALESCE(SUM(scan_rows), 0)
		 FROM records WHERE dataset_id = ?`,
		datasetID,
	).Scan(&stats.RecordCount, &stats.TotalQueryMS, &stats.AvgQueryMS, &stats.TotalScanRows)
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset stats: %w", err)
	}
	if stats.RecordCount == 0 {
		return nil, nil
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM query_templates WHERE dataset_id = ?`,
		datasetID,
	).Scan(&stats.TemplateCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	return stats, nil
}

// TemplateStats groups records by stripped template.
type TemplateStats struct {
	TemplateID   int64   `json:"templateId"`
	Template     string  `json:"template"`
	TableName    string  `json:"tableName"`
	Count        int64   `json:"count"`
	TotalQueryMS int64   `json:"totalQueryMs"`
	AvgQueryMS   float64 `json:"avgQueryMs"`
	MaxQueryMS   int64   `json:"maxQueryMs"`
}

// TemplateFilter narrows and sizes a TopTemplates query.
type TemplateFilter struct {
	Limit    int    `schema:"limit"`
	MinCount int64  `schema:"minCount"`
	OrderBy  string `schema:"orderBy"` // "count" or "time"
}

// TopTemplates returns per-template aggregates for a dataset, heaviest
// first.
func (s *Store) TopTemplates(datasetID string, filter TemplateFilter) ([]TemplateStats, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	order := "total_ms DESC"
	if filter.OrderBy == "count" {
		order = "cnt DESC"
	}

	rows, err := s.db.Query(
		`SELECT t.template_id, t.template, COALESCE(t.table_name, ''),
		        COUNT(r.record_id) AS cnt,
		        COALESCE(SUM(r.query_ms), 0) AS total_ms,
		        COALESCE(AVG(r.query_ms), 0),
		        COALESCE(MAX(r.query_ms), 0)
		 FROM query_templates t
		 LEFT JOIN records r
		   ON r.dataset_id = t.dataset_id AND r.template_id = t.template_id
		 WHERE t.dataset_id = ?
		 GROUP BY t.template_id, t.template, t.table_name
		 HAVING cnt >= ?
		 ORDER BY `+order+`
		 LIMIT ?`,
		datasetID, filter.MinCount, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	stats := []TemplateStats{}
	for rows.Next() {
		var t TemplateStats
		if err := rows.Scan(&t.TemplateID, &t.Template, &t.TableName,
			&t.Count, &t.TotalQueryMS, &t.AvgQueryMS, &t.MaxQueryMS); err != nil {
			return nil, fmt.Errorf("failed to scan template stats: %w", err)
		}
		stats = append(stats, t)
	}
	return stats, rows.Err()
}

// SlowRecord is a single record in a slowest-queries listing.
type SlowRecord struct {
	RecordID    int64  `json:"recordId"`
	TimestampMS *int64 `json:"timestampMs"`
	User        string `json:"user"`
	Db          string `json:"db"`
	QueryMS     *int64 `json:"queryMs"`
	ScanRows    *int64 `json:"scanRows"`
	Stmt        string `json:"stmt"`
	TemplateID  int64  `json:"templateId"`
}

// SlowestRecords returns the slowest records of a dataset.
func (s *Store) SlowestRecords(datasetID string, limit int) ([]SlowRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT record_id, ts_ms, COALESCE(user, ''), COALESCE(db_name, ''),
		        query_ms, scan_rows, stmt, template_id
		 FROM records
		 WHERE dataset_id = ? AND query_ms IS NOT NULL
		 ORDER BY query_ms DESC
		 LIMIT ?`,
		datasetID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query slowest records: %w", err)
	}
	defer rows.Close()

	records := []SlowRecord{}
	for rows.Next() {
		var r SlowRecord
		if err := rows.Scan(&r.RecordID, &r.TimestampMS, &r.User, &r.Db,
			&r.QueryMS, &r.ScanRows, &r.Stmt, &r.TemplateID); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountDatasetRows returns the row counts of both tables for a dataset.
func (s *Store) CountDatasetRows(datasetID string) (records, templates int64, err error) {
	if err = s.db.QueryRow(
		`SELECT COUNT(*) FROM records WHERE dataset_id = ?`, datasetID,
	).Scan(&records); err != nil {
		return 0, 0, fmt.Errorf("failed to count records: %w", err)
	}
	if err = s.db.QueryRow(
		`SELECT COUNT(*) FROM query_templates WHERE dataset_id = ?`, datasetID,
	).Scan(&templates); err != nil {
		return 0, 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return records, templates, nil
}
