package store

import (
	"database/sql"
	"errors"
	"testing"
)

type fakeBatch struct {
	cols []string
	rows [][]any
}

func (f *fakeBatch) Columns() []string   { return f.cols }
func (f *fakeBatch) Len() int            { return len(f.rows) }
func (f *fakeBatch) RowArgs(i int) []any { return f.rows[i] }

func templateRows(dataset string, ids ...int64) *fakeBatch {
	b := &fakeBatch{cols: TemplateColumns()}
	for _, id := range ids {
		b.rows = append(b.rows, []any{dataset, id, "SELECT ?", "t", int64(0)})
	}
	return b
}

func begin(t *testing.T, s *Store) *sql.Tx {
	t.Helper()
	tx, err := s.db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestBulkLoadInsert(t *testing.T) {
	s, _ := newTestStore(t)
	tx := begin(t, s)

	if err := BulkLoad(tx, TemplatesTable, templateRows("ds1", 1, 2, 3), LoadInsert); err != nil {
		t.Fatalf("BulkLoad: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	_, templates, err := s.CountDatasetRows("ds1")
	if err != nil {
		t.Fatal(err)
	}
	if templates != 3 {
		t.Errorf("templates = %d, want 3", templates)
	}

	// No staging tables left behind
	var stray int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name LIKE 'staging_%'`,
	).Scan(&stray); err != nil {
		t.Fatal(err)
	}
	if stray != 0 {
		t.Errorf("%d staging tables left behind", stray)
	}
}

func TestBulkLoadChunksLargeBatches(t *testing.T) {
	s, _ := newTestStore(t)
	tx := begin(t, s)

	// Enough rows to require several chunked staging inserts
	ids := make([]int64, 600)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	if err := BulkLoad(tx, TemplatesTable, templateRows("ds1", ids...), LoadInsert); err != nil {
		t.Fatalf("BulkLoad: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	_, templates, err := s.CountDatasetRows("ds1")
	if err != nil {
		t.Fatal(err)
	}
	if templates != 600 {
		t.Errorf("templates = %d, want 600", templates)
	}
}

func TestBulkLoadInsertOrIgnore(t *testing.T) {
	s, _ := newTestStore(t)
	tx := begin(t, s)

	if err := BulkLoad(tx, TemplatesTable, templateRows("ds1", 1, 2), LoadInsert); err != nil {
		t.Fatal(err)
	}
	// Re-loading overlapping template ids is benign in ignore mode
	if err := BulkLoad(tx, TemplatesTable, templateRows("ds1", 2, 3), LoadInsertOrIgnore); err != nil {
		t.Fatalf("BulkLoad ignore mode: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	_, templates, err := s.CountDatasetRows("ds1")
	if err != nil {
		t.Fatal(err)
	}
	if templates != 3 {
		t.Errorf("templates = %d, want 3", templates)
	}
}

func TestBulkLoadConflictIsHardFailure(t *testing.T) {
	s, _ := newTestStore(t)
	tx := begin(t, s)
	defer tx.Rollback()

	if err := BulkLoad(tx, TemplatesTable, templateRows("ds1", 1), LoadInsert); err != nil {
		t.Fatal(err)
	}
	err := BulkLoad(tx, TemplatesTable, templateRows("ds1", 1), LoadInsert)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	// The INSERT-from-staging step failed, not the staging load
	if errors.Is(err, ErrStagingLoad) {
		t.Errorf("conflict misclassified as staging failure: %v", err)
	}
}

func TestBulkLoadStagingFailureClassified(t *testing.T) {
	s, _ := newTestStore(t)
	tx := begin(t, s)
	defer tx.Rollback()

	// An unquotable column name makes the staging CREATE fail
	bad := &fakeBatch{
		cols: []string{"select"},
		rows: [][]any{{int64(1)}},
	}
	err := BulkLoad(tx, TemplatesTable, bad, LoadInsert)
	if !errors.Is(err, ErrStagingLoad) {
		t.Fatalf("expected ErrStagingLoad, got %v", err)
	}
}

func TestBulkLoadEmptyBatch(t *testing.T) {
	s, _ := newTestStore(t)
	tx := begin(t, s)
	defer tx.Rollback()

	if err := BulkLoad(tx, TemplatesTable, templateRows("ds1"), LoadInsert); err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}
}
