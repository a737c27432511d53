package importer

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"audit-log-importer/pkg/auditlog"
	"audit-log-importer/pkg/store"
)

// batchLoader flushes accumulated batches through the staging loader,
// falling back to row-at-a-time inserts when the bulk path fails. It owns
// the prepared fallback statements, released via Close on every exit path.
type batchLoader struct {
	tx      *sql.Tx
	session *Session

	templateStmt *sql.Stmt
	recordStmt   *sql.Stmt
}

func newBatchLoader(tx *sql.Tx, session *Session) *batchLoader {
	return &batchLoader{tx: tx, session: session}
}

// Flush pushes both batches into their target tables and clears them.
// Templates go first so the records batch's template ids already exist in
// the target table; template rows may repeat across batches and load with
// insert-or-ignore.
func (l *batchLoader) Flush(templates *templateBatch, records *recordBatch, prog *progressReporter) error {
	if err := l.load(store.TemplatesTable, templates, store.LoadInsertOrIgnore, &l.templateStmt); err != nil {
		return err
	}
	if err := l.load(store.RecordsTable, records, store.LoadInsert, &l.recordStmt); err != nil {
		return err
	}

	prog.snap.RecordsInserted += int64(records.Len())
	templates.Clear()
	records.Clear()
	prog.force()
	return nil
}

func (l *batchLoader) load(table string, batch store.ColumnarBatch, mode store.LoadMode, stmt **sql.Stmt) error {
	err := store.BulkLoad(l.tx, table, batch, mode)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrStagingLoad) {
		return err
	}

	// Transient load defect: recovered locally, logged, not surfaced
	slog.Warn("bulk load failed, falling back to row inserts",
		"table", table, "rows", batch.Len(), "error", err)
	return l.fallback(table, batch, mode, stmt)
}

// fallback re-inserts the same rows one at a time through a prepared
// statement, honoring cancellation between rows.
func (l *batchLoader) fallback(table string, batch store.ColumnarBatch, mode store.LoadMode, stmt **sql.Stmt) error {
	if *stmt == nil {
		cols := batch.Columns()
		verb := "INSERT INTO"
		if mode == store.LoadInsertOrIgnore {
			verb = "INSERT OR IGNORE INTO"
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
		prepared, err := l.tx.Prepare(fmt.Sprintf(
			"%s %s (%s) VALUES (%s)", verb, table, strings.Join(cols, ", "), placeholders,
		))
		if err != nil {
			return fmt.Errorf("failed to prepare fallback insert for %s: %w", table, err)
		}
		*stmt = prepared
	}

	for i := 0; i < batch.Len(); i++ {
		if l.session != nil && l.session.Canceled() {
			return auditlog.ErrCanceled
		}
		if _, err := (*stmt).Exec(batch.RowArgs(i)...); err != nil {
			return fmt.Errorf("failed to insert row into %s: %w", table, err)
		}
	}
	return nil
}

// Close releases the prepared fallback statements. Called on success and
// failure alike.
func (l *batchLoader) Close() {
	if l.templateStmt != nil {
		if err := l.templateStmt.Close(); err != nil {
			slog.Warn("failed to close template statement", "error", err)
		}
		l.templateStmt = nil
	}
	if l.recordStmt != nil {
		if err := l.recordStmt.Close(); err != nil {
			slog.Warn("failed to close record statement", "error", err)
		}
		l.recordStmt = nil
	}
}
