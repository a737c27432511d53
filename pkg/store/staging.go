package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// LoadMode selects how rows move from staging into the target table.
type LoadMode int

const (
	// LoadInsert inserts all rows; conflicts are errors.
	LoadInsert LoadMode = iota
	// LoadInsertOrIgnore skips rows whose primary key already exists.
	// Template batches use this: the same template may be re-staged
	// benignly across batches.
	LoadInsertOrIgnore
)

// ErrStagingLoad marks a failure of the bulk columnar load into the staging
// table. Callers recover from it by re-inserting the batch row at a time;
// any other BulkLoad error is a hard failure of the flush.
var ErrStagingLoad = errors.New("staging load failed")

// ColumnarBatch is a set of same-length columns representing many rows.
type ColumnarBatch interface {
	Columns() []string
	Len() int
	// RowArgs returns row i's values in column order. The returned slice
	// may be reused between calls.
	RowArgs(i int) []any
}

// SQLite's default host-parameter limit; multi-row inserts are chunked so a
// single statement never exceeds it.
const maxHostParams = 999

// BulkLoad materializes the batch in a uniquely named staging table, moves
// it into the target with one set-based INSERT, then drops the staging
// table. A failure while creating or filling staging is reported as
// ErrStagingLoad; a failure of the INSERT-from-staging step propagates
// as-is. A failed staging drop is logged and swallowed.
func BulkLoad(tx *sql.Tx, target string, batch ColumnarBatch, mode LoadMode) error {
	if batch.Len() == 0 {
		return nil
	}

	cols := batch.Columns()
	staging := "staging_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	if _, err := tx.Exec(fmt.Sprintf(
		"CREATE TABLE %s (%s)", staging, strings.Join(cols, ", "),
	)); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrStagingLoad, staging, err)
	}

	if err := fillStaging(tx, staging, batch); err != nil {
		dropStaging(tx, staging)
		return fmt.Errorf("%w: %v", ErrStagingLoad, err)
	}

	verb := "INSERT INTO"
	if mode == LoadInsertOrIgnore {
		verb = "INSERT OR IGNORE INTO"
	}
	colList := strings.Join(cols, ", ")
	_, err := tx.Exec(fmt.Sprintf(
		"%s %s (%s) SELECT %s FROM %s", verb, target, colList, colList, staging,
	))

	dropStaging(tx, staging)

	if err != nil {
		return fmt.Errorf("failed to move staging into %s: %w", target, err)
	}
	return nil
}

// fillStaging inserts the batch with chunked multi-row statements, keeping
// each statement under the host-parameter limit.
func fillStaging(tx *sql.Tx, staging string, batch ColumnarBatch) error {
	cols := batch.Columns()
	rowsPerStmt := maxHostParams / len(cols)
	if rowsPerStmt < 1 {
		rowsPerStmt = 1
	}

	placeholderRow := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"
	colList := strings.Join(cols, ", ")

	for start := 0; start < batch.Len(); start += rowsPerStmt {
		end := start + rowsPerStmt
		if end > batch.Len() {
			end = batch.Len()
		}
		n := end - start

		placeholders := strings.TrimSuffix(strings.Repeat(placeholderRow+",", n), ",")
		args := make([]any, 0, n*len(cols))
		for i := start; i < end; i++ {
			args = append(args, batch.RowArgs(i)...)
		}

		if _, err := tx.Exec(fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES %s", staging, colList, placeholders,
		), args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", staging, err)
		}
	}
	return nil
}

// dropStaging is best effort: a stray staging table does not corrupt the
// target data.
func dropStaging(tx *sql.Tx, staging string) {
	if _, err := tx.Exec("DROP TABLE IF EXISTS " + staging); err != nil {
		slog.Warn("failed to drop staging table", "table", staging, "error", err)
	}
}
