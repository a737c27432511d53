package store

import (
	"errors"
	"fmt"
	"log/slog"
)

// Secondary indexes over records. Disposable: dropped before every bulk
// import and rebuilt afterward, success or failure.
var secondaryIndexes = []struct {
	name string
	ddl  string
}{
	{
		name: "idx_records_ts",
		ddl:  "CREATE INDEX IF NOT EXISTS idx_records_ts ON records(dataset_id, ts_ms)",
	},
	{
		name: "idx_records_template",
		ddl:  "CREATE INDEX IF NOT EXISTS idx_records_template ON records(dataset_id, template_id)",
	},
}

// DropSecondaryIndexes drops all secondary indexes. Dropping an index that
// does not exist is a no-op.
func (s *Store) DropSecondaryIndexes() error {
	var errs []error
	for _, idx := range secondaryIndexes {
		if _, err := s.db.Exec("DROP INDEX IF EXISTS " + idx.name); err != nil {
			slog.Error("failed to drop index", "index", idx.name, "error", err)
			errs = append(errs, fmt.Errorf("drop %s: %w", idx.name, err))
		}
	}
	return errors.Join(errs...)
}

// RebuildSecondaryIndexes recreates all secondary indexes. Each failure is
// logged; the combined error is returned so the caller can decide whether
// it is fatal.
func (s *Store) RebuildSecondaryIndexes() error {
	var errs []error
	for _, idx := range secondaryIndexes {
		if _, err := s.db.Exec(idx.ddl); err != nil {
			slog.Error("failed to rebuild index", "index", idx.name, "error", err)
			errs = append(errs, fmt.Errorf("rebuild %s: %w", idx.name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) ensureSecondaryIndexes() error {
	if err := s.RebuildSecondaryIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
