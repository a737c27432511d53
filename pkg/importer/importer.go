// Package importer ingests audit log files into the store: streaming
// parse, template deduplication, columnar batching, bulk-load staging, and
// all-or-nothing commit semantics with index lifecycle management around
// the whole operation.
package importer

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"audit-log-importer/pkg/auditlog"
	"audit-log-importer/pkg/sqlnorm"
)

// Store is the slice of the store the pipeline needs: the connection for
// its transaction, dataset replacement, and index lifecycle.
type Store interface {
	DB() *sql.DB
	DeleteDataset(datasetID string) error
	DropSecondaryIndexes() error
	RebuildSecondaryIndexes() error
}

// ErrCanceled marks an import aborted by its session's cancellation
// handle. Cancellation still drives the full rollback and index rebuild
// sequence.
var ErrCanceled = auditlog.ErrCanceled

// Result is the terminal outcome of a successful import.
type Result struct {
	RecordsInserted int64 `json:"recordsInserted"`
	BadRecords      int64 `json:"badRecords"`
}

// Options tunes the batching thresholds. Zero values use the defaults.
type Options struct {
	BatchRows  int
	BatchBytes int
}

const (
	defaultBatchRows  = 10000
	defaultBatchBytes = 16 << 20
)

// Importer runs imports against one store.
type Importer struct {
	store      Store
	batchRows  int
	batchBytes int
	progress   ProgressFunc
}

// New creates an Importer. progress may be nil.
func New(st Store, opts Options, progress ProgressFunc) *Importer {
	if opts.BatchRows <= 0 {
		opts.BatchRows = defaultBatchRows
	}
	if opts.BatchBytes <= 0 {
		opts.BatchBytes = defaultBatchBytes
	}
	return &Importer{
		store:      st,
		batchRows:  opts.BatchRows,
		batchBytes: opts.BatchBytes,
		progress:   progress,
	}
}

// Run imports one file into the dataset, replacing any prior rows of that
// dataset. Secondary indexes are dropped before the load and rebuilt
// exactly once afterward, whatever the outcome. The first fatal error is
// always the one reported; cleanup-phase failures are appended as labeled
// context, never replacing it.
func (im *Importer) Run(session *Session, datasetID, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	prog := newProgressReporter(im.progress)
	if fi, err := f.Stat(); err == nil {
		prog.snap.BytesTotal = fi.Size()
	}

	runErr := im.runPipeline(session, datasetID, f, prog)

	// Rebuild always happens, success or failure. Indexes left dropped
	// would silently degrade every subsequent query.
	rebuildErr := im.store.RebuildSecondaryIndexes()

	prog.force()

	switch {
	case runErr != nil && rebuildErr != nil:
		return nil, fmt.Errorf("%w; finalize failure: index rebuild failed: %v", runErr, rebuildErr)
	case runErr != nil:
		return nil, runErr
	case rebuildErr != nil:
		return nil, fmt.Errorf("index rebuild failed: %w", rebuildErr)
	}

	slog.Info("import complete", "dataset", datasetID,
		"inserted", prog.snap.RecordsInserted, "bad", prog.snap.BadRecords)
	return &Result{
		RecordsInserted: prog.snap.RecordsInserted,
		BadRecords:      prog.snap.BadRecords,
	}, nil
}

// runPipeline covers drop-indexes through commit/rollback. Index rebuild is
// the caller's responsibility so it runs on every path.
func (im *Importer) runPipeline(session *Session, datasetID string, f *os.File, prog *progressReporter) error {
	if err := im.store.DropSecondaryIndexes(); err != nil {
		return fmt.Errorf("failed to drop indexes: %w", err)
	}

	if err := im.store.DeleteDataset(datasetID); err != nil {
		return err
	}

	tx, err := im.store.DB().Begin()
	if err != nil {
		// No transaction exists, so there is nothing to roll back
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	loader := newBatchLoader(tx, session)
	defer loader.Close()

	if err := im.stream(session, datasetID, f, loader, prog); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "dataset", datasetID, "error", rbErr)
			return fmt.Errorf("%w; rollback also failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// stream is the parse/dedupe/accumulate/flush loop inside the open
// transaction.
func (im *Importer) stream(session *Session, datasetID string, f *os.File, loader *batchLoader, prog *progressReporter) error {
	src := auditlog.NewBlockSource(f, session, func(n int64) {
		prog.snap.BytesRead = n
	})

	dedup := newTemplateDedup()
	records := newRecordBatch(datasetID, im.batchRows, im.batchBytes)
	templates := newTemplateBatch(datasetID, im.batchRows, im.batchBytes)

	var nextRecordID int64

	for {
		block, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		rec := auditlog.ParseRecord(block)
		if rec == nil {
			// Bad records are tolerated and counted; they consume no id
			prog.snap.BadRecords++
			prog.maybeEmit()
			continue
		}

		template := sqlnorm.Normalize(rec.Stmt)
		templateID, inserted := dedup.Resolve(template)
		if inserted {
			templates.Append(templateID, template, sqlnorm.GuessTable(rec.Stmt), sqlnorm.Hash(template))
		}

		records.Append(nextRecordID, rec, templateID)
		nextRecordID++
		prog.snap.RecordsParsed++

		if records.ShouldFlush() || templates.ShouldFlush() {
			if err := loader.Flush(templates, records, prog); err != nil {
				return err
			}
		}
		prog.maybeEmit()
	}

	// Remainder after stream exhaustion
	return loader.Flush(templates, records, prog)
}
