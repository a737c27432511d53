package importer

import (
	"audit-log-importer/pkg/auditlog"
	"audit-log-importer/pkg/store"
)

// Byte accounting is deliberately approximate: a fixed per-row overhead
// plus the two variable-length fields that dominate, doubled to approximate
// multi-byte encoding. Cheap to track, close enough to bound batch memory.
const rowOverheadBytes = 128

// recordBatch buffers parsed records column-wise until a flush threshold
// trips.
type recordBatch struct {
	datasetID string
	maxRows   int
	maxBytes  int

	approxBytes int

	recordIDs     []int64
	tsMS          []*int64
	internal      []bool
	queryIDs      []string
	users         []string
	clientAddrs   []string
	frontendAddrs []string
	dbNames       []string
	states        []string
	errorCodes    []string
	queryMS       []*int64
	cpuMS         []*int64
	scanBytes     []*int64
	scanRows      []*int64
	returnRows    []*int64
	peakMemBytes  []*int64
	stmts         []string
	templateIDs   []int64

	scratch []any
}

func newRecordBatch(datasetID string, maxRows, maxBytes int) *recordBatch {
	return &recordBatch{
		datasetID: datasetID,
		maxRows:   maxRows,
		maxBytes:  maxBytes,
		scratch:   make([]any, 0, len(store.RecordColumns())),
	}
}

func (b *recordBatch) Append(recordID int64, rec *auditlog.Record, templateID int64) {
	b.recordIDs = append(b.recordIDs, recordID)
	b.tsMS = append(b.tsMS, rec.TimestampMS)
	b.internal = append(b.internal, rec.Internal)
	b.queryIDs = append(b.queryIDs, rec.QueryID)
	b.users = append(b.users, rec.User)
	b.clientAddrs = append(b.clientAddrs, rec.ClientAddr)
	b.frontendAddrs = append(b.frontendAddrs, rec.FrontendAddr)
	b.dbNames = append(b.dbNames, rec.Db)
	b.states = append(b.states, rec.State)
	b.errorCodes = append(b.errorCodes, rec.ErrorCode)
	b.queryMS = append(b.queryMS, rec.QueryMS)
	b.cpuMS = append(b.cpuMS, rec.CPUMS)
	b.scanBytes = append(b.scanBytes, rec.ScanBytes)
	b.scanRows = append(b.scanRows, rec.ScanRows)
	b.returnRows = append(b.returnRows, rec.ReturnRows)
	b.peakMemBytes = append(b.peakMemBytes, rec.PeakMemBytes)
	b.stmts = append(b.stmts, rec.Stmt)
	b.templateIDs = append(b.templateIDs, templateID)

	b.approxBytes += rowOverheadBytes + 2*(len(rec.Stmt)+len(rec.QueryID))
}

func (b *recordBatch) ShouldFlush() bool {
	return len(b.recordIDs) >= b.maxRows || b.approxBytes >= b.maxBytes
}

// Clear empties the buffers, keeping their capacity for the next batch.
func (b *recordBatch) Clear() {
	b.recordIDs = b.recordIDs[:0]
	b.tsMS = b.tsMS[:0]
	b.internal = b.internal[:0]
	b.queryIDs = b.queryIDs[:0]
	b.users = b.users[:0]
	b.clientAddrs = b.clientAddrs[:0]
	b.frontendAddrs = b.frontendAddrs[:0]
	b.dbNames = b.dbNames[:0]
	b.states = b.states[:0]
	b.errorCodes = b.errorCodes[:0]
	b.queryMS = b.queryMS[:0]
	b.cpuMS = b.cpuMS[:0]
	b.scanBytes = b.scanBytes[:0]
	b.scanRows = b.scanRows[:0]
	b.returnRows = b.returnRows[:0]
	b.peakMemBytes = b.peakMemBytes[:0]
	b.stmts = b.stmts[:0]
	b.templateIDs = b.templateIDs[:0]
	b.approxBytes = 0
}

func (b *recordBatch) Columns() []string { return store.RecordColumns() }

func (b *recordBatch) Len() int { return len(b.recordIDs) }

func (b *recordBatch) RowArgs(i int) []any {
	b.scratch = b.scratch[:0]
	b.scratch = append(b.scratch,
		b.datasetID, b.recordIDs[i], b.tsMS[i], b.internal[i], b.queryIDs[i],
		b.users[i], b.clientAddrs[i], b.frontendAddrs[i], b.dbNames[i],
		b.states[i], b.errorCodes[i], b.queryMS[i], b.cpuMS[i],
		b.scanBytes[i], b.scanRows[i], b.returnRows[i], b.peakMemBytes[i],
		b.stmts[i], b.templateIDs[i],
	)
	return b.scratch
}

// templateBatch buffers newly seen stripped templates.
type templateBatch struct {
	datasetID string
	maxRows   int
	maxBytes  int

	approxBytes int

	templateIDs []int64
	templates   []string
	tableNames  []string
	hashes      []int64

	scratch []any
}

func newTemplateBatch(datasetID string, maxRows, maxBytes int) *templateBatch {
	return &templateBatch{
		datasetID: datasetID,
		maxRows:   maxRows,
		maxBytes:  maxBytes,
		scratch:   make([]any, 0, len(store.TemplateColumns())),
	}
}

func (b *templateBatch) Append(templateID int64, template, tableName string, hash uint64) {
	b.templateIDs = append(b.templateIDs, templateID)
	b.templates = append(b.templates, template)
	b.tableNames = append(b.tableNames, tableName)
	b.hashes = append(b.hashes, int64(hash))

	b.approxBytes += rowOverheadBytes + 2*len(template)
}

func (b *templateBatch) ShouldFlush() bool {
	return len(b.templateIDs) >= b.maxRows || b.approxBytes >= b.maxBytes
}

func (b *templateBatch) Clear() {
	b.templateIDs = b.templateIDs[:0]
	b.templates = b.templates[:0]
	b.tableNames = b.tableNames[:0]
	b.hashes = b.hashes[:0]
	b.approxBytes = 0
}

func (b *templateBatch) Columns() []string { return store.TemplateColumns() }

func (b *templateBatch) Len() int { return len(b.templateIDs) }

func (b *templateBatch) RowArgs(i int) []any {
	b.scratch = b.scratch[:0]
	b.scratch = append(b.scratch,
		b.datasetID, b.templateIDs[i], b.templates[i], b.tableNames[i], b.hashes[i],
	)
	return b.scratch
}
