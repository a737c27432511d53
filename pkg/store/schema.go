package store

// schemaVersion tags the data tables. A mismatch with the stored version
// drops and recreates both tables; imported data is always reloadable from
// the source files.
const schemaVersion = 1

const schemaMeta = `
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const schemaData = `
-- One row per parsed audit log entry. record_id is assigned by the importer
-- in file order, dense over parsed records only.
CREATE TABLE IF NOT EXISTS records (
    dataset_id     TEXT NOT NULL,
    record_id      INTEGER NOT NULL,
    ts_ms          INTEGER,
    internal       INTEGER NOT NULL DEFAULT 0,
    query_id       TEXT,
    user           TEXT,
    client_addr    TEXT,
    frontend_addr  TEXT,
    db_name        TEXT,
    state          TEXT,
    error_code     TEXT,
    query_ms       INTEGER,
    cpu_ms         INTEGER,
    scan_bytes     INTEGER,
    scan_rows      INTEGER,
    return_rows    INTEGER,
    peak_mem_bytes INTEGER,
    stmt           TEXT NOT NULL,
    template_id    INTEGER NOT NULL,
    PRIMARY KEY (dataset_id, record_id)
);

-- Deduplicated statement shapes. template_id is dense per dataset starting
-- at 1, in first-seen order.
CREATE TABLE IF NOT EXISTS query_templates (
    dataset_id    TEXT NOT NULL,
    template_id   INTEGER NOT NULL,
    template      TEXT NOT NULL,
    table_name    TEXT,
    template_hash INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (dataset_id, template_id)
);
`

const dropData = `
DROP TABLE IF EXISTS records;
DROP TABLE IF EXISTS query_templates;
`

// recordColumns is the fixed column order used for batching and bulk loads.
var recordColumns = []string{
	"dataset_id", "record_id", "ts_ms", "internal", "query_id", "user",
	"client_addr", "frontend_addr", "db_name", "state", "error_code",
	"query_ms", "cpu_ms", "scan_bytes", "scan_rows", "return_rows",
	"peak_mem_bytes", "stmt", "template_id",
}

var templateColumns = []string{
	"dataset_id", "template_id", "template", "table_name", "template_hash",
}

// RecordColumns returns the column order of the records table.
func RecordColumns() []string { return recordColumns }

// TemplateColumns returns the column order of the query_templates table.
func TemplateColumns() []string { return templateColumns }

// Bulk-load target tables.
const (
	RecordsTable   = "records"
	TemplatesTable = "query_templates"
)
