package auditlog

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Audit entries look like:
//
//	2024-03-01 10:15:02,123 [query] |Client=10.0.0.8:52344|User=etl|Db=sales|
//	State=EOF|ErrorCode=0|Time=532|ScanBytes=1048576|ScanRows=50000|
//	ReturnRows=42|CpuCostNs=120000000|MemCostBytes=8388608|QueryId=ab-12|
//	IsInternal=false|feIp=10.0.0.1|Stmt=SELECT ...
//
// The Stmt value runs to the end of the block and may span multiple lines.

var headerRegex = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})[,.](\d{3})`)

const timestampLayout = "2006-01-02 15:04:05"

// ParseRecord parses one raw audit log block. Returns nil when the block
// carries no usable SQL statement; callers count those as bad records.
func ParseRecord(block string) *Record {
	rec := &Record{}

	m := headerRegex.FindStringSubmatch(block)
	if m != nil {
		if t, err := time.Parse(timestampLayout, m[1]); err == nil {
			millis, _ := strconv.ParseInt(m[2], 10, 64)
			ts := t.UTC().UnixMilli() + millis
			rec.TimestampMS = &ts
		}
	}

	// Stmt is parsed separately because its value may contain '|'
	body := block
	stmtIdx := strings.Index(body, "|Stmt=")
	if stmtIdx == -1 {
		return nil
	}
	rec.Stmt = strings.TrimSpace(body[stmtIdx+len("|Stmt="):])
	if rec.Stmt == "" {
		return nil
	}
	rec.Stmt = TruncateStmt(rec.Stmt)
	body = body[:stmtIdx]

	for _, field := range strings.Split(body, "|") {
		eq := strings.Index(field, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(field[:eq])
		value := strings.TrimSpace(field[eq+1:])

		switch key {
		case "QueryId":
			rec.QueryID = value
		case "User":
			rec.User = value
		case "Client":
			rec.ClientAddr = value
		case "feIp":
			rec.FrontendAddr = value
		case "Db":
			rec.Db = value
		case "State":
			rec.State = value
		case "ErrorCode":
			rec.ErrorCode = value
		case "IsInternal":
			rec.Internal = value == "true"
		case "Time":
			rec.QueryMS = parseInt64(value)
		case "CpuCostNs":
			if ns := parseInt64(value); ns != nil {
				ms := *ns / int64(time.Millisecond)
				rec.CPUMS = &ms
			}
		case "ScanBytes":
			rec.ScanBytes = parseInt64(value)
		case "ScanRows":
			rec.ScanRows = parseInt64(value)
		case "ReturnRows":
			rec.ReturnRows = parseInt64(value)
		case "MemCostBytes":
			rec.PeakMemBytes = parseInt64(value)
		}
	}

	return rec
}

func parseInt64(s string) *int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
