// Package auditlog parses frontend audit logs into structured records.
package auditlog

// StmtMaxChars is the cap on stored statement text. Statements longer than
// this are cut at the cap and TruncationMarker is appended.
const StmtMaxChars = 4096

// TruncationMarker is appended to statement text cut at StmtMaxChars.
const TruncationMarker = " ...[truncated]"

// Record is one parsed audit log entry. Numeric metrics are pointers so a
// missing field is distinguishable from zero.
type Record struct {
	TimestampMS  *int64 `json:"timestampMs"`
	Internal     bool   `json:"internal"`
	QueryID      string `json:"queryId"`
	User         string `json:"user"`
	ClientAddr   string `json:"clientAddr"`
	FrontendAddr string `json:"frontendAddr"`
	Db           string `json:"db"`
	State        string `json:"state"`
	ErrorCode    string `json:"errorCode"`
	QueryMS      *int64 `json:"queryMs"`
	CPUMS        *int64 `json:"cpuMs"`
	ScanBytes    *int64 `json:"scanBytes"`
	ScanRows     *int64 `json:"scanRows"`
	ReturnRows   *int64 `json:"returnRows"`
	PeakMemBytes *int64 `json:"peakMemBytes"`
	Stmt         string `json:"stmt"`
}

// TruncateStmt enforces the statement cap. Text at or under the cap is
// returned unchanged.
func TruncateStmt(stmt string) string {
	runes := []rune(stmt)
	if len(runes) <= StmtMaxChars {
		return stmt
	}
	return string(runes[:StmtMaxChars]) + TruncationMarker
}
