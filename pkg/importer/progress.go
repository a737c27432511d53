package importer

import "time"

// Snapshot is one progress update of an in-flight import.
type Snapshot struct {
	BytesRead       int64 `json:"bytesRead"`
	BytesTotal      int64 `json:"bytesTotal"`
	RecordsParsed   int64 `json:"recordsParsed"`
	RecordsInserted int64 `json:"recordsInserted"`
	BadRecords      int64 `json:"badRecords"`
}

// ProgressFunc receives progress snapshots. May be nil.
type ProgressFunc func(Snapshot)

// progressInterval is the minimum wall time between unforced emissions.
const progressInterval = 200 * time.Millisecond

// progressReporter rate-limits emission frequency. Forced emits (after a
// flush, at import end) always go out.
type progressReporter struct {
	emit ProgressFunc
	last time.Time
	snap Snapshot
}

func newProgressReporter(emit ProgressFunc) *progressReporter {
	return &progressReporter{emit: emit}
}

func (p *progressReporter) maybeEmit() {
	if p.emit == nil {
		return
	}
	now := time.Now()
	if now.Sub(p.last) < progressInterval {
		return
	}
	p.last = now
	p.emit(p.snap)
}

func (p *progressReporter) force() {
	if p.emit == nil {
		return
	}
	p.last = time.Now()
	p.emit(p.snap)
}
