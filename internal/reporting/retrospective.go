// Package reporting aggregates observed gateway calls into retrospective
// summaries: volume per flow, business failures per return code, latency
// coverage. The demo server serves these; nothing here persists anything.
package reporting

import (
	"sync"
	"time"
)

// CallEntry is one gateway call as observed by the connector layer.
type CallEntry struct {
	Timestamp  time.Time
	Connector  string
	Flow       string // authorize, sync, refund, refund_sync
	ReturnCode string // gateway return code, or empty for flat refund payloads
	Status     string // resulting attempt/refund status
	HTTPStatus int
	LatencyMs  int64
}

// CallLog is a bounded in-memory record of gateway calls, safe for
// concurrent append.
type CallLog struct {
	mu      sync.Mutex
	entries []CallEntry
	limit   int
}

// NewCallLog keeps at most limit entries, discarding the oldest.
func NewCallLog(limit int) *CallLog {
	if limit <= 0 {
		limit = 1024
	}
	return &CallLog{limit: limit}
}

// Append records a call.
func (l *CallLog) Append(entry CallEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

// Snapshot copies the current entries.
func (l *CallLog) Snapshot() []CallEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]CallEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Report summarizes a window of gateway calls.
type Report struct {
	TotalCalls       int              `json:"total_calls"`
	BusinessFailures int              `json:"business_failures"`
	CallsByFlow      map[string]int   `json:"calls_by_flow"`
	ByReturnCode     map[string]int   `json:"by_return_code"`
	StatusBreakdown  map[string]int   `json:"status_breakdown"`
	DateFrom         time.Time        `json:"date_from"`
	DateTo           time.Time        `json:"date_to"`
	WindowDuration   time.Duration    `json:"window_duration"`
}

// BuildReport analyzes a slice of call entries.
func BuildReport(entries []CallEntry) *Report {
	report := &Report{
		CallsByFlow:     make(map[string]int),
		ByReturnCode:    make(map[string]int),
		StatusBreakdown: make(map[string]int),
	}
	if len(entries) == 0 {
		return report
	}

	report.DateFrom = entries[0].Timestamp
	report.DateTo = entries[0].Timestamp
	for _, entry := range entries {
		report.TotalCalls++
		if entry.Timestamp.Before(report.DateFrom) {
			report.DateFrom = entry.Timestamp
		}
		if entry.Timestamp.After(report.DateTo) {
			report.DateTo = entry.Timestamp
		}
		if entry.Flow != "" {
			report.CallsByFlow[entry.Flow]++
		}
		if entry.ReturnCode != "" {
			report.ByReturnCode[entry.ReturnCode]++
			if entry.ReturnCode != "SUCCESS" {
				report.BusinessFailures++
			}
		}
		if entry.Status != "" {
			report.StatusBreakdown[entry.Status]++
		}
	}
	report.WindowDuration = report.DateTo.Sub(report.DateFrom)
	return report
}
