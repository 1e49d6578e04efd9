package kinship

import (
	"time"

	"github.com/dan-solli/kinship/pkg/trace"
)

// OperationTrace captures timing for one tree operation.
type OperationTrace struct {
	Spans           []Span `json:"spans"`
	TotalDurationMs int64  `json:"totalDurationMs"`
}

// Span is a single timed stage within an operation.
// Stage names are stable:
//   - "fetch": HTTP round trip to the backend
//   - "reconcile": graph replace, merge or live apply
//   - "cache": snapshot save or load
//   - "layout": layout pass
type Span struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"durationMs"`
	OK         bool   `json:"ok"`

	// ErrorType is the ClassifyError bucket when OK is false
	ErrorType string `json:"errorType,omitempty"`

	// Example keys: "nodes", "unresolved", "incoming", "placements"
	Counters map[string]int64 `json:"counters,omitempty"`
}

func newTrace() *OperationTrace {
	return &OperationTrace{
		Spans: make([]Span, 0),
	}
}

func (t *OperationTrace) addSpan(span Span) {
	t.Spans = append(t.Spans, span)
	t.TotalDurationMs += span.DurationMs
}

// record converts the trace into an exportable record.
func (t *OperationTrace) record(id, operation string, start time.Time, err error, refs map[string]string) *trace.TraceRecord {
	rec := &trace.TraceRecord{
		Timestamp:   start,
		OperationID: id,
		Operation:   operation,
		DurationMs:  time.Since(start).Milliseconds(),
		Status:      "success",
		Spans:       make([]trace.SpanRecord, 0, len(t.Spans)),
		Refs:        refs,
	}
	if err != nil {
		rec.Status = "error"
		rec.ErrorType = ClassifyError(err)
	}
	for _, s := range t.Spans {
		rec.Spans = append(rec.Spans, trace.SpanRecord{
			Name:       s.Name,
			DurationMs: s.DurationMs,
			OK:         s.OK,
			ErrorType:  s.ErrorType,
			Counters:   s.Counters,
		})
	}
	return rec
}

// spanTimer measures one span
type spanTimer struct {
	name  string
	start time.Time
	trace *OperationTrace
}

func newSpanTimer(name string, trace *OperationTrace) *spanTimer {
	return &spanTimer{name: name, start: time.Now(), trace: trace}
}

// finish records the span. A nil err means success.
func (st *spanTimer) finish(err error, counters map[string]int64) {
	if st.trace == nil {
		return
	}
	span := Span{
		Name:       st.name,
		DurationMs: time.Since(st.start).Milliseconds(),
		OK:         err == nil,
		Counters:   counters,
	}
	if err != nil {
		span.ErrorType = ClassifyError(err)
	}
	st.trace.addSpan(span)
}
