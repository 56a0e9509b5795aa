package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/diff"
)

type TraceResult struct {
	Events   []diff.Event
	Warnings []Warning
}

// Timestamps written by the pipeline are ISO-8601 without a zone; the zoned
// layouts cover traces produced elsewhere.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// Trace strips timestamps and keeps order. Events are not deduplicated;
// integrity problems are reported as warnings only.
func Trace(events []artifact.TraceEvent) TraceResult {
	res := TraceResult{Events: make([]diff.Event, len(events))}

	seen := make(map[string]int, len(events))
	var prev time.Time
	havePrev := false

	for i, e := range events {
		ev := diff.Event{Source: e.Source, Type: e.Type, Fields: e.Fields.Clone()}
		res.Events[i] = ev

		if e.Timestamp == "" {
			continue
		}

		key := e.Timestamp + "\x00" + ev.Shape().Canonical()
		if first, ok := seen[key]; ok {
			res.Warnings = append(res.Warnings, Warning{
				Kind:    DuplicateEvent,
				Index:   i,
				Field:   e.Type,
				Raw:     e.Timestamp,
				Message: fmt.Sprintf("event %q duplicates event %d at %s", e.Type, first, e.Timestamp),
			})
		} else {
			seen[key] = i
		}

		ts, err := parseTimestamp(e.Timestamp)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{
				Kind:    UnparseableTimestamp,
				Index:   i,
				Raw:     e.Timestamp,
				Message: err.Error(),
				Err:     err,
			})
			continue
		}
		if havePrev && ts.Before(prev) {
			res.Warnings = append(res.Warnings, Warning{
				Kind:    NonMonotonicTimestamp,
				Index:   i,
				Field:   e.Type,
				Raw:     e.Timestamp,
				Message: fmt.Sprintf("timestamp %s is earlier than the previous event's %s", e.Timestamp, prev.Format(time.RFC3339Nano)),
			})
		}
		prev = ts
		havePrev = true
	}
	return res
}

func parseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// epoch seconds
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(f)
		return time.Unix(sec, int64((f-float64(sec))*1e9)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
