package normalize

import (
	"fmt"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
)

type WarningKind string

const (
	KeyCollision          WarningKind = "key_collision"
	CoercionFailed        WarningKind = "coercion_error"
	NonMonotonicTimestamp WarningKind = "non_monotonic_timestamp"
	DuplicateEvent        WarningKind = "duplicate_event"
	UnparseableTimestamp  WarningKind = "unparseable_timestamp"
)

// Warning is a non-fatal finding produced while normalizing one run. It is
// reported but never changes a judgment.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Run     string      `json:"run,omitempty"`
	Index   int         `json:"index"`
	Field   string      `json:"field,omitempty"`
	Raw     string      `json:"raw,omitempty"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

func (w Warning) String() string {
	if w.Run != "" {
		return fmt.Sprintf("%s [%s #%d] %s", w.Kind, w.Run, w.Index, w.Message)
	}
	return fmt.Sprintf("%s [#%d] %s", w.Kind, w.Index, w.Message)
}

// Tag returns a copy of ws with Run set.
func Tag(ws []Warning, run string) []Warning {
	if len(ws) == 0 {
		return nil
	}
	out := make([]Warning, len(ws))
	for i, w := range ws {
		w.Run = run
		out[i] = w
	}
	return out
}

// CoercionError is attached when an allow-listed field cannot be coerced to
// an integer. The value is left as it was.
type CoercionError struct {
	Record int
	Field  string
	Raw    artifact.Value
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("record %d: field %q: cannot coerce %s value %s to integer", e.Record, e.Field, e.Raw.Kind(), e.Raw)
}
