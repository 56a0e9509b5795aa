package diff

import "github.com/awmpietro/golang-trace-explainability-case/internal/artifact"

// Event is a trace event with its timestamp stripped.
type Event struct {
	Source string          `json:"source"`
	Type   string          `json:"event"`
	Fields artifact.Record `json:"fields,omitempty"`
}

// Shape is the record two events are compared by. Fields are namespaced so
// a payload key named "source" cannot shadow the event source.
func (e Event) Shape() artifact.Record {
	out := make(artifact.Record, len(e.Fields)+2)
	out["source"] = artifact.String(e.Source)
	out["event"] = artifact.String(e.Type)
	for k, v := range e.Fields {
		out["fields."+k] = v
	}
	return out
}

// Is reports whether the event was emitted by source with the given type.
// An empty source matches any source.
func (e Event) Is(source, typ string) bool {
	return e.Type == typ && (source == "" || e.Source == source)
}
