package artifact

import (
	"maps"
	"sort"
	"strconv"
	"strings"
)

// Decision variables persisted by the ingestion pipeline.
const (
	VarFormat         = "format"
	VarOrder          = "order"
	VarNormalizeKeys  = "normalize_keys"
	VarSkipValidation = "skip_validation"
)

var KnownVariables = []string{VarFormat, VarOrder, VarNormalizeKeys, VarSkipValidation}

// Record maps field names to scalar values. Nested JSON is flattened into
// dotted paths when a Record is decoded.
type Record map[string]Value

func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r Record) Equal(o Record) bool {
	return maps.EqualFunc(r, o, Value.Equal)
}

// Canonical returns an order-independent encoding of the record.
func (r Record) Canonical() string {
	var b strings.Builder
	for _, k := range r.Keys() {
		b.WriteString(strconv.Quote(k))
		b.WriteByte('=')
		b.WriteString(r[k].canonical())
		b.WriteByte(';')
	}
	return b.String()
}

// TraceEvent is one line of trace.jsonl. Keys other than ts, event and
// source are kept in Fields.
type TraceEvent struct {
	Timestamp string
	Source    string
	Type      string
	Fields    Record
}

// Config holds decision-variable values captured at run start.
type Config Record

func (c Config) Get(name string) (Value, bool) {
	v, ok := c[name]
	return v, ok
}

// Bool reports whether a boolean decision variable is set. String values
// "true"/"false" are accepted since some runs persist config through CSV.
func (c Config) Bool(name string) bool {
	v, ok := c[name]
	if !ok {
		return false
	}
	switch v.Kind() {
	case KindBoolean:
		return v.AsBool()
	case KindString:
		b, err := strconv.ParseBool(strings.TrimSpace(v.AsString()))
		return err == nil && b
	default:
		return false
	}
}

// Vars exposes the config to expr conditions.
func (c Config) Vars() map[string]any {
	out := make(map[string]any, len(c))
	for k, v := range c {
		out[k] = v.Native()
	}
	return out
}

// Diff returns the sorted names of variables whose values differ, including
// variables present on only one side.
func (c Config) Diff(o Config) []string {
	var out []string
	for k, v := range c {
		if ov, ok := o[k]; !ok || !v.Equal(ov) {
			out = append(out, k)
		}
	}
	for k := range o {
		if _, ok := c[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

type Manifest struct {
	Config                 Config `json:"config,omitempty"`
	InputProvenance        string `json:"input_provenance,omitempty"`
	TraceSchemaVersion     string `json:"trace_schema_version,omitempty"`
	NormalizeOutputVersion string `json:"normalize_output_version,omitempty"`
}

// Run is a loaded artifact bundle. It is treated as a value: nothing in this
// module mutates a Run after Load returns it.
type Run struct {
	ID       string       `json:"run_id"`
	Label    string       `json:"label,omitempty"`
	Location string       `json:"location"`
	Config   Config       `json:"config"`
	Results  []Record     `json:"results"`
	Trace    []TraceEvent `json:"trace"`
	Meta     Record       `json:"meta,omitempty"`
	Manifest *Manifest    `json:"manifest,omitempty"`
}
