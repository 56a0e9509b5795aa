package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON writes the event in the pipeline's flat trace.jsonl shape, so
// an encoded event decodes back to the same event.
func (e TraceEvent) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		out[k] = v
	}
	if e.Timestamp != "" {
		out["ts"] = e.Timestamp
	}
	if e.Type != "" {
		out["event"] = e.Type
	}
	if e.Source != "" {
		out["source"] = e.Source
	}
	return json.Marshal(out)
}

func (e *TraceEvent) UnmarshalJSON(b []byte) error {
	var raw any
	if err := decodeJSON(b, &raw); err != nil {
		return err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("trace event must be an object, got %s", jsonKind(raw))
	}
	ev, err := decodeEvent(m)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}

// EncodeRun is the inverse of DecodeRun for everything except ID and Label,
// which may come from the directory name or the results envelope and are
// stored separately by callers.
func EncodeRun(run *Run) (Documents, error) {
	if run == nil {
		return Documents{}, fmt.Errorf("run is nil")
	}

	var docs Documents
	var err error

	results := run.Results
	if results == nil {
		results = []Record{}
	}
	if docs.Results, err = json.Marshal(results); err != nil {
		return Documents{}, fmt.Errorf("encode results: %w", err)
	}

	var trace bytes.Buffer
	for i, ev := range run.Trace {
		b, err := json.Marshal(ev)
		if err != nil {
			return Documents{}, fmt.Errorf("encode trace event %d: %w", i, err)
		}
		trace.Write(b)
		trace.WriteByte('\n')
	}
	docs.Trace = trace.Bytes()
	if docs.Trace == nil {
		docs.Trace = []byte{}
	}

	meta := run.Meta
	if meta == nil {
		meta = Record{}
	}
	if docs.Meta, err = json.Marshal(meta); err != nil {
		return Documents{}, fmt.Errorf("encode meta: %w", err)
	}

	cfg := run.Config
	if cfg == nil {
		cfg = Config{}
	}
	if docs.Config, err = json.Marshal(cfg); err != nil {
		return Documents{}, fmt.Errorf("encode config: %w", err)
	}

	if run.Manifest != nil {
		if docs.Manifest, err = json.Marshal(run.Manifest); err != nil {
			return Documents{}, fmt.Errorf("encode manifest: %w", err)
		}
	}
	return docs, nil
}
