package artifact

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
)

const (
	ResultsFile  = "results.json"
	TraceFile    = "trace.jsonl"
	MetaFile     = "meta.json"
	ConfigFile   = "config.json"
	ManifestFile = "manifest.json"
)

const maxTraceLine = 16 << 20

// Documents are the raw files of one run. A nil slice means the file is
// absent; an empty non-nil slice is an empty file.
type Documents struct {
	Results  []byte
	Trace    []byte
	Meta     []byte
	Config   []byte
	Manifest []byte
}

// DecodeRun validates and decodes the documents of a run. Any structural
// problem rejects the whole run.
func DecodeRun(location string, docs Documents) (*Run, error) {
	if docs.Results == nil {
		return nil, missing(location, ResultsFile, nil)
	}
	if docs.Trace == nil {
		return nil, missing(location, TraceFile, nil)
	}
	if docs.Meta == nil && docs.Config == nil {
		return nil, missing(location, MetaFile, errors.New("neither meta.json nor config.json is present"))
	}

	results, resultsLabel, err := decodeResults(docs.Results)
	if err != nil {
		return nil, malformed(location, ResultsFile, 0, err)
	}

	trace, line, err := decodeTrace(docs.Trace)
	if err != nil {
		return nil, malformed(location, TraceFile, line, err)
	}

	run := &Run{
		Location: location,
		Results:  results,
		Trace:    trace,
		Label:    resultsLabel,
	}

	var metaConfig Config
	if docs.Meta != nil {
		meta, cfg, err := decodeMeta(docs.Meta)
		if err != nil {
			return nil, malformed(location, MetaFile, 0, err)
		}
		run.Meta = meta
		metaConfig = cfg
	}

	if docs.Manifest != nil {
		m, err := ParseManifest(docs.Manifest)
		if err != nil {
			return nil, malformed(location, ManifestFile, 0, err)
		}
		run.Manifest = m
	}

	switch {
	case docs.Config != nil:
		obj, err := decodeObject(docs.Config)
		if err != nil {
			return nil, malformed(location, ConfigFile, 0, err)
		}
		run.Config = Config(obj)
	case metaConfig != nil:
		run.Config = metaConfig
	case run.Manifest != nil && run.Manifest.Config != nil:
		run.Config = run.Manifest.Config
	default:
		run.Config = declaredInMeta(run.Meta)
	}

	run.ID = path.Base(location)
	if v, ok := run.Meta["run_id"]; ok && v.Kind() == KindString && v.AsString() != "" {
		run.ID = v.AsString()
	}
	if v, ok := run.Meta["label"]; ok && v.Kind() == KindString {
		run.Label = v.AsString()
	}

	return run, nil
}

// declaredInMeta picks the known decision variables a run declared as
// out-of-band bookkeeping fields in meta (e.g. format).
func declaredInMeta(meta Record) Config {
	cfg := Config{}
	for _, name := range KnownVariables {
		if v, ok := meta[name]; ok {
			cfg[name] = v
		}
	}
	return cfg
}

func decodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func decodeObject(b []byte) (Record, error) {
	var raw any
	if err := decodeJSON(b, &raw); err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", jsonKind(raw))
	}
	return flattenObject(m)
}

func decodeResults(b []byte) ([]Record, string, error) {
	var raw any
	if err := decodeJSON(b, &raw); err != nil {
		return nil, "", err
	}

	var items []any
	label := ""
	switch t := raw.(type) {
	case []any:
		items = t
	case map[string]any:
		recs, ok := t["records"]
		if !ok {
			items = []any{t}
			break
		}
		list, ok := recs.([]any)
		if !ok {
			return nil, "", fmt.Errorf("records must be a list, got %s", jsonKind(recs))
		}
		items = list
		if s, ok := t["label"].(string); ok {
			label = s
		}
	default:
		return nil, "", fmt.Errorf("results must be a list or an object, got %s", jsonKind(raw))
	}

	out := make([]Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("record %d is not an object (%s)", i, jsonKind(item))
		}
		rec, err := flattenObject(m)
		if err != nil {
			return nil, "", fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, label, nil
}

func decodeTrace(b []byte) ([]TraceEvent, int, error) {
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), maxTraceLine)

	var out []TraceEvent
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var raw any
		if err := decodeJSON(text, &raw); err != nil {
			return nil, line, err
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, line, fmt.Errorf("trace event must be an object, got %s", jsonKind(raw))
		}
		ev, err := decodeEvent(m)
		if err != nil {
			return nil, line, err
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, line + 1, err
	}
	return out, 0, nil
}

func decodeEvent(m map[string]any) (TraceEvent, error) {
	var ev TraceEvent
	rest := make(map[string]any, len(m))
	for k, v := range m {
		rest[k] = v
	}

	take := func(keys ...string) string {
		for _, k := range keys {
			if s, ok := text(rest[k]); ok {
				delete(rest, k)
				return s
			}
		}
		return ""
	}
	ev.Timestamp = take("ts", "timestamp")
	// Timestamps are never compared, whichever spellings an event carries.
	delete(rest, "ts")
	delete(rest, "timestamp")
	ev.Type = take("event", "type")
	ev.Source = take("source")

	fields, err := flattenObject(rest)
	if err != nil {
		return ev, err
	}
	if len(fields) > 0 {
		ev.Fields = fields
	}
	return ev, nil
}

func text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return string(t), true
	default:
		return "", false
	}
}

func decodeMeta(b []byte) (Record, Config, error) {
	var raw any
	if err := decodeJSON(b, &raw); err != nil {
		return nil, nil, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("expected a JSON object, got %s", jsonKind(raw))
	}

	var cfg Config
	if c, ok := m["config"].(map[string]any); ok {
		rec, err := flattenObject(c)
		if err != nil {
			return nil, nil, fmt.Errorf("config: %w", err)
		}
		cfg = Config(rec)
		m = withoutKey(m, "config")
	}

	meta, err := flattenObject(m)
	if err != nil {
		return nil, nil, err
	}
	return meta, cfg, nil
}

// ParseManifest decodes manifest.json. The misspelled trace_schemaversion key
// of older manifests is accepted.
func ParseManifest(b []byte) (*Manifest, error) {
	var raw any
	if err := decodeJSON(b, &raw); err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", jsonKind(raw))
	}

	out := &Manifest{}
	if c, ok := m["config"].(map[string]any); ok {
		rec, err := flattenObject(c)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		out.Config = Config(rec)
	}
	out.InputProvenance, _ = m["input_provenance"].(string)
	out.NormalizeOutputVersion, _ = m["normalize_output_version"].(string)
	out.TraceSchemaVersion, _ = m["trace_schema_version"].(string)
	if out.TraceSchemaVersion == "" {
		out.TraceSchemaVersion, _ = m["trace_schemaversion"].(string)
	}
	return out, nil
}

func withoutKey(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func flattenObject(m map[string]any) (Record, error) {
	out := Record{}
	if err := flatten("", m, out); err != nil {
		return nil, err
	}
	return out, nil
}

// flatten walks nested objects and arrays in key order so collisions between
// a literal dotted key and a nested path resolve the same way every time.
func flatten(prefix string, raw any, out Record) error {
	switch t := raw.(type) {
	case map[string]any:
		if len(t) == 0 && prefix != "" {
			out[prefix] = String("{}")
			return nil
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			name := k
			if prefix != "" {
				name = prefix + "." + k
			}
			if err := flatten(name, t[k], out); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if len(t) == 0 {
			out[prefix] = String("[]")
			return nil
		}
		for i, item := range t {
			if err := flatten(prefix+"["+strconv.Itoa(i)+"]", item, out); err != nil {
				return err
			}
		}
		return nil
	default:
		v, err := scalar(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", prefix, err)
		}
		out[prefix] = v
		return nil
	}
}

func jsonKind(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", raw)
	}
}
