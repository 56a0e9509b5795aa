package inspect

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
)

type FieldProfile struct {
	Field          string         `json:"field"`
	Types          map[string]int `json:"types"`
	Total          int            `json:"total"`
	NumericStrings int            `json:"numeric_strings"`
}

// Mixed reports whether the field holds more than one value type.
func (f FieldProfile) Mixed() bool { return len(f.Types) > 1 }

type EventCount struct {
	Source string `json:"source"`
	Event  string `json:"event"`
	Count  int    `json:"count"`
}

type Profile struct {
	RunID       string          `json:"run_id"`
	Location    string          `json:"location"`
	Config      artifact.Config `json:"config"`
	Records     int             `json:"records"`
	Fields      []FieldProfile  `json:"fields"`
	Ordering    string          `json:"ordering"`
	TraceEvents int             `json:"trace_events"`
	Inventory   []EventCount    `json:"inventory"`
}

// orderingKeys are tried in turn before falling back to the first field of
// the first record.
var orderingKeys = []string{"query_index", "index"}

// Probe summarizes a single run: value types per field, string values that
// look numeric (the usual CSV/JSON type gap), record ordering and the trace
// inventory.
func Probe(run *artifact.Run) Profile {
	p := Profile{
		RunID:       run.ID,
		Location:    run.Location,
		Config:      run.Config,
		Records:     len(run.Results),
		TraceEvents: len(run.Trace),
	}

	fields := map[string]*FieldProfile{}
	for _, r := range run.Results {
		for k, v := range r {
			fp, ok := fields[k]
			if !ok {
				fp = &FieldProfile{Field: k, Types: map[string]int{}}
				fields[k] = fp
			}
			fp.Types[v.Kind().String()]++
			fp.Total++
			if v.Kind() == artifact.KindString && looksNumeric(v.AsString()) {
				fp.NumericStrings++
			}
		}
	}
	for _, fp := range fields {
		p.Fields = append(p.Fields, *fp)
	}
	sort.Slice(p.Fields, func(i, j int) bool { return p.Fields[i].Field < p.Fields[j].Field })

	p.Ordering = ordering(run.Results)

	counts := map[[2]string]int{}
	for _, ev := range run.Trace {
		counts[[2]string{ev.Source, ev.Type}]++
	}
	for k, n := range counts {
		p.Inventory = append(p.Inventory, EventCount{Source: k[0], Event: k[1], Count: n})
	}
	sort.Slice(p.Inventory, func(i, j int) bool {
		if p.Inventory[i].Source != p.Inventory[j].Source {
			return p.Inventory[i].Source < p.Inventory[j].Source
		}
		return p.Inventory[i].Event < p.Inventory[j].Event
	})
	return p
}

func looksNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func ordering(records []artifact.Record) string {
	if len(records) == 0 {
		return "empty"
	}
	key := ""
	for _, k := range orderingKeys {
		if _, ok := records[0][k]; ok {
			key = k
			break
		}
	}
	if key == "" {
		keys := records[0].Keys()
		if len(keys) == 0 {
			return "unkeyed"
		}
		key = keys[0]
	}

	for i := 1; i < len(records); i++ {
		if compare(records[i-1][key], records[i][key]) > 0 {
			return fmt.Sprintf("unordered(%s)", key)
		}
	}
	return fmt.Sprintf("ordered(%s)", key)
}

// compare orders numbers numerically and everything else by kind, then by
// its printed form.
func compare(a, b artifact.Value) int {
	an, aok := numeric(a)
	bn, bok := numeric(b)
	switch {
	case aok && bok:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case a.Kind() != b.Kind():
		return int(a.Kind()) - int(b.Kind())
	}
	return strings.Compare(a.String(), b.String())
}

func numeric(v artifact.Value) (float64, bool) {
	switch v.Kind() {
	case artifact.KindInteger:
		return float64(v.AsInt()), true
	case artifact.KindFloat:
		return v.AsFloat(), true
	}
	return 0, false
}
