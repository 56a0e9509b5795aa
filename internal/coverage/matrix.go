package coverage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/awmpietro/golang-trace-explainability-case/internal/judge"
)

type Classification string

const (
	ObservableInResults Classification = "observable_in_results"
	ObservableInTraces  Classification = "observable_in_traces"
	ObservableInNeither Classification = "observable_in_neither"
)

// Entry accumulates what is known about one decision variable. Flags only
// ever turn on; evidence only ever grows. Judgments is derived from
// Observed, so merging the same evidence twice does not change it.
type Entry struct {
	InResults bool                   `json:"in_results"`
	InTraces  bool                   `json:"in_traces"`
	Evidence  []string               `json:"evidence,omitempty"`
	Observed  []Observation          `json:"observed,omitempty"`
	Judgments map[judge.Judgment]int `json:"judgments,omitempty"`
}

// Observation is the judgment one pair of runs received.
type Observation struct {
	Source   string         `json:"source"`
	Judgment judge.Judgment `json:"judgment"`
}

func (e Entry) Classification() Classification {
	switch {
	case e.InTraces:
		return ObservableInTraces
	case e.InResults:
		return ObservableInResults
	default:
		return ObservableInNeither
	}
}

// Matrix maps decision variable names to their entries. Matrices are values:
// every operation returns a new matrix.
type Matrix map[string]Entry

// Variables returns the sorted variable names.
func (m Matrix) Variables() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Evidence is one attributable observation: a pair of runs whose configs
// differ in exactly Variable.
type Evidence struct {
	Variable      string
	Source        string
	Judgment      judge.Judgment
	OutputChanged bool
	TraceChanged  bool
}

func Observe(m Matrix, ev Evidence) Matrix {
	var sources []string
	if ev.Source != "" {
		sources = []string{ev.Source}
	}
	var observed []Observation
	if ev.Judgment != "" {
		observed = []Observation{{Source: ev.Source, Judgment: ev.Judgment}}
	}
	return Merge(m, Matrix{ev.Variable: {
		InResults: ev.OutputChanged,
		InTraces:  ev.TraceChanged,
		Evidence:  sources,
		Observed:  observed,
	}})
}

// Merge is commutative, associative and idempotent: flags are ORed, evidence
// and observations are sorted set unions and judgment counts are recounted
// from the observations.
func Merge(a, b Matrix) Matrix {
	out := make(Matrix, max(len(a), len(b)))
	for k, e := range a {
		out[k] = mergeEntry(Entry{}, e)
	}
	for k, e := range b {
		out[k] = mergeEntry(out[k], e)
	}
	return out
}

func mergeEntry(a, b Entry) Entry {
	out := Entry{
		InResults: a.InResults || b.InResults,
		InTraces:  a.InTraces || b.InTraces,
	}

	set := make(map[string]struct{}, len(a.Evidence)+len(b.Evidence))
	for _, s := range a.Evidence {
		set[s] = struct{}{}
	}
	for _, s := range b.Evidence {
		set[s] = struct{}{}
	}
	if len(set) > 0 {
		out.Evidence = make([]string, 0, len(set))
		for s := range set {
			out.Evidence = append(out.Evidence, s)
		}
		sort.Strings(out.Evidence)
	}

	seen := make(map[Observation]struct{}, len(a.Observed)+len(b.Observed))
	for _, o := range append(append([]Observation(nil), a.Observed...), b.Observed...) {
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out.Observed = append(out.Observed, o)
	}
	if len(out.Observed) > 0 {
		sort.Slice(out.Observed, func(i, j int) bool {
			if out.Observed[i].Source != out.Observed[j].Source {
				return out.Observed[i].Source < out.Observed[j].Source
			}
			return out.Observed[i].Judgment < out.Observed[j].Judgment
		})
		out.Judgments = make(map[judge.Judgment]int, len(judge.All))
		for _, o := range out.Observed {
			out.Judgments[o.Judgment]++
		}
	}
	return out
}

// Reduce merges partial matrices pairwise.
func Reduce(ms ...Matrix) Matrix {
	if len(ms) == 0 {
		return Matrix{}
	}
	level := ms
	for len(level) > 1 {
		next := make([]Matrix, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, Merge(level[i], level[i+1]))
		}
		level = next
	}
	return Merge(level[0], nil)
}

// Reset is the only way to weaken a matrix. With no names it clears
// everything.
func Reset(m Matrix, names ...string) Matrix {
	if len(names) == 0 {
		return Matrix{}
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	out := make(Matrix, len(m))
	for k, e := range m {
		if _, ok := drop[k]; !ok {
			out[k] = mergeEntry(Entry{}, e)
		}
	}
	return out
}

var ErrIdenticalConfig = errors.New("configs are identical")

// ConfoundedError marks a pair whose configs differ in more than one
// variable, so no difference can be attributed to any one of them.
type ConfoundedError struct {
	Variables []string
}

func (e *ConfoundedError) Error() string {
	return fmt.Sprintf("configs differ in %d variables %v", len(e.Variables), e.Variables)
}

// Pair summarizes one compared pair of runs.
type Pair struct {
	A, B          string
	Variables     []string
	Judgment      judge.Judgment
	OutputChanged bool
	TraceChanged  bool
}

// Attribute turns a pair into evidence when exactly one variable differs.
func Attribute(p Pair) (Evidence, error) {
	switch len(p.Variables) {
	case 0:
		return Evidence{}, ErrIdenticalConfig
	case 1:
		return Evidence{
			Variable:      p.Variables[0],
			Source:        p.A + ".." + p.B,
			Judgment:      p.Judgment,
			OutputChanged: p.OutputChanged,
			TraceChanged:  p.TraceChanged,
		}, nil
	default:
		return Evidence{}, &ConfoundedError{Variables: append([]string(nil), p.Variables...)}
	}
}
