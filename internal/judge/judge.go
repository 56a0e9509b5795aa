package judge

import (
	"fmt"
	"strings"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/decision"
	"github.com/awmpietro/golang-trace-explainability-case/internal/diff"
)

type Judgment string

const (
	NoDifference       Judgment = "no_difference"
	TracesExplain      Judgment = "traces_explain"
	TracesDoNotExplain Judgment = "traces_do_not_explain"
	NoiseInTrace       Judgment = "noise_in_trace"
)

// All lists the judgments in report order.
var All = []Judgment{NoDifference, TracesExplain, TracesDoNotExplain, NoiseInTrace}

// Judge is the decision table over the two diffs.
//
//	output empty, trace empty -> no_difference
//	output empty, trace diff  -> noise_in_trace
//	output diff,  trace diff  -> traces_explain
//	output diff,  trace empty -> traces_do_not_explain
func Judge(out diff.OutputDiff, trace diff.TraceDiff) Judgment {
	switch {
	case out.Empty() && trace.Empty():
		return NoDifference
	case out.Empty():
		return NoiseInTrace
	case !trace.Empty():
		return TracesExplain
	default:
		return TracesDoNotExplain
	}
}

type FindingKind string

const (
	MissingExpectedEvent   FindingKind = "missing_expected_event"
	UninstrumentedVariable FindingKind = "uninstrumented_variable"
	DecisionOrder          FindingKind = "decision_order"
)

type Finding struct {
	Kind     FindingKind `json:"kind"`
	Run      string      `json:"run,omitempty"`
	Variable string      `json:"variable,omitempty"`
	Point    string      `json:"point,omitempty"`
	Event    string      `json:"event,omitempty"`
	Message  string      `json:"message"`
}

// Side is one run as the judge sees it.
type Side struct {
	Name   string
	Config artifact.Config
	Events []diff.Event
}

type Input struct {
	A, B      Side
	Output    diff.OutputDiff
	Trace     diff.TraceDiff
	Variables []string
	Catalog   *decision.Catalog
}

type Verdict struct {
	Judgment Judgment  `json:"judgment"`
	Reasons  []string  `json:"reasons"`
	Findings []Finding `json:"findings,omitempty"`
}

// Explain judges a comparison and, when a catalog is given, checks the
// traces against the declared decision points. Findings never change the
// judgment.
func Explain(in Input) (Verdict, error) {
	v := Verdict{Judgment: Judge(in.Output, in.Trace)}
	v.Reasons = reasons(v.Judgment, in)

	if in.Catalog == nil {
		return v, nil
	}

	if !in.Output.Empty() {
		for _, name := range in.Variables {
			if len(in.Catalog.ForVariable(name)) > 0 {
				continue
			}
			v.Findings = append(v.Findings, Finding{
				Kind:     UninstrumentedVariable,
				Variable: name,
				Message:  fmt.Sprintf("outputs differ and %q differs, but no decision point is declared for it", name),
			})
		}

		// Every declared point is checked, not only those of differing
		// variables: a point that fails to emit in both runs is still a gap.
		for _, side := range []Side{in.A, in.B} {
			gaps, err := in.Catalog.Completeness(side.Config, side.Events)
			if err != nil {
				return Verdict{}, fmt.Errorf("run %s: %w", side.Name, err)
			}
			for _, p := range gaps {
				v.Findings = append(v.Findings, Finding{
					Kind:     MissingExpectedEvent,
					Run:      side.Name,
					Variable: p.Variable,
					Point:    p.ID,
					Event:    p.Event,
					Message:  fmt.Sprintf("run %s was configured to emit %q at %q but its trace has none", side.Name, p.Event, p.ID),
				})
			}
		}
	}

	for _, side := range []Side{in.A, in.B} {
		for _, vio := range in.Catalog.OrderViolations(side.Events) {
			to := in.Catalog.Point(vio.Edge.To)
			v.Findings = append(v.Findings, Finding{
				Kind:     DecisionOrder,
				Run:      side.Name,
				Variable: to.Variable,
				Point:    to.ID,
				Event:    to.Event,
				Message: fmt.Sprintf("run %s emitted %q (event %d) before %q (event %d)",
					side.Name, to.ID, vio.ToIndex, vio.Edge.From, vio.FromIndex),
			})
		}
	}

	return v, nil
}

func reasons(j Judgment, in Input) []string {
	var out []string
	switch j {
	case NoDifference:
		out = append(out, "outputs and traces are identical after normalization")
	case NoiseInTrace:
		out = append(out, "outputs are identical but traces differ: "+summarize(in.Trace.Sequence))
	case TracesExplain:
		out = append(out,
			"outputs differ: "+summarize(in.Output.Sequence),
			"traces differ: "+summarize(in.Trace.Sequence),
		)
	case TracesDoNotExplain:
		out = append(out,
			"outputs differ: "+summarize(in.Output.Sequence),
			"traces are identical, so no trace evidence accounts for the output change",
		)
	}

	if len(in.Variables) == 0 {
		if j == TracesDoNotExplain {
			out = append(out, "configs are identical; the change comes from the input or from a variable that was never recorded")
		}
	} else {
		out = append(out, "configs differ in: "+strings.Join(in.Variables, ", "))
	}
	return out
}

func summarize(s diff.Sequence) string {
	var added, removed int
	for _, e := range s.Entries {
		if e.Kind == diff.EntryAdded {
			added++
		} else {
			removed++
		}
	}
	parts := make([]string, 0, 4)
	if len(s.Fields) > 0 {
		parts = append(parts, fmt.Sprintf("%d field change(s)", len(s.Fields)))
	}
	if added > 0 {
		parts = append(parts, fmt.Sprintf("%d added", added))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", removed))
	}
	if len(s.Moves) > 0 {
		parts = append(parts, fmt.Sprintf("%d moved", len(s.Moves)))
	}
	return strings.Join(parts, ", ")
}
