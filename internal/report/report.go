package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/coverage"
	"github.com/awmpietro/golang-trace-explainability-case/internal/diff"
	"github.com/awmpietro/golang-trace-explainability-case/internal/judge"
	"github.com/awmpietro/golang-trace-explainability-case/internal/normalize"
)

// Process exit codes.
const (
	ExitExplained      = 0
	ExitUnexplained    = 1
	ExitArtifactFailed = 2
)

func ExitCode(j judge.Judgment) int {
	if j == judge.TracesDoNotExplain {
		return ExitUnexplained
	}
	return ExitExplained
}

type RunRef struct {
	ID       string          `json:"run_id"`
	Label    string          `json:"label,omitempty"`
	Location string          `json:"location"`
	Config   artifact.Config `json:"config"`
}

func Ref(run *artifact.Run) RunRef {
	return RunRef{ID: run.ID, Label: run.Label, Location: run.Location, Config: run.Config}
}

// Report is the full outcome of comparing two runs. Every finding and
// warning is kept, including those that did not affect the judgment.
type Report struct {
	ID         string              `json:"report_id"`
	CreatedAt  time.Time           `json:"created_at"`
	RunA       RunRef              `json:"run_a"`
	RunB       RunRef              `json:"run_b"`
	Variables  []string            `json:"variables"`
	OutputDiff diff.OutputDiff     `json:"output_diff"`
	TraceDiff  diff.TraceDiff      `json:"trace_diff"`
	Judgment   judge.Judgment      `json:"judgment"`
	Reasons    []string            `json:"reasons"`
	Findings   []judge.Finding     `json:"findings,omitempty"`
	Warnings   []normalize.Warning `json:"warnings,omitempty"`
	ExitCode   int                 `json:"exit_code"`
}

func New(a, b *artifact.Run, variables []string, out diff.OutputDiff, trace diff.TraceDiff, v judge.Verdict, warnings []normalize.Warning) *Report {
	if variables == nil {
		variables = []string{}
	}
	return &Report{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		RunA:       Ref(a),
		RunB:       Ref(b),
		Variables:  variables,
		OutputDiff: out,
		TraceDiff:  trace,
		Judgment:   v.Judgment,
		Reasons:    v.Reasons,
		Findings:   v.Findings,
		Warnings:   warnings,
		ExitCode:   ExitCode(v.Judgment),
	}
}

// Pair is the report as coverage input.
func (r *Report) Pair() coverage.Pair {
	return coverage.Pair{
		A:             r.RunA.ID,
		B:             r.RunB.ID,
		Variables:     r.Variables,
		Judgment:      r.Judgment,
		OutputChanged: !r.OutputDiff.Empty(),
		TraceChanged:  !r.TraceDiff.Empty(),
	}
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Read loads reports saved with WriteJSON: either one report or a list.
func Read(path string) ([]*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var list []*Report
	if err := json.Unmarshal(b, &list); err == nil {
		return list, nil
	}
	var one Report
	if err := json.Unmarshal(b, &one); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return []*Report{&one}, nil
}
