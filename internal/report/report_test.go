package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/coverage"
	"github.com/awmpietro/golang-trace-explainability-case/internal/diff"
	"github.com/awmpietro/golang-trace-explainability-case/internal/judge"
	"github.com/awmpietro/golang-trace-explainability-case/internal/normalize"
)

func sampleReport(t *testing.T, j judge.Judgment, warnings []normalize.Warning) *Report {
	t.Helper()
	a := &artifact.Run{ID: "run_a", Location: "runs/run_a", Config: artifact.Config{"format": artifact.String("json")}}
	b := &artifact.Run{ID: "run_b", Label: "csv", Location: "runs/run_b", Config: artifact.Config{"format": artifact.String("csv")}}
	out := diff.Results(
		[]artifact.Record{{"author": artifact.String("Brent")}},
		[]artifact.Record{{"author": artifact.String("Alex")}},
	)
	v := judge.Verdict{Judgment: j, Reasons: []string{"outputs differ: 1 field change(s)"}}
	return New(a, b, []string{"format"}, out, diff.TraceDiff{}, v, warnings)
}

func TestExitCode(t *testing.T) {
	cases := map[judge.Judgment]int{
		judge.NoDifference:       0,
		judge.TracesExplain:      0,
		judge.NoiseInTrace:       0,
		judge.TracesDoNotExplain: 1,
	}
	for j, want := range cases {
		if got := ExitCode(j); got != want {
			t.Fatalf("%s: expected exit %d, got %d", j, want, got)
		}
	}
}

func TestNew_AssignsIdentity(t *testing.T) {
	r1 := sampleReport(t, judge.TracesDoNotExplain, nil)
	r2 := sampleReport(t, judge.TracesDoNotExplain, nil)

	if r1.ID == "" || r1.ID == r2.ID {
		t.Fatalf("expected distinct report ids, got %q and %q", r1.ID, r2.ID)
	}
	if r1.ExitCode != ExitUnexplained {
		t.Fatalf("expected exit code %d, got %d", ExitUnexplained, r1.ExitCode)
	}
}

func TestReport_Pair(t *testing.T) {
	r := sampleReport(t, judge.TracesDoNotExplain, nil)
	want := coverage.Pair{
		A:             "run_a",
		B:             "run_b",
		Variables:     []string{"format"},
		Judgment:      judge.TracesDoNotExplain,
		OutputChanged: true,
	}
	if diff := cmp.Diff(want, r.Pair()); diff != "" {
		t.Fatalf("pair mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSON_ReadBack(t *testing.T) {
	r := sampleReport(t, judge.TracesDoNotExplain, []normalize.Warning{{Kind: normalize.DuplicateEvent, Run: "A", Index: 3, Message: "dup"}})

	path := filepath.Join(t.TempDir(), "report.json")
	var buf bytes.Buffer
	if err := WriteJSON(&buf, r); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 report, got %d", len(got))
	}
	if diff := cmp.Diff(r.Pair(), got[0].Pair()); diff != "" {
		t.Fatalf("pair mismatch after reload (-want +got):\n%s", diff)
	}
	if len(got[0].Warnings) != 1 || got[0].Warnings[0].Kind != normalize.DuplicateEvent {
		t.Fatalf("expected warning to survive, got %+v", got[0].Warnings)
	}

	buf.Reset()
	if err := WriteJSON(&buf, []*Report{r, r}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(got))
	}
}

func TestWriteSummary_AlwaysListsWarnings(t *testing.T) {
	r := sampleReport(t, judge.NoDifference, []normalize.Warning{{Kind: normalize.CoercionFailed, Run: "B", Field: "count", Message: "cannot coerce"}})
	r.OutputDiff = diff.OutputDiff{}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, r, ASCII); err != nil {
		t.Fatal(err)
	}
	out := strings.ToLower(buf.String())
	for _, want := range []string{"no_difference", "warnings (1)", "coercion_error", "cannot coerce"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in summary:\n%s", want, out)
		}
	}
}

func TestWriteSummary_ShowsDifferences(t *testing.T) {
	r := sampleReport(t, judge.TracesDoNotExplain, nil)

	var buf bytes.Buffer
	if err := WriteSummary(&buf, r, Markdown); err != nil {
		t.Fatal(err)
	}
	out := strings.ToLower(buf.String())
	for _, want := range []string{"traces_do_not_explain", "author", `"brent" (string)`, `"alex" (string)`, "| kind"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in summary:\n%s", want, out)
		}
	}
}

func TestWriteSummary_CapsEveryRowKind(t *testing.T) {
	const n = 3 * maxListed
	a := make([]artifact.Record, n)
	b := make([]artifact.Record, n)
	for i := range a {
		a[i] = artifact.Record{"id": artifact.Int(int64(i))}
		b[n-1-i] = a[i]
	}
	r := sampleReport(t, judge.TracesDoNotExplain, nil)
	r.OutputDiff = diff.Results(a, b)
	if len(r.OutputDiff.Moves) <= maxListed {
		t.Fatalf("fixture must produce more than %d moves, got %d", maxListed, len(r.OutputDiff.Moves))
	}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, r, ASCII); err != nil {
		t.Fatal(err)
	}
	out := strings.ToLower(buf.String())
	if got := strings.Count(out, "moved"); got != maxListed {
		t.Fatalf("expected %d move rows, got %d:\n%s", maxListed, got, out)
	}
	if want := fmt.Sprintf("%d more", len(r.OutputDiff.Moves)-maxListed); !strings.Contains(out, want) {
		t.Fatalf("expected %q footer:\n%s", want, out)
	}
}

func TestWriteMatrix(t *testing.T) {
	m := coverage.Observe(coverage.Matrix{}, coverage.Evidence{Variable: "format", Source: "a..b", Judgment: judge.TracesDoNotExplain, OutputChanged: true})

	var buf bytes.Buffer
	if err := WriteMatrix(&buf, m, ASCII); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "observable_in_results") {
		t.Fatalf("expected classification in matrix:\n%s", buf.String())
	}
}
