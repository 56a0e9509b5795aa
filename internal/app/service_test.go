// internal/app/service_test.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/decision"
	"github.com/awmpietro/golang-trace-explainability-case/internal/decision/cache"
	"github.com/awmpietro/golang-trace-explainability-case/internal/judge"
	"github.com/awmpietro/golang-trace-explainability-case/internal/normalize"
	"github.com/awmpietro/golang-trace-explainability-case/internal/report"
	"github.com/awmpietro/golang-trace-explainability-case/internal/telemetry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLoader struct {
	mu    sync.Mutex
	runs  map[string]*artifact.Run
	calls map[string]int
}

func newFakeLoader(runs ...*artifact.Run) *fakeLoader {
	l := &fakeLoader{runs: map[string]*artifact.Run{}, calls: map[string]int{}}
	for _, r := range runs {
		l.runs[r.Location] = r
	}
	return l
}

func (l *fakeLoader) Load(ctx context.Context, location string) (*artifact.Run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[location]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := l.runs[location]
	if !ok {
		return nil, &artifact.ArtifactError{
			Kind:     artifact.MissingFile,
			Location: location,
			File:     artifact.ResultsFile,
			Err:      fmt.Errorf("no such run"),
		}
	}
	return r, nil
}

type countingCompiler struct {
	mu    sync.Mutex
	calls int
	inner *decision.Compiler
}

func (c *countingCompiler) Compile(dot string) (*decision.Catalog, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Compile(dot)
}

type spyObserver struct {
	mu     sync.Mutex
	stages map[string]int
}

func (s *spyObserver) ObserveStage(stage string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stages == nil {
		s.stages = map[string]int{}
	}
	s.stages[stage]++
}

type spyRecorder struct {
	mu        sync.Mutex
	judgments []string
}

func (s *spyRecorder) RecordJudgment(ctx context.Context, judgment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.judgments = append(s.judgments, judgment)
}

func authors(names ...string) []artifact.Record {
	out := make([]artifact.Record, len(names))
	for i, n := range names {
		out[i] = artifact.Record{"author": artifact.String(n), "count": artifact.Int(1)}
	}
	return out
}

func ingestTrace(extra ...artifact.TraceEvent) []artifact.TraceEvent {
	base := []artifact.TraceEvent{
		{Timestamp: "2024-05-01T10:00:00", Source: "ingestion.ingest", Type: "records_parsed"},
		{Timestamp: "2024-05-01T10:00:01", Source: "ingestion.validate", Type: "validation_complete"},
	}
	return append(base, extra...)
}

func newRun(id, format, order string, results []artifact.Record, trace []artifact.TraceEvent) *artifact.Run {
	return &artifact.Run{
		ID:       id,
		Location: "runs/" + id,
		Config: artifact.Config{
			artifact.VarFormat: artifact.String(format),
			artifact.VarOrder:  artifact.String(order),
		},
		Results: results,
		Trace:   trace,
	}
}

func TestService_Compare_UnexplainedOutputChange(t *testing.T) {
	a := newRun("json_run", "json", "original", authors("Brent"), ingestTrace())
	b := newRun("csv_run", "csv", "original", authors("Alex"), ingestTrace())

	obs := &spyObserver{}
	rec := &spyRecorder{}
	s := NewService(newFakeLoader(a, b), nil, nil, WithStageObserver(obs), WithJudgmentRecorder(rec))

	r, err := s.Compare(context.Background(), a.Location, b.Location)
	if err != nil {
		t.Fatal(err)
	}
	if r.Judgment != judge.TracesDoNotExplain {
		t.Fatalf("expected %s, got %s", judge.TracesDoNotExplain, r.Judgment)
	}
	if r.ExitCode != report.ExitUnexplained {
		t.Fatalf("expected exit %d, got %d", report.ExitUnexplained, r.ExitCode)
	}
	if diff := cmp.Diff([]string{"format"}, r.Variables); diff != "" {
		t.Fatalf("variables mismatch (-want +got):\n%s", diff)
	}

	wantStages := map[string]int{
		telemetry.StageLoad:      2,
		telemetry.StageNormalize: 1,
		telemetry.StageDiff:      1,
		telemetry.StageJudge:     1,
	}
	if diff := cmp.Diff(wantStages, obs.stages); diff != "" {
		t.Fatalf("stages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"traces_do_not_explain"}, rec.judgments); diff != "" {
		t.Fatalf("recorded judgments mismatch (-want +got):\n%s", diff)
	}
}

func TestService_Compare_LabelOnlyIsNoDifference(t *testing.T) {
	a := newRun("a", "json", "original", authors("Brent", "Alex"), ingestTrace())
	b := newRun("b", "json", "original", authors("Brent", "Alex"), ingestTrace())
	b.Label = "rerun"

	r, err := NewService(newFakeLoader(a, b), nil, nil).Compare(context.Background(), a.Location, b.Location)
	if err != nil {
		t.Fatal(err)
	}
	if r.Judgment != judge.NoDifference || r.ExitCode != report.ExitExplained {
		t.Fatalf("expected no_difference/0, got %s/%d", r.Judgment, r.ExitCode)
	}
}

func TestService_Compare_ArtifactErrorBubblesUp(t *testing.T) {
	a := newRun("a", "json", "original", authors("Brent"), ingestTrace())
	s := NewService(newFakeLoader(a), nil, nil)

	_, err := s.Compare(context.Background(), a.Location, "runs/missing")
	var ae *artifact.ArtifactError
	if !errors.As(err, &ae) {
		t.Fatalf("expected artifact error, got %v", err)
	}
	if !errors.Is(err, artifact.ErrMissingFile) {
		t.Fatalf("expected missing file, got %v", err)
	}
}

func TestService_CompareWith_CompilesCatalogOnce(t *testing.T) {
	const dot = `digraph catalog {
  normalize [variable="normalize_keys", event="keys_normalized", when="normalize_keys == true"]
}`
	a := newRun("a", "json", "original", authors("Brent"), ingestTrace())
	b := newRun("b", "csv", "original", authors("Alex"), ingestTrace())

	comp := &countingCompiler{inner: decision.NewCompiler()}
	s := NewService(newFakeLoader(a, b), comp, cache.NewInMemory(8))

	for i := 0; i < 3; i++ {
		r, err := s.CompareWith(context.Background(), a.Location, b.Location, CompareOptions{CatalogDOT: dot})
		if err != nil {
			t.Fatal(err)
		}
		if len(r.Findings) != 1 || r.Findings[0].Kind != judge.UninstrumentedVariable || r.Findings[0].Variable != "format" {
			t.Fatalf("expected one uninstrumented format finding, got %+v", r.Findings)
		}
	}
	if comp.calls != 1 {
		t.Fatalf("expected catalog compiled once, got %d", comp.calls)
	}
}

func TestService_CompareWith_InvalidCatalog(t *testing.T) {
	s := NewService(newFakeLoader(), decision.NewCompiler(), cache.NewInMemory(8))
	_, err := s.CompareWith(context.Background(), "x", "y", CompareOptions{CatalogDOT: "digraph { p [variable=\"v\"] }"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_CompareRuns_TagsWarningsBySide(t *testing.T) {
	a := newRun("a", "json", "original", authors("Brent"), ingestTrace())
	b := newRun("b", "json", "original", []artifact.Record{{"author": artifact.String("Brent"), "count": artifact.String("one")}}, ingestTrace())

	s := NewService(nil, nil, nil, WithCoercibleFields([]string{"count"}))
	r, err := s.CompareRuns(context.Background(), a, b, CompareOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %+v", r.Warnings)
	}
	if w := r.Warnings[0]; w.Kind != normalize.CoercionFailed || w.Run != SideB || w.Field != "count" {
		t.Fatalf("unexpected warning %+v", w)
	}
}

func TestService_CompareRuns_CrossFormatCountsAreEqual(t *testing.T) {
	a := newRun("a", "json", "original", []artifact.Record{{"Count": artifact.Int(1)}}, ingestTrace())
	b := newRun("b", "json", "original", []artifact.Record{{"count": artifact.String("1")}}, ingestTrace())
	a.Config[artifact.VarNormalizeKeys] = artifact.Bool(true)
	b.Config[artifact.VarNormalizeKeys] = artifact.Bool(true)

	r, err := NewService(nil, nil, nil).CompareRuns(context.Background(), a, b, CompareOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Judgment != judge.NoDifference {
		t.Fatalf("expected no_difference, got %s (%+v)", r.Judgment, r.OutputDiff)
	}
}

func TestService_CompareRuns_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := newRun("a", "json", "original", nil, nil)
	if _, err := NewService(nil, nil, nil).CompareRuns(ctx, a, a, CompareOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
