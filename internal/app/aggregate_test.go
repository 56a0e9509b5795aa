package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/coverage"
	"github.com/awmpietro/golang-trace-explainability-case/internal/judge"
	"github.com/awmpietro/golang-trace-explainability-case/internal/report"
)

func aggregateRuns() (*fakeLoader, []string) {
	base := newRun("r0", "json", "original", authors("Brent", "Alex"), ingestTrace())
	csv := newRun("r1", "csv", "original", authors("Alex", "Alex"), ingestTrace())
	sorted := newRun("r2", "json", "sorted", authors("Alex", "Brent"),
		ingestTrace(artifact.TraceEvent{Source: "ingestion.sort", Type: "records_sorted"}))
	l := newFakeLoader(base, csv, sorted)
	return l, []string{base.Location, csv.Location, sorted.Location, "runs/missing"}
}

func TestPairs(t *testing.T) {
	all, err := Pairs(3, PairsAll)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][2]int{{0, 1}, {0, 2}, {1, 2}}, all); diff != "" {
		t.Fatalf("all pairs mismatch (-want +got):\n%s", diff)
	}
	baseline, err := Pairs(3, PairsBaseline)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][2]int{{0, 1}, {0, 2}}, baseline); diff != "" {
		t.Fatalf("baseline pairs mismatch (-want +got):\n%s", diff)
	}
	if _, err := Pairs(3, "random"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestService_Aggregate_Baseline(t *testing.T) {
	loader, locations := aggregateRuns()
	s := NewService(loader, nil, nil, WithWorkers(4))

	res, err := s.Aggregate(context.Background(), locations, PairsBaseline, CompareOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(res.Pairs))
	}
	if r := res.Pairs[0].Report; r == nil || r.Judgment != judge.TracesDoNotExplain {
		t.Fatalf("expected r0..r1 unexplained, got %+v", res.Pairs[0])
	}
	if r := res.Pairs[1].Report; r == nil || r.Judgment != judge.TracesExplain {
		t.Fatalf("expected r0..r2 explained, got %+v", res.Pairs[1])
	}
	if res.Pairs[2].Report != nil || res.Pairs[2].Error == "" {
		t.Fatalf("expected missing run to fail only its pair, got %+v", res.Pairs[2])
	}

	got := map[string]coverage.Classification{}
	for name, e := range res.Matrix {
		got[name] = e.Classification()
	}
	want := map[string]coverage.Classification{
		"format": coverage.ObservableInResults,
		"order":  coverage.ObservableInTraces,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("classification mismatch (-want +got):\n%s", diff)
	}

	for loc, n := range loader.calls {
		if n != 1 {
			t.Fatalf("expected %s loaded once, got %d", loc, n)
		}
	}
}

func TestService_Aggregate_AllReportsConfoundedPairs(t *testing.T) {
	loader, locations := aggregateRuns()
	s := NewService(loader, nil, nil, WithWorkers(2))

	res, err := s.Aggregate(context.Background(), locations[:3], PairsAll, CompareOptions{})
	if err != nil {
		t.Fatal(err)
	}
	last := res.Pairs[2]
	if diff := cmp.Diff([]string{"format", "order"}, last.Confounded); diff != "" {
		t.Fatalf("confounded mismatch (-want +got):\n%s", diff)
	}
	if len(res.Matrix["format"].Evidence) != 1 {
		t.Fatalf("confounded pair must not add evidence: %+v", res.Matrix["format"])
	}
}

func TestService_Aggregate_MatchesSequentialReduce(t *testing.T) {
	loader, locations := aggregateRuns()

	par, err := NewService(loader, nil, nil, WithWorkers(8)).Aggregate(context.Background(), locations[:3], PairsAll, CompareOptions{})
	if err != nil {
		t.Fatal(err)
	}
	seq, err := NewService(loader, nil, nil).Aggregate(context.Background(), locations[:3], PairsAll, CompareOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(seq.Matrix, par.Matrix); diff != "" {
		t.Fatalf("parallel and sequential matrices differ (-seq +par):\n%s", diff)
	}
}

func TestService_Aggregate_Errors(t *testing.T) {
	loader, locations := aggregateRuns()
	s := NewService(loader, nil, nil, WithWorkers(2))

	if _, err := s.Aggregate(context.Background(), locations[:1], PairsAll, CompareOptions{}); err == nil {
		t.Fatalf("expected error for a single run")
	}
	if _, err := s.Aggregate(context.Background(), locations, "random", CompareOptions{}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Aggregate(ctx, locations, PairsAll, CompareOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAggregateReports(t *testing.T) {
	loader, locations := aggregateRuns()
	s := NewService(loader, nil, nil)

	var reports []*report.Report
	for _, loc := range locations[1:3] {
		r, err := s.Compare(context.Background(), locations[0], loc)
		if err != nil {
			t.Fatal(err)
		}
		reports = append(reports, r)
	}

	m, outcomes := AggregateReports(reports)
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if diff := cmp.Diff([]string{"format", "order"}, m.Variables()); diff != "" {
		t.Fatalf("variables mismatch (-want +got):\n%s", diff)
	}
	if m["format"].Judgments[judge.TracesDoNotExplain] != 1 {
		t.Fatalf("expected one unexplained judgment for format: %+v", m["format"])
	}
}
