package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/coverage"
	"github.com/awmpietro/golang-trace-explainability-case/internal/report"
)

type PairMode string

const (
	// PairsAll compares every unordered pair of runs.
	PairsAll PairMode = "all"
	// PairsBaseline compares the first run against each of the others.
	PairsBaseline PairMode = "baseline"
)

// Pairs returns the index pairs compared for n runs under mode.
func Pairs(n int, mode PairMode) ([][2]int, error) {
	var out [][2]int
	switch mode {
	case PairsAll, "":
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				out = append(out, [2]int{i, j})
			}
		}
	case PairsBaseline:
		for j := 1; j < n; j++ {
			out = append(out, [2]int{0, j})
		}
	default:
		return nil, fmt.Errorf("unknown pair mode %q", mode)
	}
	return out, nil
}

// PairOutcome is what became of one pair during aggregation. Exactly one of
// Report and Error is set.
type PairOutcome struct {
	A          string         `json:"run_a"`
	B          string         `json:"run_b"`
	Report     *report.Report `json:"report,omitempty"`
	Confounded []string       `json:"confounded,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type AggregateResult struct {
	Matrix coverage.Matrix `json:"matrix"`
	Pairs  []PairOutcome   `json:"pairs"`
}

// Aggregate compares the pairs of locations selected by mode on at most
// Workers goroutines and folds the attributable ones into a coverage matrix.
// A run that fails to load only fails the pairs it belongs to.
func (s *Service) Aggregate(ctx context.Context, locations []string, mode PairMode, opts CompareOptions) (*AggregateResult, error) {
	if len(locations) < 2 {
		return nil, errors.New("aggregate needs at least two runs")
	}
	pairs, err := Pairs(len(locations), mode)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalogFor(opts.CatalogDOT)
	if err != nil {
		return nil, err
	}
	coercible := s.coercibleFor(opts)

	runs, loadErrs, err := s.loadAll(ctx, locations)
	if err != nil {
		return nil, err
	}

	partials := make([]coverage.Matrix, len(pairs))
	outcomes := make([]PairOutcome, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		outcomes[i] = PairOutcome{A: locations[p[0]], B: locations[p[1]]}
		g.Go(func() error {
			if err := errors.Join(loadErrs[p[0]], loadErrs[p[1]]); err != nil {
				outcomes[i].Error = err.Error()
				return nil
			}
			r, err := s.compare(gctx, runs[p[0]], runs[p[1]], catalog, coercible)
			if err != nil {
				return err
			}
			outcomes[i].Report = r
			partials[i], outcomes[i].Confounded = evidence(r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &AggregateResult{Matrix: coverage.Reduce(partials...), Pairs: outcomes}
	s.logger.Info("aggregation finished",
		zap.Int("runs", len(locations)),
		zap.Int("pairs", len(pairs)),
		zap.Int("variables", len(res.Matrix)))
	return res, nil
}

// loadAll loads every location once. Artifact errors are returned per run;
// any other error aborts.
func (s *Service) loadAll(ctx context.Context, locations []string) ([]*artifact.Run, []error, error) {
	runs := make([]*artifact.Run, len(locations))
	errs := make([]error, len(locations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, loc := range locations {
		g.Go(func() error {
			run, err := s.load(gctx, loc)
			var ae *artifact.ArtifactError
			switch {
			case errors.As(err, &ae):
				errs[i] = err
			case err != nil:
				return err
			default:
				runs[i] = run
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return runs, errs, nil
}

// AggregateReports folds previously written reports into a matrix.
func AggregateReports(reports []*report.Report) (coverage.Matrix, []PairOutcome) {
	partials := make([]coverage.Matrix, len(reports))
	outcomes := make([]PairOutcome, len(reports))
	for i, r := range reports {
		outcomes[i] = PairOutcome{A: r.RunA.Location, B: r.RunB.Location, Report: r}
		partials[i], outcomes[i].Confounded = evidence(r)
	}
	return coverage.Reduce(partials...), outcomes
}

// evidence is the partial matrix contributed by one report, or the
// confounding variables when none can be attributed.
func evidence(r *report.Report) (coverage.Matrix, []string) {
	ev, err := coverage.Attribute(r.Pair())
	var ce *coverage.ConfoundedError
	switch {
	case errors.As(err, &ce):
		return nil, ce.Variables
	case err != nil:
		return nil, nil
	}
	return coverage.Observe(coverage.Matrix{}, ev), nil
}
