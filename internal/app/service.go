// internal/app/service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/decision"
	"github.com/awmpietro/golang-trace-explainability-case/internal/diff"
	"github.com/awmpietro/golang-trace-explainability-case/internal/judge"
	"github.com/awmpietro/golang-trace-explainability-case/internal/normalize"
	"github.com/awmpietro/golang-trace-explainability-case/internal/report"
	"github.com/awmpietro/golang-trace-explainability-case/internal/telemetry"
)

type Compiler interface {
	Compile(dot string) (*decision.Catalog, error)
}

type Cache interface {
	GetOrCompute(dot string, fn func() (*decision.Catalog, error)) (*decision.Catalog, error)
}

type JudgmentRecorder interface {
	RecordJudgment(ctx context.Context, judgment string)
}

// Names used for the two sides of a comparison in warnings and findings.
const (
	SideA = "A"
	SideB = "B"
)

type Service struct {
	loader    artifact.Loader
	compiler  Compiler
	cache     Cache
	logger    *zap.Logger
	observer  telemetry.StageObserver
	recorder  JudgmentRecorder
	workers   int
	coercible []string
	catalog   *decision.Catalog
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithStageObserver(o telemetry.StageObserver) Option {
	return func(s *Service) { s.observer = o }
}

func WithJudgmentRecorder(r JudgmentRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithWorkers bounds how many pairs Aggregate compares at once.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithCoercibleFields replaces the default integer coercion allow-list.
func WithCoercibleFields(fields []string) Option {
	return func(s *Service) { s.coercible = fields }
}

// WithCatalog sets the catalog used when a request does not bring its own.
func WithCatalog(c *decision.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

func NewService(loader artifact.Loader, compiler Compiler, cache Cache, opts ...Option) *Service {
	s := &Service{
		loader:   loader,
		compiler: compiler,
		cache:    cache,
		logger:   zap.NewNop(),
		workers:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CompareOptions struct {
	CatalogDOT      string
	CoercibleFields []string
}

func (s *Service) Compare(ctx context.Context, locA, locB string) (*report.Report, error) {
	return s.CompareWith(ctx, locA, locB, CompareOptions{})
}

// CompareWith loads both runs and compares them. Load failures come back as
// *artifact.ArtifactError.
func (s *Service) CompareWith(ctx context.Context, locA, locB string, opts CompareOptions) (*report.Report, error) {
	catalog, err := s.catalogFor(opts.CatalogDOT)
	if err != nil {
		return nil, err
	}

	a, err := s.load(ctx, locA)
	if err != nil {
		return nil, err
	}
	b, err := s.load(ctx, locB)
	if err != nil {
		return nil, err
	}
	return s.compare(ctx, a, b, catalog, s.coercibleFor(opts))
}

// CompareRuns compares two runs that are already loaded.
func (s *Service) CompareRuns(ctx context.Context, a, b *artifact.Run, opts CompareOptions) (*report.Report, error) {
	catalog, err := s.catalogFor(opts.CatalogDOT)
	if err != nil {
		return nil, err
	}
	return s.compare(ctx, a, b, catalog, s.coercibleFor(opts))
}

func (s *Service) compare(ctx context.Context, a, b *artifact.Run, catalog *decision.Catalog, coercible []string) (*report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	outA := normalize.Output(a.Results, a.Config, coercible)
	outB := normalize.Output(b.Results, b.Config, coercible)
	traceA := normalize.Trace(a.Trace)
	traceB := normalize.Trace(b.Trace)
	s.observe(telemetry.StageNormalize, start)

	var warnings []normalize.Warning
	warnings = append(warnings, normalize.Tag(outA.Warnings, SideA)...)
	warnings = append(warnings, normalize.Tag(traceA.Warnings, SideA)...)
	warnings = append(warnings, normalize.Tag(outB.Warnings, SideB)...)
	warnings = append(warnings, normalize.Tag(traceB.Warnings, SideB)...)

	start = time.Now()
	out := diff.Results(outA.Records, outB.Records)
	trace := diff.Traces(traceA.Events, traceB.Events)
	s.observe(telemetry.StageDiff, start)

	variables := a.Config.Diff(b.Config)

	start = time.Now()
	verdict, err := judge.Explain(judge.Input{
		A:         judge.Side{Name: SideA, Config: a.Config, Events: traceA.Events},
		B:         judge.Side{Name: SideB, Config: b.Config, Events: traceB.Events},
		Output:    out,
		Trace:     trace,
		Variables: variables,
		Catalog:   catalog,
	})
	s.observe(telemetry.StageJudge, start)
	if err != nil {
		return nil, fmt.Errorf("judge %s vs %s: %w", a.ID, b.ID, err)
	}

	r := report.New(a, b, variables, out, trace, verdict, warnings)

	if s.recorder != nil {
		s.recorder.RecordJudgment(ctx, string(r.Judgment))
	}
	s.logger.Info("runs compared",
		zap.String("report_id", r.ID),
		zap.String("run_a", a.ID),
		zap.String("run_b", b.ID),
		zap.String("judgment", string(r.Judgment)),
		zap.Strings("variables", variables),
		zap.Int("findings", len(r.Findings)),
		zap.Int("warnings", len(r.Warnings)))

	return r, nil
}

func (s *Service) load(ctx context.Context, location string) (*artifact.Run, error) {
	start := time.Now()
	run, err := s.loader.Load(ctx, location)
	s.observe(telemetry.StageLoad, start)
	if err != nil {
		var ae *artifact.ArtifactError
		if errors.As(err, &ae) {
			s.logger.Warn("run artifact rejected", zap.String("location", location), zap.Error(err))
		}
		return nil, err
	}
	return run, nil
}

// catalogFor compiles dot through the cache, or falls back to the
// configured catalog when dot is empty.
func (s *Service) catalogFor(dot string) (*decision.Catalog, error) {
	if dot == "" {
		return s.catalog, nil
	}
	if s.compiler == nil {
		return nil, errors.New("no catalog compiler configured")
	}
	compile := func() (*decision.Catalog, error) { return s.compiler.Compile(dot) }
	if s.cache == nil {
		return compile()
	}
	return s.cache.GetOrCompute(dot, compile)
}

func (s *Service) coercibleFor(opts CompareOptions) []string {
	if opts.CoercibleFields != nil {
		return opts.CoercibleFields
	}
	return s.coercible
}

func (s *Service) observe(stage string, start time.Time) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveStage(stage, time.Since(start))
}
