package app

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/config"
	"github.com/awmpietro/golang-trace-explainability-case/internal/decision"
	"github.com/awmpietro/golang-trace-explainability-case/internal/decision/cache"
	"github.com/awmpietro/golang-trace-explainability-case/internal/telemetry"
)

// OpenLoader returns the loader for the configured store. The returned close
// function must be called when done.
func OpenLoader(rt config.Runtime) (artifact.Loader, func() error, error) {
	switch rt.Store {
	case "", config.StoreDir:
		return artifact.NewDirLoader(), func() error { return nil }, nil
	case config.StoreSQLite:
		st, err := artifact.OpenSQLite(rt.DB)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", rt.Store)
	}
}

// Setup wires a Service from runtime config and an audit profile. The
// returned cleanup flushes pending stage observations and closes the store.
func Setup(rt config.Runtime, profile config.Profile, logger *zap.Logger) (*Service, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loader, closeLoader, err := OpenLoader(rt)
	if err != nil {
		return nil, nil, err
	}

	compiler := decision.NewCompiler()
	opts := []Option{
		WithLogger(logger),
		WithWorkers(rt.Workers),
		WithCoercibleFields(profile.CoercibleFields),
	}

	if profile.Catalog != "" {
		dot, err := os.ReadFile(profile.Catalog)
		if err != nil {
			_ = closeLoader()
			return nil, nil, fmt.Errorf("read catalog: %w", err)
		}
		catalog, err := compiler.Compile(string(dot))
		if err != nil {
			_ = closeLoader()
			return nil, nil, fmt.Errorf("catalog %s: %w", profile.Catalog, err)
		}
		opts = append(opts, WithCatalog(catalog))
	}

	recorder, err := telemetry.NewRecorder(telemetry.Meter())
	if err != nil {
		_ = closeLoader()
		return nil, nil, err
	}
	observer := telemetry.NewAsyncStageObserver(
		telemetry.Multi{telemetry.NewStageLogger(logger), recorder},
		rt.ObsBuffer,
	)
	opts = append(opts, WithStageObserver(observer), WithJudgmentRecorder(recorder))

	svc := NewService(loader, compiler, cache.NewInMemory(rt.CatalogCacheMax), opts...)

	cleanup := func() {
		observer.Close()
		if n := observer.Dropped(); n > 0 {
			logger.Warn("stage observations dropped", zap.Uint64("dropped", n))
		}
		if err := closeLoader(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}
	return svc, cleanup, nil
}
