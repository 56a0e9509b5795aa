package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/awmpietro/golang-trace-explainability-case/internal/app"
	"github.com/awmpietro/golang-trace-explainability-case/internal/config"
	"github.com/awmpietro/golang-trace-explainability-case/internal/logging"
	"github.com/awmpietro/golang-trace-explainability-case/internal/telemetry"
	"github.com/awmpietro/golang-trace-explainability-case/internal/transport/httptransport"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	profile, err := config.LoadProfile(cfg.Profile)
	if err != nil {
		logger.Fatal("load profile", zap.Error(err))
	}
	cfg = profile.Apply(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.OTLPEndpoint, "explaindiff-http")
	if err != nil {
		logger.Fatal("init telemetry", zap.Error(err))
	}

	svc, cleanup, err := app.Setup(cfg, profile, logger)
	if err != nil {
		logger.Fatal("setup service", zap.Error(err))
	}
	defer cleanup()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	httptransport.NewHandler(svc).RegisterRoutes(e)

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown", zap.Error(err))
	}
}
