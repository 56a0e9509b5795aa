package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/awmpietro/golang-trace-explainability-case/internal/app"
	"github.com/awmpietro/golang-trace-explainability-case/internal/config"
	"github.com/awmpietro/golang-trace-explainability-case/internal/logging"
	"github.com/awmpietro/golang-trace-explainability-case/internal/telemetry"
	"github.com/awmpietro/golang-trace-explainability-case/internal/transport/lambdatransport"
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

	shutdown, err := telemetry.Init(context.Background(), cfg.OTLPEndpoint, "explaindiff-lambda")
	if err != nil {
		logger.Fatal("init telemetry", zap.Error(err))
	}
	defer func() { _ = shutdown(context.Background()) }()

	svc, cleanup, err := app.Setup(cfg, profile, logger)
	if err != nil {
		logger.Fatal("setup service", zap.Error(err))
	}
	defer cleanup()

	h := lambdatransport.NewHandler(svc)
	lambda.Start(h.Explain)
}
