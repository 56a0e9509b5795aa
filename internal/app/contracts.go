package app

import (
	"context"

	"github.com/awmpietro/golang-trace-explainability-case/internal/report"
)

// ExplainService is what the transports need from the service.
type ExplainService interface {
	CompareWith(ctx context.Context, locA, locB string, opts CompareOptions) (*report.Report, error)
	Aggregate(ctx context.Context, locations []string, mode PairMode, opts CompareOptions) (*AggregateResult, error)
}
