package explaindto

import (
	"errors"
	"net/http"

	"github.com/awmpietro/golang-trace-explainability-case/internal/app"
	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/coverage"
)

// ExplainRequest names two runs by location: a directory, or a run id when
// the server reads from the SQLite store.
type ExplainRequest struct {
	RunA            string   `json:"run_a"`
	RunB            string   `json:"run_b"`
	CatalogDOT      string   `json:"catalog_dot,omitempty"`
	CoercibleFields []string `json:"coercible_fields,omitempty"`
}

func (r ExplainRequest) Validate() error {
	if r.RunA == "" || r.RunB == "" {
		return errors.New("run_a and run_b are required")
	}
	return nil
}

func (r ExplainRequest) Options() app.CompareOptions {
	return app.CompareOptions{CatalogDOT: r.CatalogDOT, CoercibleFields: r.CoercibleFields}
}

type CoverageRequest struct {
	Runs            []string `json:"runs"`
	Pairs           string   `json:"pairs,omitempty"`
	CatalogDOT      string   `json:"catalog_dot,omitempty"`
	CoercibleFields []string `json:"coercible_fields,omitempty"`
}

func (r CoverageRequest) Validate() error {
	if len(r.Runs) < 2 {
		return errors.New("runs must name at least two runs")
	}
	switch app.PairMode(r.Pairs) {
	case "", app.PairsAll, app.PairsBaseline:
		return nil
	}
	return errors.New(`pairs must be "all" or "baseline"`)
}

func (r CoverageRequest) Mode() app.PairMode {
	if r.Pairs == "" {
		return app.PairsAll
	}
	return app.PairMode(r.Pairs)
}

func (r CoverageRequest) Options() app.CompareOptions {
	return app.CompareOptions{CatalogDOT: r.CatalogDOT, CoercibleFields: r.CoercibleFields}
}

type CoverageResponse struct {
	Matrix          coverage.Matrix                    `json:"matrix"`
	Classifications map[string]coverage.Classification `json:"classifications"`
	Pairs           []app.PairOutcome                  `json:"pairs"`
}

func NewCoverageResponse(res *app.AggregateResult) CoverageResponse {
	out := CoverageResponse{
		Matrix:          res.Matrix,
		Classifications: make(map[string]coverage.Classification, len(res.Matrix)),
		Pairs:           res.Pairs,
	}
	for name, e := range res.Matrix {
		out.Classifications[name] = e.Classification()
	}
	return out
}

// Status maps a service error to an HTTP status. Rejected run artifacts are
// 422; anything else the caller sent is 400.
func Status(err error) int {
	var ae *artifact.ArtifactError
	if errors.As(err, &ae) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func ErrorBody(msg string, err error) map[string]any {
	return map[string]any{"error": msg, "details": err.Error()}
}
