package httptransport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/awmpietro/golang-trace-explainability-case/internal/app"
	"github.com/awmpietro/golang-trace-explainability-case/internal/transport/explaindto"
)

type Handler struct {
	svc app.ExplainService
}

func NewHandler(svc app.ExplainService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.POST("/v1/explain", h.Explain)
	e.POST("/v1/coverage", h.Coverage)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Explain compares two runs.
// POST /v1/explain
func (h *Handler) Explain(c echo.Context) error {
	var in explaindto.ExplainRequest
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, explaindto.ErrorBody("invalid json", err))
	}
	if err := in.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, explaindto.ErrorBody("invalid request", err))
	}

	r, err := h.svc.CompareWith(c.Request().Context(), in.RunA, in.RunB, in.Options())
	if err != nil {
		return c.JSON(explaindto.Status(err), explaindto.ErrorBody("explain failed", err))
	}
	return c.JSON(http.StatusOK, r)
}

// Coverage aggregates a set of runs into a coverage matrix.
// POST /v1/coverage
func (h *Handler) Coverage(c echo.Context) error {
	var in explaindto.CoverageRequest
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, explaindto.ErrorBody("invalid json", err))
	}
	if err := in.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, explaindto.ErrorBody("invalid request", err))
	}

	res, err := h.svc.Aggregate(c.Request().Context(), in.Runs, in.Mode(), in.Options())
	if err != nil {
		return c.JSON(explaindto.Status(err), explaindto.ErrorBody("coverage failed", err))
	}
	return c.JSON(http.StatusOK, explaindto.NewCoverageResponse(res))
}
