package lambdatransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/awmpietro/golang-trace-explainability-case/internal/app"
	"github.com/awmpietro/golang-trace-explainability-case/internal/transport/explaindto"
)

type Handler struct {
	svc app.ExplainService
}

func NewHandler(svc app.ExplainService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Explain(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if m := req.RequestContext.HTTP.Method; m != "" && m != http.MethodPost {
		return jsonResp(http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"}), nil
	}

	body, err := readBody(req)
	if err != nil {
		return jsonResp(http.StatusBadRequest, explaindto.ErrorBody("invalid body", err)), nil
	}

	var in explaindto.ExplainRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return jsonResp(http.StatusBadRequest, explaindto.ErrorBody("invalid json", err)), nil
	}
	if err := in.Validate(); err != nil {
		return jsonResp(http.StatusBadRequest, explaindto.ErrorBody("invalid request", err)), nil
	}

	r, err := h.svc.CompareWith(ctx, in.RunA, in.RunB, in.Options())
	if err != nil {
		return jsonResp(explaindto.Status(err), explaindto.ErrorBody("explain failed", err)), nil
	}
	return jsonResp(http.StatusOK, r), nil
}

func readBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func jsonResp(status int, body any) events.APIGatewayV2HTTPResponse {
	b, _ := json.Marshal(body)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(b),
	}
}
