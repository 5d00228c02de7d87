// Package gateway adapts the presign service to an API Gateway HTTP API
// (payload v2) function. It answers CORS preflight itself and signs only
// the upload URL.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/tendant/simple-presign/pkg/simplepresign"
)

// CORS headers sent on every response
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type,Authorization",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
}

// Response is the success body of the function
type Response struct {
	UploadURL string `json:"uploadUrl"`
	FileID    string `json:"fileId"`
}

// Handler serves gateway events with a presign service
type Handler struct {
	service simplepresign.Service
}

// NewHandler wraps service. The service should be built with
// simplepresign.WithDownloadURL(false); any GET URL it signs is discarded.
func NewHandler(service simplepresign.Service) *Handler {
	return &Handler{service: service}
}

// Handle is the function entry point passed to lambda.Start.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(req.RequestContext.HTTP.Method)
	if method == "" {
		method = http.MethodGet
	}

	switch method {
	case http.MethodOptions:
		return respond(http.StatusNoContent, nil)
	case http.MethodPost:
		return h.presign(ctx, req)
	default:
		slog.Warn("Rejected gateway request", "method", method, "request_id", req.RequestContext.RequestID)
		return errorFor(simplepresign.ErrUnsupportedMethod)
	}
}

func (h *Handler) presign(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			slog.Warn("Failed to decode base64 body", "request_id", req.RequestContext.RequestID, "err", err)
			return errorResponse(http.StatusBadRequest, simplepresign.MsgInvalidJSON)
		}
		body = string(decoded)
	}
	if strings.TrimSpace(body) == "" {
		body = "{}"
	}

	var in simplepresign.PresignRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		slog.Warn("Failed to decode presign request", "request_id", req.RequestContext.RequestID, "err", err)
		return errorResponse(http.StatusBadRequest, simplepresign.MsgInvalidJSON)
	}

	resp, err := h.service.Presign(ctx, in)
	if err != nil {
		if !errors.Is(err, simplepresign.ErrInvalidInput) {
			slog.Error("Presign request failed", "request_id", req.RequestContext.RequestID, "err", err)
		}
		return errorFor(err)
	}

	return respond(http.StatusOK, Response{
		UploadURL: resp.UploadURL,
		FileID:    resp.Key,
	})
}

func respond(status int, v any) (events.APIGatewayV2HTTPResponse, error) {
	headers := make(map[string]string, len(corsHeaders)+1)
	for k, val := range corsHeaders {
		headers[k] = val
	}

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    headers,
	}
	if v == nil {
		return out, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	headers["Content-Type"] = "application/json"
	out.Body = string(b)
	return out, nil
}

// errorFor maps err to a status and message. Server-side failures never
// leak details.
func errorFor(err error) (events.APIGatewayV2HTTPResponse, error) {
	switch {
	case errors.Is(err, simplepresign.ErrInvalidInput):
		return errorResponse(http.StatusBadRequest, simplepresign.MsgFileNameRequired)
	case errors.Is(err, simplepresign.ErrUnsupportedMethod):
		return errorResponse(http.StatusMethodNotAllowed, simplepresign.MsgMethodNotAllowed)
	default:
		return errorResponse(http.StatusInternalServerError, simplepresign.MsgInternal)
	}
}

func errorResponse(status int, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return respond(status, simplepresign.ErrorResponse{Error: msg})
}
