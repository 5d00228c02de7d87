package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/simple-presign/pkg/simplepresign"
)

// MaxRequestBodyBytes bounds the size of a presign request body
const MaxRequestBodyBytes = 64 << 10

const msgSigningFailedTmpl = "%s signing failed"

// PresignHandler serves POST /presign
type PresignHandler struct {
	service simplepresign.Service
}

func NewPresignHandler(service simplepresign.Service) *PresignHandler {
	return &PresignHandler{service: service}
}

// Routes returns the router for presign endpoints
func (h *PresignHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.MethodNotAllowed(MethodNotAllowed)
	r.Post("/", h.Presign)
	return r
}

// Presign issues an upload URL, and a download URL for the same key.
func (h *PresignHandler) Presign(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes))
	if err != nil {
		slog.Warn("Failed to decode presign request", "request_id", middleware.GetReqID(r.Context()), "err", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, simplepresign.MsgBodyTooLarge)
			return
		}
		writeError(w, r, http.StatusBadRequest, simplepresign.MsgInvalidJSON)
		return
	}

	resp, err := h.service.Presign(r.Context(), req)
	if err != nil {
		status, msg := StatusFor(err)
		if status == http.StatusBadRequest {
			slog.Warn("Rejected presign request", "request_id", middleware.GetReqID(r.Context()), "err", err)
		} else {
			slog.Error("Presign request failed", "request_id", middleware.GetReqID(r.Context()), "err", err)
		}
		writeError(w, r, status, msg)
		return
	}

	render.JSON(w, r, resp)
}

// decodeRequest reads exactly one JSON object. An empty body decodes to the
// zero request; anything after the first value is rejected.
func decodeRequest(body io.Reader) (simplepresign.PresignRequest, error) {
	var req simplepresign.PresignRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		return req, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after request object")
		}
		return req, err
	}
	return req, nil
}

// StatusFor maps a service error to an HTTP status and a client-safe message.
func StatusFor(err error) (int, string) {
	var signErr *simplepresign.SigningError
	switch {
	case errors.Is(err, simplepresign.ErrInvalidInput):
		return http.StatusBadRequest, simplepresign.MsgFileNameRequired
	case errors.Is(err, simplepresign.ErrCredentialUnavailable):
		return http.StatusInternalServerError, simplepresign.ErrCredentialUnavailable.Error()
	case errors.As(err, &signErr):
		return http.StatusInternalServerError, fmt.Sprintf(msgSigningFailedTmpl, signErr.Backend)
	case errors.Is(err, simplepresign.ErrUnsupportedMethod):
		return http.StatusMethodNotAllowed, simplepresign.MsgMethodNotAllowed
	default:
		return http.StatusInternalServerError, simplepresign.MsgInternal
	}
}

// MethodNotAllowed answers verbs the route does not serve
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	status, msg := StatusFor(simplepresign.ErrUnsupportedMethod)
	writeError(w, r, status, msg)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, simplepresign.ErrorResponse{Error: msg})
}
