package http

import (
	"encoding/json"
	"net/http"

	"github.com/km-arc/go-webbeans/framework/errors"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with JSON helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// List sends 200 JSON: {"data": items, "count": len}
func (res *Response) List(items any, count int) {
	res.JSON(http.StatusOK, envelope{"data": items, "count": count})
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	res.Error(http.StatusNotFound, first(message, "Not found."))
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	res.Error(http.StatusInternalServerError, first(message, "Server Error."))
}

// DeploymentError sends the status matching the error code with the error
// causes listed under "errors".
//
//	res.DeploymentError(err) // 409 {"code": "AMBIGUOUS", "message": ..., "errors": [...]}
func (res *Response) DeploymentError(err error) {
	var de *errors.DeploymentError
	if !errors.As(err, &de) {
		res.ServerError(err.Error())
		return
	}
	body := envelope{"code": de.Code, "message": de.Message}
	if de.Type != "" {
		body["type"] = de.Type
	}
	if len(de.Causes) > 0 {
		causes := make([]string, len(de.Causes))
		for i, c := range de.Causes {
			causes[i] = c.Error()
		}
		body["errors"] = causes
	}
	res.JSON(statusOf(de.Code), body)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}

func statusOf(code string) int {
	switch code {
	case errors.CodeUnsatisfied:
		return http.StatusNotFound
	case errors.CodeAmbiguous:
		return http.StatusConflict
	case errors.CodeContextNotActive:
		return http.StatusServiceUnavailable
	case errors.CodeDeployment, errors.CodeDefinition:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
