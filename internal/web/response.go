// Package web holds the HTTP plumbing shared by the service handlers:
// the response envelope, error-to-status mapping, request decoding and
// the caller identity stored in the request context.
package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"cafe-backoffice/internal/apperr"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/validation"
)

// Response is the envelope of every API reply.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Kind    apperr.Kind `json:"kind,omitempty"`
}

// JSON writes a successful envelope.
func JSON(w http.ResponseWriter, status int, message string, data interface{}) {
	write(w, status, Response{Success: true, Message: message, Data: data})
}

func write(w http.ResponseWriter, status int, body Response) {
	data, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidState:
		return http.StatusUnprocessableEntity
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error writes the failure envelope for err. Internal errors are logged
// with their cause; the caller only sees the fixed message.
func Error(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Error("request_failed", "Unhandled error while serving request", logger.RequestID(r.Context()), err,
			map[string]interface{}{"method": r.Method, "path": r.URL.Path})
	}
	write(w, StatusOf(kind), Response{Success: false, Message: apperr.Message(err), Kind: kind})
}

// Decode reads a JSON body into dst and validates it.
func Decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidInput("request body is required")
		}
		return apperr.InvalidInput("invalid request body: %v", err)
	}
	return validation.Struct(dst)
}
