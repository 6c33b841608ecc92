package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cafe-backoffice/internal/apperr"
	"cafe-backoffice/internal/models"
)

type identityKey struct{}

// WithIdentity attaches the authenticated caller to ctx.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// Identity returns the caller attached by WithIdentity.
func Identity(r *http.Request) (models.Identity, error) {
	id, ok := r.Context().Value(identityKey{}).(models.Identity)
	if !ok {
		return models.Identity{}, apperr.Unauthorized("authentication required")
	}
	return id, nil
}

// PathUUID parses the chi URL parameter name.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.InvalidInput("%s must be a valid id", name)
	}
	return id, nil
}

// QueryUUID parses an optional query parameter. The pointer is nil when the
// parameter is absent.
func QueryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.InvalidInput("%s must be a valid id", name)
	}
	return &id, nil
}

// RequiredQueryUUID is QueryUUID for mandatory parameters.
func RequiredQueryUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := QueryUUID(r, name)
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, apperr.InvalidInput("%s is required", name)
	}
	return *id, nil
}

// QueryInt returns def when the parameter is absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidInput("%s must be an integer", name)
	}
	return n, nil
}

// QueryTime parses RFC 3339 timestamps or plain dates. With endOfDay a
// plain date covers the whole day.
func QueryTime(r *http.Request, name string, endOfDay bool) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, apperr.InvalidInput("%s is required", name)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("%s must be an RFC 3339 timestamp or a YYYY-MM-DD date", name)
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return d, nil
}
