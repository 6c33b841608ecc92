package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-backoffice/internal/apperr"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/models"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindInvalidInput, http.StatusBadRequest},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindInvalidState, http.StatusUnprocessableEntity},
		{apperr.KindUnauthorized, http.StatusUnauthorized},
		{apperr.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.kind))
		})
	}
}

func TestError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	Error(rec, req, logger.Nop(), errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "internal server error", body.Message)
	assert.Equal(t, apperr.KindInternal, body.Kind)
}

func TestError_ConflictEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)

	Error(rec, req, logger.Nop(), apperr.Conflict("invoice already exists"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"invoice already exists","kind":"CONFLICT"}`, rec.Body.String())
}

func TestDecode(t *testing.T) {
	type body struct {
		Name string `json:"name" validate:"required"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"ok", `{"name":"latte"}`, ""},
		{"empty", ``, "request body is required"},
		{"malformed", `{"name":`, "invalid request body"},
		{"validation", `{}`, "name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var dst body
			err := Decode(req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "latte", dst.Name)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
			assert.Contains(t, apperr.Message(err), tt.wantErr)
		})
	}
}

func TestIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := Identity(req)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	want := models.Identity{TenantID: uuid.New(), UserID: uuid.New(), Role: models.RoleStaff}
	req = req.WithContext(WithIdentity(req.Context(), want))
	got, err := Identity(req)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	rctx.URLParams.Add("bad", "nope")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := PathUUID(req, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = PathUUID(req, "bad")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestQueryTime(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?start=2026-03-01&end=2026-03-31&at=2026-03-01T10:00:00Z&bad=yesterday", nil)

	start, err := QueryTime(req, "start", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)

	end, err := QueryTime(req, "end", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 999999999, time.UTC), end)

	at, err := QueryTime(req, "at", true)
	require.NoError(t, err)
	assert.Equal(t, 10, at.Hour())

	_, err = QueryTime(req, "bad", false)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = QueryTime(req, "missing", false)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=x", nil)

	page, err := QueryInt(req, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	def, err := QueryInt(req, "size", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, def)

	_, err = QueryInt(req, "limit", 20)
	assert.Error(t, err)
}
