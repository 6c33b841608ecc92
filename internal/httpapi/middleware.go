package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cafe-backoffice/internal/apperr"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/metrics"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/web"
)

const RequestIDHeader = "X-Request-ID"

// RequestID takes the caller's X-Request-ID or generates one, echoes it on
// the response and stores it for logger.RequestID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = logger.GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// Observe logs every request at debug level and records its duration
// labelled with the matched route pattern.
func Observe(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := logger.RequestID(r.Context())

			log.Debug("request_started", fmt.Sprintf("%s %s", r.Method, r.URL.Path), requestID, map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"user_agent":  r.UserAgent(),
			})

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			elapsed := time.Since(start)
			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).
				Observe(elapsed.Seconds())

			log.Debug("request_completed", fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode), requestID,
				map[string]interface{}{
					"method":      r.Method,
					"route":       route,
					"status_code": rw.statusCode,
					"duration_ms": elapsed.Milliseconds(),
				})
		})
	}
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Claims is the bearer token body. Tokens are issued elsewhere.
type Claims struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate verifies the HS256 bearer token and attaches the caller's
// identity to the request.
func Authenticate(secret []byte, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				web.Error(w, r, log, apperr.Unauthorized("authentication required"))
				return
			}
			id, err := ParseToken(raw, secret)
			if err != nil {
				log.Debug("auth_failed", "Rejected bearer token", logger.RequestID(r.Context()),
					map[string]interface{}{"path": r.URL.Path, "reason": apperr.Message(err)})
				web.Error(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(web.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// ParseToken validates raw and maps its claims onto an Identity.
func ParseToken(raw string, secret []byte) (models.Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Identity{}, apperr.Unauthorized("invalid token")
	}

	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return models.Identity{}, apperr.Unauthorized("token has no valid tenantId")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return models.Identity{}, apperr.Unauthorized("token has no valid userId")
	}
	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return models.Identity{}, apperr.Unauthorized("token has no valid role")
	}
	return models.Identity{TenantID: tenantID, UserID: userID, Role: role}, nil
}
