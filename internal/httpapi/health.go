package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"cafe-backoffice/internal/logger"
)

const checkTimeout = 2 * time.Second

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Health serves GET /health. Every registered check must pass for a 200.
type Health struct {
	service string
	checks  map[string]Check
	logger  *logger.Logger
	now     func() time.Time
}

func NewHealth(service string, log *logger.Logger) *Health {
	return &Health{
		service: service,
		checks:  make(map[string]Check),
		logger:  log,
		now:     time.Now,
	}
}

// Register adds a named check. Registering a name twice replaces it.
func (h *Health) Register(name string, check Check) {
	h.checks[name] = check
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			healthy = false
			results[name] = err.Error()
			h.logger.Error("health_check_failed", "Dependency check failed", logger.RequestID(r.Context()), err,
				map[string]interface{}{"check": name})
			continue
		}
		results[name] = "ok"
	}

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"service":   h.service,
		"healthy":   healthy,
		"checks":    results,
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		response["status"] = "unhealthy"
	}
	_ = json.NewEncoder(w).Encode(response)
}
