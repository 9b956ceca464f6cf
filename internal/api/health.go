package api

import (
	"context"
	"net/http"
)

// HealthChecker reports reachability of the session store tiers.
// Implemented by chat.Service.
type HealthChecker interface {
	Health(ctx context.Context) (cacheOK, durableOK bool)
}

// HealthHandler handles the health endpoint.
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// RegisterRoutes registers the health route on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /llm_chat/health", h.health)
}

// health reports overall and per-dependency status. The service stays
// "healthy" while at least the durable tier is reachable, matching the
// degraded-but-working behavior of the session store.
func (h *HealthHandler) health(w http.ResponseWriter, r *http.Request) {
	cacheOK, durableOK := h.checker.Health(r.Context())

	status := "healthy"
	code := http.StatusOK
	if !durableOK {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status": status,
		"dependencies": map[string]string{
			"redis":    healthWord(cacheOK),
			"postgres": healthWord(durableOK),
		},
	})
}

func healthWord(ok bool) string {
	if ok {
		return "healthy"
	}
	return "unhealthy"
}
