package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"keijiban-backend/utils"
)

var startTime = time.Now()

// Pinger vérifie la disponibilité du stockage
type Pinger interface {
	Ping(ctx context.Context) error
	Name() string
}

// HealthHandler gère les endpoints de santé
type HealthHandler struct {
	environment string
	store       Pinger
}

// NewHealthHandler crée un nouveau HealthHandler
func NewHealthHandler(environment string, store Pinger) *HealthHandler {
	return &HealthHandler{environment: environment, store: store}
}

// Health retourne l'état de santé du serveur
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, dbStatus, code := "ok", "ok", http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		status, dbStatus, code = "degraded", "error", http.StatusServiceUnavailable
	}

	utils.RespondJSON(w, code, map[string]interface{}{
		"status":     status,
		"env":        h.environment,
		"database":   h.store.Name(),
		"db_status":  dbStatus,
		"uptime":     time.Since(startTime).Round(time.Second).String(),
		"go_version": runtime.Version(),
	})
}
