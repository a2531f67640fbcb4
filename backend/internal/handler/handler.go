package handler

import (
	"context"
	"net/http"

	"github.com/goteo-dev/goteo/backend/internal/service"
	"github.com/goteo-dev/goteo/shared/config"
	"github.com/goteo-dev/goteo/shared/utils"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	matcher service.MatcherService
	message service.MessageService
	health  HealthChecker
	cfg     *config.Config
}

func New(matcher service.MatcherService, message service.MessageService, health HealthChecker, cfg *config.Config) *Handler {
	return &Handler{
		matcher: matcher,
		message: message,
		health:  health,
		cfg:     cfg,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	utils.WriteJSON(w, http.StatusOK, v)
}
