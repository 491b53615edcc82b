package handlers

import (
	"model-serving-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	engine   *services.PredictionEngine
	registry *services.ModelRegistry
}

func New(engine *services.PredictionEngine, registry *services.ModelRegistry) *Handler {
	return &Handler{
		engine:   engine,
		registry: registry,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Predictions
	r.POST("/predict-sla", h.PredictSLA)
	r.POST("/predict-failure", h.PredictFailure)
	r.POST("/detect-anomaly", h.DetectAnomaly)

	// Model slots
	r.GET("/models", h.ListModels)
	r.GET("/models/:model", h.GetModel)
}

// RegisterHealth mounts the liveness endpoint outside the versioned group.
func (h *Handler) RegisterHealth(r gin.IRoutes) {
	r.GET("/healthz", h.Health)
}
