package handlers

import (
	"fmt"
	"net/http"
	"time"

	"model-serving-service/internal/adapters/primary/http/dto"
	"model-serving-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) PredictSLA(c *gin.Context) {
	h.predict(c, domain.ModelKindSLABreach)
}

func (h *Handler) PredictFailure(c *gin.Context) {
	h.predict(c, domain.ModelKindFailure)
}

func (h *Handler) DetectAnomaly(c *gin.Context) {
	h.predict(c, domain.ModelKindAnomaly)
}

func (h *Handler) predict(c *gin.Context, kind domain.ModelKind) {
	start := time.Now()

	var req dto.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.engine.ObserveMalformed(kind)
		mapDomainError(c, fmt.Errorf("%w: %v", domain.ErrMalformedFeatureInput, err))
		return
	}

	result, err := h.engine.Predict(kind, req.ToInferenceRequest())
	if err != nil {
		mapDomainError(c, err)
		return
	}

	if unavailable, ok := result.(*domain.UnavailableResult); ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": unavailable.Error})
		return
	}

	c.JSON(http.StatusOK, dto.ToPredictionResponse(result, time.Since(start)))
}
