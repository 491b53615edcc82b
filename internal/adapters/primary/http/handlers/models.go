package handlers

import (
	"net/http"

	"model-serving-service/internal/adapters/primary/http/dto"
	"model-serving-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListModels(c *gin.Context) {
	items := dto.ToModelStatusResponses(h.registry.Status())

	c.JSON(http.StatusOK, dto.ListModelsResponse{
		Items: items,
		Total: len(items),
	})
}

func (h *Handler) GetModel(c *gin.Context) {
	kind, err := domain.ParseModelKind(c.Param("model"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	for _, s := range h.registry.Status() {
		if s.Kind == kind {
			c.JSON(http.StatusOK, dto.ToModelStatusResponse(s))
			return
		}
	}
	mapDomainError(c, domain.ErrModelNotLoaded)
}

func (h *Handler) Health(c *gin.Context) {
	if h.registry.FullyDegraded() {
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{Status: "unavailable"})
		return
	}

	status := "ok"
	for _, kind := range domain.ModelKinds {
		if h.registry.State(kind) != domain.SlotLoaded {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, dto.HealthResponse{
		Status: status,
		Models: dto.ToModelStatusResponses(h.registry.Status()),
	})
}
