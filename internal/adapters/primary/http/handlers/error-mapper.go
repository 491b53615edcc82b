package handlers

import (
	"errors"
	"net/http"

	"model-serving-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Bad request / validation errors
	case errors.Is(err, domain.ErrMalformedFeatureInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Not found errors
	case errors.Is(err, domain.ErrUnknownModelKind):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrModelNotLoaded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": domain.ErrModelNotLoaded.Error()})

	// Artifact defects are not the caller's fault
	case errors.Is(err, domain.ErrTransformMismatch):
		log.WithError(err).WithField("request_id", c.GetString("request_id")).Error("artifact incompatible with request features")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})

	default:
		log.WithError(err).WithField("request_id", c.GetString("request_id")).Error("unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
