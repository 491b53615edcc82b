package ports

import (
	"time"

	"model-serving-service/internal/core/domain"
)

// Prediction outcomes reported to metrics.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeMalformed   = "malformed"
	OutcomeError       = "error"
)

// PredictionMetrics records inference telemetry.
type PredictionMetrics interface {
	ObservePrediction(kind domain.ModelKind, outcome string, positive bool, elapsed time.Duration)
	SetSlotState(kind domain.ModelKind, state domain.SlotState)
}
