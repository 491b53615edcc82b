package dto

import (
	"time"

	"model-serving-service/internal/core/domain"
	"model-serving-service/internal/core/services"
)

// PredictionRequest mirrors the transaction fields the models were trained on.
// Required fields are pointers so that a zero value (0 or "") still counts as
// present.
type PredictionRequest struct {
	Amount          *float64 `json:"amount" binding:"required"`
	RiskRating      *string  `json:"risk_rating" binding:"required"`
	Region          *string  `json:"region" binding:"required"`
	HourOfDay       *int     `json:"hour_of_day" binding:"required,min=0,max=23"`
	TransactionType string   `json:"transaction_type"`
}

func (r PredictionRequest) ToInferenceRequest() domain.InferenceRequest {
	req := domain.InferenceRequest{TransactionType: r.TransactionType}
	if r.RiskRating != nil {
		req.RiskRating = *r.RiskRating
	}
	if r.Region != nil {
		req.Region = *r.Region
	}
	if r.Amount != nil {
		req.Amount = *r.Amount
	}
	if r.HourOfDay != nil {
		req.HourOfDay = *r.HourOfDay
	}
	return req
}

type Meta struct {
	ExecutionTimeMs float64 `json:"execution_time_ms"`
}

type PredictionResponse struct {
	Success bool          `json:"success"`
	Data    domain.Result `json:"data"`
	Meta    Meta          `json:"meta"`
}

func ToPredictionResponse(result domain.Result, elapsed time.Duration) PredictionResponse {
	return PredictionResponse{
		Success: true,
		Data:    result,
		Meta:    Meta{ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000},
	}
}

type ModelStatusResponse struct {
	Model         string  `json:"model"`
	State         string  `json:"state"`
	Artifact      string  `json:"artifact"`
	ArtifactKind  string  `json:"artifact_kind,omitempty"`
	Version       string  `json:"version,omitempty"`
	Source        string  `json:"source,omitempty"`
	Contamination float64 `json:"contamination,omitempty"`
	LoadedAt      string  `json:"loaded_at,omitempty"`
	Error         string  `json:"error,omitempty"`
}

type ListModelsResponse struct {
	Items []ModelStatusResponse `json:"items"`
	Total int                   `json:"total"`
}

type HealthResponse struct {
	Status string                `json:"status"`
	Models []ModelStatusResponse `json:"models,omitempty"`
}

func ToModelStatusResponse(s services.SlotStatus) ModelStatusResponse {
	resp := ModelStatusResponse{
		Model:         string(s.Kind),
		State:         string(s.State),
		Artifact:      s.Artifact,
		ArtifactKind:  string(s.ArtifactKind),
		Version:       s.Version,
		Source:        s.Source,
		Contamination: s.Contamination,
		Error:         s.Error,
	}
	if !s.LoadedAt.IsZero() {
		resp.LoadedAt = s.LoadedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func ToModelStatusResponses(statuses []services.SlotStatus) []ModelStatusResponse {
	out := make([]ModelStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, ToModelStatusResponse(s))
	}
	return out
}
