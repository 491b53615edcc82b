package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"model-serving-service/internal/core/domain"
	"model-serving-service/internal/core/ports/output"
)

// DefaultDecisionThreshold is the positive-class cutoff used when none is
// configured. A probability must exceed it strictly.
const DefaultDecisionThreshold = 0.5

// ModelSource resolves a slot to its artifact. *ModelRegistry implements it.
type ModelSource interface {
	Get(kind domain.ModelKind) (*domain.ModelArtifact, bool)
}

// PredictionEngine runs a request through the artifact in the requested slot.
// It holds no mutable state and is safe for concurrent use.
type PredictionEngine struct {
	models    ModelSource
	adapter   FeatureAdapter
	threshold float64
	metrics   ports.PredictionMetrics
}

func NewPredictionEngine(models ModelSource, threshold float64, metrics ports.PredictionMetrics) *PredictionEngine {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &PredictionEngine{
		models:    models,
		adapter:   NewFeatureAdapter(),
		threshold: threshold,
		metrics:   metrics,
	}
}

func (e *PredictionEngine) PredictSLABreach(req domain.InferenceRequest) (domain.Result, error) {
	return e.Predict(domain.ModelKindSLABreach, req)
}

func (e *PredictionEngine) PredictFailure(req domain.InferenceRequest) (domain.Result, error) {
	return e.Predict(domain.ModelKindFailure, req)
}

func (e *PredictionEngine) DetectAnomaly(req domain.InferenceRequest) (domain.Result, error) {
	return e.Predict(domain.ModelKindAnomaly, req)
}

// ObserveMalformed records a request rejected before it reached Predict, such
// as one that failed to decode.
func (e *PredictionEngine) ObserveMalformed(kind domain.ModelKind) {
	e.metrics.ObservePrediction(kind, ports.OutcomeMalformed, false, 0)
}

// Predict validates req, then dispatches on the slot's artifact kind. An
// Unavailable slot yields an *UnavailableResult and a nil error; errors are
// reserved for malformed input and transform mismatches.
func (e *PredictionEngine) Predict(kind domain.ModelKind, req domain.InferenceRequest) (domain.Result, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		e.metrics.ObservePrediction(kind, ports.OutcomeMalformed, false, time.Since(start))
		return nil, err
	}

	artifact, ok := e.models.Get(kind)
	if !ok {
		e.metrics.ObservePrediction(kind, ports.OutcomeUnavailable, false, time.Since(start))
		return domain.NewUnavailableResult(), nil
	}

	var (
		result   domain.Result
		positive bool
		err      error
	)
	switch artifact.Kind {
	case domain.ArtifactKindClassifier:
		var r *domain.ClassifierResult
		r, err = e.classify(artifact, req)
		if err == nil {
			result, positive = r, r.Prediction == 1
		}
	case domain.ArtifactKindOutlierDetector:
		var r *domain.AnomalyResult
		r, err = e.detect(artifact, req)
		if err == nil {
			result, positive = r, r.IsAnomaly == 1
		}
	default:
		err = fmt.Errorf("%w: unknown artifact kind %q", domain.ErrTransformMismatch, artifact.Kind)
	}

	outcome := ports.OutcomeOK
	if err != nil {
		outcome = ports.OutcomeError
		if errors.Is(err, domain.ErrMalformedFeatureInput) {
			outcome = ports.OutcomeMalformed
		}
	}
	e.metrics.ObservePrediction(kind, outcome, positive, time.Since(start))

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *PredictionEngine) classify(a *domain.ModelArtifact, req domain.InferenceRequest) (*domain.ClassifierResult, error) {
	if a.Classifier == nil {
		return nil, fmt.Errorf("%w: classifier artifact has no estimator", domain.ErrTransformMismatch)
	}
	x, err := e.transform(a, req)
	if err != nil {
		return nil, err
	}

	p, err := a.Classifier.PositiveProbability(x)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, fmt.Errorf("%w: classifier produced probability %v", domain.ErrTransformMismatch, p)
	}

	prediction := 0
	if p > e.threshold {
		prediction = 1
	}
	return &domain.ClassifierResult{
		Prediction:   prediction,
		Probability:  p,
		ModelVersion: a.Version,
	}, nil
}

func (e *PredictionEngine) detect(a *domain.ModelArtifact, req domain.InferenceRequest) (*domain.AnomalyResult, error) {
	if a.Detector == nil {
		return nil, fmt.Errorf("%w: detector artifact has no estimator", domain.ErrTransformMismatch)
	}
	x, err := e.transform(a, req)
	if err != nil {
		return nil, err
	}

	sentinel, err := a.Detector.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	score, err := a.Detector.ScoreSample(x)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	isAnomaly := 0
	if sentinel == domain.OutlierSentinel {
		isAnomaly = 1
	}
	return &domain.AnomalyResult{
		IsAnomaly:    isAnomaly,
		AnomalyScore: score,
		ModelVersion: a.Version,
	}, nil
}

func (e *PredictionEngine) transform(a *domain.ModelArtifact, req domain.InferenceRequest) ([]float64, error) {
	if a.Transform == nil {
		return nil, fmt.Errorf("%w: artifact has no transform", domain.ErrTransformMismatch)
	}
	row, err := e.adapter.Adapt(req, a.Transform.Columns())
	if err != nil {
		return nil, err
	}
	x, err := a.Transform.Apply(row)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	if len(x) != a.Transform.Width() {
		return nil, fmt.Errorf("%w: transform produced %d features, declared %d", domain.ErrTransformMismatch, len(x), a.Transform.Width())
	}
	return x, nil
}
