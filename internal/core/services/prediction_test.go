package services

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"model-serving-service/internal/core/domain"
	"model-serving-service/internal/core/estimator"
	"model-serving-service/internal/core/ports/output"
	"model-serving-service/internal/testutil"
)

func decode(t *testing.T, payload string) *domain.ModelArtifact {
	t.Helper()
	a, err := estimator.DecodeBundle([]byte(payload))
	require.NoError(t, err)
	return a
}

func loadedEngine(t *testing.T) *PredictionEngine {
	t.Helper()
	r := NewModelRegistry(map[domain.ModelKind]*domain.ModelArtifact{
		domain.ModelKindSLABreach: decode(t, testutil.ClassifierBundleJSON),
		domain.ModelKindFailure:   decode(t, testutil.ClassifierBundleJSON),
		domain.ModelKindAnomaly:   decode(t, testutil.DetectorBundleJSON),
	})
	return NewPredictionEngine(r, DefaultDecisionThreshold, nil)
}

// mockArtifact wires mock pieces that fail the test if touched without an
// expectation.
func mockArtifact(kind domain.ArtifactKind) (*domain.ModelArtifact, *testutil.MockTransform, *testutil.MockClassifier, *testutil.MockDetector) {
	tr := new(testutil.MockTransform)
	clf := new(testutil.MockClassifier)
	det := new(testutil.MockDetector)
	a := &domain.ModelArtifact{Kind: kind, Version: "mock", Transform: tr}
	if kind == domain.ArtifactKindClassifier {
		a.Classifier = clf
	} else {
		a.Detector = det
	}
	return a, tr, clf, det
}

// ============================================================================
// Classifier Path Tests
// ============================================================================

func TestPredictionEngine_ScenarioA_SLABreach(t *testing.T) {
	engine := loadedEngine(t)

	result, err := engine.PredictSLABreach(testutil.ScenarioRequest())
	require.NoError(t, err)

	r, ok := result.(*domain.ClassifierResult)
	require.True(t, ok, "expected classifier result, got %T", result)
	assert.InDelta(t, 1/(1+math.Exp(-2.9)), r.Probability, 1e-12)
	assert.Equal(t, 1, r.Prediction)
	assert.Equal(t, "v1", r.ModelVersion)
}

func TestPredictionEngine_ProbabilityRangeAndRule(t *testing.T) {
	engine := loadedEngine(t)

	requests := []domain.InferenceRequest{
		testutil.ScenarioRequest(),
		{Amount: 0, RiskRating: "Low", Region: "Europe", HourOfDay: 0},
		{Amount: -1e9, RiskRating: "Medium", Region: "Asia", HourOfDay: 23},
		{Amount: 1e12, RiskRating: "High", Region: "Mars", HourOfDay: 3, TransactionType: "Wire"},
	}

	for _, req := range requests {
		for _, predict := range []func(domain.InferenceRequest) (domain.Result, error){engine.PredictSLABreach, engine.PredictFailure} {
			result, err := predict(req)
			require.NoError(t, err)
			r := result.(*domain.ClassifierResult)
			assert.GreaterOrEqual(t, r.Probability, 0.0)
			assert.LessOrEqual(t, r.Probability, 1.0)
			assert.Equal(t, r.Probability > 0.5, r.Prediction == 1)
		}
	}
}

func TestPredictionEngine_ThresholdBoundary(t *testing.T) {
	r := NewModelRegistry(map[domain.ModelKind]*domain.ModelArtifact{
		domain.ModelKindSLABreach: decode(t, testutil.NeutralClassifierBundleJSON),
	})
	engine := NewPredictionEngine(r, DefaultDecisionThreshold, nil)

	result, err := engine.PredictSLABreach(testutil.ScenarioRequest())
	require.NoError(t, err)
	c := result.(*domain.ClassifierResult)
	assert.Equal(t, 0.5, c.Probability)
	assert.Equal(t, 0, c.Prediction, "exactly 0.5 is not a positive prediction")
	assert.Equal(t, "v0-neutral", c.ModelVersion)
}

func TestPredictionEngine_ConfigurableThreshold(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		threshold   float64
		expected    int
	}{
		{name: "just above default", probability: 0.5000001, threshold: 0.5, expected: 1},
		{name: "just below default", probability: 0.4999999, threshold: 0.5, expected: 0},
		{name: "raised threshold", probability: 0.7, threshold: 0.8, expected: 0},
		{name: "equal to raised threshold", probability: 0.8, threshold: 0.8, expected: 0},
		{name: "lowered threshold", probability: 0.3, threshold: 0.2, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, tr, clf, _ := mockArtifact(domain.ArtifactKindClassifier)
			tr.On("Columns").Return(testutil.TrainingColumns)
			tr.On("Apply", mock.Anything).Return([]float64{1, 2}, nil)
			tr.On("Width").Return(2)
			clf.On("PositiveProbability", []float64{1, 2}).Return(tt.probability, nil)

			engine := NewPredictionEngine(NewModelRegistry(map[domain.ModelKind]*domain.ModelArtifact{
				domain.ModelKindFailure: a,
			}), tt.threshold, nil)

			result, err := engine.PredictFailure(testutil.ScenarioRequest())
			require.NoError(t, err)
			c := result.(*domain.ClassifierResult)
			assert.Equal(t, tt.expected, c.Prediction)
			assert.Equal(t, tt.probability, c.Probability)
		})
	}
}

func TestPredictionEngine_RejectsOutOfRangeProbability(t *testing.T) {
	a, tr, clf, _ := mockArtifact(domain.ArtifactKindClassifier)
	tr.On("Columns").Return(testutil.TrainingColumns)
	tr.On("Apply", mock.Anything).Return([]float64{1}, nil)
	tr.On("Width").Return(1)
	clf.On("PositiveProbability", mock.Anything).Return(1.2, nil)

	engine := NewPredictionEngine(NewModelRegistry(map[domain.ModelKind]*domain.ModelArtifact{
		domain.ModelKindSLABreach: a,
	}), DefaultDecisionThreshold, nil)

	result, err := engine.PredictSLABreach(testutil.ScenarioRequest())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrTransformMismatch)
}

func TestPredictionEngine_UnknownCategory(t *testing.T) {
	engine := loadedEngine(t)
	req := testutil.ScenarioRequest()
	req.Region = "Mars"

	result, err := engine.PredictSLABreach(req)
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-2.4)), result.(*domain.ClassifierResult).Probability, 1e-12)

	result, err = engine.DetectAnomaly(req)
	require.NoError(t, err)
	assert.IsType(t, &domain.AnomalyResult{}, result)
}

// ============================================================================
// Outlier Path Tests
// ============================================================================

func TestPredictionEngine_ScenarioC_Anomaly(t *testing.T) {
	engine := loadedEngine(t)
	detector := decode(t, testutil.DetectorBundleJSON)

	tests := []struct {
		name     string
		req      domain.InferenceRequest
		expected int
	}{
		{name: "large transfer", req: testutil.ScenarioRequest(), expected: 1},
		{name: "routine payment", req: domain.InferenceRequest{Amount: 12000, RiskRating: "Low", Region: "Europe", HourOfDay: 9, TransactionType: "Payment"}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.DetectAnomaly(tt.req)
			require.NoError(t, err)
			r, ok := result.(*domain.AnomalyResult)
			require.True(t, ok, "expected anomaly result, got %T", result)

			row, err := NewFeatureAdapter().Adapt(tt.req, detector.Transform.Columns())
			require.NoError(t, err)
			x, err := detector.Transform.Apply(row)
			require.NoError(t, err)
			sentinel, err := detector.Detector.Predict(x)
			require.NoError(t, err)
			score, err := detector.Detector.ScoreSample(x)
			require.NoError(t, err)

			assert.Equal(t, tt.expected, r.IsAnomaly)
			assert.Equal(t, sentinel == domain.OutlierSentinel, r.IsAnomaly == 1)
			assert.Equal(t, score, r.AnomalyScore)
			assert.Equal(t, "v1", r.ModelVersion)
		})
	}
}

func TestPredictionEngine_AnomalySentinelAndRawScore(t *testing.T) {
	tests := []struct {
		name     string
		sentinel int
		score    float64
		expected int
	}{
		{name: "outlier", sentinel: domain.OutlierSentinel, score: -0.7123, expected: 1},
		{name: "inlier", sentinel: domain.InlierSentinel, score: -0.4111, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, tr, _, det := mockArtifact(domain.ArtifactKindOutlierDetector)
			tr.On("Columns").Return(testutil.TrainingColumns)
			tr.On("Apply", mock.Anything).Return([]float64{0.5}, nil)
			tr.On("Width").Return(1)
			det.On("Predict", []float64{0.5}).Return(tt.sentinel, nil)
			det.On("ScoreSample", []float64{0.5}).Return(tt.score, nil)

			engine := NewPredictionEngine(NewModelRegistry(map[domain.ModelKind]*domain.ModelArtifact{
				domain.ModelKindAnomaly: a,
			}), DefaultDecisionThreshold, nil)

			result, err := engine.DetectAnomaly(testutil.ScenarioRequest())
			require.NoError(t, err)
			r := result.(*domain.AnomalyResult)
			assert.Equal(t, tt.expected, r.IsAnomaly)
			assert.Equal(t, tt.score, r.AnomalyScore)
		})
	}
}

// ============================================================================
// Degradation Tests
// ============================================================================

func TestPredictionEngine_ScenarioB_Unavailable(t *testing.T) {
	metrics := new(testutil.MockPredictionMetrics)
	metrics.On("ObservePrediction", domain.ModelKindSLABreach, ports.OutcomeOK, true, mock.Anything).Return()
	metrics.On("ObservePrediction", domain.ModelKindFailure, ports.OutcomeUnavailable, false, mock.Anything).Return()

	r := NewModelRegistry(map[domain.ModelKind]*domain.ModelArtifact{
		domain.ModelKindSLABreach: decode(t, testutil.ClassifierBundleJSON),
	})
	engine := NewPredictionEngine(r, DefaultDecisionThreshold, metrics)

	for i := 0; i < 3; i++ {
		result, err := engine.PredictFailure(testutil.ScenarioRequest())
		require.NoError(t, err)
		assert.Equal(t, &domain.UnavailableResult{Error: "Model not loaded"}, result)
	}

	result, err := engine.PredictSLABreach(testutil.ScenarioRequest())
	require.NoError(t, err)
	assert.IsType(t, &domain.ClassifierResult{}, result)

	metrics.AssertNumberOfCalls(t, "ObservePrediction", 4)
}

func TestPredictionEngine_UnavailableNeverTouchesArtifact(t *testing.T) {
	source := new(mockSource)
	source.On("Get", domain.ModelKindAnomaly).Return(nil, false)

	engine := NewPredictionEngine(source, DefaultDecisionThreshold, nil)
	result, err := engine.DetectAnomaly(testutil.ScenarioRequest())

	require.NoError(t, err)
	assert.Equal(t, domain.NewUnavailableResult(), result)
	source.AssertExpectations(t)
}

func TestPredictionEngine_MalformedBeforeLookup(t *testing.T) {
	source := new(mockSource)
	engine := NewPredictionEngine(source, DefaultDecisionThreshold, nil)

	req := testutil.ScenarioRequest()
	req.HourOfDay = 24
	result, err := engine.PredictSLABreach(req)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrMalformedFeatureInput)
	source.AssertNotCalled(t, "Get", mock.Anything)
}

func TestPredictionEngine_TransformMismatch(t *testing.T) {
	a, tr, clf, _ := mockArtifact(domain.ArtifactKindClassifier)
	tr.On("Columns").Return([]domain.FeatureColumn{{Name: "merchant_id", Type: domain.FeatureCategorical}})

	engine := NewPredictionEngine(NewModelRegistry(map[domain.ModelKind]*domain.ModelArtifact{
		domain.ModelKindSLABreach: a,
	}), DefaultDecisionThreshold, nil)

	result, err := engine.PredictSLABreach(testutil.ScenarioRequest())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrTransformMismatch)
	tr.AssertNotCalled(t, "Apply", mock.Anything)
	clf.AssertNotCalled(t, "PositiveProbability", mock.Anything)
}

func TestPredictionEngine_WidthMismatch(t *testing.T) {
	a, tr, _, _ := mockArtifact(domain.ArtifactKindOutlierDetector)
	tr.On("Columns").Return(testutil.TrainingColumns)
	tr.On("Apply", mock.Anything).Return([]float64{1, 2, 3}, nil)
	tr.On("Width").Return(7)

	engine := NewPredictionEngine(NewModelRegistry(map[domain.ModelKind]*domain.ModelArtifact{
		domain.ModelKindAnomaly: a,
	}), DefaultDecisionThreshold, nil)

	_, err := engine.DetectAnomaly(testutil.ScenarioRequest())
	assert.ErrorIs(t, err, domain.ErrTransformMismatch)
}

// ============================================================================
// Determinism & Concurrency Tests
// ============================================================================

func TestPredictionEngine_Deterministic(t *testing.T) {
	engine := loadedEngine(t)
	req := testutil.ScenarioRequest()

	first, err := engine.PredictSLABreach(req)
	require.NoError(t, err)
	second, err := engine.PredictSLABreach(req)
	require.NoError(t, err)
	assert.Equal(t, math.Float64bits(first.(*domain.ClassifierResult).Probability),
		math.Float64bits(second.(*domain.ClassifierResult).Probability))

	a1, err := engine.DetectAnomaly(req)
	require.NoError(t, err)
	a2, err := engine.DetectAnomaly(req)
	require.NoError(t, err)
	assert.Equal(t, math.Float64bits(a1.(*domain.AnomalyResult).AnomalyScore),
		math.Float64bits(a2.(*domain.AnomalyResult).AnomalyScore))
}

func TestPredictionEngine_ConcurrentCalls(t *testing.T) {
	engine := loadedEngine(t)
	expected, err := engine.PredictSLABreach(testutil.ScenarioRequest())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]domain.Result, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = engine.PredictSLABreach(testutil.ScenarioRequest())
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, expected, r)
	}
}

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Get(kind domain.ModelKind) (*domain.ModelArtifact, bool) {
	args := m.Called(kind)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.ModelArtifact), args.Bool(1)
}

func TestPredictionEngine_ObserveMalformed(t *testing.T) {
	metrics := new(testutil.MockPredictionMetrics)
	metrics.On("ObservePrediction", domain.ModelKindAnomaly, ports.OutcomeMalformed, false, mock.Anything).Return().Once()

	engine := NewPredictionEngine(NewModelRegistry(nil), DefaultDecisionThreshold, metrics)
	engine.ObserveMalformed(domain.ModelKindAnomaly)

	metrics.AssertExpectations(t)
}
