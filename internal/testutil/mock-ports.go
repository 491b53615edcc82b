package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"model-serving-service/internal/core/domain"
)

// MockArtifactStore is a mock of ArtifactStore.
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockArtifactStore) Describe() string {
	return "mock://artifacts"
}

// MockPredictionMetrics is a mock of PredictionMetrics.
type MockPredictionMetrics struct {
	mock.Mock
}

func (m *MockPredictionMetrics) ObservePrediction(kind domain.ModelKind, outcome string, positive bool, elapsed time.Duration) {
	m.Called(kind, outcome, positive, elapsed)
}

func (m *MockPredictionMetrics) SetSlotState(kind domain.ModelKind, state domain.SlotState) {
	m.Called(kind, state)
}

// MockTransform is a mock of domain.Transform.
type MockTransform struct {
	mock.Mock
}

func (m *MockTransform) Columns() []domain.FeatureColumn {
	args := m.Called()
	return args.Get(0).([]domain.FeatureColumn)
}

func (m *MockTransform) Width() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockTransform) Apply(row domain.FeatureRow) ([]float64, error) {
	args := m.Called(row)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

// MockClassifier is a mock of domain.Classifier.
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) InputWidth() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockClassifier) PositiveProbability(x []float64) (float64, error) {
	args := m.Called(x)
	return args.Get(0).(float64), args.Error(1)
}

// MockDetector is a mock of domain.OutlierDetector.
type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) InputWidth() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockDetector) Predict(x []float64) (int, error) {
	args := m.Called(x)
	return args.Int(0), args.Error(1)
}

func (m *MockDetector) ScoreSample(x []float64) (float64, error) {
	args := m.Called(x)
	return args.Get(0).(float64), args.Error(1)
}

// TrainingColumns is the column layout of every fixture bundle.
var TrainingColumns = []domain.FeatureColumn{
	{Name: domain.FieldAmount, Type: domain.FeatureNumeric},
	{Name: domain.FieldRiskRating, Type: domain.FeatureCategorical},
	{Name: domain.FieldRegion, Type: domain.FeatureCategorical},
}

// ScenarioRequest is the reference transaction used across tests.
func ScenarioRequest() domain.InferenceRequest {
	return domain.InferenceRequest{
		Amount:          50000,
		RiskRating:      "High",
		Region:          "North America",
		HourOfDay:       14,
		TransactionType: "Transfer",
	}
}
