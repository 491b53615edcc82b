package estimator

import (
	"fmt"
	"math"

	"model-serving-service/internal/core/domain"
)

// LogisticRegression is a fitted binary logistic model. The probability it
// reports belongs to the second fitted class.
type LogisticRegression struct {
	coef      []float64
	intercept float64
}

func NewLogisticRegression(coef []float64, intercept float64) (*LogisticRegression, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("%w: logistic_regression has no coefficients", domain.ErrInvalidBundle)
	}
	for i, c := range coef {
		if !finite(c) {
			return nil, fmt.Errorf("%w: logistic_regression coef[%d] is not finite", domain.ErrInvalidBundle, i)
		}
	}
	if !finite(intercept) {
		return nil, fmt.Errorf("%w: logistic_regression intercept is not finite", domain.ErrInvalidBundle)
	}
	return &LogisticRegression{coef: coef, intercept: intercept}, nil
}

func (m *LogisticRegression) InputWidth() int { return len(m.coef) }

func (m *LogisticRegression) PositiveProbability(x []float64) (float64, error) {
	if len(x) != len(m.coef) {
		return 0, fmt.Errorf("%w: logistic_regression expects %d features, got %d", domain.ErrTransformMismatch, len(m.coef), len(x))
	}
	z := m.intercept
	for i, c := range m.coef {
		z += c * x[i]
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

var _ domain.Classifier = (*LogisticRegression)(nil)
