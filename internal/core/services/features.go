package services

import (
	"fmt"
	"strconv"

	"model-serving-service/internal/core/domain"
)

// FeatureAdapter shapes a request into the column layout an artifact's
// transform was fit against. Request fields the transform does not ask for
// are ignored.
type FeatureAdapter struct{}

func NewFeatureAdapter() FeatureAdapter {
	return FeatureAdapter{}
}

// Adapt validates req and returns one value per column, in column order.
func (FeatureAdapter) Adapt(req domain.InferenceRequest, columns []domain.FeatureColumn) (domain.FeatureRow, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	row := make(domain.FeatureRow, 0, len(columns))
	for _, col := range columns {
		v, err := featureValue(req, col)
		if err != nil {
			return nil, err
		}
		row = append(row, v)
	}
	return row, nil
}

func featureValue(req domain.InferenceRequest, col domain.FeatureColumn) (domain.FeatureValue, error) {
	v := domain.FeatureValue{Column: col}

	switch col.Name {
	case domain.FieldAmount:
		if col.Type != domain.FeatureNumeric {
			return v, typeMismatch(col)
		}
		v.Number = req.Amount
	case domain.FieldHourOfDay:
		switch col.Type {
		case domain.FeatureNumeric:
			v.Number = float64(req.HourOfDay)
		case domain.FeatureCategorical:
			v.Category = strconv.Itoa(req.HourOfDay)
		default:
			return v, typeMismatch(col)
		}
	case domain.FieldRiskRating, domain.FieldRegion, domain.FieldTransactionType:
		if col.Type != domain.FeatureCategorical {
			return v, typeMismatch(col)
		}
		v.Category = categoricalField(req, col.Name)
	default:
		return v, fmt.Errorf("%w: transform expects column %q which requests do not carry", domain.ErrTransformMismatch, col.Name)
	}
	return v, nil
}

func categoricalField(req domain.InferenceRequest, name string) string {
	switch name {
	case domain.FieldRiskRating:
		return req.RiskRating
	case domain.FieldRegion:
		return req.Region
	default:
		return req.TransactionType
	}
}

func typeMismatch(col domain.FeatureColumn) error {
	return fmt.Errorf("%w: column %q cannot be encoded as %s", domain.ErrTransformMismatch, col.Name, col.Type)
}
