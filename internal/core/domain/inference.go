package domain

import (
	"fmt"
	"math"
)

// Request field names as used by the training pipeline.
const (
	FieldAmount          = "amount"
	FieldRiskRating      = "risk_rating"
	FieldRegion          = "region"
	FieldHourOfDay       = "hour_of_day"
	FieldTransactionType = "transaction_type"
)

// InferenceRequest is one transaction to score. HourOfDay and
// TransactionType are part of the contract even when no artifact reads them.
type InferenceRequest struct {
	Amount          float64
	RiskRating      string
	Region          string
	HourOfDay       int
	TransactionType string
}

// Validate checks the request once at the boundary. Categorical values are
// free text: an empty one is just a category no transform has seen.
func (r InferenceRequest) Validate() error {
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrMalformedFeatureInput, FieldAmount)
	}
	if r.HourOfDay < 0 || r.HourOfDay > 23 {
		return fmt.Errorf("%w: %s must be between 0 and 23, got %d", ErrMalformedFeatureInput, FieldHourOfDay, r.HourOfDay)
	}
	return nil
}

type FeatureType string

const (
	FeatureNumeric     FeatureType = "numeric"
	FeatureCategorical FeatureType = "categorical"
)

// FeatureColumn is one input column a transform was fit against.
type FeatureColumn struct {
	Name string
	Type FeatureType
}

// FeatureValue holds Number for numeric columns and Category for
// categorical ones.
type FeatureValue struct {
	Column   FeatureColumn
	Number   float64
	Category string
}

// FeatureRow is a single adapted record, ordered like Transform.Columns.
type FeatureRow []FeatureValue

// Lookup finds a value by column name.
func (r FeatureRow) Lookup(name string) (FeatureValue, bool) {
	for _, v := range r {
		if v.Column.Name == name {
			return v, true
		}
	}
	return FeatureValue{}, false
}
