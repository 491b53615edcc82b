package domain

// Result is the outcome of one prediction call. It is exactly one of
// *ClassifierResult, *AnomalyResult or *UnavailableResult.
type Result interface {
	isResult()
}

type ClassifierResult struct {
	Prediction   int     `json:"prediction"`
	Probability  float64 `json:"probability"`
	ModelVersion string  `json:"model_version"`
}

type AnomalyResult struct {
	IsAnomaly    int     `json:"is_anomaly"`
	AnomalyScore float64 `json:"anomaly_score"`
	ModelVersion string  `json:"model_version"`
}

// UnavailableResult is returned instead of a prediction when the slot never
// reached Loaded.
type UnavailableResult struct {
	Error string `json:"error"`
}

func (*ClassifierResult) isResult()  {}
func (*AnomalyResult) isResult()     {}
func (*UnavailableResult) isResult() {}

// NewUnavailableResult builds the fixed unavailable payload.
func NewUnavailableResult() *UnavailableResult {
	return &UnavailableResult{Error: ErrModelNotLoaded.Error()}
}

// SlotState is the per-slot degradation state. Both states are terminal for
// the process lifetime.
type SlotState string

const (
	SlotLoaded      SlotState = "Loaded"
	SlotUnavailable SlotState = "Unavailable"
)
