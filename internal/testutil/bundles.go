package testutil

// Fixture bundles shaped like the offline export of the training pipeline:
// amount is standard-scaled with mean 10000 and scale 20000, risk_rating and
// region are one-hot encoded, giving a 7-wide vector.

// ClassifierBundleJSON is a logistic model where a High-risk North America
// transfer of 50000 scores z = 2.9.
const ClassifierBundleJSON = `{
  "kind": "classifier",
  "version": "v1",
  "preprocessor": {"transformers": [
    {"name": "num", "type": "standard_scaler", "columns": ["amount"], "mean": [10000], "scale": [20000]},
    {"name": "cat", "type": "one_hot", "columns": ["risk_rating", "region"],
     "categories": [["High", "Low", "Medium"], ["Asia", "Europe", "North America"]],
     "handle_unknown": "ignore"}
  ]},
  "classifier": {"type": "logistic_regression", "classes": [0, 1],
    "coef": [0.8, 1.2, -1.0, 0.1, 0.2, -0.3, 0.5], "intercept": -0.4}
}`

// NeutralClassifierBundleJSON has zero weights, so every input scores
// probability exactly 0.5.
const NeutralClassifierBundleJSON = `{
  "kind": "classifier",
  "version": "v0-neutral",
  "preprocessor": {"transformers": [
    {"name": "num", "type": "standard_scaler", "columns": ["amount"], "mean": [10000], "scale": [20000]},
    {"name": "cat", "type": "one_hot", "columns": ["risk_rating", "region"],
     "categories": [["High", "Low", "Medium"], ["Asia", "Europe", "North America"]],
     "handle_unknown": "ignore"}
  ]},
  "classifier": {"type": "logistic_regression", "classes": [0, 1],
    "coef": [0, 0, 0, 0, 0, 0, 0], "intercept": 0}
}`

// DetectorBundleJSON isolates any amount whose scaled value exceeds 1.5
// (above 40000) in a single split.
const DetectorBundleJSON = `{
  "kind": "outlier_detector",
  "version": "v1",
  "preprocessor": {"transformers": [
    {"name": "num", "type": "standard_scaler", "columns": ["amount"], "mean": [10000], "scale": [20000]},
    {"name": "cat", "type": "one_hot", "columns": ["risk_rating", "region"],
     "categories": [["High", "Low", "Medium"], ["Asia", "Europe", "North America"]],
     "handle_unknown": "ignore"}
  ]},
  "detector": {"type": "isolation_forest", "offset": -0.6, "max_samples": 256, "contamination": 0.05,
    "trees": [
      {"nodes": [
        {"feature": 0, "threshold": 1.5, "left": 1, "right": 2, "n_samples": 256},
        {"feature": -1, "n_samples": 200},
        {"feature": -1, "n_samples": 1}
      ]},
      {"features": [0], "nodes": [
        {"feature": 0, "threshold": 1.5, "left": 1, "right": 2, "n_samples": 256},
        {"feature": -1, "n_samples": 200},
        {"feature": -1, "n_samples": 1}
      ]}
    ]}
}`

// ScenarioRequestFields is the reference transaction used across tests.
var ScenarioRequestFields = map[string]interface{}{
	"amount":           50000,
	"risk_rating":      "High",
	"region":           "North America",
	"hour_of_day":      14,
	"transaction_type": "Transfer",
}
