package domain

import "fmt"

// ModelKind names one of the registry's fixed prediction slots.
type ModelKind string

const (
	ModelKindSLABreach ModelKind = "sla_breach"
	ModelKindFailure   ModelKind = "failure"
	ModelKindAnomaly   ModelKind = "anomaly"
)

// ModelKinds lists every slot in registry order.
var ModelKinds = []ModelKind{ModelKindSLABreach, ModelKindFailure, ModelKindAnomaly}

func ParseModelKind(s string) (ModelKind, error) {
	for _, k := range ModelKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModelKind, s)
}

// ArtifactKind selects the inference path for an artifact.
type ArtifactKind string

const (
	ArtifactKindClassifier      ArtifactKind = "classifier"
	ArtifactKindOutlierDetector ArtifactKind = "outlier_detector"
)

// RequiredArtifactKind returns the artifact kind a slot accepts.
func (k ModelKind) RequiredArtifactKind() ArtifactKind {
	if k == ModelKindAnomaly {
		return ArtifactKindOutlierDetector
	}
	return ArtifactKindClassifier
}

// Detector sentinel outputs.
const (
	OutlierSentinel = -1
	InlierSentinel  = 1
)

// Transform is a fitted preprocessing step mapping raw request columns to the
// numeric vector an estimator was trained on.
type Transform interface {
	// Columns reports the input columns the transform was fit against.
	Columns() []FeatureColumn
	// Width is the length of the vector Apply produces.
	Width() int
	Apply(row FeatureRow) ([]float64, error)
}

// Classifier is a binary estimator.
type Classifier interface {
	InputWidth() int
	// PositiveProbability is the probability of the positive class, in [0,1].
	PositiveProbability(x []float64) (float64, error)
}

// OutlierDetector is an unsupervised density-style estimator.
type OutlierDetector interface {
	InputWidth() int
	// Predict returns OutlierSentinel or InlierSentinel.
	Predict(x []float64) (int, error)
	// ScoreSample returns the raw score; lower is more anomalous.
	ScoreSample(x []float64) (float64, error)
}

// ModelArtifact is an immutable, loaded-once bundle. Exactly one of
// Classifier or Detector is set, matching Kind.
type ModelArtifact struct {
	Kind       ArtifactKind
	Version    string
	Transform  Transform
	Classifier Classifier
	Detector   OutlierDetector

	// Contamination is informational; the detector's decision offset already
	// encodes it.
	Contamination float64
}
