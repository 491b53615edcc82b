package estimator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"model-serving-service/internal/core/domain"
)

const defaultBundleVersion = "v1"

// Bundle is the JSON export of one fitted pipeline.
type Bundle struct {
	Kind         string           `json:"kind"`
	Version      string           `json:"version"`
	Preprocessor PreprocessorSpec `json:"preprocessor"`
	Classifier   *ClassifierSpec  `json:"classifier,omitempty"`
	Detector     *DetectorSpec    `json:"detector,omitempty"`
}

type PreprocessorSpec struct {
	Transformers []TransformerSpec `json:"transformers"`
}

type TransformerSpec struct {
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Columns       []string   `json:"columns"`
	Mean          []float64  `json:"mean,omitempty"`
	Scale         []float64  `json:"scale,omitempty"`
	Categories    [][]string `json:"categories,omitempty"`
	HandleUnknown string     `json:"handle_unknown,omitempty"`
}

type ClassifierSpec struct {
	Type      string    `json:"type"`
	Classes   []int     `json:"classes"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

type DetectorSpec struct {
	Type          string     `json:"type"`
	Offset        float64    `json:"offset"`
	MaxSamples    int        `json:"max_samples"`
	Contamination float64    `json:"contamination,omitempty"`
	Trees         []TreeSpec `json:"trees"`
}

type TreeSpec struct {
	Features []int      `json:"features,omitempty"`
	Nodes    []NodeSpec `json:"nodes"`
}

type NodeSpec struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	NSamples  int     `json:"n_samples"`
}

// DecodeBundle parses and validates a JSON bundle into an immutable artifact.
func DecodeBundle(data []byte) (*domain.ModelArtifact, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var b Bundle
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", domain.ErrInvalidBundle, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after bundle", domain.ErrInvalidBundle)
	}
	return b.Build()
}

// Build assembles the transform and estimator described by the bundle.
func (b *Bundle) Build() (*domain.ModelArtifact, error) {
	transform, err := buildTransform(b.Preprocessor)
	if err != nil {
		return nil, err
	}

	version := b.Version
	if version == "" {
		version = defaultBundleVersion
	}
	artifact := &domain.ModelArtifact{
		Kind:      domain.ArtifactKind(b.Kind),
		Version:   version,
		Transform: transform,
	}

	switch artifact.Kind {
	case domain.ArtifactKindClassifier:
		if b.Detector != nil {
			return nil, fmt.Errorf("%w: classifier bundle carries a detector", domain.ErrInvalidBundle)
		}
		clf, err := buildClassifier(b.Classifier, transform.Width())
		if err != nil {
			return nil, err
		}
		artifact.Classifier = clf
	case domain.ArtifactKindOutlierDetector:
		if b.Classifier != nil {
			return nil, fmt.Errorf("%w: detector bundle carries a classifier", domain.ErrInvalidBundle)
		}
		det, err := buildDetector(b.Detector, transform.Width())
		if err != nil {
			return nil, err
		}
		artifact.Detector = det
		artifact.Contamination = b.Detector.Contamination
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidBundle, b.Kind)
	}

	return artifact, nil
}

func buildTransform(spec PreprocessorSpec) (*ColumnTransformer, error) {
	steps := make([]columnStep, 0, len(spec.Transformers))
	for _, ts := range spec.Transformers {
		switch ts.Type {
		case "standard_scaler":
			s, err := NewStandardScaler(ts.Columns, ts.Mean, ts.Scale)
			if err != nil {
				return nil, fmt.Errorf("transformer %q: %w", ts.Name, err)
			}
			steps = append(steps, s)
		case "one_hot":
			e, err := NewOneHotEncoder(ts.Columns, ts.Categories, ts.HandleUnknown)
			if err != nil {
				return nil, fmt.Errorf("transformer %q: %w", ts.Name, err)
			}
			steps = append(steps, e)
		default:
			return nil, fmt.Errorf("transformer %q: %w: %q", ts.Name, domain.ErrUnsupportedEstimator, ts.Type)
		}
	}
	return NewColumnTransformer(steps...)
}

func buildClassifier(spec *ClassifierSpec, width int) (*LogisticRegression, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: classifier section missing", domain.ErrInvalidBundle)
	}
	if spec.Type != "logistic_regression" {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedEstimator, spec.Type)
	}
	// PositiveProbability reports classes[1], which must be the positive label.
	if len(spec.Classes) != 2 || spec.Classes[0] != 0 || spec.Classes[1] != 1 {
		return nil, fmt.Errorf("%w: binary classifier classes must be [0, 1], got %v", domain.ErrInvalidBundle, spec.Classes)
	}
	if len(spec.Coef) != width {
		return nil, fmt.Errorf("%w: %d coefficients for transform width %d", domain.ErrTransformMismatch, len(spec.Coef), width)
	}
	return NewLogisticRegression(spec.Coef, spec.Intercept)
}

func buildDetector(spec *DetectorSpec, width int) (*IsolationForest, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: detector section missing", domain.ErrInvalidBundle)
	}
	if spec.Type != "isolation_forest" {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedEstimator, spec.Type)
	}
	trees := make([]IsolationTree, len(spec.Trees))
	for i, ts := range spec.Trees {
		nodes := make([]TreeNode, len(ts.Nodes))
		for j, n := range ts.Nodes {
			nodes[j] = TreeNode{
				Feature:   n.Feature,
				Threshold: n.Threshold,
				Left:      n.Left,
				Right:     n.Right,
				NSamples:  n.NSamples,
			}
		}
		trees[i] = IsolationTree{Nodes: nodes, Features: ts.Features}
	}
	return NewIsolationForest(trees, spec.Offset, spec.MaxSamples, width)
}
