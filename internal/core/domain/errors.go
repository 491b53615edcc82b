package domain

import "errors"

// ============================================================================
// Model Slot Errors
// ============================================================================

var (
	// ErrModelNotLoaded is the text every caller of an unavailable slot receives.
	ErrModelNotLoaded    = errors.New("Model not loaded")
	ErrUnknownModelKind  = errors.New("unknown model kind")
	ErrArtifactNotFound  = errors.New("model artifact not found")
	ErrArtifactKind      = errors.New("artifact kind does not match slot")
	ErrStoreNotAvailable = errors.New("artifact store not available")
)

// ============================================================================
// Bundle Errors
// ============================================================================

var (
	ErrInvalidBundle        = errors.New("invalid model bundle")
	ErrUnsupportedEstimator = errors.New("unsupported estimator type")
	ErrUnsupportedEncoding  = errors.New("unsupported categorical encoding")
)

// ============================================================================
// Inference Errors
// ============================================================================

var (
	// ErrMalformedFeatureInput means a request field is missing, of the wrong
	// type or out of range. Raised before any model is touched.
	ErrMalformedFeatureInput = errors.New("malformed feature input")

	// ErrTransformMismatch means the adapted features do not fit what the
	// artifact's transform or estimator expects. Artifact compatibility defect.
	ErrTransformMismatch = errors.New("transform mismatch")
)
