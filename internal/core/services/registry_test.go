package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"model-serving-service/internal/core/domain"
	"model-serving-service/internal/core/estimator"
	"model-serving-service/internal/testutil"
)

func newStore(payloads map[string]string, failures map[string]error) *testutil.MockArtifactStore {
	store := new(testutil.MockArtifactStore)
	for name, p := range payloads {
		store.On("Fetch", mock.Anything, name).Return([]byte(p), nil)
	}
	for name, err := range failures {
		store.On("Fetch", mock.Anything, name).Return(nil, err)
	}
	return store
}

func allPayloads() map[string]string {
	return map[string]string{
		"sla_model":     testutil.ClassifierBundleJSON,
		"failure_model": testutil.ClassifierBundleJSON,
		"anomaly_model": testutil.DetectorBundleJSON,
	}
}

// ============================================================================
// Loading Tests
// ============================================================================

func TestLoadModelRegistry_AllLoaded(t *testing.T) {
	store := newStore(allPayloads(), nil)
	metrics := new(testutil.MockPredictionMetrics)
	metrics.On("SetSlotState", mock.Anything, domain.SlotLoaded).Return()

	r := LoadModelRegistry(context.Background(), store, estimator.DecodeBundle, DefaultSlotSpecs(), metrics)

	for _, kind := range domain.ModelKinds {
		a, ok := r.Get(kind)
		require.True(t, ok, "slot %s should be loaded", kind)
		assert.Equal(t, "v1", a.Version)
		assert.Equal(t, kind.RequiredArtifactKind(), a.Kind)
	}
	assert.False(t, r.FullyDegraded())
	metrics.AssertNumberOfCalls(t, "SetSlotState", 3)

	status := r.Status()
	require.Len(t, status, 3)
	assert.Equal(t, domain.ModelKindSLABreach, status[0].Kind)
	assert.Equal(t, "mock://artifacts", status[0].Source)
	assert.Equal(t, 0.05, status[2].Contamination)
	assert.False(t, status[2].LoadedAt.IsZero())
}

func TestLoadModelRegistry_IndependentFailures(t *testing.T) {
	tests := []struct {
		name     string
		payloads map[string]string
		failures map[string]error
		decode   BundleDecoder
		failed   domain.ModelKind
		errText  string
	}{
		{
			name:     "missing artifact",
			payloads: map[string]string{"sla_model": testutil.ClassifierBundleJSON, "anomaly_model": testutil.DetectorBundleJSON},
			failures: map[string]error{"failure_model": domain.ErrArtifactNotFound},
			decode:   estimator.DecodeBundle,
			failed:   domain.ModelKindFailure,
			errText:  domain.ErrArtifactNotFound.Error(),
		},
		{
			name: "corrupt bundle",
			payloads: map[string]string{
				"sla_model":     "\x80\x04\x95 not a bundle",
				"failure_model": testutil.ClassifierBundleJSON,
				"anomaly_model": testutil.DetectorBundleJSON,
			},
			decode:  estimator.DecodeBundle,
			failed:  domain.ModelKindSLABreach,
			errText: domain.ErrInvalidBundle.Error(),
		},
		{
			name: "wrong kind for slot",
			payloads: map[string]string{
				"sla_model":     testutil.ClassifierBundleJSON,
				"failure_model": testutil.ClassifierBundleJSON,
				"anomaly_model": testutil.ClassifierBundleJSON,
			},
			decode:  estimator.DecodeBundle,
			failed:  domain.ModelKindAnomaly,
			errText: domain.ErrArtifactKind.Error(),
		},
		{
			name:     "decoder panics",
			payloads: allPayloads(),
			decode: func(data []byte) (*domain.ModelArtifact, error) {
				if string(data) == testutil.DetectorBundleJSON {
					panic("index out of range")
				}
				return estimator.DecodeBundle(data)
			},
			failed:  domain.ModelKindAnomaly,
			errText: "decoder panic",
		},
		{
			name:     "store error",
			payloads: map[string]string{"failure_model": testutil.ClassifierBundleJSON, "anomaly_model": testutil.DetectorBundleJSON},
			failures: map[string]error{"sla_model": errors.New("connection reset")},
			decode:   estimator.DecodeBundle,
			failed:   domain.ModelKindSLABreach,
			errText:  "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(tt.payloads, tt.failures)

			r := LoadModelRegistry(context.Background(), store, tt.decode, DefaultSlotSpecs(), nil)

			_, ok := r.Get(tt.failed)
			assert.False(t, ok)
			assert.Equal(t, domain.SlotUnavailable, r.State(tt.failed))
			for _, kind := range domain.ModelKinds {
				if kind == tt.failed {
					continue
				}
				assert.Equal(t, domain.SlotLoaded, r.State(kind), "slot %s should not be affected", kind)
			}
			assert.False(t, r.FullyDegraded())

			for _, s := range r.Status() {
				if s.Kind == tt.failed {
					assert.Contains(t, s.Error, tt.errText)
					assert.True(t, s.LoadedAt.IsZero())
				}
			}
		})
	}
}

func TestLoadModelRegistry_NilStore(t *testing.T) {
	r := LoadModelRegistry(context.Background(), nil, estimator.DecodeBundle, DefaultSlotSpecs(), nil)

	assert.True(t, r.FullyDegraded())
	for _, s := range r.Status() {
		assert.Equal(t, domain.SlotUnavailable, s.State)
		assert.Equal(t, domain.ErrStoreNotAvailable.Error(), s.Error)
	}
}

func TestLoadModelRegistry_EachArtifactFetchedOnce(t *testing.T) {
	store := newStore(allPayloads(), nil)

	r := LoadModelRegistry(context.Background(), store, estimator.DecodeBundle, DefaultSlotSpecs(), nil)
	for i := 0; i < 3; i++ {
		_, _ = r.Get(domain.ModelKindSLABreach)
	}

	store.AssertNumberOfCalls(t, "Fetch", 3)
	store.AssertCalled(t, "Fetch", mock.Anything, "sla_model")
}

// ============================================================================
// Registry Construction Tests
// ============================================================================

func TestNewModelRegistry_PartialSlots(t *testing.T) {
	clf, err := estimator.DecodeBundle([]byte(testutil.ClassifierBundleJSON))
	require.NoError(t, err)

	r := NewModelRegistry(map[domain.ModelKind]*domain.ModelArtifact{
		domain.ModelKindSLABreach: clf,
		domain.ModelKindFailure:   nil,
	})

	assert.Equal(t, domain.SlotLoaded, r.State(domain.ModelKindSLABreach))
	assert.Equal(t, domain.SlotUnavailable, r.State(domain.ModelKindFailure))
	assert.Equal(t, domain.SlotUnavailable, r.State(domain.ModelKindAnomaly))
	assert.False(t, r.FullyDegraded())

	empty := NewModelRegistry(nil)
	assert.True(t, empty.FullyDegraded())
	assert.Len(t, empty.Status(), 3)
}
