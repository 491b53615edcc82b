package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"model-serving-service/internal/core/domain"
	"model-serving-service/internal/core/ports/output"
)

// BundleDecoder turns raw artifact bytes into an immutable artifact.
type BundleDecoder func(data []byte) (*domain.ModelArtifact, error)

// SlotSpec names the artifact a slot is loaded from.
type SlotSpec struct {
	Kind     domain.ModelKind
	Artifact string
}

// DefaultSlotSpecs maps every slot to the artifact names the training
// pipeline writes.
func DefaultSlotSpecs() []SlotSpec {
	return []SlotSpec{
		{Kind: domain.ModelKindSLABreach, Artifact: "sla_model"},
		{Kind: domain.ModelKindFailure, Artifact: "failure_model"},
		{Kind: domain.ModelKindAnomaly, Artifact: "anomaly_model"},
	}
}

// SlotStatus describes one slot for health and listing endpoints.
type SlotStatus struct {
	Kind          domain.ModelKind
	State         domain.SlotState
	Artifact      string
	ArtifactKind  domain.ArtifactKind
	Version       string
	Source        string
	Error         string
	Contamination float64
	LoadedAt      time.Time
}

type slot struct {
	status   SlotStatus
	artifact *domain.ModelArtifact
}

// ModelRegistry holds the three prediction slots. It is populated once and
// never mutated afterwards, so concurrent reads need no locking.
type ModelRegistry struct {
	slots map[domain.ModelKind]*slot
}

// LoadModelRegistry attempts every slot independently. A failing slot is
// logged and left Unavailable; it never affects the other slots. A nil store
// leaves every slot Unavailable.
func LoadModelRegistry(ctx context.Context, store ports.ArtifactStore, decode BundleDecoder, specs []SlotSpec, metrics ports.PredictionMetrics) *ModelRegistry {
	if metrics == nil {
		metrics = noopMetrics{}
	}

	r := newEmptyRegistry()
	for _, spec := range specs {
		s := &slot{status: SlotStatus{
			Kind:     spec.Kind,
			State:    domain.SlotUnavailable,
			Artifact: spec.Artifact,
		}}
		r.slots[spec.Kind] = s

		entry := log.WithFields(log.Fields{"model": spec.Kind, "artifact": spec.Artifact})
		if store == nil {
			s.status.Error = domain.ErrStoreNotAvailable.Error()
			entry.Warn("artifact store not configured, slot unavailable")
			continue
		}
		s.status.Source = store.Describe()

		artifact, err := loadArtifact(ctx, store, decode, spec)
		if err != nil {
			s.status.Error = err.Error()
			entry.WithError(err).WithField("source", s.status.Source).Error("model load failed, slot unavailable")
			continue
		}

		s.artifact = artifact
		s.status.State = domain.SlotLoaded
		s.status.ArtifactKind = artifact.Kind
		s.status.Version = artifact.Version
		s.status.Contamination = artifact.Contamination
		s.status.LoadedAt = time.Now()
		entry.WithFields(log.Fields{"version": artifact.Version, "kind": artifact.Kind}).Info("model loaded")
	}

	loaded := 0
	for _, s := range r.slots {
		metrics.SetSlotState(s.status.Kind, s.status.State)
		if s.status.State == domain.SlotLoaded {
			loaded++
		}
	}
	log.WithFields(log.Fields{"loaded": loaded, "total": len(r.slots)}).Info("model registry ready")

	return r
}

// loadArtifact fetches and decodes one artifact. A panicking decoder counts
// as a corrupt bundle.
func loadArtifact(ctx context.Context, store ports.ArtifactStore, decode BundleDecoder, spec SlotSpec) (artifact *domain.ModelArtifact, err error) {
	defer func() {
		if p := recover(); p != nil {
			artifact = nil
			err = fmt.Errorf("%w: decoder panic: %v", domain.ErrInvalidBundle, p)
		}
	}()

	data, err := store.Fetch(ctx, spec.Artifact)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", spec.Artifact, err)
	}

	artifact, err = decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", spec.Artifact, err)
	}
	if artifact == nil {
		return nil, fmt.Errorf("decode %s: %w: empty artifact", spec.Artifact, domain.ErrInvalidBundle)
	}

	if want := spec.Kind.RequiredArtifactKind(); artifact.Kind != want {
		return nil, fmt.Errorf("%w: slot %s needs %s, bundle is %s", domain.ErrArtifactKind, spec.Kind, want, artifact.Kind)
	}
	if err := checkArtifact(artifact); err != nil {
		return nil, fmt.Errorf("decode %s: %w", spec.Artifact, err)
	}
	return artifact, nil
}

// checkArtifact verifies the pieces a path needs are present and agree on
// vector width.
func checkArtifact(a *domain.ModelArtifact) error {
	if a.Transform == nil {
		return fmt.Errorf("%w: artifact has no transform", domain.ErrInvalidBundle)
	}
	width := a.Transform.Width()
	switch a.Kind {
	case domain.ArtifactKindClassifier:
		if a.Classifier == nil {
			return fmt.Errorf("%w: classifier artifact has no estimator", domain.ErrInvalidBundle)
		}
		if a.Classifier.InputWidth() != width {
			return fmt.Errorf("%w: transform width %d, classifier expects %d", domain.ErrTransformMismatch, width, a.Classifier.InputWidth())
		}
	case domain.ArtifactKindOutlierDetector:
		if a.Detector == nil {
			return fmt.Errorf("%w: detector artifact has no estimator", domain.ErrInvalidBundle)
		}
		if a.Detector.InputWidth() != width {
			return fmt.Errorf("%w: transform width %d, detector expects %d", domain.ErrTransformMismatch, width, a.Detector.InputWidth())
		}
	}
	return nil
}

// NewModelRegistry builds a registry from already-loaded artifacts. Kinds
// missing from artifacts, or mapped to nil, are Unavailable.
func NewModelRegistry(artifacts map[domain.ModelKind]*domain.ModelArtifact) *ModelRegistry {
	r := newEmptyRegistry()
	for _, kind := range domain.ModelKinds {
		s := &slot{status: SlotStatus{Kind: kind, State: domain.SlotUnavailable}}
		if a := artifacts[kind]; a != nil {
			s.artifact = a
			s.status.State = domain.SlotLoaded
			s.status.ArtifactKind = a.Kind
			s.status.Version = a.Version
			s.status.Contamination = a.Contamination
			s.status.LoadedAt = time.Now()
		} else {
			s.status.Error = domain.ErrModelNotLoaded.Error()
		}
		r.slots[kind] = s
	}
	return r
}

func newEmptyRegistry() *ModelRegistry {
	return &ModelRegistry{slots: make(map[domain.ModelKind]*slot, len(domain.ModelKinds))}
}

// Get returns the loaded artifact for kind, or false when the slot is
// Unavailable.
func (r *ModelRegistry) Get(kind domain.ModelKind) (*domain.ModelArtifact, bool) {
	s, ok := r.slots[kind]
	if !ok || s.artifact == nil {
		return nil, false
	}
	return s.artifact, true
}

// State reports the slot state; slots never configured are Unavailable.
func (r *ModelRegistry) State(kind domain.ModelKind) domain.SlotState {
	if _, ok := r.Get(kind); ok {
		return domain.SlotLoaded
	}
	return domain.SlotUnavailable
}

// Status lists every known slot in registry order.
func (r *ModelRegistry) Status() []SlotStatus {
	out := make([]SlotStatus, 0, len(domain.ModelKinds))
	for _, kind := range domain.ModelKinds {
		if s, ok := r.slots[kind]; ok {
			out = append(out, s.status)
		} else {
			out = append(out, SlotStatus{Kind: kind, State: domain.SlotUnavailable, Error: domain.ErrModelNotLoaded.Error()})
		}
	}
	return out
}

// FullyDegraded is true only when no slot is Loaded.
func (r *ModelRegistry) FullyDegraded() bool {
	for _, kind := range domain.ModelKinds {
		if r.State(kind) == domain.SlotLoaded {
			return false
		}
	}
	return true
}

type noopMetrics struct{}

func (noopMetrics) ObservePrediction(domain.ModelKind, string, bool, time.Duration) {}
func (noopMetrics) SetSlotState(domain.ModelKind, domain.SlotState)                 {}
