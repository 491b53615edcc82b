package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"model-serving-service/internal/core/domain"
	ports "model-serving-service/internal/core/ports/output"
)

const namespace = "model_serving"

type predictionMetrics struct {
	predictions *prometheus.CounterVec
	positives   *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	slotLoaded  *prometheus.GaugeVec
}

// NewPredictionMetrics registers inference collectors on reg.
func NewPredictionMetrics(reg prometheus.Registerer) (ports.PredictionMetrics, error) {
	m := &predictionMetrics{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction calls by model slot and outcome.",
		}, []string{"model", "outcome"}),
		positives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positive_predictions_total",
			Help:      "Predictions flagged positive (breach, failure or anomaly).",
		}, []string{"model"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent adapting, transforming and scoring one request.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
		}, []string{"model"}),
		slotLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slot_loaded",
			Help:      "1 when the model slot is Loaded, 0 when Unavailable.",
		}, []string{"model"}),
	}

	for _, c := range []prometheus.Collector{m.predictions, m.positives, m.latency, m.slotLoaded} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *predictionMetrics) ObservePrediction(kind domain.ModelKind, outcome string, positive bool, elapsed time.Duration) {
	m.predictions.WithLabelValues(string(kind), outcome).Inc()
	if outcome != ports.OutcomeOK {
		return
	}
	m.latency.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	if positive {
		m.positives.WithLabelValues(string(kind)).Inc()
	}
}

func (m *predictionMetrics) SetSlotState(kind domain.ModelKind, state domain.SlotState) {
	v := 0.0
	if state == domain.SlotLoaded {
		v = 1
	}
	m.slotLoaded.WithLabelValues(string(kind)).Set(v)
}

var _ ports.PredictionMetrics = (*predictionMetrics)(nil)
