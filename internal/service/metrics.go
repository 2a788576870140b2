package service

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/mat"

	"github.com/opaque/facerec/pkg/facemodel"
)

type metrics struct {
	fits           *prometheus.CounterVec
	fitDuration    prometheus.Histogram
	projections    *prometheus.CounterVec
	projectedFaces prometheus.Counter
}

func newMetrics() *metrics {
	return &metrics{
		fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facerec",
			Name:      "fits_total",
			Help:      "Model fits by outcome.",
		}, []string{"outcome"}),
		fitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "facerec",
			Name:      "fit_duration_seconds",
			Help:      "Time spent centering and factorizing training data.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facerec",
			Name:      "projections_total",
			Help:      "Projection requests by outcome.",
		}, []string{"outcome"}),
		projectedFaces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facerec",
			Name:      "projected_faces_total",
			Help:      "Faces successfully projected.",
		}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.fits, m.fitDuration, m.projections, m.projectedFaces} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *metrics) observeFit(err error, elapsed time.Duration) {
	m.fits.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.fitDuration.Observe(elapsed.Seconds())
	}
}

func (m *metrics) observeProjection(err error, faces mat.Matrix) {
	m.projections.WithLabelValues(outcome(err)).Inc()
	if err == nil && faces != nil {
		_, n := faces.Dims()
		m.projectedFaces.Add(float64(n))
	}
}

func (m *metrics) observeVector(err error) {
	m.projections.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.projectedFaces.Inc()
	}
}

// outcome maps an error to a low-cardinality label value.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, facemodel.ErrNotFitted):
		return "not_fitted"
	case errors.Is(err, facemodel.ErrInvalidInput), errors.Is(err, ErrBatchTooLarge):
		return "invalid"
	default:
		return "error"
	}
}
