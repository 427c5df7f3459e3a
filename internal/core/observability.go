package core

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"strongholdcore/pkg/domain"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strongholdcore_mutations_total",
		Help: "Mutation requests by operation and outcome",
	}, []string{"op", "outcome"})

	recomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "strongholdcore_recompute_duration_seconds",
		Help:    "Duration of estimate plus advisory evaluation per cycle",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	certaintyGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "strongholdcore_certainty",
		Help: "Certainty of the latest estimate",
	})

	throwsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "strongholdcore_throws",
		Help: "Number of throws in the log",
	})

	skippedInputsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strongholdcore_skipped_inputs_total",
		Help: "Observations rejected at the boundary by reason",
	}, []string{"reason"})
)

var tracer = otel.Tracer("strongholdcore.core")

const (
	outcomeApplied = "applied"
	outcomeLocked  = "locked"
	outcomeNoop    = "noop"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeApplied
	case errors.Is(err, domain.ErrLocked):
		return outcomeLocked
	case errors.Is(err, domain.ErrEmptyLog), errors.Is(err, domain.ErrEmptyHistory):
		return outcomeNoop
	}
	var malformed domain.MalformedObservationError
	if errors.As(err, &malformed) {
		return outcomeInvalid
	}
	return outcomeError
}
