// Package metrics records pipeline timing and outcome metrics and
// pushes them to a Prometheus Pushgateway. A short-lived CLI cannot be
// scraped, so push is the only delivery path; with no gateway
// configured the metrics stay process-local.
package metrics

import (
	"context"
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/AaronHausheer/liftoff/internal/model"
)

// Recorder collects per-run metrics on a private registry and satisfies
// the pipeline's observer contract. Metrics are pushed once, when the
// run finishes.
type Recorder struct {
	registry   *prom.Registry
	gatewayURL string
	job        string

	phaseDuration *prom.HistogramVec
	phaseResults  *prom.CounterVec
	runOutcomes   *prom.CounterVec
}

// NewRecorder constructs a recorder pushing to gatewayURL under the
// given job name. An empty gatewayURL disables pushing; metrics are
// still collected, which keeps the recorder usable in tests.
func NewRecorder(gatewayURL, job string) *Recorder {
	registry := prom.NewRegistry()
	r := &Recorder{registry: registry, gatewayURL: gatewayURL, job: job}

	r.phaseDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "liftoff",
		Name:      "phase_duration_seconds",
		Help:      "Duration of individual pipeline phases",
		Buckets:   prom.ExponentialBuckets(0.1, 2, 12),
	}, []string{"phase"})
	r.phaseResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "liftoff",
		Name:      "phase_results_total",
		Help:      "Phase result counts by terminal status",
	}, []string{"phase", "result"})
	r.runOutcomes = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "liftoff",
		Name:      "run_outcomes_total",
		Help:      "Pipeline run outcomes by final status",
	}, []string{"outcome"})

	registry.MustRegister(r.phaseDuration, r.phaseResults, r.runOutcomes)
	return r
}

// RunStarted is a no-op; there is nothing to record yet.
func (r *Recorder) RunStarted(ctx context.Context, rec *model.RunRecord) error {
	return nil
}

// PhaseFinished records the phase's duration and terminal status.
func (r *Recorder) PhaseFinished(ctx context.Context, rec *model.RunRecord, res model.PhaseResult) error {
	if d := res.Duration(); d > 0 {
		r.phaseDuration.WithLabelValues(res.Phase.String()).Observe(d.Seconds())
	}
	r.phaseResults.WithLabelValues(res.Phase.String(), res.Status.String()).Inc()
	return nil
}

// RunFinished records the run outcome and pushes the accumulated
// metrics to the gateway.
func (r *Recorder) RunFinished(ctx context.Context, rec *model.RunRecord) error {
	r.runOutcomes.WithLabelValues(rec.Outcome.String()).Inc()

	if r.gatewayURL == "" {
		return nil
	}

	err := push.New(r.gatewayURL, r.job).
		Gatherer(r.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", r.gatewayURL, err)
	}
	return nil
}

// Gatherer exposes the private registry, for inspection.
func (r *Recorder) Gatherer() prom.Gatherer {
	return r.registry
}
