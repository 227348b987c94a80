package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	requests        *prom.CounterVec
	requestDuration *prom.HistogramVec
	resolveDuration prom.Histogram
	subtreeFailures prom.Counter
	buildOutcomes   *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "notion",
			Name:      "api_requests_total",
			Help:      "Content service requests by operation and result",
		}, []string{"operation", "result"}),
		requestDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "notion",
			Name:      "api_request_duration_seconds",
			Help:      "Duration of content service requests",
			Buckets:   prom.DefBuckets,
		}, []string{"operation"}),
		resolveDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "notion",
			Name:      "resolve_duration_seconds",
			Help:      "Duration of page tree resolution",
			Buckets:   prom.DefBuckets,
		}),
		subtreeFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: "notion",
			Name:      "subtree_failures_total",
			Help:      "Container child fetches that failed during resolution",
		}),
		buildOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "notion",
			Name:      "build_outcomes_total",
			Help:      "Page build outcomes",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.requests, pr.requestDuration, pr.resolveDuration, pr.subtreeFailures, pr.buildOutcomes)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

func (p *PrometheusRecorder) ObserveRequest(operation string, d time.Duration, err error) {
	if p == nil {
		return
	}
	p.requests.WithLabelValues(operation, resultLabel(err)).Inc()
	p.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveResolve(d time.Duration) {
	if p == nil {
		return
	}
	p.resolveDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSubtreeFailure() {
	if p == nil {
		return
	}
	p.subtreeFailures.Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil {
		return
	}
	p.buildOutcomes.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes the registry in the text exposition format, for the
// node exporter textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
