// Package metrics exposes Prometheus counters for the queue worker and the
// retrieval path.
package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fileslink/internal/queue"
)

// Namespace prefixes every metric name.
const Namespace = "fileslink"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics records relay activity. It doubles as a queue observer.
type Metrics interface {
	queue.Observer
	ObserveRetrieval(route, outcome string)
	SetArtifacts(n int)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) JobEnqueued(*queue.Job, int)               {}
func (Noop) JobFinished(context.Context, queue.Result) {}
func (Noop) QueueCleared(int)                          {}
func (Noop) ObserveRetrieval(string, string)           {}
func (Noop) SetArtifacts(int)                          {}

// Prom implements Metrics backed by a dedicated Prometheus registry.
type Prom struct {
	registry       *prometheus.Registry
	jobsEnqueued   prometheus.Counter
	ingestTotal    *prometheus.CounterVec
	ingestDuration *prometheus.HistogramVec
	queueDepth     prometheus.Gauge
	retrievals     *prometheus.CounterVec
	artifacts      prometheus.Gauge
	once           sync.Once
}

// NewProm constructs and registers the relay metrics.
func NewProm() *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		jobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Jobs accepted into the ingestion queue",
		}),
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ingest_total",
			Help:      "Ingestion attempts by source kind and outcome",
		}, []string{"source", "outcome"}),
		ingestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Ingestion attempt latency by source kind",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"source"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "queue_depth",
			Help:      "Jobs waiting in the ingestion queue, including the one in flight",
		}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrievals_total",
			Help:      "Retrieval requests by route and outcome",
		}, []string{"route", "outcome"}),
		artifacts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "artifacts",
			Help:      "Artifacts recorded in the metadata store",
		}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		p.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			p.jobsEnqueued,
			p.ingestTotal,
			p.ingestDuration,
			p.queueDepth,
			p.retrievals,
			p.artifacts,
		)
	})
}

// Registry exposes the underlying registry for gathering in tests.
func (p *Prom) Registry() *prometheus.Registry { return p.registry }

func (p *Prom) JobEnqueued(_ *queue.Job, depth int) {
	p.jobsEnqueued.Inc()
	p.queueDepth.Set(float64(depth))
}

func (p *Prom) JobFinished(_ context.Context, result queue.Result) {
	source := "unknown"
	if result.Job != nil && result.Job.Source() != nil {
		source = result.Job.Source().SourceKind()
	}
	outcome := OutcomeSuccess
	if !result.Succeeded() {
		outcome = OutcomeFailure
	}
	p.ingestTotal.WithLabelValues(source, outcome).Inc()
	p.ingestDuration.WithLabelValues(source).Observe(result.Elapsed.Seconds())
	p.queueDepth.Set(float64(result.Remaining))
}

func (p *Prom) QueueCleared(int) {
	p.queueDepth.Set(0)
}

func (p *Prom) ObserveRetrieval(route, outcome string) {
	p.retrievals.WithLabelValues(route, outcome).Inc()
}

func (p *Prom) SetArtifacts(n int) {
	p.artifacts.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
