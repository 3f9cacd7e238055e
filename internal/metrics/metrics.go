package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

const namespace = "pdf_extractor"

// Metrics exposes pool and HTTP activity as prometheus collectors. It
// implements pool.Observer.
type Metrics struct {
	registry *prometheus.Registry

	JobsQueued        prometheus.Counter
	JobsInFlight      prometheus.Gauge
	JobsTotal         *prometheus.CounterVec
	JobDuration       prometheus.Histogram
	Workers           prometheus.Gauge
	WorkerFaults      *prometheus.CounterVec
	SpawnFailures     prometheus.Counter
	HttpRequestsTotal *prometheus.CounterVec
}

// New creates the collectors on a dedicated registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		JobsQueued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_queued_total",
			Help:      "Total number of jobs submitted to the pool.",
		}),
		JobsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Number of jobs currently held by a worker.",
		}),
		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of resolved jobs by outcome.",
		}, []string{"status"}),
		JobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time spent by a worker on a job.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		Workers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Number of live worker units.",
		}),
		WorkerFaults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_faults_total",
			Help:      "Total number of worker faults, split by whether a job was lost.",
		}, []string{"with_job"}),
		SpawnFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spawn_failures_total",
			Help:      "Total number of replacement workers that could not be spawned.",
		}),
		HttpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of http requests handled by the service.",
		}, []string{"path", "method", "code"}),
	}
}

func (m *Metrics) JobQueued(pool.Job) {
	m.JobsQueued.Inc()
}

func (m *Metrics) JobStarted(string, pool.Job) {
	m.JobsInFlight.Inc()
}

// JobFinished is also called for jobs that never reached a worker.
func (m *Metrics) JobFinished(res pool.Result) {
	status := "succeeded"
	switch {
	case pool.IsWorkerFault(res.Err):
		status = "faulted"
	case res.Failed():
		status = "failed"
	}
	m.JobsTotal.WithLabelValues(status).Inc()

	if res.WorkerID != "" {
		m.JobsInFlight.Dec()
		m.JobDuration.Observe(res.Elapsed.Seconds())
	}
}

func (m *Metrics) WorkerSpawned(string) {
	m.Workers.Inc()
}

func (m *Metrics) WorkerFaulted(_ string, withJob bool, _ error) {
	m.Workers.Dec()
	m.WorkerFaults.WithLabelValues(strconv.FormatBool(withJob)).Inc()
}

func (m *Metrics) WorkerExited(string) {
	m.Workers.Dec()
}

func (m *Metrics) SpawnFailed(error) {
	m.SpawnFailures.Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests by route, method and status code.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HttpRequestsTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
