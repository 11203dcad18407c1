package output

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Goboolean/hts-connector/internal/domain"
)

// PrometheusMetrics exports follower and sink activity. It implements both
// ports.ProcessingObserver and ports.HandlerObserver.
type PrometheusMetrics struct {
	linesTotal     *prometheus.CounterVec
	pollsTotal     prometheus.Counter
	sinkErrors     *prometheus.CounterVec
	sinkDuration   *prometheus.HistogramVec
	bytesConsumed  prometheus.CounterFunc
	followerActive prometheus.GaugeFunc
	memoryUsage    prometheus.GaugeFunc

	gatherer prometheus.Gatherer
	server   *http.Server
	mu       sync.Mutex
}

type MetricsConfig struct {
	Port      string
	Path      string
	ReadyPath string
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Port:      ":9090",
		Path:      "/metrics",
		ReadyPath: "/ready",
	}
}

// NewPrometheusMetrics registers collectors on reg. A nil reg uses the
// default registry. followMetrics may be nil.
func NewPrometheusMetrics(namespace string, reg prometheus.Registerer, followMetrics *domain.FollowMetrics) *PrometheusMetrics {
	if namespace == "" {
		namespace = "hts_connector"
	}

	m := &PrometheusMetrics{gatherer: prometheus.DefaultGatherer}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	factory := promauto.With(reg)

	m.linesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_total",
		Help:      "Lines consumed from the input file by classification result",
	}, []string{"kind"})

	m.pollsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "polls_total",
		Help:      "Poll waits performed after reaching end of file",
	})

	m.sinkErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_errors_total",
		Help:      "Records the sink failed to accept",
	}, []string{"kind"})

	m.sinkDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sink_duration_seconds",
		Help:      "Time spent delivering one record to the sink",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{"kind"})

	m.bytesConsumed = factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_consumed_total",
		Help:      "Bytes of complete lines consumed from the input file",
	}, func() float64 {
		if followMetrics != nil {
			return float64(followMetrics.BytesConsumed())
		}
		return 0
	})

	m.followerActive = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "follower_running",
		Help:      "1 while a follow run is in progress",
	}, func() float64 {
		if followMetrics != nil && followMetrics.IsRunning() {
			return 1
		}
		return 0
	})

	m.memoryUsage = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "memory_bytes",
		Help:      "Current memory usage in bytes",
	}, func() float64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return float64(ms.Alloc)
	})

	return m
}

func (m *PrometheusMetrics) ObserveLine(kind domain.RecordKind) {
	label := string(kind)
	if kind == domain.KindUnknown {
		label = "skipped"
	}
	m.linesTotal.WithLabelValues(label).Inc()
}

func (m *PrometheusMetrics) ObservePoll() {
	m.pollsTotal.Inc()
}

func (m *PrometheusMetrics) ObserveHandle(kind domain.RecordKind, elapsed time.Duration, err error) {
	m.sinkDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	if err != nil {
		m.sinkErrors.WithLabelValues(string(kind)).Inc()
	}
}

// StartServer serves metrics and, when ready is non-nil, the readiness
// endpoint. It returns immediately; listen errors are logged.
func (m *PrometheusMetrics) StartServer(config MetricsConfig, ready http.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mux := http.NewServeMux()
	mux.Handle(config.Path, promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	if ready != nil && config.ReadyPath != "" {
		mux.Handle(config.ReadyPath, ready)
	}

	m.server = &http.Server{
		Addr:              config.Port,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func(srv *http.Server) {
		log.Info().Str("addr", config.Port).Str("path", config.Path).Msg("Starting Prometheus metrics server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}(m.server)

	return nil
}

func (m *PrometheusMetrics) StopServer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		return m.server.Close()
	}
	return nil
}
