package app

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/Goboolean/hts-connector/internal/adapters/input"
	"github.com/Goboolean/hts-connector/internal/adapters/output"
	"github.com/Goboolean/hts-connector/internal/domain"
	"github.com/Goboolean/hts-connector/internal/ports"
)

// follower is satisfied by input.Follower and input.TailFollower.
type follower interface {
	Follow(ctx context.Context, maxDuration time.Duration) error
	AddObserver(o ports.ProcessingObserver)
	Metrics() *domain.FollowMetrics
	Path() string
}

// Connector follows one input file and delivers every record to the
// configured sinks.
type Connector struct {
	config   Config
	follower follower
	handler  *output.InstrumentedHandler
	metrics  *output.PrometheusMetrics
}

type ConnectorOption func(*connectorOptions)

type connectorOptions struct {
	registerer prometheus.Registerer
}

// WithRegisterer registers Prometheus collectors on reg instead of the
// default registry.
func WithRegisterer(reg prometheus.Registerer) ConnectorOption {
	return func(o *connectorOptions) { o.registerer = reg }
}

// NewClassifier builds the line classifier for cfg. Timestamps are always
// read as KST.
func NewClassifier(cfg ClassifierConfig) *input.Classifier {
	return input.NewClassifier(input.ClassifierConfig{
		StrictIndicators: cfg.StrictIndicators,
		Location:         domain.KST,
	})
}

// NewConnector puts handler behind the follower selected by cfg.Follower.Mode.
// The connector owns handler from here on and closes it in Close, also when
// construction fails.
func NewConnector(cfg Config, handler ports.RecordHandler, opts ...ConnectorOption) (*Connector, error) {
	var o connectorOptions
	for _, opt := range opts {
		opt(&o)
	}

	c := &Connector{
		config:  cfg,
		handler: output.NewInstrumentedHandler(handler),
	}

	followerCfg := input.FollowerConfig{
		Path:         cfg.Follower.Path,
		PollInterval: cfg.Follower.PollInterval,
		Watch:        cfg.Follower.Watch,
	}
	classifier := NewClassifier(cfg.Classifier)

	var err error
	switch cfg.Follower.Mode {
	case ModeTail:
		c.follower, err = input.NewTailFollower(followerCfg, classifier, c.handler)
	case ModePoll, "":
		c.follower, err = input.NewFollower(followerCfg, classifier, c.handler)
	default:
		err = &ConfigValidationError{Field: "follower.mode", Value: cfg.Follower.Mode, Reason: "must be poll or tail"}
	}
	if err != nil {
		c.handler.Close()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		c.metrics = output.NewPrometheusMetrics("hts_connector", o.registerer, c.follower.Metrics())
		c.follower.AddObserver(c.metrics)
		c.handler.AddObserver(c.metrics)
	}

	return c, nil
}

// FollowMetrics exposes the follower counters.
func (c *Connector) FollowMetrics() *domain.FollowMetrics {
	return c.follower.Metrics()
}

// Run follows the input file until the configured duration has elapsed, the
// context is cancelled, or a fatal error occurs.
func (c *Connector) Run(ctx context.Context) error {
	if c.metrics != nil {
		metricsConfig := output.DefaultMetricsConfig()
		metricsConfig.Port = c.config.Metrics.Port
		ready := output.NewHealthChecker(c.follower.Metrics(), c.config.Follower.PollInterval)
		if err := c.metrics.StartServer(metricsConfig, ready); err != nil {
			log.Warn().Err(err).Msg("Failed to start metrics server")
		}
		defer c.metrics.StopServer()
	}

	log.Info().
		Str("file", c.follower.Path()).
		Str("mode", c.config.Follower.Mode).
		Dur("max_duration", c.config.Follower.MaxDuration).
		Dur("poll_interval", c.config.Follower.PollInterval).
		Bool("strict", c.config.Classifier.StrictIndicators).
		Msg("Connector started")

	err := c.follower.Follow(ctx, c.config.Follower.MaxDuration)

	snap := c.follower.Metrics().GetSnapshot()
	event := log.Info()
	if err != nil && !errors.Is(err, context.Canceled) {
		event = log.Error().Err(err)
	}
	event.
		Int64("lines", snap.LinesRead).
		Int64("candles", snap.Candles).
		Int64("indicators", snap.Indicators).
		Int64("skipped", snap.Skipped).
		Msg("Connector stopped")

	return err
}

// Close releases every sink.
func (c *Connector) Close() error {
	return c.handler.Close()
}
