package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/Goboolean/hts-connector/internal/adapters/output"
)

const (
	ModePoll = "poll"
	ModeTail = "tail"
)

type Config struct {
	Follower   FollowerConfig
	Classifier ClassifierConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
	Sinks      SinksConfig
}

type FollowerConfig struct {
	Path         string
	MaxDuration  time.Duration
	PollInterval time.Duration
	Mode         string
	Watch        bool
}

type ClassifierConfig struct {
	StrictIndicators bool
}

type LoggingConfig struct {
	Level   string
	Console bool
}

type MetricsConfig struct {
	Enabled bool
	Port    string
}

type SinksConfig struct {
	Influx InfluxSinkConfig
	SQLite SQLiteSinkConfig
	Bolt   BoltSinkConfig
	Redis  RedisSinkConfig
	Kafka  KafkaSinkConfig
	JSON   JSONSinkConfig
}

type InfluxSinkConfig struct {
	Enabled bool
	output.InfluxHandlerConfig
}

type SQLiteSinkConfig struct {
	Enabled bool
	Path    string
}

type BoltSinkConfig struct {
	Enabled bool
	Path    string
}

type RedisSinkConfig struct {
	Enabled bool
	output.RedisHandlerConfig
}

type KafkaSinkConfig struct {
	Enabled bool
	output.KafkaHandlerConfig
}

type JSONSinkConfig struct {
	Enabled bool
	Stdout  bool
	Path    string
}

// Enabled lists the names of the enabled sinks in delivery order.
func (s SinksConfig) Enabled() []string {
	var names []string
	if s.Influx.Enabled {
		names = append(names, "influx")
	}
	if s.SQLite.Enabled {
		names = append(names, "sqlite")
	}
	if s.Bolt.Enabled {
		names = append(names, "bolt")
	}
	if s.Redis.Enabled {
		names = append(names, "redis")
	}
	if s.Kafka.Enabled {
		names = append(names, "kafka")
	}
	if s.JSON.Enabled {
		names = append(names, "json")
	}
	return names
}

// legacyEnv maps the environment variables of earlier deployments onto
// config keys. HTS_* names are bound automatically.
var legacyEnv = map[string]string{
	"follower.path":       "TEXT_FILE_PATH",
	"sinks.influx.url":    "INFLUXDB_URL",
	"sinks.influx.token":  "INFLUXDB_TOKEN",
	"sinks.influx.org":    "INFLUXDB_ORG",
	"sinks.influx.bucket": "INFLUXDB_BUCKET",
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("follower.max_duration", 24*time.Hour)
	v.SetDefault("follower.poll_interval", time.Second)
	v.SetDefault("follower.mode", ModePoll)
	v.SetDefault("follower.watch", false)
	v.SetDefault("classifier.strict_indicators", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", ":9090")
	v.SetDefault("sinks.sqlite.path", "./data/records.db")
	v.SetDefault("sinks.bolt.path", "./data/records.bolt")
	v.SetDefault("sinks.redis.addr", "localhost:6379")
	v.SetDefault("sinks.redis.latest_ttl", 30*time.Minute)
	v.SetDefault("sinks.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("sinks.kafka.candle_topic", "hts.candles")
	v.SetDefault("sinks.kafka.indicator_topic", "hts.indicators")
	v.SetDefault("sinks.kafka.write_timeout", 10*time.Second)
	v.SetDefault("sinks.json.stdout", true)
}

// NewViper builds a viper instance with defaults, environment binding and
// the config file, if one is found. A missing default config file is not
// an error; a missing explicit one is.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/hts-connector")
	}

	SetDefaults(v)

	v.SetEnvPrefix("HTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "HTS_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// LoadConfig reads every setting from v. It does not validate.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Follower: FollowerConfig{
			Path:         v.GetString("follower.path"),
			MaxDuration:  v.GetDuration("follower.max_duration"),
			PollInterval: v.GetDuration("follower.poll_interval"),
			Mode:         strings.ToLower(v.GetString("follower.mode")),
			Watch:        v.GetBool("follower.watch"),
		},
		Classifier: ClassifierConfig{
			StrictIndicators: v.GetBool("classifier.strict_indicators"),
		},
		Logging: LoggingConfig{
			Level:   strings.ToLower(v.GetString("logging.level")),
			Console: v.GetBool("logging.console"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Port:    v.GetString("metrics.port"),
		},
	}

	s := &cfg.Sinks
	s.Influx.URL = v.GetString("sinks.influx.url")
	s.Influx.Token = v.GetString("sinks.influx.token")
	s.Influx.Org = v.GetString("sinks.influx.org")
	s.Influx.Bucket = v.GetString("sinks.influx.bucket")
	// Earlier deployments configured InfluxDB by environment alone.
	if v.IsSet("sinks.influx.enabled") {
		s.Influx.Enabled = v.GetBool("sinks.influx.enabled")
	} else {
		s.Influx.Enabled = s.Influx.URL != ""
	}

	s.SQLite.Enabled = v.GetBool("sinks.sqlite.enabled")
	s.SQLite.Path = v.GetString("sinks.sqlite.path")

	s.Bolt.Enabled = v.GetBool("sinks.bolt.enabled")
	s.Bolt.Path = v.GetString("sinks.bolt.path")

	s.Redis.Enabled = v.GetBool("sinks.redis.enabled")
	s.Redis.Addr = v.GetString("sinks.redis.addr")
	s.Redis.Password = v.GetString("sinks.redis.password")
	s.Redis.DB = v.GetInt("sinks.redis.db")
	s.Redis.StreamMaxLen = v.GetInt64("sinks.redis.stream_max_len")
	s.Redis.LatestTTL = v.GetDuration("sinks.redis.latest_ttl")

	s.Kafka.Enabled = v.GetBool("sinks.kafka.enabled")
	s.Kafka.Brokers = v.GetStringSlice("sinks.kafka.brokers")
	s.Kafka.CandleTopic = v.GetString("sinks.kafka.candle_topic")
	s.Kafka.IndicatorTopic = v.GetString("sinks.kafka.indicator_topic")
	s.Kafka.WriteTimeout = v.GetDuration("sinks.kafka.write_timeout")

	s.JSON.Enabled = v.GetBool("sinks.json.enabled")
	s.JSON.Stdout = v.GetBool("sinks.json.stdout")
	s.JSON.Path = v.GetString("sinks.json.path")

	return cfg, nil
}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate returns the first problem found as a *ConfigValidationError.
func (c Config) Validate() error {
	f := c.Follower
	if strings.TrimSpace(f.Path) == "" {
		return &ConfigValidationError{Field: "follower.path", Value: f.Path, Reason: "must be set"}
	}
	if f.PollInterval <= 0 {
		return &ConfigValidationError{Field: "follower.poll_interval", Value: f.PollInterval, Reason: "must be positive"}
	}
	if f.MaxDuration < 0 {
		return &ConfigValidationError{Field: "follower.max_duration", Value: f.MaxDuration, Reason: "must not be negative"}
	}
	if f.Mode != ModePoll && f.Mode != ModeTail {
		return &ConfigValidationError{Field: "follower.mode", Value: f.Mode, Reason: "must be poll or tail"}
	}
	if c.Logging.Level != "" && !slices.Contains(validLevels, c.Logging.Level) {
		return &ConfigValidationError{Field: "logging.level", Value: c.Logging.Level, Reason: "must be debug, info, warn or error"}
	}
	if c.Metrics.Enabled && c.Metrics.Port == "" {
		return &ConfigValidationError{Field: "metrics.port", Value: c.Metrics.Port, Reason: "required when metrics are enabled"}
	}
	return c.Sinks.Validate()
}

func (s SinksConfig) Validate() error {
	if len(s.Enabled()) == 0 {
		return &ConfigValidationError{Field: "sinks", Value: "", Reason: "at least one sink must be enabled"}
	}
	if s.Influx.Enabled {
		switch {
		case s.Influx.URL == "":
			return &ConfigValidationError{Field: "sinks.influx.url", Value: "", Reason: "required"}
		case s.Influx.Org == "":
			return &ConfigValidationError{Field: "sinks.influx.org", Value: "", Reason: "required"}
		case s.Influx.Bucket == "":
			return &ConfigValidationError{Field: "sinks.influx.bucket", Value: "", Reason: "required"}
		}
	}
	if s.SQLite.Enabled && s.SQLite.Path == "" {
		return &ConfigValidationError{Field: "sinks.sqlite.path", Value: "", Reason: "required"}
	}
	if s.Bolt.Enabled && s.Bolt.Path == "" {
		return &ConfigValidationError{Field: "sinks.bolt.path", Value: "", Reason: "required"}
	}
	if s.Redis.Enabled && s.Redis.Addr == "" {
		return &ConfigValidationError{Field: "sinks.redis.addr", Value: "", Reason: "required"}
	}
	if s.Kafka.Enabled {
		if len(s.Kafka.Brokers) == 0 {
			return &ConfigValidationError{Field: "sinks.kafka.brokers", Value: "", Reason: "required"}
		}
		if s.Kafka.CandleTopic == "" || s.Kafka.IndicatorTopic == "" {
			return &ConfigValidationError{Field: "sinks.kafka", Value: "", Reason: "candle_topic and indicator_topic are required"}
		}
	}
	if s.JSON.Enabled && !s.JSON.Stdout && s.JSON.Path == "" {
		return &ConfigValidationError{Field: "sinks.json.path", Value: "", Reason: "required unless stdout is set"}
	}
	return nil
}

type ConfigValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s = %v - %s", e.Field, e.Value, e.Reason)
}

// WatchLogLevel re-applies logging.level whenever the config file changes.
// Nothing else is reloaded while a run is in progress.
func WatchLogLevel(v *viper.Viper, apply func(level string)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		level := strings.ToLower(v.GetString("logging.level"))
		if !slices.Contains(validLevels, level) {
			log.Error().Str("level", level).Msg("Invalid log level in reloaded config, keeping current")
			return
		}
		log.Info().
			Str("file", e.Name).
			Str("op", e.Op.String()).
			Str("level", level).
			Msg("Config file changed, log level re-applied")
		apply(level)
	})
	v.WatchConfig()
	log.Debug().Str("config", v.ConfigFileUsed()).Msg("Config watching started")
}
