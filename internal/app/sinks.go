package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Goboolean/hts-connector/internal/adapters/output"
	"github.com/Goboolean/hts-connector/internal/ports"
)

type sinkOpener struct {
	name string
	open func() (ports.RecordHandler, error)
}

// OpenSinks opens every enabled sink in the order of SinksConfig.Enabled.
// If one fails, those already open are closed again.
func OpenSinks(cfg SinksConfig) (*output.MultiHandler, error) {
	openers := []sinkOpener{
		{"influx", func() (ports.RecordHandler, error) {
			return output.NewInfluxHandler(cfg.Influx.InfluxHandlerConfig)
		}},
		{"sqlite", func() (ports.RecordHandler, error) {
			return output.NewSQLiteHandler(output.SQLiteHandlerConfig{DBPath: cfg.SQLite.Path})
		}},
		{"bolt", func() (ports.RecordHandler, error) {
			return output.NewBoltHandler(output.BoltHandlerConfig{DBPath: cfg.Bolt.Path})
		}},
		{"redis", func() (ports.RecordHandler, error) {
			return output.NewRedisHandler(cfg.Redis.RedisHandlerConfig)
		}},
		{"kafka", func() (ports.RecordHandler, error) {
			return output.NewKafkaHandler(cfg.Kafka.KafkaHandlerConfig)
		}},
		{"json", func() (ports.RecordHandler, error) {
			jsonCfg := output.JSONHandlerConfig{Stdout: cfg.JSON.Stdout}
			if cfg.JSON.Path != "" && !cfg.JSON.Stdout {
				jsonCfg.FilePath = cfg.JSON.Path
			}
			return output.NewJSONHandler(jsonCfg)
		}},
	}

	enabled := make(map[string]bool)
	for _, name := range cfg.Enabled() {
		enabled[name] = true
	}

	var sinks []output.NamedHandler
	for _, o := range openers {
		if !enabled[o.name] {
			continue
		}
		h, err := o.open()
		if err != nil {
			closeErr := output.NewMultiHandler(sinks...).Close()
			return nil, errors.Join(fmt.Errorf("open %s sink: %w", o.name, err), closeErr)
		}
		sinks = append(sinks, output.NamedHandler{Name: o.name, Handler: h})
		log.Debug().Str("sink", o.name).Msg("Sink opened")
	}

	return output.NewMultiHandler(sinks...), nil
}
