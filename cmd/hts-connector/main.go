package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Goboolean/hts-connector/internal/adapters/input"
	"github.com/Goboolean/hts-connector/internal/adapters/output"
	"github.com/Goboolean/hts-connector/internal/app"
)

var (
	cfgFile   string
	inputFile string
	duration  time.Duration
	strict    bool
	mode      string
	logLevel  string

	pretty bool

	demoRate      int
	demoMalformed int

	v *viper.Viper

	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "hts-connector",
	Short: "Forward HTS candle and indicator records from a text file to storage",
	Long: `hts-connector follows a text file written by an HTS terminal, classifies
each line as a price candle or an indicator reading, and delivers the
records to the configured sinks (InfluxDB, SQLite, BoltDB, Redis, Kafka,
JSON lines).

Line formats (timestamps are Korea Standard Time):
  candle:    YYYY-MM-DD HH:MM:SS <event> <open> <high> <close> <low>
  indicator: YYYY-MM-DD HH:MM:SS <event> <property> <integer value>

Lines matching neither format are skipped. A sink failure stops the run.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Follow the input file and deliver records to the sinks",
	Long: `Follow the input file from its beginning, delivering every record to the
enabled sinks, and keep polling for appended lines until the configured
duration has elapsed.

Examples:
  hts-connector follow --file ./hts.txt
  hts-connector follow --config ./configs/config.yaml --duration 8h
  TEXT_FILE_PATH=./hts.txt INFLUXDB_URL=http://localhost:8086 hts-connector follow`,
	RunE: runFollow,
}

var classifyCmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Decode a file once and print its records as JSON lines",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClassify,
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Append synthetic HTS lines to the input file",
	Long: `Append synthetic candle and indicator lines, with a share of malformed
lines, to the input file until interrupted. Run "follow" against the same
file in another terminal to exercise the connector.`,
	RunE: runDemo,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hts-connector %s\n", Version)
		fmt.Printf("Commit:  %s\n", Commit)
		fmt.Printf("Built:   %s\n", BuildTime)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	flags.StringVarP(&inputFile, "file", "f", "", "HTS text file to follow")
	flags.DurationVar(&duration, "duration", 0, "stop following after this long (default 24h)")
	flags.BoolVar(&strict, "strict", false, "treat indicator lines with fractional values as fatal")
	flags.StringVar(&mode, "mode", "", "follow mode: poll or tail (default poll)")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default info)")

	classifyCmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")

	demoCmd.Flags().IntVar(&demoRate, "rate", 10, "lines per second")
	demoCmd.Flags().IntVar(&demoMalformed, "malformed", 5, "percentage of malformed lines")

	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(versionCmd)
}

var flagKeys = map[string]string{
	"file":      "follower.path",
	"duration":  "follower.max_duration",
	"strict":    "classifier.strict_indicators",
	"mode":      "follower.mode",
	"log-level": "logging.level",
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	v, err = app.NewViper(cfgFile)
	if err != nil {
		return err
	}

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	setupLogging(v.GetString("logging.level"), v.GetBool("logging.console"))
	if used := v.ConfigFileUsed(); used != "" {
		log.Debug().Str("config", used).Msg("Config file loaded")
	}
	return nil
}

func setupLogging(level string, console bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	applyLevel(level)

	if console {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func applyLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runFollow(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app.WatchLogLevel(v, applyLevel)

	sinks, err := app.OpenSinks(cfg.Sinks)
	if err != nil {
		return err
	}
	log.Info().Strs("sinks", sinks.Names()).Msg("Sinks ready")

	connector, err := app.NewConnector(cfg, sinks)
	if err != nil {
		return err
	}
	defer func() {
		if err := connector.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close sinks")
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()

	err = connector.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("Interrupted, shutting down")
		return nil
	}
	return err
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(v)
	if err != nil {
		return err
	}
	path := cfg.Follower.Path
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("input file required: pass it as an argument or use --file")
	}

	handler, err := output.NewJSONHandler(output.JSONHandlerConfig{Stdout: true, Pretty: pretty})
	if err != nil {
		return err
	}
	defer handler.Close()

	follower, err := input.NewFollower(input.FollowerConfig{Path: path}, app.NewClassifier(cfg.Classifier), handler)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := follower.Follow(ctx, 0); err != nil {
		return err
	}

	snap := follower.Metrics().GetSnapshot()
	log.Info().
		Str("file", path).
		Int64("candles", snap.Candles).
		Int64("indicators", snap.Indicators).
		Int64("skipped", snap.Skipped).
		Msg("Classification complete")
	return nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	path := v.GetString("follower.path")
	if path == "" {
		return fmt.Errorf("output file required: use --file")
	}

	config := input.DefaultDemoConfig()
	config.Path = path
	config.Rate = demoRate
	config.MalformedPercent = demoMalformed

	ctx, cancel := signalContext()
	defer cancel()
	if cmd.Flags().Changed("duration") {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	return input.NewDemoWriter(config).Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
