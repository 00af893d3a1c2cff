// Coverseer - LLM-supervised process keeper
//
// Coverseer runs one long-lived command, captures its stdout and
// stderr into a bounded ring buffer, and periodically asks a local
// LLM (any Ollama-compatible endpoint) whether the output looks
// healthy. Crashes and unhealthy verdicts restart the child with
// exponential backoff; a clean exit ends supervision.
//
// Everything beyond the loop itself is optional: SQLite run history,
// a loopback status API with a live WebSocket stream, MQTT event
// publishing, rotating NDJSON event files, and InfluxDB metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	_ "github.com/demensdeum/coverseer/migrations"

	"github.com/demensdeum/coverseer/internal/api"
	"github.com/demensdeum/coverseer/internal/history"
	"github.com/demensdeum/coverseer/internal/infrastructure/config"
	"github.com/demensdeum/coverseer/internal/infrastructure/database"
	"github.com/demensdeum/coverseer/internal/infrastructure/influxdb"
	"github.com/demensdeum/coverseer/internal/infrastructure/logging"
	"github.com/demensdeum/coverseer/internal/infrastructure/mqtt"
	"github.com/demensdeum/coverseer/internal/oracle"
	"github.com/demensdeum/coverseer/internal/output"
	"github.com/demensdeum/coverseer/internal/process"
	"github.com/demensdeum/coverseer/internal/sink"
	"github.com/demensdeum/coverseer/internal/supervisor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Exit codes: 0 clean end of supervision, 1 fatal failure, 2 usage or
// configuration error, 130 operator cancellation.
const (
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

// errUsage marks problems the operator must fix on the command line or
// in the config file. run prints the diagnostic itself; main only maps
// the error to an exit code.
var errUsage = errors.New("usage error")

func main() {
	// Cancel the root context on Ctrl+C or SIGTERM so every component
	// shuts down through the same path.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		switch {
		case errors.Is(err, errUsage):
			os.Exit(exitUsage)
		case errors.Is(err, context.Canceled):
			os.Exit(exitInterrupted)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitFailure)
		}
	}
}

// run is the actual application logic, separated from main for
// consistent exit-code handling. Components are wired in dependency
// order and closed in reverse by the deferred calls.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("coverseer", flag.ContinueOnError)

	var (
		configFile  string
		interval    int
		model       string
		endpoint    string
		showVersion bool
	)
	fs.StringVar(&configFile, "config", "", "path to YAML config file (default $COVERSEER_CONFIG)")
	fs.IntVar(&interval, "interval", 0, "seconds between health checks (overrides config)")
	fs.StringVar(&model, "model", "", "oracle model name (overrides config)")
	fs.StringVar(&endpoint, "endpoint", "", "oracle base URL (overrides config)")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	if showVersion {
		fmt.Printf("coverseer %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	// Load configuration. An empty path runs on built-in defaults plus
	// COVERSEER_* environment overrides.
	path := configPath(configFile)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coverseer: %v\n", err)
		return errUsage
	}

	// Flag overrides beat both the file and the environment.
	if interval < 0 {
		fmt.Fprintln(os.Stderr, "coverseer: -interval must be positive")
		return errUsage
	}
	if interval > 0 {
		cfg.Supervisor.CheckInterval = interval
	}
	if model != "" {
		cfg.Oracle.Model = model
	}
	if endpoint != "" {
		cfg.Oracle.Endpoint = endpoint
	}

	// The command to supervise: trailing arguments win, the config key
	// is the fallback so a config file alone can drive the tool.
	cmdArgs := fs.Args()
	if len(cmdArgs) == 0 && cfg.Supervisor.Command != "" {
		cmdArgs = []string{cfg.Supervisor.Command}
	}
	if len(cmdArgs) == 0 {
		fmt.Fprintln(os.Stderr, "coverseer: no command to supervise")
		fmt.Fprintln(os.Stderr)
		usage(fs)
		return errUsage
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting coverseer",
		"version", version,
		"commit", commit,
		"build_date", date,
	)
	if path != "" {
		log.Info("configuration loaded", "path", path)
	} else {
		log.Info("running with built-in defaults")
	}

	// One session spans every generation of the child until we exit.
	sessionID := "ses-" + uuid.NewString()[:8]

	// Run history store (optional).
	var repo history.Repository
	if cfg.History.Enabled {
		db, openErr := database.Open(cfg.History)
		if openErr != nil {
			return fmt.Errorf("opening history database: %w", openErr)
		}
		defer func() {
			log.Info("closing history database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing history database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		repo = history.NewSQLiteRepository(db.DB)
		log.Info("run history enabled", "path", cfg.History.Path)
	} else {
		log.Info("run history disabled")
	}

	// Bounded ring of recent child output, shared with the oracle and the API.
	ring := output.NewRing(cfg.Supervisor.MaxOutputLines)

	// Event sinks. The log sink always runs; the rest are optional.
	sinks := []sink.Sink{sink.NewLogSink(log)}

	if cfg.Sink.File.Enabled {
		sinks = append(sinks, sink.NewFileSink(cfg.Sink.File))
		log.Info("file sink enabled", "path", cfg.Sink.File.Path)
	}

	// MQTT event publishing (optional).
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		// The topic tree is scoped to this session:
		// {prefix}/{session}/event/..., {prefix}/{session}/control.
		cfg.MQTT.TopicPrefix = mqtt.NewTopics(cfg.MQTT.TopicPrefix).Prefix() + "/" + sessionID

		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		sinks = append(sinks, sink.NewMQTTSink(mqttClient, mqttClient.Topics(), cfg.MQTT))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"prefix", mqttClient.Topics().Prefix(),
		)
	}

	// The live-stream hub joins the sink chain before the API server
	// exists; the server adopts it instead of creating its own.
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log)
		go hub.Run(ctx)
		sinks = append(sinks, api.NewHubSink(hub))
	}

	events := sink.NewMulti(log, sinks...)
	defer func() {
		if closeErr := events.Close(); closeErr != nil {
			log.Error("error closing sinks", "error", closeErr)
		}
	}()

	// InfluxDB metrics (optional). Connect reports ErrDisabled when the
	// section is off; metrics stays a true nil interface then.
	var metrics supervisor.Metrics
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case err == nil:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		metrics = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	default:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	oracleClient := oracle.New(cfg.Oracle, log)
	log.Info("oracle configured",
		"endpoint", cfg.Oracle.Endpoint,
		"model", cfg.Oracle.Model,
		"check_interval", cfg.GetCheckInterval(),
	)

	runner := process.NewRunner(ring, events, log, sessionID, cfg.GetGracefulTimeout())

	sup := supervisor.New(cfg, supervisor.Deps{
		Spec: process.Spec{
			Args:    cmdArgs,
			WorkDir: cfg.Supervisor.WorkDir,
			Env:     cfg.Supervisor.Env,
		},
		Ring:      ring,
		Runner:    runner,
		Oracle:    oracleClient,
		Events:    events,
		History:   repo,
		Metrics:   metrics,
		Logger:    log,
		SessionID: sessionID,
	})

	// Status API (optional).
	if cfg.API.Enabled {
		server, newErr := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log,
			Supervisor:  sup,
			Ring:        ring,
			History:     repo,
			ExternalHub: hub,
			Version:     version,
		})
		if newErr != nil {
			return fmt.Errorf("creating API server: %w", newErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("status API enabled", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))
	}

	// Operator restarts over MQTT: a "restart" payload on the control
	// topic is queued into the decision loop like any other event.
	if mqttClient != nil {
		controlTopic := mqttClient.Topics().Control()
		subErr := mqttClient.Subscribe(controlTopic, byte(cfg.MQTT.QoS), func(_ string, payload []byte) error {
			command := strings.TrimSpace(string(payload))
			if command != "restart" {
				log.Warn("unknown control command", "command", command)
				return nil
			}
			if reqErr := sup.RequestRestart("mqtt"); reqErr != nil {
				log.Warn("MQTT restart request rejected", "error", reqErr)
			}
			return nil
		})
		if subErr != nil {
			return fmt.Errorf("subscribing to control topic: %w", subErr)
		}
		log.Info("control topic subscribed", "topic", controlTopic)
	}

	log.Info("initialisation complete, starting supervision")

	runErr := sup.Run(ctx)
	switch {
	case runErr == nil:
		log.Info("coverseer stopped")
		return nil
	case errors.Is(runErr, context.Canceled):
		log.Info("coverseer interrupted")
		return runErr
	default:
		return runErr
	}
}

// configPath resolves the configuration file location: the -config
// flag wins, then the COVERSEER_CONFIG environment variable. Empty
// means built-in defaults.
func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("COVERSEER_CONFIG")
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), `coverseer runs one command under supervision: child output is captured
into a bounded buffer, a local LLM periodically judges it, and unhealthy
verdicts or crashes restart the child with exponential backoff.

Usage:

  coverseer [flags] command [args...]

A single-word command is run through the shell, so quoted pipelines
work; multiple words are executed directly. The command can also come
from the supervisor.command config key.

Flags:

`)
	fs.PrintDefaults()
}
