// mC Connect Core - table display fleet controller
//
// This is the main entry point for the mC Connect Core service. It drives
// the e-paper displays mounted at venue tables: each display cycles
// through promotional, menu, payment and help screens in response to its
// button, and every screen change is rendered here and pushed to the
// fleet platform.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/nerrad567/mc-connect-core/migrations"

	"github.com/nerrad567/mc-connect-core/internal/api"
	"github.com/nerrad567/mc-connect-core/internal/audit"
	"github.com/nerrad567/mc-connect-core/internal/auth"
	"github.com/nerrad567/mc-connect-core/internal/clock"
	"github.com/nerrad567/mc-connect-core/internal/device"
	"github.com/nerrad567/mc-connect-core/internal/fleet"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/config"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/database"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/logging"
	"github.com/nerrad567/mc-connect-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mc-connect-core/internal/metrics"
	"github.com/nerrad567/mc-connect-core/internal/qr"
	"github.com/nerrad567/mc-connect-core/internal/render"
	"github.com/nerrad567/mc-connect-core/internal/tables"
	"github.com/nerrad567/mc-connect-core/internal/webhook"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	// pushDrainTimeout bounds how long shutdown waits for in-flight pushes.
	pushDrainTimeout = 15 * time.Second

	// eventPruneInterval is how often expired device events are deleted.
	eventPruneInterval = time.Hour
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Startup order matters: the observers and recorders (metrics, hub,
// broker mirror, time series) are assembled before the first device is
// built so the initial screens are already reported, and the API only
// starts listening once the startup batch has finished.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting mC Connect Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	tablesRepo := tables.NewSQLiteRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)
	checks := map[string]api.HealthChecker{"database": db}

	// Optional telemetry sinks
	mqttClient, err := connectMQTT(cfg.MQTT, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		checks["mqtt"] = mqttClient
	}

	influxClient, err := connectInfluxDB(cfg.InfluxDB, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		checks["influxdb"] = influxClient
	}

	// Shared render state
	promotions, err := tablesRepo.ListPromotions(ctx)
	if err != nil {
		return fmt.Errorf("loading promotions: %w", err)
	}
	rotation := render.NewRotation(promotions)
	log.Info("promotions loaded", "count", len(promotions))

	pipeline, err := render.NewPipeline(render.Options{
		Width:        cfg.Display.Width,
		Height:       cfg.Display.Height,
		FooterHeight: cfg.Display.FooterHeight,
	})
	if err != nil {
		return fmt.Errorf("creating render pipeline: %w", err)
	}

	registry := device.NewRegistry()
	registry.SetLogger(log)
	collector := metrics.New(registry)

	// Push transport
	pushSink := &pushTelemetry{metrics: collector, influx: influxClient}
	fleetClient, err := fleet.New(fleet.Config{
		BaseURL:      cfg.Fleet.BaseURL,
		APIKey:       cfg.Fleet.APIKey,
		APIKeyHeader: cfg.Fleet.APIKeyHeader,
		Buzzer: fleet.Buzzer{
			OnTime:      cfg.Fleet.Buzzer.OnTime,
			OffTime:     cfg.Fleet.Buzzer.OffTime,
			Repetitions: cfg.Fleet.Buzzer.Repetitions,
		},
		Timeout: cfg.Fleet.PushTimeout(),
	}, fleet.WithLogger(log), fleet.WithObserver(pushSink.observe))
	if err != nil {
		return fmt.Errorf("creating fleet client: %w", err)
	}
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), pushDrainTimeout)
		defer cancel()
		if waitErr := fleetClient.Wait(drainCtx); waitErr != nil {
			log.Warn("abandoning in-flight pushes", "error", waitErr)
		}
	}()

	hub := api.NewHub(cfg.WebSocket, log)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	if retention := cfg.Database.EventRetention(); retention > 0 {
		pruner := &eventPruner{
			repo:      auditRepo,
			retention: retention,
			interval:  eventPruneInterval,
			now:       time.Now,
			log:       log,
		}
		go pruner.run(hubCtx)
	}

	var mirror *brokerMirror
	if mqttClient != nil {
		mirror = newBrokerMirror(mqttClient, log)
		go mirror.run(hubCtx)
	}

	help := newHelpFlag(tablesRepo, log)
	helpCtx, stopHelp := context.WithCancel(context.Background())
	go help.run(helpCtx)
	defer func() {
		stopHelp()
		<-help.done
	}()

	observers := device.Observers{
		collector,
		hub,
		help,
	}
	recorders := webhook.Recorders{
		&eventLog{repo: auditRepo, log: log},
		collector,
		hub,
	}
	if mirror != nil {
		observers = append(observers, mirror)
		recorders = append(recorders, mirror)
	}
	if influxClient != nil {
		sink := &influxSink{client: influxClient}
		observers = append(observers, sink)
		recorders = append(recorders, sink)
	}

	build := device.NewFactory(device.FactoryConfig{
		MenuURL:   cfg.Display.MenuURL,
		PayURL:    cfg.Display.PayURL,
		QRSize:    cfg.Display.QRSize,
		PromoIdle: time.Duration(cfg.Screens.PromoIdleSeconds) * time.Second,
		MenuIdle:  time.Duration(cfg.Screens.MenuIdleSeconds) * time.Second,
		PayIdle:   time.Duration(cfg.Screens.PayIdleSeconds) * time.Second,
		Rotation:  rotation,
		Encoder:   qr.NewEncoder(),
		Controller: device.Config{
			Clock:    clock.Real(),
			Balances: tablesRepo,
			Renderer: pipeline,
			Pusher:   fleetClient,
			LED:      cfg.Fleet.LED,
			Logger:   log,
			Observer: observers,
		},
	})
	defer func() {
		log.Info("stopping display controllers")
		registry.Close()
	}()

	// Startup batch
	assignments, err := tablesRepo.ListAssignments(ctx)
	if err != nil {
		return fmt.Errorf("loading table assignments: %w", err)
	}
	result, err := device.Bootstrap(ctx, registry, toDeviceAssignments(assignments), build, device.BootstrapOptions{
		Parallelism:     cfg.Startup.Parallelism,
		MinSuccessRatio: cfg.Startup.MinSuccessRatio,
		Logger:          log,
	})
	if err != nil {
		return fmt.Errorf("initialising displays: %w", err)
	}
	log.Info("displays initialised",
		"total", result.Total,
		"registered", len(result.Registered),
		"failed", len(result.Failed),
	)

	dispatcher := webhook.NewDispatcher(registry,
		webhook.WithLogger(log),
		webhook.WithRecorder(recorders),
	)

	if mqttClient != nil && cfg.MQTT.IngressTopic != "" {
		stopIngress, subErr := subscribeIngress(ctx, mqttClient, cfg.MQTT, dispatcher, log)
		if subErr != nil {
			return subErr
		}
		defer stopIngress()
	}

	prov := &provisioner{
		inner:   device.NewProvisioner(registry, &assignmentStore{repo: tablesRepo}, build, log),
		metrics: collector,
	}

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Registry:    registry,
		Dispatcher:  dispatcher,
		Provisioner: prov,
		Events:      auditRepo,
		Promotions:  &promotionReloader{repo: tablesRepo, rotation: rotation},
		Metrics:     collector.Handler(),
		Hub:         hub,
		Checks:      checks,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal",
		"devices", registry.Count(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. Display controllers (idle timers)
	// 3. Hub and broker mirror
	// 4. In-flight pushes
	// 5. InfluxDB, MQTT (if enabled)
	// 6. Database

	log.Info("mC Connect Core stopped")
	return nil
}

// hashPassword reads a password from the first line of in and writes its
// Argon2id hash, for use as security.admin.password_hash.
func hashPassword(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

// getConfigPath returns the configuration file path.
// Uses MCCONNECT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MCCONNECT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT connects to the broker when enabled. It returns a nil
// client when MQTT is disabled.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}

	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)
	return client, nil
}

// connectInfluxDB connects to InfluxDB when enabled. It returns a nil
// client when InfluxDB is disabled.
func connectInfluxDB(cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}

	client, err := influxdb.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})

	log.Info("InfluxDB connected",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)
	return client, nil
}

// subscribeIngress feeds fleet events relayed over MQTT into the same
// dispatcher as the HTTP webhook. Rejected events are logged by the
// dispatcher and never fail the subscription.
// ingressBroker is the subset of mqtt.Client used for event ingress.
type ingressBroker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// subscribeIngress feeds fleet events published on the ingress topic into
// the dispatcher. The returned func unsubscribes.
func subscribeIngress(ctx context.Context, client ingressBroker, cfg config.MQTTConfig, d *webhook.Dispatcher, log *logging.Logger) (func(), error) {
	handler := func(_ string, payload []byte) error {
		_, err := d.HandlePayload(ctx, audit.SourceMQTT, payload)
		if errors.Is(err, webhook.ErrUnknownEvent) || errors.Is(err, webhook.ErrMalformedEvent) {
			return nil
		}
		return err
	}
	if err := client.Subscribe(cfg.IngressTopic, byte(cfg.QoS), handler); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", cfg.IngressTopic, err)
	}
	log.Info("MQTT event ingress subscribed", "topic", cfg.IngressTopic)

	stop := func() {
		err := client.Unsubscribe(cfg.IngressTopic)
		switch {
		case err == nil:
			log.Info("MQTT event ingress unsubscribed", "topic", cfg.IngressTopic)
		case errors.Is(err, mqtt.ErrNotConnected):
			log.Debug("MQTT event ingress not unsubscribed while disconnected", "topic", cfg.IngressTopic)
		default:
			log.Warn("MQTT event ingress unsubscribe failed", "topic", cfg.IngressTopic, "error", err)
		}
	}
	return stop, nil
}

func toDeviceAssignments(in []tables.Assignment) []device.Assignment {
	out := make([]device.Assignment, 0, len(in))
	for _, a := range in {
		out = append(out, device.Assignment{DeviceID: a.DeviceID, TableID: a.TableID})
	}
	return out
}
