package main

import (
	"context"
	"fmt"
	"io"
	"time"

	_ "github.com/nerrad567/gray-logic-hub/migrations"

	"github.com/nerrad567/gray-logic-hub/internal/api"
	"github.com/nerrad567/gray-logic-hub/internal/audit"
	"github.com/nerrad567/gray-logic-hub/internal/connection"
	"github.com/nerrad567/gray-logic-hub/internal/consumer"
	"github.com/nerrad567/gray-logic-hub/internal/device"
	"github.com/nerrad567/gray-logic-hub/internal/deviceapi"
	"github.com/nerrad567/gray-logic-hub/internal/exchange"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hub/internal/state"
	"github.com/nerrad567/gray-logic-hub/internal/store"
	"github.com/nerrad567/gray-logic-hub/internal/telemetry"
)

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting Gray Logic Hub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("device"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", registry.DeviceCount())

	// Property state
	states, closeStates, err := store.OpenStateStore(ctx, store.Config{
		Backend: store.Backend(cfg.State.Backend),
		DSN:     cfg.State.DSN,
	}, db.DB)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer closeStates()
	log.Info("state store opened", "backend", cfg.State.Backend)

	props := store.NewPropertyRepository(db.DB)
	connectors := state.NewConnectorManager(props, states)
	devices := state.NewDeviceManager(props, states)
	channels := state.NewChannelManager(props, states)
	for _, m := range []*state.Manager{connectors, devices, channels} {
		m.SetLogger(log.Component("state").With("entity", m.Trait().Entity))
	}

	util := connection.NewUtility(connectors, devices, channels, registry)
	util.SetLogger(log.Component("connection"))

	// Broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0..2

	influxClient, err := connectInflux(cfg, log)
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
	}

	// Change fan-out
	history := store.NewHistoryRepository(db.DB)
	if days := cfg.State.HistoryRetentionDays; days > 0 {
		go pruneHistory(ctx, history, time.Duration(days)*24*time.Hour, log.Component("history"))
	}
	sinks := telemetry.Sinks{History: history, MQTT: mqttClient, QoS: qos}
	if influxClient != nil {
		sinks.Points = influxClient
	}
	recorder := telemetry.NewRecorder(sinks)
	recorder.SetLogger(log.Component("telemetry"))
	recorder.Attach(connectors, devices, channels)
	util.OnTransition(recorder.ConnectionChanged)

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	for _, m := range []*state.Manager{connectors, devices, channels} {
		m.OnChange(hub.PropertyChanged)
	}
	util.OnTransition(hub.ConnectionChanged)

	// Exchange
	validator, err := exchange.NewValidator()
	if err != nil {
		return fmt.Errorf("compiling message schemas: %w", err)
	}
	dispatcher := exchange.NewDispatcher()
	dispatcher.SetLogger(log.Component("exchange"))

	queue, startQueue, stopQueue := newQueue(ctx, cfg, mqttClient, dispatcher, validator, qos, log)

	devClient := deviceapi.NewMQTTClient(mqttClient, cfg.Exchange.Source, qos, cfg.GetCommandTimeout())
	devClient.SetLogger(log.Component("deviceapi"))
	if startErr := devClient.Start(bridgeProtocols()...); startErr != nil {
		return fmt.Errorf("starting device API client: %w", startErr)
	}
	defer func() {
		if stopErr := devClient.Stop(); stopErr != nil {
			log.Warn("error stopping device API client", "error", stopErr)
		}
	}()

	registerConsumers(dispatcher, registry, util, state.NewAsync(channels), devClient, queue, cfg.Exchange.Source, log)
	log.Info("exchange consumers registered", "routing_keys", dispatcher.Keys())

	if startErr := startQueue(); startErr != nil {
		return startErr
	}
	defer stopQueue()

	ingest := deviceapi.NewIngest(mqttClient, queue, cfg.Exchange.Source, qos)
	ingest.SetLogger(log.Component("deviceapi"))
	if startErr := ingest.Start(ctx); startErr != nil {
		return fmt.Errorf("starting bridge state ingest: %w", startErr)
	}
	defer func() {
		if stopErr := ingest.Stop(); stopErr != nil {
			log.Warn("error stopping bridge state ingest", "error", stopErr)
		}
	}()

	// HTTP
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log.Component("api"),
		Registry:    registry,
		Connectors:  connectors,
		Devices:     devices,
		Channels:    channels,
		Connection:  util,
		Definitions: props,
		Queue:       queue,
		History:     history,
		Audit:       audit.NewSQLiteRepository(db.DB),
		Broker:      mqttClient,
		DB:          db.DB,
		Hub:         hub,
		Source:      cfg.Exchange.Source,
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
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	// Deferred closes run in reverse: API, device client, queue, InfluxDB,
	// MQTT, state store, database.
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// migrate applies pending migrations, or rolls back the latest one, and
// reports the resulting status.
func migrate(ctx context.Context, configPath string, rollback bool, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)

	var db *database.DB
	if rollback {
		if db, err = database.Open(database.FromConfig(cfg.Database)); err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
	} else if db, err = openDatabase(ctx, cfg, log); err != nil {
		return err
	}
	defer db.Close()

	if rollback {
		m, err := db.MigrateDown(ctx)
		if err != nil {
			return err
		}
		if m != nil {
			fmt.Fprintf(out, "rolled back %s_%s\n", m.Version, m.Name)
		}
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	fmt.Fprintf(out, "%d migrations applied, %d pending\n", len(applied), len(pending))
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(database.FromConfig(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")
	return db, nil
}

// connectInflux returns nil when InfluxDB is disabled.
func connectInflux(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetLogger(log.Component("influxdb"))
	log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "org", cfg.InfluxDB.Org, "bucket", cfg.InfluxDB.Bucket)
	return client, nil
}

// newQueue builds the configured exchange transport. Delivery begins with
// start; stop ends it.
func newQueue(ctx context.Context, cfg *config.Config, broker *mqtt.Client, d *exchange.Dispatcher, v *exchange.Validator, qos byte, log *logging.Logger) (q exchange.Queue, start func() error, stop func()) {
	qlog := log.Component("exchange")
	if cfg.Exchange.Transport == "mqtt" {
		mq := exchange.NewMQTTQueue(broker, d, v, qos)
		mq.SetLogger(qlog)
		start = func() error {
			if err := mq.Start(ctx); err != nil {
				return fmt.Errorf("starting MQTT exchange: %w", err)
			}
			qlog.Info("exchange started", "transport", "mqtt", "topic", mqtt.Topics{}.AllExchange())
			return nil
		}
		stop = func() {
			if err := mq.Stop(); err != nil {
				qlog.Warn("error stopping MQTT exchange", "error", err)
			}
		}
		return mq, start, stop
	}

	mem := exchange.NewMemoryQueue(d, v, cfg.Exchange.QueueSize)
	mem.SetLogger(qlog)
	start = func() error {
		go mem.Run(ctx)
		qlog.Info("exchange started", "transport", "memory", "queue_size", cfg.Exchange.QueueSize)
		return nil
	}
	return mem, start, mem.Close
}

func registerConsumers(d *exchange.Dispatcher, registry *device.Registry, util *connection.Utility, channels *state.Async, client deviceapi.Client, queue exchange.Queue, source string, log *logging.Logger) {
	clog := log.Component("consumer")

	sub := consumer.NewSubDeviceWriter(registry, channels, client, queue, source)
	sub.SetLogger(clog)
	thirdParty := consumer.NewThirdPartyWriter(registry, channels, client, queue, source)
	thirdParty.SetLogger(clog)
	connState := consumer.NewStoreDeviceConnectionState(registry, util)
	connState.SetLogger(clog)
	propState := consumer.NewStoreChannelPropertyState(registry, channels)
	propState.SetLogger(clog)

	consumer.Register(d,
		sub.Registration(),
		thirdParty.Registration(),
		connState.Registration(),
		propState.Registration(),
	)
}

// bridgeProtocols lists the protocols whose bridges may ack commands.
func bridgeProtocols() []string {
	var out []string
	for _, p := range device.AllProtocols() {
		if p == device.ProtocolVirtual {
			continue
		}
		out = append(out, string(p))
	}
	return out
}

const historyPruneInterval = time.Hour

// pruneHistory drops history older than retention until ctx is done.
func pruneHistory(ctx context.Context, history *store.HistoryRepository, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()
	for {
		n, err := history.Prune(ctx, time.Now().Add(-retention))
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("pruning state history", "error", err)
		case n > 0:
			log.Debug("state history pruned", "removed", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
