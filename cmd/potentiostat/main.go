// Potentiostat Core - experiment control service for networked potentiostats.
//
// This is the main entry point. The service:
//   - Authenticates researchers (users) and instruments (clients)
//   - Runs the experiment lifecycle INITIATED → RUNNING → COMPLETED
//   - Notifies instruments over MQTT and relays events to WebSocket feeds
//   - Stores measurement samples in SQLite, mirrored to InfluxDB when enabled
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/potentiostat-core/internal/api"
	"github.com/nerrad567/potentiostat-core/internal/audit"
	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/client"
	"github.com/nerrad567/potentiostat-core/internal/experiment"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/config"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/database"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/logging"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/potentiostat-core/internal/measurement"
	"github.com/nerrad567/potentiostat-core/internal/notify"
	"github.com/nerrad567/potentiostat-core/internal/user"
	"github.com/nerrad567/potentiostat-core/internal/usertoken"
	"github.com/nerrad567/potentiostat-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup sequence: linear wiring of every subsystem
	log := logging.Default()
	log.Info("starting potentiostat core",
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

	// Database
	db, err := database.Open(database.Config{
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Accounts
	userRepo := user.NewSQLiteRepository(db.DB)
	clientRepo := client.NewSQLiteRepository(db.DB)
	tokens := usertoken.NewStore(usertoken.NewSQLiteRepository(db.DB), db)
	users := user.NewService(userRepo, db, tokens, nil, user.Options{
		ResetTokenLength: cfg.Tokens.ResetPassword.Length,
		ResetTokenExpiry: cfg.Tokens.ResetPassword.ExpiryMinutes,
		PhoneRegion:      cfg.Users.DefaultPhoneRegion,
	}, log)

	seeded, err := users.SeedSuperAdmin(ctx, user.SeedAccount{
		Username:  cfg.Seed.Username,
		Password:  cfg.Seed.Password,
		FirstName: cfg.Seed.FirstName,
		LastName:  cfg.Seed.LastName,
	})
	if err != nil {
		return err
	}
	if !seeded && cfg.Seed.Username != "" {
		log.Debug("super admin already present", "username", cfg.Seed.Username)
	}

	userDir := user.NewDirectory(userRepo)
	clientDir := client.NewDirectory(clientRepo)
	issuer := auth.NewIssuer(cfg.Security.JWT.Secret, cfg.GetAccessTokenTTL(), userDir, clientDir)

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT, log)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	health := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}

	// InfluxDB (optional)
	var recorder measurement.Recorder
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB, log)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		recorder = influxClient
		health["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Domain
	auditRepo := audit.NewSQLiteRepository(db.DB)
	measurementRepo := measurement.NewSQLiteRepository(db.DB)
	engine := experiment.NewEngine(experiment.Deps{
		Repo:         experiment.NewSQLiteRepository(db.DB),
		Clients:      clientRepo,
		Measurements: measurementRepo,
		Audit:        auditRepo,
		Notifier:     notify.NewDispatcher(mqttClient, mqttClient.QoS()),
		Tx:           db,
		Logger:       log,
	})

	if err := healthCheck(ctx, health); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// API
	server, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Logger:        log,
		Authenticator: auth.NewAuthenticator(userDir, clientDir, issuer),
		Issuer:        issuer,
		Users:         users,
		Clients:       client.NewService(clientRepo),
		Experiments:   engine,
		Measurements:  measurement.NewService(measurementRepo, engine, db, recorder),
		AuditRepo:     auditRepo,
		MQTT:          mqttClient,
		Health:        health,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("POTENTIOSTAT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck runs every dependency check once at startup.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range []string{"database", "mqtt", "influxdb"} {
		c, ok := checks[name]
		if !ok {
			continue
		}
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
