// Package app wires configuration, infrastructure and services into the
// serve, worker and ingest entry points.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/michaeltoohig/unofficial-vfsc-graph/config"
	"github.com/michaeltoohig/unofficial-vfsc-graph/db"
	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/memstore"
	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/server"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/database"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/events"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/graphsync"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/ingest"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/kafka"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/processor"
	vredis "github.com/michaeltoohig/unofficial-vfsc-graph/pkg/redis"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/routes/company"
	graphroutes "github.com/michaeltoohig/unofficial-vfsc-graph/pkg/routes/graph"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/routes/health"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/routes/individual"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/routes/search"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/routes/stats"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/startup"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing/exporters"
)

type App struct {
	cfg     config.Config
	logger  ectologger.Logger
	startup *startup.Startup
	checker *health.Checker

	db       *database.DatabaseInstance
	redis    *vredis.Client
	graphDB  *graphsync.Client
	producer *kafka.Producer

	shutdownTracing func(context.Context) error

	Services *Services
}

func New(cfg config.Config, logger ectologger.Logger) *App {
	return &App{
		cfg:     cfg,
		logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
		checker: health.NewChecker(cfg.Version),
	}
}

// Start connects every enabled dependency, runs migrations and builds the
// services.
func (a *App) Start(ctx context.Context) error {
	a.startup.AddDependency(startup.Func{
		Name: "tracing",
		StartFn: func(ctx context.Context) error {
			shutdown, err := tracing.Setup(ctx, tracing.ProviderConfig{
				ServiceName: a.cfg.AppName,
				Version:     a.cfg.Version,
				Exporter:    a.cfg.TracingExporter,
				OTLP: exporters.OTLPConfig{
					Endpoint: a.cfg.TracingEndpoint,
					Protocol: a.cfg.TracingProtocol,
					Insecure: a.cfg.TracingInsecure,
					Timeout:  10 * time.Second,
				},
			})
			if err != nil {
				return err
			}
			a.shutdownTracing = shutdown
			return nil
		},
		StopFn: func(ctx context.Context) error {
			if a.shutdownTracing == nil {
				return nil
			}
			return a.shutdownTracing(ctx)
		},
	})

	a.startup.AddDependency(startup.Func{
		Name: "postgres",
		StartFn: func(ctx context.Context) error {
			instance, err := database.Connect(ctx, a.databaseConfig(), a.logger)
			if err != nil {
				return err
			}
			a.db = instance
			a.checker.AddCheck("database", instance.PingContext)
			return nil
		},
		StopFn: func(context.Context) error {
			if a.db == nil {
				return nil
			}
			return a.db.Close()
		},
	})

	a.startup.AddDependency(startup.Func{
		Name: "migrations",
		Deps: []string{"postgres"},
		StartFn: func(context.Context) error {
			return migrateDatabase(a.cfg, a.db, a.logger)
		},
	})

	if a.cfg.RedisEnabled {
		a.startup.AddDependency(startup.Func{
			Name: "redis",
			StartFn: func(ctx context.Context) error {
				client, err := vredis.NewClient(vredis.Config{
					Host:     a.cfg.RedisHost,
					Port:     a.cfg.RedisPort,
					Password: a.cfg.RedisPassword,
					DB:       a.cfg.RedisDB,
				}, a.logger)
				if err != nil {
					return err
				}
				a.redis = client
				a.checker.AddOptionalCheck("redis", client.Ping)
				return nil
			},
			StopFn: func(context.Context) error {
				if a.redis == nil {
					return nil
				}
				return a.redis.Close()
			},
		})
	}

	if a.cfg.GraphDBEnabled {
		a.startup.AddDependency(startup.Func{
			Name: "graphdb",
			StartFn: func(ctx context.Context) error {
				client, err := graphsync.NewClient(graphsync.Config{
					Host:     a.cfg.GraphDBHost,
					Port:     a.cfg.GraphDBPort,
					Username: a.cfg.GraphDBUser,
					Password: a.cfg.GraphDBPassword,
				}, a.logger)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					_ = client.Close(ctx)
					return err
				}
				a.graphDB = client
				a.checker.AddOptionalCheck("graphdb", client.VerifyConnectivity)
				return nil
			},
			StopFn: func(ctx context.Context) error {
				if a.graphDB == nil {
					return nil
				}
				return a.graphDB.Close(ctx)
			},
		})
	}

	if a.cfg.KafkaEventsEnabled {
		a.startup.AddDependency(startup.Func{
			Name: "kafka-producer",
			StartFn: func(context.Context) error {
				a.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      a.cfg.KafkaBrokers,
					Topic:        a.cfg.KafkaOutputTopic,
					BatchSize:    a.cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: a.cfg.KafkaRequiredAcks,
					Compression:  a.cfg.KafkaCompression,
				}, a.logger)
				return nil
			},
			StopFn: func(context.Context) error {
				if a.producer == nil {
					return nil
				}
				return a.producer.Close()
			},
		})
	}

	a.startup.AddDependency(startup.Func{
		Name: "services",
		Deps: a.serviceDeps(),
		StartFn: func(context.Context) error {
			a.Services = NewServices(a.cfg, PostgresStores(a.db, a.logger), a.extras(), a.logger)
			return nil
		},
	})

	return a.startup.Start(ctx)
}

func (a *App) serviceDeps() []string {
	deps := []string{"tracing", "migrations"}
	if a.cfg.RedisEnabled {
		deps = append(deps, "redis")
	}
	if a.cfg.GraphDBEnabled {
		deps = append(deps, "graphdb")
	}
	if a.cfg.KafkaEventsEnabled {
		deps = append(deps, "kafka-producer")
	}
	return deps
}

func (a *App) extras() Extras {
	var extras Extras
	if a.redis != nil {
		extras.Versions = vredis.NewGraphVersion(a.redis, a.cfg.GraphVersionKey)
		extras.Locker = vredis.NewLocker(a.redis, a.cfg.AppName+":lock:")
	}
	if a.graphDB != nil {
		stores := PostgresStores(a.db, a.logger)
		extras.Listeners = append(extras.Listeners, graphsync.NewProjector(a.graphDB, stores.Companies, stores.Individuals, a.logger))
	}
	if a.producer != nil {
		extras.Listeners = append(extras.Listeners, events.NewEmitter(a.producer))
	}
	return extras
}

func (a *App) Stop(ctx context.Context) error {
	return a.startup.Stop(ctx)
}

// Serve runs the HTTP API until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	explorer := a.Services.Explorer
	srv := server.New(a.cfg, a.logger, a.checker,
		company.NewHandler(explorer, a.logger),
		individual.NewHandler(explorer, a.logger),
		search.NewHandler(explorer, a.logger),
		graphroutes.NewHandler(explorer, a.logger),
		stats.NewHandler(explorer, a.logger),
	)
	return srv.Run(ctx)
}

// Work consumes scraped records from Kafka in one long-lived session until
// ctx is done.
func (a *App) Work(ctx context.Context) error {
	runner := a.Services.Runner
	if _, err := runner.Start(ctx); err != nil {
		return err
	}

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       a.cfg.KafkaBrokers,
		Topic:         a.cfg.KafkaInputTopic,
		ConsumerGroup: a.cfg.KafkaConsumerGroup,
	}, a.logger, runner.MessageHandler())

	status := models.SessionSuccess
	if err := consumer.Start(ctx); err != nil {
		status = models.SessionFailed
		a.logger.WithContext(ctx).WithError(err).Error("Failed to start consumer")
	} else {
		<-ctx.Done()
		if err := consumer.Stop(); err != nil {
			a.logger.WithContext(ctx).WithError(err).Warn("Failed to stop consumer")
		}
	}

	_, err := runner.Finish(context.WithoutCancel(ctx), status)
	return err
}

// Ingest loads one file of records in a single session.
func (a *App) Ingest(ctx context.Context, path string) (ingest.Summary, error) {
	return ingestFile(ctx, a.Services.Runner, path)
}

// DryRun ingests path into an in-memory store, leaving every external
// system untouched.
func DryRun(ctx context.Context, cfg config.Config, path string, logger ectologger.Logger) (ingest.Summary, *models.Stats, error) {
	services := NewServices(cfg, MemoryStores(memstore.New()), Extras{}, logger)
	summary, err := ingestFile(ctx, services.Runner, path)
	if err != nil {
		return summary, nil, err
	}
	stats, err := services.Explorer.Stats(ctx)
	return summary, stats, err
}

func ingestFile(ctx context.Context, runner *ingest.Runner, path string) (ingest.Summary, error) {
	source, err := ingest.OpenFile(path)
	if err != nil {
		return ingest.Summary{}, err
	}
	defer source.Close()
	return runner.Run(ctx, source)
}

// Migrate applies the embedded migrations and exits.
func Migrate(ctx context.Context, cfg config.Config, logger ectologger.Logger) error {
	a := New(cfg, logger)
	instance, err := database.Connect(ctx, a.databaseConfig(), logger)
	if err != nil {
		return err
	}
	defer instance.Close()
	return migrateDatabase(cfg, instance, logger)
}

func migrateDatabase(cfg config.Config, instance *database.DatabaseInstance, logger ectologger.Logger) error {
	if instance == nil {
		return fmt.Errorf("database is not connected")
	}
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		Source:       db.Migrations,
		Dir:          db.MigrationsDir,
		Version:      uint(cfg.DatabaseMigrationVersion),
		Force:        cfg.DatabaseMigrationForce,
		AutoRollback: cfg.DatabaseMigrationAutoRollback,
	})
	return migrations.Migrate(cfg.DatabaseName, instance.DB.DB)
}

func (a *App) databaseConfig() database.Config {
	return database.Config{
		Host:            a.cfg.DatabaseHost,
		Port:            a.cfg.DatabasePort,
		User:            a.cfg.DatabaseUserName,
		Password:        a.cfg.DatabasePassword,
		Name:            a.cfg.DatabaseName,
		SSLMode:         a.cfg.DatabaseSSLMode,
		MaxOpenConns:    a.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    a.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: a.cfg.DatabaseConnMaxLifetime,
	}
}

var _ processor.Listener = (*graphsync.Projector)(nil)
