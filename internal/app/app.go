package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/derivative-dispatcher/internal/auth"
	"github.com/cuongbtq/derivative-dispatcher/internal/config"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/encoder"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/headers"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/links"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/resolver"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/storage"
	"github.com/cuongbtq/derivative-dispatcher/shared/logger"
	"github.com/cuongbtq/derivative-dispatcher/shared/postgresql"
	"github.com/cuongbtq/derivative-dispatcher/shared/rabbitmq"
)

// App holds the wired dispatch components shared by the service and the CLI
type App struct {
	DB         *postgresql.Client
	Broker     *rabbitmq.Client
	Dispatcher *dispatch.Dispatcher
	Service    *dispatch.Service
}

// Build connects to the database, prepares the broker client and wires the
// dispatch pipeline. An unreachable broker is logged, not fatal: the
// dispatcher reconnects on the next publish.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger, migrate bool) (*App, error) {
	dbClient, err := InitPostgreSQL(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if migrate {
		if err := dbClient.Migrate(cfg.Database.MigrationsPath); err != nil {
			dbClient.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	rabbitClient := InitRabbitMQ(&cfg.RabbitMQ, log)
	if err := rabbitClient.ConnectWithRetry(ctx); err != nil {
		log.Warn(dispatch.BrokerUnavailableMessage, slog.Any("error", err))
	}

	issuer, err := InitIssuer(&cfg.Auth, log)
	if err != nil {
		dbClient.Close()
		rabbitClient.Close()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	linker, err := links.New(links.Config{
		BaseURL:      cfg.Repository.BaseURL,
		FileBases:    cfg.Repository.FileBases,
		FedoraScheme: cfg.Repository.FedoraScheme,
		FedoraRoot:   cfg.Repository.FedoraRoot,
	})
	if err != nil {
		dbClient.Close()
		rabbitClient.Close()
		return nil, fmt.Errorf("failed to initialize links: %w", err)
	}

	registry, err := dispatch.NewRegistry(cfg.Actions)
	if err != nil {
		dbClient.Close()
		rabbitClient.Close()
		return nil, fmt.Errorf("failed to initialize actions: %w", err)
	}

	store := storage.NewStore(dbClient.GetDB())
	dispatcher := dispatch.NewDispatcher(
		dispatch.NewAMQPBroker(rabbitClient),
		resolver.New(store, linker, resolver.NewTokenReplacer(time.Now), log),
		encoder.New(linker, store, encoder.Options{
			RevisionCounting: encoder.RevisionCounting(cfg.Repository.RevisionCounting),
		}),
		headers.Defaults(issuer),
		log,
	)

	return &App{
		DB:         dbClient,
		Broker:     rabbitClient,
		Dispatcher: dispatcher,
		Service:    dispatch.NewService(registry, store, dispatcher, log),
	}, nil
}

// Close releases the broker and database connections
func (a *App) Close() {
	if a.Broker != nil {
		a.Broker.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// InitIssuer loads the token issuer from the configured private key
func InitIssuer(cfg *config.AuthConfig, log *slog.Logger) (*auth.JWTIssuer, error) {
	return auth.LoadJWTIssuer(auth.Config{
		KeyID:    cfg.KeyID,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		TTL:      cfg.TTL,
	}, cfg.PrivateKeyPath, log)
}

// PublicKeyPEM returns the public half of the configured signing key, the key
// workers verify message tokens with. An ephemeral key is refused since it
// would not survive the process.
func PublicKeyPEM(cfg *config.AuthConfig, log *slog.Logger) ([]byte, error) {
	if cfg.PrivateKeyPath == "" {
		return nil, errors.New("no JWT private key configured")
	}

	issuer, err := InitIssuer(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	return issuer.PublicKeyPEM()
}

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// InitPostgreSQL initializes the PostgreSQL database client
func InitPostgreSQL(cfg *config.DatabaseConfig, log *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, log)
}

// InitRabbitMQ initializes the RabbitMQ client without dialing
func InitRabbitMQ(cfg *config.RabbitMQConfig, log *slog.Logger) *rabbitmq.Client {
	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		QueueDurable:      cfg.Durable(),
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		ConnectionTimeout: cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, log)
}
