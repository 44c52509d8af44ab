package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// EnvPrefix prefixes every environment override, e.g. DISPATCH_RABBITMQ_PASSWORD
	EnvPrefix = "DISPATCH"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Database   DatabaseConfig            `yaml:"database"`
	RabbitMQ   RabbitMQConfig            `yaml:"rabbitmq"`
	Logging    LoggingConfig             `yaml:"logging"`
	App        AppConfig                 `yaml:"app"`
	Repository RepositoryConfig          `yaml:"repository"`
	Auth       AuthConfig                `yaml:"auth"`
	Actions    []domain.JobConfiguration `yaml:"actions"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

// RabbitMQConfig holds the broker connection configuration.
// QueueDurable defaults to true when omitted.
type RabbitMQConfig struct {
	Host          string           `yaml:"host"`
	Port          int              `yaml:"port"`
	User          string           `yaml:"user"`
	Password      string           `yaml:"password"`
	VHost         string           `yaml:"vhost"`
	QueueDurable  *bool            `yaml:"queue_durable"`
	SelfTestQueue string           `yaml:"selftest_queue"`
	Connection    ConnectionConfig `yaml:"connection"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"`
	Output           string `yaml:"output"`
	EnableCaller     bool   `yaml:"enable_caller"`
	EnableStackTrace bool   `yaml:"enable_stack_trace"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// RepositoryConfig describes the repository the dispatched events point back to
type RepositoryConfig struct {
	BaseURL          string            `yaml:"base_url"`
	FedoraRoot       string            `yaml:"fedora_root"`
	FedoraScheme     string            `yaml:"fedora_scheme"`
	FileBases        map[string]string `yaml:"file_bases"`
	RevisionCounting string            `yaml:"revision_counting"`
}

// AuthConfig holds bearer token issuance settings
type AuthConfig struct {
	KeyID          string        `yaml:"key_id"`
	Issuer         string        `yaml:"issuer"`
	Audience       []string      `yaml:"audience"`
	TTL            time.Duration `yaml:"ttl"`
	PrivateKeyPath string        `yaml:"private_key_path"`
}

// envOverrides lists the settings that may come from the environment
type envOverrides struct {
	DatabasePassword  string `envconfig:"DATABASE_PASSWORD"`
	RabbitMQPassword  string `envconfig:"RABBITMQ_PASSWORD"`
	JWTPrivateKeyPath string `envconfig:"JWT_PRIVATE_KEY_PATH"`
	RepositoryBaseURL string `envconfig:"REPOSITORY_BASE_URL"`
}

// Load reads and parses the configuration file, then applies environment
// overrides and defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	return &config, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}

	if env.DatabasePassword != "" {
		c.Database.Password = env.DatabasePassword
	}
	if env.RabbitMQPassword != "" {
		c.RabbitMQ.Password = env.RabbitMQPassword
	}
	if env.JWTPrivateKeyPath != "" {
		c.Auth.PrivateKeyPath = env.JWTPrivateKeyPath
	}
	if env.RepositoryBaseURL != "" {
		c.Repository.BaseURL = env.RepositoryBaseURL
	}
	return nil
}

// ApplyDefaults fills blank settings, including every action's per-kind defaults
func (c *Config) ApplyDefaults() {
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.RabbitMQ.VHost == "" {
		c.RabbitMQ.VHost = "/"
	}
	if c.RabbitMQ.QueueDurable == nil {
		durable := true
		c.RabbitMQ.QueueDurable = &durable
	}
	if c.RabbitMQ.SelfTestQueue == "" {
		c.RabbitMQ.SelfTestQueue = "islandora-dispatch-selftest"
	}
	if c.RabbitMQ.Connection.RetryAttempts <= 0 {
		c.RabbitMQ.Connection.RetryAttempts = 1
	}
	if c.Repository.FedoraScheme == "" {
		c.Repository.FedoraScheme = "fedora"
	}
	if c.Repository.RevisionCounting == "" {
		c.Repository.RevisionCounting = "stored"
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "file://migrations"
	}

	for i := range c.Actions {
		c.Actions[i].ApplyDefaults()
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if err := c.Repository.validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Actions))
	for i := range c.Actions {
		action := &c.Actions[i]
		if action.Name == "" {
			return fmt.Errorf("action %d: name is required", i)
		}
		if _, dup := seen[action.Name]; dup {
			return fmt.Errorf("action %q: duplicate name", action.Name)
		}
		seen[action.Name] = struct{}{}

		if err := action.Validate(); err != nil {
			return fmt.Errorf("action %q: %w", action.Name, err)
		}
	}

	return nil
}

func (r *RepositoryConfig) validate() error {
	if r.BaseURL == "" {
		return fmt.Errorf("repository base_url is required")
	}

	u, err := url.Parse(r.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid repository base_url: %q", r.BaseURL)
	}

	switch r.RevisionCounting {
	case "", "stored", "pending":
	default:
		return fmt.Errorf("invalid repository revision_counting: %q (must be stored or pending)", r.RevisionCounting)
	}

	return nil
}

// Durable reports whether queues are declared durable
func (r *RabbitMQConfig) Durable() bool {
	return r.QueueDurable == nil || *r.QueueDurable
}
