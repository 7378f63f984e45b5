package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/Jawfish/klink/internal/token"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Config holds the configuration shared by the user service, the auth service and the gateway.
// Each binary validates only the parts it uses.
type Config struct {
	Server struct {
		Host string `yaml:"host" env:"HOST_IP"`
		Port string `yaml:"port" env:"HOST_PORT"`
	} `yaml:"server"`
	JWT struct {
		Secret     string        `yaml:"secret" env:"JWT_SECRET"`
		Algorithm  string        `yaml:"algorithm" env:"JWT_ALGORITHM"`
		TTL        time.Duration `yaml:"ttl" env:"TOKEN_TTL"`
		RefreshTTL time.Duration `yaml:"refresh_ttl" env:"REFRESH_TOKEN_TTL"`
	} `yaml:"jwt"`
	// CredentialSource selects where the auth service reads password hashes:
	// "remote" (user service over HTTP) or "local" (direct database access).
	CredentialSource string `yaml:"credential_source" env:"CREDENTIAL_SOURCE"`
	UserService      struct {
		URL     string        `yaml:"url" env:"USER_SERVICE_URL"`
		Timeout time.Duration `yaml:"timeout" env:"USER_SERVICE_TIMEOUT"`
	} `yaml:"user_service"`
	AuthService struct {
		URL     string        `yaml:"url" env:"AUTH_SERVICE_URL"`
		Timeout time.Duration `yaml:"timeout" env:"AUTH_SERVICE_TIMEOUT"`
	} `yaml:"auth_service"`
	Database struct {
		Driver string `yaml:"driver" env:"DATABASE_DRIVER"`
		URL    string `yaml:"url" env:"DATABASE_URL"`
	} `yaml:"database"`
	RabbitMQ struct {
		URL   string `yaml:"url" env:"RABBITMQ_URL"`
		Queue string `yaml:"user_events_queue" env:"RABBITMQ_USER_EVENTS_QUEUE"`
	} `yaml:"rabbitmq"`
	Log struct {
		Env string `yaml:"env" env:"LOG_ENV"`
	} `yaml:"log"`
}

// Load reads an optional .env file into the process environment, then builds
// the config from configPath with environment overrides. A missing YAML file
// is not an error.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadWithEnv(configPath, env.ToMap(os.Environ()))
}

// LoadWithEnv is Load with an explicit environment and no .env handling.
func LoadWithEnv(configPath string, environ map[string]string) (*Config, error) {
	config := &Config{}

	if configPath != "" {
		file, err := os.Open(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to open config file: %w", err)
		default:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(config); err != nil {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		}
	}

	// Expand ${VAR} references in values that usually carry credentials
	expand := func(s string) string {
		return os.Expand(s, func(key string) string { return environ[key] })
	}
	config.JWT.Secret = expand(config.JWT.Secret)
	config.Database.URL = expand(config.Database.URL)
	config.RabbitMQ.URL = expand(config.RabbitMQ.URL)
	config.UserService.URL = expand(config.UserService.URL)
	config.AuthService.URL = expand(config.AuthService.URL)

	if err := env.ParseWithOptions(config, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	config.setDefaults()
	return config, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}
	if c.JWT.Algorithm == "" {
		c.JWT.Algorithm = "HS256"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = token.DefaultTTL
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = token.DefaultRefreshTTL
	}
	if c.CredentialSource == "" {
		c.CredentialSource = SourceRemote
	}
	if c.UserService.Timeout == 0 {
		c.UserService.Timeout = 5 * time.Second
	}
	if c.AuthService.Timeout == 0 {
		c.AuthService.Timeout = 5 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = "user.created"
	}
	if c.Log.Env == "" {
		c.Log.Env = "development"
	}
}

// Addr is the listen address built from HOST_IP and HOST_PORT.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// ValidateUserService checks what the user service needs at startup.
func (c *Config) ValidateUserService() error {
	return errors.Join(c.validateDatabase())
}

// ValidateAuthService checks what the auth service needs at startup.
func (c *Config) ValidateAuthService() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if _, err := token.ValidateAlgorithm(c.JWT.Algorithm); err != nil {
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM: %w", err))
	}
	if c.JWT.TTL < 0 || c.JWT.RefreshTTL < 0 {
		errs = append(errs, errors.New("token lifetimes must not be negative"))
	}
	if c.UserService.Timeout <= 0 || c.UserService.Timeout >= 10*time.Second {
		errs = append(errs, fmt.Errorf("USER_SERVICE_TIMEOUT must be between 0 and 10s, got %s", c.UserService.Timeout))
	}

	switch c.CredentialSource {
	case SourceRemote:
		errs = append(errs, validateURL("USER_SERVICE_URL", c.UserService.URL))
	case SourceLocal:
		errs = append(errs, c.validateDatabase())
	default:
		errs = append(errs, fmt.Errorf("CREDENTIAL_SOURCE must be %q or %q, got %q", SourceRemote, SourceLocal, c.CredentialSource))
	}
	return errors.Join(errs...)
}

// ValidateGateway checks what the gateway needs at startup.
func (c *Config) ValidateGateway() error {
	var errs []error
	errs = append(errs, validateURL("AUTH_SERVICE_URL", c.AuthService.URL))
	errs = append(errs, validateURL("USER_SERVICE_URL", c.UserService.URL))
	if c.AuthService.Timeout <= 0 {
		errs = append(errs, errors.New("AUTH_SERVICE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateDatabase() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.Database.Driver))
	}
	return errors.Join(errs...)
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s is not an absolute URL: %q", name, raw)
	}
	return nil
}
