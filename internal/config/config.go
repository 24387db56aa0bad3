package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// this is a pointer so that if someone attempts to use it before loading it will
// panic and force them to load it first.
// it is also private so that it cannot be modified after loading.
var _loaded *Config

// Config is the main configuration structure
type Config struct {
	Common Common `yaml:"common"`
}

// Load loads the configuration following proper precedence: defaults → config file → environment variables
func Load() {
	// Start with a copy of the defaults so overrides never write through
	// to the package-level default values
	cfg := defaultConfig
	_loaded = &cfg

	// Try to load from config file and merge over defaults
	configFile := os.Getenv("LIBRARIUM_CONFIG_FILE")
	if configFile == "" {
		configFile = "librarium.yaml"
	}

	if err := LoadFromFile(configFile); err != nil {
		log.Printf("Failed to load config file: %v, using defaults", err)
	} else {
		log.Printf("Successfully loaded config from file: %s", configFile)
	}

	// Apply environment variable overrides (highest priority)
	ApplyEnvOverrides()
}

func LoadDefault() {
	config := defaultConfig
	_loaded = &config
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := defaultConfig

	// Merge YAML values over defaults
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	_loaded = &cfg
	return nil
}

// set sane defaults for all of the config options. when loading the config from
// the file, any options that are not set will be set to these defaults.
var defaultConfig = Config{
	Common: Common{
		Log: logConfig{
			Level:  "info",
			Format: "json",
		},
		UsersHttp: httpConfig{
			Host: "0.0.0.0",
			Port: 5005,
		},
		LibraryHttp: httpConfig{
			Host: "0.0.0.0",
			Port: 5010,
		},
		Auth: authConfig{
			// Default secret for development - must be overridden in any real
			// deployment and must be identical across both services.
			SharedSecret: "8c6b58c9-3b6f-4a86-9f2e-1d24f0a7b3c5",
		},
		Postgres: postgresConfig{
			postgresConfigCommon: postgresConfigCommon{
				User:               "postgres",
				Password:           "postgres",
				Host:               "localhost",
				Port:               5432,
				Database:           "librarium",
				SchemaName:         "public",
				ReadTimeout:        30,
				WriteTimeout:       30,
				MaxOpenConnections: 10,
			},
		},
		Saga: sagaConfig{
			RequestTimeoutSeconds:    5,
			ReconcileIntervalSeconds: 60,
			StaleAfterSeconds:        300,
		},
	},
}

type Common struct {
	Log         logConfig      `yaml:"log"`
	UsersHttp   httpConfig     `yaml:"users_http"`
	LibraryHttp httpConfig     `yaml:"library_http"`
	Auth        authConfig     `yaml:"auth"`
	Postgres    postgresConfig `yaml:"postgres"`
	Saga        sagaConfig     `yaml:"saga"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type httpConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BaseURL builds the address peers use to reach this service.
func (c httpConfig) BaseURL() string {
	host := c.Host
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Port)
}

type authConfig struct {
	// SharedSecret is both the token derivation namespace and the
	// inter-service credential. It must parse as a UUID.
	SharedSecret string `yaml:"shared_secret"`
}

type sagaConfig struct {
	RequestTimeoutSeconds    int `yaml:"request_timeout_seconds"`    // Bound on cross-service calls
	ReconcileIntervalSeconds int `yaml:"reconcile_interval_seconds"` // How often the sweep runs
	StaleAfterSeconds        int `yaml:"stale_after_seconds"`        // Age before an in-flight saga is considered stuck
}

type postgresConfigCommon struct {
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Database           string `yaml:"database"`
	SchemaName         string `yaml:"schema_name"`
	ReadTimeout        int    `yaml:"read_timeout"`
	WriteTimeout       int    `yaml:"write_timeout"`
	MaxOpenConnections int    `yaml:"max_open_connections"`
}

func (c postgresConfigCommon) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
	)
}

type postgresConfig struct {
	postgresConfigCommon `yaml:",inline"`
}

// there should be a getter for each top level field in the config struct.
// these getters will panic if the config has not been loaded.

func Logger() logConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Log
}

func UsersHttp() httpConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.UsersHttp
}

func LibraryHttp() httpConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.LibraryHttp
}

func Auth() authConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Auth
}

func Postgres() postgresConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Postgres
}

func Saga() sagaConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Saga
}

func Get() *Config {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded
}

func ApplyEnvOverrides() {
	if _loaded == nil {
		return
	}

	// Override with environment variables if present
	if dbHost := os.Getenv("LIBRARIUM_DB_HOST"); dbHost != "" {
		_loaded.Common.Postgres.Host = dbHost
	}
	if dbPort := os.Getenv("LIBRARIUM_DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			_loaded.Common.Postgres.Port = port
		}
	}
	if dbUser := os.Getenv("LIBRARIUM_DB_USER"); dbUser != "" {
		_loaded.Common.Postgres.User = dbUser
	}
	if dbPassword := os.Getenv("LIBRARIUM_DB_PASSWORD"); dbPassword != "" {
		_loaded.Common.Postgres.Password = dbPassword
	}
	if dbName := os.Getenv("LIBRARIUM_DB_NAME"); dbName != "" {
		_loaded.Common.Postgres.Database = dbName
	}

	if usersHost := os.Getenv("LIBRARIUM_USERS_HOST"); usersHost != "" {
		_loaded.Common.UsersHttp.Host = usersHost
	}
	if usersPort := os.Getenv("LIBRARIUM_USERS_PORT"); usersPort != "" {
		if port, err := strconv.Atoi(usersPort); err == nil {
			_loaded.Common.UsersHttp.Port = port
		}
	}
	if libraryHost := os.Getenv("LIBRARIUM_LIBRARY_HOST"); libraryHost != "" {
		_loaded.Common.LibraryHttp.Host = libraryHost
	}
	if libraryPort := os.Getenv("LIBRARIUM_LIBRARY_PORT"); libraryPort != "" {
		if port, err := strconv.Atoi(libraryPort); err == nil {
			_loaded.Common.LibraryHttp.Port = port
		}
	}

	if secret := os.Getenv("LIBRARIUM_SHARED_SECRET"); secret != "" {
		_loaded.Common.Auth.SharedSecret = secret
	}

	if timeout := os.Getenv("LIBRARIUM_SAGA_REQUEST_TIMEOUT"); timeout != "" {
		if seconds, err := strconv.Atoi(timeout); err == nil {
			_loaded.Common.Saga.RequestTimeoutSeconds = seconds
		}
	}
	if interval := os.Getenv("LIBRARIUM_SAGA_RECONCILE_INTERVAL"); interval != "" {
		if seconds, err := strconv.Atoi(interval); err == nil {
			_loaded.Common.Saga.ReconcileIntervalSeconds = seconds
		}
	}
	if stale := os.Getenv("LIBRARIUM_SAGA_STALE_AFTER"); stale != "" {
		if seconds, err := strconv.Atoi(stale); err == nil {
			_loaded.Common.Saga.StaleAfterSeconds = seconds
		}
	}
}
