package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StoreDriver represents supported state store drivers
type StoreDriver string

const (
	DriverSQLite   StoreDriver = "sqlite"
	DriverMySQL    StoreDriver = "mysql"
	DriverPostgres StoreDriver = "postgres"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Store        StoreConfig        `mapstructure:"store"`
	Plugins      PluginsConfig      `mapstructure:"plugins"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Events       EventsConfig       `mapstructure:"events"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Housekeeping HousekeepingConfig `mapstructure:"housekeeping"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StoreConfig holds state store connection settings
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"` // sqlite file path
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// PluginsConfig holds plugin directory and install settings
type PluginsConfig struct {
	Dir            string        `mapstructure:"dir"`             // installed plugin archives
	StagingDir     string        `mapstructure:"staging_dir"`     // staged-but-not-applied archives
	DropDir        string        `mapstructure:"drop_dir"`        // watched for archives installed from disk
	WatchDrops     bool          `mapstructure:"watch_drops"`     // enable the drop directory watcher
	InstallWorkers int           `mapstructure:"install_workers"` // background install pool size
	InstallTimeout time.Duration `mapstructure:"install_timeout"`
	HostModules    []string      `mapstructure:"host_modules"` // dependency ids satisfied by the host itself
}

// AuthConfig holds API authentication settings
type AuthConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	AdminUser         string        `mapstructure:"admin_user"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"` // bcrypt
	JWTSecret         string        `mapstructure:"jwt_secret"`
	TokenDuration     time.Duration `mapstructure:"token_duration"`
	Issuer            string        `mapstructure:"issuer"`
}

// EventsConfig holds the WebSocket event feed settings
type EventsConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Path              string        `mapstructure:"path"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`
	WriteBufferSize   int           `mapstructure:"write_buffer_size"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// MetricsConfig holds metrics settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// HousekeepingConfig holds scheduled maintenance settings
type HousekeepingConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	SweepSchedule string        `mapstructure:"sweep_schedule"` // cron expression
	StagingTTL    time.Duration `mapstructure:"staging_ttl"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pluginhub/")

	v.SetEnvPrefix("PLUGINHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "pluginhub")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", true)

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 7180)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	// Store defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "./pluginhub.db")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 0)
	v.SetDefault("store.name", "pluginhub")
	v.SetDefault("store.user", "")
	v.SetDefault("store.password", "")
	v.SetDefault("store.ssl_mode", "disable")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", 5*time.Minute)

	// Plugins defaults
	v.SetDefault("plugins.dir", "./plugins")
	v.SetDefault("plugins.staging_dir", "./plugins/.staging")
	v.SetDefault("plugins.drop_dir", "./plugins/drop")
	v.SetDefault("plugins.watch_drops", true)
	v.SetDefault("plugins.install_workers", 4)
	v.SetDefault("plugins.install_timeout", 5*time.Minute)
	v.SetDefault("plugins.host_modules", []string{"host.platform", "host.vcs", "host.json"})

	// Auth defaults
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.token_duration", time.Hour)
	v.SetDefault("auth.issuer", "pluginhub")

	// Events defaults
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.path", "/ws")
	v.SetDefault("events.allowed_origins", []string{"*"})
	v.SetDefault("events.read_buffer_size", 1024)
	v.SetDefault("events.write_buffer_size", 1024)
	v.SetDefault("events.handshake_timeout", 10*time.Second)
	v.SetDefault("events.heartbeat_interval", 30*time.Second)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Housekeeping defaults
	v.SetDefault("housekeeping.enabled", true)
	v.SetDefault("housekeeping.sweep_schedule", "*/10 * * * *")
	v.SetDefault("housekeeping.staging_ttl", 24*time.Hour)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Plugins.Dir == "" {
		return fmt.Errorf("plugins directory is required")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	switch StoreDriver(c.Store.Driver) {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	case DriverMySQL, DriverPostgres:
		if c.Store.Name == "" {
			return fmt.Errorf("store.name is required for %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	return nil
}

// DSN returns the database connection string for the configured driver.
func (c *StoreConfig) DSN() string {
	switch StoreDriver(c.Driver) {
	case DriverSQLite:
		return c.Path
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.Name)
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	default:
		return ""
	}
}

// IsSQLite returns true if the embedded sqlite driver is configured.
func (c *StoreConfig) IsSQLite() bool {
	return StoreDriver(c.Driver) == DriverSQLite
}

// IsHostModule reports whether a dependency id is satisfied by the host
// platform itself and therefore excluded from dependency validation.
func (c *PluginsConfig) IsHostModule(id string) bool {
	for _, m := range c.HostModules {
		if m == id {
			return true
		}
	}
	return false
}
