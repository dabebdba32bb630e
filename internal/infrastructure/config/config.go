package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for mC Connect Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Fleet     FleetConfig     `yaml:"fleet"`
	Display   DisplayConfig   `yaml:"display"`
	Screens   ScreensConfig   `yaml:"screens"`
	Startup   StartupConfig   `yaml:"startup"`
	Security  SecurityConfig  `yaml:"security"`
}

// SiteConfig identifies the venue this core serves.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// EventRetentionDays is how long device events are kept. 0 keeps
	// them forever. Default: 30.
	EventRetentionDays int `yaml:"event_retention_days"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the dashboard live feed.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
//
// The broker is optional. When enabled, display state changes are mirrored
// to it and, if IngressTopic is set, device events published there are fed
// through the same dispatcher as HTTP webhooks.
type MQTTConfig struct {
	Enabled      bool                `yaml:"enabled"`
	Broker       MQTTBrokerConfig    `yaml:"broker"`
	Auth         MQTTAuthConfig      `yaml:"auth"`
	QoS          int                 `yaml:"qos"`
	Reconnect    MQTTReconnectConfig `yaml:"reconnect"`
	IngressTopic string              `yaml:"ingress_topic"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// FleetConfig contains settings for the fleet-management API that
// physically updates the displays.
type FleetConfig struct {
	// BaseURL is the scheme and host of the fleet API, e.g.
	// "https://mc-connect-manager.example.com".
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates outbound pushes. Set via MCCONNECT_FLEET_API_KEY.
	APIKey string `yaml:"api_key"`

	// APIKeyHeader is the header carrying APIKey. Default: "API-Key".
	APIKeyHeader string `yaml:"api_key_header"`

	// LED is the LED code sent with every frame. Default: 2.
	LED int `yaml:"led"`

	// Buzzer is the constant buzzer pattern sent with every frame.
	Buzzer BuzzerConfig `yaml:"buzzer"`

	// TimeoutSeconds bounds each outbound push. Default: 10.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// BuzzerConfig is the buzzer pattern included in push payloads.
type BuzzerConfig struct {
	OnTime      int `yaml:"on_time"`
	OffTime     int `yaml:"off_time"`
	Repetitions int `yaml:"repetitions"`
}

// DisplayConfig describes the physical panel and the QR targets drawn on it.
type DisplayConfig struct {
	Width        int `yaml:"width"`
	Height       int `yaml:"height"`
	FooterHeight int `yaml:"footer_height"`
	QRSize       int `yaml:"qr_size"`

	// MenuURL and PayURL are the ordering and payment pages. The table
	// identifier is appended as a "table" query parameter.
	MenuURL string `yaml:"menu_url"`
	PayURL  string `yaml:"pay_url"`
}

// ScreensConfig holds the idle delays (seconds) of the stock screen graph.
type ScreensConfig struct {
	PromoIdleSeconds int `yaml:"promo_idle_seconds"`
	MenuIdleSeconds  int `yaml:"menu_idle_seconds"`
	PayIdleSeconds   int `yaml:"pay_idle_seconds"`
}

// StartupConfig controls the device initialisation batch.
type StartupConfig struct {
	// Parallelism bounds how many devices initialise concurrently.
	Parallelism int `yaml:"parallelism"`

	// MinSuccessRatio is the fraction of devices that must initialise for
	// startup to succeed. 0 never fails on per-device errors.
	MinSuccessRatio float64 `yaml:"min_success_ratio"`
}

// SecurityConfig contains security settings for the admin API.
type SecurityConfig struct {
	JWT   JWTConfig   `yaml:"jwt"`
	Admin AdminConfig `yaml:"admin"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// AdminConfig is the single dashboard operator credential.
//
// PasswordHash is an Argon2id PHC string from "mcconnect hash-password"
// and takes precedence over the plaintext Password.
type AdminConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MCCONNECT_SECTION_KEY
// For example: MCCONNECT_DATABASE_PATH, MCCONNECT_FLEET_API_KEY
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "mC Connect",
		},
		Database: DatabaseConfig{
			Path:        "./data/mcconnect.db",
			WALMode:     true,
			BusyTimeout: 5,

			EventRetentionDays: 30,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "mcconnect-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Fleet: FleetConfig{
			APIKeyHeader: "API-Key",
			LED:          2,
			Buzzer: BuzzerConfig{
				OnTime:      150,
				OffTime:     250,
				Repetitions: 0,
			},
			TimeoutSeconds: 10,
		},
		Display: DisplayConfig{
			Width:        400,
			Height:       300,
			FooterHeight: 100,
			QRSize:       100,
			MenuURL:      "http://localhost:3001/order",
			PayURL:       "http://localhost:3001/pay",
		},
		Screens: ScreensConfig{
			PromoIdleSeconds: 20,
			MenuIdleSeconds:  40,
			PayIdleSeconds:   40,
		},
		Startup: StartupConfig{
			Parallelism: 4,
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
			Admin: AdminConfig{
				Username: "admin",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MCCONNECT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("MCCONNECT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("MCCONNECT_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("MCCONNECT_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Fleet API
	if v := os.Getenv("MCCONNECT_FLEET_BASE_URL"); v != "" {
		cfg.Fleet.BaseURL = v
	}
	if v := os.Getenv("MCCONNECT_FLEET_API_KEY"); v != "" {
		cfg.Fleet.APIKey = v
	}

	// MQTT
	if v := os.Getenv("MCCONNECT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MCCONNECT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MCCONNECT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("MCCONNECT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security
	if v := os.Getenv("MCCONNECT_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("MCCONNECT_ADMIN_PASSWORD"); v != "" {
		cfg.Security.Admin.Password = v
	}
	if v := os.Getenv("MCCONNECT_ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Security.Admin.PasswordHash = v
	}
}

// minJWTSecretLength is the shortest accepted JWT signing secret.
const minJWTSecretLength = 32

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error { //nolint:gocognit,gocyclo // flat list of independent field checks
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.EventRetentionDays < 0 {
		errs = append(errs, "database.event_retention_days must not be negative")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Fleet API: credentials and endpoint are never embedded in code.
	if c.Fleet.BaseURL == "" {
		errs = append(errs, "fleet.base_url is required (set MCCONNECT_FLEET_BASE_URL)")
	}
	if c.Fleet.APIKey == "" {
		errs = append(errs, "fleet.api_key is required (set MCCONNECT_FLEET_API_KEY)")
	}
	if c.Fleet.TimeoutSeconds < 0 {
		errs = append(errs, "fleet.timeout_seconds must not be negative")
	}

	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, "display.width and display.height must be positive")
	}
	if c.Display.FooterHeight <= 0 || c.Display.FooterHeight >= c.Display.Height {
		errs = append(errs, "display.footer_height must be positive and smaller than display.height")
	}
	if c.Display.QRSize <= 0 {
		errs = append(errs, "display.qr_size must be positive")
	}

	if c.Screens.PromoIdleSeconds < 0 || c.Screens.MenuIdleSeconds < 0 || c.Screens.PayIdleSeconds < 0 {
		errs = append(errs, "screens idle delays must not be negative")
	}

	if c.Startup.Parallelism < 0 {
		errs = append(errs, "startup.parallelism must not be negative")
	}
	if c.Startup.MinSuccessRatio < 0 || c.Startup.MinSuccessRatio > 1 {
		errs = append(errs, "startup.min_success_ratio must be between 0 and 1")
	}

	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set MCCONNECT_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}
	if h := c.Security.Admin.PasswordHash; h != "" && !strings.HasPrefix(h, "$argon2id$") {
		errs = append(errs, "security.admin.password_hash must be an argon2id hash (see mcconnect hash-password)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// PushTimeout returns the bound applied to each outbound fleet push.
func (f FleetConfig) PushTimeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// EventRetention returns how long device events are kept, or 0 to keep
// them forever.
func (d DatabaseConfig) EventRetention() time.Duration {
	return time.Duration(d.EventRetentionDays) * 24 * time.Hour
}
