package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	Telemetry      TelemetryConfig      `yaml:"telemetry"`
	Auction        AuctionConfig        `yaml:"auction"`
	Discord        DiscordConfig        `yaml:"discord"`
	LeaderElection LeaderElectionConfig `yaml:"leader_election"`
}

// ServerConfig holds HTTP server settings. The API server only runs on the
// leader; the health server runs on every replica.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	HealthPort      int           `yaml:"health_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Driver   string `yaml:"driver"` // "sqlx" or "memory"
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

// AuctionConfig holds auction session settings. The display delays control
// how long the sold/unsold stamp stays on the broadcast screens before the
// session returns to idle; they are presentation timing, not correctness.
type AuctionConfig struct {
	SoldDelay        time.Duration `yaml:"sold_delay"`
	UnsoldDelay      time.Duration `yaml:"unsold_delay"`
	DefaultBasePrice int           `yaml:"default_base_price"`
	DefaultWallet    int           `yaml:"default_wallet"`
	BidIncrements    []int         `yaml:"bid_increments"`
}

// DiscordConfig holds settings for the Discord sale announcer.
type DiscordConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// LeaderElectionConfig holds Kubernetes leader election settings.
type LeaderElectionConfig struct {
	Enabled        bool          `yaml:"enabled"`
	LeaseName      string        `yaml:"lease_name"`
	LeaseNamespace string        `yaml:"lease_namespace"`
	LeaseDuration  time.Duration `yaml:"lease_duration"`
	RenewDeadline  time.Duration `yaml:"renew_deadline"`
	RetryPeriod    time.Duration `yaml:"retry_period"`
}

// Load reads a YAML configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            8080,
			HealthPort:      8081,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			Driver:  "sqlx",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctiond",
			ServiceVersion: "0.1.0",
		},
		Auction: AuctionConfig{
			SoldDelay:        3 * time.Second,
			UnsoldDelay:      2 * time.Second,
			DefaultBasePrice: 500,
			DefaultWallet:    15000,
			BidIncrements:    []int{100, 500},
		},
		LeaderElection: LeaderElectionConfig{
			Enabled:        false,
			LeaseName:      "auctiond-leader",
			LeaseNamespace: "default",
			LeaseDuration:  15 * time.Second,
			RenewDeadline:  10 * time.Second,
			RetryPeriod:    2 * time.Second,
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlx", "memory":
		// valid
	default:
		return fmt.Errorf("unsupported database driver %q: must be \"sqlx\" or \"memory\"", c.Database.Driver)
	}
	if c.Auction.SoldDelay <= 0 || c.Auction.UnsoldDelay <= 0 {
		return fmt.Errorf("auction display delays must be positive")
	}
	if c.Auction.DefaultBasePrice <= 0 {
		return fmt.Errorf("default base price must be positive")
	}
	if c.Auction.DefaultWallet <= 0 {
		return fmt.Errorf("default wallet must be positive")
	}
	for _, inc := range c.Auction.BidIncrements {
		if inc <= 0 {
			return fmt.Errorf("bid increment %d must be positive", inc)
		}
	}
	if c.Discord.Enabled && (c.Discord.Token == "" || c.Discord.ChannelID == "") {
		return fmt.Errorf("discord announcer requires token and channel_id")
	}
	return nil
}
