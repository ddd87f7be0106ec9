package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pitchside/auctiond/internal/config"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "valid full config",
			yaml: `
server:
  port: 9090
  health_port: 9091
database:
  host: "db.example.com"
  port: 5433
  user: "auctiond"
  password: "secret"
  dbname: "auction"
  sslmode: "require"
  driver: "sqlx"
telemetry:
  service_name: "my-auction"
  otlp_endpoint: "localhost:4318"
auction:
  sold_delay: 2s
  unsold_delay: 1s
  default_base_price: 750
  default_wallet: 20000
  bid_increments: [50, 100, 1000]
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Server.Port != 9090 {
					t.Errorf("got server port %d, want %d", cfg.Server.Port, 9090)
				}
				if cfg.Database.Port != 5433 {
					t.Errorf("got db port %d, want %d", cfg.Database.Port, 5433)
				}
				if cfg.Telemetry.ServiceName != "my-auction" {
					t.Errorf("got service name %q, want %q", cfg.Telemetry.ServiceName, "my-auction")
				}
				if cfg.Auction.SoldDelay != 2*time.Second {
					t.Errorf("got sold delay %v, want %v", cfg.Auction.SoldDelay, 2*time.Second)
				}
				if cfg.Auction.DefaultWallet != 20000 {
					t.Errorf("got default wallet %d, want %d", cfg.Auction.DefaultWallet, 20000)
				}
				if len(cfg.Auction.BidIncrements) != 3 {
					t.Errorf("got %d bid increments, want 3", len(cfg.Auction.BidIncrements))
				}
			},
		},
		{
			name:    "defaults applied",
			yaml:    `{}`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Host != "localhost" {
					t.Errorf("got db host %q, want %q", cfg.Database.Host, "localhost")
				}
				if cfg.Server.Port != 8080 || cfg.Server.HealthPort != 8081 {
					t.Errorf("got ports %d/%d, want 8080/8081", cfg.Server.Port, cfg.Server.HealthPort)
				}
				if cfg.Telemetry.ServiceName != "auctiond" {
					t.Errorf("got service name %q, want %q", cfg.Telemetry.ServiceName, "auctiond")
				}
				if cfg.Auction.DefaultBasePrice != 500 {
					t.Errorf("got default base price %d, want 500", cfg.Auction.DefaultBasePrice)
				}
				if cfg.Database.Driver != "sqlx" {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, "sqlx")
				}
			},
		},
		{
			name:    "invalid yaml",
			yaml:    `{{{invalid`,
			wantErr: true,
		},
		{
			name: "memory driver accepted",
			yaml: `
database:
  driver: "memory"
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Driver != "memory" {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, "memory")
				}
			},
		},
		{
			name: "invalid driver rejected",
			yaml: `
database:
  driver: "mongodb"
`,
			wantErr: true,
		},
		{
			name: "zero sold delay rejected",
			yaml: `
auction:
  sold_delay: 0s
`,
			wantErr: true,
		},
		{
			name: "negative bid increment rejected",
			yaml: `
auction:
  bid_increments: [100, -5]
`,
			wantErr: true,
		},
		{
			name: "discord enabled without token rejected",
			yaml: `
discord:
  enabled: true
  channel_id: "123"
`,
			wantErr: true,
		},
		{
			name: "discord enabled with token and channel",
			yaml: `
discord:
  enabled: true
  token: "tok"
  channel_id: "123"
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if !cfg.Discord.Enabled {
					t.Error("expected discord enabled")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}

			cfg, err := config.Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "pass",
		DBName:   "auction",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=user password=pass dbname=auction sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
