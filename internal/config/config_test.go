package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// A secret must be present for validation to pass with auth enabled
	os.Setenv("PLUGINHUB_AUTH_JWT_SECRET", "test-secret")
	defer os.Unsetenv("PLUGINHUB_AUTH_JWT_SECRET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Name != "pluginhub" {
		t.Errorf("App.Name = %v, want pluginhub", cfg.App.Name)
	}
	if cfg.Server.Port != 7180 {
		t.Errorf("Server.Port = %v, want 7180", cfg.Server.Port)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %v, want sqlite", cfg.Store.Driver)
	}
	if cfg.Plugins.InstallWorkers != 4 {
		t.Errorf("Plugins.InstallWorkers = %v, want 4", cfg.Plugins.InstallWorkers)
	}
	if cfg.Housekeeping.StagingTTL != 24*time.Hour {
		t.Errorf("Housekeeping.StagingTTL = %v, want 24h", cfg.Housekeeping.StagingTTL)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	os.Setenv("PLUGINHUB_AUTH_JWT_SECRET", "test-secret")
	os.Setenv("PLUGINHUB_SERVER_PORT", "9999")
	defer func() {
		os.Unsetenv("PLUGINHUB_AUTH_JWT_SECRET")
		os.Unsetenv("PLUGINHUB_SERVER_PORT")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %v, want 9999 from env", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default-shaped config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing plugins dir",
			mutate:  func(c *Config) { c.Plugins.Dir = "" },
			wantErr: true,
		},
		{
			name:    "auth enabled without secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: true,
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Store.Driver = "sqlite"
				c.Store.Path = ""
			},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "oracle" },
			wantErr: true,
		},
		{
			name: "mysql without name",
			mutate: func(c *Config) {
				c.Store.Driver = "mysql"
				c.Store.Name = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Plugins: PluginsConfig{Dir: "./plugins"},
				Auth:    AuthConfig{Enabled: true, JWTSecret: "s"},
				Store:   StoreConfig{Driver: "sqlite", Path: "./db", Name: "pluginhub"},
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStoreConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config StoreConfig
		want   string
	}{
		{
			name:   "sqlite",
			config: StoreConfig{Driver: "sqlite", Path: "/var/lib/pluginhub.db"},
			want:   "/var/lib/pluginhub.db",
		},
		{
			name: "mysql",
			config: StoreConfig{
				Driver: "mysql", User: "hub", Password: "pw",
				Host: "localhost", Port: 3306, Name: "pluginhub",
			},
			want: "hub:pw@tcp(localhost:3306)/pluginhub?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name: "postgres",
			config: StoreConfig{
				Driver: "postgres", User: "hub", Password: "pw",
				Host: "localhost", Port: 5432, Name: "pluginhub", SSLMode: "disable",
			},
			want: "host=localhost port=5432 user=hub password=pw dbname=pluginhub sslmode=disable",
		},
		{
			name:   "unknown",
			config: StoreConfig{Driver: "oracle"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.DSN(); got != tt.want {
				t.Errorf("DSN() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPluginsConfig_IsHostModule(t *testing.T) {
	cfg := PluginsConfig{HostModules: []string{"host.platform", "host.vcs"}}

	if !cfg.IsHostModule("host.platform") {
		t.Error("host.platform should be a host module")
	}
	if cfg.IsHostModule("org.example.git") {
		t.Error("org.example.git should not be a host module")
	}
}
