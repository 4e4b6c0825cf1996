package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "server" {
		t.Errorf("Expected default mode to be 'server', got '%s'", cfg.Mode)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}

	if cfg.ServerName != "pdfmarkup" {
		t.Errorf("Expected default server name to be 'pdfmarkup', got '%s'", cfg.ServerName)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	if cfg.WorkerTimeout != 30*time.Second {
		t.Errorf("Expected default worker timeout to be 30s, got %s", cfg.WorkerTimeout)
	}

	if cfg.Verbosity != "rich" {
		t.Errorf("Expected default verbosity to be 'rich', got '%s'", cfg.Verbosity)
	}

	if cfg.HasWorker() {
		t.Error("Expected no worker to be configured by default")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Mode:          "server",
			Host:          "127.0.0.1",
			Port:          8080,
			WorkerTimeout: 30 * time.Second,
			Verbosity:     "rich",
			LogLevel:      "info",
			MaxFileSize:   1024,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid server mode",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "valid stdio mode",
			mutate:  func(c *Config) { c.Mode = "stdio" },
			wantErr: false,
		},
		{
			name:    "valid minimal verbosity",
			mutate:  func(c *Config) { c.Verbosity = "minimal" },
			wantErr: false,
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Mode = "invalid" },
			wantErr: true,
		},
		{
			name:    "port too low in server mode",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: true,
		},
		{
			name:    "port too high in server mode",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: true,
		},
		{
			name: "invalid port is ignored in stdio mode",
			mutate: func(c *Config) {
				c.Mode = "stdio"
				c.Port = 0
			},
			wantErr: false,
		},
		{
			name:    "zero worker timeout",
			mutate:  func(c *Config) { c.WorkerTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "invalid verbosity",
			mutate:  func(c *Config) { c.Verbosity = "chatty" },
			wantErr: true,
		},
		{
			name:    "zero max file size",
			mutate:  func(c *Config) { c.MaxFileSize = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.LogLevel = "trace" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{Host: "0.0.0.0", Port: 9090}
	if got := cfg.Address(); got != "0.0.0.0:9090" {
		t.Errorf("Address() = %v, want 0.0.0.0:9090", got)
	}
}

func TestConfigModeHelpers(t *testing.T) {
	cfg := &Config{Mode: ModeServer}
	if !cfg.IsServerMode() || cfg.IsStdioMode() {
		t.Error("expected server mode helpers to report server mode")
	}

	cfg.Mode = ModeStdio
	if cfg.IsServerMode() || !cfg.IsStdioMode() {
		t.Error("expected mode helpers to report stdio mode")
	}
}

func TestConfigHasWorker(t *testing.T) {
	cfg := &Config{}
	if cfg.HasWorker() {
		t.Error("empty worker command must report no worker")
	}

	cfg.WorkerCommand = []string{"python3", "worker.py"}
	if !cfg.HasWorker() {
		t.Error("expected worker to be reported as configured")
	}
}

func TestConfigIsDebug(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	if !cfg.IsDebug() {
		t.Error("expected debug log level to report debug")
	}

	cfg.LogLevel = "info"
	if cfg.IsDebug() {
		t.Error("info log level must not report debug")
	}
}
