package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/structdoc/pdfmarkup/internal/markup"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 100 * 1024 * 1024 // 100MB
	DefaultWorkerTimeout = 30 * time.Second
)

// Config holds all configuration for the markup server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Worker configuration
	WorkerCommand []string // empty disables the external worker
	WorkerTimeout time.Duration

	// Markup configuration
	Verbosity string // "rich" or "minimal"

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:          ModeServer,
		Host:          DefaultHost,
		Port:          DefaultPort,
		WorkerCommand: nil,
		WorkerTimeout: DefaultWorkerTimeout,
		Verbosity:     string(markup.VerbosityRich),
		Version:       "1.1.0",
		ServerName:    "pdfmarkup",
		LogLevel:      DefaultLogLevel,
		MaxFileSize:   DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("PDFMARKUP")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("workercmd", cfg.WorkerCommand)
	viper.SetDefault("workertimeout", cfg.WorkerTimeout)
	viper.SetDefault("verbosity", cfg.Verbosity)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for HTTP, 'stdio' for MCP standard I/O")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.StringSlice("workercmd", cfg.WorkerCommand, "External worker command and arguments (empty disables the worker)")
	pflag.Duration("workertimeout", cfg.WorkerTimeout, "Wall-clock limit for one worker invocation")
	pflag.String("verbosity", cfg.Verbosity, "Markup verbosity (rich, minimal)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("workercmd", pflag.Lookup("workercmd"))
	_ = viper.BindPFlag("workertimeout", pflag.Lookup("workertimeout"))
	_ = viper.BindPFlag("verbosity", pflag.Lookup("verbosity"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\npdfmarkup - structural PDF extraction and markup reconstruction\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          # HTTP server on 127.0.0.1:8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --host=0.0.0.0 --port=8081               # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --workercmd=python3,worker.py            # with external extraction worker\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio                             # MCP stdio mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PDFMARKUP_MODE          Run mode\n")
		fmt.Fprintf(os.Stderr, "  PDFMARKUP_HOST          Server host\n")
		fmt.Fprintf(os.Stderr, "  PDFMARKUP_PORT          Server port\n")
		fmt.Fprintf(os.Stderr, "  PDFMARKUP_WORKERCMD     Worker command\n")
		fmt.Fprintf(os.Stderr, "  PDFMARKUP_WORKERTIMEOUT Worker timeout\n")
		fmt.Fprintf(os.Stderr, "  PDFMARKUP_VERBOSITY     Markup verbosity\n")
		fmt.Fprintf(os.Stderr, "  PDFMARKUP_LOGLEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  PDFMARKUP_MAXFILESIZE   Maximum file size\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.WorkerCommand = viper.GetStringSlice("workercmd")
	cfg.WorkerTimeout = viper.GetDuration("workertimeout")
	cfg.Verbosity = viper.GetString("verbosity")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.WorkerTimeout <= 0 {
		return errors.New("worker timeout must be positive")
	}

	if c.Verbosity != string(markup.VerbosityRich) && c.Verbosity != string(markup.VerbosityMinimal) {
		return fmt.Errorf("invalid verbosity: %s (must be 'rich' or 'minimal')", c.Verbosity)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MarkupVerbosity returns the configured verbosity as its typed form.
func (c *Config) MarkupVerbosity() markup.Verbosity {
	return markup.Verbosity(c.Verbosity)
}

// HasWorker returns true if an external worker command is configured
func (c *Config) HasWorker() bool {
	return len(c.WorkerCommand) > 0
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, WorkerCommand: %v, WorkerTimeout: %s, Verbosity: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.WorkerCommand, c.WorkerTimeout, c.Verbosity, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if running in MCP stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
