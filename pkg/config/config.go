// Package config provides YAML-based configuration loading for beamlink.
package config

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/viper"

    "beamlink/pkg/transport"
)

// Config is the root application configuration.
type Config struct {
    // AppName optional logical name of the device/application
    AppName string `mapstructure:"app_name"`

    // Log holds logging configuration
    Log LogConfig `mapstructure:"log"`

    // Transports lists the links the device listens on or the host dials
    Transports []TransportConfig `mapstructure:"transports"`

    // Net holds dial/backoff options
    Net NetConfig `mapstructure:"net"`

    // Device configures the endpoint that executes jobs
    Device DeviceConfig `mapstructure:"device"`

    // Metrics configures the prometheus endpoint
    Metrics MetricsConfig `mapstructure:"metrics"`

    // Host configures beamctl
    Host HostConfig `mapstructure:"host"`
}

// LogConfig defines logger settings.
type LogConfig struct {
    // Level: debug, info, warn, error
    Level string `mapstructure:"level"`
    // Format: console or json
    Format string `mapstructure:"format"`
    // Outputs: list of outputs: stdout, stderr, or file paths
    Outputs []string `mapstructure:"outputs"`

    // Rotation controls file rotation when writing to files
    Rotation RotationConfig `mapstructure:"rotation"`
    // Development toggles development-friendly logging options
    Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
    Enable     bool   `mapstructure:"enable"`
    Filename   string `mapstructure:"filename"`
    MaxSizeMB  int    `mapstructure:"max_size_mb"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAgeDays int    `mapstructure:"max_age_days"`
    Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls the prometheus HTTP endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
    Addr string `mapstructure:"addr"`
    Path string `mapstructure:"path"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
    return &Config{
        AppName: "beamlink-device",
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stdout"},
            Development: true,
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/beamlink.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
        Transports: []TransportConfig{
            {
                Kind:   "tcp",
                Listen: []string{":7700"},
            },
        },
        Net: NetConfig{DialBackoffInitialMS: 500, DialBackoffMaxMS: 30000, DialBackoffJitterMS: 100},
        Device: DeviceConfig{
            SampleRateHz: 1e6,
            RealTime:     false,
            TxStore:      TxStoreConfig{MaxBytes: 64 << 20, TTLSeconds: 0, Shards: 16},
        },
        Metrics: MetricsConfig{Addr: ":9470", Path: "/metrics"},
        Host:    HostConfig{Kind: "tcp", Address: "127.0.0.1:7700", TimeoutMS: 30000},
    }
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix BEAMLINK and `.`/`-` are replaced with `_`.
// Example: BEAMLINK_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix("BEAMLINK")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()

    // seed defaults for viper so env-only configs work
    v.SetDefault("app_name", cfg.AppName)
    v.SetDefault("log.level", cfg.Log.Level)
    v.SetDefault("log.format", cfg.Log.Format)
    v.SetDefault("log.outputs", cfg.Log.Outputs)
    v.SetDefault("log.development", cfg.Log.Development)
    v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
    v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
    v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
    v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
    v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
    v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
    v.SetDefault("transports", cfg.Transports)
    v.SetDefault("net.dial_backoff_initial_ms", cfg.Net.DialBackoffInitialMS)
    v.SetDefault("net.dial_backoff_max_ms", cfg.Net.DialBackoffMaxMS)
    v.SetDefault("net.dial_backoff_jitter_ms", cfg.Net.DialBackoffJitterMS)
    v.SetDefault("device.sample_rate_hz", cfg.Device.SampleRateHz)
    v.SetDefault("device.real_time", cfg.Device.RealTime)
    v.SetDefault("device.max_rx_samples", cfg.Device.MaxRxSamples)
    v.SetDefault("device.tx_store.max_bytes", cfg.Device.TxStore.MaxBytes)
    v.SetDefault("device.tx_store.ttl_seconds", cfg.Device.TxStore.TTLSeconds)
    v.SetDefault("device.tx_store.shards", cfg.Device.TxStore.Shards)
    v.SetDefault("metrics.addr", cfg.Metrics.Addr)
    v.SetDefault("metrics.path", cfg.Metrics.Path)
    v.SetDefault("host.kind", cfg.Host.Kind)
    v.SetDefault("host.address", cfg.Host.Address)
    v.SetDefault("host.timeout_ms", cfg.Host.TimeoutMS)
    v.SetDefault("host.serial_baud", cfg.Host.SerialBaud)

    // Choose config file
    if path == "" {
        // Allow override via env var
        if envPath := os.Getenv("BEAMLINK_CONFIG"); envPath != "" {
            path = envPath
        }
    }

    if path != "" {
        v.SetConfigFile(path)
    } else {
        // Search common locations with base name `beamlink`
        v.SetConfigName("beamlink")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".beamlink"))
        }
    }

    // Read config file if present; if not found, continue with defaults/env
    if err := v.ReadInConfig(); err != nil {
        var viperConfigFileNotFound viper.ConfigFileNotFoundError
        if !errors.As(err, &viperConfigFileNotFound) {
            return nil, fmt.Errorf("read config: %w", err)
        }
    }

    if err := v.Unmarshal(&cfg); err != nil {
        return nil, fmt.Errorf("decode config: %w", err)
    }

    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

func (c *Config) validate() error {
    lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
    switch lvl {
    case "debug", "info", "warn", "warning", "error":
        // ok
    default:
        return fmt.Errorf("invalid log.level: %q", c.Log.Level)
    }

    if c.Log.Format == "" {
        c.Log.Format = "console"
    }
    if len(c.Log.Outputs) == 0 {
        c.Log.Outputs = []string{"stdout"}
    }
    for i := range c.Transports {
        c.Transports[i].Kind = strings.ToLower(strings.TrimSpace(c.Transports[i].Kind))
        if _, err := transport.ParseKind(c.Transports[i].Kind); err != nil {
            return fmt.Errorf("transports[%d]: %w", i, err)
        }
    }
    if c.Device.SampleRateHz <= 0 {
        return fmt.Errorf("invalid device.sample_rate_hz: %v", c.Device.SampleRateHz)
    }
    if c.Device.MaxRxSamples < 0 {
        return fmt.Errorf("invalid device.max_rx_samples: %d", c.Device.MaxRxSamples)
    }
    if c.Device.TxStore.MaxBytes < 0 {
        return fmt.Errorf("invalid device.tx_store.max_bytes: %d", c.Device.TxStore.MaxBytes)
    }
    if c.Device.TxStore.Shards <= 0 {
        c.Device.TxStore.Shards = 16
    }
    if c.Metrics.Path == "" {
        c.Metrics.Path = "/metrics"
    }
    if c.Host.TimeoutMS <= 0 {
        c.Host.TimeoutMS = 30000
    }
    return nil
}

