package config

import "time"

// NetConfig contains dial tuning options.
type NetConfig struct {
    DialBackoffInitialMS int `mapstructure:"dial_backoff_initial_ms"`
    DialBackoffMaxMS     int `mapstructure:"dial_backoff_max_ms"`
    DialBackoffJitterMS  int `mapstructure:"dial_backoff_jitter_ms"`
}

func (n NetConfig) BackoffInitial() time.Duration { return time.Duration(n.DialBackoffInitialMS) * time.Millisecond }
func (n NetConfig) BackoffMax() time.Duration     { return time.Duration(n.DialBackoffMaxMS) * time.Millisecond }
func (n NetConfig) BackoffJitter() time.Duration  { return time.Duration(n.DialBackoffJitterMS) * time.Millisecond }
