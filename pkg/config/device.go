package config

import "time"

// DeviceConfig configures job execution on the device.
type DeviceConfig struct {
    // SampleRateHz sets how many samples one second of Rx produces
    SampleRateHz float64 `mapstructure:"sample_rate_hz"`
    // RealTime paces execution against the wall clock
    RealTime bool `mapstructure:"real_time"`
    // MaxRxSamples caps the samples captured per beam; 0 means no cap
    MaxRxSamples int           `mapstructure:"max_rx_samples"`
    TxStore      TxStoreConfig `mapstructure:"tx_store"`
}

// TxStoreConfig bounds the TxData store. Zero MaxBytes means unbounded;
// zero TTLSeconds keeps entries until replaced.
type TxStoreConfig struct {
    MaxBytes   int64 `mapstructure:"max_bytes"`
    TTLSeconds int   `mapstructure:"ttl_seconds"`
    Shards     int   `mapstructure:"shards"`
}

func (t TxStoreConfig) TTL() time.Duration { return time.Duration(t.TTLSeconds) * time.Second }

// HostConfig configures the command-line host.
type HostConfig struct {
    Kind       string `mapstructure:"kind"`
    Address    string `mapstructure:"address"`
    TimeoutMS  int    `mapstructure:"timeout_ms"`
    SerialBaud int    `mapstructure:"serial_baud"`
}

func (h HostConfig) Timeout() time.Duration { return time.Duration(h.TimeoutMS) * time.Millisecond }
