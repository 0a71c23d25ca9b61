package config

// TransportConfig describes one transport kind and its endpoints.
// Example YAML:
// transports:
//   - kind: tcp
//     listen: [":7700"]
//   - kind: quic
//     listen: [":7701"]
//   - kind: serial
//     listen: ["/dev/ttyUSB0"]
//     baud: 921600
//   - kind: mem
//     listen: ["radio0"]
type TransportConfig struct {
    Kind   string   `mapstructure:"kind"`
    Listen []string `mapstructure:"listen"`
    Dial   []string `mapstructure:"dial"`
    // Baud applies to serial links without an @baud address suffix
    Baud   int      `mapstructure:"baud"`
}
