package main

import "flag"

// Options holds CLI options for the device.
type Options struct {
    ConfigPath string
    // Listen overrides the configured transports with one "kind:address"
    Listen string
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string) Options {
    fs := flag.NewFlagSet("beamlink-device", flag.ExitOnError)
    var opts Options
    fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
    fs.StringVar(&opts.Listen, "listen", "", "Serve only on kind:address, e.g. tcp::7700 or serial:/dev/ttyUSB0@115200")
    _ = fs.Parse(args)
    return opts
}
