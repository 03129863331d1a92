package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// config holds every runtime setting. Each field has a flag of the same
// name (shown in the yaml tag) and may also be set in the -config file.
type config struct {
	Addr           string        `yaml:"addr"`
	Path           string        `yaml:"path"`
	Origin         string        `yaml:"origin"`
	MaxMessageSize int64         `yaml:"max-message-size"`
	SendBuffer     int           `yaml:"send-buffer"`
	WriteWait      time.Duration `yaml:"write-wait"`
	PongWait       time.Duration `yaml:"pong-wait"`
	StopTimeout    time.Duration `yaml:"stop-timeout"`
	KillTimeout    time.Duration `yaml:"kill-timeout"`
	MetricsTick    time.Duration `yaml:"metrics.tick"`
	LogLevel       string        `yaml:"log-level"`
	LogFormat      string        `yaml:"log-format"`
}

func defaultConfig() config {
	return config{
		Addr:           "127.0.0.1:8000",
		Path:           "/ws/image",
		MaxMessageSize: 32 << 20,
		SendBuffer:     256,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		StopTimeout:    10 * time.Second,
		KillTimeout:    1 * time.Second,
		MetricsTick:    60 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// parseConfig parses args into a config. Values come from, in rising
// precedence: defaults, the file named by -config, flags given in args.
func parseConfig(fs *flag.FlagSet, args []string) (config, string, error) {
	cfg := defaultConfig()
	path := fs.String("config", "", "path to a YAML config file")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "http service address")
	fs.StringVar(&cfg.Path, "path", cfg.Path, "websocket endpoint path")
	fs.StringVar(&cfg.Origin, "origin", cfg.Origin, "websocket server checks Origin headers against this scheme://host[:port]; empty or * allows any")
	fs.Int64Var(&cfg.MaxMessageSize, "max-message-size", cfg.MaxMessageSize, "largest inbound frame in bytes (0 for no limit)")
	fs.IntVar(&cfg.SendBuffer, "send-buffer", cfg.SendBuffer, "outbound frames queued per client before it is dropped")
	fs.DurationVar(&cfg.WriteWait, "write-wait", cfg.WriteWait, "time allowed to write a frame to a client (0 for no limit)")
	fs.DurationVar(&cfg.PongWait, "pong-wait", cfg.PongWait, "time allowed between pongs (0 disables keepalive)")
	fs.DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "stop timeout")
	fs.DurationVar(&cfg.KillTimeout, "kill-timeout", cfg.KillTimeout, "kill timeout")
	fs.DurationVar(&cfg.MetricsTick, "metrics.tick", cfg.MetricsTick, "metrics: duration between reports (0 disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	if err := fs.Parse(args); err != nil {
		return cfg, "", err
	}
	if *path == "" {
		return cfg, "", cfg.validate()
	}

	file, err := loadConfig(*path)
	if err != nil {
		return cfg, *path, err
	}
	// Flags given on the command line win over the file.
	merged := file
	fs.Visit(func(f *flag.Flag) { merged.override(f.Name, cfg) })
	return merged, *path, merged.validate()
}

// loadConfig reads a YAML file on top of the defaults. The result is not
// validated.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// override copies the setting behind flag name from src.
func (c *config) override(name string, src config) {
	switch name {
	case "addr":
		c.Addr = src.Addr
	case "path":
		c.Path = src.Path
	case "origin":
		c.Origin = src.Origin
	case "max-message-size":
		c.MaxMessageSize = src.MaxMessageSize
	case "send-buffer":
		c.SendBuffer = src.SendBuffer
	case "write-wait":
		c.WriteWait = src.WriteWait
	case "pong-wait":
		c.PongWait = src.PongWait
	case "stop-timeout":
		c.StopTimeout = src.StopTimeout
	case "kill-timeout":
		c.KillTimeout = src.KillTimeout
	case "metrics.tick":
		c.MetricsTick = src.MetricsTick
	case "log-level":
		c.LogLevel = src.LogLevel
	case "log-format":
		c.LogFormat = src.LogFormat
	}
}

func (c config) validate() error {
	if c.Path == "" || c.Path[0] != '/' {
		return fmt.Errorf("config: path %q must start with /", c.Path)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("config: send-buffer must be positive, got %d", c.SendBuffer)
	}
	if c.MaxMessageSize < 0 || c.WriteWait < 0 || c.PongWait < 0 || c.MetricsTick < 0 {
		return fmt.Errorf("config: sizes and durations must not be negative")
	}
	if _, _, err := normalizeOrigin(c.Origin); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c config) hubOptions() hubOptions {
	return hubOptions{
		sendBuffer: c.SendBuffer,
		readLimit:  c.MaxMessageSize,
		writeWait:  c.WriteWait,
		pongWait:   c.PongWait,
	}
}
