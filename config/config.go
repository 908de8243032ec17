// Package config loads netradar settings from defaults, an optional config file,
// NETRADAR_* environment variables and bound command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liamg/netradar/coordinator"
	"github.com/liamg/netradar/scan"
	"github.com/spf13/viper"
)

const envPrefix = "NETRADAR"

type Config struct {
	Probe   ProbeConfig
	Subnet  SubnetConfig
	Host    HostConfig
	Events  EventsConfig
	Server  ServerConfig
	Log     LogConfig
	Metrics MetricsConfig
}

type ProbeConfig struct {
	Timeout time.Duration
}

type SubnetConfig struct {
	Base  scan.Base
	Hosts []int
	Ports []int
}

type HostConfig struct {
	Port           int
	Workers        int
	ResolveDevices bool
}

type EventsConfig struct {
	Buffer int
}

type ServerConfig struct {
	Listen string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Listen string
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("probe.timeout", scan.DefaultTimeout)
	v.SetDefault("subnet_survey.base", scan.DefaultBase.String())
	v.SetDefault("subnet_survey.hosts", "1-50")
	v.SetDefault("subnet_survey.ports", "80,8080")
	v.SetDefault("host_survey.port", scan.DefaultHostPort)
	v.SetDefault("host_survey.workers", scan.DefaultHostWorkers)
	v.SetDefault("host_survey.resolve_devices", false)
	v.SetDefault("events.buffer", coordinator.DefaultEventBuffer)
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("metrics.listen", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a viper instance with defaults and environment lookup configured.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads path into v. An empty path searches ./netradar.yaml and is not an
// error when nothing is found.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
		return nil
	}

	v.AddConfigPath(".")
	v.SetConfigName("netradar")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

// Load reads an optional config file and returns the validated configuration.
func Load(path string) (*Config, error) {
	v := New()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {

	cfg := &Config{
		Probe: ProbeConfig{
			Timeout: v.GetDuration("probe.timeout"),
		},
		Host: HostConfig{
			Port:           v.GetInt("host_survey.port"),
			Workers:        v.GetInt("host_survey.workers"),
			ResolveDevices: v.GetBool("host_survey.resolve_devices"),
		},
		Events: EventsConfig{
			Buffer: v.GetInt("events.buffer"),
		},
		Server: ServerConfig{
			Listen: v.GetString("server.listen"),
		},
		Metrics: MetricsConfig{
			Listen: v.GetString("metrics.listen"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if cfg.Probe.Timeout <= 0 {
		return nil, fmt.Errorf("probe.timeout must be positive, got %s", cfg.Probe.Timeout)
	}

	base, err := scan.ParseBase(v.GetString("subnet_survey.base"))
	if err != nil {
		return nil, fmt.Errorf("subnet_survey.base: %w", err)
	}
	cfg.Subnet.Base = base

	if cfg.Subnet.Hosts, err = scan.ParseHosts(v.GetString("subnet_survey.hosts")); err != nil {
		return nil, fmt.Errorf("subnet_survey.hosts: %w", err)
	}

	if cfg.Subnet.Ports, err = scan.ParsePorts(v.GetString("subnet_survey.ports")); err != nil {
		return nil, fmt.Errorf("subnet_survey.ports: %w", err)
	}

	if cfg.Host.Port < 1 || cfg.Host.Port > 65535 {
		return nil, fmt.Errorf("host_survey.port must be between 1 and 65535, got %d", cfg.Host.Port)
	}

	if cfg.Host.Workers < 1 {
		return nil, fmt.Errorf("host_survey.workers must be at least 1, got %d", cfg.Host.Workers)
	}

	if cfg.Events.Buffer < 0 {
		return nil, fmt.Errorf("events.buffer must not be negative, got %d", cfg.Events.Buffer)
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		return nil, fmt.Errorf("log.format must be text or json, got '%s'", cfg.Log.Format)
	}

	return cfg, nil
}

// Coordinator converts the configuration into coordinator settings.
func (c *Config) Coordinator() coordinator.Config {

	cfg := coordinator.DefaultConfig()

	cfg.Subnet.Timeout = c.Probe.Timeout
	cfg.Subnet.Base = c.Subnet.Base
	cfg.Subnet.Hosts = c.Subnet.Hosts
	cfg.Subnet.Ports = c.Subnet.Ports

	cfg.Host.Timeout = c.Probe.Timeout
	cfg.Host.Workers = c.Host.Workers
	if c.Host.ResolveDevices {
		cfg.Host.Resolver = scan.ARPResolver{}
	}

	cfg.HostPort = c.Host.Port
	cfg.EventBuffer = c.Events.Buffer

	return cfg
}
