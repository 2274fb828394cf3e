// Package config provides configuration loading and validation for Corvus.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command-line flags (not handled here, see cmd/corvus/main.go)
//  2. Environment variables (CORVUS_* prefix)
//  3. YAML config file (if specified with --config)
//  4. Hardcoded defaults
//
// Environment variables are mapped from CORVUS_SETTING format, e.g.
// CORVUS_REQUIREPASS maps to requirepass in YAML.
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// initConfig sets up the config loader with defaults, env binding, and config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variable binding: CORVUS_REQUIREPASS -> requirepass
	v.SetEnvPrefix("CORVUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// setDefaults configures all default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("cluster", "corvus")
	v.SetDefault("bind", 6379)
	v.SetDefault("node", []string{})
	v.SetDefault("thread", "auto")
	v.SetDefault("loglevel", "info")
	v.SetDefault("syslog", false)
	v.SetDefault("statsd", "")
	v.SetDefault("metric_interval", 10)
	v.SetDefault("stats", true)
	v.SetDefault("read-strategy", string(ReadMaster))
	v.SetDefault("requirepass", "")

	v.SetDefault("client_timeout", 0)
	v.SetDefault("server_timeout", 0)
	v.SetDefault("bufsize", 16*1024)

	v.SetDefault("slowlog-log-slower-than", -1)
	v.SetDefault("slowlog-max-len", 1024)
	v.SetDefault("slowlog-statsd-enabled", false)

	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.host", "127.0.0.1")
	v.SetDefault("admin.port", 6380)
}

// loadFromSource loads configuration from file and environment.
func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	loadTopLevel(v, cfg)
	loadTimeouts(v, cfg)
	loadSlowlog(v, cfg)
	loadAdmin(v, cfg)

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadTopLevel(v *viper.Viper, cfg *Config) {
	cfg.Cluster = v.GetString("cluster")
	cfg.Bind = v.GetInt("bind")
	if s, ok := v.Get("node").(string); ok {
		// a single string (e.g. CORVUS_NODE) is a comma-separated list
		cfg.Node = parseServerList(strings.Split(s, ","))
	} else {
		cfg.Node = parseServerList(v.GetStringSlice("node"))
	}
	cfg.ThreadRaw = v.GetString("thread")
	cfg.Thread = parseWorkers(cfg.ThreadRaw)
	cfg.LogLevel = strings.ToLower(v.GetString("loglevel"))
	cfg.Syslog = v.GetBool("syslog")
	cfg.Statsd = v.GetString("statsd")
	cfg.MetricIntvl = v.GetInt("metric_interval")
	cfg.Stats = v.GetBool("stats")
	cfg.ReadStrat = ReadStrategy(v.GetString("read-strategy"))
	cfg.RequirePass = v.GetString("requirepass")
}

func loadTimeouts(v *viper.Viper, cfg *Config) {
	cfg.ClientTimeoutSec = v.GetInt("client_timeout")
	cfg.ServerTimeoutSec = v.GetInt("server_timeout")
	cfg.BufSize = v.GetInt("bufsize")
}

func loadSlowlog(v *viper.Viper, cfg *Config) {
	cfg.SlowlogSlowerThanUs = v.GetInt("slowlog-log-slower-than")
	cfg.SlowlogMaxLen = v.GetInt("slowlog-max-len")
	cfg.SlowlogStatsd = v.GetBool("slowlog-statsd-enabled")
}

func loadAdmin(v *viper.Viper, cfg *Config) {
	cfg.Admin.Enabled = v.GetBool("admin.enabled")
	cfg.Admin.Host = v.GetString("admin.host")
	cfg.Admin.Port = v.GetInt("admin.port")
}

// parseWorkers converts the `thread` string to a WorkerSetting.
func parseWorkers(raw string) WorkerSetting {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "auto" {
		return WorkerSetting{Mode: WorkersAuto}
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return WorkerSetting{Mode: WorkersFixed, Value: n}
	}
	return WorkerSetting{Mode: WorkersAuto}
}

// parseServerList trims and drops empty entries from a seed address list.
func parseServerList(servers []string) []string {
	result := make([]string, 0, len(servers))
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

// normalizeConfig validates and normalizes the configuration.
func normalizeConfig(cfg *Config) error {
	if cfg.Bind <= 0 || cfg.Bind > 65535 {
		return errors.New("bind must be 1..65535")
	}
	if len(cfg.Node) == 0 {
		return errors.New("node must name at least one seed address")
	}

	switch cfg.ReadStrat {
	case ReadMaster, ReadSlaveOnly, ReadBoth:
	case "":
		cfg.ReadStrat = ReadMaster
	default:
		return fmt.Errorf("read-strategy must be one of master, read-slave-only, both; got %q", cfg.ReadStrat)
	}

	if cfg.BufSize < 64 {
		return errors.New("bufsize must be at least 64")
	}
	if cfg.ClientTimeoutSec < 0 {
		return errors.New("client_timeout must be >= 0")
	}
	if cfg.ServerTimeoutSec < 0 {
		return errors.New("server_timeout must be >= 0")
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	case "":
		cfg.LogLevel = "info"
	default:
		return fmt.Errorf("loglevel must be one of debug, info, warn, error; got %q", cfg.LogLevel)
	}

	if cfg.Admin.Host == "" {
		cfg.Admin.Host = "127.0.0.1"
	}
	if cfg.Admin.Enabled && (cfg.Admin.Port <= 0 || cfg.Admin.Port > 65535) {
		return errors.New("admin.port must be 1..65535")
	}

	return nil
}
