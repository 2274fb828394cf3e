// Package config loads Corvus configuration using Viper.
//
// Configuration is loaded from an optional YAML file with environment
// variable overrides and hardcoded defaults. Environment variables use the
// CORVUS_ prefix and underscore-separated keys:
//   - CORVUS_BIND -> bind
//   - CORVUS_NODE -> node
//   - CORVUS_REQUIREPASS -> requirepass
//
// Corvus does not watch its config file for changes: process bootstrap,
// daemonization, and live config rewrite are left to an external process
// supervisor, which hands the core a single immutable snapshot at startup.
package config

import (
	"os"
	"strconv"
	"strings"
)

// ReadStrategy selects how read commands are routed among a slot's
// master and replicas.
type ReadStrategy string

const (
	// ReadMaster always routes reads to the master.
	ReadMaster ReadStrategy = "master"
	// ReadSlaveOnly routes reads to a replica when the master is
	// unavailable, and uniformly to a replica otherwise; master for writes.
	ReadSlaveOnly ReadStrategy = "read-slave-only"
	// ReadBoth routes reads uniformly among master and replicas.
	ReadBoth ReadStrategy = "both"
)

// WorkersMode specifies how the worker count is determined.
type WorkersMode int

const (
	// WorkersAuto uses one worker per available CPU.
	WorkersAuto WorkersMode = iota
	// WorkersFixed uses a specific worker count.
	WorkersFixed
)

// WorkerSetting is the parsed form of the `thread` config option.
type WorkerSetting struct {
	Mode  WorkersMode
	Value int
}

// String renders the worker setting the way it would appear in a log line.
func (w WorkerSetting) String() string {
	if w.Mode == WorkersAuto {
		return "auto"
	}
	return strconv.Itoa(w.Value)
}

// AdminConfig controls the read-only HTTP admin surface (internal/admin),
// which is additive to the RESP wire interface.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host"    mapstructure:"host"`
	Port    int    `yaml:"port"    mapstructure:"port"`
}

// Config is the root configuration snapshot handed to the core.
type Config struct {
	Cluster     string       `yaml:"cluster"      mapstructure:"cluster"`
	Bind        int          `yaml:"bind"         mapstructure:"bind"`
	Node        []string     `yaml:"node"         mapstructure:"node"`
	ThreadRaw   string       `yaml:"thread"       mapstructure:"thread"`
	Thread      WorkerSetting `yaml:"-"           mapstructure:"-"`
	LogLevel    string       `yaml:"loglevel"     mapstructure:"loglevel"`
	Syslog      bool         `yaml:"syslog"       mapstructure:"syslog"`
	Statsd      string       `yaml:"statsd"       mapstructure:"statsd"`
	MetricIntvl int          `yaml:"metric_interval" mapstructure:"metric_interval"`
	Stats       bool         `yaml:"stats"        mapstructure:"stats"`
	ReadStrat   ReadStrategy `yaml:"read-strategy" mapstructure:"read-strategy"`
	RequirePass string       `yaml:"requirepass"  mapstructure:"requirepass"`

	ClientTimeoutSec int `yaml:"client_timeout" mapstructure:"client_timeout"`
	ServerTimeoutSec int `yaml:"server_timeout" mapstructure:"server_timeout"`
	BufSize          int `yaml:"bufsize"        mapstructure:"bufsize"`

	// Slow-log fields are parsed and stored but drive no core behavior:
	// slow-log aggregation is an out-of-scope external collaborator
	// ; the core only needs to carry the configuration
	// snapshot through unchanged.
	SlowlogSlowerThanUs int  `yaml:"slowlog-log-slower-than" mapstructure:"slowlog-log-slower-than"`
	SlowlogMaxLen       int  `yaml:"slowlog-max-len"         mapstructure:"slowlog-max-len"`
	SlowlogStatsd       bool `yaml:"slowlog-statsd-enabled"  mapstructure:"slowlog-statsd-enabled"`

	Admin AdminConfig `yaml:"admin" mapstructure:"admin"`
}

// ResolveConfigPath determines the config file path from flag or environment.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("CORVUS_CONFIG")); v != "" {
		return v
	}
	return ""
}

// Load loads configuration from a YAML file with environment variable overrides.
// This is the main entry point for loading configuration.
//
// Configuration priority (highest to lowest):
//  1. Environment variables (CORVUS_*)
//  2. Config file values
//  3. Default values
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}
