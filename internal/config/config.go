// Copyright (C) 2025 Jeff Rose
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/drone/envsubst"
	"gopkg.in/yaml.v2"

	"github.com/whiskeyjimbo/CertMate/internal/rules"
)

const (
	DefaultConfigFile     = "config.yaml"
	DefaultMetricsAddress = ":9100"
	DefaultInterval       = "1h"

	ProtocolFile = "FILE"
	ProtocolSSH  = "SSH"
)

type Config struct {
	MonitorSite    string               `yaml:"monitor_site"`
	MetricsAddress string               `yaml:"metrics_address,omitempty"`
	Targets        []TargetConfig       `yaml:"targets"`
	Rules          []rules.Rule         `yaml:"rules"`
	Notifications  []NotificationConfig `yaml:"notifications"`
	Database       *DatabaseConfig      `yaml:"database,omitempty"`
}

type TargetConfig struct {
	Name       string       `yaml:"name"`
	Protocol   string       `yaml:"protocol"`
	Address    string       `yaml:"address,omitempty"`
	ServerName string       `yaml:"server_name,omitempty"`
	Path       string       `yaml:"path,omitempty"`
	Interval   string       `yaml:"interval,omitempty"`
	Timeout    string       `yaml:"timeout,omitempty"`
	Tags       []string     `yaml:"tags"`
	Expect     Expectations `yaml:"expect"`
}

type NotificationConfig struct {
	Type       string `yaml:"type"`
	WebhookURL string `yaml:"webhook_url,omitempty"`
}

type DatabaseConfig struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// LoadConfiguration reads, validates and normalizes the configuration file.
func LoadConfiguration(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	config, err := loadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	normalizeConfig(config)
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func loadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(filename))
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML document after ${VAR} substitution. It does not validate.
func Parse(data []byte) (*Config, error) {
	expandedData, err := envsubst.EvalEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	var config Config
	if err := yaml.UnmarshalStrict([]byte(expandedData), &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validateConfig(c *Config) error {
	if c.MonitorSite == "" {
		return errors.New("monitor_site must be specified")
	}
	if len(c.Targets) == 0 {
		return errors.New("at least one target must be specified")
	}

	seen := make(map[string]bool, len(c.Targets))
	for i := range c.Targets {
		target := &c.Targets[i]
		if err := target.Validate(); err != nil {
			return fmt.Errorf("invalid target '%s': %w", target.Name, err)
		}
		if seen[target.Name] {
			return fmt.Errorf("duplicate target name '%s'", target.Name)
		}
		seen[target.Name] = true
	}

	for _, rule := range c.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("invalid rule '%s': %w", rule.Name, err)
		}
	}

	for _, n := range c.Notifications {
		if n.Type == "" {
			return errors.New("notification type cannot be empty")
		}
	}

	if c.Database != nil {
		switch c.Database.Type {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("unsupported database type: %s", c.Database.Type)
		}
		if c.Database.DSN == "" {
			return errors.New("database dsn cannot be empty")
		}
	}
	return nil
}

func normalizeConfig(c *Config) {
	if c.MetricsAddress == "" {
		c.MetricsAddress = DefaultMetricsAddress
	}
	for i := range c.Targets {
		normalizeTarget(&c.Targets[i])
	}
}

func normalizeTarget(t *TargetConfig) {
	t.Protocol = strings.ToUpper(t.Protocol)
	if t.Interval == "" {
		t.Interval = DefaultInterval
	}
	t.Interval = withSecondsSuffix(t.Interval)
	t.Timeout = withSecondsSuffix(t.Timeout)
}

func withSecondsSuffix(s string) string {
	if _, err := strconv.Atoi(s); err == nil {
		return s + "s"
	}
	return s
}

func (t *TargetConfig) Validate() error {
	if t.Name == "" {
		return errors.New("target name cannot be empty")
	}
	if t.Protocol == "" {
		return errors.New("protocol must be specified")
	}

	switch t.Protocol {
	case ProtocolFile:
		if t.Path == "" {
			return errors.New("path is required for FILE targets")
		}
	case ProtocolSSH:
		if t.Address == "" || t.Path == "" {
			return errors.New("address and path are required for SSH targets")
		}
	default:
		if t.Address == "" {
			return errors.New("address cannot be empty")
		}
	}

	if _, err := t.IntervalDuration(); err != nil {
		return err
	}
	if _, err := t.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := t.Expect.Certificate(); err != nil {
		return fmt.Errorf("invalid expectations: %w", err)
	}
	return nil
}

func (t TargetConfig) IntervalDuration() (time.Duration, error) {
	interval, err := time.ParseDuration(t.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid interval: %w", err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	return interval, nil
}

// TimeoutDuration is zero when no timeout is configured.
func (t TargetConfig) TimeoutDuration() (time.Duration, error) {
	if t.Timeout == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(t.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout: %w", err)
	}
	return timeout, nil
}
