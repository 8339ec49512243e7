package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConnectionConfig describes the PostgreSQL target.
type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// SourceConfig describes the SQL Server database that export reads from.
type SourceConfig struct {
	DSN    string   `yaml:"dsn"`
	Schema string   `yaml:"schema,omitempty"`
	Tables []string `yaml:"tables,omitempty"`
	Gzip   bool     `yaml:"gzip,omitempty"`
}

// LoadSection holds defaults for the load command.
type LoadSection struct {
	Workers        int      `yaml:"workers,omitempty"`
	Timeout        string   `yaml:"timeout,omitempty"`
	Encoding       string   `yaml:"encoding,omitempty"`
	ExcludeSchemas []string `yaml:"exclude_schemas,omitempty"`
	Journal        string   `yaml:"journal,omitempty"`
	ScriptDir      string   `yaml:"script_dir,omitempty"`
	UpdateInterval string   `yaml:"update_interval,omitempty"`
	NullMarker     string   `yaml:"null_marker,omitempty"`
	Escape         string   `yaml:"escape,omitempty"`
}

// DatadogConfig enables metric submission. Credentials come from
// DD_API_KEY / DD_APP_KEY, never from the file.
type DatadogConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Site          string   `yaml:"site,omitempty"`
	Prefix        string   `yaml:"prefix,omitempty"`
	Tags          []string `yaml:"tags,omitempty"`
	FlushInterval string   `yaml:"flush_interval,omitempty"`
}

type MetricsConfig struct {
	Datadog DatadogConfig `yaml:"datadog"`
}

type ProjectConfig struct {
	Target  ConnectionConfig `yaml:"target"`
	Source  SourceConfig     `yaml:"source"`
	Load    LoadSection      `yaml:"load"`
	Metrics MetricsConfig    `yaml:"metrics"`
}

const ConfigFileName = "pgfastload.yaml"

// Load reads pgfastload.yaml from dir.
func Load(dir string) (*ProjectConfig, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads a config file from an explicit path.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// ParseDuration parses an optional duration field, returning zero when empty.
func ParseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d, nil
}
