package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vvka-141/pgfastload/internal/config"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Password is not a flag. Use $PGPASSWORD, ~/.pgpass or a connection string.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty returns true if no connection-related granular flags were provided by the user.
// Database is excluded because it may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// CloudFlags selects a cloud IAM authentication method.
// Secrets are never flags; they come from the provider's credential chain.
type CloudFlags struct {
	Azure         bool
	AzureTenantID string // Overrides AZURE_TENANT_ID
	AzureClientID string // Overrides AZURE_CLIENT_ID

	AWS       bool
	AWSRegion string // Overrides AWS_REGION

	Google         bool
	GoogleInstance string // project:region:instance
}

// EnvVars represents PostgreSQL standard environment variables plus the
// cloud provider variables the connectors read.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string

	AWS_REGION string
}

// LoadFromEnvironment loads PostgreSQL and cloud provider environment variables.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
	}
}

// ResolveConnectionParams resolves the target connection using PostgreSQL-standard precedence:
//
//  1. Connection string flag (--connection)
//  2. DATABASE_URL, when no granular flags are given
//  3. Granular flags, then PG* environment variables, then pgfastload.yaml, then defaults
//
// The authentication method is chosen afterwards from the cloud flags, then the
// yaml auth_method, falling back to standard password authentication.
//
// Returns an error if both --connection and granular flags are provided.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	cloudFlags *CloudFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*fastload.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if cloudFlags == nil {
		cloudFlags = &CloudFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Target
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://user@localhost:5432/warehouse\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U myuser -d warehouse\n"+
				"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=myuser: %w",
			fastload.ErrInvalidConfig,
		)
	}

	var cfg *fastload.ConnectionConfig
	var err error

	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, envVars)
	case granularFlags.IsEmpty() && envVars.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(envVars.DATABASE_URL, envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	}
	if err != nil {
		return nil, err
	}

	// -d overrides the database of a connection string.
	if granularFlags.Database != "" {
		cfg.Database = granularFlags.Database
	}

	if err := applyAuthMethod(cfg, cloudFlags, envVars, pc); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyAuthMethod selects the authentication method and attaches its parameters.
func applyAuthMethod(cfg *fastload.ConnectionConfig, flags *CloudFlags, env *EnvVars, pc config.ConnectionConfig) error {
	selected := 0
	for _, on := range []bool{flags.Azure, flags.AWS, flags.Google} {
		if on {
			selected++
		}
	}
	if selected > 1 {
		return fmt.Errorf("--azure, --aws and --google are mutually exclusive: %w", fastload.ErrInvalidConfig)
	}

	method := strings.ToLower(pc.AuthMethod)
	switch {
	case flags.Azure:
		method = "azure"
	case flags.AWS:
		method = "aws"
	case flags.Google:
		method = "google"
	case method == "" && (flags.AzureTenantID != "" || flags.AzureClientID != "" ||
		env.AZURE_TENANT_ID != "" || env.AZURE_CLIENT_ID != ""):
		method = "azure"
	}

	switch method {
	case "", "standard", "password":
		cfg.AuthMethod = fastload.AuthMethodStandard
	case "azure":
		cfg.AuthMethod = fastload.AuthMethodAzureEntraID
		cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case "aws":
		cfg.AuthMethod = fastload.AuthMethodAWSIAM
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case "google":
		cfg.AuthMethod = fastload.AuthMethodGoogleIAM
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	default:
		return fmt.Errorf("auth_method %q in %s: %w", pc.AuthMethod, config.ConfigFileName, fastload.ErrUnsupportedAuthMethod)
	}
	return nil
}

// resolveFromConnectionString parses a connection string, applying PGSSLMODE
// as a fallback the way libpq does.
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*fastload.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %v: %w", err, fastload.ErrInvalidConfig)
	}

	if cfg.SSLMode == "" {
		cfg.SSLMode = firstNonEmpty(envVars.PGSSLMODE, "prefer")
	}
	return cfg, nil
}

// resolveFromGranularParams builds a ConnectionConfig with per-parameter precedence
// flag > environment variable > pgfastload.yaml > default.
func resolveFromGranularParams(flags *GranularConnFlags, envVars *EnvVars, pc config.ConnectionConfig) (*fastload.ConnectionConfig, error) {
	cfg := &fastload.ConnectionConfig{
		AuthMethod:       fastload.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstNonEmpty(flags.Host, envVars.PGHOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", envVars.PGPORT, fastload.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}

	cfg.Username = firstNonEmpty(flags.Username, envVars.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = envVars.PGPASSWORD
	cfg.Database = firstNonEmpty(flags.Database, envVars.PGDATABASE, pc.Database)
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, "prefer")

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
