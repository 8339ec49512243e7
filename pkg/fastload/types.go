package fastload

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// LoadConfig contains all parameters needed for a load run.
type LoadConfig struct {
	// InputPath is a data file or a directory scanned recursively for data files.
	InputPath string

	// Workers is the number of parallel load workers, each with its own connection.
	Workers int

	// Timeout bounds establishing each database connection.
	Timeout time.Duration

	// Script switches to script mode: statements are written to the output
	// stream in dependency order instead of being executed.
	Script bool

	// ScriptDir is the directory the emitted COPY statements read files from.
	// When empty, statements reference the scanned file paths.
	ScriptDir string

	// Encoding is the character encoding of the data files (IANA name).
	Encoding string

	// ExcludeSchemas are regular expressions; matching target schemas are ignored.
	ExcludeSchemas []string

	// JournalPath is an optional SQLite file recording the run.
	JournalPath string

	// UpdateInterval is how often progress is reported in non-interactive mode.
	UpdateInterval time.Duration

	// NullMarker is the unquoted field value read as NULL, e.g. "@null@".
	// Empty keeps the CSV default, where an unquoted empty field is NULL.
	NullMarker string

	// Escape is the single character that escapes quotes inside quoted
	// fields. Empty keeps the CSV default, a doubled quote.
	Escape string

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if c.InputPath == "" {
		errs = append(errs, fmt.Errorf("InputPath is required: %w", ErrInvalidConfig))
	}

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d: %w", c.Workers, ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	if c.UpdateInterval < 0 {
		errs = append(errs, fmt.Errorf("update interval cannot be negative: %w", ErrInvalidConfig))
	}

	for _, pattern := range c.ExcludeSchemas {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("invalid exclude-schema pattern %q: %v: %w", pattern, err, ErrInvalidConfig))
		}
	}

	if strings.ContainsAny(c.NullMarker, "\r\n\"") {
		errs = append(errs, fmt.Errorf("null marker %q cannot contain a newline or a quote: %w", c.NullMarker, ErrInvalidConfig))
	}

	if c.Escape != "" && len(c.Escape) != 1 {
		errs = append(errs, fmt.Errorf("escape must be a single one-byte character, got %q: %w", c.Escape, ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ExportConfig contains all parameters needed to export source tables to data files.
type ExportConfig struct {
	// SourceDSN is the SQL Server connection string.
	SourceDSN string

	// OutputDir receives one <schema>.<table>.csv[.gz] file per table.
	OutputDir string

	// Schema restricts the export to one source schema when set.
	Schema string

	// Tables restricts the export to the named tables (schema.table or table).
	Tables []string

	// Gzip compresses output files.
	Gzip bool

	// Workers bounds the number of tables exported concurrently.
	Workers int

	// Timeout bounds the whole export. Zero means no limit.
	Timeout time.Duration
}

// Validate checks if the ExportConfig has all required fields and valid values.
func (c *ExportConfig) Validate() error {
	var errs []error

	if c.SourceDSN == "" {
		errs = append(errs, fmt.Errorf("source connection string is required: %w", ErrInvalidConfig))
	}

	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("OutputDir is required: %w", ErrInvalidConfig))
	}

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d: %w", c.Workers, ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// MaxConns sizes the connection pool. Load runs set it to the worker count
	// plus one for introspection. Zero keeps the connector default.
	MaxConns int

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for AuthMethodAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance)
	// used with AuthMethodGoogleIAM.
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}
