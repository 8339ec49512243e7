package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgfastload/internal/retry"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns is used when the caller does not size the pool.
	DefaultMaxConns = 5

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps worker connections alive while a worker
	// waits on another worker's table.
	DefaultMaxConnIdleTime = 30 * time.Minute

	// DefaultAppName is reported to the server as application_name.
	DefaultAppName = "pgfastload"
)

func configurePool(poolConfig *pgxpool.Config, config *fastload.ConnectionConfig) {
	poolConfig.MaxConns = DefaultMaxConns
	if config.MaxConns > 0 {
		poolConfig.MaxConns = int32(config.MaxConns)
	}
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	if config.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = config.ConnectTimeout
	}
	if _, ok := poolConfig.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = DefaultAppName
	}
}

// openPool parses connStr, applies the pool settings and verifies the server
// answers a ping.
func openPool(ctx context.Context, connStr string, config *fastload.ConnectionConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	configurePool(poolConfig, config)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}

	return pool, nil
}

// StandardConnector implements the Connector interface for standard
// username/password authentication with automatic retry on transient failures.
type StandardConnector struct {
	config        *fastload.ConnectionConfig
	retryExecutor *retry.Executor
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
// Retry behavior uses the fastload defaults.
func NewStandardConnector(config *fastload.ConnectionConfig) *StandardConnector {
	return &StandardConnector{
		config:        config,
		retryExecutor: retry.NewDefaultExecutor(retry.NewPostgreSQLErrorClassifier()),
	}
}

// Connect establishes a connection pool using standard authentication with automatic retry.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	connStr := BuildConnectionString(c.config)

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		var err error
		pool, err = openPool(ctx, connStr, c.config)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's AuthMethod.
func NewConnector(config *fastload.ConnectionConfig) (fastload.Connector, error) {
	switch config.AuthMethod {
	case fastload.AuthMethodStandard:
		return NewStandardConnector(config), nil
	case fastload.AuthMethodAWSIAM:
		return newAWSConnector(config)
	case fastload.AuthMethodGoogleIAM:
		return newGoogleConnector(config)
	case fastload.AuthMethodAzureEntraID:
		return newAzureConnector(config)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, fastload.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port

Original error: %w`, addr, host, port, err)

	case strings.Contains(errStr, "no such host"):
		return fmt.Errorf(`cannot resolve host "%s"

Original error: %w`, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or ~/.pgpass)
  - Wrong username

Original error: %w`, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

The target schema must exist before loading; pgfastload only truncates and fills tables.

Original error: %w`, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s (raise --timeout for slow networks)

Original error: %w`, addr, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`too many connections to database "%s"

Each load worker holds one connection for the whole run. Lower --workers
or raise max_connections on the server.

Original error: %w`, database, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}

// newAWSConnector creates a token-based connector with the AWS IAM token provider.
func newAWSConnector(config *fastload.ConnectionConfig) (fastload.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %w", err)
	}

	return NewTokenBasedConnector(config, tokenProvider, "AWS IAM"), nil
}

// newGoogleConnector creates a GoogleCloudSQLConnector for Google Cloud SQL IAM authentication.
func newGoogleConnector(config *fastload.ConnectionConfig) (fastload.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", fastload.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires username (-U): %w", fastload.ErrInvalidConfig)
	}

	return NewGoogleCloudSQLConnector(config, config.GoogleInstance), nil
}

// newAzureConnector creates a token-based connector with the Azure Entra ID token provider.
// Explicit service principal credentials win over the DefaultAzureCredential chain.
func newAzureConnector(config *fastload.ConnectionConfig) (fastload.Connector, error) {
	var tokenProvider TokenProvider
	var err error

	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(
			config.AzureTenantID,
			config.AzureClientID,
			config.AzureClientSecret,
		)
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure token provider: %w", err)
	}

	return NewTokenBasedConnector(config, tokenProvider, "Azure"), nil
}
