package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgfastload/internal/retry"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// tokenExpiryWarning is how close to expiry a freshly issued token must be
// before the connector warns. Long loads outlive short tokens, but pgx only
// needs the password while opening connections, and all worker connections
// are opened at the start of a run.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens (AWS IAM, Azure Entra ID).
// The token is acquired from a TokenProvider and used as the PostgreSQL password.
type TokenBasedConnector struct {
	config        *fastload.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	providerName  string
	logger        fastload.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error/warning messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *fastload.ConnectionConfig, tokenProvider TokenProvider, providerName string) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: retry.NewDefaultExecutor(retry.NewPostgreSQLErrorClassifier()),
		providerName:  providerName,
	}
}

// WithLogger routes token expiry warnings to logger.
func (c *TokenBasedConnector) WithLogger(logger fastload.Logger) *TokenBasedConnector {
	c.logger = logger
	return c
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire %s token: %w", c.providerName, err)
		}

		if left := time.Until(expiresOn); left < tokenExpiryWarning && c.logger != nil {
			c.logger.Warn("%s token expires in %v", c.providerName, left.Round(time.Second))
		}

		configWithToken := *c.config
		configWithToken.Password = token

		pool, err = openPool(ctx, BuildConnectionString(&configWithToken), c.config)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}
