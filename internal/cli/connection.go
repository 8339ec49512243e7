package cli

import (
	"fmt"
	"os"

	"github.com/vvka-141/pgfastload/internal/config"
	"github.com/vvka-141/pgfastload/internal/db"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// connectionStringFromEnv returns the first non-empty connection string from
// FASTLOAD_CONNECTION_STRING or DATABASE_URL environment variables.
func connectionStringFromEnv() string {
	if s := os.Getenv("FASTLOAD_CONNECTION_STRING"); s != "" {
		return s
	}
	return os.Getenv("DATABASE_URL")
}

// resolveConnection consolidates connection resolution for the load command.
// It handles the connection string flag, granular flags, cloud IAM flags and
// environment variables, with pgfastload.yaml as the lowest layer.
func resolveConnection(
	connStringFlag string,
	granularFlags *db.GranularConnFlags,
	cloudFlags *db.CloudFlags,
	projectConfig *config.ProjectConfig,
) (*fastload.ConnectionConfig, error) {
	connString := connStringFlag
	if connString == "" && granularFlags.IsEmpty() {
		connString = connectionStringFromEnv()
	}

	connConfig, err := db.ResolveConnectionParams(
		connString,
		granularFlags,
		cloudFlags,
		db.LoadFromEnvironment(),
		projectConfig,
	)
	if err != nil {
		return nil, err
	}

	if connConfig.Database == "" {
		return nil, fmt.Errorf("database name is required\n"+
			"Provide via:\n"+
			"  1. --database/-d flag: pgfastload load ./data -d warehouse\n"+
			"  2. Connection string: pgfastload load ./data --connection \"postgresql://user@host/warehouse\"\n"+
			"  3. Environment variable: export PGDATABASE=warehouse: %w",
			fastload.ErrInvalidConfig)
	}
	return connConfig, nil
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(connConfig *fastload.ConnectionConfig) {
	fmt.Fprintf(os.Stderr, "[VERBOSE] Connection resolved:\n")
	fmt.Fprintf(os.Stderr, "  Host: %s\n", connConfig.Host)
	fmt.Fprintf(os.Stderr, "  Port: %d\n", connConfig.Port)
	fmt.Fprintf(os.Stderr, "  User: %s\n", connConfig.Username)
	fmt.Fprintf(os.Stderr, "  Database: %s\n", connConfig.Database)
	fmt.Fprintf(os.Stderr, "  SSL Mode: %s\n", connConfig.SSLMode)
	fmt.Fprintf(os.Stderr, "  Auth Method: %s\n", connConfig.AuthMethod)
}
