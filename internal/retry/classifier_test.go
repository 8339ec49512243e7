package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
)

func TestPostgreSQLErrorClassifier_IsTransient(t *testing.T) {
	classifier := NewPostgreSQLErrorClassifier()

	tests := []struct {
		name        string
		err         error
		isTransient bool
	}{
		{"nil", nil, false},
		{"connection_failure (08006)", &pgconn.PgError{Code: "08006"}, true},
		{"too_many_connections (53300)", &pgconn.PgError{Code: "53300"}, true},
		{"admin_shutdown (57P01)", &pgconn.PgError{Code: "57P01"}, true},
		{"serialization_failure (40001)", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock_detected (40P01)", &pgconn.PgError{Code: "40P01"}, true},
		{"lock_not_available (55P03)", &pgconn.PgError{Code: "55P03"}, true},
		{"invalid_password (28P01)", &pgconn.PgError{Code: "28P01"}, false},
		{"unique_violation (23505)", &pgconn.PgError{Code: "23505"}, false},
		{"bad_copy_format (22P04)", &pgconn.PgError{Code: "22P04"}, false},
		{"wrapped pg error", fmt.Errorf("load: %w", &pgconn.PgError{Code: "08001"}), true},
		{"connection refused op error", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"dns not found", &net.DNSError{Name: "db", IsNotFound: true}, true},
		{"message only", errors.New("read tcp: connection reset by peer"), true},
		{"plain error", errors.New("syntax error"), false},
		{"deadline exceeded", context.DeadlineExceeded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isTransient, classifier.IsTransient(tt.err))
		})
	}
}

func TestSQLServerErrorClassifier_IsTransient(t *testing.T) {
	classifier := NewSQLServerErrorClassifier()

	tests := []struct {
		name        string
		err         error
		isTransient bool
	}{
		{"nil", nil, false},
		{"deadlock victim", mssql.Error{Number: 1205}, true},
		{"azure database unavailable", mssql.Error{Number: 40613}, true},
		{"wrapped service busy", fmt.Errorf("export: %w", mssql.Error{Number: 40501}), true},
		{"login failed", mssql.Error{Number: 18456}, false},
		{"invalid object name", mssql.Error{Number: 208}, false},
		{"network", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, true},
		{"plain error", errors.New("bad column"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isTransient, classifier.IsTransient(tt.err))
		})
	}
}
