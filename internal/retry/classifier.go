package retry

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
)

// PostgreSQL error classes and codes for transient conditions.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
var transientPgClasses = []string{
	"08", // connection exception
	"53", // insufficient resources
	"57", // operator intervention
}

var transientPgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// transientMessages are lower-case fragments of driver errors that carry no code.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"connection failure",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"too many connections",
	"server closed the connection",
	"unexpected eof",
	"connection pool exhausted",
	"context deadline exceeded",
}

// PostgreSQLErrorClassifier implements ErrorClassifier for PostgreSQL-specific errors.
type PostgreSQLErrorClassifier struct{}

// NewPostgreSQLErrorClassifier creates a new PostgreSQL error classifier.
func NewPostgreSQLErrorClassifier() *PostgreSQLErrorClassifier {
	return &PostgreSQLErrorClassifier{}
}

// IsTransient determines if an error is temporary and retryable.
func (c *PostgreSQLErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isTransientPgCode(pgErr.Code)
	}

	return isNetworkError(err) || hasTransientMessage(err)
}

func isTransientPgCode(code string) bool {
	for _, class := range transientPgClasses {
		if strings.HasPrefix(code, class) {
			return true
		}
	}
	return transientPgCodes[code]
}

// SQL Server error numbers for transient conditions, including the Azure SQL
// throttling and failover family.
var transientMSSQLNumbers = map[int32]bool{
	-2:    true, // timeout expired
	1205:  true, // deadlock victim
	233:   true, // connection closed by server
	4060:  true, // cannot open database (often during failover)
	10053: true, // transport-level error
	10054: true, // connection reset
	10060: true, // connection timed out
	40197: true, // service error processing request
	40501: true, // service busy
	40613: true, // database unavailable
	49918: true, // not enough resources
	49919: true, // too many create/update requests
	49920: true, // too many operations in progress
}

// SQLServerErrorClassifier implements ErrorClassifier for the export source.
type SQLServerErrorClassifier struct{}

// NewSQLServerErrorClassifier creates a new SQL Server error classifier.
func NewSQLServerErrorClassifier() *SQLServerErrorClassifier {
	return &SQLServerErrorClassifier{}
}

// IsTransient determines if an error is temporary and retryable.
func (c *SQLServerErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return transientMSSQLNumbers[msErr.Number]
	}

	return isNetworkError(err) || hasTransientMessage(err)
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.IsNotFound
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		return errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
			errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ENETUNREACH) ||
			errors.Is(opErr.Err, syscall.EHOSTUNREACH)
	}

	return false
}

func hasTransientMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
