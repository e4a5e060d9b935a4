package database

import (
	"github.com/jmoiron/sqlx"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sqlx.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts ? placeholders to the driver's bind style
	RewriteQuery(query string) string

	// ConfigureConnection applies pool limits and session settings
	ConfigureConnection(db *sqlx.DB, config DialectConfig) error

	// MigrationsSubdir returns the embedded migrations directory for this dialect
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// UpsertKVQuery writes one key/value document, replacing any existing value
	UpsertKVQuery() string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// MemoryPath opens a private in-memory SQLite database
const MemoryPath = ":memory:"

func rebind(driverName, query string) string {
	return sqlx.Rebind(sqlx.BindType(driverName), query)
}
