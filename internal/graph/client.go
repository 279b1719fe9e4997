package graph

import (
	"context"
	"time"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// Client provides an interface for graph database operations.
// Implementations must be thread-safe for concurrent access.
type Client interface {
	// Connect establishes a connection to the graph database.
	Connect(ctx context.Context) error

	// Close releases all resources and closes the database connection.
	Close(ctx context.Context) error

	// Ping verifies the server answers a trivial query. Used by the
	// readiness probe during instance provisioning.
	Ping(ctx context.Context) error

	// Query executes a Cypher query in a read transaction.
	Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)

	// Write executes a Cypher query in a write transaction and returns
	// the result set along with update counters.
	Write(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)
}

// QueryResult represents the result of a Cypher query execution.
type QueryResult struct {
	// Records contains the result rows as maps of column name to value.
	Records []map[string]any

	// Columns contains the names of the columns in the result set.
	Columns []string

	// Summary contains metadata about the query execution.
	Summary QuerySummary
}

// QuerySummary provides metadata about query execution.
type QuerySummary struct {
	// ExecutionTime is the duration of query execution.
	ExecutionTime time.Duration

	// NodesCreated is the number of nodes created by the query.
	NodesCreated int

	// RelationshipsCreated is the number of relationships created.
	RelationshipsCreated int

	// PropertiesSet is the number of properties set.
	PropertiesSet int

	// ConstraintsAdded is the number of constraints added.
	ConstraintsAdded int
}

// Config contains configuration options for graph database clients.
type Config struct {
	// URI is the connection URI, e.g. "bolt://localhost:7687".
	URI string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// Database name to connect to. Empty string uses the default database.
	Database string

	// MaxConnectionPoolSize limits the number of connections in the pool.
	MaxConnectionPoolSize int

	// ConnectionTimeout is the maximum time to wait for a connection.
	ConnectionTimeout time.Duration

	// MaxTransactionRetryTime is the maximum time to retry failed transactions.
	MaxTransactionRetryTime time.Duration
}

// DefaultClientConfig returns a Config with sensible defaults.
func DefaultClientConfig() Config {
	return Config{
		URI:                     "bolt://localhost:7687",
		Username:                "neo4j",
		Password:                "password",
		Database:                "",
		MaxConnectionPoolSize:   50,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 30 * time.Second,
	}
}

// ConfigForInstance builds a client config pointing at a provisioned instance.
func ConfigForInstance(inst *types.Instance) Config {
	cfg := DefaultClientConfig()
	cfg.URI = inst.BoltURL()
	cfg.Username = inst.Username
	cfg.Password = inst.Password
	return cfg
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.URI == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "URI cannot be empty")
	}
	if c.Username == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "Username cannot be empty")
	}
	if c.Password == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "Password cannot be empty")
	}
	if c.ConnectionTimeout <= 0 {
		return types.NewError(ErrCodeGraphInvalidConfig, "ConnectionTimeout must be positive")
	}
	if c.MaxTransactionRetryTime <= 0 {
		return types.NewError(ErrCodeGraphInvalidConfig, "MaxTransactionRetryTime must be positive")
	}
	return nil
}
