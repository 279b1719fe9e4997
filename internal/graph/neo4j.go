package graph

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// Neo4jClient implements Client for Neo4j graph databases.
type Neo4jClient struct {
	config Config
	driver neo4j.DriverWithContext
}

// NewNeo4jClient creates a new Neo4j client with the given configuration.
// The client must be connected via Connect() before use.
func NewNeo4jClient(config Config) (*Neo4jClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Neo4jClient{
		config: config,
	}, nil
}

// Connect establishes a connection to the Neo4j database.
// Uses exponential backoff for connection retries.
func (c *Neo4jClient) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(c.config.Username, c.config.Password, "")

	driverConfig := func(config *neo4j.Config) {
		config.MaxConnectionPoolSize = c.config.MaxConnectionPoolSize
		config.ConnectionAcquisitionTimeout = c.config.ConnectionTimeout
		config.MaxTransactionRetryTime = c.config.MaxTransactionRetryTime
	}

	var driver neo4j.DriverWithContext
	var lastErr error
	maxRetries := 5
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		var err error
		driver, err = neo4j.NewDriverWithContext(c.config.URI, auth, driverConfig)
		if err == nil {
			err = driver.VerifyConnectivity(ctx)
			if err == nil {
				c.driver = driver
				return nil
			}
		}

		lastErr = err

		if ctx.Err() != nil {
			return types.WrapError(ErrCodeGraphConnectionFailed,
				"connection attempt cancelled", ctx.Err())
		}

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.config.ConnectionTimeout {
			delay = c.config.ConnectionTimeout
		}

		select {
		case <-time.After(delay):
			continue
		case <-ctx.Done():
			return types.WrapError(ErrCodeGraphConnectionFailed,
				"connection attempt cancelled", ctx.Err())
		}
	}

	return types.WrapError(ErrCodeGraphConnectionFailed,
		fmt.Sprintf("failed to connect after %d attempts", maxRetries), lastErr)
}

// Close releases all resources and closes the database connection.
func (c *Neo4jClient) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}

	if err := c.driver.Close(ctx); err != nil {
		return types.WrapError(ErrCodeGraphConnectionClosed,
			"failed to close driver", err)
	}

	c.driver = nil
	return nil
}

// Ping runs RETURN 1 against the server.
func (c *Neo4jClient) Ping(ctx context.Context) error {
	result, err := c.Query(ctx, "RETURN 1 AS ok", nil)
	if err != nil {
		return err
	}
	if len(result.Records) != 1 {
		return types.NewError(ErrCodeGraphQueryFailed, "unexpected ping result")
	}
	return nil
}

// Query executes a Cypher query in a read transaction.
func (c *Neo4jClient) Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return c.run(ctx, cypher, params, false)
}

// Write executes a Cypher query in a write transaction.
func (c *Neo4jClient) Write(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return c.run(ctx, cypher, params, true)
}

func (c *Neo4jClient) run(ctx context.Context, cypher string, params map[string]any, write bool) (QueryResult, error) {
	if c.driver == nil {
		return QueryResult{}, types.NewError(ErrCodeGraphConnectionClosed,
			"driver not connected")
	}

	startTime := time.Now()

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
	})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		neoResult, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		records, err := neoResult.Collect(ctx)
		if err != nil {
			return nil, err
		}

		summary, err := neoResult.Consume(ctx)
		if err != nil {
			return nil, err
		}

		return convertNeo4jResult(records, summary), nil
	}

	var result any
	var err error
	if write {
		result, err = session.ExecuteWrite(ctx, work)
	} else {
		result, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		return QueryResult{}, types.WrapError(ErrCodeGraphQueryFailed,
			"query execution failed", err)
	}

	queryResult := result.(QueryResult)
	queryResult.Summary.ExecutionTime = time.Since(startTime)

	return queryResult, nil
}

// convertNeo4jResult converts Neo4j records and summary to our QueryResult format.
func convertNeo4jResult(records []*neo4j.Record, summary neo4j.ResultSummary) QueryResult {
	result := QueryResult{
		Records: make([]map[string]any, 0, len(records)),
		Columns: []string{},
	}

	if len(records) > 0 {
		result.Columns = records[0].Keys
	}

	for _, record := range records {
		recordMap := make(map[string]any)
		for i, key := range record.Keys {
			recordMap[key] = record.Values[i]
		}
		result.Records = append(result.Records, recordMap)
	}

	if summary != nil && summary.Counters() != nil {
		counters := summary.Counters()
		result.Summary = QuerySummary{
			NodesCreated:         counters.NodesCreated(),
			RelationshipsCreated: counters.RelationshipsCreated(),
			PropertiesSet:        counters.PropertiesSet(),
			ConstraintsAdded:     counters.ConstraintsAdded(),
		}
	}

	return result
}
