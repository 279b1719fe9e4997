package graph

import (
	"context"
	"sync"
	"time"
)

// MockCall represents a recorded method call on the mock graph client.
type MockCall struct {
	Method    string
	Cypher    string
	Params    map[string]any
	Timestamp time.Time
}

// MockClient is a mock implementation of Client for testing.
// It records every call and supports configurable errors plus optional
// per-query handlers.
type MockClient struct {
	mu sync.Mutex

	connected bool
	calls     []MockCall

	// Configurable responses
	ConnectErr error
	CloseErr   error
	PingErr    error

	// QueryFunc and WriteFunc, when set, handle the corresponding calls.
	// When nil, an empty successful result is returned.
	QueryFunc func(cypher string, params map[string]any) (QueryResult, error)
	WriteFunc func(cypher string, params map[string]any) (QueryResult, error)
}

// NewMockClient creates a new mock graph client for testing.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) record(method, cypher string, params map[string]any) {
	m.calls = append(m.calls, MockCall{
		Method:    method,
		Cypher:    cypher,
		Params:    params,
		Timestamp: time.Now(),
	})
}

// Connect records the call and simulates connection.
func (m *MockClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Connect", "", nil)
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.connected = true
	return nil
}

// Close records the call and simulates disconnection.
func (m *MockClient) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Close", "", nil)
	if m.CloseErr != nil {
		return m.CloseErr
	}
	m.connected = false
	return nil
}

// Ping records the call and returns the configured error.
func (m *MockClient) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Ping", "", nil)
	return m.PingErr
}

// Query records the call and delegates to QueryFunc if set.
func (m *MockClient) Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Query", cypher, params)
	if m.QueryFunc != nil {
		return m.QueryFunc(cypher, params)
	}
	return QueryResult{}, nil
}

// Write records the call and delegates to WriteFunc if set.
func (m *MockClient) Write(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Write", cypher, params)
	if m.WriteFunc != nil {
		return m.WriteFunc(cypher, params)
	}
	return QueryResult{}, nil
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo returns the recorded calls for a single method.
func (m *MockClient) CallsTo(method string) []MockCall {
	var out []MockCall
	for _, call := range m.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// Connected reports whether Connect has succeeded without a later Close.
func (m *MockClient) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}
