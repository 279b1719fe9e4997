package types

import (
	"fmt"
	"time"
)

// InstanceStatus tracks an instance through its lifecycle. Statuses only
// advance forward, except Failed which is reachable from any non-terminal
// state and Removed which is reachable from any state.
type InstanceStatus string

const (
	StatusProvisioning InstanceStatus = "provisioning"
	StatusRunning      InstanceStatus = "running"
	StatusIngesting    InstanceStatus = "ingesting"
	StatusReady        InstanceStatus = "ready"
	StatusFailed       InstanceStatus = "failed"
	StatusStopped      InstanceStatus = "stopped"
	StatusRemoved      InstanceStatus = "removed"
)

// IsValid reports whether s is a known instance status.
func (s InstanceStatus) IsValid() bool {
	switch s {
	case StatusProvisioning, StatusRunning, StatusIngesting, StatusReady,
		StatusFailed, StatusStopped, StatusRemoved:
		return true
	}
	return false
}

// IsTerminal reports whether no further forward transition is possible.
// Failed and Removed are terminal; Stopped can still be removed.
func (s InstanceStatus) IsTerminal() bool {
	return s == StatusFailed || s == StatusRemoved
}

func (s InstanceStatus) String() string {
	return string(s)
}

// forwardTransitions enumerates the allowed forward edges of the lifecycle.
var forwardTransitions = map[InstanceStatus][]InstanceStatus{
	StatusProvisioning: {StatusRunning},
	StatusRunning:      {StatusIngesting, StatusStopped},
	StatusIngesting:    {StatusReady},
	StatusReady:        {StatusStopped},
	StatusStopped:      {StatusRunning},
}

// CanTransition reports whether moving from s to next respects the lifecycle
// invariant. Failed is reachable from any non-terminal state; Removed from
// any state.
func (s InstanceStatus) CanTransition(next InstanceStatus) bool {
	if !next.IsValid() {
		return false
	}
	if next == StatusRemoved {
		return true
	}
	if next == StatusFailed {
		return !s.IsTerminal()
	}
	for _, allowed := range forwardTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Instance is the unit of management: one Neo4j container hosting one
// survey knowledge graph, with its ports, credentials, and provenance.
type Instance struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	HTTPPort      int            `json:"http_port"`
	BoltPort      int            `json:"bolt_port"`
	Username      string         `json:"username"`
	Password      string         `json:"password"`
	ContainerName string         `json:"container_name"`
	ContainerID   string         `json:"container_id,omitempty"`
	VolumeName    string         `json:"volume_name"`
	Status        InstanceStatus `json:"status"`
	OntologyPath  string         `json:"ontology_path"`
	DataPath      string         `json:"data_path"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Validate checks the structural invariants of an instance record.
func (i *Instance) Validate() error {
	if i.ID == "" {
		return NewError(INSTANCE_INVALID, "instance id cannot be empty")
	}
	if i.Name == "" {
		return NewError(INSTANCE_INVALID, "instance name cannot be empty")
	}
	if i.HTTPPort <= 0 || i.HTTPPort > 65535 {
		return NewError(INSTANCE_INVALID, fmt.Sprintf("invalid http port: %d", i.HTTPPort))
	}
	if i.BoltPort <= 0 || i.BoltPort > 65535 {
		return NewError(INSTANCE_INVALID, fmt.Sprintf("invalid bolt port: %d", i.BoltPort))
	}
	if i.HTTPPort == i.BoltPort {
		return NewError(INSTANCE_INVALID, "http and bolt ports must differ")
	}
	if !i.Status.IsValid() {
		return NewError(INSTANCE_INVALID, fmt.Sprintf("invalid status: %s", i.Status))
	}
	return nil
}

// BrowserURL returns the Neo4j Browser endpoint for this instance.
func (i *Instance) BrowserURL() string {
	return fmt.Sprintf("http://localhost:%d", i.HTTPPort)
}

// BoltURL returns the bolt endpoint for this instance.
func (i *Instance) BoltURL() string {
	return fmt.Sprintf("bolt://localhost:%d", i.BoltPort)
}
