package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInstance() *Instance {
	return &Instance{
		ID:            "kg-town-survey-15032026-a1b2c3d4",
		Name:          "Town Survey",
		HTTPPort:      7474,
		BoltPort:      7687,
		Username:      DefaultUsername,
		Password:      "Xy7mPq2rTv9wKd3n",
		ContainerName: "neo4j-kg-town-survey-15032026-a1b2c3d4",
		VolumeName:    "kg_data_kg_town_survey_15032026_a1b2c3d4",
		Status:        StatusProvisioning,
		CreatedAt:     time.Now(),
	}
}

func TestInstanceValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Instance)
		wantErr bool
	}{
		{"valid", func(i *Instance) {}, false},
		{"empty id", func(i *Instance) { i.ID = "" }, true},
		{"empty name", func(i *Instance) { i.Name = "" }, true},
		{"zero http port", func(i *Instance) { i.HTTPPort = 0 }, true},
		{"http port too high", func(i *Instance) { i.HTTPPort = 70000 }, true},
		{"negative bolt port", func(i *Instance) { i.BoltPort = -1 }, true},
		{"same ports", func(i *Instance) { i.BoltPort = i.HTTPPort }, true},
		{"unknown status", func(i *Instance) { i.Status = "paused" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := validInstance()
			tt.mutate(inst)
			err := inst.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, INSTANCE_INVALID, CodeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from InstanceStatus
		to   InstanceStatus
		want bool
	}{
		{StatusProvisioning, StatusRunning, true},
		{StatusRunning, StatusIngesting, true},
		{StatusIngesting, StatusReady, true},
		{StatusReady, StatusStopped, true},
		{StatusStopped, StatusRunning, true},
		{StatusRunning, StatusStopped, true},

		{StatusProvisioning, StatusReady, false},
		{StatusReady, StatusIngesting, false},
		{StatusIngesting, StatusRunning, false},
		{StatusRemoved, StatusRunning, false},
		{StatusFailed, StatusRunning, false},

		// failed reachable from any non-terminal state
		{StatusProvisioning, StatusFailed, true},
		{StatusIngesting, StatusFailed, true},
		{StatusStopped, StatusFailed, true},
		{StatusRemoved, StatusFailed, false},
		{StatusFailed, StatusFailed, false},

		// removed reachable from anywhere
		{StatusReady, StatusRemoved, true},
		{StatusFailed, StatusRemoved, true},
		{StatusStopped, StatusRemoved, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestInstanceURLs(t *testing.T) {
	inst := validInstance()
	inst.HTTPPort = 7475
	inst.BoltPort = 7688

	assert.Equal(t, "http://localhost:7475", inst.BrowserURL())
	assert.Equal(t, "bolt://localhost:7688", inst.BoltURL())
}
