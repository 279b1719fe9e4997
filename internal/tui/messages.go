package tui

import (
	"time"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/orchestrator"
)

// instancesLoadedMsg carries a fresh registry listing into the model.
type instancesLoadedMsg struct {
	Instances []orchestrator.InstanceView
	Timestamp time.Time
}

// actionDoneMsg reports a completed lifecycle action on one instance.
type actionDoneMsg struct {
	Action     string
	InstanceID string
}

// statusMsg is a transient line for the status bar.
type statusMsg struct {
	Text string
}

// errMsg carries an error into the status bar.
type errMsg struct {
	Err error
}

// tickMsg drives the periodic registry refresh.
type tickMsg struct {
	Timestamp time.Time
}
