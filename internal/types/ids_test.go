package types

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "survey", "survey"},
		{"uppercase", "TownSurvey", "townsurvey"},
		{"spaces", "Town Survey 2026", "town-survey-2026"},
		{"punctuation", "poll: spring/2026!", "poll-spring-2026"},
		{"collapses runs", "a  --  b", "a-b"},
		{"trims edges", "  weird  ", "weird"},
		{"all invalid", "///", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.input))
		})
	}
}

func TestNewInstanceID(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	id := NewInstanceID("Town Survey", now)

	re := regexp.MustCompile(`^kg-town-survey-15032026-[0-9a-f]{8}$`)
	require.Regexp(t, re, id)

	// Distinct calls must produce distinct ids.
	other := NewInstanceID("Town Survey", now)
	assert.NotEqual(t, id, other)
}

func TestNewInstanceIDEmptyName(t *testing.T) {
	id := NewInstanceID("///", time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(id, "kg-survey-02012026-"), id)
}

func TestDerivedNames(t *testing.T) {
	id := "kg-town-survey-15032026-a1b2c3d4"

	assert.Equal(t, "neo4j-kg-town-survey-15032026-a1b2c3d4", ContainerNameFor(id))
	assert.Equal(t, "kg_data_kg_town_survey_15032026_a1b2c3d4", VolumeNameFor(id))
}
