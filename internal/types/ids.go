package types

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// SanitizeName lowercases a survey name and collapses anything outside
// [a-z0-9] into single hyphens, so the result is safe for instance ids,
// container names, and volume names.
func SanitizeName(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		if unicode.IsLower(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// NewInstanceID builds a unique instance id of the form
// kg-<sanitized-name>-<DDMMYYYY>-<8 hex chars>.
func NewInstanceID(name string, now time.Time) string {
	safe := SanitizeName(name)
	if safe == "" {
		safe = "survey"
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("kg-%s-%s-%s", safe, now.Format("02012006"), suffix)
}

// ContainerNameFor derives the container name for an instance id.
func ContainerNameFor(id string) string {
	return "neo4j-" + id
}

// VolumeNameFor derives the data volume name for an instance id.
func VolumeNameFor(id string) string {
	return "kg_data_" + strings.ReplaceAll(id, "-", "_")
}
