package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// resultDocument is the JSON export of a completed create run.
type resultDocument struct {
	InstanceID   string            `json:"instance_id"`
	Name         string            `json:"name"`
	BrowserURL   string            `json:"browser_url"`
	BoltURL      string            `json:"bolt_url"`
	Username     string            `json:"username"`
	Password     string            `json:"password"`
	Status       string            `json:"status"`
	OntologyPath string            `json:"ontology_path"`
	DataPath     string            `json:"data_path"`
	Scripts      map[string]string `json:"scripts,omitempty"`
	Ingest       any               `json:"ingest"`
	ExportedAt   time.Time         `json:"exported_at"`
}

// exportResult writes a machine-readable record of the create run into the
// results directory, named after the instance id.
func (o *Orchestrator) exportResult(result *CreateResult) (string, error) {
	if err := os.MkdirAll(o.cfg.Core.ResultsDir, 0o755); err != nil {
		return "", err
	}

	scripts := make(map[string]string, len(result.ScriptPaths))
	for kind, path := range result.ScriptPaths {
		scripts[string(kind)] = path
	}

	doc := resultDocument{
		InstanceID:   result.Instance.ID,
		Name:         result.Instance.Name,
		BrowserURL:   result.Instance.BrowserURL(),
		BoltURL:      result.Instance.BoltURL(),
		Username:     result.Instance.Username,
		Password:     result.Instance.Password,
		Status:       result.Instance.Status.String(),
		OntologyPath: result.Instance.OntologyPath,
		DataPath:     result.Instance.DataPath,
		Scripts:      scripts,
		Ingest:       result.Report,
		ExportedAt:   time.Now().UTC(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(o.cfg.Core.ResultsDir, result.Instance.ID+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
