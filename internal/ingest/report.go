package ingest

// SkipRecord describes one relationship row that could not be resolved
// against the already ingested entities.
type SkipRecord struct {
	Relationship string `json:"relationship"`
	SourceKey    string `json:"source_key"`
	TargetKey    string `json:"target_key"`
	Reason       string `json:"reason"`
}

// Report summarizes an ingestion run.
type Report struct {
	// NodesByType counts nodes created per entity type.
	NodesByType map[string]int `json:"nodes_by_type"`

	// NodesUpdatedByType counts nodes that already existed and were
	// refreshed by a MERGE, per entity type. A re-run over the same
	// dataset shows up here instead of in NodesByType.
	NodesUpdatedByType map[string]int `json:"nodes_updated_by_type"`

	// RelationshipsByType counts relationships created per relationship type.
	RelationshipsByType map[string]int `json:"relationships_by_type"`

	// ConstraintsAdded is the number of unique-key constraints created.
	ConstraintsAdded int `json:"constraints_added"`

	// DuplicateKeys counts rows whose entity key repeated an earlier row.
	// The later row wins.
	DuplicateKeys int `json:"duplicate_keys"`

	// Skips lists relationship rows dropped for unresolved join values.
	Skips []SkipRecord `json:"skips"`

	// RowsProcessed is the number of dataset rows read.
	RowsProcessed int `json:"rows_processed"`
}

// NodesCreated returns the total node count across entity types.
func (r *Report) NodesCreated() int {
	total := 0
	for _, n := range r.NodesByType {
		total += n
	}
	return total
}

// NodesUpdated returns the total refreshed-node count across entity types.
func (r *Report) NodesUpdated() int {
	total := 0
	for _, n := range r.NodesUpdatedByType {
		total += n
	}
	return total
}

// RelationshipsCreated returns the total relationship count across types.
func (r *Report) RelationshipsCreated() int {
	total := 0
	for _, n := range r.RelationshipsByType {
		total += n
	}
	return total
}
