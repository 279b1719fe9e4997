package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/graph"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/ontology"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// Pipeline loads a survey dataset into a graph instance according to a
// declared ontology. Entities are fully committed before relationships
// are attempted, so every join either resolves or is reported as a skip.
type Pipeline struct {
	client    graph.Client
	batchSize int
	logger    *slog.Logger
}

// NewPipeline creates an ingestion pipeline over the given graph client.
func NewPipeline(client graph.Client, batchSize int, logger *slog.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Pipeline{
		client:    client,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run ingests the dataset. Each batch commits independently; on a mid-run
// failure the committed batches stand and the error carries INGEST_ABORTED.
func (p *Pipeline) Run(ctx context.Context, spec *ontology.Spec, ds *Dataset) (*Report, error) {
	if err := spec.ValidateColumns(ds.Header); err != nil {
		return nil, err
	}

	report := &Report{
		NodesByType:         make(map[string]int),
		NodesUpdatedByType:  make(map[string]int),
		RelationshipsByType: make(map[string]int),
		RowsProcessed:       len(ds.Rows),
	}

	if err := p.createConstraints(ctx, spec, report); err != nil {
		return report, err
	}

	for _, entity := range spec.Entities {
		if err := p.ingestEntities(ctx, entity, ds, report); err != nil {
			return report, err
		}
	}

	for _, rel := range spec.Relationships {
		if err := p.ingestRelationships(ctx, spec, rel, ds, report); err != nil {
			return report, err
		}
	}

	p.logger.Info("ingestion complete",
		"nodes", report.NodesCreated(),
		"updated", report.NodesUpdated(),
		"relationships", report.RelationshipsCreated(),
		"duplicates", report.DuplicateKeys,
		"skips", len(report.Skips))
	return report, nil
}

// createConstraints creates one unique-key constraint per entity type.
func (p *Pipeline) createConstraints(ctx context.Context, spec *ontology.Spec, report *Report) error {
	for _, entity := range spec.Entities {
		cypher := fmt.Sprintf(
			"CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
			entity.Name, quoteProp(entity.Key))

		result, err := p.client.Write(ctx, cypher, nil)
		if err != nil {
			return types.WrapError(types.INGEST_ABORTED,
				"failed to create constraint for "+entity.Name, err)
		}
		report.ConstraintsAdded += result.Summary.ConstraintsAdded
	}
	return nil
}

// ingestEntities runs the entity pass for one entity type.
func (p *Pipeline) ingestEntities(ctx context.Context, entity ontology.EntityType, ds *Dataset, report *Report) error {
	cypher := fmt.Sprintf(
		"UNWIND $rows AS row MERGE (n:%s {%s: row.key}) SET n += row.props",
		entity.Name, quoteProp(entity.Key))

	batch := make([]map[string]any, 0, p.batchSize)
	batchIndex := make(map[any]int, p.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		result, err := p.client.Write(ctx, cypher, map[string]any{"rows": batch})
		if err != nil {
			return types.WrapError(types.INGEST_ABORTED,
				"entity batch failed for "+entity.Name, err)
		}
		report.NodesByType[entity.Name] += result.Summary.NodesCreated
		// Every row in the batch has a distinct key, so rows the MERGE did
		// not create matched an existing node and updated it.
		if updated := len(batch) - result.Summary.NodesCreated; updated > 0 {
			report.NodesUpdatedByType[entity.Name] += updated
		}
		batch = batch[:0]
		batchIndex = make(map[any]int, p.batchSize)
		return nil
	}

	for _, row := range ds.Rows {
		key := convertValue(row[entity.Key])
		if key == nil {
			p.logger.Warn("row has empty key, node skipped", "entity", entity.Name)
			continue
		}

		item := map[string]any{
			"key":   key,
			"props": convertProps(row, entity.Properties),
		}

		// Last occurrence of a key inside a batch wins.
		if idx, ok := batchIndex[key]; ok {
			batch[idx] = item
			report.DuplicateKeys++
			p.logger.Warn("duplicate entity key, keeping later row",
				"entity", entity.Name, "key", key)
			continue
		}

		batchIndex[key] = len(batch)
		batch = append(batch, item)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

// ingestRelationships runs the relationship pass for one relationship type.
// Each row is matched against already committed entities; unresolved joins
// are recorded as skips and never abort the run.
func (p *Pipeline) ingestRelationships(ctx context.Context, spec *ontology.Spec, rel ontology.RelationshipType, ds *Dataset, report *Report) error {
	source, ok := spec.Entity(rel.Source)
	if !ok {
		return types.NewError(types.ONTOLOGY_INVALID,
			fmt.Sprintf("relationship %q references undeclared source entity %q", rel.Name, rel.Source))
	}
	target, ok := spec.Entity(rel.Target)
	if !ok {
		return types.NewError(types.ONTOLOGY_INVALID,
			fmt.Sprintf("relationship %q references undeclared target entity %q", rel.Name, rel.Target))
	}

	cypher := fmt.Sprintf(`UNWIND $rows AS row
OPTIONAL MATCH (a:%s {%s: row.src})
OPTIONAL MATCH (b:%s {%s: row.dst})
FOREACH (_ IN CASE WHEN a IS NOT NULL AND b IS NOT NULL THEN [1] ELSE [] END |
  MERGE (a)-[r:%s]->(b)
  SET r += row.props
)
RETURN row.src AS src, row.dst AS dst, a IS NOT NULL AS src_ok, b IS NOT NULL AS dst_ok`,
		rel.Source, quoteProp(source.Key),
		rel.Target, quoteProp(target.Key),
		rel.Name)

	batch := make([]map[string]any, 0, p.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		result, err := p.client.Write(ctx, cypher, map[string]any{"rows": batch})
		if err != nil {
			return types.WrapError(types.INGEST_ABORTED,
				"relationship batch failed for "+rel.Name, err)
		}
		report.RelationshipsByType[rel.Name] += result.Summary.RelationshipsCreated

		for _, record := range result.Records {
			srcOK, _ := record["src_ok"].(bool)
			dstOK, _ := record["dst_ok"].(bool)
			if srcOK && dstOK {
				continue
			}
			report.Skips = append(report.Skips, SkipRecord{
				Relationship: rel.Name,
				SourceKey:    fmt.Sprint(record["src"]),
				TargetKey:    fmt.Sprint(record["dst"]),
				Reason:       skipReason(rel, srcOK, dstOK),
			})
		}

		batch = batch[:0]
		return nil
	}

	for _, row := range ds.Rows {
		src := convertValue(row[rel.SourceColumn])
		dst := convertValue(row[rel.TargetColumn])
		if src == nil || dst == nil {
			report.Skips = append(report.Skips, SkipRecord{
				Relationship: rel.Name,
				SourceKey:    fmt.Sprint(src),
				TargetKey:    fmt.Sprint(dst),
				Reason:       "row is missing a join value",
			})
			continue
		}

		batch = append(batch, map[string]any{
			"src":   src,
			"dst":   dst,
			"props": convertProps(row, rel.Properties),
		})
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

func skipReason(rel ontology.RelationshipType, srcOK, dstOK bool) string {
	var missing []string
	if !srcOK {
		missing = append(missing, rel.Source)
	}
	if !dstOK {
		missing = append(missing, rel.Target)
	}
	return "no matching " + strings.Join(missing, " or ")
}

// quoteProp backtick-quotes a property name so arbitrary column names are
// safe to splice into Cypher.
func quoteProp(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
