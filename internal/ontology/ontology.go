package ontology

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// EntityType declares one node label sourced from dataset columns.
type EntityType struct {
	// Name is the node label, e.g. "Respondent".
	Name string `yaml:"name"`

	// Key is the dataset column holding the unique key for this type.
	Key string `yaml:"key"`

	// Properties maps property names to dataset columns.
	Properties map[string]string `yaml:"properties"`
}

// RelationshipType declares one relationship type joining two entity types
// through dataset columns.
type RelationshipType struct {
	// Name is the relationship type, e.g. "ANSWERED".
	Name string `yaml:"name"`

	// Source and Target name declared entity types.
	Source string `yaml:"source"`
	Target string `yaml:"target"`

	// SourceColumn and TargetColumn are the dataset columns whose values
	// join to the key of the source and target entity type.
	SourceColumn string `yaml:"source_column"`
	TargetColumn string `yaml:"target_column"`

	// Properties maps relationship property names to dataset columns.
	Properties map[string]string `yaml:"properties"`
}

// Spec is a declarative ontology: which entity types and relationship
// types to build from a tabular survey dataset.
type Spec struct {
	Entities      []EntityType       `yaml:"entities"`
	Relationships []RelationshipType `yaml:"relationships"`
}

// identifierPattern restricts labels and relationship types to what can be
// spliced into Cypher without quoting.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load reads and validates an ontology document from a YAML file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.ONTOLOGY_INVALID, "failed to read ontology file", err)
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, types.WrapError(types.ONTOLOGY_INVALID, "failed to parse ontology file", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the structural invariants of the ontology itself.
// Column references against a concrete dataset are checked separately
// with ValidateColumns.
func (s *Spec) Validate() error {
	if len(s.Entities) == 0 {
		return types.NewError(types.ONTOLOGY_INVALID, "ontology declares no entity types")
	}

	entityNames := make(map[string]bool, len(s.Entities))
	for i, e := range s.Entities {
		if e.Name == "" {
			return types.NewError(types.ONTOLOGY_INVALID, fmt.Sprintf("entity %d has no name", i))
		}
		if !identifierPattern.MatchString(e.Name) {
			return types.NewError(types.ONTOLOGY_INVALID, fmt.Sprintf("entity name %q is not a valid label", e.Name))
		}
		if entityNames[e.Name] {
			return types.NewError(types.ONTOLOGY_INVALID, fmt.Sprintf("duplicate entity type %q", e.Name))
		}
		entityNames[e.Name] = true

		if e.Key == "" {
			return types.NewError(types.ONTOLOGY_INVALID, fmt.Sprintf("entity %q has no key column", e.Name))
		}
		for prop := range e.Properties {
			if !identifierPattern.MatchString(prop) {
				return types.NewError(types.ONTOLOGY_INVALID,
					fmt.Sprintf("entity %q property %q is not a valid property name", e.Name, prop))
			}
		}
	}

	relNames := make(map[string]bool, len(s.Relationships))
	for i, r := range s.Relationships {
		if r.Name == "" {
			return types.NewError(types.ONTOLOGY_INVALID, fmt.Sprintf("relationship %d has no name", i))
		}
		if !identifierPattern.MatchString(r.Name) {
			return types.NewError(types.ONTOLOGY_INVALID,
				fmt.Sprintf("relationship name %q is not a valid type", r.Name))
		}
		if relNames[r.Name] {
			return types.NewError(types.ONTOLOGY_INVALID, fmt.Sprintf("duplicate relationship type %q", r.Name))
		}
		relNames[r.Name] = true

		if !entityNames[r.Source] {
			return types.NewError(types.ONTOLOGY_INVALID,
				fmt.Sprintf("relationship %q references undeclared source entity %q", r.Name, r.Source))
		}
		if !entityNames[r.Target] {
			return types.NewError(types.ONTOLOGY_INVALID,
				fmt.Sprintf("relationship %q references undeclared target entity %q", r.Name, r.Target))
		}
		if r.SourceColumn == "" || r.TargetColumn == "" {
			return types.NewError(types.ONTOLOGY_INVALID,
				fmt.Sprintf("relationship %q must declare source_column and target_column", r.Name))
		}
		for prop := range r.Properties {
			if !identifierPattern.MatchString(prop) {
				return types.NewError(types.ONTOLOGY_INVALID,
					fmt.Sprintf("relationship %q property %q is not a valid property name", r.Name, prop))
			}
		}
	}

	return nil
}

// ValidateColumns checks that every dataset column the ontology references
// is present in the header.
func (s *Spec) ValidateColumns(header []string) error {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}

	var missing []string
	note := func(owner, col string) {
		if col != "" && !present[col] {
			missing = append(missing, fmt.Sprintf("%s: %s", owner, col))
		}
	}

	for _, e := range s.Entities {
		note("entity "+e.Name, e.Key)
		for _, col := range e.Properties {
			note("entity "+e.Name, col)
		}
	}
	for _, r := range s.Relationships {
		note("relationship "+r.Name, r.SourceColumn)
		note("relationship "+r.Name, r.TargetColumn)
		for _, col := range r.Properties {
			note("relationship "+r.Name, col)
		}
	}

	if len(missing) > 0 {
		return types.NewError(types.ONTOLOGY_INVALID,
			"ontology references columns missing from dataset: "+strings.Join(missing, ", "))
	}
	return nil
}

// Entity returns the declared entity type by name.
func (s *Spec) Entity(name string) (*EntityType, bool) {
	for i := range s.Entities {
		if s.Entities[i].Name == name {
			return &s.Entities[i], true
		}
	}
	return nil, false
}
