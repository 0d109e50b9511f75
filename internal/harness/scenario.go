package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/normstore/internal/query"
)

// Scenario defines one store scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Schema is the path to a CUE type file or package directory.
	// Relative paths are resolved against the scenario's base path.
	Schema string `yaml:"schema"`

	// Backend selects the record source: "memory" (default), "sqlite", or
	// "none" for unconfigured mappers.
	Backend string `yaml:"backend,omitempty"`

	// Seed holds raw records per entity type, loaded into the backend
	// before the first step.
	Seed map[string][]map[string]any `yaml:"seed,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step is one store operation.
type Step struct {
	Op   string `yaml:"op"`
	Type string `yaml:"type"`

	// ID addresses one entity (expunge, fetch, update, delete).
	ID any `yaml:"id,omitempty"`

	// Records are ingested by upsert and upsert_query.
	Records []map[string]any `yaml:"records,omitempty"`

	// Record holds the attributes sent by create and update.
	Record map[string]any `yaml:"record,omitempty"`

	// Options identify a query (upsert_query, expunge_query, query).
	Options map[string]any `yaml:"options,omitempty"`

	Paging *query.Paging `yaml:"paging,omitempty"`

	// State is the entity state for upsert, or the query state for
	// upsert_query.
	State string `yaml:"state,omitempty"`

	// Errors are attached to top-level records by upsert.
	Errors map[string]string `yaml:"errors,omitempty"`

	// Error is the message recorded by an upsert_query in the error state.
	Error string `yaml:"error,omitempty"`

	// Fail makes the backend reject this step's mapper call with these
	// field errors.
	Fail map[string]string `yaml:"fail,omitempty"`

	// ExpectError requires the step to fail with an error containing it.
	ExpectError string `yaml:"expect_error,omitempty"`

	// ExpectKind requires a lifecycle step to produce this outcome kind.
	ExpectKind string `yaml:"expect_kind,omitempty"`
}

// Step operations.
const (
	OpUpsert       = "upsert"
	OpUpsertQuery  = "upsert_query"
	OpExpunge      = "expunge"
	OpExpungeQuery = "expunge_query"
	OpFetch        = "fetch"
	OpQuery        = "query"
	OpCreate       = "create"
	OpUpdate       = "update"
	OpDelete       = "delete"
)

// Backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// Assertion checks the final snapshot.
type Assertion struct {
	Type string `yaml:"type"`

	// Key is an entity key such as "Post|1" (entity, absent).
	Key string `yaml:"key,omitempty"`

	// EntityType and Options identify a query (query, query_absent), or
	// restrict a count to one type.
	EntityType string         `yaml:"entity_type,omitempty"`
	Options    map[string]any `yaml:"options,omitempty"`

	// State is the expected entity or query state.
	State string `yaml:"state,omitempty"`

	// Attributes is a subset match on entity attributes.
	Attributes map[string]any `yaml:"attributes,omitempty"`

	// Relations maps relation names to an entity key, null, or a list of
	// keys. Only named relations are compared.
	Relations map[string]any `yaml:"relations,omitempty"`

	// Errors is compared exactly when present; {} means no errors.
	Errors map[string]string `yaml:"errors,omitempty"`

	// Rows lists query rows: an entity key, null, or false for a hole.
	Rows []any `yaml:"rows,omitempty"`

	// Error is the expected query error message.
	Error string `yaml:"error,omitempty"`

	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertEntity      = "entity"
	AssertAbsent      = "absent"
	AssertQuery       = "query"
	AssertQueryAbsent = "query_absent"
	AssertCount       = "count"
)

// LoadScenario reads and parses a scenario YAML file. The schema path is
// resolved against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to basePath.
// Unknown fields are rejected so typos surface as load errors.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	switch s.Backend {
	case "", BackendMemory, BackendSQLite, BackendNone:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if s.Backend == BackendNone && len(s.Seed) > 0 {
		return fmt.Errorf("seed requires a backend")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must have at least one step")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st Step) error {
	if st.Type == "" {
		return fmt.Errorf("steps[%d]: type is required", index)
	}
	switch st.Op {
	case OpUpsert:
		if len(st.Records) == 0 {
			return fmt.Errorf("steps[%d]: records are required for upsert", index)
		}
	case OpExpunge, OpFetch, OpUpdate, OpDelete:
		if st.ID == nil {
			return fmt.Errorf("steps[%d]: id is required for %s", index, st.Op)
		}
	case OpUpsertQuery, OpExpungeQuery, OpQuery, OpCreate:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	if st.Fail != nil && !isLifecycle(st.Op) {
		return fmt.Errorf("steps[%d]: fail only applies to lifecycle operations", index)
	}
	if st.ExpectKind != "" && !isLifecycle(st.Op) {
		return fmt.Errorf("steps[%d]: expect_kind only applies to lifecycle operations", index)
	}
	return nil
}

func isLifecycle(op string) bool {
	switch op {
	case OpFetch, OpQuery, OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertEntity, AssertAbsent:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for %s", index, a.Type)
		}
	case AssertQuery, AssertQueryAbsent:
		if a.EntityType == "" {
			return fmt.Errorf("assertions[%d]: entity_type is required for %s", index, a.Type)
		}
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
