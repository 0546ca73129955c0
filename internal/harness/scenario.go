package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one save round trip: a record graph, the request it
// serializes to, the server's response and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is inline CUE declaring models and serializers.
	Schema string `yaml:"schema,omitempty"`

	// Specs lists CUE files unified with Schema.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs,omitempty"`

	// Records builds the in-memory graph, in order. Relationships may
	// reference records declared later.
	Records []RecordFixture `yaml:"records"`

	// Serialize names the record to save.
	Serialize *SerializeStep `yaml:"serialize,omitempty"`

	// Response is the server's response document. String values of the
	// form "$token:<ref>" are replaced by the correlation token of the
	// referenced record.
	Response map[string]any `yaml:"response,omitempty"`

	// Push ingests the normalized response into the record store.
	Push bool `yaml:"push,omitempty"`

	// Assertions validate the request, the response and the records.
	Assertions []Assertion `yaml:"assertions"`
}

// RecordFixture declares one record of the graph.
type RecordFixture struct {
	// Ref names the record within the scenario.
	Ref string `yaml:"ref"`

	// Type is the model name.
	Type string `yaml:"type"`

	// ID loads the record as already saved. Empty creates a new record.
	ID string `yaml:"id,omitempty"`

	Attributes map[string]any `yaml:"attributes,omitempty"`

	// BelongsTo maps a relationship field to a ref. An empty ref leaves
	// the link empty.
	BelongsTo map[string]string `yaml:"belongs_to,omitempty"`

	// HasMany maps a relationship field to refs, in order.
	HasMany map[string][]string `yaml:"has_many,omitempty"`

	// Unloaded lists relationship fields whose records are not loaded.
	Unloaded []string `yaml:"unloaded,omitempty"`
}

// SerializeStep configures the save request.
type SerializeStep struct {
	Root      string `yaml:"root"`
	IncludeID bool   `yaml:"include_id,omitempty"`

	// Golden compares the request and reconciliations with
	// testdata/golden/<name>.golden when run through RunWithGolden.
	Golden bool `yaml:"golden,omitempty"`
}

// Assertion validates the documents or the record store after the run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "document_has": Path exists in Document, optionally with Value
	// - "document_lacks": Path does not exist in Document
	// - "document_equals": Path holds exactly Value
	// - "document_count": Array or object at Path has Count entries
	// - "record": Record Ref matches Expect
	// - "record_count": Model has Count records in the store
	// - "reconciliation_count": Count reconciliations were journaled
	Type string `yaml:"type"`

	// Document selects "request" (default) or "response" (normalized).
	Document string `yaml:"document,omitempty"`

	// Path is a dotted path into the document; numeric segments index
	// arrays, e.g. "data.relationships.albums.data.0.id".
	Path string `yaml:"path,omitempty"`

	Value any `yaml:"value,omitempty"`

	// Ref is the record to check (used by record).
	Ref string `yaml:"ref,omitempty"`

	// Expect holds expected record fields (used by record). The keys id,
	// state and token check identity and lifecycle; any other key is an
	// attribute.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Model is the model name (used by record_count).
	Model string `yaml:"model,omitempty"`

	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertDocumentHas         = "document_has"
	AssertDocumentLacks       = "document_lacks"
	AssertDocumentEquals      = "document_equals"
	AssertDocumentCount       = "document_count"
	AssertRecord              = "record"
	AssertRecordCount         = "record_count"
	AssertReconciliationCount = "reconciliation_count"
)

// Document selectors for document assertions.
const (
	DocumentRequest  = "request"
	DocumentResponse = "response"
)

// TokenPlaceholder prefixes response strings that stand for a record's
// correlation token.
const TokenPlaceholder = "$token:"

// LoadScenario reads and parses a scenario YAML file.
// Spec paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}
	for _, specPath := range scenario.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: spec file not found: %s", specPath)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML. Spec paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and that refs
// resolve.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" && len(s.Specs) == 0 {
		return fmt.Errorf("schema or specs is required")
	}
	if len(s.Records) == 0 {
		return fmt.Errorf("records list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	refs := make(map[string]bool, len(s.Records))
	for i, r := range s.Records {
		if r.Ref == "" {
			return fmt.Errorf("records[%d]: ref is required", i)
		}
		if r.Type == "" {
			return fmt.Errorf("records[%d]: type is required", i)
		}
		if refs[r.Ref] {
			return fmt.Errorf("records[%d]: duplicate ref %q", i, r.Ref)
		}
		refs[r.Ref] = true
	}

	for i, r := range s.Records {
		for field, target := range r.BelongsTo {
			if target != "" && !refs[target] {
				return fmt.Errorf("records[%d].belongs_to.%s: unknown ref %q", i, field, target)
			}
		}
		for field, targets := range r.HasMany {
			for _, target := range targets {
				if !refs[target] {
					return fmt.Errorf("records[%d].has_many.%s: unknown ref %q", i, field, target)
				}
			}
		}
	}

	if s.Serialize != nil && !refs[s.Serialize.Root] {
		return fmt.Errorf("serialize.root: unknown ref %q", s.Serialize.Root)
	}
	if s.Response != nil && s.Serialize == nil {
		return fmt.Errorf("response requires serialize")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], refs); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, refs map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Document {
	case "", DocumentRequest, DocumentResponse:
	default:
		return fmt.Errorf("assertions[%d]: document must be %q or %q", index, DocumentRequest, DocumentResponse)
	}

	switch a.Type {
	case AssertDocumentHas, AssertDocumentLacks:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
	case AssertDocumentEquals:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for document_equals", index)
		}
	case AssertDocumentCount:
		if a.Path == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: path and count are required for document_count", index)
		}
	case AssertRecord:
		if !refs[a.Ref] {
			return fmt.Errorf("assertions[%d]: unknown ref %q", index, a.Ref)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record", index)
		}
	case AssertRecordCount:
		if a.Model == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: model and count are required for record_count", index)
		}
	case AssertReconciliationCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for reconciliation_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
