package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/embedsave/internal/ir"
	"github.com/roach88/embedsave/internal/records"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Context  string // Canonical JSON of the inspected document, if any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Context != "" {
		fmt.Fprintf(&buf, "\nDocument:\n  %s\n", e.Context)
	}
	return buf.String()
}

// documentTree converts a document into plain maps, slices and
// json.Number so paths can be walked.
func documentTree(doc *ir.Document) (any, string, error) {
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return nil, "", err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, "", err
	}
	return tree, string(data), nil
}

// lookupPath walks a dotted path. Numeric segments index arrays.
func lookupPath(tree any, path string) (any, bool) {
	cur := tree
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// valuesEqual compares a YAML-decoded expectation with a decoded value
// through their canonical JSON, so 2 matches json.Number("2").
func valuesEqual(expected, actual any) bool {
	e, err := ir.MarshalCanonical(expected)
	if err != nil {
		return false
	}
	a, err := ir.MarshalCanonical(actual)
	if err != nil {
		return false
	}
	return bytes.Equal(e, a)
}

func formatValue(v any) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// assertDocument evaluates the document_* assertions.
func assertDocument(result *Result, a Assertion) error {
	which := a.Document
	if which == "" {
		which = DocumentRequest
	}
	doc := result.Request
	if which == DocumentResponse {
		doc = result.Response
	}
	if doc == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("a %s document", which),
			Actual:   "none",
		}
	}

	tree, raw, err := documentTree(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Type, err)
	}
	got, found := lookupPath(tree, a.Path)

	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Context: raw}
	}

	switch a.Type {
	case AssertDocumentHas:
		if !found {
			return fail(fmt.Sprintf("%s present", a.Path), "missing")
		}
		if a.Value != nil && !valuesEqual(a.Value, got) {
			return fail(fmt.Sprintf("%s = %s", a.Path, formatValue(a.Value)), formatValue(got))
		}
	case AssertDocumentLacks:
		if found {
			return fail(fmt.Sprintf("%s absent", a.Path), formatValue(got))
		}
	case AssertDocumentEquals:
		if !found {
			return fail(fmt.Sprintf("%s = %s", a.Path, formatValue(a.Value)), "missing")
		}
		if !valuesEqual(a.Value, got) {
			return fail(fmt.Sprintf("%s = %s", a.Path, formatValue(a.Value)), formatValue(got))
		}
	case AssertDocumentCount:
		n := -1
		switch v := got.(type) {
		case []any:
			n = len(v)
		case map[string]any:
			n = len(v)
		}
		if !found || n != *a.Count {
			return fail(fmt.Sprintf("%s has %d entries", a.Path, *a.Count), fmt.Sprintf("%d (found=%t)", n, found))
		}
	}
	return nil
}

// assertRecord checks identity, lifecycle and attributes of a record.
func assertRecord(result *Result, a Assertion) error {
	rec := result.Records[a.Ref]
	if rec == nil {
		return fmt.Errorf("record: unknown ref %q", a.Ref)
	}

	for _, key := range sortedKeys(a.Expect) {
		want := a.Expect[key]

		var (
			got   any
			found = true
		)
		switch key {
		case "id":
			got = rec.ID()
		case "state":
			got = string(rec.State())
		case "token":
			got = rec.Token()
		default:
			got, found = rec.Attr(key)
		}

		if !found {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("%s.%s = %s", a.Ref, key, formatValue(want)),
				Actual:   "attribute not set",
			}
		}
		if !valuesEqual(want, got) {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("%s.%s = %s", a.Ref, key, formatValue(want)),
				Actual:   formatValue(got),
			}
		}
	}
	return nil
}

// assertRecordCount checks how many records of a model the store holds.
func assertRecordCount(st *records.Store, a Assertion) error {
	got := len(st.PeekAll(a.Model))
	if got != *a.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d %s records", *a.Count, a.Model),
			Actual:   strconv.Itoa(got),
		}
	}
	return nil
}

func assertReconciliationCount(result *Result, a Assertion) error {
	got := len(result.Reconciliations)
	if got != *a.Count {
		return &AssertionError{
			Type:     AssertReconciliationCount,
			Expected: fmt.Sprintf("%d reconciliations", *a.Count),
			Actual:   strconv.Itoa(got),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertDocumentHas, AssertDocumentLacks, AssertDocumentEquals, AssertDocumentCount:
			err = assertDocument(result, assertion)
		case AssertRecord:
			err = assertRecord(result, assertion)
		case AssertRecordCount:
			if result.Store == nil {
				err = fmt.Errorf("assertion[%d]: record_count requires a record store", i)
			} else {
				err = assertRecordCount(result.Store, assertion)
			}
		case AssertReconciliationCount:
			err = assertReconciliationCount(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
