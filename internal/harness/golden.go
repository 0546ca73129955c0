package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/embedsave/internal/ir"
)

// Snapshot captures what a scenario sent and which records it reconciled.
// Journal ids are left out: they are content hashes and add nothing a
// reviewer can check by eye.
type Snapshot struct {
	ScenarioName    string
	Request         *ir.Document
	Reconciliations []ir.Reconciliation
}

// toCanonicalMap converts a Snapshot to plain values for canonical JSON.
func (s *Snapshot) toCanonicalMap() map[string]any {
	recs := make([]any, len(s.Reconciliations))
	for i, r := range s.Reconciliations {
		recs[i] = map[string]any{
			"model":     r.Model,
			"record_id": r.RecordID,
			"seq":       r.Seq,
			"token":     r.Token,
		}
	}

	return map[string]any{
		"scenario_name":   s.ScenarioName,
		"request":         s.Request,
		"reconciliations": recs,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden when the serialize step asks
// for it.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if scenario.Serialize != nil && scenario.Serialize.Golden {
		if err := AssertGolden(t, scenario.Name, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// AssertGolden compares a result's snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

// SnapshotJSON returns the canonical JSON snapshot of a result, the
// bytes stored in golden files.
func SnapshotJSON(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName:    scenarioName,
		Request:         result.Request,
		Reconciliations: result.Reconciliations,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}
