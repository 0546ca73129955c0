package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoScenariosDir = "../../testdata/scenarios"

// passingScenario lists no spec files, so it compiles against the specs
// directory given on the command line.
const passingScenario = `name: passing
description: "An artist with embedded albums"
schema: |
  serializer: artist: attrs: albums: serialize: true
records:
  - ref: radiohead
    type: artist
    attributes:
      name: Radiohead
    has_many:
      albums: [kid_a]
  - ref: kid_a
    type: album
    attributes:
      name: Kid A
serialize:
  root: radiohead
  golden: true
response:
  data:
    id: "1"
    type: artists
    attributes:
      name: Radiohead
    relationships:
      albums:
        data:
          - id: "10"
            type: albums
            attributes:
              name: Kid A
              __id__: $token:kid_a
assertions:
  - type: reconciliation_count
    count: 2
  - type: record
    ref: kid_a
    expect:
      id: "10"
      state: saved
`

const failingScenario = `name: failing
description: "Expects reconciliations that a serialize-only run never makes"
schema: |
  serializer: album: attrs: artist: serialize: false
records:
  - ref: kid_a
    type: album
    attributes:
      name: Kid A
serialize:
  root: kid_a
assertions:
  - type: reconciliation_count
    count: 3
`

func writeScenarioFile(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
}

func TestTestCommand_RequiresArgs(t *testing.T) {
	_, _, err := executeCommand(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestTestCommand_MissingDirs(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	_, _, err := executeCommand(t, "test", missing, demoScenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "specs directory not found")

	_, _, err = executeCommand(t, "test", demoSpecsDir, missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommand_InvalidSpecs(t *testing.T) {
	specsDir := t.TempDir()
	writeSpec(t, specsDir, "bad.cue", "package test\n\nmodel: artists: attributes: name: string\n")

	_, _, err := executeCommand(t, "test", specsDir, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid specs")
	assert.Contains(t, err.Error(), "E101")
}

func TestTestCommand_DemoScenarios(t *testing.T) {
	out, _, err := executeCommand(t, "test", demoSpecsDir, demoScenariosDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ embedded_new_albums")
	assert.Contains(t, out, "✓ embedded_mixed_saved")
	assert.Contains(t, out, "✓ sibling_unchanged")
	assert.Contains(t, out, "Test Summary: 8 passed, 0 failed, 8 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	out, _, err := executeCommand(t, "--format", "json", "test", demoSpecsDir, demoScenariosDir, "--filter", "embedded_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)

	byName := make(map[string]ScenarioResult)
	for _, s := range resp.Data.Scenarios {
		byName[s.Name] = s
	}
	require.Contains(t, byName, "embedded_new_albums")
	require.Contains(t, byName, "embedded_mixed_saved")
	assert.Equal(t, 4, byName["embedded_new_albums"].Reconciliations)
	assert.NotEmpty(t, byName["embedded_new_albums"].ExchangeID)
}

func TestTestCommand_InvalidFilter(t *testing.T) {
	_, _, err := executeCommand(t, "test", demoSpecsDir, demoScenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, _, err := executeCommand(t, "test", demoSpecsDir, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_SpecsDirFallback(t *testing.T) {
	scenariosDir := t.TempDir()
	writeScenarioFile(t, scenariosDir, "passing.yaml", passingScenario)

	out, _, err := executeCommand(t, "test", demoSpecsDir, scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ passing")
}

func TestTestCommand_Failure(t *testing.T) {
	scenariosDir := t.TempDir()
	writeScenarioFile(t, scenariosDir, "passing.yaml", passingScenario)
	writeScenarioFile(t, scenariosDir, "failing.yaml", failingScenario)

	t.Run("text", func(t *testing.T) {
		out, _, err := executeCommand(t, "test", demoSpecsDir, scenariosDir)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "✗ failing")
		assert.Contains(t, out, "reconciliation_count")
		assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := executeCommand(t, "--format", "json", "test", demoSpecsDir, scenariosDir)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
		assert.Equal(t, "1 scenario(s) failed", resp.Error.Message)
	})
}

func TestTestCommand_BrokenScenarioFile(t *testing.T) {
	scenariosDir := t.TempDir()
	writeScenarioFile(t, scenariosDir, "broken.yaml", "name: broken\n")

	out, _, err := executeCommand(t, "test", demoSpecsDir, scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_GoldenUpdate(t *testing.T) {
	scenariosDir := t.TempDir()
	writeScenarioFile(t, scenariosDir, "passing.yaml", passingScenario)
	goldenPath := filepath.Join(scenariosDir, "golden", "passing.golden")

	_, _, err := executeCommand(t, "test", demoSpecsDir, scenariosDir, "--update")
	require.NoError(t, err)

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"passing"`)
	assert.Contains(t, string(data), `"reconciliations":[`)

	_, _, err = executeCommand(t, "test", demoSpecsDir, scenariosDir)
	require.NoError(t, err, "a fresh golden file must match")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"stale"}`), 0644))
	out, _, err := executeCommand(t, "test", demoSpecsDir, scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestTestCommand_Journal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	_, _, err := executeCommand(t, "test", demoSpecsDir, demoScenariosDir, "--db", dbPath, "--filter", "embedded_new_albums")
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "journal database should be created")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "embedded_new_albums.golden"),
		goldenFilePath(filepath.Join("scenarios", "embedded_new_albums.yaml")))
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "a.yaml", "")
	writeScenarioFile(t, dir, "b.yml", "")
	writeScenarioFile(t, dir, "notes.txt", "")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = findScenarioFiles(dir, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml")}, files)
}
