package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"query-evolver/internal/apperrors"
	"query-evolver/internal/evolution"
	"query-evolver/internal/repository"
	"query-evolver/internal/workflow"
	"query-evolver/pkg/models"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// withStore points the file store at a fresh directory and seeds it.
func withStore(t *testing.T) *repository.FileGenerationStore {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	statesDir := filepath.Join(dir, "states")
	t.Setenv("STORAGE_DIR", statesDir)

	store := repository.NewFileGenerationStore(statesDir)
	_, _, err := evolution.SeedDefault(context.Background(), store, workflow.NewRegistry())
	require.NoError(t, err)
	return store
}

func TestShowLatestJSON(t *testing.T) {
	withStore(t)

	out, err := execute(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"generation": 0`)
	assert.Contains(t, out, `"name": "Query Analysis"`)
}

func TestShowYAML(t *testing.T) {
	withStore(t)

	out, err := execute(t, "show", "0", "--format", "yaml")
	require.NoError(t, err)

	var rec models.Generation
	require.NoError(t, yaml.Unmarshal([]byte(out), &rec))
	assert.Len(t, rec.Workflow.Stages, 5)
	assert.Equal(t, "Performance Feedback", rec.Workflow.Stages[4].Name)
}

func TestShowErrors(t *testing.T) {
	withStore(t)

	_, err := execute(t, "show", "9")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = execute(t, "show", "x")
	assert.Error(t, err)

	_, err = execute(t, "show", "--format", "toml")
	assert.Error(t, err)
}

func TestClean(t *testing.T) {
	store := withStore(t)

	out, err := execute(t, "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "emptied")

	_, err = store.Latest(context.Background())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = execute(t, "clean")
	assert.NoError(t, err)
}

func TestScoreStrings(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "score", "strings", "abc", "abc")
	require.NoError(t, err)
	assert.Equal(t, "1.000000", strings.TrimSpace(out))
}

func TestScoreDatasets(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	left := filepath.Join(dir, "left.json")
	right := filepath.Join(dir, "right.json")
	require.NoError(t, os.WriteFile(left, []byte(`{"query": "MATCH (n) RETURN n.id, n.v", "rows": [{"id": 1, "v": "a"}]}`), 0o600))
	require.NoError(t, os.WriteFile(right, []byte(`{"query": "MATCH (n) RETURN n.id, n.v", "rows": [{"id": 1, "v": "a"}, {"id": 2, "v": "b"}]}`), 0o600))

	out, err := execute(t, "score", "datasets", left, right)
	require.NoError(t, err)
	assert.Equal(t, "0.500000", strings.TrimSpace(out))
}

func TestRunRequiresConfiguration(t *testing.T) {
	withStore(t)

	_, err := execute(t, "run", "-n", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph.uri")
}

func TestShowWorkflowOnly(t *testing.T) {
	withStore(t)

	out, err := execute(t, "show", "--workflow")
	require.NoError(t, err)
	wf, err := workflow.FromJSON(out, workflow.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, 5, wf.Len())
	assert.NotContains(t, out, "best_performance")

	out, err = execute(t, "show", "0", "-w", "-f", "yaml")
	require.NoError(t, err)
	wf, err = workflow.FromYAML(out, workflow.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "Query Analysis", wf.ActiveStageNames()[0])
}

func TestImportRoundTrip(t *testing.T) {
	store := withStore(t)

	exported, err := execute(t, "show", "--workflow", "--format", "yaml")
	require.NoError(t, err)
	// Deactivate the first stage before importing.
	edited := strings.Replace(exported, "is_active: true", "is_active: false", 1)
	require.NotEqual(t, exported, edited)
	path := filepath.Join(t.TempDir(), "edited.yaml")
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o600))

	out, err := execute(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "as generation 1")

	latest, err := store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Generation)
	assert.Equal(t, "import", latest.Mutation)
	assert.False(t, latest.Workflow.Stages[0].IsActive)

	jsonOut, err := execute(t, "show", "--workflow")
	require.NoError(t, err)
	jsonPath := filepath.Join(t.TempDir(), "workflow.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonOut), 0o600))
	out, err = execute(t, "import", jsonPath)
	require.NoError(t, err)
	assert.Contains(t, out, "as generation 2")
}

func TestImportRejectsBadFiles(t *testing.T) {
	withStore(t)
	dir := t.TempDir()

	_, err := execute(t, "import", filepath.Join(dir, "missing.json"))
	assert.True(t, apperrors.IsConfiguration(err))

	unknown := filepath.Join(dir, "unknown.json")
	require.NoError(t, os.WriteFile(unknown, []byte(`{"stages": [{"name": "Mystery", "category": "query_analysis", "prompt_template": "{query}", "is_active": true, "order_key": 1}]}`), 0o600))
	_, err = execute(t, "import", unknown)
	assert.ErrorContains(t, err, "no transform registered")

	garbage := filepath.Join(dir, "garbage.yml")
	require.NoError(t, os.WriteFile(garbage, []byte("stages: [\n"), 0o600))
	_, err = execute(t, "import", garbage)
	assert.True(t, apperrors.IsConfiguration(err))
}
