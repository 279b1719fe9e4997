package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/config"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/database"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/docker"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/graph"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// fakeEngine scripts the container runtime for orchestrator tests.
type fakeEngine struct {
	availableErr error
	imageErr     error
	waitErr      error
	startErr     error
	stopErr      error

	createErrs   []error // consumed one per CreateAndStart call
	createCalls  int
	startCalls   int
	stopCalls    int
	removeCalls  []string
	removedData  []bool
	runningByID  map[string]bool
	lastCreateID string
}

func (f *fakeEngine) CheckAvailable(ctx context.Context) error { return f.availableErr }
func (f *fakeEngine) EnsureImage(ctx context.Context) error    { return f.imageErr }

func (f *fakeEngine) CreateAndStart(ctx context.Context, inst *types.Instance) (string, error) {
	f.createCalls++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return "", err
		}
	}
	f.lastCreateID = fmt.Sprintf("container-%s", inst.ID)
	return f.lastCreateID, nil
}

func (f *fakeEngine) Start(ctx context.Context, inst *types.Instance) error {
	f.startCalls++
	return f.startErr
}

func (f *fakeEngine) Stop(ctx context.Context, inst *types.Instance) error {
	f.stopCalls++
	return f.stopErr
}

func (f *fakeEngine) Remove(ctx context.Context, inst *types.Instance, removeData bool) error {
	f.removeCalls = append(f.removeCalls, inst.ID)
	f.removedData = append(f.removedData, removeData)
	return nil
}

func (f *fakeEngine) Running(ctx context.Context, inst *types.Instance) (bool, error) {
	return f.runningByID[inst.ID], nil
}

func (f *fakeEngine) WaitReady(ctx context.Context, inst *types.Instance, probe docker.ReadinessProbe, timeout time.Duration, intervals []time.Duration) error {
	return f.waitErr
}

func (f *fakeEngine) Platform(ctx context.Context) docker.PlatformInfo {
	return docker.PlatformInfo{OS: "linux", Arch: "amd64", Available: f.availableErr == nil}
}

// happyWriteFunc answers entity and relationship batches as fully applied.
func happyWriteFunc(cypher string, params map[string]any) (graph.QueryResult, error) {
	rows, _ := params["rows"].([]map[string]any)
	var res graph.QueryResult
	switch {
	case strings.Contains(cypher, "OPTIONAL MATCH"):
		for _, row := range rows {
			res.Records = append(res.Records, map[string]any{
				"src": row["src"], "dst": row["dst"], "src_ok": true, "dst_ok": true,
			})
		}
		res.Summary.RelationshipsCreated = len(rows)
	case strings.Contains(cypher, "MERGE (n:"):
		res.Summary.NodesCreated = len(rows)
	case strings.HasPrefix(cypher, "CREATE CONSTRAINT"):
		res.Summary.ConstraintsAdded = 1
	}
	return res, nil
}

type testEnv struct {
	orch   *Orchestrator
	engine *fakeEngine
	client *graph.MockClient
	cfg    *config.Config
}

func setupOrchestrator(t *testing.T, engine *fakeEngine) *testEnv {
	t.Helper()

	base := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Core.HomeDir = base
	cfg.Core.ScriptsDir = filepath.Join(base, "connection_scripts")
	cfg.Core.ResultsDir = filepath.Join(base, "results")
	cfg.Database.Path = filepath.Join(base, "kgbuilder.db")
	cfg.Readiness.Timeout = time.Second
	cfg.Readiness.Intervals = []time.Duration{time.Millisecond}

	db, err := database.Open(cfg.Database.Path)
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })

	client := graph.NewMockClient()
	client.WriteFunc = happyWriteFunc

	logger := slog.New(slog.DiscardHandler)
	orch := New(cfg, db, engine, logger,
		WithClientFactory(func(ctx context.Context, inst *types.Instance) (graph.Client, error) {
			return client, nil
		}))

	return &testEnv{orch: orch, engine: engine, client: client, cfg: cfg}
}

func writeInputs(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	ontologyPath := filepath.Join(dir, "ontology.yaml")
	require.NoError(t, os.WriteFile(ontologyPath, []byte(`
entities:
  - name: Respondent
    key: respondent_id
    properties:
      age: age
  - name: Question
    key: question_id
relationships:
  - name: ANSWERED
    source: Respondent
    target: Question
    source_column: respondent_id
    target_column: question_id
    properties:
      answer: answer
`), 0o644))

	dataPath := filepath.Join(dir, "survey.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(
		"respondent_id,age,question_id,answer\nr1,34,q1,blue\nr2,51,q1,green\n"), 0o644))

	return ontologyPath, dataPath
}

func TestCreateHappyPath(t *testing.T) {
	env := setupOrchestrator(t, &fakeEngine{})
	ontologyPath, dataPath := writeInputs(t)
	ctx := context.Background()

	result, err := env.orch.Create(ctx, CreateRequest{
		Name:         "Town Survey",
		OntologyPath: ontologyPath,
		DataPath:     dataPath,
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusReady, result.Instance.Status)
	assert.Equal(t, 7474, result.Instance.HTTPPort)
	assert.Equal(t, 7687, result.Instance.BoltPort)
	assert.GreaterOrEqual(t, len(result.Instance.Password), 12)
	assert.Equal(t, types.DefaultUsername, result.Instance.Username)

	assert.Equal(t, 2, result.Report.NodesByType["Respondent"])
	assert.Equal(t, 2, result.Report.RelationshipsByType["ANSWERED"])

	require.Len(t, result.ScriptPaths, 3)
	for _, path := range result.ScriptPaths {
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}

	require.NotEmpty(t, result.ResultPath)
	data, err := os.ReadFile(result.ResultPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), result.Instance.ID)

	stored, err := env.orch.Get(ctx, result.Instance.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusReady, stored.Status)
	assert.Equal(t, "container-"+result.Instance.ID, stored.ContainerID)
}

func TestCreateValidatesInputsBeforeProvisioning(t *testing.T) {
	engine := &fakeEngine{}
	env := setupOrchestrator(t, engine)
	_, dataPath := writeInputs(t)

	badOntology := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badOntology, []byte("entities: []\n"), 0o644))

	_, err := env.orch.Create(context.Background(), CreateRequest{
		Name: "x", OntologyPath: badOntology, DataPath: dataPath,
	})
	require.Error(t, err)
	assert.Equal(t, types.ONTOLOGY_INVALID, types.CodeOf(err))
	assert.Zero(t, engine.createCalls)

	views, err := env.orch.List(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestCreateRuntimeUnavailable(t *testing.T) {
	engine := &fakeEngine{availableErr: types.NewError(types.RUNTIME_UNAVAILABLE, "daemon down")}
	env := setupOrchestrator(t, engine)
	ontologyPath, dataPath := writeInputs(t)

	_, err := env.orch.Create(context.Background(), CreateRequest{
		Name: "x", OntologyPath: ontologyPath, DataPath: dataPath,
	})
	require.Error(t, err)
	assert.Equal(t, types.RUNTIME_UNAVAILABLE, types.CodeOf(err))

	views, err := env.orch.List(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestCreateRetriesBindConflicts(t *testing.T) {
	bindErr := types.NewRetryableError(types.PORT_BIND_FAILED, "port is already allocated")
	engine := &fakeEngine{createErrs: []error{bindErr, bindErr, nil}}
	env := setupOrchestrator(t, engine)
	ontologyPath, dataPath := writeInputs(t)

	result, err := env.orch.Create(context.Background(), CreateRequest{
		Name: "retry survey", OntologyPath: ontologyPath, DataPath: dataPath,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, engine.createCalls)
	assert.Equal(t, types.StatusReady, result.Instance.Status)
	// Ports stay a lockstep pair across reallocations.
	assert.Equal(t, 7687-7474, result.Instance.BoltPort-result.Instance.HTTPPort)

	stored, err := env.orch.Get(context.Background(), result.Instance.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Instance.HTTPPort, stored.HTTPPort)
}

func TestCreateBindRetryExhaustion(t *testing.T) {
	bindErr := types.NewRetryableError(types.PORT_BIND_FAILED, "port is already allocated")
	engine := &fakeEngine{createErrs: []error{bindErr, bindErr, bindErr}}
	env := setupOrchestrator(t, engine)
	ontologyPath, dataPath := writeInputs(t)
	ctx := context.Background()

	_, err := env.orch.Create(ctx, CreateRequest{
		Name: "unlucky", OntologyPath: ontologyPath, DataPath: dataPath,
	})
	require.Error(t, err)
	assert.Equal(t, types.PORT_BIND_FAILED, types.CodeOf(err))

	views, err := env.orch.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, types.StatusFailed, views[0].Status)
}

func TestCreateReadinessTimeoutCleansUp(t *testing.T) {
	engine := &fakeEngine{waitErr: types.NewError(types.INSTANCE_NOT_READY, "not ready after 1s")}
	env := setupOrchestrator(t, engine)
	ontologyPath, dataPath := writeInputs(t)
	ctx := context.Background()

	_, err := env.orch.Create(ctx, CreateRequest{
		Name: "slow", OntologyPath: ontologyPath, DataPath: dataPath,
	})
	require.Error(t, err)
	assert.Equal(t, types.INSTANCE_NOT_READY, types.CodeOf(err))

	views, err := env.orch.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, types.StatusFailed, views[0].Status)

	// Container was stopped and removed; data volume kept.
	assert.Equal(t, 1, engine.stopCalls)
	require.Len(t, engine.removeCalls, 1)
	assert.False(t, engine.removedData[0])

	// The failed row releases its ports: the next create gets the same pair.
	engine.waitErr = nil
	result, err := env.orch.Create(ctx, CreateRequest{
		Name: "retry", OntologyPath: ontologyPath, DataPath: dataPath,
	})
	require.NoError(t, err)
	assert.Equal(t, env.cfg.Ports.HTTPBase, result.Instance.HTTPPort)
	assert.Equal(t, env.cfg.Ports.BoltBase, result.Instance.BoltPort)
}

func TestCreateIngestFailureKeepsContainer(t *testing.T) {
	engine := &fakeEngine{}
	env := setupOrchestrator(t, engine)
	env.client.WriteFunc = func(cypher string, params map[string]any) (graph.QueryResult, error) {
		return graph.QueryResult{}, errors.New("connection reset mid-batch")
	}
	ontologyPath, dataPath := writeInputs(t)
	ctx := context.Background()

	_, err := env.orch.Create(ctx, CreateRequest{
		Name: "aborted", OntologyPath: ontologyPath, DataPath: dataPath,
	})
	require.Error(t, err)
	assert.Equal(t, types.INGEST_ABORTED, types.CodeOf(err))

	views, err := env.orch.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, types.StatusFailed, views[0].Status)
	assert.Empty(t, engine.removeCalls)
}

func TestLifecycleStopStartRemove(t *testing.T) {
	engine := &fakeEngine{}
	env := setupOrchestrator(t, engine)
	ontologyPath, dataPath := writeInputs(t)
	ctx := context.Background()

	result, err := env.orch.Create(ctx, CreateRequest{
		Name: "lifecycle", OntologyPath: ontologyPath, DataPath: dataPath,
	})
	require.NoError(t, err)
	id := result.Instance.ID

	stopped, err := env.orch.Stop(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusStopped, stopped.Status)

	started, err := env.orch.Start(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, started.Status)

	// A running instance cannot be started again.
	_, err = env.orch.Start(ctx, id)
	require.Error(t, err)
	assert.Equal(t, types.INVALID_STATUS_TRANSITION, types.CodeOf(err))

	removed, err := env.orch.Remove(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRemoved, removed.Status)
	require.NotEmpty(t, engine.removedData)
	assert.True(t, engine.removedData[len(engine.removedData)-1])

	// Removing again is a no-op.
	again, err := env.orch.Remove(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRemoved, again.Status)
}

func TestCleanupAll(t *testing.T) {
	engine := &fakeEngine{}
	env := setupOrchestrator(t, engine)
	ontologyPath, dataPath := writeInputs(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.orch.Create(ctx, CreateRequest{
			Name: fmt.Sprintf("survey %d", i), OntologyPath: ontologyPath, DataPath: dataPath,
		})
		require.NoError(t, err)
	}

	removed, err := env.orch.CleanupAll(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	views, err := env.orch.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestListAnnotatesRunningState(t *testing.T) {
	engine := &fakeEngine{runningByID: map[string]bool{}}
	env := setupOrchestrator(t, engine)
	ontologyPath, dataPath := writeInputs(t)
	ctx := context.Background()

	first, err := env.orch.Create(ctx, CreateRequest{
		Name: "alpha", OntologyPath: ontologyPath, DataPath: dataPath,
	})
	require.NoError(t, err)
	second, err := env.orch.Create(ctx, CreateRequest{
		Name: "beta", OntologyPath: ontologyPath, DataPath: dataPath,
	})
	require.NoError(t, err)

	engine.runningByID[first.Instance.ID] = true

	views, err := env.orch.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, first.Instance.ID, views[0].ID)
	assert.True(t, views[0].ContainerRunning)
	assert.Equal(t, second.Instance.ID, views[1].ID)
	assert.False(t, views[1].ContainerRunning)
	// Consecutive creates take consecutive port pairs.
	assert.Equal(t, 7475, views[1].HTTPPort)
}

func TestPlatformReport(t *testing.T) {
	env := setupOrchestrator(t, &fakeEngine{})

	report, err := env.orch.Platform(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Available)
	assert.Equal(t, env.cfg.Database.Path, report.RegistryPath)
	assert.Equal(t, 7474, report.PortWindowHTTP)
	assert.Zero(t, report.InstanceCount)
}

func TestScriptsRegeneration(t *testing.T) {
	env := setupOrchestrator(t, &fakeEngine{})
	ontologyPath, dataPath := writeInputs(t)
	ctx := context.Background()

	result, err := env.orch.Create(ctx, CreateRequest{
		Name: "regen", OntologyPath: ontologyPath, DataPath: dataPath,
	})
	require.NoError(t, err)

	original, err := os.ReadFile(result.ScriptPaths["shell"])
	require.NoError(t, err)
	require.NoError(t, os.Remove(result.ScriptPaths["shell"]))

	paths, err := env.orch.Scripts(ctx, result.Instance.ID)
	require.NoError(t, err)

	regenerated, err := os.ReadFile(paths["shell"])
	require.NoError(t, err)
	assert.Equal(t, original, regenerated)
}
