package docker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	containertypes "github.com/docker/docker/api/types/container"
	imagetypes "github.com/docker/docker/api/types/image"
	networktypes "github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/config"
	kgtypes "github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// notFoundErr satisfies the engine's not-found error contract.
type notFoundErr struct{}

func (notFoundErr) Error() string { return "no such container" }
func (notFoundErr) NotFound()     {}

// fakeAPI implements the slice of the engine API the driver touches.
// Unused methods come from the embedded interface and panic if reached.
type fakeAPI struct {
	client.APIClient

	pingErr       error
	inspectImgErr error
	pullErr       error
	pulled        bool

	createErr error
	createID  string
	startErr  error
	removed   []string
	stopErr   error

	createCfg  *containertypes.Config
	createHost *containertypes.HostConfig
	createName string
}

func (f *fakeAPI) Ping(ctx context.Context) (types.Ping, error) {
	return types.Ping{}, f.pingErr
}

func (f *fakeAPI) ImageInspect(ctx context.Context, img string, opts ...client.ImageInspectOption) (imagetypes.InspectResponse, error) {
	return imagetypes.InspectResponse{}, f.inspectImgErr
}

func (f *fakeAPI) ImagePull(ctx context.Context, ref string, opts imagetypes.PullOptions) (io.ReadCloser, error) {
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	f.pulled = true
	return io.NopCloser(strings.NewReader("{}")), nil
}

func (f *fakeAPI) ContainerCreate(ctx context.Context, cfg *containertypes.Config, host *containertypes.HostConfig, _ *networktypes.NetworkingConfig, _ *ocispec.Platform, name string) (containertypes.CreateResponse, error) {
	if f.createErr != nil {
		return containertypes.CreateResponse{}, f.createErr
	}
	f.createCfg = cfg
	f.createHost = host
	f.createName = name
	return containertypes.CreateResponse{ID: f.createID}, nil
}

func (f *fakeAPI) ContainerStart(ctx context.Context, id string, opts containertypes.StartOptions) error {
	return f.startErr
}

func (f *fakeAPI) ContainerStop(ctx context.Context, id string, opts containertypes.StopOptions) error {
	return f.stopErr
}

func (f *fakeAPI) ContainerRemove(ctx context.Context, id string, opts containertypes.RemoveOptions) error {
	f.removed = append(f.removed, id)
	return nil
}

func testDriver(f *fakeAPI) *Driver {
	return NewDriverWithClient(f, config.DefaultConfig().Docker, slog.New(slog.DiscardHandler))
}

func driverInstance() *kgtypes.Instance {
	id := "kg-town-survey-15032026-a1b2c3d4"
	return &kgtypes.Instance{
		ID:            id,
		Name:          "Town Survey",
		HTTPPort:      7474,
		BoltPort:      7687,
		Username:      "neo4j",
		Password:      "Xy7mPq2rTv9wKd3n",
		ContainerName: kgtypes.ContainerNameFor(id),
		VolumeName:    kgtypes.VolumeNameFor(id),
		Status:        kgtypes.StatusProvisioning,
	}
}

func TestCheckAvailable(t *testing.T) {
	require.NoError(t, testDriver(&fakeAPI{}).CheckAvailable(context.Background()))

	err := testDriver(&fakeAPI{pingErr: errors.New("cannot connect to the Docker daemon")}).
		CheckAvailable(context.Background())
	require.Error(t, err)
	assert.Equal(t, kgtypes.RUNTIME_UNAVAILABLE, kgtypes.CodeOf(err))
}

func TestEnsureImageSkipsPresentImage(t *testing.T) {
	f := &fakeAPI{}
	require.NoError(t, testDriver(f).EnsureImage(context.Background()))
	assert.False(t, f.pulled)
}

func TestEnsureImagePullsMissingImage(t *testing.T) {
	f := &fakeAPI{inspectImgErr: notFoundErr{}}
	require.NoError(t, testDriver(f).EnsureImage(context.Background()))
	assert.True(t, f.pulled)
}

func TestEnsureImagePullFailure(t *testing.T) {
	f := &fakeAPI{inspectImgErr: notFoundErr{}, pullErr: errors.New("manifest unknown")}
	err := testDriver(f).EnsureImage(context.Background())

	require.Error(t, err)
	assert.Equal(t, kgtypes.IMAGE_PULL_FAILED, kgtypes.CodeOf(err))
}

func TestCreateAndStartWiresContainerOptions(t *testing.T) {
	f := &fakeAPI{createID: "deadbeefdeadbeefdeadbeef"}
	inst := driverInstance()

	id, err := testDriver(f).CreateAndStart(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, "deadbeefdeadbeefdeadbeef", id)
	assert.Equal(t, inst.ContainerName, f.createName)

	assert.Contains(t, f.createCfg.Env, "NEO4J_AUTH=neo4j/Xy7mPq2rTv9wKd3n")
	assert.Contains(t, f.createCfg.Env, "NEO4J_dbms_memory_heap_max__size=2G")

	bindings := f.createHost.PortBindings["7474/tcp"]
	require.Len(t, bindings, 1)
	assert.Equal(t, "7474", bindings[0].HostPort)

	assert.Equal(t, "unless-stopped", string(f.createHost.RestartPolicy.Name))
	assert.Equal(t, int64(2048)<<20, f.createHost.Resources.Memory)

	require.Len(t, f.createHost.Mounts, 1)
	assert.Equal(t, inst.VolumeName, f.createHost.Mounts[0].Source)
	assert.Equal(t, "/data", f.createHost.Mounts[0].Target)
}

func TestCreateBindConflictIsRetryable(t *testing.T) {
	f := &fakeAPI{createErr: errors.New("driver failed programming external connectivity: Bind for 0.0.0.0:7474 failed: port is already allocated")}

	_, err := testDriver(f).CreateAndStart(context.Background(), driverInstance())
	require.Error(t, err)
	assert.Equal(t, kgtypes.PORT_BIND_FAILED, kgtypes.CodeOf(err))
	assert.True(t, kgtypes.IsRetryable(err))
}

func TestStartFailureRemovesContainer(t *testing.T) {
	f := &fakeAPI{
		createID: "deadbeefdeadbeefdeadbeef",
		startErr: errors.New("address already in use"),
	}

	_, err := testDriver(f).CreateAndStart(context.Background(), driverInstance())
	require.Error(t, err)
	assert.Equal(t, kgtypes.PORT_BIND_FAILED, kgtypes.CodeOf(err))
	assert.True(t, kgtypes.IsRetryable(err))
	assert.Equal(t, []string{"deadbeefdeadbeefdeadbeef"}, f.removed)
}

func TestStartNonBindFailure(t *testing.T) {
	f := &fakeAPI{
		createID: "deadbeefdeadbeefdeadbeef",
		startErr: errors.New("oci runtime error"),
	}

	_, err := testDriver(f).CreateAndStart(context.Background(), driverInstance())
	require.Error(t, err)
	assert.Equal(t, kgtypes.CONTAINER_FAILED, kgtypes.CodeOf(err))
	assert.False(t, kgtypes.IsRetryable(err))
}

func TestStopToleratesMissingContainer(t *testing.T) {
	f := &fakeAPI{stopErr: notFoundErr{}}
	assert.NoError(t, testDriver(f).Stop(context.Background(), driverInstance()))
}

func TestWaitReadySucceedsAfterRetries(t *testing.T) {
	attempts := 0
	probe := func(ctx context.Context, inst *kgtypes.Instance) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	}

	d := testDriver(&fakeAPI{})
	err := d.WaitReady(context.Background(), driverInstance(), probe,
		time.Second, []time.Duration{time.Millisecond, 2 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWaitReadyTimesOut(t *testing.T) {
	probe := func(ctx context.Context, inst *kgtypes.Instance) error {
		return errors.New("connection refused")
	}

	d := testDriver(&fakeAPI{})
	err := d.WaitReady(context.Background(), driverInstance(), probe,
		20*time.Millisecond, []time.Duration{5 * time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, kgtypes.INSTANCE_NOT_READY, kgtypes.CodeOf(err))
}
