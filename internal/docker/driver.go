package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	containertypes "github.com/docker/docker/api/types/container"
	imagetypes "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/config"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

const (
	containerHTTPPort = "7474/tcp"
	containerBoltPort = "7687/tcp"
	dataMountPath     = "/data"
)

// ReadinessProbe reports whether the graph server behind an instance
// answers queries. Injected so tests and the orchestrator can supply a
// real bolt ping without this package importing the graph client.
type ReadinessProbe func(ctx context.Context, inst *types.Instance) error

// PlatformInfo describes the container runtime environment.
type PlatformInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Available     bool   `json:"runtime_available"`
	ServerVersion string `json:"server_version,omitempty"`
	APIVersion    string `json:"api_version,omitempty"`
}

// Driver manages Neo4j instance containers through the Docker engine.
type Driver struct {
	cli    client.APIClient
	cfg    config.DockerConfig
	logger *slog.Logger
}

// NewDriver creates a driver from the environment's Docker configuration.
func NewDriver(cfg config.DockerConfig, logger *slog.Logger) (*Driver, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, types.WrapError(types.RUNTIME_UNAVAILABLE, "failed to create docker client", err)
	}
	return &Driver{cli: cli, cfg: cfg, logger: logger}, nil
}

// NewDriverWithClient creates a driver over an existing API client, for tests.
func NewDriverWithClient(cli client.APIClient, cfg config.DockerConfig, logger *slog.Logger) *Driver {
	return &Driver{cli: cli, cfg: cfg, logger: logger}
}

// Close releases the underlying client.
func (d *Driver) Close() error {
	return d.cli.Close()
}

// CheckAvailable pings the engine with a short timeout.
func (d *Driver) CheckAvailable(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := d.cli.Ping(pingCtx); err != nil {
		return types.WrapError(types.RUNTIME_UNAVAILABLE, "docker daemon not reachable", err)
	}
	return nil
}

// Platform reports host and engine details for --platform-info.
func (d *Driver) Platform(ctx context.Context) PlatformInfo {
	info := PlatformInfo{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if err := d.CheckAvailable(ctx); err != nil {
		return info
	}
	info.Available = true

	if version, err := d.cli.ServerVersion(ctx); err == nil {
		info.ServerVersion = version.Version
		info.APIVersion = version.APIVersion
	}
	return info
}

// EnsureImage pulls the configured image if it is not present locally.
func (d *Driver) EnsureImage(ctx context.Context) error {
	if _, err := d.cli.ImageInspect(ctx, d.cfg.Image); err == nil {
		return nil
	}

	d.logger.Info("pulling image", "image", d.cfg.Image)

	pullCtx, cancel := context.WithTimeout(ctx, d.cfg.PullTimeout)
	defer cancel()

	rc, err := d.cli.ImagePull(pullCtx, d.cfg.Image, imagetypes.PullOptions{})
	if err != nil {
		return types.WrapError(types.IMAGE_PULL_FAILED, "failed to pull "+d.cfg.Image, err)
	}
	defer rc.Close()

	// The pull completes only once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return types.WrapError(types.IMAGE_PULL_FAILED, "image pull interrupted", err)
	}
	return nil
}

// CreateAndStart creates and starts the instance container. A host port
// conflict surfaces as a retryable PORT_BIND_FAILED so the caller can
// re-allocate and try again.
func (d *Driver) CreateAndStart(ctx context.Context, inst *types.Instance) (string, error) {
	containerCfg := &containertypes.Config{
		Image: d.cfg.Image,
		Env: []string{
			fmt.Sprintf("NEO4J_AUTH=%s/%s", inst.Username, inst.Password),
			"NEO4J_dbms_memory_heap_initial__size=" + d.cfg.HeapInitial,
			"NEO4J_dbms_memory_heap_max__size=" + d.cfg.HeapMax,
			"NEO4J_dbms_memory_pagecache_size=" + d.cfg.PageCache,
		},
		ExposedPorts: nat.PortSet{
			containerHTTPPort: struct{}{},
			containerBoltPort: struct{}{},
		},
	}

	hostCfg := &containertypes.HostConfig{
		PortBindings: nat.PortMap{
			containerHTTPPort: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: fmt.Sprint(inst.HTTPPort)}},
			containerBoltPort: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: fmt.Sprint(inst.BoltPort)}},
		},
		RestartPolicy: containertypes.RestartPolicy{
			Name: containertypes.RestartPolicyMode(d.cfg.RestartPolicy),
		},
		Resources: containertypes.Resources{
			Memory: d.cfg.MemoryLimitMB << 20,
		},
		Mounts: []mount.Mount{
			{Type: mount.TypeVolume, Source: inst.VolumeName, Target: dataMountPath},
		},
	}

	created, err := d.cli.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, inst.ContainerName)
	if err != nil {
		if isPortBindError(err) {
			return "", types.WrapRetryableError(types.PORT_BIND_FAILED,
				fmt.Sprintf("ports %d/%d taken at create", inst.HTTPPort, inst.BoltPort), err)
		}
		return "", types.WrapError(types.CONTAINER_FAILED, "failed to create container "+inst.ContainerName, err)
	}

	if err := d.cli.ContainerStart(ctx, created.ID, containertypes.StartOptions{}); err != nil {
		// Remove the half-created container before reporting; a bind
		// conflict here means another process won the ports after probe.
		d.removeQuietly(ctx, created.ID)
		if isPortBindError(err) {
			return "", types.WrapRetryableError(types.PORT_BIND_FAILED,
				fmt.Sprintf("ports %d/%d taken at start", inst.HTTPPort, inst.BoltPort), err)
		}
		return "", types.WrapError(types.CONTAINER_FAILED, "failed to start container "+inst.ContainerName, err)
	}

	d.logger.Info("container started",
		"container", inst.ContainerName, "id", created.ID[:12],
		"http", inst.HTTPPort, "bolt", inst.BoltPort)
	return created.ID, nil
}

// Start starts a previously stopped instance container.
func (d *Driver) Start(ctx context.Context, inst *types.Instance) error {
	if err := d.cli.ContainerStart(ctx, inst.ContainerName, containertypes.StartOptions{}); err != nil {
		if isPortBindError(err) {
			return types.WrapRetryableError(types.PORT_BIND_FAILED,
				fmt.Sprintf("ports %d/%d taken", inst.HTTPPort, inst.BoltPort), err)
		}
		return types.WrapError(types.CONTAINER_FAILED, "failed to start container "+inst.ContainerName, err)
	}
	return nil
}

// Stop stops the instance container.
func (d *Driver) Stop(ctx context.Context, inst *types.Instance) error {
	timeout := 30
	if err := d.cli.ContainerStop(ctx, inst.ContainerName, containertypes.StopOptions{Timeout: &timeout}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return types.WrapError(types.CONTAINER_FAILED, "failed to stop container "+inst.ContainerName, err)
	}
	return nil
}

// Remove removes the instance container, and its data volume when
// removeData is set.
func (d *Driver) Remove(ctx context.Context, inst *types.Instance, removeData bool) error {
	err := d.cli.ContainerRemove(ctx, inst.ContainerName, containertypes.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return types.WrapError(types.CONTAINER_FAILED, "failed to remove container "+inst.ContainerName, err)
	}

	if removeData && inst.VolumeName != "" {
		if err := d.cli.VolumeRemove(ctx, inst.VolumeName, true); err != nil && !client.IsErrNotFound(err) {
			return types.WrapError(types.CONTAINER_FAILED, "failed to remove volume "+inst.VolumeName, err)
		}
	}
	return nil
}

// Running reports whether the instance container is currently running.
func (d *Driver) Running(ctx context.Context, inst *types.Instance) (bool, error) {
	info, err := d.cli.ContainerInspect(ctx, inst.ContainerName)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, types.WrapError(types.CONTAINER_FAILED, "failed to inspect container "+inst.ContainerName, err)
	}
	return info.State != nil && info.State.Running, nil
}

// WaitReady polls the injected probe until the server answers or the
// timeout elapses. Poll intervals grow through the configured steps, the
// last one repeating.
func (d *Driver) WaitReady(ctx context.Context, inst *types.Instance, probe ReadinessProbe, timeout time.Duration, intervals []time.Duration) error {
	if len(intervals) == 0 {
		intervals = []time.Duration{5 * time.Second}
	}

	deadline := time.Now().Add(timeout)
	attempt := 0

	for {
		if err := probe(ctx, inst); err == nil {
			d.logger.Info("instance ready", "instance", inst.ID, "attempts", attempt+1)
			return nil
		} else {
			d.logger.Debug("instance not ready yet", "instance", inst.ID, "attempt", attempt+1, "error", err)
		}

		interval := intervals[min(attempt, len(intervals)-1)]
		attempt++

		if time.Now().Add(interval).After(deadline) {
			return types.NewError(types.INSTANCE_NOT_READY,
				fmt.Sprintf("instance %s not ready after %s", inst.ID, timeout))
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return types.WrapError(types.INSTANCE_NOT_READY, "readiness wait cancelled", ctx.Err())
		}
	}
}

func (d *Driver) removeQuietly(ctx context.Context, id string) {
	if err := d.cli.ContainerRemove(ctx, id, containertypes.RemoveOptions{Force: true}); err != nil {
		d.logger.Warn("failed to remove container after start failure", "id", id, "error", err)
	}
}

// isPortBindError recognizes the engine's host port conflict messages.
func isPortBindError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "port is already allocated") ||
		strings.Contains(msg, "address already in use") ||
		strings.Contains(msg, "bind for")
}
