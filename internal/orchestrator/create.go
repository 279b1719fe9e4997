package orchestrator

import (
	"context"
	"time"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/ingest"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/ontology"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/ports"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/script"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// bindRetryLimit bounds how many times a create re-allocates ports after
// the engine reports a bind conflict.
const bindRetryLimit = 3

// CreateRequest names the inputs of a create run.
type CreateRequest struct {
	Name         string
	OntologyPath string
	DataPath     string
}

// CreateResult is everything a successful create run produced.
type CreateResult struct {
	Instance    *types.Instance        `json:"instance"`
	Report      *ingest.Report         `json:"report"`
	ScriptPaths map[script.Kind]string `json:"script_paths"`
	ResultPath  string                 `json:"-"`
}

// Create provisions a new instance end to end: validate inputs, allocate
// ports and register, start the container, wait for readiness, ingest the
// dataset, and emit connection scripts. Failures after registration mark
// the instance failed and tear the container down best-effort.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.Name == "" {
		return nil, types.NewError(types.INSTANCE_INVALID, "survey name is required")
	}

	// Validate both inputs before touching any infrastructure.
	spec, err := ontology.Load(req.OntologyPath)
	if err != nil {
		return nil, err
	}
	ds, err := ingest.LoadDataset(req.DataPath)
	if err != nil {
		return nil, err
	}
	if err := spec.ValidateColumns(ds.Header); err != nil {
		return nil, err
	}

	if err := o.engine.CheckAvailable(ctx); err != nil {
		return nil, err
	}
	if err := o.engine.EnsureImage(ctx); err != nil {
		return nil, err
	}

	inst, err := o.registerInstance(ctx, req)
	if err != nil {
		return nil, err
	}
	o.logger.Info("instance registered",
		"instance", inst.ID, "http", inst.HTTPPort, "bolt", inst.BoltPort)

	if err := o.startWithBindRetry(ctx, inst); err != nil {
		o.markFailed(ctx, inst)
		return nil, err
	}

	if err := o.dao.UpdateStatus(ctx, inst.ID, types.StatusRunning); err != nil {
		o.teardownFailed(ctx, inst)
		return nil, err
	}
	inst.Status = types.StatusRunning

	probe := o.readinessProbe()
	if err := o.engine.WaitReady(ctx, inst, probe, o.cfg.Readiness.Timeout, o.cfg.Readiness.Intervals); err != nil {
		o.teardownFailed(ctx, inst)
		return nil, err
	}

	if err := o.dao.UpdateStatus(ctx, inst.ID, types.StatusIngesting); err != nil {
		o.teardownFailed(ctx, inst)
		return nil, err
	}
	inst.Status = types.StatusIngesting

	report, err := o.runIngestion(ctx, inst, spec, ds)
	if err != nil {
		// Committed batches stand; the container keeps running so the
		// partial graph can be inspected. Only the status records the loss.
		o.markFailed(ctx, inst)
		return nil, err
	}

	if err := o.dao.UpdateStatus(ctx, inst.ID, types.StatusReady); err != nil {
		return nil, err
	}
	inst.Status = types.StatusReady

	scriptPaths, err := o.emitter.EmitAll(inst)
	if err != nil {
		o.logger.Warn("failed to emit connection scripts", "instance", inst.ID, "error", err)
		scriptPaths = nil
	}

	result := &CreateResult{
		Instance:    inst,
		Report:      report,
		ScriptPaths: scriptPaths,
	}
	if path, err := o.exportResult(result); err == nil {
		result.ResultPath = path
	} else {
		o.logger.Warn("failed to export result", "instance", inst.ID, "error", err)
	}

	return result, nil
}

// registerInstance allocates a port pair and inserts the registry row in
// one transaction.
func (o *Orchestrator) registerInstance(ctx context.Context, req CreateRequest) (*types.Instance, error) {
	password, err := types.GeneratePassword()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return o.alloc.Allocate(ctx, func(pair ports.Pair) (*types.Instance, error) {
		id := types.NewInstanceID(req.Name, now)
		return &types.Instance{
			ID:            id,
			Name:          req.Name,
			HTTPPort:      pair.HTTP,
			BoltPort:      pair.Bolt,
			Username:      types.DefaultUsername,
			Password:      password,
			ContainerName: types.ContainerNameFor(id),
			VolumeName:    types.VolumeNameFor(id),
			Status:        types.StatusProvisioning,
			OntologyPath:  req.OntologyPath,
			DataPath:      req.DataPath,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, nil
	})
}

// startWithBindRetry starts the container, re-allocating ports when the
// engine loses the race for a pair that probed free.
func (o *Orchestrator) startWithBindRetry(ctx context.Context, inst *types.Instance) error {
	var lastErr error
	for attempt := 1; attempt <= bindRetryLimit; attempt++ {
		containerID, err := o.engine.CreateAndStart(ctx, inst)
		if err == nil {
			if err := o.dao.SetContainerID(ctx, inst.ID, containerID); err != nil {
				return err
			}
			inst.ContainerID = containerID
			return nil
		}

		lastErr = err
		if !types.IsRetryable(err) || types.CodeOf(err) != types.PORT_BIND_FAILED {
			return err
		}

		o.logger.Warn("port pair lost to another process, reallocating",
			"instance", inst.ID, "attempt", attempt)
		if _, err := o.alloc.Reallocate(ctx, inst); err != nil {
			return err
		}
	}
	return lastErr
}

// readinessProbe pings the instance over bolt with a short-lived client.
func (o *Orchestrator) readinessProbe() func(ctx context.Context, inst *types.Instance) error {
	return func(ctx context.Context, inst *types.Instance) error {
		client, err := o.clients(ctx, inst)
		if err != nil {
			return err
		}
		defer client.Close(ctx)
		return client.Ping(ctx)
	}
}

// runIngestion loads the dataset into the instance.
func (o *Orchestrator) runIngestion(ctx context.Context, inst *types.Instance, spec *ontology.Spec, ds *ingest.Dataset) (*ingest.Report, error) {
	client, err := o.clients(ctx, inst)
	if err != nil {
		return nil, types.WrapError(types.INGEST_ABORTED, "failed to connect for ingestion", err)
	}
	defer client.Close(ctx)

	pipeline := ingest.NewPipeline(client, o.cfg.Ingest.BatchSize, o.logger)
	return pipeline.Run(ctx, spec, ds)
}

// markFailed records the failed status, best-effort.
func (o *Orchestrator) markFailed(ctx context.Context, inst *types.Instance) {
	if err := o.dao.UpdateStatus(ctx, inst.ID, types.StatusFailed); err != nil {
		o.logger.Error("failed to mark instance failed", "instance", inst.ID, "error", err)
		return
	}
	inst.Status = types.StatusFailed
}

// teardownFailed marks the instance failed and removes its container.
// The data volume is kept; --remove --remove-data prunes it later.
func (o *Orchestrator) teardownFailed(ctx context.Context, inst *types.Instance) {
	o.markFailed(ctx, inst)

	if err := o.engine.Stop(ctx, inst); err != nil {
		o.logger.Warn("cleanup stop failed", "instance", inst.ID, "error", err)
	}
	if err := o.engine.Remove(ctx, inst, false); err != nil {
		o.logger.Warn("cleanup remove failed", "instance", inst.ID, "error", err)
	}
}
