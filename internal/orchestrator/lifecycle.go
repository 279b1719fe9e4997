package orchestrator

import (
	"context"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// Start starts a stopped instance's container again.
func (o *Orchestrator) Start(ctx context.Context, id string) (*types.Instance, error) {
	inst, err := o.dao.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.Status != types.StatusStopped {
		return nil, types.NewError(types.INVALID_STATUS_TRANSITION,
			"instance "+id+" is "+inst.Status.String()+", only stopped instances can be started")
	}

	if err := o.engine.Start(ctx, inst); err != nil {
		return nil, err
	}
	if err := o.dao.UpdateStatus(ctx, id, types.StatusRunning); err != nil {
		return nil, err
	}
	inst.Status = types.StatusRunning
	return inst, nil
}

// Stop stops a running or ready instance's container.
func (o *Orchestrator) Stop(ctx context.Context, id string) (*types.Instance, error) {
	inst, err := o.dao.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inst.Status.CanTransition(types.StatusStopped) {
		return nil, types.NewError(types.INVALID_STATUS_TRANSITION,
			"instance "+id+" is "+inst.Status.String()+" and cannot be stopped")
	}

	if err := o.engine.Stop(ctx, inst); err != nil {
		return nil, err
	}
	if err := o.dao.UpdateStatus(ctx, id, types.StatusStopped); err != nil {
		return nil, err
	}
	inst.Status = types.StatusStopped
	return inst, nil
}

// Remove tears an instance down: stop and remove its container, drop the
// data volume when removeData is set, and mark the registry row removed.
// The row is kept so the instance's history stays listable.
func (o *Orchestrator) Remove(ctx context.Context, id string, removeData bool) (*types.Instance, error) {
	inst, err := o.dao.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.Status == types.StatusRemoved {
		return inst, nil
	}

	if err := o.engine.Stop(ctx, inst); err != nil {
		o.logger.Warn("stop during remove failed", "instance", id, "error", err)
	}
	if err := o.engine.Remove(ctx, inst, removeData); err != nil {
		return nil, err
	}
	if err := o.dao.UpdateStatus(ctx, id, types.StatusRemoved); err != nil {
		return nil, err
	}
	inst.Status = types.StatusRemoved
	return inst, nil
}

// CleanupAll removes every non-removed instance. Failures are logged and
// skipped so one broken container does not block the rest.
func (o *Orchestrator) CleanupAll(ctx context.Context, removeData bool) (int, error) {
	instances, err := o.dao.List(ctx, false)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, inst := range instances {
		if _, err := o.Remove(ctx, inst.ID, removeData); err != nil {
			o.logger.Warn("cleanup failed for instance", "instance", inst.ID, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
