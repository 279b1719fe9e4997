package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// InstanceDAO provides registry access for Instance entities.
type InstanceDAO struct {
	db *DB
}

// NewInstanceDAO creates a new InstanceDAO instance
func NewInstanceDAO(db *DB) *InstanceDAO {
	return &InstanceDAO{db: db}
}

const instanceColumns = `
	id, name, http_port, bolt_port, username, password,
	container_name, container_id, volume_name, status,
	ontology_path, data_path, created_at, updated_at`

// Create inserts a new instance into the registry.
func (dao *InstanceDAO) Create(ctx context.Context, inst *types.Instance) error {
	return dao.db.WithTx(ctx, func(tx *sql.Tx) error {
		return dao.CreateTx(ctx, tx, inst)
	})
}

// CreateTx inserts a new instance inside an existing transaction. The port
// allocator uses this to make probe-and-claim a single atomic step.
func (dao *InstanceDAO) CreateTx(ctx context.Context, tx *sql.Tx, inst *types.Instance) error {
	if err := inst.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO instances (` + instanceColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, query,
		inst.ID,
		inst.Name,
		inst.HTTPPort,
		inst.BoltPort,
		inst.Username,
		inst.Password,
		inst.ContainerName,
		inst.ContainerID,
		inst.VolumeName,
		inst.Status.String(),
		inst.OntologyPath,
		inst.DataPath,
		inst.CreatedAt,
		inst.UpdatedAt,
	)
	if err != nil {
		return types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to insert instance", err)
	}
	return nil
}

// Get retrieves an instance by ID.
func (dao *InstanceDAO) Get(ctx context.Context, id string) (*types.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE id = ?`
	row := dao.db.QueryRowContext(ctx, query, id)
	return dao.scanInstance(row, id)
}

// List retrieves all instances ordered by creation time. Removed instances
// are included only when includeRemoved is set.
func (dao *InstanceDAO) List(ctx context.Context, includeRemoved bool) ([]*types.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances`
	var args []interface{}
	if !includeRemoved {
		query += " WHERE status != ?"
		args = append(args, types.StatusRemoved.String())
	}
	query += " ORDER BY created_at ASC"

	rows, err := dao.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to query instances", err)
	}
	defer rows.Close()

	var instances []*types.Instance
	for rows.Next() {
		inst, err := dao.scanInstanceFromRows(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.REGISTRY_QUERY_FAILED, "error iterating instances", err)
	}
	return instances, nil
}

// ClaimedPortsTx returns the set of host ports held by live instances,
// read inside the allocation transaction. Removed and failed rows release
// their pair; a container still running on a failed instance's ports is
// caught by the allocator's bind probe instead.
func (dao *InstanceDAO) ClaimedPortsTx(ctx context.Context, tx *sql.Tx) (map[int]bool, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT http_port, bolt_port FROM instances WHERE status NOT IN (?, ?)",
		types.StatusRemoved.String(), types.StatusFailed.String())
	if err != nil {
		return nil, types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to query claimed ports", err)
	}
	defer rows.Close()

	claimed := make(map[int]bool)
	for rows.Next() {
		var httpPort, boltPort int
		if err := rows.Scan(&httpPort, &boltPort); err != nil {
			return nil, types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to scan claimed ports", err)
		}
		claimed[httpPort] = true
		claimed[boltPort] = true
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.REGISTRY_QUERY_FAILED, "error iterating claimed ports", err)
	}
	return claimed, nil
}

// UpdateStatus transitions an instance to a new status, enforcing the
// lifecycle state machine.
func (dao *InstanceDAO) UpdateStatus(ctx context.Context, id string, next types.InstanceStatus) error {
	return dao.db.WithTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, "SELECT status FROM instances WHERE id = ?", id).Scan(&current)
		if err == sql.ErrNoRows {
			return types.NewError(types.INSTANCE_NOT_FOUND, "instance not found: "+id)
		}
		if err != nil {
			return types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to read instance status", err)
		}

		from := types.InstanceStatus(current)
		if !from.CanTransition(next) {
			return types.NewError(types.INVALID_STATUS_TRANSITION,
				fmt.Sprintf("cannot transition instance %s from %s to %s", id, from, next))
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE instances SET status = ?, updated_at = ? WHERE id = ?",
			next.String(), time.Now().UTC(), id)
		if err != nil {
			return types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to update instance status", err)
		}
		return nil
	})
}

// SetContainerID records the engine-assigned container id for an instance.
func (dao *InstanceDAO) SetContainerID(ctx context.Context, id, containerID string) error {
	result, err := dao.db.ExecContext(ctx,
		"UPDATE instances SET container_id = ?, updated_at = ? WHERE id = ?",
		containerID, time.Now().UTC(), id)
	if err != nil {
		return types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to set container id", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to get rows affected", err)
	}
	if affected == 0 {
		return types.NewError(types.INSTANCE_NOT_FOUND, "instance not found: "+id)
	}
	return nil
}

// Delete removes an instance row entirely. Normal teardown keeps the row
// with status removed; this is for pruning.
func (dao *InstanceDAO) Delete(ctx context.Context, id string) error {
	result, err := dao.db.ExecContext(ctx, "DELETE FROM instances WHERE id = ?", id)
	if err != nil {
		return types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to delete instance", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to get rows affected", err)
	}
	if affected == 0 {
		return types.NewError(types.INSTANCE_NOT_FOUND, "instance not found: "+id)
	}
	return nil
}

// scanInstance scans a single instance from a query row
func (dao *InstanceDAO) scanInstance(row *sql.Row, id string) (*types.Instance, error) {
	var inst types.Instance
	var status string

	err := row.Scan(
		&inst.ID,
		&inst.Name,
		&inst.HTTPPort,
		&inst.BoltPort,
		&inst.Username,
		&inst.Password,
		&inst.ContainerName,
		&inst.ContainerID,
		&inst.VolumeName,
		&status,
		&inst.OntologyPath,
		&inst.DataPath,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, types.NewError(types.INSTANCE_NOT_FOUND, "instance not found: "+id)
	}
	if err != nil {
		return nil, types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to scan instance", err)
	}

	inst.Status = types.InstanceStatus(status)
	if !inst.Status.IsValid() {
		return nil, types.NewError(types.REGISTRY_CORRUPT,
			fmt.Sprintf("instance %s has unknown status %q", inst.ID, status))
	}
	return &inst, nil
}

// scanInstanceFromRows scans an instance from sql.Rows
func (dao *InstanceDAO) scanInstanceFromRows(rows *sql.Rows) (*types.Instance, error) {
	var inst types.Instance
	var status string

	err := rows.Scan(
		&inst.ID,
		&inst.Name,
		&inst.HTTPPort,
		&inst.BoltPort,
		&inst.Username,
		&inst.Password,
		&inst.ContainerName,
		&inst.ContainerID,
		&inst.VolumeName,
		&status,
		&inst.OntologyPath,
		&inst.DataPath,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to scan instance", err)
	}

	inst.Status = types.InstanceStatus(status)
	if !inst.Status.IsValid() {
		return nil, types.NewError(types.REGISTRY_CORRUPT,
			fmt.Sprintf("instance %s has unknown status %q", inst.ID, status))
	}
	return &inst, nil
}
