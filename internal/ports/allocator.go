package ports

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/database"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// Pair is an allocated HTTP/Bolt host port pair.
type Pair struct {
	HTTP int
	Bolt int
}

// ProbeFunc reports whether a host port is currently bindable.
type ProbeFunc func(port int) bool

// Allocator finds free HTTP/Bolt port pairs and claims them in the registry.
// Both ports advance in lockstep from their bases, so an instance at offset
// n always holds (httpBase+n, boltBase+n).
type Allocator struct {
	db          *database.DB
	dao         *database.InstanceDAO
	httpBase    int
	boltBase    int
	maxAttempts int
	probe       ProbeFunc
	logger      *slog.Logger
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithProbe replaces the OS bind probe, for tests.
func WithProbe(probe ProbeFunc) Option {
	return func(a *Allocator) {
		a.probe = probe
	}
}

// NewAllocator creates an allocator over the given registry.
func NewAllocator(db *database.DB, dao *database.InstanceDAO, httpBase, boltBase, maxAttempts int, logger *slog.Logger, opts ...Option) *Allocator {
	a := &Allocator{
		db:          db,
		dao:         dao,
		httpBase:    httpBase,
		boltBase:    boltBase,
		maxAttempts: maxAttempts,
		probe:       probeBindable,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate finds the first free port pair and registers the instance built
// by build in the same registry transaction. The transaction takes the
// write lock at begin, so concurrent creates (in this process or another
// one sharing the registry file) cannot claim the same pair.
func (a *Allocator) Allocate(ctx context.Context, build func(pair Pair) (*types.Instance, error)) (*types.Instance, error) {
	var inst *types.Instance

	err := a.db.WithTx(ctx, func(tx *sql.Tx) error {
		claimed, err := a.dao.ClaimedPortsTx(ctx, tx)
		if err != nil {
			return err
		}

		pair, err := a.findFree(claimed)
		if err != nil {
			return err
		}

		a.logger.Debug("allocated port pair", "http", pair.HTTP, "bolt", pair.Bolt)

		inst, err = build(pair)
		if err != nil {
			return err
		}
		return a.dao.CreateTx(ctx, tx, inst)
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// Reallocate moves an already registered instance to the next free pair.
// Used when the engine reports a bind conflict on ports that looked free
// at allocation time.
func (a *Allocator) Reallocate(ctx context.Context, inst *types.Instance) (Pair, error) {
	var pair Pair

	err := a.db.WithTx(ctx, func(tx *sql.Tx) error {
		claimed, err := a.dao.ClaimedPortsTx(ctx, tx)
		if err != nil {
			return err
		}
		// The instance's own row still claims its old pair; mask it out
		// and burn the conflicting pair so it is not handed back.
		delete(claimed, inst.HTTPPort)
		delete(claimed, inst.BoltPort)
		conflictHTTP, conflictBolt := inst.HTTPPort, inst.BoltPort

		pair, err = a.findFreeExcluding(claimed, conflictHTTP, conflictBolt)
		if err != nil {
			return err
		}

		a.logger.Debug("reallocated port pair",
			"instance", inst.ID, "http", pair.HTTP, "bolt", pair.Bolt)

		_, err = tx.ExecContext(ctx,
			"UPDATE instances SET http_port = ?, bolt_port = ? WHERE id = ?",
			pair.HTTP, pair.Bolt, inst.ID)
		if err != nil {
			return types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to update instance ports", err)
		}
		return nil
	})
	if err != nil {
		return Pair{}, err
	}

	inst.HTTPPort = pair.HTTP
	inst.BoltPort = pair.Bolt
	return pair, nil
}

func (a *Allocator) findFree(claimed map[int]bool) (Pair, error) {
	return a.findFreeExcluding(claimed, -1, -1)
}

func (a *Allocator) findFreeExcluding(claimed map[int]bool, skipHTTP, skipBolt int) (Pair, error) {
	for i := 0; i < a.maxAttempts; i++ {
		httpPort := a.httpBase + i
		boltPort := a.boltBase + i

		if httpPort == skipHTTP || boltPort == skipBolt {
			continue
		}
		if claimed[httpPort] || claimed[boltPort] {
			continue
		}
		if !a.probe(httpPort) || !a.probe(boltPort) {
			continue
		}
		return Pair{HTTP: httpPort, Bolt: boltPort}, nil
	}
	return Pair{}, types.NewError(types.PORTS_EXHAUSTED, fmt.Sprintf(
		"no free port pair in %d attempts from %d/%d", a.maxAttempts, a.httpBase, a.boltBase))
}

// probeBindable checks bindability with a short-lived listener. A port that
// passes here can still be grabbed by another process before the container
// starts; the create flow handles that as a retryable bind failure.
func probeBindable(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}
