package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/config"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/database"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/docker"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/graph"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/ports"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/script"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// Engine is the container-runtime surface the orchestrator depends on.
// *docker.Driver satisfies it; tests substitute a fake.
type Engine interface {
	CheckAvailable(ctx context.Context) error
	EnsureImage(ctx context.Context) error
	CreateAndStart(ctx context.Context, inst *types.Instance) (string, error)
	Start(ctx context.Context, inst *types.Instance) error
	Stop(ctx context.Context, inst *types.Instance) error
	Remove(ctx context.Context, inst *types.Instance, removeData bool) error
	Running(ctx context.Context, inst *types.Instance) (bool, error)
	WaitReady(ctx context.Context, inst *types.Instance, probe docker.ReadinessProbe, timeout time.Duration, intervals []time.Duration) error
	Platform(ctx context.Context) docker.PlatformInfo
}

// ClientFactory builds a connected graph client for an instance.
type ClientFactory func(ctx context.Context, inst *types.Instance) (graph.Client, error)

// Orchestrator coordinates the registry, port allocator, container engine,
// ingestion pipeline, and script emitter behind the CLI actions.
type Orchestrator struct {
	cfg     *config.Config
	db      *database.DB
	dao     *database.InstanceDAO
	alloc   *ports.Allocator
	engine  Engine
	emitter *script.Emitter
	clients ClientFactory
	logger  *slog.Logger
}

// New wires an orchestrator from its parts.
func New(cfg *config.Config, db *database.DB, engine Engine, logger *slog.Logger, opts ...Option) *Orchestrator {
	dao := database.NewInstanceDAO(db)
	o := &Orchestrator{
		cfg:     cfg,
		db:      db,
		dao:     dao,
		alloc:   ports.NewAllocator(db, dao, cfg.Ports.HTTPBase, cfg.Ports.BoltBase, cfg.Ports.MaxAttempts, logger),
		engine:  engine,
		emitter: script.NewEmitter(cfg.Core.ScriptsDir),
		clients: boltClientFactory,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClientFactory replaces the graph client factory, for tests.
func WithClientFactory(f ClientFactory) Option {
	return func(o *Orchestrator) { o.clients = f }
}

// WithAllocator replaces the port allocator, for tests.
func WithAllocator(a *ports.Allocator) Option {
	return func(o *Orchestrator) { o.alloc = a }
}

// boltClientFactory connects a real Neo4j client to the instance.
func boltClientFactory(ctx context.Context, inst *types.Instance) (graph.Client, error) {
	client, err := graph.NewNeo4jClient(graph.ConfigForInstance(inst))
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// Get returns a registry entry by instance id.
func (o *Orchestrator) Get(ctx context.Context, id string) (*types.Instance, error) {
	return o.dao.Get(ctx, id)
}

// InstanceView is a registry entry paired with the engine's live state.
type InstanceView struct {
	*types.Instance
	ContainerRunning bool `json:"container_running"`
}

// List returns all non-removed instances in creation order. The registry
// is the source of truth; the engine only annotates live container state.
func (o *Orchestrator) List(ctx context.Context, includeRemoved bool) ([]InstanceView, error) {
	instances, err := o.dao.List(ctx, includeRemoved)
	if err != nil {
		return nil, err
	}

	engineUp := o.engine.CheckAvailable(ctx) == nil

	views := make([]InstanceView, 0, len(instances))
	for _, inst := range instances {
		view := InstanceView{Instance: inst}
		if engineUp && inst.Status != types.StatusRemoved {
			if running, err := o.engine.Running(ctx, inst); err == nil {
				view.ContainerRunning = running
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// PlatformReport is the platform information payload.
type PlatformReport struct {
	docker.PlatformInfo
	RegistryPath   string `json:"registry_path"`
	InstanceCount  int    `json:"instance_count"`
	PortWindowHTTP int    `json:"port_window_http_base"`
	PortWindowBolt int    `json:"port_window_bolt_base"`
}

// Platform reports runtime availability and orchestrator settings.
func (o *Orchestrator) Platform(ctx context.Context) (PlatformReport, error) {
	instances, err := o.dao.List(ctx, false)
	if err != nil {
		return PlatformReport{}, err
	}

	return PlatformReport{
		PlatformInfo:   o.engine.Platform(ctx),
		RegistryPath:   o.db.Path(),
		InstanceCount:  len(instances),
		PortWindowHTTP: o.cfg.Ports.HTTPBase,
		PortWindowBolt: o.cfg.Ports.BoltBase,
	}, nil
}

// Scripts regenerates connection scripts for an instance from its registry
// entry alone.
func (o *Orchestrator) Scripts(ctx context.Context, id string) (map[script.Kind]string, error) {
	inst, err := o.dao.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.emitter.EmitAll(inst)
}
