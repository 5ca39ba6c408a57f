package engine

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"voxen/internal/config"
	"voxen/internal/meshing"
	"voxen/internal/profiling"
	"voxen/internal/registry"
	"voxen/internal/world"
)

// EventKind tags the feed events an engine emits while ticking.
type EventKind uint8

const (
	// EventChunkCreated fires when a write materializes a chunk.
	EventChunkCreated EventKind = iota
	// EventMeshUpdated carries a freshly built, immutable mesh.
	EventMeshUpdated
	// EventMeshDetached means the chunk meshed empty; drop its mesh.
	EventMeshDetached
)

// Event is delivered to sinks on the simulation goroutine. Mesh is set for
// EventMeshUpdated only and is never mutated after emission.
type Event struct {
	Kind  EventKind
	Coord world.ChunkCoord
	Mesh  *meshing.Mesh
}

// CommandKind tags cross-goroutine requests into the simulation.
type CommandKind uint8

const (
	// CommandEdit applies a batch of voxel writes.
	CommandEdit CommandKind = iota
	// CommandActor moves the priority reference point.
	CommandActor
	// CommandSync asks for the current world as synthesized events.
	CommandSync
)

// Command is the only way other goroutines reach the simulation. The feed
// posts commands and the engine drains them at the top of each tick.
type Command struct {
	Kind  CommandKind
	Edits []world.Edit
	Actor mgl64.Vec3
	// Reply receives a snapshot on the simulation goroutine. CommandSync only.
	Reply func(events []Event)
}

// Stats is a point-in-time copy of the engine's counters, refreshed once per
// tick and safe to read from any goroutine via Stats().
type Stats struct {
	Ticks          int64
	Chunks         int
	Meshes         int
	Dirty          int
	Deferred       int
	InFlight       int
	EditsApplied   int64
	RemeshesQueued int64
	MeshesApplied  int64
	MeshesDetached int64
	LastTickMS     float64
}

// Engine ties the world, dirty tracker and mesh pool into a tick loop. All
// methods except Stats and Commands must run on the simulation goroutine.
type Engine struct {
	ID uuid.UUID

	cfg     config.Config
	log     *log.Logger
	world   *world.World
	reg     *registry.Registry
	pool    *meshing.Pool
	tracker *Tracker

	meshes map[world.ChunkCoord]*meshing.Mesh
	actor  mgl64.Vec3

	limiter  *rate.Limiter
	commands chan Command
	sinks    []func(Event)

	counters  Stats
	statsMu   sync.Mutex
	published Stats
}

func New(cfg config.Config, reg *registry.Registry, logger *log.Logger) *Engine {
	cfg.Normalize()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	e := &Engine{
		ID:       uuid.New(),
		cfg:      cfg,
		log:      logger,
		world:    world.New(),
		reg:      reg,
		pool:     meshing.NewPool(cfg.Workers, reg),
		tracker:  NewTracker(cfg.CoarseBatchThreshold),
		meshes:   make(map[world.ChunkCoord]*meshing.Mesh),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RemeshPerSecond), cfg.RemeshBurst),
		commands: make(chan Command, 256),
	}
	e.world.SetChangeListener(e.tracker)
	e.world.OnChunkCreated(func(ch *world.Chunk) {
		e.pool.RegisterChunk(e.ID, ch.View())
		e.emit(Event{Kind: EventChunkCreated, Coord: ch.Coord})
	})
	return e
}

// OnEvent registers a sink. Sinks run on the simulation goroutine and must
// not block; register them before the first tick.
func (e *Engine) OnEvent(fn func(Event)) {
	e.sinks = append(e.sinks, fn)
}

// Commands is where other goroutines post work. Senders should not block:
// send with a default branch and treat a full channel as backpressure.
func (e *Engine) Commands() chan<- Command { return e.commands }

// World exposes the underlying voxel store for same-goroutine consumers such
// as raycasts and navigation.
func (e *Engine) World() *world.World { return e.world }

// Registry exposes the block registry the engine meshes with.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// SetBlock writes one voxel and queues the affected chunks for remesh.
func (e *Engine) SetBlock(x, y, z int, v world.Voxel) {
	e.world.SetBlock(x, y, z, v)
	e.counters.EditsApplied++
}

// Apply lands a batch of edits with batch dirty semantics.
func (e *Engine) Apply(edits []world.Edit) int {
	n := e.world.Apply(edits)
	e.counters.EditsApplied += int64(n)
	return n
}

// Box is an inclusive cell range.
type Box struct {
	Min, Max [3]int
}

// Fill writes v into every cell of the box as one batch.
func (e *Engine) Fill(b Box, v world.Voxel) int {
	size := (b.Max[0] - b.Min[0] + 1) * (b.Max[1] - b.Min[1] + 1) * (b.Max[2] - b.Min[2] + 1)
	if size <= 0 {
		return 0
	}
	edits := make([]world.Edit, 0, size)
	for x := b.Min[0]; x <= b.Max[0]; x++ {
		for y := b.Min[1]; y <= b.Max[1]; y++ {
			for z := b.Min[2]; z <= b.Max[2]; z++ {
				edits = append(edits, world.Edit{X: x, Y: y, Z: z, V: v})
			}
		}
	}
	return e.Apply(edits)
}

// Carve clears the box back to air.
func (e *Engine) Carve(b Box) int { return e.Fill(b, world.Air) }

// SetActor moves the point remesh priority and the active radius are
// measured from.
func (e *Engine) SetActor(pos mgl64.Vec3) { e.actor = pos }

// MeshFor returns the current mesh for a chunk, or nil.
func (e *Engine) MeshFor(c world.ChunkCoord) *meshing.Mesh { return e.meshes[c] }

// Meshes visits every attached mesh.
func (e *Engine) Meshes(fn func(world.ChunkCoord, *meshing.Mesh)) {
	for c, m := range e.meshes {
		fn(c, m)
	}
}

// Quiescent reports whether no remesh work remains anywhere: nothing dirty,
// nothing parked out of range, nothing in flight.
func (e *Engine) Quiescent() bool {
	return e.tracker.Pending() == 0 && e.pool.InFlight() == 0
}

// Stats returns the counters as of the end of the last tick.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.published
}

// Tick runs one simulation step: drain commands, dispatch remeshes by
// priority under the rate budget, then fold in finished meshes. budget is
// the tick interval; ticks that overrun it are logged with the hottest
// profiler sections.
func (e *Engine) Tick(budget time.Duration) {
	defer profiling.Track("engine.Tick")()
	start := time.Now()

	e.drainCommands()
	e.dispatch()
	e.pool.Drain(e.applyResult)

	elapsed := time.Since(start)
	if budget > 0 && elapsed > budget {
		e.log.Printf("slow tick: %v over budget %v, top sections: %s", elapsed, budget, profiling.TopN(5))
	}
	e.publish(elapsed)
}

// Run ticks at the configured rate until ctx is done. Call Close afterwards.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Second / time.Duration(e.cfg.TickHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(interval)
		}
	}
}

// Close stops the mesh workers. The engine must not tick afterwards.
func (e *Engine) Close() {
	e.pool.Shutdown()
}

func (e *Engine) drainCommands() {
	for {
		select {
		case cmd := <-e.commands:
			switch cmd.Kind {
			case CommandEdit:
				e.Apply(cmd.Edits)
			case CommandActor:
				e.SetActor(cmd.Actor)
			case CommandSync:
				if cmd.Reply != nil {
					cmd.Reply(e.snapshot())
				}
			}
		default:
			return
		}
	}
}

func (e *Engine) dispatch() {
	defer profiling.Track("engine.Dispatch")()
	for _, c := range e.tracker.Schedule(e.actor, int32(e.cfg.ActiveRadius)) {
		ch := e.world.ChunkAt(c)
		if ch == nil {
			// Marked as a neighbor but never materialized; nothing to mesh.
			e.tracker.Remove(c)
			continue
		}
		if !e.limiter.Allow() {
			break
		}
		if !e.pool.RequestRemesh(e.ID, c) {
			break
		}
		e.tracker.Remove(c)
		ch.SetClean()
		e.counters.RemeshesQueued++
	}
}

func (e *Engine) applyResult(res meshing.Result) {
	if res.Key.World != e.ID {
		return
	}
	c := res.Key.Coord
	if res.Mesh.Empty() {
		if _, ok := e.meshes[c]; ok {
			delete(e.meshes, c)
			e.counters.MeshesDetached++
			e.emit(Event{Kind: EventMeshDetached, Coord: c})
		}
		return
	}
	e.meshes[c] = res.Mesh
	e.counters.MeshesApplied++
	e.emit(Event{Kind: EventMeshUpdated, Coord: c, Mesh: res.Mesh})
}

// snapshot synthesizes the events that bring a fresh consumer up to date.
func (e *Engine) snapshot() []Event {
	events := make([]Event, 0, e.world.Count()+len(e.meshes))
	e.world.Each(func(ch *world.Chunk) {
		events = append(events, Event{Kind: EventChunkCreated, Coord: ch.Coord})
	})
	for c, m := range e.meshes {
		events = append(events, Event{Kind: EventMeshUpdated, Coord: c, Mesh: m})
	}
	return events
}

func (e *Engine) emit(ev Event) {
	for _, fn := range e.sinks {
		fn(ev)
	}
}

func (e *Engine) publish(elapsed time.Duration) {
	e.counters.Ticks++
	e.counters.Chunks = e.world.Count()
	e.counters.Meshes = len(e.meshes)
	e.counters.Dirty = e.tracker.DirtyCount()
	e.counters.Deferred = e.tracker.DeferredCount()
	e.counters.InFlight = e.pool.InFlight()
	e.counters.LastTickMS = float64(elapsed.Microseconds()) / 1000
	e.statsMu.Lock()
	e.published = e.counters
	e.statsMu.Unlock()
}
