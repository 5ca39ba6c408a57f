package meshing

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"voxen/internal/registry"
	"voxen/internal/world"
)

const (
	// DefaultWorkers is the mesh worker count when the config leaves it 0.
	DefaultWorkers = 3

	requestQueueSize = 64
	resultQueueSize  = 256
)

// JobKey identifies a mesh job: one world instance, one chunk.
type JobKey struct {
	World uuid.UUID
	Coord world.ChunkCoord
}

// Result is one finished mesh build. An empty mesh means the chunk owns no
// geometry and its previous mesh should be detached.
type Result struct {
	Key  JobKey
	Mesh *Mesh
}

type requestKind uint8

const (
	registerRequest requestKind = iota
	remeshRequest
)

type request struct {
	kind requestKind
	key  JobKey
	view world.ChunkView // set for registerRequest
}

// inflight tracks the single running job per key. pending records a repeat
// request that arrived mid-run; completion re-posts it to the same worker.
type inflight struct {
	worker  int
	pending bool
}

// Pool runs mesh builds on a fixed set of workers. Chunk buffer views are
// broadcast to every worker so halo reads resolve locally; remesh requests
// are unicast round-robin. At most one job per (world, chunk) is in flight at
// a time: repeat requests coalesce into a follow-up on the owning worker, so
// the worker always re-reads the newest buffer state after the current run.
type Pool struct {
	reg      *registry.Registry
	requests []chan request
	results  chan Result

	mu       sync.Mutex
	inflight map[JobKey]*inflight
	rr       int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool starts workers goroutines (DefaultWorkers when workers <= 0).
func NewPool(workers int, reg *registry.Registry) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		reg:      reg,
		requests: make([]chan request, workers),
		results:  make(chan Result, resultQueueSize),
		inflight: make(map[JobKey]*inflight),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := range p.requests {
		p.requests[i] = make(chan request, requestQueueSize)
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

// Workers returns the worker count.
func (p *Pool) Workers() int { return len(p.requests) }

// RegisterChunk broadcasts a chunk's buffer view to every worker. Requests
// travel the same per-worker channels as remeshes and both are sent from the
// simulation goroutine, so a worker always sees a chunk's registration
// before any remesh that could touch it.
func (p *Pool) RegisterChunk(worldID uuid.UUID, view world.ChunkView) {
	req := request{kind: registerRequest, key: JobKey{worldID, view.Coord}, view: view}
	for _, ch := range p.requests {
		select {
		case ch <- req:
		case <-p.ctx.Done():
			return
		}
	}
}

// RequestRemesh schedules an asynchronous rebuild of one chunk. Returns
// false when every worker queue is full and the caller should retry next
// tick; a request coalesced onto an in-flight job reports true.
func (p *Pool) RequestRemesh(worldID uuid.UUID, coord world.ChunkCoord) bool {
	key := JobKey{worldID, coord}

	p.mu.Lock()
	if f, ok := p.inflight[key]; ok {
		f.pending = true
		p.mu.Unlock()
		return true
	}
	w := p.rr % len(p.requests)
	p.rr++
	p.inflight[key] = &inflight{worker: w}
	p.mu.Unlock()

	select {
	case p.requests[w] <- request{kind: remeshRequest, key: key}:
		return true
	default:
		p.mu.Lock()
		delete(p.inflight, key)
		p.mu.Unlock()
		return false
	}
}

// Drain consumes every result currently queued without blocking, clearing
// in-flight state (and re-posting coalesced follow-ups) before handing each
// result to apply. Called from the simulation goroutine each tick. Returns
// the number of results applied.
func (p *Pool) Drain(apply func(Result)) int {
	n := 0
	for {
		select {
		case res := <-p.results:
			p.completed(res.Key)
			if apply != nil {
				apply(res)
			}
			n++
		default:
			return n
		}
	}
}

// completed retires one run. A pending repeat goes back to the same worker;
// its queue has room in steady state because the worker just freed a slot.
func (p *Pool) completed(key JobKey) {
	p.mu.Lock()
	f, ok := p.inflight[key]
	if !ok {
		p.mu.Unlock()
		return
	}
	if !f.pending {
		delete(p.inflight, key)
		p.mu.Unlock()
		return
	}
	f.pending = false
	w := f.worker
	p.mu.Unlock()

	select {
	case p.requests[w] <- request{kind: remeshRequest, key: key}:
	case <-p.ctx.Done():
	}
}

// InFlight returns the number of keys with a running or pending job.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inflight)
}

// Shutdown stops the workers and waits for them to exit. Queued requests are
// abandoned; there is no job cancellation, only pool teardown.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

// run is the worker loop: maintain the private view table, build meshes,
// send results. The table is owned by this goroutine alone.
func (p *Pool) run(idx int) {
	defer p.wg.Done()
	views := make(map[JobKey]world.ChunkView)

	for {
		select {
		case req := <-p.requests[idx]:
			switch req.kind {
			case registerRequest:
				views[req.key] = req.view
			case remeshRequest:
				mesh := p.build(views, req.key)
				select {
				case p.results <- Result{Key: req.key, Mesh: mesh}:
				case <-p.ctx.Done():
					return
				}
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) build(views map[JobKey]world.ChunkView, key JobKey) *Mesh {
	view, ok := views[key]
	if !ok {
		// Never registered: nothing to read, report an empty mesh so any
		// stale geometry detaches.
		return &Mesh{}
	}
	src := tableSource{worldID: key.World, views: views}
	return BuildMesh(view, src, p.reg)
}

// tableSource resolves world-coordinate reads against a worker's view table.
// Unregistered chunks read as air, mirroring how absent chunks read in the
// world itself.
type tableSource struct {
	worldID uuid.UUID
	views   map[JobKey]world.ChunkView
}

func (t tableSource) GetBlock(x, y, z int) world.Voxel {
	coord, lx, ly, lz := world.Split(x, y, z)
	view, ok := t.views[JobKey{t.worldID, coord}]
	if !ok {
		return world.Air
	}
	return view.Get(lx, ly, lz)
}

func (t tableSource) IsSolid(x, y, z int) bool {
	coord, lx, ly, lz := world.Split(x, y, z)
	view, ok := t.views[JobKey{t.worldID, coord}]
	if !ok {
		return false
	}
	return view.IsSolid(lx, ly, lz)
}
