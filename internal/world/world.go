package world

// Edit is one voxel write inside a batch application.
type Edit struct {
	X, Y, Z int
	V       Voxel
}

// ChangeListener observes world mutations. The remesh tracker implements it;
// keeping the hook here keeps scheduling policy out of the storage layer.
type ChangeListener interface {
	// VoxelChanged is invoked once per single voxel write, in world coords.
	VoxelChanged(x, y, z int)
	// BatchApplied is invoked once after Apply with every edit of the batch
	// and the set of chunks the batch touched. The listener decides between
	// per-voxel and coarse handling based on the batch size.
	BatchApplied(edits []Edit, touched []ChunkCoord)
}

// World is a sparse, unbounded voxel space: a map of chunks keyed by chunk
// coordinate. Chunks come into being on first write and live until the world
// is dropped. All mutation happens on the simulation goroutine; mesh workers
// only ever see chunk views handed out through the created hook, never the
// map itself, so the map needs no lock.
type World struct {
	chunks map[ChunkCoord]*Chunk

	created  []func(*Chunk)
	listener ChangeListener

	// scratch for Apply, reused between batches
	touched map[ChunkCoord]struct{}
}

func New() *World {
	return &World{
		chunks:  make(map[ChunkCoord]*Chunk),
		touched: make(map[ChunkCoord]struct{}),
	}
}

// OnChunkCreated registers a hook fired synchronously whenever a write
// materializes a chunk. The hook receives the chunk before the write lands,
// so buffer views registered from it cover the triggering edit.
func (w *World) OnChunkCreated(fn func(*Chunk)) {
	w.created = append(w.created, fn)
}

// SetChangeListener installs the mutation observer. Only one is supported;
// the engine owns it.
func (w *World) SetChangeListener(l ChangeListener) {
	w.listener = l
}

// ChunkAt returns the chunk at coord, or nil when absent.
func (w *World) ChunkAt(coord ChunkCoord) *Chunk {
	return w.chunks[coord]
}

// Lookup returns the chunk owning world (x, y, z) without creating it.
func (w *World) Lookup(x, y, z int) *Chunk {
	return w.chunks[Coord(x, y, z)]
}

// ensure returns the chunk at coord, materializing it (and firing the
// created hooks) when absent.
func (w *World) ensure(coord ChunkCoord) *Chunk {
	if ch, ok := w.chunks[coord]; ok {
		return ch
	}
	ch := NewChunk(coord)
	w.chunks[coord] = ch
	for _, fn := range w.created {
		fn(ch)
	}
	return ch
}

// SetBlock writes a voxel at world (x, y, z), materializing the owning chunk
// when needed. The write always lands and always dirties the chunk, even
// when the value is unchanged or air.
func (w *World) SetBlock(x, y, z int, v Voxel) {
	coord, lx, ly, lz := Split(x, y, z)
	w.ensure(coord).Set(lx, ly, lz, v)
	if w.listener != nil {
		w.listener.VoxelChanged(x, y, z)
	}
}

// Apply lands a batch of edits and notifies the listener once, letting it
// choose coarse neighbor handling for large batches. Returns the number of
// writes applied.
func (w *World) Apply(edits []Edit) int {
	if len(edits) == 0 {
		return 0
	}
	clear(w.touched)
	for _, e := range edits {
		coord, lx, ly, lz := Split(e.X, e.Y, e.Z)
		w.ensure(coord).Set(lx, ly, lz, e.V)
		w.touched[coord] = struct{}{}
	}
	touched := make([]ChunkCoord, 0, len(w.touched))
	for c := range w.touched {
		touched = append(touched, c)
	}
	if w.listener != nil {
		w.listener.BatchApplied(edits, touched)
	}
	return len(edits)
}

// GetBlock returns the voxel at world (x, y, z). Absent chunks read as air.
func (w *World) GetBlock(x, y, z int) Voxel {
	coord, lx, ly, lz := Split(x, y, z)
	ch := w.chunks[coord]
	if ch == nil {
		return Air
	}
	return ch.Get(lx, ly, lz)
}

// IsSolid reports whether world (x, y, z) is solid. Absent chunks are not.
func (w *World) IsSolid(x, y, z int) bool {
	coord, lx, ly, lz := Split(x, y, z)
	ch := w.chunks[coord]
	if ch == nil {
		return false
	}
	return ch.IsSolid(lx, ly, lz)
}

// Count returns the number of materialized chunks.
func (w *World) Count() int { return len(w.chunks) }

// Each visits every materialized chunk. Iteration order is unspecified.
func (w *World) Each(fn func(*Chunk)) {
	for _, ch := range w.chunks {
		fn(ch)
	}
}
