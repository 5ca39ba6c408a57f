package engine

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"voxen/internal/world"
)

// Tracker accumulates chunks whose meshes are stale. Chunks inside the
// active radius sit in dirty awaiting dispatch; chunks that drift out of
// range park in deferred until the actor comes back. All methods run on the
// simulation goroutine.
type Tracker struct {
	dirty    map[world.ChunkCoord]struct{}
	deferred map[world.ChunkCoord]struct{}
	coarse   int
}

func NewTracker(coarseThreshold int) *Tracker {
	if coarseThreshold < 1 {
		coarseThreshold = 1
	}
	return &Tracker{
		dirty:    make(map[world.ChunkCoord]struct{}),
		deferred: make(map[world.ChunkCoord]struct{}),
		coarse:   coarseThreshold,
	}
}

// VoxelChanged implements world.ChangeListener for single writes.
func (t *Tracker) VoxelChanged(x, y, z int) {
	t.markVoxel(x, y, z)
}

// BatchApplied implements world.ChangeListener. Batches at or above the
// coarse threshold skip per-voxel boundary analysis and mark every touched
// chunk plus its face neighbors; baked occlusion across a diagonal can go
// stale in that mode, which is the accepted cost of bulk edits.
func (t *Tracker) BatchApplied(edits []world.Edit, touched []world.ChunkCoord) {
	if len(edits) >= t.coarse {
		for _, c := range touched {
			t.mark(c)
			t.mark(c.Offset(1, 0, 0))
			t.mark(c.Offset(-1, 0, 0))
			t.mark(c.Offset(0, 1, 0))
			t.mark(c.Offset(0, -1, 0))
			t.mark(c.Offset(0, 0, 1))
			t.mark(c.Offset(0, 0, -1))
		}
		return
	}
	for _, e := range edits {
		t.markVoxel(e.X, e.Y, e.Z)
	}
}

// markVoxel marks the owning chunk, and for writes on a chunk boundary every
// neighbor whose mesh can see the cell. Occlusion samples diagonally, so an
// edge write also marks the edge neighbor and a corner write the corner
// neighbor, up to 7 extra chunks.
func (t *Tracker) markVoxel(x, y, z int) {
	coord, lx, ly, lz := world.Split(x, y, z)

	var dx, dy, dz int32
	switch lx {
	case 0:
		dx = -1
	case world.ChunkMask:
		dx = 1
	}
	switch ly {
	case 0:
		dy = -1
	case world.ChunkMask:
		dy = 1
	}
	switch lz {
	case 0:
		dz = -1
	case world.ChunkMask:
		dz = 1
	}

	t.mark(coord)
	if dx != 0 {
		t.mark(coord.Offset(dx, 0, 0))
	}
	if dy != 0 {
		t.mark(coord.Offset(0, dy, 0))
	}
	if dz != 0 {
		t.mark(coord.Offset(0, 0, dz))
	}
	if dx != 0 && dy != 0 {
		t.mark(coord.Offset(dx, dy, 0))
	}
	if dx != 0 && dz != 0 {
		t.mark(coord.Offset(dx, 0, dz))
	}
	if dy != 0 && dz != 0 {
		t.mark(coord.Offset(0, dy, dz))
	}
	if dx != 0 && dy != 0 && dz != 0 {
		t.mark(coord.Offset(dx, dy, dz))
	}
}

// mark queues a chunk for remesh. A chunk already parked in deferred stays
// there; promotion back into dirty is Schedule's job.
func (t *Tracker) mark(c world.ChunkCoord) {
	if _, ok := t.deferred[c]; ok {
		return
	}
	t.dirty[c] = struct{}{}
}

// Schedule promotes deferred chunks that came back inside the radius, parks
// dirty chunks that left it, and returns the in-range dirty chunks ordered
// nearest-first by distance from chunk center to the actor.
func (t *Tracker) Schedule(actor mgl64.Vec3, radius int32) []world.ChunkCoord {
	if len(t.dirty) == 0 && len(t.deferred) == 0 {
		return nil
	}
	center := world.Coord(
		int(math.Floor(actor.X())),
		int(math.Floor(actor.Y())),
		int(math.Floor(actor.Z())),
	)

	for c := range t.deferred {
		if chebyshev(c, center) <= radius {
			delete(t.deferred, c)
			t.dirty[c] = struct{}{}
		}
	}

	out := make([]world.ChunkCoord, 0, len(t.dirty))
	for c := range t.dirty {
		if chebyshev(c, center) > radius {
			delete(t.dirty, c)
			t.deferred[c] = struct{}{}
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return centerDistSq(out[i], actor) < centerDistSq(out[j], actor)
	})
	return out
}

// Remove clears a chunk from the dirty set once its remesh was dispatched
// (or the chunk turned out not to exist).
func (t *Tracker) Remove(c world.ChunkCoord) {
	delete(t.dirty, c)
}

func (t *Tracker) DirtyCount() int    { return len(t.dirty) }
func (t *Tracker) DeferredCount() int { return len(t.deferred) }

// Pending reports all chunks still awaiting a remesh, parked or not.
func (t *Tracker) Pending() int { return len(t.dirty) + len(t.deferred) }

func chebyshev(a, b world.ChunkCoord) int32 {
	d := absDiff(a.X, b.X)
	if dy := absDiff(a.Y, b.Y); dy > d {
		d = dy
	}
	if dz := absDiff(a.Z, b.Z); dz > d {
		d = dz
	}
	return d
}

func absDiff(a, b int32) int32 {
	if a > b {
		return a - b
	}
	return b - a
}

func centerDistSq(c world.ChunkCoord, p mgl64.Vec3) float64 {
	ox, oy, oz := c.Origin()
	half := float64(world.ChunkSize) / 2
	dx := float64(ox) + half - p.X()
	dy := float64(oy) + half - p.Y()
	dz := float64(oz) + half - p.Z()
	return dx*dx + dy*dy + dz*dz
}
