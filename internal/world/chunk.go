package world

// Chunk is a ChunkSize-cubed block of voxels. Storage is two flat buffers,
// both fully allocated up front: a solidity bitmask with one uint16 per (x,z)
// column (bit y set when cell (x,y,z) is solid) and one voxel word per cell.
// Full allocation keeps buffer addresses stable for the chunk's lifetime,
// which is what lets mesh workers hold read-only views without locks.
type Chunk struct {
	Coord ChunkCoord

	solid  [ChunkArea]uint16
	voxels [ChunkVolume]Voxel

	dirty bool
}

// NewChunk allocates an empty chunk. New chunks start dirty so the first
// scheduler pass meshes them.
func NewChunk(coord ChunkCoord) *Chunk {
	return &Chunk{Coord: coord, dirty: true}
}

// columnIndex converts local (x, z) to the solidity word index.
func columnIndex(x, z int) int { return x + z*ChunkSize }

// voxelIndex converts local (x, y, z) to the voxel buffer index.
func voxelIndex(x, y, z int) int { return x + z*ChunkSize + y*ChunkArea }

// Get returns the voxel at local (x, y, z). Callers pass masked local
// coordinates; there are no bounds checks beyond the array's own.
func (c *Chunk) Get(x, y, z int) Voxel {
	return c.voxels[voxelIndex(x, y, z)]
}

// Set writes the voxel at local (x, y, z), keeps the solidity bit in step
// and marks the chunk dirty. Writing the current value still marks dirty;
// there is no change detection at this layer.
func (c *Chunk) Set(x, y, z int, v Voxel) {
	c.voxels[voxelIndex(x, y, z)] = v
	col := columnIndex(x, z)
	if v != Air {
		c.solid[col] |= 1 << y
	} else {
		c.solid[col] &^= 1 << y
	}
	c.dirty = true
}

// IsSolid reports whether local (x, y, z) is solid. One load, one mask.
func (c *Chunk) IsSolid(x, y, z int) bool {
	return c.solid[columnIndex(x, z)]&(1<<y) != 0
}

// ColumnBits returns the solidity mask of column (x, z); bit y is layer y.
func (c *Chunk) ColumnBits(x, z int) uint16 {
	return c.solid[columnIndex(x, z)]
}

// Empty reports whether no cell of the chunk is solid.
func (c *Chunk) Empty() bool {
	for _, bits := range c.solid {
		if bits != 0 {
			return false
		}
	}
	return true
}

// IsDirty reports whether the chunk changed since it was last meshed.
func (c *Chunk) IsDirty() bool { return c.dirty }

// SetClean clears the dirty latch, called when a remesh is dispatched.
func (c *Chunk) SetClean() { c.dirty = false }

// MarkDirty sets the dirty latch without a voxel write.
func (c *Chunk) MarkDirty() { c.dirty = true }

// View returns a read-only handle on the chunk's live buffers for mesh
// workers. The simulation goroutine keeps writing while workers read; a torn
// read yields at worst a stale mesh, which the next remesh replaces.
func (c *Chunk) View() ChunkView {
	return ChunkView{Coord: c.Coord, solid: &c.solid, voxels: &c.voxels}
}

// ChunkView is the worker-side read surface of a chunk: the coordinate plus
// pointers to the live buffers. Safe to copy; never outlives its chunk.
type ChunkView struct {
	Coord  ChunkCoord
	solid  *[ChunkArea]uint16
	voxels *[ChunkVolume]Voxel
}

// Valid reports whether the view points at a real chunk.
func (v ChunkView) Valid() bool { return v.solid != nil }

// Get returns the voxel at local (x, y, z).
func (v ChunkView) Get(x, y, z int) Voxel {
	return v.voxels[voxelIndex(x, y, z)]
}

// IsSolid reports whether local (x, y, z) is solid.
func (v ChunkView) IsSolid(x, y, z int) bool {
	return v.solid[columnIndex(x, z)]&(1<<y) != 0
}
