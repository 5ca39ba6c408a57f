package world

import "fmt"

// Chunk dimensions. ChunkSize is a power of two so world coordinates split
// into chunk and local parts with shifts and masks.
const (
	ChunkSize  = 16
	ChunkShift = 4
	ChunkMask  = ChunkSize - 1

	ChunkArea   = ChunkSize * ChunkSize
	ChunkVolume = ChunkSize * ChunkSize * ChunkSize
)

// ChunkCoord addresses a chunk in chunk space.
type ChunkCoord struct {
	X, Y, Z int32
}

// Coord returns the chunk owning world position (x, y, z). Arithmetic shift
// keeps negative coordinates on the correct side of zero.
func Coord(x, y, z int) ChunkCoord {
	return ChunkCoord{int32(x >> ChunkShift), int32(y >> ChunkShift), int32(z >> ChunkShift)}
}

// Local returns coordinates relative to the owning chunk origin, each in
// [0, ChunkSize).
func Local(x, y, z int) (int, int, int) {
	return x & ChunkMask, y & ChunkMask, z & ChunkMask
}

// Split combines Coord and Local in one call.
func Split(x, y, z int) (ChunkCoord, int, int, int) {
	return Coord(x, y, z), x & ChunkMask, y & ChunkMask, z & ChunkMask
}

// Origin returns the world position of the chunk's (0,0,0) cell.
func (c ChunkCoord) Origin() (int, int, int) {
	return int(c.X) << ChunkShift, int(c.Y) << ChunkShift, int(c.Z) << ChunkShift
}

// Offset returns the coordinate displaced by (dx, dy, dz) chunks.
func (c ChunkCoord) Offset(dx, dy, dz int32) ChunkCoord {
	return ChunkCoord{c.X + dx, c.Y + dy, c.Z + dz}
}

// keyOffset shifts each axis into 20 unsigned bits, so Key covers chunk
// coordinates in [-524288, 524287].
const keyOffset = 1 << 19

// Key packs the coordinate into a single int64, 20 bits per axis. Stable
// across runs; used as the wire identifier for chunks.
func (c ChunkCoord) Key() int64 {
	return int64(c.X+keyOffset) | int64(c.Y+keyOffset)<<20 | int64(c.Z+keyOffset)<<40
}

// CoordFromKey is the inverse of Key.
func CoordFromKey(k int64) ChunkCoord {
	return ChunkCoord{
		X: int32(k&0xFFFFF) - keyOffset,
		Y: int32((k>>20)&0xFFFFF) - keyOffset,
		Z: int32((k>>40)&0xFFFFF) - keyOffset,
	}
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}
