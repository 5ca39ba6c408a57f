package world

import "testing"

func TestChunkSetGet(t *testing.T) {
	c := NewChunk(ChunkCoord{})
	v := MakeVoxel(3, 0xA1B2C3)
	c.Set(5, 9, 14, v)

	if got := c.Get(5, 9, 14); got != v {
		t.Fatalf("Get: got %#x, want %#x", got, v)
	}
	if !c.IsSolid(5, 9, 14) {
		t.Fatal("cell should be solid after non-air write")
	}
	if got := c.Get(5, 10, 14); got != Air {
		t.Fatalf("untouched cell: got %#x, want air", got)
	}

	c.Set(5, 9, 14, Air)
	if c.IsSolid(5, 9, 14) {
		t.Fatal("cell should not be solid after air write")
	}
	if got := c.Get(5, 9, 14); got != Air {
		t.Fatalf("cleared cell: got %#x, want air", got)
	}
}

func TestChunkColumnBits(t *testing.T) {
	c := NewChunk(ChunkCoord{})
	c.Set(2, 0, 7, MakeVoxel(1, 0))
	c.Set(2, 3, 7, MakeVoxel(1, 0))
	c.Set(2, 15, 7, MakeVoxel(1, 0))

	want := uint16(1)<<0 | 1<<3 | 1<<15
	if got := c.ColumnBits(2, 7); got != want {
		t.Fatalf("column bits: got %016b, want %016b", got, want)
	}
	if got := c.ColumnBits(3, 7); got != 0 {
		t.Fatalf("neighbor column bits: got %016b, want 0", got)
	}
}

func TestChunkDirtyLatch(t *testing.T) {
	c := NewChunk(ChunkCoord{})
	if !c.IsDirty() {
		t.Fatal("new chunk should start dirty")
	}
	c.SetClean()
	// Writing the same value still dirties; there is no change detection.
	c.Set(0, 0, 0, Air)
	if !c.IsDirty() {
		t.Fatal("same-value write should mark dirty")
	}
}

func TestChunkViewTracksWrites(t *testing.T) {
	c := NewChunk(ChunkCoord{X: 1})
	view := c.View()
	if !view.Valid() {
		t.Fatal("view of a live chunk should be valid")
	}

	v := MakeVoxel(2, 0x00FF00)
	c.Set(1, 2, 3, v)
	if got := view.Get(1, 2, 3); got != v {
		t.Fatalf("view read after write: got %#x, want %#x", got, v)
	}
	if !view.IsSolid(1, 2, 3) {
		t.Fatal("view should see the solidity bit")
	}
}

func TestVoxelPacking(t *testing.T) {
	v := MakeVoxel(7, 0x123456)
	if v.Block() != 7 {
		t.Fatalf("block id: got %d, want 7", v.Block())
	}
	if v.RGB() != 0x123456 {
		t.Fatalf("rgb: got %#x, want 0x123456", v.RGB())
	}
	r, g, b := MakeVoxel(1, 0xFF8000).Linear()
	if r != 1 || g != float32(0x80)/255 || b != 0 {
		t.Fatalf("linear: got (%v,%v,%v)", r, g, b)
	}
}
