package world

import "testing"

func TestWorldAbsentReadsAir(t *testing.T) {
	w := New()
	if got := w.GetBlock(100, -50, 7); got != Air {
		t.Fatalf("absent chunk read: got %#x, want air", got)
	}
	if w.IsSolid(100, -50, 7) {
		t.Fatal("absent chunk should not be solid")
	}
	if w.Count() != 0 {
		t.Fatalf("reads must not materialize chunks, have %d", w.Count())
	}
}

func TestWorldSetGetAcrossChunks(t *testing.T) {
	w := New()
	v := MakeVoxel(1, 0xCC8844)
	points := [][3]int{{0, 0, 0}, {15, 15, 15}, {16, 0, 0}, {-1, -1, -1}, {-16, 31, -33}}
	for _, p := range points {
		w.SetBlock(p[0], p[1], p[2], v)
	}
	for _, p := range points {
		if got := w.GetBlock(p[0], p[1], p[2]); got != v {
			t.Fatalf("get %v: got %#x, want %#x", p, got, v)
		}
		if !w.IsSolid(p[0], p[1], p[2]) {
			t.Fatalf("cell %v should be solid", p)
		}
	}
	// (0,0,0) and (15,15,15) share a chunk; the rest are distinct.
	if w.Count() != 4 {
		t.Fatalf("chunk count: got %d, want 4", w.Count())
	}
}

func TestWorldLookupDoesNotCreate(t *testing.T) {
	w := New()
	if w.Lookup(5, 5, 5) != nil {
		t.Fatal("lookup of an absent position should be nil")
	}
	w.SetBlock(5, 5, 5, MakeVoxel(1, 0))
	ch := w.Lookup(5, 5, 5)
	if ch == nil || ch.Coord != (ChunkCoord{0, 0, 0}) {
		t.Fatalf("lookup after write: got %v", ch)
	}
	if w.Lookup(-5, 5, 5) != nil {
		t.Fatal("neighbor chunk should still be absent")
	}
	if w.Count() != 1 {
		t.Fatalf("lookups must not materialize chunks, have %d", w.Count())
	}
}

func TestWorldChunkCreatedHook(t *testing.T) {
	w := New()
	var created []ChunkCoord
	w.OnChunkCreated(func(c *Chunk) {
		created = append(created, c.Coord)
	})

	w.SetBlock(1, 1, 1, MakeVoxel(1, 0))
	w.SetBlock(2, 2, 2, MakeVoxel(1, 0)) // same chunk, no new event
	w.SetBlock(-1, 0, 0, Air)            // air write still materializes

	if len(created) != 2 {
		t.Fatalf("created events: got %d, want 2", len(created))
	}
	if created[0] != (ChunkCoord{0, 0, 0}) || created[1] != (ChunkCoord{-1, 0, 0}) {
		t.Fatalf("created coords: got %v", created)
	}
}

type recordingListener struct {
	voxels  [][3]int
	batches int
	edits   int
	touched []ChunkCoord
}

func (r *recordingListener) VoxelChanged(x, y, z int) {
	r.voxels = append(r.voxels, [3]int{x, y, z})
}

func (r *recordingListener) BatchApplied(edits []Edit, touched []ChunkCoord) {
	r.batches++
	r.edits += len(edits)
	r.touched = append(r.touched[:0], touched...)
}

func TestWorldListenerNotifications(t *testing.T) {
	w := New()
	rec := &recordingListener{}
	w.SetChangeListener(rec)

	w.SetBlock(3, 4, 5, MakeVoxel(1, 0))
	if len(rec.voxels) != 1 || rec.voxels[0] != [3]int{3, 4, 5} {
		t.Fatalf("voxel notifications: got %v", rec.voxels)
	}

	edits := []Edit{
		{X: 0, Y: 0, Z: 0, V: MakeVoxel(1, 0)},
		{X: 16, Y: 0, Z: 0, V: MakeVoxel(1, 0)},
		{X: 17, Y: 0, Z: 0, V: Air},
	}
	if n := w.Apply(edits); n != 3 {
		t.Fatalf("apply count: got %d, want 3", n)
	}
	if rec.batches != 1 || rec.edits != 3 {
		t.Fatalf("batch notifications: got %d batches with %d edits", rec.batches, rec.edits)
	}
	if len(rec.touched) != 2 {
		t.Fatalf("touched chunks: got %v, want 2 coords", rec.touched)
	}
}
