package protocol

import (
	"encoding/binary"
	"reflect"
	"testing"

	"voxen/internal/meshing"
	"voxen/internal/world"
)

func sampleMesh() *meshing.Mesh {
	return &meshing.Mesh{
		Positions: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Normals:   []float32{0, 0, -1, 0, 0, -1, 0, 0, -1, 0, 0, -1},
		Colors:    []float32{1, 1, 1, 0.5, 0.25, 0.125, 0.1, 0.2, 0.3, 0, 1, 0},
		UVs:       []float32{0, 0, 0.25, 0, 0.25, 0.25, 0, 0.25},
		AO:        []float32{1, 2.0 / 3, 1.0 / 3, 0},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

func TestMeshUpdateRoundTrip(t *testing.T) {
	coord := world.ChunkCoord{X: -3, Y: 7, Z: 12}
	want := sampleMesh()

	f, err := DecodeFrame(EncodeMeshUpdate(coord, want))
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if f.Kind != FrameMeshUpdate {
		t.Fatalf("kind = %#02x, want %#02x", f.Kind, FrameMeshUpdate)
	}
	if f.Coord != coord {
		t.Fatalf("coord = %v, want %v", f.Coord, coord)
	}
	if !reflect.DeepEqual(f.Mesh, want) {
		t.Fatalf("mesh did not round-trip:\ngot  %+v\nwant %+v", f.Mesh, want)
	}
}

func TestCoordFrameRoundTrip(t *testing.T) {
	coords := []world.ChunkCoord{
		{},
		{X: 1, Y: -2, Z: 3},
		{X: -524288, Y: 524287, Z: -1},
	}
	for _, c := range coords {
		created, err := DecodeFrame(EncodeChunkCreated(c))
		if err != nil {
			t.Fatalf("decode created %v: %v", c, err)
		}
		if created.Kind != FrameChunkCreated || created.Coord != c || created.Mesh != nil {
			t.Fatalf("created frame = %+v, want coord %v", created, c)
		}

		detach, err := DecodeFrame(EncodeMeshDetach(c))
		if err != nil {
			t.Fatalf("decode detach %v: %v", c, err)
		}
		if detach.Kind != FrameMeshDetach || detach.Coord != c {
			t.Fatalf("detach frame = %+v, want coord %v", detach, c)
		}
	}
}

func TestEmptyMeshEncodes(t *testing.T) {
	for _, m := range []*meshing.Mesh{nil, {}} {
		f, err := DecodeFrame(EncodeMeshUpdate(world.ChunkCoord{X: 5}, m))
		if err != nil {
			t.Fatalf("DecodeFrame: %v", err)
		}
		if f.Mesh == nil || f.Mesh.VertexCount() != 0 || len(f.Mesh.Indices) != 0 {
			t.Fatalf("empty mesh decoded as %+v", f.Mesh)
		}
	}
}

func TestDecodeRejectsShortInput(t *testing.T) {
	for _, b := range [][]byte{nil, {}, {FrameMeshUpdate}} {
		if _, err := DecodeFrame(b); err == nil {
			t.Fatalf("DecodeFrame(%v) succeeded, want error", b)
		}
	}
}

func TestDecodeRejectsGarbageBody(t *testing.T) {
	if _, err := DecodeFrame([]byte{FrameMeshUpdate, 0xDE, 0xAD, 0xBE, 0xEF}); err == nil {
		t.Fatal("garbage body decoded")
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	b := EncodeChunkCreated(world.ChunkCoord{X: 1})
	b[0] = 0x7F
	if _, err := DecodeFrame(b); err == nil {
		t.Fatal("unknown kind decoded")
	}
}

func TestDecodeRejectsTruncatedMesh(t *testing.T) {
	// Claims four vertices and six indices but carries no buffers.
	var head [16]byte
	binary.LittleEndian.PutUint64(head[0:], uint64(world.ChunkCoord{X: 2}.Key()))
	binary.LittleEndian.PutUint32(head[8:], 4)
	binary.LittleEndian.PutUint32(head[12:], 6)
	if _, err := DecodeFrame(compressFrame(FrameMeshUpdate, head[:])); err == nil {
		t.Fatal("truncated mesh decoded")
	}
}

func TestDecodeRejectsOversizedCounts(t *testing.T) {
	var head [16]byte
	binary.LittleEndian.PutUint64(head[0:], uint64(world.ChunkCoord{}.Key()))
	binary.LittleEndian.PutUint32(head[8:], maxFrameVertices+1)
	if _, err := DecodeFrame(compressFrame(FrameMeshUpdate, head[:])); err == nil {
		t.Fatal("oversized mesh decoded")
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	var body [9]byte
	binary.LittleEndian.PutUint64(body[:8], uint64(world.ChunkCoord{}.Key()))
	if _, err := DecodeFrame(compressFrame(FrameMeshDetach, body[:])); err == nil {
		t.Fatal("trailing bytes accepted")
	}
}

func BenchmarkEncodeMeshUpdate(b *testing.B) {
	m := &meshing.Mesh{}
	for i := 0; i < 1024; i++ {
		base := uint32(4 * i)
		x := float32(i % 16)
		z := float32(i / 16)
		m.Positions = append(m.Positions, x, 0, z, x+1, 0, z, x+1, 0, z+1, x, 0, z+1)
		m.Normals = append(m.Normals, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0)
		m.Colors = append(m.Colors, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1)
		m.UVs = append(m.UVs, 0, 0, 1, 0, 1, 1, 0, 1)
		m.AO = append(m.AO, 1, 1, 1, 1)
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	coord := world.ChunkCoord{X: 4, Y: 1, Z: -2}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if out := EncodeMeshUpdate(coord, m); len(out) == 0 {
			b.Fatal("empty frame")
		}
	}
}
