package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"voxen/internal/meshing"
	"voxen/internal/world"
)

// Frame kinds on the binary mesh stream. Each websocket binary message is one
// frame: the kind byte followed by a zstd-compressed little-endian body.
const (
	FrameChunkCreated byte = 0x01
	FrameMeshUpdate   byte = 0x02
	FrameMeshDetach   byte = 0x03
)

// Geometry bounds for a well-formed frame: six faces of four vertices each
// for every cell of a chunk.
const (
	maxFrameVertices = world.ChunkVolume * 24
	maxFrameIndices  = world.ChunkVolume * 36
)

// Frame is a decoded binary message. Mesh is set for FrameMeshUpdate only.
type Frame struct {
	Kind  byte
	Coord world.ChunkCoord
	Mesh  *meshing.Mesh
}

// EncodeAll/DecodeAll keep no state between calls, so one encoder and one
// decoder serve all sessions.
var (
	frameEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	frameDecoder, _ = zstd.NewReader(nil)
)

// EncodeChunkCreated announces a chunk the subscriber has not seen yet.
func EncodeChunkCreated(c world.ChunkCoord) []byte {
	return encodeCoordFrame(FrameChunkCreated, c)
}

// EncodeMeshDetach tells subscribers to drop a chunk's mesh.
func EncodeMeshDetach(c world.ChunkCoord) []byte {
	return encodeCoordFrame(FrameMeshDetach, c)
}

func encodeCoordFrame(kind byte, c world.ChunkCoord) []byte {
	var body [8]byte
	binary.LittleEndian.PutUint64(body[:], uint64(c.Key()))
	return compressFrame(kind, body[:])
}

// EncodeMeshUpdate packs a full chunk mesh: coord key, vertex and index
// counts, then the vertex buffers in mesh field order.
func EncodeMeshUpdate(c world.ChunkCoord, m *meshing.Mesh) []byte {
	if m == nil {
		m = &meshing.Mesh{}
	}
	var buf bytes.Buffer
	buf.Grow(16 + 4*(12*m.VertexCount()+len(m.Indices)))

	var head [16]byte
	binary.LittleEndian.PutUint64(head[0:], uint64(c.Key()))
	binary.LittleEndian.PutUint32(head[8:], uint32(m.VertexCount()))
	binary.LittleEndian.PutUint32(head[12:], uint32(len(m.Indices)))
	buf.Write(head[:])

	// binary.Write cannot fail writing fixed-size slices to a bytes.Buffer.
	_ = binary.Write(&buf, binary.LittleEndian, m.Positions)
	_ = binary.Write(&buf, binary.LittleEndian, m.Normals)
	_ = binary.Write(&buf, binary.LittleEndian, m.Colors)
	_ = binary.Write(&buf, binary.LittleEndian, m.UVs)
	_ = binary.Write(&buf, binary.LittleEndian, m.AO)
	_ = binary.Write(&buf, binary.LittleEndian, m.Indices)

	return compressFrame(FrameMeshUpdate, buf.Bytes())
}

func compressFrame(kind byte, body []byte) []byte {
	out := make([]byte, 1, 1+len(body)/2)
	out[0] = kind
	return frameEncoder.EncodeAll(body, out)
}

// DecodeFrame parses one binary message back into its event form.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < 2 {
		return Frame{}, fmt.Errorf("protocol: frame too short (%d bytes)", len(b))
	}
	kind := b[0]
	body, err := frameDecoder.DecodeAll(b[1:], nil)
	if err != nil {
		return Frame{}, fmt.Errorf("protocol: frame %#02x: %w", kind, err)
	}
	r := bytes.NewReader(body)

	var key uint64
	if err := binary.Read(r, binary.LittleEndian, &key); err != nil {
		return Frame{}, fmt.Errorf("protocol: frame %#02x: %w", kind, err)
	}
	f := Frame{Kind: kind, Coord: world.CoordFromKey(int64(key))}

	switch kind {
	case FrameChunkCreated, FrameMeshDetach:
		if r.Len() != 0 {
			return Frame{}, fmt.Errorf("protocol: frame %#02x has %d trailing bytes", kind, r.Len())
		}
		return f, nil
	case FrameMeshUpdate:
	default:
		return Frame{}, fmt.Errorf("protocol: unknown frame kind %#02x", kind)
	}

	var vcount, icount uint32
	if err := binary.Read(r, binary.LittleEndian, &vcount); err != nil {
		return Frame{}, fmt.Errorf("protocol: mesh frame: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &icount); err != nil {
		return Frame{}, fmt.Errorf("protocol: mesh frame: %w", err)
	}
	if vcount > maxFrameVertices || icount > maxFrameIndices {
		return Frame{}, fmt.Errorf("protocol: mesh frame claims %d vertices, %d indices", vcount, icount)
	}

	m := &meshing.Mesh{
		Positions: make([]float32, 3*vcount),
		Normals:   make([]float32, 3*vcount),
		Colors:    make([]float32, 3*vcount),
		UVs:       make([]float32, 2*vcount),
		AO:        make([]float32, vcount),
		Indices:   make([]uint32, icount),
	}
	for _, dst := range []any{m.Positions, m.Normals, m.Colors, m.UVs, m.AO, m.Indices} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return Frame{}, fmt.Errorf("protocol: mesh frame: %w", err)
		}
	}
	if r.Len() != 0 {
		return Frame{}, fmt.Errorf("protocol: mesh frame has %d trailing bytes", r.Len())
	}
	f.Mesh = m
	return f, nil
}
