package meshing

import "voxen/internal/world"

// VoxelSource supplies voxel state in world coordinates. Lookups may cross
// chunk borders; the pool's workers back this with their registered view
// tables, tests and the simulation goroutine back it with a World.
type VoxelSource interface {
	GetBlock(x, y, z int) world.Voxel
	IsSolid(x, y, z int) bool
}

// Mesh is one chunk's worth of renderable geometry: indexed quads with
// per-vertex position, normal, color, atlas UV and baked ambient occlusion.
// Slices are sliced to their used length; an empty mesh means the chunk has
// nothing to draw and its previous mesh should be detached.
type Mesh struct {
	Positions []float32 // 3 per vertex
	Normals   []float32 // 3 per vertex
	Colors    []float32 // 3 per vertex, linear rgb
	UVs       []float32 // 2 per vertex, zeroed when the atlas has no tile
	AO        []float32 // 1 per vertex, in {0, 1/3, 2/3, 1}
	Indices   []uint32  // 6 per face, two CCW triangles
}

// VertexCount returns the number of vertices in the mesh.
func (m *Mesh) VertexCount() int { return len(m.Positions) / 3 }

// FaceCount returns the number of quads in the mesh.
func (m *Mesh) FaceCount() int { return len(m.Indices) / 6 }

// Empty reports whether the mesh carries no geometry.
func (m *Mesh) Empty() bool { return m == nil || len(m.Indices) == 0 }

func newMesh() *Mesh {
	const quads = 64 // starting capacity, append grows busy chunks
	return &Mesh{
		Positions: make([]float32, 0, quads*4*3),
		Normals:   make([]float32, 0, quads*4*3),
		Colors:    make([]float32, 0, quads*4*3),
		UVs:       make([]float32, 0, quads*4*2),
		AO:        make([]float32, 0, quads*4),
		Indices:   make([]uint32, 0, quads*6),
	}
}
