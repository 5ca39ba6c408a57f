package meshing

import (
	"voxen/internal/profiling"
	"voxen/internal/registry"
	"voxen/internal/world"
)

// faceSpec drives quad emission for one of the six face directions. Corner
// offsets are relative to the owning cell's min corner and wind CCW seen
// from outside. East and north run the tile's u axis against their in-plane
// axis; without that mirror those two faces render their tiles flipped.
type faceSpec struct {
	face    world.Face
	normal  [3]int
	corners [4][3]int
	uvs     [4][2]float32
	// in-plane axes (0=x 1=y 2=z) used for occlusion sampling
	axisU, axisV int
}

var faceSpecs = [world.FaceCount]faceSpec{
	{ // +X
		face:    world.FaceEast,
		normal:  [3]int{1, 0, 0},
		corners: [4][3]int{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
		uvs:     [4][2]float32{{1, 1}, {1, 0}, {0, 0}, {0, 1}},
		axisU:   1, axisV: 2,
	},
	{ // -X
		face:    world.FaceWest,
		normal:  [3]int{-1, 0, 0},
		corners: [4][3]int{{0, 0, 1}, {0, 1, 1}, {0, 1, 0}, {0, 0, 0}},
		uvs:     [4][2]float32{{1, 1}, {1, 0}, {0, 0}, {0, 1}},
		axisU:   1, axisV: 2,
	},
	{ // +Y
		face:    world.FaceTop,
		normal:  [3]int{0, 1, 0},
		corners: [4][3]int{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}},
		uvs:     [4][2]float32{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
		axisU:   0, axisV: 2,
	},
	{ // -Y
		face:    world.FaceBottom,
		normal:  [3]int{0, -1, 0},
		corners: [4][3]int{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
		uvs:     [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}},
		axisU:   0, axisV: 2,
	},
	{ // +Z
		face:    world.FaceSouth,
		normal:  [3]int{0, 0, 1},
		corners: [4][3]int{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
		uvs:     [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}},
		axisU:   0, axisV: 1,
	},
	{ // -Z
		face:    world.FaceNorth,
		normal:  [3]int{0, 0, -1},
		corners: [4][3]int{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}},
		uvs:     [4][2]float32{{1, 1}, {1, 0}, {0, 0}, {0, 1}},
		axisU:   0, axisV: 1,
	},
}

// specFor maps a march axis and direction sign onto the face table.
var specFor = [3][2]*faceSpec{
	{&faceSpecs[world.FaceWest], &faceSpecs[world.FaceEast]},
	{&faceSpecs[world.FaceBottom], &faceSpecs[world.FaceTop]},
	{&faceSpecs[world.FaceNorth], &faceSpecs[world.FaceSouth]},
}

// BuildMesh builds the culled quad mesh for one chunk. Along each axis the
// marcher walks the boundary planes from local -1 to ChunkSize-1, comparing
// the two cells that meet there: exactly one solid means a face, owned by
// the solid cell. Faces owned by cells outside the chunk belong to the
// neighbor's mesh and are skipped here. Own-cell solidity comes straight off
// the view's buffers; halo and occlusion samples go through src, which
// resolves neighbor chunks.
//
// Identical voxel state always produces byte-identical output: the march
// order is fixed and nothing iterates a map.
func BuildMesh(view world.ChunkView, src VoxelSource, reg *registry.Registry) *Mesh {
	defer profiling.Track("meshing.BuildMesh")()
	m := newMesh()
	if !view.Valid() {
		return m
	}
	ox, oy, oz := view.Coord.Origin()

	// solidAt reads local coordinates, falling back to src for the halo.
	solidAt := func(lx, ly, lz int) bool {
		if uint(lx) < world.ChunkSize && uint(ly) < world.ChunkSize && uint(lz) < world.ChunkSize {
			return view.IsSolid(lx, ly, lz)
		}
		return src.IsSolid(ox+lx, oy+ly, oz+lz)
	}

	for axis := 0; axis < 3; axis++ {
		for u := 0; u < world.ChunkSize; u++ {
			for v := 0; v < world.ChunkSize; v++ {
				var lx, ly, lz int
				for i := -1; i < world.ChunkSize; i++ {
					switch axis {
					case 0:
						lx, ly, lz = i, u, v
					case 1:
						lx, ly, lz = u, i, v
					default:
						lx, ly, lz = u, v, i
					}
					nx, ny, nz := lx, ly, lz
					switch axis {
					case 0:
						nx++
					case 1:
						ny++
					default:
						nz++
					}

					sA := solidAt(lx, ly, lz)
					sB := solidAt(nx, ny, nz)
					if sA == sB {
						continue
					}

					// Owner is the solid side; skip when it lies outside
					// this chunk (the neighbor chunk emits that face).
					if sA {
						if i < 0 {
							continue
						}
						m.emitFace(view, src, reg, ox+lx, oy+ly, oz+lz, specFor[axis][1])
					} else {
						if i+1 >= world.ChunkSize {
							continue
						}
						m.emitFace(view, src, reg, ox+nx, oy+ny, oz+nz, specFor[axis][0])
					}
				}
			}
		}
	}
	return m
}

// emitFace appends one quad owned by the solid cell at world (wx, wy, wz).
func (m *Mesh) emitFace(view world.ChunkView, src VoxelSource, reg *registry.Registry, wx, wy, wz int, spec *faceSpec) {
	lx, ly, lz := world.Local(wx, wy, wz)
	vox := view.Get(lx, ly, lz)
	id := vox.Block()
	mode := reg.Mode(id)
	if mode == registry.ModeInvisible {
		return
	}

	var cr, cg, cb float32 = 1, 1, 1
	var rect registry.Rect
	if mode == registry.ModeFlatColor {
		cr, cg, cb = vox.Linear()
	} else {
		rect, _ = reg.FaceUV(id, spec.face)
		// missing tiles leave the zero rect: degenerate UVs, not a failure
	}

	// Occlusion samples live on the plane one step along the face normal.
	px := wx + spec.normal[0]
	py := wy + spec.normal[1]
	pz := wz + spec.normal[2]

	var ao [4]float32
	for k, corner := range spec.corners {
		su := corner[spec.axisU]*2 - 1
		sv := corner[spec.axisV]*2 - 1

		var e1, e2, e3 [3]int
		e1[spec.axisU] = su
		e2[spec.axisV] = sv
		e3[spec.axisU] = su
		e3[spec.axisV] = sv

		side1 := src.IsSolid(px+e1[0], py+e1[1], pz+e1[2])
		side2 := src.IsSolid(px+e2[0], py+e2[1], pz+e2[2])
		diag := src.IsSolid(px+e3[0], py+e3[1], pz+e3[2])
		ao[k] = vertexAO(side1, side2, diag)
	}

	base := uint32(len(m.Positions) / 3)
	for k, corner := range spec.corners {
		m.Positions = append(m.Positions,
			float32(wx+corner[0]), float32(wy+corner[1]), float32(wz+corner[2]))
		m.Normals = append(m.Normals,
			float32(spec.normal[0]), float32(spec.normal[1]), float32(spec.normal[2]))
		m.Colors = append(m.Colors, cr, cg, cb)
		if rect.Zero() {
			m.UVs = append(m.UVs, 0, 0)
		} else {
			m.UVs = append(m.UVs,
				rect.U0+spec.uvs[k][0]*(rect.U1-rect.U0),
				rect.V0+spec.uvs[k][1]*(rect.V1-rect.V0))
		}
		m.AO = append(m.AO, ao[k])
	}

	// The default diagonal joins corners 0-2; flip to 1-3 when its AO sum is
	// larger, so interpolation follows the darker crease and the quad shades
	// without the classic banding artifact.
	if ao[0]+ao[2] > ao[1]+ao[3] {
		m.Indices = append(m.Indices,
			base+1, base+2, base+3,
			base+1, base+3, base+0)
	} else {
		m.Indices = append(m.Indices,
			base+0, base+1, base+2,
			base+0, base+2, base+3)
	}
}

// vertexAO grades one corner by its three plane neighbors. Both edge
// neighbors solid forces full occlusion regardless of the diagonal: the
// corner is visually a crease even though the diagonal cell may be open.
func vertexAO(side1, side2, diag bool) float32 {
	if side1 && side2 {
		return 0
	}
	n := 0
	if side1 {
		n++
	}
	if side2 {
		n++
	}
	if diag {
		n++
	}
	return float32(3-n) / 3
}
