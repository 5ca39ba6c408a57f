package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxen/internal/profiling"
)

// SolidSource answers solidity queries over world coordinates.
type SolidSource interface {
	IsSolid(x, y, z int) bool
}

// DefaultEpsilon bounds how close two boundary crossings must be before the
// ray is treated as passing through an edge or corner.
const DefaultEpsilon = 1e-8

// Hit describes where a ray entered a solid cell. Position lies exactly on
// the crossed face plane, Normal points out of that face, and Adjacent is
// the empty cell on the near side. A ray that starts inside a solid cell
// reports Distance 0, a zero Normal and Adjacent equal to Cell.
type Hit struct {
	Hit      bool
	Position mgl64.Vec3
	Cell     [3]int
	Adjacent [3]int
	Normal   [3]int
	Distance float64
}

// Raycast walks the voxel grid from start along dir until it enters a solid
// cell or the walked distance exceeds maxDist. dir need not be normalized.
func Raycast(src SolidSource, start, dir mgl64.Vec3, maxDist float64) Hit {
	return RaycastEps(src, start, dir, maxDist, DefaultEpsilon)
}

// RaycastEps is Raycast with an explicit tie epsilon. The traversal advances
// cell by cell along the axis with the nearest boundary crossing. When two
// or three crossings land within eps of each other the ray grazes an edge or
// corner: each tied axis is probed on its own, nearest first, so a solid
// cell sharing only that edge cannot be skipped, and if every probe is empty
// all tied axes advance together.
func RaycastEps(src SolidSource, start, dir mgl64.Vec3, maxDist, eps float64) Hit {
	defer profiling.Track("physics.Raycast")()

	cell := [3]int{
		int(math.Floor(start.X())),
		int(math.Floor(start.Y())),
		int(math.Floor(start.Z())),
	}
	if src.IsSolid(cell[0], cell[1], cell[2]) {
		return Hit{Hit: true, Position: start, Cell: cell, Adjacent: cell}
	}
	if dir.Len() == 0 {
		return Hit{}
	}
	dir = dir.Normalize()

	var step [3]int
	var tMax, tDelta [3]float64
	for a := 0; a < 3; a++ {
		switch d := dir[a]; {
		case d > 0:
			step[a] = 1
			tMax[a] = (math.Floor(start[a]) + 1 - start[a]) / d
			tDelta[a] = 1 / d
		case d < 0:
			step[a] = -1
			tMax[a] = (start[a] - math.Floor(start[a])) / -d
			tDelta[a] = -1 / d
		default:
			tMax[a] = math.Inf(1)
			tDelta[a] = math.Inf(1)
		}
	}

	for {
		m := math.Min(tMax[0], math.Min(tMax[1], tMax[2]))
		if m > maxDist {
			return Hit{}
		}

		var tied [3]int
		n := 0
		for a := 0; a < 3; a++ {
			if tMax[a]-m <= eps {
				tied[n] = a
				n++
			}
		}
		for i := 1; i < n; i++ {
			for j := i; j > 0 && tMax[tied[j]] < tMax[tied[j-1]]; j-- {
				tied[j], tied[j-1] = tied[j-1], tied[j]
			}
		}

		for i := 0; i < n; i++ {
			a := tied[i]
			cand := cell
			cand[a] += step[a]
			if src.IsSolid(cand[0], cand[1], cand[2]) {
				return faceHit(start, dir, cand, a, step[a], tMax[a])
			}
		}

		for i := 0; i < n; i++ {
			a := tied[i]
			cell[a] += step[a]
			tMax[a] += tDelta[a]
		}
		if n > 1 && src.IsSolid(cell[0], cell[1], cell[2]) {
			// Entered diagonally; credit the face of the nearest crossing.
			return faceHit(start, dir, cell, tied[0], step[tied[0]], m)
		}
	}
}

// faceHit assembles the result for a ray entering cell through the face
// crossed on axis at distance t. The crossed coordinate is snapped exactly
// onto the face plane.
func faceHit(start, dir mgl64.Vec3, cell [3]int, axis, step int, t float64) Hit {
	pos := start.Add(dir.Mul(t))
	if step > 0 {
		pos[axis] = float64(cell[axis])
	} else {
		pos[axis] = float64(cell[axis] + 1)
	}
	var normal [3]int
	normal[axis] = -step
	adj := cell
	adj[axis] -= step
	return Hit{Hit: true, Position: pos, Cell: cell, Adjacent: adj, Normal: normal, Distance: t}
}
