package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BoxBlocked reports whether any solid cell overlaps the axis-aligned box
// spanning [min, max). Cell (x, y, z) occupies [x, x+1) on each axis.
func BoxBlocked(src SolidSource, min, max mgl64.Vec3) bool {
	var lo, hi [3]int
	for a := 0; a < 3; a++ {
		lo[a] = int(math.Floor(min[a]))
		hi[a] = int(math.Ceil(max[a])) - 1
	}
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				if src.IsSolid(x, y, z) {
					return true
				}
			}
		}
	}
	return false
}

// DropToGround scans straight down from pos for the nearest solid cell,
// looking at most maxDrop below. It returns the height of that cell's top
// face, where a standing box would rest.
func DropToGround(src SolidSource, pos mgl64.Vec3, maxDrop float64) (float64, bool) {
	x := int(math.Floor(pos.X()))
	z := int(math.Floor(pos.Z()))
	top := int(math.Floor(pos.Y()))
	bottom := int(math.Floor(pos.Y() - maxDrop))
	for y := top; y >= bottom; y-- {
		if src.IsSolid(x, y, z) {
			return float64(y + 1), true
		}
	}
	return 0, false
}
