package physics_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxen/internal/physics"
	"voxen/internal/world"
)

func floorWorld() *world.World {
	w := world.New()
	for x := 0; x < 4; x++ {
		for z := 0; z < 4; z++ {
			w.SetBlock(x, 0, z, world.MakeVoxel(1, 0x888888))
		}
	}
	return w
}

func TestBoxBlocked(t *testing.T) {
	w := floorWorld()

	if physics.BoxBlocked(w, mgl64.Vec3{1.2, 1.0, 1.2}, mgl64.Vec3{1.8, 2.8, 1.8}) {
		t.Error("box above the floor should be clear")
	}
	if !physics.BoxBlocked(w, mgl64.Vec3{1.2, 0.5, 1.2}, mgl64.Vec3{1.8, 2.8, 1.8}) {
		t.Error("box dipping into the floor should be blocked")
	}

	// A box straddling cell boundaries overlaps every touched cell.
	w.SetBlock(1, 1, 1, world.MakeVoxel(1, 0x888888))
	if !physics.BoxBlocked(w, mgl64.Vec3{0.5, 1, 0.5}, mgl64.Vec3{1.5, 2, 1.5}) {
		t.Error("box straddling a solid cell should be blocked")
	}
	if physics.BoxBlocked(w, mgl64.Vec3{2.1, 1, 2.1}, mgl64.Vec3{2.9, 2, 2.9}) {
		t.Error("box beside the solid cell should be clear")
	}
}

func TestBoxBlockedRestsOnSurface(t *testing.T) {
	w := floorWorld()
	// The floor tops out at y=1; a box whose bottom sits exactly there does
	// not overlap it.
	if physics.BoxBlocked(w, mgl64.Vec3{0.2, 1.0, 0.2}, mgl64.Vec3{0.8, 2.0, 0.8}) {
		t.Error("box resting exactly on the surface should be clear")
	}
}

func TestDropToGround(t *testing.T) {
	w := world.New()
	w.SetBlock(3, 5, 3, world.MakeVoxel(1, 0x888888))

	y, ok := physics.DropToGround(w, mgl64.Vec3{3.4, 9.2, 3.7}, 10)
	if !ok || y != 6 {
		t.Fatalf("got %v,%v, want surface 6", y, ok)
	}

	if _, ok := physics.DropToGround(w, mgl64.Vec3{3.4, 9.2, 3.7}, 2); ok {
		t.Error("ground beyond maxDrop should not be found")
	}
	if _, ok := physics.DropToGround(w, mgl64.Vec3{8.5, 9.2, 8.5}, 10); ok {
		t.Error("empty column should not report ground")
	}
}
