// Command voxen-carve terraforms a scratch world headlessly, ticks the
// engine until the mesh pipeline settles, then reports what the probes and
// the pathfinder see. Useful as a smoke run without a feed client.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxen/internal/config"
	"voxen/internal/engine"
	"voxen/internal/nav"
	"voxen/internal/physics"
	"voxen/internal/profiling"
	"voxen/internal/registry"
	"voxen/internal/world"
)

func main() {
	var (
		workers  = flag.Int("workers", 3, "mesh worker count")
		maxTicks = flag.Int("max-ticks", 5000, "tick cap while waiting for the mesh pipeline to settle")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[carve] ", log.LstdFlags|log.Lmicroseconds)

	cfg := config.Default()
	cfg.Workers = *workers
	cfg.ActiveRadius = 16
	// Batch profile: no reason to smooth remeshes over time here.
	cfg.RemeshPerSecond = 100000
	cfg.RemeshBurst = 1024

	reg := registry.Default()
	eng := engine.New(cfg, reg, logger)
	defer eng.Close()

	stone := mustVoxel(reg, registry.StoneID)
	grass := mustVoxel(reg, registry.GrassID)

	eng.SetActor(mgl64.Vec3{0, 12, 0})

	// Plateau with a grass skin.
	eng.Fill(engine.Box{Min: [3]int{-40, 0, -40}, Max: [3]int{40, 6, 40}}, stone)
	eng.Fill(engine.Box{Min: [3]int{-40, 7, -40}, Max: [3]int{40, 7, 40}}, grass)

	// A bowl-shaped crater. Centering the sphere above the surface keeps the
	// walls terraced in single steps, so walkers can descend it.
	carved := carveSphere(eng, [3]int{0, 10, 0}, 7)
	logger.Printf("crater carved: %d cells", carved)

	// A trench across the full plateau, two deep, and a tunnel into the
	// west face.
	eng.Carve(engine.Box{Min: [3]int{-40, 6, 18}, Max: [3]int{40, 7, 20}})
	eng.Carve(engine.Box{Min: [3]int{-40, 1, -1}, Max: [3]int{-10, 3, 1}})

	start := time.Now()
	ticks := 0
	for ; ticks < *maxTicks && !eng.Quiescent(); ticks++ {
		eng.Tick(0)
		time.Sleep(time.Millisecond)
	}
	if !eng.Quiescent() {
		logger.Fatalf("pipeline still busy after %d ticks", ticks)
	}
	st := eng.Stats()
	logger.Printf("settled after %d ticks in %v: %d chunks, %d meshes, %d edits",
		ticks, time.Since(start).Round(time.Millisecond), st.Chunks, st.Meshes, st.EditsApplied)

	src := eng.World()

	// Straight down into the bowl; the floor sits well below the old surface.
	down := physics.Raycast(src, mgl64.Vec3{0.5, 40, 0.5}, mgl64.Vec3{0, -1, 0}, 64)
	if !down.Hit {
		logger.Fatalf("down probe missed the crater floor")
	}
	logger.Printf("crater floor: cell %v, face y=%.0f, distance %.1f", down.Cell, down.Position.Y(), down.Distance)

	// Along the tunnel; the ray clears the carved length and stops at the
	// back wall.
	back := physics.Raycast(src, mgl64.Vec3{-39.5, 2.5, 0.5}, mgl64.Vec3{1, 0, 0}, 80)
	if !back.Hit {
		logger.Fatalf("tunnel probe ran out the far side")
	}
	logger.Printf("tunnel back wall: cell %v, normal %v, depth %.1f", back.Cell, back.Normal, back.Distance)

	if h, ok := physics.DropToGround(src, mgl64.Vec3{20.5, 30, 10.5}, 40); ok {
		logger.Printf("ground under (20.5, 30, 10.5): y=%.0f", h)
	} else {
		logger.Fatalf("drop probe found no ground")
	}

	open := !physics.BoxBlocked(src, mgl64.Vec3{0.2, 3, 0.2}, mgl64.Vec3{0.8, 4.8, 0.8})
	buried := physics.BoxBlocked(src, mgl64.Vec3{30, 5, 30}, mgl64.Vec3{30.6, 6.8, 30.6})
	logger.Printf("walker box in bowl clear=%t, box inside plateau blocked=%t", open, buried)

	// Rim to rim: the cheapest route descends the terraces and climbs out
	// the far side.
	if path, ok := nav.Find(src, nav.Cell{X: -12, Y: 8, Z: 0}, nav.Cell{X: 12, Y: 8, Z: 0}, nav.Options{}); ok {
		low := path[0].Y
		for _, c := range path {
			if c.Y < low {
				low = c.Y
			}
		}
		logger.Printf("rim-to-rim path: %d cells, lowest feet y=%d", len(path), low)
	} else {
		logger.Fatalf("rim-to-rim path not found")
	}

	// The trench is two deep with no way around, so the far strip is
	// unreachable on foot.
	if _, ok := nav.Find(src, nav.Cell{X: -20, Y: 8, Z: -20}, nav.Cell{X: 0, Y: 8, Z: 30}, nav.Options{}); ok {
		logger.Fatalf("path crossed the trench; it should not be walkable")
	}
	logger.Printf("far strip unreachable across the trench, as expected")

	logger.Printf("hot sections: %s", profiling.TopN(5))
}

// carveSphere clears every solid cell within r of center as one batch.
// Already-air cells are skipped so sky chunks never materialize.
func carveSphere(eng *engine.Engine, center [3]int, r int) int {
	src := eng.World()
	edits := make([]world.Edit, 0, 4*r*r*r)
	for x := center[0] - r; x <= center[0]+r; x++ {
		for y := center[1] - r; y <= center[1]+r; y++ {
			for z := center[2] - r; z <= center[2]+r; z++ {
				dx, dy, dz := x-center[0], y-center[1], z-center[2]
				if dx*dx+dy*dy+dz*dz > r*r {
					continue
				}
				if src.GetBlock(x, y, z) == world.Air {
					continue
				}
				edits = append(edits, world.Edit{X: x, Y: y, Z: z, V: world.Air})
			}
		}
	}
	return eng.Apply(edits)
}

func mustVoxel(reg *registry.Registry, id world.BlockID) world.Voxel {
	def, ok := reg.Get(id)
	if !ok {
		panic("missing built-in block")
	}
	return def.Voxel()
}
