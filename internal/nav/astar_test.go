package nav

import "testing"

// grid is a sparse solidity map for tests.
type grid map[Cell]bool

func (g grid) IsSolid(x, y, z int) bool { return g[Cell{x, y, z}] }

func (g grid) floor(x0, x1, z0, z1, y int) {
	for x := x0; x <= x1; x++ {
		for z := z0; z <= z1; z++ {
			g[Cell{x, y, z}] = true
		}
	}
}

func checkContinuous(t *testing.T, path []Cell) {
	t.Helper()
	for i := 1; i < len(path); i++ {
		dx := abs(path[i].X - path[i-1].X)
		dy := abs(path[i].Y - path[i-1].Y)
		dz := abs(path[i].Z - path[i-1].Z)
		if dx+dz != 1 || dy > 1 {
			t.Fatalf("illegal move %v -> %v", path[i-1], path[i])
		}
	}
}

func TestFindStraightLine(t *testing.T) {
	g := grid{}
	g.floor(0, 5, 0, 0, 0)

	path, ok := Find(g, Cell{0, 1, 0}, Cell{5, 1, 0}, Options{})
	if !ok {
		t.Fatal("no path found")
	}
	if len(path) != 6 || path[0] != (Cell{0, 1, 0}) || path[5] != (Cell{5, 1, 0}) {
		t.Fatalf("path: %v", path)
	}
	checkContinuous(t, path)
}

func TestFindClimbsSteps(t *testing.T) {
	g := grid{}
	g.floor(0, 2, 0, 0, 0)
	g[Cell{3, 1, 0}] = true // one step up

	path, ok := Find(g, Cell{0, 1, 0}, Cell{3, 2, 0}, Options{})
	if !ok {
		t.Fatal("no path found")
	}
	if len(path) != 4 {
		t.Fatalf("path: %v, want 4 cells ending in a climb", path)
	}
	checkContinuous(t, path)
}

func TestFindDetoursAroundWall(t *testing.T) {
	g := grid{}
	g.floor(0, 4, 0, 4, 0)
	// A two-high wall across x=2, with a gap at z=4.
	for z := 0; z <= 3; z++ {
		g[Cell{2, 1, z}] = true
		g[Cell{2, 2, z}] = true
	}

	path, ok := Find(g, Cell{0, 1, 2}, Cell{4, 1, 2}, Options{})
	if !ok {
		t.Fatal("no path found")
	}
	if len(path) != 9 {
		t.Fatalf("path length: got %d (%v), want the 9-cell detour", len(path), path)
	}
	for _, c := range path {
		if c.X == 2 && c.Z != 4 {
			t.Fatalf("path crosses the wall at %v", c)
		}
	}
	checkContinuous(t, path)
}

func TestFindUnreachable(t *testing.T) {
	g := grid{}
	g.floor(0, 1, 0, 1, 0)
	g.floor(5, 6, 5, 6, 0)

	if _, ok := Find(g, Cell{0, 1, 0}, Cell{5, 1, 5}, Options{}); ok {
		t.Fatal("found a path across the gap")
	}
}

func TestFindRespectsNodeBudget(t *testing.T) {
	g := grid{}
	g.floor(0, 200, 0, 0, 0)

	if _, ok := Find(g, Cell{0, 1, 0}, Cell{200, 1, 0}, Options{MaxNodes: 10}); ok {
		t.Fatal("found a path despite the node budget")
	}
}

func TestFindRespectsHeadroom(t *testing.T) {
	g := grid{}
	g.floor(0, 5, 0, 0, 0)
	// A lintel over x=2..3 leaves only one cell of clearance.
	g[Cell{2, 2, 0}] = true
	g[Cell{3, 2, 0}] = true

	if _, ok := Find(g, Cell{0, 1, 0}, Cell{5, 1, 0}, Options{}); ok {
		t.Fatal("two-cell walker fit through a one-cell tunnel")
	}
	path, ok := Find(g, Cell{0, 1, 0}, Cell{5, 1, 0}, Options{Headroom: 1})
	if !ok {
		t.Fatal("one-cell walker should fit")
	}
	if len(path) != 6 {
		t.Fatalf("path: %v, want the straight line", path)
	}
}

func TestFindEndpointChecks(t *testing.T) {
	g := grid{}
	g.floor(0, 2, 0, 0, 0)

	if path, ok := Find(g, Cell{1, 1, 0}, Cell{1, 1, 0}, Options{}); !ok || len(path) != 1 {
		t.Fatalf("same-cell path: %v, %v", path, ok)
	}
	if _, ok := Find(g, Cell{1, 3, 0}, Cell{2, 1, 0}, Options{}); ok {
		t.Fatal("floating start should fail")
	}
	if _, ok := Find(g, Cell{1, 1, 0}, Cell{9, 1, 9}, Options{}); ok {
		t.Fatal("unsupported goal should fail")
	}
}
