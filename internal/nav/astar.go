// Package nav finds walking paths over the voxel grid. It consumes only the
// solidity query and is deliberately small: no smoothing, no caching, fixed
// neighbor order so identical worlds produce identical paths.
package nav

import "container/heap"

// SolidSource answers solidity queries over world coordinates.
type SolidSource interface {
	IsSolid(x, y, z int) bool
}

// Cell is a walker position addressed like a voxel; the walker's feet occupy
// the cell and its support is the cell below.
type Cell struct {
	X, Y, Z int
}

// Options bound a search.
type Options struct {
	// MaxNodes caps expanded cells before the search gives up.
	MaxNodes int
	// Headroom is how many clear cells a walker needs, feet included.
	Headroom int
}

const (
	DefaultMaxNodes = 8192
	DefaultHeadroom = 2
)

func (o *Options) normalize() {
	if o.MaxNodes < 1 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.Headroom < 1 {
		o.Headroom = DefaultHeadroom
	}
}

// Find runs A* from one standable cell to another. Moves are the four
// lateral steps, each flat, climbing one cell, or dropping one cell. The
// returned path includes both endpoints; ok is false when either endpoint is
// not standable, the goal is unreachable, or the node budget runs out.
func Find(src SolidSource, from, to Cell, opt Options) (path []Cell, ok bool) {
	opt.normalize()
	if !standable(src, from, opt.Headroom) || !standable(src, to, opt.Headroom) {
		return nil, false
	}
	if from == to {
		return []Cell{from}, true
	}

	open := &cellHeap{{cell: from, f: heuristic(from, to)}}
	gScore := map[Cell]int{from: 0}
	cameFrom := make(map[Cell]Cell)
	closed := make(map[Cell]bool)

	steps := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	climbs := [3]int{0, 1, -1}

	seq := 0
	expanded := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(scored).cell
		if closed[cur] {
			continue
		}
		if cur == to {
			return rebuild(cameFrom, to), true
		}
		closed[cur] = true
		if expanded++; expanded > opt.MaxNodes {
			return nil, false
		}

		for _, s := range steps {
			for _, dy := range climbs {
				next := Cell{cur.X + s[0], cur.Y + dy, cur.Z + s[1]}
				if closed[next] || !standable(src, next, opt.Headroom) {
					continue
				}
				// The body swings through the cell above the lower column
				// when stepping up or down; it must be clear too.
				if dy == 1 && src.IsSolid(cur.X, cur.Y+opt.Headroom, cur.Z) {
					continue
				}
				if dy == -1 && src.IsSolid(next.X, next.Y+opt.Headroom, next.Z) {
					continue
				}

				g := gScore[cur] + 1
				if old, seen := gScore[next]; seen && g >= old {
					continue
				}
				gScore[next] = g
				cameFrom[next] = cur
				seq++
				heap.Push(open, scored{cell: next, f: g + heuristic(next, to), seq: seq})
			}
		}
	}
	return nil, false
}

// standable: support below is solid, the body column is clear.
func standable(src SolidSource, c Cell, headroom int) bool {
	if !src.IsSolid(c.X, c.Y-1, c.Z) {
		return false
	}
	for i := 0; i < headroom; i++ {
		if src.IsSolid(c.X, c.Y+i, c.Z) {
			return false
		}
	}
	return true
}

// heuristic is admissible for unit-cost moves: one move covers one lateral
// step and at most one vertical step, so the true cost is at least the
// larger of the two.
func heuristic(a, b Cell) int {
	lat := abs(a.X-b.X) + abs(a.Z-b.Z)
	if dy := abs(a.Y - b.Y); dy > lat {
		return dy
	}
	return lat
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func rebuild(cameFrom map[Cell]Cell, to Cell) []Cell {
	path := []Cell{to}
	for {
		prev, ok := cameFrom[path[len(path)-1]]
		if !ok {
			break
		}
		path = append(path, prev)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// scored orders the open set by f, then by insertion for determinism.
type scored struct {
	cell Cell
	f    int
	seq  int
}

type cellHeap []scored

func (h cellHeap) Len() int { return len(h) }
func (h cellHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h cellHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cellHeap) Push(x any) { *h = append(*h, x.(scored)) }

func (h *cellHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
