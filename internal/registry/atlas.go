package registry

// TileRef names a tile inside the texture atlas.
type TileRef string

// Rect is a normalized UV rectangle inside the atlas, v growing downward.
type Rect struct {
	U0, V0, U1, V1 float32
}

// Zero reports whether the rect is degenerate.
func (r Rect) Zero() bool {
	return r.U0 == 0 && r.V0 == 0 && r.U1 == 0 && r.V1 == 0
}

// AtlasLayout maps tile names onto cells of a fixed grid. The engine never
// touches texture pixels; packing the actual image is the renderer's job,
// this layout only agrees with it on where each tile sits.
type AtlasLayout struct {
	cols, rows int
	tiles      map[TileRef]Rect
}

// NewAtlasLayout builds an empty layout over a cols x rows grid.
func NewAtlasLayout(cols, rows int) *AtlasLayout {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &AtlasLayout{cols: cols, rows: rows, tiles: make(map[TileRef]Rect)}
}

// Place assigns a tile name to grid cell (col, row).
func (l *AtlasLayout) Place(ref TileRef, col, row int) {
	cw := 1 / float32(l.cols)
	rh := 1 / float32(l.rows)
	l.tiles[ref] = Rect{
		U0: float32(col) * cw,
		V0: float32(row) * rh,
		U1: float32(col+1) * cw,
		V1: float32(row+1) * rh,
	}
}

// Lookup resolves a tile name. Unknown names report ok=false and a zero rect.
func (l *AtlasLayout) Lookup(ref TileRef) (Rect, bool) {
	r, ok := l.tiles[ref]
	return r, ok
}

// Grid returns the layout dimensions.
func (l *AtlasLayout) Grid() (cols, rows int) { return l.cols, l.rows }

// Len returns the number of placed tiles.
func (l *AtlasLayout) Len() int { return len(l.tiles) }
