package blockpack

// Pack is one block pack document.
type Pack struct {
	Name   string  `json:"name"`
	Blocks []Block `json:"blocks"`
	Atlas  *Atlas  `json:"atlas,omitempty"`
}

// Block is one definition row. Mode is "invisible", "flat" or "textured".
type Block struct {
	ID    uint8  `json:"id"`
	Name  string `json:"name"`
	Mode  string `json:"mode"`
	Solid bool   `json:"solid,omitempty"`
	Color string `json:"color,omitempty"`
	Tiles *Tiles `json:"tiles,omitempty"`
}

// Tiles names the atlas tiles for a textured block: either one tile for all
// six faces, or a top/side/bottom column.
type Tiles struct {
	All    string `json:"all,omitempty"`
	Top    string `json:"top,omitempty"`
	Side   string `json:"side,omitempty"`
	Bottom string `json:"bottom,omitempty"`
}

// Atlas declares the grid and the tile placements UV rects resolve through.
// Grid is cols then rows; each tile maps to a col, row cell.
type Atlas struct {
	Grid  [2]int            `json:"grid"`
	Tiles map[string][2]int `json:"tiles"`
}
