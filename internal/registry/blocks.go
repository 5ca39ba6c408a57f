package registry

import (
	"fmt"

	"voxen/internal/world"
)

// RenderMode selects how the mesher shades faces owned by a block.
type RenderMode uint8

const (
	// ModeInvisible blocks occlude by solidity but emit no geometry.
	ModeInvisible RenderMode = iota
	// ModeFlatColor faces carry the voxel's painted color and no texture.
	ModeFlatColor
	// ModeTextured faces carry atlas UVs and a white vertex color.
	ModeTextured
)

func (m RenderMode) String() string {
	switch m {
	case ModeInvisible:
		return "invisible"
	case ModeFlatColor:
		return "flat"
	case ModeTextured:
		return "textured"
	}
	return "invalid"
}

// Definition describes one block type.
type Definition struct {
	ID    world.BlockID
	Name  string
	Mode  RenderMode
	Solid bool
	// Color is the default 0xRRGGBB paint applied when a tool places this
	// block without an explicit color.
	Color uint32
	// Tiles maps faces to atlas tile names for ModeTextured blocks.
	Tiles map[world.Face]TileRef
}

// Registry holds block definitions indexed by id, plus the atlas layout the
// mesher resolves tile names through. Definitions are registered up front on
// the main goroutine; afterwards the registry is read-only and safe to share
// with mesh workers.
type Registry struct {
	defs       [256]Definition
	registered [256]bool
	atlas      *AtlasLayout
}

// New returns a registry containing only air.
func New() *Registry {
	r := &Registry{atlas: NewAtlasLayout(4, 4)}
	r.defs[0] = Definition{ID: world.AirID, Name: "air"}
	r.registered[0] = true
	return r
}

// Register adds or replaces a definition. Air (id 0) cannot be redefined.
func (r *Registry) Register(def Definition) error {
	if def.ID == world.AirID {
		return fmt.Errorf("registry: block id 0 is reserved for air")
	}
	if def.Name == "" {
		return fmt.Errorf("registry: block %d has no name", def.ID)
	}
	r.defs[def.ID] = def
	r.registered[def.ID] = true
	return nil
}

// Get returns the definition for id. Unregistered ids report ok=false and an
// invisible zero definition, so unknown blocks occlude but never render.
func (r *Registry) Get(id world.BlockID) (Definition, bool) {
	if !r.registered[id] {
		return Definition{ID: id}, false
	}
	return r.defs[id], true
}

// Lookup finds a definition by name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	for i, ok := range r.registered {
		if ok && r.defs[i].Name == name {
			return r.defs[i], true
		}
	}
	return Definition{}, false
}

// Renderable reports whether faces owned by id produce geometry.
func (r *Registry) Renderable(id world.BlockID) bool {
	return r.registered[id] && r.defs[id].Mode != ModeInvisible
}

// Mode returns the render mode for id; unregistered ids are invisible.
func (r *Registry) Mode(id world.BlockID) RenderMode {
	if !r.registered[id] {
		return ModeInvisible
	}
	return r.defs[id].Mode
}

// Atlas returns the layout tile rects resolve through.
func (r *Registry) Atlas() *AtlasLayout { return r.atlas }

// SetAtlas replaces the layout. Tile names placed in the old layout no longer
// resolve unless the new one declares them too.
func (r *Registry) SetAtlas(a *AtlasLayout) {
	if a != nil {
		r.atlas = a
	}
}

// FaceUV resolves the atlas rect for one face of a block. Missing tiles or
// unmapped names report ok=false with a zero rect; the mesher then emits
// degenerate UVs rather than failing the build.
func (r *Registry) FaceUV(id world.BlockID, f world.Face) (Rect, bool) {
	if !r.registered[id] {
		return Rect{}, false
	}
	ref, ok := r.defs[id].Tiles[f]
	if !ok {
		return Rect{}, false
	}
	return r.atlas.Lookup(ref)
}

// Voxel builds the default-colored voxel for a definition.
func (d Definition) Voxel() world.Voxel {
	return world.MakeVoxel(d.ID, d.Color)
}

// SameTile maps all six faces to one tile name.
func SameTile(ref TileRef) map[world.Face]TileRef {
	tiles := make(map[world.Face]TileRef, world.FaceCount)
	for f := world.Face(0); f < world.FaceCount; f++ {
		tiles[f] = ref
	}
	return tiles
}

// ColumnTiles maps top, bottom and the four side faces separately, the usual
// grass-style arrangement.
func ColumnTiles(top, side, bottom TileRef) map[world.Face]TileRef {
	return map[world.Face]TileRef{
		world.FaceTop:    top,
		world.FaceBottom: bottom,
		world.FaceEast:   side,
		world.FaceWest:   side,
		world.FaceSouth:  side,
		world.FaceNorth:  side,
	}
}

// Built-in block ids. Packs may add more beyond these.
const (
	StoneID   world.BlockID = 1
	SoilID    world.BlockID = 2
	GrassID   world.BlockID = 3
	PlankID   world.BlockID = 4
	PaintID   world.BlockID = 5
	BarrierID world.BlockID = 6
)

// Default returns the built-in block set: enough to exercise every render
// mode without loading a pack.
func Default() *Registry {
	r := New()
	atlas := r.Atlas()
	atlas.Place("stone", 0, 0)
	atlas.Place("soil", 1, 0)
	atlas.Place("grass_top", 2, 0)
	atlas.Place("grass_side", 3, 0)
	atlas.Place("plank", 0, 1)

	defs := []Definition{
		{ID: StoneID, Name: "stone", Mode: ModeTextured, Solid: true, Color: 0x8A8A8A, Tiles: SameTile("stone")},
		{ID: SoilID, Name: "soil", Mode: ModeTextured, Solid: true, Color: 0x7A5230, Tiles: SameTile("soil")},
		{ID: GrassID, Name: "grass", Mode: ModeTextured, Solid: true, Color: 0x5FA040, Tiles: ColumnTiles("grass_top", "grass_side", "soil")},
		{ID: PlankID, Name: "plank", Mode: ModeTextured, Solid: true, Color: 0xB08954, Tiles: SameTile("plank")},
		{ID: PaintID, Name: "paint", Mode: ModeFlatColor, Solid: true, Color: 0xFFFFFF},
		{ID: BarrierID, Name: "barrier", Mode: ModeInvisible, Solid: true},
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}
