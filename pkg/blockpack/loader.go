// Package blockpack loads data-driven block definitions from JSON pack files
// and registers them into a block registry. Documents are validated against
// an embedded JSON schema before any of their content is applied.
package blockpack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxen/internal/registry"
	"voxen/internal/world"
)

const schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "blocks"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "blocks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "mode"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "integer", "minimum": 1, "maximum": 255},
          "name": {"type": "string", "minLength": 1},
          "mode": {"enum": ["invisible", "flat", "textured"]},
          "solid": {"type": "boolean"},
          "color": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"},
          "tiles": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
              "all": {"type": "string", "minLength": 1},
              "top": {"type": "string", "minLength": 1},
              "side": {"type": "string", "minLength": 1},
              "bottom": {"type": "string", "minLength": 1}
            }
          }
        }
      }
    },
    "atlas": {
      "type": "object",
      "required": ["grid", "tiles"],
      "additionalProperties": false,
      "properties": {
        "grid": {
          "type": "array",
          "items": {"type": "integer", "minimum": 1},
          "minItems": 2,
          "maxItems": 2
        },
        "tiles": {
          "type": "object",
          "additionalProperties": {
            "type": "array",
            "items": {"type": "integer", "minimum": 0},
            "minItems": 2,
            "maxItems": 2
          }
        }
      }
    }
  }
}`

var packSchema = jsonschema.MustCompileString("blockpack.schema.json", schema)

// Load reads and validates one pack file.
func Load(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := packSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var p Pack
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

// LoadDir loads every *.json pack in dir, in file name order.
func LoadDir(dir string) ([]*Pack, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	packs := make([]*Pack, 0, len(paths))
	for _, path := range paths {
		p, err := Load(path)
		if err != nil {
			return nil, err
		}
		packs = append(packs, p)
	}
	return packs, nil
}

// Install loads every pack in dir and applies them to reg in order. It
// returns the number of packs applied.
func Install(dir string, reg *registry.Registry) (int, error) {
	packs, err := LoadDir(dir)
	if err != nil {
		return 0, err
	}
	for i, p := range packs {
		if err := Apply(p, reg); err != nil {
			return i, err
		}
	}
	return len(packs), nil
}

// Apply registers the pack's atlas and blocks. A pack that carries an atlas
// replaces the whole layout, so tiles from earlier packs must be redeclared.
func Apply(p *Pack, reg *registry.Registry) error {
	if p.Atlas != nil {
		cols, rows := p.Atlas.Grid[0], p.Atlas.Grid[1]
		layout := registry.NewAtlasLayout(cols, rows)
		for name, cell := range p.Atlas.Tiles {
			if cell[0] >= cols || cell[1] >= rows {
				return fmt.Errorf("pack %s: tile %s at (%d,%d) outside %dx%d grid", p.Name, name, cell[0], cell[1], cols, rows)
			}
			layout.Place(registry.TileRef(name), cell[0], cell[1])
		}
		reg.SetAtlas(layout)
	}
	for _, b := range p.Blocks {
		def, err := b.definition()
		if err != nil {
			return fmt.Errorf("pack %s: %w", p.Name, err)
		}
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("pack %s: %w", p.Name, err)
		}
	}
	return nil
}

// definition converts one pack row into a registry definition. Apply also
// accepts hand-built packs, so everything the schema checks is rechecked.
func (b Block) definition() (registry.Definition, error) {
	var mode registry.RenderMode
	switch b.Mode {
	case "invisible":
		mode = registry.ModeInvisible
	case "flat":
		mode = registry.ModeFlatColor
	case "textured":
		mode = registry.ModeTextured
	default:
		return registry.Definition{}, fmt.Errorf("block %s: unknown mode %q", b.Name, b.Mode)
	}

	color, err := parseColor(b.Color)
	if err != nil {
		return registry.Definition{}, fmt.Errorf("block %s: %w", b.Name, err)
	}

	def := registry.Definition{
		ID:    world.BlockID(b.ID),
		Name:  b.Name,
		Mode:  mode,
		Solid: b.Solid,
		Color: color,
	}
	if mode == registry.ModeTextured {
		tiles, err := b.tileRefs()
		if err != nil {
			return registry.Definition{}, fmt.Errorf("block %s: %w", b.Name, err)
		}
		def.Tiles = tiles
	}
	return def, nil
}

func (b Block) tileRefs() (map[world.Face]registry.TileRef, error) {
	t := b.Tiles
	if t == nil {
		return nil, fmt.Errorf("textured block needs tiles")
	}
	if t.All != "" {
		return registry.SameTile(registry.TileRef(t.All)), nil
	}
	if t.Top == "" || t.Side == "" || t.Bottom == "" {
		return nil, fmt.Errorf("tiles need either all, or top, side and bottom")
	}
	return registry.ColumnTiles(registry.TileRef(t.Top), registry.TileRef(t.Side), registry.TileRef(t.Bottom)), nil
}

func parseColor(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || len(hex) != 6 {
		return 0, fmt.Errorf("bad color %q, want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad color %q, want #RRGGBB", s)
	}
	return uint32(v), nil
}
