package world

// BlockID identifies a block definition in the registry. Zero is air.
type BlockID uint8

const AirID BlockID = 0

// Voxel packs a block id and its painted color into one 32-bit word: the id
// in bits 24..31 and 0xRRGGBB in bits 0..23. The zero Voxel is air, so a
// freshly allocated buffer already reads as empty space.
type Voxel uint32

const Air Voxel = 0

// MakeVoxel builds a voxel word from a block id and a packed 0xRRGGBB color.
func MakeVoxel(id BlockID, rgb uint32) Voxel {
	return Voxel(uint32(id)<<24 | rgb&0xFFFFFF)
}

// Block returns the registry id carried by the voxel.
func (v Voxel) Block() BlockID { return BlockID(v >> 24) }

// RGB returns the packed 0xRRGGBB color bits.
func (v Voxel) RGB() uint32 { return uint32(v) & 0xFFFFFF }

// Linear returns the color channels as floats in [0,1]. The stored bytes are
// treated as linear values; no color-space conversion is applied.
func (v Voxel) Linear() (r, g, b float32) {
	return float32(v>>16&0xFF) / 255, float32(v>>8&0xFF) / 255, float32(v&0xFF) / 255
}

// Face identifies one of the six cube faces.
type Face uint8

const (
	FaceEast   Face = iota // +X
	FaceWest               // -X
	FaceTop                // +Y
	FaceBottom             // -Y
	FaceSouth              // +Z
	FaceNorth              // -Z

	FaceCount = 6
)

var faceNames = [FaceCount]string{"east", "west", "top", "bottom", "south", "north"}

func (f Face) String() string {
	if int(f) < len(faceNames) {
		return faceNames[f]
	}
	return "invalid"
}

// Normal returns the outward unit direction of the face.
func (f Face) Normal() (dx, dy, dz int) {
	switch f {
	case FaceEast:
		return 1, 0, 0
	case FaceWest:
		return -1, 0, 0
	case FaceTop:
		return 0, 1, 0
	case FaceBottom:
		return 0, -1, 0
	case FaceSouth:
		return 0, 0, 1
	case FaceNorth:
		return 0, 0, -1
	}
	return 0, 0, 0
}
