package gfx

// Uniform binding groups shared by every program.
const (
	// BindingBatch holds UserGlobals and ColorUniform, rebound per batch.
	BindingBatch = 0
	// BindingFrame holds EngineGlobals, bound once per pass.
	BindingFrame = 1
)

// UserGlobalsSize is the byte size of the user uniform block.
const UserGlobalsSize = 256

// UserGlobals is the 256-byte user uniform block as 16 vec4 slots.
// The w component of the last slot carries the draw opacity.
type UserGlobals [16][4]float32

// NewUserGlobals returns a block with full opacity.
func NewUserGlobals() UserGlobals {
	var u UserGlobals
	u[15][3] = 1
	return u
}

// SetVec4 stores v at slot. Writing slot 15 also overwrites the opacity.
func (u *UserGlobals) SetVec4(slot int, v [4]float32) {
	u[slot] = v
}

// Vec4 returns the value at slot.
func (u *UserGlobals) Vec4(slot int) [4]float32 { return u[slot] }

// SetOpacity stores the draw opacity in the reserved component.
func (u *UserGlobals) SetOpacity(a float32) { u[15][3] = a }

// Opacity returns the draw opacity.
func (u *UserGlobals) Opacity() float32 { return u[15][3] }

// EngineGlobals is the per-frame block: Screen holds
// (2/width, 2/height, 1/width, 1/height) and Opacity multiplies every draw.
type EngineGlobals struct {
	Screen  [4]float32
	Opacity float32
}

// ColorUniform is the optional color transform. Matrix is column-major and
// Vector is already normalized to 0..1. The shader computes
// color' = Matrix*color + Vector only when UseUniform is non-zero.
type ColorUniform struct {
	Matrix     [16]float32
	Vector     [4]float32
	UseUniform uint32
}

// IdentityColor is the disabled color transform.
var IdentityColor = ColorUniform{
	Matrix: [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	},
}
