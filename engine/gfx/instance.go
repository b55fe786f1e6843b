package gfx

import "github.com/gogpu/gputypes"

// InstanceFloats is the number of float32 values per packed Instance.
const InstanceFloats = 9

// Instance is the per-draw record consumed by the vertex stage. The quad is
// Size pixels large, rotated by Rotation radians about its top-left corner,
// which sits at Position (pixels, Y down). UV is (u0, v0, width, height) in
// normalized storage coordinates.
type Instance struct {
	Position [2]float32
	Rotation float32
	Size     [2]float32
	UV       [4]float32
}

// AppendTo packs in after dst using InstanceLayout.
func (in Instance) AppendTo(dst []float32) []float32 {
	return append(dst,
		in.Position[0], in.Position[1],
		in.Rotation,
		in.Size[0], in.Size[1],
		in.UV[0], in.UV[1], in.UV[2], in.UV[3],
	)
}

// UnpackInstance reads the i-th instance from packed data.
func UnpackInstance(data []float32, i int) Instance {
	f := data[i*InstanceFloats : (i+1)*InstanceFloats]
	return Instance{
		Position: [2]float32{f[0], f[1]},
		Rotation: f[2],
		Size:     [2]float32{f[3], f[4]},
		UV:       [4]float32{f[5], f[6], f[7], f[8]},
	}
}

// InstanceLayout is the instance-rate vertex buffer layout. Shader locations
// 0..3 are position, rotation, size and uv-rect.
var InstanceLayout = gputypes.VertexBufferLayout{
	ArrayStride: InstanceFloats * 4,
	StepMode:    gputypes.VertexStepModeInstance,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // position
		{Format: gputypes.VertexFormatFloat32, Offset: 8, ShaderLocation: 1},    // rotation
		{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 2}, // size
		{Format: gputypes.VertexFormatFloat32x4, Offset: 20, ShaderLocation: 3}, // uv rect
	},
}

// ComponentCount returns the float count of a vertex format used by
// InstanceLayout.
func ComponentCount(f gputypes.VertexFormat) int32 {
	switch f {
	case gputypes.VertexFormatFloat32:
		return 1
	case gputypes.VertexFormatFloat32x2:
		return 2
	case gputypes.VertexFormatFloat32x4:
		return 4
	}
	return 0
}
