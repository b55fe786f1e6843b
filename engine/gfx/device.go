// Package gfx defines the contract between the engine core and a GPU device:
// texture storage, compiled programs, instanced draws and the uniform layout
// the programs consume.
package gfx

import (
	"errors"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/hubastard/spot/engine/colors"
)

var (
	// ErrDeviceLost reports that the device or its context is gone. It is
	// fatal to the render pipeline and must reach the application.
	ErrDeviceLost = errors.New("gfx: device lost")

	// ErrOutOfMemory reports resource exhaustion on the device.
	ErrOutOfMemory = errors.New("gfx: out of device memory")

	// ErrFeedback reports a draw that samples the texture being drawn into.
	ErrFeedback = errors.New("gfx: texture sampled while it is the render target")
)

// TextureID names device texture storage. Zero is never a valid id.
type TextureID uint32

// PipelineID names a compiled program. Zero is never a valid id.
type PipelineID uint32

// PipelineKind selects the fragment stage of a program.
type PipelineKind int

const (
	// PipelineImage samples the bound texture.
	PipelineImage PipelineKind = iota
	// PipelineTint uses the texture alpha as coverage for User[0].
	PipelineTint
	// PipelineCustom runs PipelineDesc.Shade.
	PipelineCustom
)

func (k PipelineKind) String() string {
	switch k {
	case PipelineImage:
		return "image"
	case PipelineTint:
		return "tint"
	case PipelineCustom:
		return "custom"
	}
	return "unknown"
}

// PipelineDesc describes a program. Every program shares the instance layout
// and both uniform groups; only the shading function differs.
type PipelineDesc struct {
	Label string
	Kind  PipelineKind
	// Shade is the body of a GLSL function `vec4 shade(vec2 uv)` for
	// PipelineCustom. Devices that cannot compile GLSL fall back to
	// PipelineImage behavior.
	Shade string
}

// PassDesc opens a render pass. With a zero Target it is the frame's pass
// over the screen; otherwise it renders into level 0 of Target.
type PassDesc struct {
	Width, Height int
	Clear         colors.Color
	Globals       EngineGlobals

	Target TextureID
	// Viewport is the region of Target drawn into, top-left origin. Draw
	// coordinates and clip rectangles are relative to it. The zero
	// rectangle covers the whole texture.
	Viewport image.Rectangle
	// Load keeps the target's pixels instead of clearing them.
	Load bool
}

// Offscreen reports whether the pass renders into a texture.
func (p PassDesc) Offscreen() bool { return p.Target != 0 }

// DrawCmd is one instanced draw. Instances holds InstanceFloats floats per
// instance laid out as InstanceLayout.
type DrawCmd struct {
	Pipeline  PipelineID
	Texture   TextureID
	Instances []float32
	Count     int
	User      UserGlobals
	Color     ColorUniform
	// Clip is a scissor rectangle in pixels with a top-left origin.
	// The zero rectangle disables clipping.
	Clip image.Rectangle
}

// Device is the GPU collaborator. Calls happen on the frame thread only.
type Device interface {
	CreateTexture(desc *gputypes.TextureDescriptor, sampler *gputypes.SamplerDescriptor) (TextureID, error)
	// WriteTexture writes tightly packed RGBA8 rows into region of mip level 0.
	WriteTexture(id TextureID, region image.Rectangle, pixels []byte) error
	// GenerateMipmaps fills levels 1..n-1, each rendered from the previous one.
	GenerateMipmaps(id TextureID) error
	// CopyTexture copies the src rectangle of src's level 0 to dst's level 0
	// with its top-left at at. The rectangles must not overlap when src and
	// dst are the same texture.
	CopyTexture(dst TextureID, at image.Point, src TextureID, r image.Rectangle) error
	DestroyTexture(id TextureID)

	CreatePipeline(desc PipelineDesc) (PipelineID, error)
	DestroyPipeline(id PipelineID)

	BeginPass(pass PassDesc) error
	// Draw fails with ErrFeedback when an offscreen pass samples its own
	// target.
	Draw(cmd DrawCmd) error
	EndPass() error
	Present() error

	// ReadPixels returns the last completed frame.
	ReadPixels() (*image.NRGBA, error)
	Resize(w, h int)
	Close()
}

// TextureDescriptor returns the descriptor used for sampled RGBA8 textures.
func TextureDescriptor(label string, w, h int, mipLevels uint32) *gputypes.TextureDescriptor {
	return &gputypes.TextureDescriptor{
		Label: label,
		Size: gputypes.Extent3D{
			Width:              uint32(w),
			Height:             uint32(h),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: mipLevels,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage: gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopyDst |
			gputypes.TextureUsageRenderAttachment,
	}
}

// SamplerDescriptor returns the sampler for textures with mipLevels levels:
// linear filtering, clamped edges, trilinear when a chain exists.
func SamplerDescriptor(mipLevels uint32) *gputypes.SamplerDescriptor {
	s := &gputypes.SamplerDescriptor{
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.MipmapFilterModeNearest,
		LodMinClamp:  0,
		LodMaxClamp:  float32(mipLevels),
	}
	if mipLevels > 1 {
		s.MipmapFilter = gputypes.MipmapFilterModeLinear
	}
	return s
}
