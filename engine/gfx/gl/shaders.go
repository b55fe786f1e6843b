package glbackend

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/hubastard/spot/engine/gfx"
)

// The quad corner comes from gl_VertexID, so the only vertex input is the
// per-instance record.
const vertexSource = `
#version 330 core
layout(location=0) in vec2 iPos;
layout(location=1) in float iRot;
layout(location=2) in vec2 iSize;
layout(location=3) in vec4 iUV;

layout(std140) uniform Frame {
    vec4 uScreen;
    float uOpacity;
    float uFlipY;
};

out vec2 vUV;

void main() {
    vec2 corner = vec2(float(gl_VertexID & 1), float(gl_VertexID >> 1));
    vec2 local = corner * iSize;
    float c = cos(iRot);
    float s = sin(iRot);
    vec2 p = iPos + vec2(local.x * c - local.y * s, local.x * s + local.y * c);
    gl_Position = vec4(p.x * uScreen.x - 1.0, uFlipY * (1.0 - p.y * uScreen.y), 0.0, 1.0);
    vUV = iUV.xy + corner * iUV.zw;
}
` + "\x00"

const fragmentHeader = `
#version 330 core
layout(std140) uniform Batch {
    vec4 uUser[16];
    mat4 uColorMatrix;
    vec4 uColorVector;
    uint uUseColor;
};
layout(std140) uniform Frame {
    vec4 uScreen;
    float uOpacity;
    float uFlipY;
};
uniform sampler2D uTex;
in vec2 vUV;
out vec4 fragColor;

vec4 shade(vec2 uv);

void main() {
    vec4 c = shade(vUV);
    if (uUseColor != 0u) {
        c = uColorMatrix * c + uColorVector;
    }
    c.a *= uUser[15].w * uOpacity;
    fragColor = c;
}
`

const (
	imageShade = "return texture(uTex, uv);"
	tintShade  = "return vec4(uUser[0].rgb, uUser[0].a * texture(uTex, uv).a);"
)

// fragmentSource returns the full fragment stage for desc.
func fragmentSource(desc gfx.PipelineDesc) string {
	body := imageShade
	switch desc.Kind {
	case gfx.PipelineTint:
		body = tintShade
	case gfx.PipelineCustom:
		body = desc.Shade
	}
	var b strings.Builder
	b.WriteString(fragmentHeader)
	b.WriteString("\nvec4 shade(vec2 uv) {\n")
	b.WriteString(body)
	b.WriteString("\n}\n\x00")
	return b.String()
}

func makeShader(src string, shaderType uint32) (uint32, error) {
	sh := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	defer free()
	gl.ShaderSource(sh, 1, csrc, nil)
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen)+1)
		gl.GetShaderInfoLog(sh, logLen, nil, gl.Str(log))
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("gl: shader compile: %s", strings.TrimRight(log, "\x00"))
	}
	return sh, nil
}

func makeProgram(vsSrc, fsSrc string) (uint32, error) {
	vs, err := makeShader(vsSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fs, err := makeShader(fsSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, err
	}
	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen)+1)
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("gl: program link: %s", strings.TrimRight(log, "\x00"))
	}

	bindBlock(prog, "Batch\x00", gfx.BindingBatch)
	bindBlock(prog, "Frame\x00", gfx.BindingFrame)
	gl.UseProgram(prog)
	gl.Uniform1i(gl.GetUniformLocation(prog, gl.Str("uTex\x00")), 0)
	gl.UseProgram(0)
	return prog, nil
}

func bindBlock(prog uint32, name string, binding uint32) {
	if idx := gl.GetUniformBlockIndex(prog, gl.Str(name)); idx != gl.INVALID_INDEX {
		gl.UniformBlockBinding(prog, idx, binding)
	}
}
