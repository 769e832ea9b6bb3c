//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

// Embedded quad shader source.
//
//go:embed shaders/quad.wgsl
var quadShaderSource string

// Shader entry points.
const (
	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "fs_main"
)

// QuadShaderSource returns the WGSL source of the quad shader.
func QuadShaderSource() string { return quadShaderSource }

// CompileQuadShader translates the quad shader to SPIR-V. Backends that
// accept WGSL directly do not need it; it is used to validate the shader
// and by SPIR-V-only backends.
func CompileQuadShader() ([]byte, error) {
	spirv, err := naga.Compile(quadShaderSource)
	if err != nil {
		return nil, fmt.Errorf("compile quad shader: %w", err)
	}
	return spirv, nil
}
