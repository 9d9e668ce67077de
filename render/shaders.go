package render

import _ "embed"

// Internal device shaders. Filter programs are supplied by callers through
// CompileFilter; these two cover the device's own blit and sprite primitives.

//go:embed shaders/blit.wgsl
var blitShaderSrc string

//go:embed shaders/sprite.wgsl
var spriteShaderSrc string
