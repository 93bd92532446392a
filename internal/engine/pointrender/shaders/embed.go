// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// PointVertexShader is the vertex shader for point cloud rendering.
//
//go:embed point.vert
var PointVertexShader string

// PointFragmentShader is the fragment shader for point cloud rendering.
//
//go:embed point.frag
var PointFragmentShader string

// LineVertexShader is the vertex shader for chunk outlines.
//
//go:embed line.vert
var LineVertexShader string

// LineFragmentShader is the fragment shader for chunk outlines.
//
//go:embed line.frag
var LineFragmentShader string
