// Package shaders embeds the WGSL compute kernels driving the world
// core's GPU-resident pipeline: terrain generation (§4.C), per-slot
// meshing (§4.E), and frustum/Hi-Z culling (§4.F). Grounded on
// voxelrt/rt/shaders/shaders.go's go:embed pattern, narrowed from that
// package's render/lighting shader set to this core's compute-only
// surface.
package shaders

import (
	_ "embed"
)

//go:embed terrain.wgsl
var TerrainWGSL string

//go:embed mesh.wgsl
var MeshWGSL string

//go:embed frustum_cull.wgsl
var FrustumCullWGSL string

//go:embed hiz.wgsl
var HiZWGSL string
