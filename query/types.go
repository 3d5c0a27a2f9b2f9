// Package query implements the batched ray/sphere/box/overlap query
// facade of spec §4.J: queries are grouped by type before dispatch so
// each type runs as its own workgroup-aligned launch, and every query
// in a batch gets a parallel result, negative hit_distance meaning "no
// hit". Grounded on original_source/src/world/core/ray.rs's
// Ray/BlockFace/RaycastHit types, generalized to the batched facade and
// the sphere/box/overlap shapes spec.md adds.
package query

import "github.com/go-gl/mathgl/mgl32"

// Type enumerates the four query shapes spec §4.J names.
type Type int

const (
	Ray Type = iota
	Sphere
	Box
	Overlap
)

// Query is one record of a batch: {type, origin, direction,
// max_distance, radius|half_extents, flags}.
type Query struct {
	Type        Type
	Origin      mgl32.Vec3
	Direction   mgl32.Vec3 // used by Ray
	MaxDistance float32
	Radius      float32    // used by Sphere
	HalfExtents mgl32.Vec3 // used by Box, Overlap
	Flags       uint32
}

// Result is the parallel output record: {hit_distance, hit_position,
// hit_normal, hit_block_id, hit_chunk_index}. A negative HitDistance
// signals no hit.
type Result struct {
	HitDistance   float32
	HitPosition   mgl32.Vec3
	HitNormal     mgl32.Vec3
	HitBlockID    uint16
	HitChunkIndex uint32
}

// NoHit is the canonical "nothing found" result.
var NoHit = Result{HitDistance: -1}
