// Package bvh builds a BVH over chunk AABBs for ray/shape queries
// (spec §4.D). Grounded on the teacher's voxelrt/rt/bvh/builder.go
// (TLASBuilder, recursive median split, 64-byte node layout), adapted
// from per-object AABBs to per-chunk AABBs and extended with a
// parallel primitive-index buffer per spec §4.D ("leaves carry an
// index into a parallel primitive-index buffer").
package bvh

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// NodeSize is the byte size of one flattened BVH node:
//
//	aabb_min : vec4<f32>  (16)
//	aabb_max : vec4<f32>  (16)
//	left     : i32        (4)
//	right    : i32        (4)
//	leaf_first : i32      (4, index into the primitive-index buffer)
//	leaf_count : i32      (4)
//	padding  : i32[4]     (16)
const NodeSize = 64

// Node is a BVH node: a leaf (Left==Right==-1) referencing LeafCount
// entries in the primitive-index buffer starting at LeafFirst, or an
// internal node with Left/Right child indices into the flattened array.
type Node struct {
	Min, Max  mgl32.Vec3
	Left      int32
	Right     int32
	LeafFirst int32
	LeafCount int32
}

// ToBytes serializes n to the 64-byte layout above.
func (n *Node) ToBytes() []byte {
	buf := make([]byte, NodeSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(n.Min.X()))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(n.Min.Y()))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(n.Min.Z()))
	binary.LittleEndian.PutUint32(buf[12:16], 0)

	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(n.Max.X()))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(n.Max.Y()))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(n.Max.Z()))
	binary.LittleEndian.PutUint32(buf[28:32], 0)

	binary.LittleEndian.PutUint32(buf[32:36], uint32(n.Left))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(n.Right))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(n.LeafFirst))
	binary.LittleEndian.PutUint32(buf[44:48], uint32(n.LeafCount))
	return buf
}

// ChunkAABB is one leaf primitive: a chunk's world-space bounding box
// plus the chunk's slot index (the value carried through to the
// primitive-index buffer).
type ChunkAABB struct {
	Min, Max  mgl32.Vec3
	SlotIndex uint32
}

type item struct {
	min, max, centroid mgl32.Vec3
	slot               uint32
}

// Builder constructs a BVH by recursive median split over the
// largest-extent axis, terminating at one primitive per leaf.
type Builder struct{}

// Build returns the flattened node bytes and the primitive-index
// buffer (slot indices in leaf-visit order; a leaf's LeafFirst indexes
// into this buffer).
func (b *Builder) Build(aabbs []ChunkAABB) (nodeBytes []byte, primitiveIndices []uint32) {
	if len(aabbs) == 0 {
		return make([]byte, NodeSize), nil
	}

	items := make([]item, len(aabbs))
	for i, a := range aabbs {
		items[i] = item{
			min:      a.Min,
			max:      a.Max,
			centroid: a.Min.Add(a.Max).Mul(0.5),
			slot:     a.SlotIndex,
		}
	}

	var nodes []Node
	var prims []uint32
	b.recursiveBuild(items, &nodes, &prims)

	out := make([]byte, 0, len(nodes)*NodeSize)
	for i := range nodes {
		out = append(out, nodes[i].ToBytes()...)
	}
	return out, prims
}

func (b *Builder) recursiveBuild(items []item, nodes *[]Node, prims *[]uint32) int32 {
	idx := int32(len(*nodes))
	*nodes = append(*nodes, Node{Left: -1, Right: -1, LeafFirst: -1, LeafCount: 0})

	minB := mgl32.Vec3{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}
	maxB := mgl32.Vec3{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))}
	for _, it := range items {
		minB = mgl32.Vec3{fmin(minB.X(), it.min.X()), fmin(minB.Y(), it.min.Y()), fmin(minB.Z(), it.min.Z())}
		maxB = mgl32.Vec3{fmax(maxB.X(), it.max.X()), fmax(maxB.Y(), it.max.Y()), fmax(maxB.Z(), it.max.Z())}
	}
	(*nodes)[idx].Min = minB
	(*nodes)[idx].Max = maxB

	if len(items) == 1 {
		first := int32(len(*prims))
		*prims = append(*prims, items[0].slot)
		(*nodes)[idx].LeafFirst = first
		(*nodes)[idx].LeafCount = 1
		return idx
	}

	extent := maxB.Sub(minB)
	axis := 0
	if extent.Y() > extent.X() {
		axis = 1
	}
	if extent.Z() > extent[axis] {
		axis = 2
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].centroid[axis] < items[j].centroid[axis]
	})

	mid := len(items) / 2
	(*nodes)[idx].Left = b.recursiveBuild(items[:mid], nodes, prims)
	(*nodes)[idx].Right = b.recursiveBuild(items[mid:], nodes, prims)
	return idx
}

func fmin(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func fmax(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
