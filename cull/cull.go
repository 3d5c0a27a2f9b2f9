package cull

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// drawCmdSize and instanceCountOffset mirror mesh.DrawCmd's layout
// ({index_count, instance_count, first_index, base_vertex,
// first_instance}, all uint32) without importing the mesh package, to
// avoid a cull <-> mesh import cycle; cull only needs to know where
// instance_count sits in the shared indirect-command record.
const (
	drawCmdSize          = 20
	instanceCountOffset  = 4
	zeroInstanceCountLen = 4
)

// Slot is one resident chunk slot's culling input: its index into the
// shared indirect-command buffer and its world-space AABB.
type Slot struct {
	Index uint32
	AABB  AABB
}

// Stats accumulates the per-frame counters named in spec §4.F:
// {considered, survived_frustum, survived_occlusion}.
type Stats struct {
	Considered        uint32
	SurvivedFrustum   uint32
	SurvivedOcclusion uint32
}

// Cull implements the host-visible culling contract: test every slot's
// AABB against the frustum, then against the Hi-Z pyramid, and return
// the slot indices that survive both (i.e. whose instance_count should
// remain non-zero). Slots that fail either test are collected
// separately so the caller can zero their indirect-command record.
func Cull(viewProj mgl32.Mat4, hz Buffer, slots []Slot) (survivors, rejected []uint32, stats Stats) {
	planes := ExtractFrustum(viewProj)
	stats.Considered = uint32(len(slots))

	for _, s := range slots {
		if !InFrustum(s.AABB, planes) {
			rejected = append(rejected, s.Index)
			continue
		}
		stats.SurvivedFrustum++

		if IsOccluded(s.AABB, hz, viewProj) {
			rejected = append(rejected, s.Index)
			continue
		}
		stats.SurvivedOcclusion++
		survivors = append(survivors, s.Index)
	}
	return survivors, rejected, stats
}

// ZeroInstanceCounts writes a zero instance_count into the shared
// indirect-command buffer for every rejected slot, per spec §4.F's
// contract that the culler "writes into the same indirect-command
// buffer the mesh generator populated, zeroing instance_count for any
// slot that fails frustum or HZB tests".
func ZeroInstanceCounts(queue *wgpu.Queue, indirectBuf *wgpu.Buffer, rejected []uint32) {
	zero := make([]byte, zeroInstanceCountLen)
	for _, idx := range rejected {
		offset := uint64(idx)*drawCmdSize + instanceCountOffset
		queue.WriteBuffer(indirectBuf, offset, zero)
	}
}
