// Package driver implements the frame driver of spec §4.I: it resolves
// the target chunk set from the camera, allocates missing slots,
// decides when acceleration structures need rebuilding, tracks the
// dirty set feeding the mesh pass, and runs the device-error watchdog
// that flips the core into "lost" mode. Grounded on the device
// bring-up and per-frame bookkeeping in voxelrt/rt/app/app.go
// (FrameCount/Profiler-style counters), generalized from a
// render-frame loop to this core's B->C->D->E->F ordering.
package driver

import (
	"sync"

	"github.com/google/uuid"

	"github.com/driftforge/voxelcore/corelog"
	"github.com/driftforge/voxelcore/corerr"
	"github.com/driftforge/voxelcore/stats"
	"github.com/driftforge/voxelcore/worldbuffer"
)

// MaxErrors is the validation-failure trip count after which the
// watchdog flips the core into lost mode (spec §4.I).
const MaxErrors = 8

// State is the driver's overall health.
type State int

const (
	StateReady State = iota
	StateLost
)

// RebuildFraction is the resident-set delta, as a fraction of capacity,
// past which acceleration structures are rebuilt (spec §4.I step 5).
const RebuildFraction = 0.1

// SlotAllocator is the slice of WorldBuffer's contract the driver
// needs: slot lookup, allocation, and capacity. Depending on this
// interface rather than *worldbuffer.WorldBuffer directly keeps the
// driver's frame-planning logic testable without a live device —
// *worldbuffer.WorldBuffer satisfies it, and tests use a host-only
// fake.
type SlotAllocator interface {
	Lookup(coord worldbuffer.ChunkCoord) (uint32, bool)
	Allocate(coord worldbuffer.ChunkCoord) uint32
	Capacity() uint32
}

// Driver orchestrates a single frame's B->C->D->E->F->render ordering.
// It owns no device resources directly; GPU dispatch calls (terrain
// generation, meshing, culling) are driven by the caller using the
// plan this type produces, keeping the driver itself host-side and
// testable without a live device.
type Driver struct {
	mu sync.Mutex

	wb  SlotAllocator
	log corelog.Logger

	state      State
	errorCount int

	dirty map[worldbuffer.ChunkCoord]bool

	residentSinceRebuild int
	capacity             uint32

	counters *stats.Counters
}

// New creates a driver over wb. counters may be nil, in which case a
// fresh set is allocated.
func New(wb SlotAllocator, log corelog.Logger, counters *stats.Counters) *Driver {
	if log == nil {
		log = corelog.NewNop()
	}
	if counters == nil {
		counters = &stats.Counters{}
	}
	return &Driver{
		wb:       wb,
		log:      log,
		dirty:    make(map[worldbuffer.ChunkCoord]bool),
		capacity: wb.Capacity(),
		counters: counters,
	}
}

// State returns the driver's current health.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// checkLost returns a Mapping error if the driver is in lost mode,
// rejecting the operation per spec §7's propagation rule.
func (d *Driver) checkLost() error {
	if d.state == StateLost {
		return corerr.Mappingf("core is in lost mode: device must be reconstructed before further operations")
	}
	return nil
}

// ReportDeviceError feeds one observed device error into the watchdog.
// A Mapping-kind error (device lost, uncaptured validation error, or a
// staging-buffer map failure) trips the core into lost mode
// immediately; any other kind increments the failure counter and trips
// after MaxErrors.
func (d *Driver) ReportDeviceError(kind corerr.Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if kind == corerr.Mapping {
		d.tripLostLocked("device reported a mapping error")
		return
	}

	d.errorCount++
	d.log.Warnf("driver: device error observed (kind=%v), count=%d/%d", kind, d.errorCount, MaxErrors)
	if d.errorCount >= MaxErrors {
		d.tripLostLocked("validation failure watchdog tripped")
	}
}

func (d *Driver) tripLostLocked(reason string) {
	if d.state == StateLost {
		return
	}
	d.state = StateLost
	d.log.Errorf("driver: entering lost mode: %s", reason)
}

// Reconstruct clears lost mode and the error counter after the host
// has re-created the device, per spec §4.I's error-recovery contract.
func (d *Driver) Reconstruct() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateReady
	d.errorCount = 0
	d.log.Infof("driver: reconstructed, leaving lost mode")
}

// FramePlan is the result of resolving one frame's work: which
// coordinates need a fresh slot (and therefore a generation dispatch),
// and which resident slots are dirty and need re-meshing.
type FramePlan struct {
	FrameID        uuid.UUID
	NewlyAllocated []worldbuffer.ChunkCoord
	AllocatedSlots map[worldbuffer.ChunkCoord]uint32
	ToMesh         []worldbuffer.ChunkCoord
	RebuildAccel   bool
}

// ResolveTargetSet enumerates every chunk coordinate within
// viewDistance (in chunks, Chebyshev distance) of camera, matching
// spec §4.I step 1.
func ResolveTargetSet(camera worldbuffer.ChunkCoord, viewDistance int32) []worldbuffer.ChunkCoord {
	var out []worldbuffer.ChunkCoord
	for dx := -viewDistance; dx <= viewDistance; dx++ {
		for dy := -viewDistance; dy <= viewDistance; dy++ {
			for dz := -viewDistance; dz <= viewDistance; dz++ {
				out = append(out, worldbuffer.ChunkCoord{
					X: camera.X + dx,
					Y: camera.Y + dy,
					Z: camera.Z + dz,
				})
			}
		}
	}
	return out
}

// MarkDirty flags coord for re-meshing on the next PlanFrame call
// (e.g. after an edit).
func (d *Driver) MarkDirty(coord worldbuffer.ChunkCoord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirty[coord] = true
}

// PlanFrame implements spec §4.I steps 1-5: resolve the target set,
// allocate missing slots (step 2), and decide whether the delta since
// the last rebuild warrants rebuilding acceleration structures (step
// 5). The caller is responsible for steps 3/4/6/7/8 (recording the
// actual GPU dispatches and submitting), using ToMesh and
// AllocatedSlots to drive them.
func (d *Driver) PlanFrame(camera worldbuffer.ChunkCoord, viewDistance int32) (*FramePlan, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLost(); err != nil {
		return nil, err
	}

	target := ResolveTargetSet(camera, viewDistance)
	plan := &FramePlan{
		FrameID:        uuid.New(),
		AllocatedSlots: make(map[worldbuffer.ChunkCoord]uint32),
	}

	for _, coord := range target {
		if _, ok := d.wb.Lookup(coord); ok {
			continue
		}
		slot := d.wb.Allocate(coord)
		plan.NewlyAllocated = append(plan.NewlyAllocated, coord)
		plan.AllocatedSlots[coord] = slot
		d.residentSinceRebuild++
		d.counters.IncGenerationDispatches()
	}

	meshSet := make(map[worldbuffer.ChunkCoord]bool, len(plan.NewlyAllocated)+len(d.dirty))
	for _, c := range plan.NewlyAllocated {
		meshSet[c] = true
	}
	for c := range d.dirty {
		meshSet[c] = true
	}
	for c := range meshSet {
		plan.ToMesh = append(plan.ToMesh, c)
	}
	d.dirty = make(map[worldbuffer.ChunkCoord]bool)

	threshold := int(float64(d.capacity) * RebuildFraction)
	if d.residentSinceRebuild >= threshold && threshold > 0 {
		plan.RebuildAccel = true
		d.residentSinceRebuild = 0
	}

	return plan, nil
}
