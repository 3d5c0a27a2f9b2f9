package driver

import (
	"testing"

	"github.com/driftforge/voxelcore/corerr"
	"github.com/driftforge/voxelcore/worldbuffer"
)

// fakeAllocator is a host-only stand-in for *worldbuffer.WorldBuffer,
// letting frame-planning logic be tested without a live device.
type fakeAllocator struct {
	resident map[worldbuffer.ChunkCoord]uint32
	next     uint32
	capacity uint32
}

func newFakeAllocator(capacity uint32) *fakeAllocator {
	return &fakeAllocator{resident: make(map[worldbuffer.ChunkCoord]uint32), capacity: capacity}
}

func (f *fakeAllocator) Lookup(c worldbuffer.ChunkCoord) (uint32, bool) {
	s, ok := f.resident[c]
	return s, ok
}

func (f *fakeAllocator) Allocate(c worldbuffer.ChunkCoord) uint32 {
	if s, ok := f.resident[c]; ok {
		return s
	}
	s := f.next
	f.next++
	f.resident[c] = s
	return s
}

func (f *fakeAllocator) Capacity() uint32 { return f.capacity }

func TestPlanFrameAllocatesMissingCoordsInViewDistance(t *testing.T) {
	d := New(newFakeAllocator(1000), nil, nil)
	plan, err := d.PlanFrame(worldbuffer.ChunkCoord{}, 1)
	if err != nil {
		t.Fatalf("PlanFrame: %v", err)
	}
	// viewDistance 1 -> a 3x3x3 cube = 27 coordinates, all newly allocated.
	if len(plan.NewlyAllocated) != 27 {
		t.Errorf("expected 27 newly allocated coords, got %d", len(plan.NewlyAllocated))
	}
	if len(plan.ToMesh) != 27 {
		t.Errorf("expected all 27 newly allocated coords queued for meshing, got %d", len(plan.ToMesh))
	}
}

func TestPlanFrameSkipsAlreadyResidentCoords(t *testing.T) {
	alloc := newFakeAllocator(1000)
	d := New(alloc, nil, nil)

	first, _ := d.PlanFrame(worldbuffer.ChunkCoord{}, 1)
	if len(first.NewlyAllocated) == 0 {
		t.Fatal("first frame should allocate something")
	}

	second, _ := d.PlanFrame(worldbuffer.ChunkCoord{}, 1)
	if len(second.NewlyAllocated) != 0 {
		t.Errorf("second frame at the same camera position should allocate nothing new, got %d", len(second.NewlyAllocated))
	}
}

func TestPlanFrameIncludesDirtyCoordsInMeshSet(t *testing.T) {
	alloc := newFakeAllocator(1000)
	d := New(alloc, nil, nil)
	d.PlanFrame(worldbuffer.ChunkCoord{}, 0) // allocate just the origin

	dirty := worldbuffer.ChunkCoord{X: 99, Y: 99, Z: 99}
	alloc.resident[dirty] = 12345 // mark it resident so it's not re-allocated
	d.MarkDirty(dirty)

	plan, _ := d.PlanFrame(worldbuffer.ChunkCoord{}, 0)
	found := false
	for _, c := range plan.ToMesh {
		if c == dirty {
			found = true
		}
	}
	if !found {
		t.Error("expected the dirty coordinate to be included in ToMesh")
	}
}

func TestPlanFrameRejectedWhenLost(t *testing.T) {
	d := New(newFakeAllocator(1000), nil, nil)
	d.ReportDeviceError(corerr.Mapping)
	_, err := d.PlanFrame(worldbuffer.ChunkCoord{}, 1)
	if err == nil {
		t.Fatal("expected PlanFrame to fail while the driver is in lost mode")
	}
}

func TestReconstructClearsLostMode(t *testing.T) {
	d := New(newFakeAllocator(1000), nil, nil)
	d.ReportDeviceError(corerr.Mapping)
	if d.State() != StateLost {
		t.Fatal("expected lost mode after a mapping error")
	}
	d.Reconstruct()
	if d.State() != StateReady {
		t.Error("expected StateReady after Reconstruct")
	}
	if _, err := d.PlanFrame(worldbuffer.ChunkCoord{}, 0); err != nil {
		t.Errorf("PlanFrame should succeed after Reconstruct, got %v", err)
	}
}

func TestWatchdogTripsAfterMaxErrors(t *testing.T) {
	d := New(newFakeAllocator(1000), nil, nil)
	for i := 0; i < MaxErrors-1; i++ {
		d.ReportDeviceError(corerr.Transient)
	}
	if d.State() != StateReady {
		t.Fatal("should not trip before MaxErrors transient errors")
	}
	d.ReportDeviceError(corerr.Transient)
	if d.State() != StateLost {
		t.Error("should trip to lost mode at MaxErrors")
	}
}

func TestRebuildAccelTriggersPastThreshold(t *testing.T) {
	d := New(newFakeAllocator(100), nil, nil) // threshold = 10% of 100 = 10
	plan, _ := d.PlanFrame(worldbuffer.ChunkCoord{}, 1)
	if !plan.RebuildAccel {
		t.Errorf("27 new allocations against a capacity of 100 (threshold 10) should trigger a rebuild, got residentSinceRebuild tracking wrong")
	}
}
