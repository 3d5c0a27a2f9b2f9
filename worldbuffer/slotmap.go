package worldbuffer

import (
	"sync"

	"github.com/driftforge/voxelcore/corelog"
)

// ChunkCoord identifies a chunk by its integer grid position.
type ChunkCoord struct {
	X, Y, Z int32
}

// slotMap maps chunk coordinates to slot indices under a two-phase
// ring-search allocation algorithm (spec §4.B). Map and cursor are
// guarded by a single mutex, acquired in one fixed order, matching
// original_source/world_buffer.rs's get_chunk_slot.
type slotMap struct {
	mu       sync.Mutex
	coordToS map[ChunkCoord]uint32
	sToCoord map[uint32]ChunkCoord
	cursor   uint32
	capacity uint32
	log      corelog.Logger
}

func newSlotMap(capacity uint32, log corelog.Logger) *slotMap {
	if log == nil {
		log = corelog.NewNop()
	}
	return &slotMap{
		coordToS: make(map[ChunkCoord]uint32),
		sToCoord: make(map[uint32]ChunkCoord),
		capacity: capacity,
		log:      log,
	}
}

// evictResult reports what, if anything, was evicted by an allocation.
type evictResult struct {
	evicted      bool
	evictedCoord ChunkCoord
	evictedSlot  uint32
}

// allocate returns the slot for c, allocating one if c is not yet
// mapped. If the map is saturated it evicts the coordinate currently
// owning the cursor slot first.
func (m *slotMap) allocate(c ChunkCoord) (uint32, evictResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.coordToS[c]; ok {
		return s, evictResult{}
	}

	// Phase one: walk the ring once looking for any unused slot.
	for i := uint32(0); i < m.capacity; i++ {
		candidate := (m.cursor + i) % m.capacity
		if _, taken := m.sToCoord[candidate]; !taken {
			m.coordToS[c] = candidate
			m.sToCoord[candidate] = c
			m.cursor = (candidate + 1) % m.capacity
			return candidate, evictResult{}
		}
	}

	// Phase two: the ring is full. Evict whoever owns the cursor slot.
	slot := m.cursor % m.capacity
	oldCoord, hadOwner := m.sToCoord[slot]
	if hadOwner {
		delete(m.coordToS, oldCoord)
	}
	m.coordToS[c] = slot
	m.sToCoord[slot] = c
	m.cursor = (slot + 1) % m.capacity

	m.log.Debugf("slot map saturated: evicted %v from slot %d to admit %v", oldCoord, slot, c)
	return slot, evictResult{evicted: hadOwner, evictedCoord: oldCoord, evictedSlot: slot}
}

// lookup returns the slot mapped to c, if any.
func (m *slotMap) lookup(c ChunkCoord) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.coordToS[c]
	return s, ok
}

// free removes c from the map, if present, returning its former slot.
func (m *slotMap) free(c ChunkCoord) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.coordToS[c]
	if !ok {
		return 0, false
	}
	delete(m.coordToS, c)
	delete(m.sToCoord, s)
	return s, true
}

// coordAt returns the coordinate currently owning slot s.
func (m *slotMap) coordAt(s uint32) (ChunkCoord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sToCoord[s]
	return c, ok
}

// occupancy returns (used, free) slot counts.
func (m *slotMap) occupancy() (used, free uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	used = uint32(len(m.sToCoord))
	return used, m.capacity - used
}

// resident returns every currently-occupied (coord, slot) pair, in no
// particular order. Used by callers that need to build a per-frame view
// over the whole live set (meshing, acceleration-structure rebuild,
// culling) rather than a single lookup.
func (m *slotMap) resident() map[ChunkCoord]uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[ChunkCoord]uint32, len(m.coordToS))
	for c, s := range m.coordToS {
		out[c] = s
	}
	return out
}
