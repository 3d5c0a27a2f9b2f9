package lod

import "github.com/driftforge/voxelcore/worldbuffer"

// transition tracks an in-flight geomorph blend for one chunk: the
// level it is moving away from, the level it is moving toward, and
// elapsed time within the blend window.
type transition struct {
	from, to Level
	elapsed  float32
	table    MorphTable
}

// Manager is the frame-driver-facing piece of component G: it keeps
// each resident chunk's current level, classifies it every frame
// against the camera distance, and tracks any in-progress geomorph
// blend so the driver knows which chunks need a morph dispatch versus
// a plain re-mesh at a new level.
type Manager struct {
	classifier *Classifier
	duration   float32 // T_transition, seconds

	levels      map[worldbuffer.ChunkCoord]Level
	transitions map[worldbuffer.ChunkCoord]*transition
}

// NewManager creates a manager with the given promotion thresholds and
// transition blend duration (spec §4.G's T_transition).
func NewManager(thresholds Thresholds, transitionDuration float32) *Manager {
	return &Manager{
		classifier:  NewClassifier(thresholds),
		duration:    transitionDuration,
		levels:      make(map[worldbuffer.ChunkCoord]Level),
		transitions: make(map[worldbuffer.ChunkCoord]*transition),
	}
}

// Update classifies coord against distance, starting a new geomorph
// transition if the level changes, and returns the chunk's current
// (possibly mid-transition) level along with whether a transition is
// now active for it.
func (m *Manager) Update(coord worldbuffer.ChunkCoord, distance float32) (current Level, transitioning bool) {
	cur, ok := m.levels[coord]
	if !ok {
		cur = Lod0
		m.levels[coord] = cur
	}

	next := m.classifier.Next(cur, distance)
	if next != cur {
		m.transitions[coord] = &transition{from: cur, to: next}
		m.levels[coord] = next
	}

	t, active := m.transitions[coord]
	return m.levels[coord], active && t != nil
}

// SetMorphTable attaches the vertex correspondence table for coord's
// active transition, computed by the caller from the two levels' mesh
// outputs via BuildMorphTable.
func (m *Manager) SetMorphTable(coord worldbuffer.ChunkCoord, table MorphTable) {
	if t, ok := m.transitions[coord]; ok {
		t.table = table
	}
}

// Advance steps coord's active transition forward by dt seconds and
// returns the blend factor in [0,1], plus whether the transition has
// just completed (in which case the caller should drop its morph
// buffers and treat the chunk as fully at its target level).
func (m *Manager) Advance(coord worldbuffer.ChunkCoord, dt float32) (t float32, completed bool) {
	tr, ok := m.transitions[coord]
	if !ok {
		return 1, false
	}
	tr.elapsed += dt
	if m.duration <= 0 || tr.elapsed >= m.duration {
		delete(m.transitions, coord)
		return 1, true
	}
	return tr.elapsed / m.duration, false
}

// Forget drops all tracked state for coord, used when its slot is
// evicted from the world buffer.
func (m *Manager) Forget(coord worldbuffer.ChunkCoord) {
	delete(m.levels, coord)
	delete(m.transitions, coord)
}

// Level returns coord's last-classified level, or Lod0 if it has never
// been seen.
func (m *Manager) Level(coord worldbuffer.ChunkCoord) Level {
	return m.levels[coord]
}
