package lod

import (
	"testing"

	"github.com/driftforge/voxelcore/worldbuffer"
)

func TestManagerStartsAtLod0(t *testing.T) {
	m := NewManager(Thresholds{10, 20, 30, 40}, 0.5)
	c := worldbuffer.ChunkCoord{X: 0, Y: 0, Z: 0}
	level, transitioning := m.Update(c, 1)
	if level != Lod0 {
		t.Errorf("expected Lod0 for a new chunk, got %v", level)
	}
	if transitioning {
		t.Error("a chunk that stays at Lod0 should not be transitioning")
	}
}

func TestManagerStartsTransitionOnLevelChange(t *testing.T) {
	m := NewManager(Thresholds{10, 20, 30, 40}, 0.5)
	c := worldbuffer.ChunkCoord{X: 1, Y: 0, Z: 0}
	m.Update(c, 1) // settle at Lod0
	level, transitioning := m.Update(c, 100)
	if level != Lod1 {
		t.Errorf("expected promotion to Lod1, got %v", level)
	}
	if !transitioning {
		t.Error("expected a transition to be active right after a level change")
	}
}

func TestManagerAdvanceCompletesAtDuration(t *testing.T) {
	m := NewManager(Thresholds{10, 20, 30, 40}, 1.0)
	c := worldbuffer.ChunkCoord{X: 2, Y: 0, Z: 0}
	m.Update(c, 1)
	m.Update(c, 100) // trigger transition

	frac, completed := m.Advance(c, 0.5)
	if completed {
		t.Error("should not complete halfway through the transition window")
	}
	if frac != 0.5 {
		t.Errorf("blend factor = %v, want 0.5", frac)
	}

	frac, completed = m.Advance(c, 0.6)
	if !completed {
		t.Error("expected the transition to complete once elapsed exceeds duration")
	}
	if frac != 1 {
		t.Errorf("blend factor at completion = %v, want 1", frac)
	}
}

func TestManagerAdvanceWithNoActiveTransition(t *testing.T) {
	m := NewManager(Thresholds{10, 20, 30, 40}, 1.0)
	c := worldbuffer.ChunkCoord{X: 3, Y: 0, Z: 0}
	frac, completed := m.Advance(c, 1)
	if completed {
		t.Error("no transition was ever started, so nothing should complete")
	}
	if frac != 1 {
		t.Errorf("blend factor with no active transition should default to 1, got %v", frac)
	}
}

func TestManagerForgetClearsState(t *testing.T) {
	m := NewManager(Thresholds{10, 20, 30, 40}, 1.0)
	c := worldbuffer.ChunkCoord{X: 4, Y: 0, Z: 0}
	m.Update(c, 100)
	m.Forget(c)
	if got := m.Level(c); got != Lod0 {
		t.Errorf("Level after Forget should report the zero value Lod0, got %v", got)
	}
}
