package cull

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCullSeparatesSurvivorsFromRejected(t *testing.T) {
	vp := viewProjLookingDownNegZ()
	var hz Buffer // no occluder data: occlusion test always passes slots through

	slots := []Slot{
		{Index: 1, AABB: AABB{Min: mgl32.Vec3{-1, -1, -6}, Max: mgl32.Vec3{1, 1, -4}}},  // in frustum
		{Index: 2, AABB: AABB{Min: mgl32.Vec3{99, -1, -1}, Max: mgl32.Vec3{101, 1, 1}}}, // outside frustum
	}

	survivors, rejected, stats := Cull(vp, hz, slots)

	if len(survivors) != 1 || survivors[0] != 1 {
		t.Errorf("expected slot 1 to survive, got %v", survivors)
	}
	if len(rejected) != 1 || rejected[0] != 2 {
		t.Errorf("expected slot 2 to be rejected, got %v", rejected)
	}
	if stats.Considered != 2 {
		t.Errorf("Considered = %d, want 2", stats.Considered)
	}
	if stats.SurvivedFrustum != 1 {
		t.Errorf("SurvivedFrustum = %d, want 1", stats.SurvivedFrustum)
	}
	if stats.SurvivedOcclusion != 1 {
		t.Errorf("SurvivedOcclusion = %d, want 1", stats.SurvivedOcclusion)
	}
}

func TestCullRejectsOccludedSlot(t *testing.T) {
	vp := viewProjLookingDownNegZ()
	hz := Buffer{Data: []float32{
		-0.9, -0.9, -0.9, -0.9,
		-0.9, -0.9, -0.9, -0.9,
		-0.9, -0.9, -0.9, -0.9,
		-0.9, -0.9, -0.9, -0.9,
	}, Width: 4, Height: 4}

	slots := []Slot{
		{Index: 7, AABB: AABB{Min: mgl32.Vec3{-1, -1, -50}, Max: mgl32.Vec3{1, 1, -49}}},
	}

	survivors, rejected, stats := Cull(vp, hz, slots)
	if len(survivors) != 0 {
		t.Errorf("expected no survivors, got %v", survivors)
	}
	if len(rejected) != 1 || rejected[0] != 7 {
		t.Errorf("expected slot 7 to be rejected by occlusion, got %v", rejected)
	}
	if stats.SurvivedFrustum != 1 {
		t.Errorf("SurvivedFrustum = %d, want 1 (occlusion rejects after frustum passes)", stats.SurvivedFrustum)
	}
	if stats.SurvivedOcclusion != 0 {
		t.Errorf("SurvivedOcclusion = %d, want 0", stats.SurvivedOcclusion)
	}
}

func TestCullEmptySlotsProducesZeroedStats(t *testing.T) {
	vp := viewProjLookingDownNegZ()
	survivors, rejected, stats := Cull(vp, Buffer{}, nil)
	if len(survivors) != 0 || len(rejected) != 0 {
		t.Fatal("expected no survivors or rejections for an empty slot set")
	}
	if stats.Considered != 0 {
		t.Errorf("Considered = %d, want 0", stats.Considered)
	}
}
