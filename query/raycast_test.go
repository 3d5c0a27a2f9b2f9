package query

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/driftforge/voxelcore/corelog"
	"github.com/driftforge/voxelcore/voxel"
)

func testRegistry(t *testing.T) (*voxel.Registry, uint16) {
	t.Helper()
	reg := voxel.NewRegistry(corelog.NewNop())
	id, err := reg.Register("engine:stone", voxel.Properties{Solid: true})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg, id
}

func TestRaycastHitsSolidVoxel(t *testing.T) {
	reg, stoneID := testRegistry(t)
	lookup := func(x, y, z int32) (voxel.Word, bool) {
		if x == 5 && y == 0 && z == 0 {
			return voxel.Pack(stoneID, 0, 0, 0), true
		}
		return voxel.Air, true
	}

	q := Query{Type: Ray, Origin: mgl32.Vec3{0, 0.5, 0.5}, Direction: mgl32.Vec3{1, 0, 0}, MaxDistance: 20}
	res := Raycast(q, lookup, 16, reg)

	if res.HitDistance < 0 {
		t.Fatal("expected a hit")
	}
	if res.HitBlockID != stoneID {
		t.Errorf("HitBlockID = %d, want %d", res.HitBlockID, stoneID)
	}
}

func TestRaycastMissesWhenNothingSolidWithinRange(t *testing.T) {
	reg, _ := testRegistry(t)
	lookup := func(x, y, z int32) (voxel.Word, bool) { return voxel.Air, true }

	q := Query{Type: Ray, Origin: mgl32.Vec3{0, 0.5, 0.5}, Direction: mgl32.Vec3{1, 0, 0}, MaxDistance: 5}
	res := Raycast(q, lookup, 16, reg)
	if res.HitDistance >= 0 {
		t.Errorf("expected no hit, got distance %v", res.HitDistance)
	}
}

func TestRaycastIgnoresNonResidentSolidCells(t *testing.T) {
	reg, stoneID := testRegistry(t)
	lookup := func(x, y, z int32) (voxel.Word, bool) {
		if x == 2 {
			return voxel.Pack(stoneID, 0, 0, 0), false // solid, but not resident
		}
		return voxel.Air, true
	}
	q := Query{Type: Ray, Origin: mgl32.Vec3{0, 0.5, 0.5}, Direction: mgl32.Vec3{1, 0, 0}, MaxDistance: 5}
	res := Raycast(q, lookup, 16, reg)
	if res.HitDistance >= 0 {
		t.Error("a non-resident cell should not produce a hit")
	}
}

func TestRaycastZeroDirectionIsNoHit(t *testing.T) {
	reg, _ := testRegistry(t)
	lookup := func(x, y, z int32) (voxel.Word, bool) { return voxel.Air, true }
	q := Query{Type: Ray, Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{0, 0, 0}, MaxDistance: 5}
	res := Raycast(q, lookup, 16, reg)
	if res.HitDistance >= 0 {
		t.Error("a zero direction ray should never hit")
	}
}
