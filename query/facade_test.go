package query

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/driftforge/voxelcore/cull"
	"github.com/driftforge/voxelcore/voxel"
)

func TestGroupByTypePreservesOrderWithinGroup(t *testing.T) {
	queries := []Query{
		{Type: Ray}, {Type: Sphere}, {Type: Ray}, {Type: Box},
	}
	groups := groupByType(queries)
	if got := groups[Ray]; len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("Ray group = %v, want [0 2]", got)
	}
	if got := groups[Sphere]; len(got) != 1 || got[0] != 1 {
		t.Errorf("Sphere group = %v, want [1]", got)
	}
}

func TestDispatchProducesParallelResults(t *testing.T) {
	reg, stoneID := testRegistry(t)
	lookup := func(x, y, z int32) (voxel.Word, bool) {
		if x == 5 {
			return voxel.Pack(stoneID, 0, 0, 0), true
		}
		return voxel.Air, true
	}
	boxes := []ChunkBox{
		{Index: 9, AABB: cull.AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{16, 16, 16}}},
	}

	batch := NewBatch([]Query{
		{Type: Ray, Origin: mgl32.Vec3{0, 0.5, 0.5}, Direction: mgl32.Vec3{1, 0, 0}, MaxDistance: 20},
		{Type: Sphere, Origin: mgl32.Vec3{8, 8, 8}, Radius: 1},
		{Type: Box, Origin: mgl32.Vec3{8, 8, 8}, HalfExtents: mgl32.Vec3{1, 1, 1}},
	})

	results := Dispatch(batch, lookup, 16, reg, boxes)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].HitDistance < 0 {
		t.Error("expected the ray query to hit")
	}
	if results[1].HitChunkIndex != 9 {
		t.Errorf("expected the sphere query to hit chunk 9, got %d", results[1].HitChunkIndex)
	}
	if results[2].HitChunkIndex != 9 {
		t.Errorf("expected the box query to hit chunk 9, got %d", results[2].HitChunkIndex)
	}
}

func TestBatchGetsUniqueCorrelationID(t *testing.T) {
	b1 := NewBatch(nil)
	b2 := NewBatch(nil)
	if b1.ID == b2.ID {
		t.Error("expected distinct batch correlation ids")
	}
}
