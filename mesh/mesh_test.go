package mesh

import (
	"testing"

	"github.com/driftforge/voxelcore/corelog"
	"github.com/driftforge/voxelcore/voxel"
)

func testRegistry(t *testing.T) *voxel.Registry {
	t.Helper()
	reg := voxel.NewRegistry(corelog.NewNop())
	if _, err := reg.Register("engine:stone", voxel.Properties{Solid: true}); err != nil {
		t.Fatalf("register stone: %v", err)
	}
	return reg
}

func idx(size, x, y, z int) int { return x*size*size + y*size + z }

func TestSingleVoxelEmitsSixFaces(t *testing.T) {
	reg := testRegistry(t)
	stoneID, _ := reg.ID("engine:stone")
	size := 3
	voxels := make([]voxel.Word, size*size*size)
	voxels[idx(size, 1, 1, 1)] = voxel.Pack(stoneID, 0, 0, 0)

	res := MeshChunk(size, voxels, Neighbours{}, reg, DefaultLimits)

	if len(res.Vertices) != 24 {
		t.Errorf("expected 24 vertices (6 faces x 4), got %d", len(res.Vertices))
	}
	if len(res.Indices) != 36 {
		t.Errorf("expected 36 indices (6 faces x 6), got %d", len(res.Indices))
	}
	if res.Overflowed {
		t.Error("did not expect an overflow")
	}
}

func TestAdjacentSameBlockHidesInteriorFace(t *testing.T) {
	reg := testRegistry(t)
	stoneID, _ := reg.ID("engine:stone")
	size := 4
	voxels := make([]voxel.Word, size*size*size)
	voxels[idx(size, 1, 1, 1)] = voxel.Pack(stoneID, 0, 0, 0)
	voxels[idx(size, 1, 1, 2)] = voxel.Pack(stoneID, 0, 0, 0)

	res := MeshChunk(size, voxels, Neighbours{}, reg, DefaultLimits)

	// Two solid voxels sharing a face: 12 faces total (6 each) minus the
	// 2 interior faces that meet = 10 faces = 40 vertices, 60 indices.
	if len(res.Vertices) != 40 {
		t.Errorf("expected 40 vertices, got %d", len(res.Vertices))
	}
}

func TestMissingNeighbourConservativelyEmitsBoundaryFace(t *testing.T) {
	reg := testRegistry(t)
	stoneID, _ := reg.ID("engine:stone")
	size := 2
	voxels := make([]voxel.Word, size*size*size)
	voxels[idx(size, 0, 0, 0)] = voxel.Pack(stoneID, 0, 0, 0)
	voxels[idx(size, 1, 0, 0)] = voxel.Pack(stoneID, 0, 0, 0)

	// No East neighbour supplied: the boundary face at x=size-1 facing
	// +X must still be emitted (treated as air), not skipped.
	res := MeshChunk(size, voxels, Neighbours{}, reg, DefaultLimits)

	found := false
	for _, v := range res.Vertices {
		if v.Normal.X() > 0 && v.Position.X() == float32(size) {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected a conservative +X boundary face when the East neighbour is absent")
	}
}

func TestResidentNeighbourHidesBoundaryFace(t *testing.T) {
	reg := testRegistry(t)
	stoneID, _ := reg.ID("engine:stone")
	size := 2
	voxels := make([]voxel.Word, size*size*size)
	voxels[idx(size, size-1, 0, 0)] = voxel.Pack(stoneID, 0, 0, 0)

	eastNeighbour := make([]voxel.Word, size*size*size)
	eastNeighbour[idx(size, 0, 0, 0)] = voxel.Pack(stoneID, 0, 0, 0)

	res := MeshChunk(size, voxels, Neighbours{East: eastNeighbour}, reg, DefaultLimits)

	for _, v := range res.Vertices {
		if v.Normal.X() > 0 && v.Position.X() == float32(size) {
			t.Error("a resident, solid East neighbour should hide the boundary face")
		}
	}
}

func TestOverflowTruncatesAndFlags(t *testing.T) {
	reg := testRegistry(t)
	stoneID, _ := reg.ID("engine:stone")
	size := 4
	voxels := make([]voxel.Word, size*size*size)
	for i := range voxels {
		voxels[i] = voxel.Pack(stoneID, 0, 0, 0)
	}

	res := MeshChunk(size, voxels, Neighbours{}, reg, Limits{MaxVertices: 8, MaxIndices: 12})
	if !res.Overflowed {
		t.Fatal("expected an overflow with a tiny buffer budget")
	}
	if len(res.Vertices) > 8 {
		t.Errorf("vertices should be truncated to the budget, got %d", len(res.Vertices))
	}
}

func TestDrawCmdIndexCountMatchesIndices(t *testing.T) {
	reg := testRegistry(t)
	stoneID, _ := reg.ID("engine:stone")
	size := 3
	voxels := make([]voxel.Word, size*size*size)
	voxels[idx(size, 1, 1, 1)] = voxel.Pack(stoneID, 0, 0, 0)

	res := MeshChunk(size, voxels, Neighbours{}, reg, DefaultLimits)
	if res.DrawCmd.IndexCount != uint32(len(res.Indices)) {
		t.Errorf("DrawCmd.IndexCount = %d, want %d", res.DrawCmd.IndexCount, len(res.Indices))
	}
	if res.DrawCmd.InstanceCount != 1 {
		t.Errorf("DrawCmd.InstanceCount = %d, want 1", res.DrawCmd.InstanceCount)
	}
}

func TestGreedyMergesCoplanarRun(t *testing.T) {
	reg := testRegistry(t)
	stoneID, _ := reg.ID("engine:stone")
	size := 4
	voxels := make([]voxel.Word, size*size*size)
	// a 2x2 slab on the bottom layer, all the same block id
	for x := 0; x < 2; x++ {
		for z := 0; z < 2; z++ {
			voxels[idx(size, x, 0, z)] = voxel.Pack(stoneID, 0, 0, 0)
		}
	}

	plain := MeshChunk(size, voxels, Neighbours{}, reg, DefaultLimits)
	merged := MeshChunkGreedy(size, voxels, Neighbours{}, reg, DefaultLimits)

	if len(merged.Vertices) >= len(plain.Vertices) {
		t.Errorf("greedy meshing should emit fewer vertices than per-voxel meshing: greedy=%d plain=%d",
			len(merged.Vertices), len(plain.Vertices))
	}
}

func TestDrawCmdToBytesLength(t *testing.T) {
	d := DrawCmd{IndexCount: 6, InstanceCount: 1, FirstIndex: 0, BaseVertex: 0, FirstInstance: 0}
	if got := len(d.ToBytes()); got != 20 {
		t.Errorf("DrawCmd.ToBytes() length = %d, want 20", got)
	}
}
