package octree

import "testing"

func TestSingleChunkIsLeaf(t *testing.T) {
	tree := Build(50, []Chunk{{X: 0, Y: 0, Z: 0, DominantMaterial: 3}})
	if len(tree.Nodes) != 1 {
		t.Fatalf("expected one node for a single chunk, got %d", len(tree.Nodes))
	}
	root := tree.Nodes[0]
	level := uint8(root.Metadata)
	occupancy := uint8(root.Metadata >> 8)
	material := uint8(root.Metadata >> 16)
	if level != 0 {
		t.Errorf("root leaf should be at level 0, got %d", level)
	}
	if occupancy != 1 {
		t.Errorf("single-chunk leaf should report occupancy 1, got %d", occupancy)
	}
	if material != 3 {
		t.Errorf("expected dominant material 3, got %d", material)
	}
}

func TestEmptyTreeHasOneEmptyNode(t *testing.T) {
	tree := Build(50, nil)
	if len(tree.Nodes) != 1 {
		t.Fatalf("expected one empty root node, got %d", len(tree.Nodes))
	}
	if tree.Nodes[0].Metadata != 0 {
		t.Errorf("empty tree root metadata should be zero, got %#x", tree.Nodes[0].Metadata)
	}
}

func TestTwoChunksSplitIntoDifferentOctants(t *testing.T) {
	chunks := []Chunk{
		{X: 0, Y: 0, Z: 0, DominantMaterial: 1},
		{X: 3, Y: 3, Z: 3, DominantMaterial: 2},
	}
	tree := Build(50, chunks)
	if len(tree.Nodes) < 3 {
		t.Fatalf("expected at least 3 nodes (root + 2 leaves), got %d", len(tree.Nodes))
	}
	root := tree.Nodes[0]
	nonZeroChildren := 0
	for _, c := range root.Children {
		if c != 0 {
			nonZeroChildren++
		}
	}
	if nonZeroChildren < 2 {
		t.Errorf("root should reference at least 2 children for 2 separated chunks, got %d", nonZeroChildren)
	}
}

func TestStatsReflectNodeCount(t *testing.T) {
	chunks := []Chunk{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 1},
	}
	tree := Build(50, chunks)
	stats := tree.Stats()
	if stats.TotalNodes != len(tree.Nodes) {
		t.Errorf("Stats().TotalNodes = %d, want %d", stats.TotalNodes, len(tree.Nodes))
	}
	if stats.NodeCapacity < len(chunks) {
		t.Errorf("NodeCapacity %d should be at least len(chunks) %d", stats.NodeCapacity, len(chunks))
	}
}

func TestToBytesLength(t *testing.T) {
	tree := Build(50, []Chunk{{X: 0, Y: 0, Z: 0}})
	b := tree.ToBytes()
	if len(b) != len(tree.Nodes)*NodeSize {
		t.Fatalf("ToBytes length %d, want %d", len(b), len(tree.Nodes)*NodeSize)
	}
}
