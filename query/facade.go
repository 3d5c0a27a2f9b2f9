package query

import (
	"github.com/google/uuid"

	"github.com/driftforge/voxelcore/voxel"
)

// Batch is one submission to the facade: a correlation id (for
// tracing/log correlation across the host boundary) plus the query
// records themselves.
type Batch struct {
	ID      uuid.UUID
	Queries []Query
}

// NewBatch wraps queries with a fresh correlation id.
func NewBatch(queries []Query) Batch {
	return Batch{ID: uuid.New(), Queries: queries}
}

// Dispatch runs every query in the batch and returns a parallel result
// slice in the original order. Per spec §4.J, queries are grouped by
// type first and each type's group runs before the next, rather than
// interleaving shapes. Each query still runs on its own: every Ray
// query does its own DDA sweep and every Sphere/Box query its own scan
// of boxes.
func Dispatch(batch Batch, lookup VoxelLookup, chunkSize int32, reg *voxel.Registry, boxes []ChunkBox) []Result {
	groups := groupByType(batch.Queries)
	results := make([]Result, len(batch.Queries))

	for _, idx := range groups[Ray] {
		results[idx] = Raycast(batch.Queries[idx], lookup, chunkSize, reg)
	}
	for _, idx := range groups[Sphere] {
		results[idx] = QuerySphere(batch.Queries[idx], boxes)
	}
	for _, idx := range groups[Box] {
		results[idx] = QueryBox(batch.Queries[idx], boxes)
	}
	for _, idx := range groups[Overlap] {
		hits := QueryOverlap(batch.Queries[idx], boxes)
		if len(hits) == 0 {
			results[idx] = NoHit
			continue
		}
		results[idx] = Result{HitDistance: 0, HitChunkIndex: hits[0].Index}
	}

	return results
}

// groupByType buckets query indices by their Type, preserving relative
// order within each bucket.
func groupByType(queries []Query) map[Type][]int {
	groups := make(map[Type][]int)
	for i, q := range queries {
		groups[q.Type] = append(groups[q.Type], i)
	}
	return groups
}
