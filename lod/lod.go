// Package lod implements distance-based level-of-detail classification
// with hysteresis and geomorph blending between levels (spec §4.G).
package lod

import "github.com/go-gl/mathgl/mgl32"

// Level is one of five levels of detail, 0 being the finest.
type Level int

const (
	Lod0 Level = iota
	Lod1
	Lod2
	Lod3
	Lod4
	levelCount
)

// hysteresisFactor is the 1.2x promotion-threshold multiplier from spec §8.
const hysteresisFactor = 1.2

// Thresholds holds the base distance d(n) for levels Lod0..Lod3: Lod(n)
// becomes Lod(n+1) once the distance exceeds 1.2*d(n), and Lod(n+1)
// returns to Lod(n) once it drops below d(n). Lod4 has no further
// promotion.
type Thresholds [4]float32

// Classifier tracks each chunk's current level and applies the
// hysteresis rule from spec §8: promotes at d > 1.2*threshold(L),
// demotes at d < threshold(L-1).
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier builds a classifier from the four promotion thresholds.
func NewClassifier(thresholds Thresholds) *Classifier {
	return &Classifier{thresholds: thresholds}
}

// Next computes the level a chunk currently at `current` should move to
// given its distance to the camera. It promotes at most one level and
// demotes at most one level per call, matching a frame-by-frame
// classifier that's invoked every frame rather than jumping levels.
func (c *Classifier) Next(current Level, distance float32) Level {
	if current < levelCount-1 {
		promoteAt := c.thresholds[current] * hysteresisFactor
		if distance > promoteAt {
			return current + 1
		}
	}
	if current > Lod0 {
		demoteThreshold := c.thresholds[current-1]
		if distance < demoteThreshold {
			return current - 1
		}
	}
	return current
}

// MorphTable maps each vertex index in the higher-detail (more
// vertices) level to its nearest-neighbour vertex index in the
// lower-detail level, built once per level-pair transition.
type MorphTable struct {
	NearestInTarget []int
}

// BuildMorphTable computes, for each vertex in `from`, the index of its
// nearest vertex in `to` by brute-force nearest neighbour (vertex
// counts at chunk granularity are small enough that this is cheap; LOD
// transitions happen far less often than per-frame meshing).
func BuildMorphTable(from, to []mgl32.Vec3) MorphTable {
	table := MorphTable{NearestInTarget: make([]int, len(from))}
	for i, v := range from {
		best := -1
		bestDist := float32(-1)
		for j, t := range to {
			d := v.Sub(t).LenSqr()
			if best == -1 || d < bestDist {
				best = j
				bestDist = d
			}
		}
		table.NearestInTarget[i] = best
	}
	return table
}

// Blend linearly interpolates each vertex in `from` toward its mapped
// target in `to` by t in [0,1]; t=0 is the source level, t=1 is fully
// the target level. AO/light are not blended here — spec §4.G says they
// are carried from the target level once the transition completes.
func Blend(from, to []mgl32.Vec3, table MorphTable, t float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(from))
	for i, v := range from {
		target := to[table.NearestInTarget[i]]
		out[i] = v.Add(target.Sub(v).Mul(t))
	}
	return out
}
