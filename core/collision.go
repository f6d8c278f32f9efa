package core

import (
	"math"

	"github.com/gravityworks/blob-simulator/model"
)

// Merge records one absorption: the survivor kept its identity and position,
// the absorbed body left the live set.
type Merge struct {
	SurvivorID string
	AbsorbedID string
}

// ResolveCollisions detects and merges overlapping bodies. Any pair whose
// centre distance is at most the sum of their true radii merges: the more
// massive body survives in place with the combined mass, a volume-additive
// radius, and the momentum-conserving velocity.
//
// Each pass detects all overlapping pairs against a single position snapshot
// and applies the merges atomically; a body absorbed earlier in the pass
// redirects later pairs to its survivor, transitively. Passes repeat until no
// overlap remains, which settles triple overlaps deterministically.
//
// The returned slice preserves the input order of the surviving bodies.
func ResolveCollisions(bodies []*model.Body) ([]*model.Body, []Merge) {
	var merges []Merge

	for {
		pairs := detectOverlaps(bodies)
		if len(pairs) == 0 {
			return bodies, merges
		}

		// survivor[i] points at the index a merged-away body was folded into.
		survivor := make(map[int]int)
		find := func(i int) int {
			for {
				s, ok := survivor[i]
				if !ok {
					return i
				}
				i = s
			}
		}

		for _, p := range pairs {
			i, j := find(p[0]), find(p[1])
			if i == j {
				continue
			}

			big, small := bodies[i], bodies[j]
			bigIdx, smallIdx := i, j
			if small.Mass > big.Mass {
				big, small = small, big
				bigIdx, smallIdx = j, i
			}

			mergeInto(big, small)
			survivor[smallIdx] = bigIdx
			merges = append(merges, Merge{SurvivorID: big.ID, AbsorbedID: small.ID})
		}

		kept := bodies[:0]
		for i, b := range bodies {
			if _, gone := survivor[i]; !gone {
				kept = append(kept, b)
			}
		}
		bodies = kept
	}
}

// detectOverlaps returns index pairs (i < j) whose bodies currently overlap.
func detectOverlaps(bodies []*model.Body) [][2]int {
	var pairs [][2]int
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			d := bodies[i].Position.DistanceTo(bodies[j].Position)
			if d <= bodies[i].Radius+bodies[j].Radius {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// mergeInto folds small into big: summed mass, combined sphere volume,
// momentum-conserving velocity. Position and identity stay with big.
func mergeInto(big, small *model.Body) {
	totalMass := big.Mass + small.Mass
	big.Velocity = big.Velocity.Scale(big.Mass / totalMass).
		Add(small.Velocity.Scale(small.Mass / totalMass))
	big.Radius = combinedRadius(big.Radius, small.Radius)
	big.Mass = totalMass
}

// combinedRadius returns the radius of a sphere whose volume is the sum of
// two spheres with the given radii.
func combinedRadius(r1, r2 float64) float64 {
	return math.Cbrt(r1*r1*r1 + r2*r2*r2)
}
