package omm

import (
	"math"
	"slices"

	"github.com/OneOfOne/xxhash"
	"github.com/charmbracelet/log"
	"github.com/seehuhn/mt19937"
)

// deduplicateExact folds work items with identical 3-state content. Hashing
// the 3-state projection makes the two unknown variants compare equal.
func deduplicateExact(opts options, items []workItem) error {
	if opts.disableDuplicateDetection {
		return nil
	}

	digestToItem := make(map[uint64]uint32, len(items))
	for i := range items {
		digest := xxhash.Checksum64S(items[i].states.states3, hashSeed)
		prev, ok := digestToItem[digest]
		if !ok {
			digestToItem[digest] = uint32(i)
			continue
		}
		// Transfer primitives to the surviving item and retire this one.
		items[prev].primitives = append(items[prev].primitives, items[i].primitives...)
		items[i].retire()
	}
	return nil
}

// hammingDistance3 counts differing 3-state entries. Items must share a
// subdivision level.
func hammingDistance3(a, b *workItem) float32 {
	n := numMicroTriangles(a.subdivisionLevel)
	var diff uint32
	for i := uint32(0); i < n; i++ {
		if a.states.states3[i] != b.states.states3[i] {
			diff++
		}
	}
	return float32(diff)
}

func normalizedHammingDistance3(a, b *workItem) float32 {
	return hammingDistance3(a, b) / float32(numMicroTriangles(a.subdivisionLevel))
}

// mergeWorkItems folds from into to: primitives transfer, from retires, and
// the states combine conservatively per micro-triangle.
func mergeWorkItems(to, from *workItem) {
	to.primitives = append(to.primitives, from.primitives...)
	from.retire()

	n := numMicroTriangles(from.subdivisionLevel)
	for i := uint32(0); i < n; i++ {
		toState := to.states.get(i)
		fromState := from.states.get(i)
		if toState == fromState {
			continue
		}
		switch {
		case toState.IsKnown() && fromState.IsKnown():
			to.states.set(i, StateUnknownOpaque)
		case toState.IsKnown() && fromState.IsUnknown():
			to.states.set(i, fromState)
		default:
			// Both unknown; keep the current variant.
		}
	}
}

// lshIterations is how many times the whole hashing scheme re-runs with fresh
// random bit samples to recover missed neighbors.
const lshIterations = 3

type lshHashTable struct {
	bitIndices  []uint32
	itemHashes  []uint64
	hashToItems map[uint64][]uint32
}

// deduplicateSimilarLSH merges near-duplicate micromaps via locality
// sensitive hashing with Hamming bit sampling, bucketed per subdivision
// level.
//
// ref1: Gionis, Indyk, Motwani - Similarity Search in High Dimensions via
// Hashing (VLDB '99).
func deduplicateSimilarLSH(logger *log.Logger, opts options, items []workItem) error {
	if !opts.enableNearDuplicateDetection || opts.enableNearDuplicateDetectionBruteForce {
		return nil
	}

	// Reproducible bit sampling; the exact stream is not part of the output
	// contract but keeps bakes bit-identical run to run.
	mt := mt19937.New()
	mt.Seed(hashSeed)

	var trueMatch, noMatch uint32

	for attempt := 0; attempt < lshIterations; attempt++ {
		batch := make([]uint32, 0, len(items))

		for subdivisionLevel := int32(1); subdivisionLevel <= MaxSubdivisionLevelLimit; subdivisionLevel++ {
			batch = batch[:0]
			for i := range items {
				w := &items[i]
				if w.hasSpecialIndex() || w.format != Format4State || w.subdivisionLevel != subdivisionLevel {
					continue
				}
				batch = append(batch, uint32(i))
			}
			if len(batch) == 0 {
				continue
			}

			// n - data set size, d - bit dimensionality, r - close-point
			// radius, c - approximation factor.
			d := numMicroTriangles(subdivisionLevel)
			n := uint32(len(batch))

			r := 0.15 * float32(d)
			const c = 4.0

			numTables := uint32(math.Ceil(math.Pow(float64(n), 1.0/c)))
			if numTables == 0 {
				continue
			}
			k := uint32(math.Ceil(math.Log(float64(n)) * float64(d) / (c * float64(r))))
			if k == 0 {
				// Degenerate parameters; skip rather than fall back to an
				// exhaustive scan.
				continue
			}

			tables := make([]lshHashTable, numTables)
			for t := range tables {
				tables[t].itemHashes = make([]uint64, len(items))
				tables[t].bitIndices = make([]uint32, k)
				tables[t].hashToItems = make(map[uint64][]uint32)
				for bit := range tables[t].bitIndices {
					tables[t].bitIndices[bit] = uint32(mt.Uint64()) & (d - 1)
				}
			}

			bitSamples := make([]byte, 4*k)
			for _, itemIndex := range batch {
				w := &items[itemIndex]
				for t := range tables {
					table := &tables[t]
					for kIt, bitIndex := range table.bitIndices {
						state := uint32(w.states.get3(bitIndex))
						bitSamples[4*kIt] = byte(state)
						bitSamples[4*kIt+1] = 0
						bitSamples[4*kIt+2] = 0
						bitSamples[4*kIt+3] = 0
					}
					hash := xxhash.Checksum64S(bitSamples, hashSeed)
					table.itemHashes[itemIndex] = hash
					table.hashToItems[hash] = append(table.hashToItems[hash], itemIndex)
				}
			}

			potential := make([]uint32, 0, 4*numTables)
			for _, itemIndex := range batch {
				w := &items[itemIndex]
				if w.hasSpecialIndex() {
					// Already merged earlier in this pass.
					continue
				}

				potential = potential[:0]
				for t := range tables {
					bucket := tables[t].hashToItems[tables[t].itemHashes[itemIndex]]
					for _, candidate := range bucket {
						if candidate == itemIndex || items[candidate].hasSpecialIndex() {
							continue
						}
						if uint32(len(potential)) > 3*numTables {
							break
						}
						potential = append(potential, candidate)
					}
				}
				slices.Sort(potential)
				potential = slices.Compact(potential)

				// Out of the potential matches, pick the nearest.
				minDist := float32(math.MaxFloat32)
				nearest := int32(-1)
				for _, candidate := range potential {
					dist := hammingDistance3(w, &items[candidate])
					if dist < r && dist < minDist {
						minDist = dist
						nearest = int32(candidate)
					}
				}

				if nearest >= 0 {
					trueMatch++
					mergeWorkItems(w, &items[nearest])
				} else {
					noMatch++
				}
			}
		}
	}

	if logger != nil {
		logger.Debug("near-duplicate LSH pass", "merged", trueMatch, "unmatched", noMatch)
	}
	return nil
}

const (
	// bruteForceMergeThreshold is the normalized 3-state Hamming distance
	// below which two micromaps are combined.
	bruteForceMergeThreshold = 0.1

	// bruteForceMaxComparisons bounds the forward search window, turning the
	// O(n^2) scan into O(kn).
	bruteForceMaxComparisons = 2048
)

// deduplicateSimilarBruteForce is the windowed exhaustive fallback used when
// the LSH path is bypassed.
func deduplicateSimilarBruteForce(logger *log.Logger, opts options, items []workItem) error {
	if !opts.enableNearDuplicateDetection || !opts.enableNearDuplicateDetectionBruteForce {
		return nil
	}
	if len(items) == 0 {
		return nil
	}

	var merges uint32
	merged := make(map[uint32]struct{})
	for itA := 0; itA+1 < len(items); itA++ {
		a := &items[itA]
		if a.hasSpecialIndex() || a.format != Format4State {
			continue
		}

		searchStart := itA + 1
		searchEnd := min(searchStart+bruteForceMaxComparisons, len(items))

		minDist := float32(math.MaxFloat32)
		nearest := -1
		for itB := searchStart; itB < searchEnd; itB++ {
			b := &items[itB]
			if b.hasSpecialIndex() || b.format != Format4State {
				continue
			}
			if len(b.primitives) == 0 || b.subdivisionLevel != a.subdivisionLevel {
				continue
			}
			if _, ok := merged[uint32(itB)]; ok {
				continue
			}
			dist := normalizedHammingDistance3(a, b)
			if dist < bruteForceMergeThreshold && dist < minDist {
				minDist = dist
				nearest = itB
			}
		}

		if nearest >= 0 {
			merged[uint32(itA)] = struct{}{}
			merged[uint32(nearest)] = struct{}{}
			mergeWorkItems(a, &items[nearest])
			merges++
		}
	}

	if logger != nil {
		logger.Debug("near-duplicate brute-force pass", "merged", merges)
	}
	return nil
}
