package omm

// promoteToSpecialIndices collapses uniform micromaps to special-index
// sentinels and applies the quality rejection policy. It runs once before
// deduplication (so exact dedup never materializes trivial micromaps) and
// once after (so merges that became uniform still collapse).
func promoteToSpecialIndices(desc *BakeInputDesc, opts options, items []workItem) error {
	for i := range items {
		w := &items[i]
		n := numMicroTriangles(w.subdivisionLevel)

		allEqual := true
		commonState := w.states.get(0)
		for uTriIt := uint32(1); uTriIt < n; uTriIt++ {
			allEqual = allEqual && commonState == w.states.get(uTriIt)
		}

		if !allEqual && desc.RejectionThreshold > 0 && !opts.disableRemovePoorQualityOMM {
			// Micromaps that are mostly unknown anyway are not worth a
			// descriptor.
			var known uint32
			for uTriIt := uint32(0); uTriIt < n; uTriIt++ {
				if w.states.get(uTriIt).IsKnown() {
					known++
				}
			}
			if float32(known)/float32(n) < desc.RejectionThreshold {
				allEqual = true
				commonState = StateUnknownTransparent
			}
		}

		if allEqual && !opts.disableSpecialIndices {
			w.specialIndex = -int32(commonState) - 1
		}
	}
	return nil
}

// usageHistogram accumulates micromap usage per (format, subdivision level).
type usageHistogram struct {
	counts [2][maxNumSubdivLevels]uint32
}

func (h *usageHistogram) inc(format Format, subdivisionLevel int32, count uint32) {
	h.counts[format-1][subdivisionLevel] += count
}

func (h *usageHistogram) count(format Format, subdivisionLevel int32) uint32 {
	return h.counts[format-1][subdivisionLevel]
}

// createUsageHistograms tallies surviving work items: the array histogram
// counts micromaps, the index histogram counts referencing primitives.
func createUsageHistograms(items []workItem, arrayHistogram, indexHistogram *usageHistogram) error {
	for i := range items {
		w := &items[i]
		if w.specialIndex == noSpecialIndex {
			arrayHistogram.inc(w.format, w.subdivisionLevel, 1)
			indexHistogram.inc(w.format, w.subdivisionLevel, uint32(len(w.primitives)))
		}
	}
	return nil
}
