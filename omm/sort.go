package omm

import "slices"

// Spatial ordering of the surviving micromaps:
//   - larger micromaps first (subdivision level in the top key bits), which
//     keeps same-size payloads grouped for cache-line alignment;
//   - within a level, Morton order of the quantized UV centroid, clustering
//     spatially nearby micromaps.
//
// Special-indexed items carry no payload; their key is bit 63 | original
// index, so among themselves they sort by descending original index. Levels
// >= 8 also set bit 63, so such items can sort ahead of or among them.

type sortKey struct {
	key   uint64
	index uint32
}

const centroidQuantBits = 13

// micromapSpatialSort produces the emission order for serialization.
func micromapSpatialSort(items []workItem) []sortKey {
	keys := make([]sortKey, len(items))
	for i := range items {
		w := &items[i]
		if w.hasSpecialIndex() {
			keys[i] = sortKey{key: 1<<63 | uint64(i), index: uint32(i)}
			continue
		}

		qSize := int2{1 << centroidQuantBits, 1 << centroidQuantBits}
		centroid := w.uvTri.p0.add(w.uvTri.p1).add(w.uvTri.p2).scale(1.0 / 3.0)
		qUV := int2{
			int32(float32(qSize.x) * centroid.x),
			int32(float32(qSize.y) * centroid.y),
		}
		qPos := addressMirrorOnce{}.resolve(qUV, qSize)
		mortonCode := xyToMorton(uint32(qPos.x), uint32(qPos.y))

		key := uint64(w.subdivisionLevel)<<60 | mortonCode
		keys[i] = sortKey{key: key, index: uint32(i)}
	}

	slices.SortFunc(keys, func(a, b sortKey) int {
		switch {
		case a.key != b.key:
			if a.key > b.key {
				return -1
			}
			return 1
		case a.index != b.index:
			if a.index > b.index {
				return -1
			}
			return 1
		default:
			return 0
		}
	})
	return keys
}
