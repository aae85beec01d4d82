package omm

import (
	"encoding/binary"
	"math"
)

// payloadBytes is the packed size of one micromap; offsets stay at least
// one byte apart so every descriptor has a distinct window.
func payloadBytes(subdivisionLevel int32, format Format) uint64 {
	bits := uint64(numMicroTriangles(subdivisionLevel)) * uint64(format.BitsPerState())
	return max(bits>>3, 1)
}

// serialize walks the work items in sort order and assembles the final
// buffers: the bit-packed state array, the descriptor array, the signed
// per-primitive index buffer and the two usage histograms.
func serialize(desc *BakeInputDesc, items []workItem, arrayHistogram, indexHistogram *usageHistogram, keys []sortKey, res *BakeResult) error {
	var descArrayCount uint32
	var arrayDataSize uint64
	for _, format := range [2]Format{Format2State, Format4State} {
		for lvl := int32(0); lvl < maxNumSubdivLevels; lvl++ {
			count := arrayHistogram.count(format, lvl)
			descArrayCount += count
			arrayDataSize += uint64(count) * payloadBytes(lvl, format)
		}
	}

	if arrayDataSize > math.MaxUint32 {
		return newError(Failure, "omm: packed micromap array exceeds 4GB")
	}

	if descArrayCount != 0 {
		res.ArrayData = make([]byte, arrayDataSize)
		res.DescArray = make([]MicromapDesc, descArrayCount)

		var arrayDataOffset uint64
		var descOffset uint32
		for _, key := range keys {
			w := &items[key.index]
			if w.specialIndex != noSpecialIndex {
				continue
			}
			if arrayDataOffset >= arrayDataSize {
				return newError(Failure, "omm: packed micromap array overflow")
			}

			res.DescArray[descOffset] = MicromapDesc{
				Offset:           uint32(arrayDataOffset),
				SubdivisionLevel: uint16(w.subdivisionLevel),
				Format:           w.format,
			}
			w.descOffset = descOffset
			descOffset++

			n := numMicroTriangles(w.subdivisionLevel)
			payload := res.ArrayData[arrayDataOffset:]
			if w.format == Format2State {
				for uTriIt := uint32(0); uTriIt < n; uTriIt++ {
					state := uint32(w.states.get(uTriIt))
					payload[uTriIt>>3] |= uint8(state << (uTriIt & 7))
				}
			} else {
				for uTriIt := uint32(0); uTriIt < n; uTriIt++ {
					state := uint32(w.states.get(uTriIt))
					payload[uTriIt>>2] |= uint8(state << ((uTriIt & 3) << 1))
				}
			}

			arrayDataOffset += payloadBytes(w.subdivisionLevel, w.format)
		}
	}

	// Sparse histograms, skipping empty buckets.
	for _, format := range [2]Format{Format2State, Format4State} {
		for lvl := int32(0); lvl < maxNumSubdivLevels; lvl++ {
			if count := arrayHistogram.count(format, lvl); count != 0 {
				res.ArrayHistogram = append(res.ArrayHistogram, UsageCount{
					Count:            count,
					SubdivisionLevel: uint16(lvl),
					Format:           format,
				})
			}
			if count := indexHistogram.count(format, lvl); count != 0 {
				res.IndexHistogram = append(res.IndexHistogram, UsageCount{
					Count:            count,
					SubdivisionLevel: uint16(lvl),
					Format:           format,
				})
			}
		}
	}

	triangleCount := desc.IndexCount / 3

	// Primitive index buffer. Degenerate and disabled primitives never
	// acquired a work item and keep the fully-unknown default.
	indices := make([]int32, triangleCount)
	for i := range indices {
		indices[i] = int32(FullyUnknownOpaque)
	}
	for i := range items {
		w := &items[i]
		for _, prim := range w.primitives {
			if w.specialIndex != noSpecialIndex {
				indices[prim] = w.specialIndex
			} else {
				indices[prim] = int32(w.descOffset)
			}
		}
	}

	// Compress to 16-bit entries when every descriptor index fits.
	force32 := desc.BakeFlags.has(BakeForce32BitIndices)
	if triangleCount <= math.MaxInt16 && !force32 {
		res.IndexFormat = IndexI16
		res.IndexBuffer = make([]byte, 2*len(indices))
		for i, idx := range indices {
			binary.LittleEndian.PutUint16(res.IndexBuffer[2*i:], uint16(int16(idx)))
		}
	} else {
		res.IndexFormat = IndexI32
		res.IndexBuffer = make([]byte, 4*len(indices))
		for i, idx := range indices {
			binary.LittleEndian.PutUint32(res.IndexBuffer[4*i:], uint32(idx))
		}
	}
	res.IndexCount = triangleCount

	return nil
}
