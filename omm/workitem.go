package omm

import (
	"encoding/binary"
	"math"

	"github.com/OneOfOne/xxhash"
)

const hashSeed = 42

// stateVector stores both the 4-state values (for serialization) and a
// parallel 3-state projection with UnknownTransparent collapsed to
// UnknownOpaque (for hashing and similarity), written together at
// classification time.
type stateVector struct {
	states  []uint8
	states3 []uint8
}

func newStateVector(subdivisionLevel int32) stateVector {
	n := numMicroTriangles(subdivisionLevel)
	return stateVector{
		states:  make([]uint8, n),
		states3: make([]uint8, n),
	}
}

func (v *stateVector) set(i uint32, s OpacityState) {
	v.states[i] = uint8(s)
	if s == StateUnknownTransparent {
		v.states3[i] = uint8(StateUnknownOpaque)
	} else {
		v.states3[i] = uint8(s)
	}
}

func (v *stateVector) get(i uint32) OpacityState  { return OpacityState(v.states[i]) }
func (v *stateVector) get3(i uint32) OpacityState { return OpacityState(v.states3[i]) }

const noSpecialIndex int32 = 0

// workItem is one unique micromap to bake: a UV triangle at a subdivision
// level and format, plus every source primitive that maps to it.
type workItem struct {
	subdivisionLevel int32
	format           Format
	uvTri            triangle

	// primitives lists the source primitive indices sharing this micromap. A
	// merged-away item has an empty list and never re-acquires one.
	primitives []uint32

	// specialIndex is noSpecialIndex while the item still needs a
	// descriptor; a negative value is either a SpecialIndex sentinel or the
	// retirement marker.
	specialIndex int32
	descOffset   uint32

	states stateVector
}

func (w *workItem) hasSpecialIndex() bool { return w.specialIndex != noSpecialIndex }

func (w *workItem) retire() {
	w.primitives = w.primitives[:0]
	w.specialIndex = -1
}

// fingerprint keys exact-UV duplicate folding during work-item construction.
func fingerprint(t *triangle, subdivisionLevel int32, format Format) uint64 {
	var buf [30]byte
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(t.p0.x))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(t.p0.y))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(t.p1.x))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(t.p1.y))
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(t.p2.x))
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(t.p2.y))
	binary.LittleEndian.PutUint32(buf[24:], uint32(subdivisionLevel))
	binary.LittleEndian.PutUint16(buf[28:], uint16(format))
	return xxhash.Checksum64S(buf[:30], hashSeed)
}

// calcSuitableSubdivisionLevel solves pixelUvArea / 4^N = targetPixelArea for
// N, so one micro-triangle covers roughly a scale x scale pixel region.
func calcSuitableSubdivisionLevel(desc *BakeInputDesc, t *triangle, texSize int2) int32 {
	sizef := texSize.toVec2()
	pixelUvArea := area2D(t.p0.mul(sizef), t.p1.mul(sizef), t.p2.mul(sizef))

	targetPixelArea := desc.DynamicSubdivisionScale * desc.DynamicSubdivisionScale
	ratio := uint32(pixelUvArea / targetPixelArea)
	level := int32(log2u(nextPow2(ratio)) >> 1) // log2(ratio) / log2(4)

	return min(level, int32(desc.MaxSubdivisionLevel))
}

// subdivisionLevelForPrimitive applies the per-primitive override, then the
// dynamic heuristic, then the global cap. DisabledPrimitive is returned
// verbatim for the caller to skip.
func subdivisionLevelForPrimitive(desc *BakeInputDesc, i uint32, t *triangle, texSize int2) int32 {
	if desc.SubdivisionLevels != nil {
		if lvl := desc.SubdivisionLevels[i]; lvl <= MaxSubdivisionLevelLimit || lvl == DisabledPrimitive {
			return int32(lvl)
		}
	}
	if desc.DynamicSubdivisionScale > 0 {
		return calcSuitableSubdivisionLevel(desc, t, texSize)
	}
	return int32(desc.MaxSubdivisionLevel)
}

// setupWorkItems decodes the index and tex-coord buffers into one work item
// per unique (UV triangle, level, format).
func setupWorkItems(desc *BakeInputDesc, opts options) ([]workItem, error) {
	triangleCount := desc.IndexCount / 3

	texSize := desc.Texture.size(0) // level selection is always based on mip 0

	items := make([]workItem, 0, triangleCount)
	fingerprintToItem := make(map[uint64]uint32, triangleCount)

	stride := desc.TexCoordStrideInBytes
	if stride == 0 {
		stride = uint32(desc.TexCoordFormat.Size())
	}

	for i := uint32(0); i < triangleCount; i++ {
		indices := fetchIndices(desc.IndexFormat, desc.IndexBuffer, i)
		uvTri := fetchUVTriangle(desc.TexCoords, stride, desc.TexCoordFormat, indices)

		subdivisionLevel := subdivisionLevelForPrimitive(desc, i, &uvTri, texSize)

		if subdivisionLevel == DisabledPrimitive || uvTri.isDegenerate() {
			// These primitives keep the fully-unknown special index assigned
			// at serialization.
			continue
		}
		if subdivisionLevel > MaxSubdivisionLevelLimit {
			return nil, newError(InvalidArgument, "omm: subdivision level out of range")
		}

		format := desc.Format
		if desc.Formats != nil && desc.Formats[i] != FormatInvalid {
			format = desc.Formats[i]
		}
		if format != Format2State && format != Format4State {
			return nil, newError(InvalidArgument, "omm: unknown micromap format override")
		}

		id := fingerprint(&uvTri, subdivisionLevel, format)
		if prev, ok := fingerprintToItem[id]; ok && !opts.disableDuplicateDetection {
			items[prev].primitives = append(items[prev].primitives, i)
			continue
		}

		fingerprintToItem[id] = uint32(len(items))
		items = append(items, workItem{
			subdivisionLevel: subdivisionLevel,
			format:           format,
			uvTri:            uvTri,
			primitives:       []uint32{i},
			states:           newStateVector(subdivisionLevel),
		})
	}
	return items, nil
}

// maxWorkloadSize is the pre-flight raster budget: 128 x 1024x1024 texel
// visits.
const maxWorkloadSize = 1 << 27

// validateWorkloadSize estimates the raster work from the work items' pixel
// bounding boxes and rejects bakes that would not complete in reasonable
// time.
func validateWorkloadSize(desc *BakeInputDesc, opts options, items []workItem) error {
	if !opts.enableWorkloadValidation {
		return nil
	}

	sizef := desc.Texture.size(0).toVec2()
	var workloadSize uint64
	for i := range items {
		ext := items[i].uvTri.aabbE.sub(items[i].uvTri.aabbS).mul(sizef)
		workloadSize += uint64(int64(ext.x)) * uint64(int64(ext.y))
	}
	if workloadSize > maxWorkloadSize {
		return newError(WorkloadTooBig, "omm: estimated bake workload exceeds budget")
	}
	return nil
}
