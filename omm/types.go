package omm

// OpacityState is a micro-triangle classification equivalent to upstream
// omm::OpacityState.
type OpacityState uint8

const (
	StateTransparent        OpacityState = 0
	StateOpaque             OpacityState = 1
	StateUnknownTransparent OpacityState = 2
	StateUnknownOpaque      OpacityState = 3
)

// IsKnown reports whether s is one of the two known states.
func (s OpacityState) IsKnown() bool {
	return s == StateTransparent || s == StateOpaque
}

// IsUnknown reports whether s is one of the two unknown states.
func (s OpacityState) IsUnknown() bool {
	return s == StateUnknownTransparent || s == StateUnknownOpaque
}

// SpecialIndex is a negative index-buffer sentinel standing in for a uniform
// micromap, equivalent to upstream omm::SpecialIndex.
type SpecialIndex int32

const (
	FullyTransparent        SpecialIndex = -1
	FullyOpaque             SpecialIndex = -2
	FullyUnknownTransparent SpecialIndex = -3
	FullyUnknownOpaque      SpecialIndex = -4
)

// Format selects the per-micro-triangle state encoding, equivalent to
// upstream omm::OMMFormat.
type Format uint16

const (
	FormatInvalid Format = 0

	// Format2State is equivalent to OC1_2_State: 1 bit per micro-triangle,
	// unknown states are coerced to a known state at classification time.
	Format2State Format = 1

	// Format4State is equivalent to OC1_4_State: 2 bits per micro-triangle.
	Format4State Format = 2
)

// BitsPerState returns the packed encoding width for the format.
func (f Format) BitsPerState() uint32 {
	if f == Format2State {
		return 1
	}
	return 2
}

// UnknownStatePromotion controls which unknown variant mixed coverage resolves
// to, equivalent to upstream omm::UnknownStatePromotion.
type UnknownStatePromotion uint8

const (
	// PromoteNearest picks the unknown variant matching the dominant side of
	// the coverage tally.
	PromoteNearest UnknownStatePromotion = iota
	PromoteForceOpaque
	PromoteForceTransparent
)

// AlphaMode is equivalent to upstream omm::AlphaMode.
type AlphaMode uint8

const (
	AlphaModeTest AlphaMode = iota
	AlphaModeBlend
	alphaModeMax
)

// TextureAddressMode is equivalent to upstream omm::TextureAddressMode.
type TextureAddressMode uint8

const (
	AddressWrap TextureAddressMode = iota
	AddressMirror
	AddressClamp
	AddressBorder
	AddressMirrorOnce
	addressModeMax
)

// TextureFilterMode is equivalent to upstream omm::TextureFilterMode.
type TextureFilterMode uint8

const (
	FilterNearest TextureFilterMode = iota
	FilterLinear
	filterModeMax
)

// IndexFormat is equivalent to upstream omm::IndexFormat.
type IndexFormat uint8

const (
	IndexI16 IndexFormat = iota // I16_UINT
	IndexI32                    // I32_UINT
	indexFormatMax
)

// Size returns the element size in bytes.
func (f IndexFormat) Size() int {
	if f == IndexI16 {
		return 2
	}
	return 4
}

// TexCoordFormat is equivalent to upstream omm::TexCoordFormat.
type TexCoordFormat uint8

const (
	TexCoordUV16UNorm TexCoordFormat = iota
	TexCoordUV16Float
	TexCoordUV32Float
	texCoordFormatMax
)

// Size returns the tightly-packed UV pair size in bytes.
func (f TexCoordFormat) Size() int {
	if f == TexCoordUV32Float {
		return 8
	}
	return 4
}

// BakeFlags is a bitset of bake options equivalent to upstream
// omm::Cpu::BakeFlags, including the internal bits.
type BakeFlags uint32

const (
	BakeFlagNone                     BakeFlags = 0
	BakeEnableInternalThreads        BakeFlags = 1 << 0
	BakeDisableSpecialIndices        BakeFlags = 1 << 1
	BakeForce32BitIndices            BakeFlags = 1 << 2
	BakeDisableDuplicateDetection    BakeFlags = 1 << 3
	BakeEnableNearDuplicateDetection BakeFlags = 1 << 4
	BakeEnableWorkloadValidation     BakeFlags = 1 << 5

	// Internal / not publicly exposed options.
	BakeEnableAABBTesting                      BakeFlags = 1 << 6
	BakeDisableRemovePoorQualityOMM            BakeFlags = 1 << 7
	BakeDisableLevelLineIntersection           BakeFlags = 1 << 8
	BakeEnableNearDuplicateDetectionBruteForce BakeFlags = 1 << 9
)

func (f BakeFlags) has(bit BakeFlags) bool { return f&bit == bit }

// SamplerDesc describes the sampler state the micromap will be used with at
// runtime, equivalent to upstream omm::SamplerDesc.
type SamplerDesc struct {
	AddressingMode TextureAddressMode
	Filter         TextureFilterMode
	BorderAlpha    float32
}

// BakeInputDesc is the input to Baker.Bake, equivalent to upstream
// omm::Cpu::BakeInputDesc.
//
// IndexBuffer and TexCoords are raw little-endian buffers interpreted per
// IndexFormat, TexCoordFormat and TexCoordStrideInBytes (0 means tightly
// packed).
type BakeInputDesc struct {
	BakeFlags BakeFlags

	Texture *Texture

	// RuntimeSamplerDesc must match the alpha-test sampling the renderer will
	// perform, or the baked states are not conservative.
	RuntimeSamplerDesc SamplerDesc
	AlphaMode          AlphaMode
	AlphaCutoff        float32

	TexCoordFormat        TexCoordFormat
	TexCoords             []byte
	TexCoordStrideInBytes uint32

	IndexFormat IndexFormat
	IndexBuffer []byte
	IndexCount  uint32

	// Format is the global micromap format; Formats optionally overrides it
	// per primitive (FormatInvalid entries fall back to Format).
	Format  Format
	Formats []Format

	UnknownStatePromotion UnknownStatePromotion

	// MaxSubdivisionLevel caps the micromap resolution; at most
	// MaxSubdivisionLevelLimit.
	MaxSubdivisionLevel uint8

	// SubdivisionLevels optionally overrides the level per primitive. Values
	// above 12 are ignored, except DisabledPrimitive which skips baking for
	// that primitive.
	SubdivisionLevels []uint8

	// DynamicSubdivisionScale > 0 derives the level from the triangle's
	// projected pixel area so that one micro-triangle covers roughly a
	// scale x scale pixel region.
	DynamicSubdivisionScale float32

	// RejectionThreshold > 0 discards micromaps whose known fraction is below
	// the threshold, replacing them with FullyUnknownTransparent.
	RejectionThreshold float32
}

const (
	// MaxSubdivisionLevelLimit is the hard cap on subdivision levels.
	MaxSubdivisionLevelLimit = 12

	// DisabledPrimitive in BakeInputDesc.SubdivisionLevels disables baking
	// for that primitive.
	DisabledPrimitive = 0xE

	maxNumSubdivLevels = MaxSubdivisionLevelLimit + 1
)

// MicromapDesc locates one micromap inside the packed array, equivalent to
// upstream omm::Cpu::OpacityMicromapDesc.
type MicromapDesc struct {
	// Offset is the byte offset into BakeResult.ArrayData.
	Offset           uint32
	SubdivisionLevel uint16
	Format           Format
}

// UsageCount is one histogram entry, equivalent to upstream
// omm::Cpu::OpacityMicromapUsageCount.
type UsageCount struct {
	Count            uint32
	SubdivisionLevel uint16
	Format           Format
}

// BakeResult owns all output buffers of a bake, equivalent to upstream
// omm::Cpu::BakeResultDesc.
type BakeResult struct {
	// ArrayData is the bit-packed micromap state array.
	ArrayData []byte

	DescArray []MicromapDesc

	// IndexBuffer holds IndexCount signed entries of IndexFormat element
	// size; negative values are SpecialIndex sentinels, non-negative values
	// index DescArray.
	IndexBuffer []byte
	IndexCount  uint32
	IndexFormat IndexFormat

	ArrayHistogram []UsageCount
	IndexHistogram []UsageCount
}

// IndexAt decodes entry i of the primitive index buffer.
func (r *BakeResult) IndexAt(i int) int32 {
	if r.IndexFormat == IndexI16 {
		return int32(int16(uint16(r.IndexBuffer[2*i]) | uint16(r.IndexBuffer[2*i+1])<<8))
	}
	off := 4 * i
	u := uint32(r.IndexBuffer[off]) | uint32(r.IndexBuffer[off+1])<<8 |
		uint32(r.IndexBuffer[off+2])<<16 | uint32(r.IndexBuffer[off+3])<<24
	return int32(u)
}

// StateAt decodes micro-triangle uTri of descriptor desc from the packed
// array.
func (r *BakeResult) StateAt(desc MicromapDesc, uTri uint32) OpacityState {
	data := r.ArrayData[desc.Offset:]
	if desc.Format == Format2State {
		v := data[uTri>>3]
		return OpacityState((v >> (uTri & 7)) & 1)
	}
	v := data[uTri>>2]
	return OpacityState((v >> ((uTri & 3) << 1)) & 3)
}
