// Package omm bakes opacity micromaps on the CPU.
//
// A bake classifies a hierarchical subdivision of every textured triangle
// into per-micro-triangle opacity states derived from an alpha texture and an
// alpha cutoff, then deduplicates, sorts and bit-packs the resulting
// micromaps into the arrays consumed by ray-tracing runtimes.
package omm

import "github.com/charmbracelet/log"

// Baker runs CPU micromap bakes. The zero value is ready to use; attach a
// logger for diagnostics.
type Baker struct {
	logger *log.Logger
}

// NewBaker returns a baker with no logger attached.
func NewBaker() *Baker { return &Baker{} }

// SetLogger attaches a diagnostics logger. The bake core emits debug-level
// statistics only; passing nil silences it.
func (b *Baker) SetLogger(logger *log.Logger) { b.logger = logger }

func validateBakeInput(desc *BakeInputDesc) error {
	switch {
	case desc.Texture == nil:
		return newError(InvalidArgument, "omm: nil texture")
	case desc.AlphaMode >= alphaModeMax:
		return newError(InvalidArgument, "omm: unknown alpha mode")
	case desc.RuntimeSamplerDesc.AddressingMode >= addressModeMax:
		return newError(InvalidArgument, "omm: unknown address mode")
	case desc.RuntimeSamplerDesc.Filter >= filterModeMax:
		return newError(InvalidArgument, "omm: unknown filter mode")
	case desc.TexCoordFormat >= texCoordFormatMax:
		return newError(InvalidArgument, "omm: unknown tex-coord format")
	case desc.TexCoords == nil:
		return newError(InvalidArgument, "omm: nil tex-coord buffer")
	case desc.IndexFormat >= indexFormatMax:
		return newError(InvalidArgument, "omm: unknown index format")
	case desc.IndexBuffer == nil:
		return newError(InvalidArgument, "omm: nil index buffer")
	case desc.IndexCount == 0:
		return newError(InvalidArgument, "omm: empty index buffer")
	case desc.Format != Format2State && desc.Format != Format4State:
		return newError(InvalidArgument, "omm: unknown micromap format")
	case desc.MaxSubdivisionLevel > MaxSubdivisionLevelLimit:
		return newError(InvalidArgument, "omm: max subdivision level out of range")
	}
	return nil
}

// Bake runs the full pipeline and returns the packed result. On error the
// partial result is discarded.
func (b *Baker) Bake(desc *BakeInputDesc) (*BakeResult, error) {
	if err := validateBakeInput(desc); err != nil {
		return nil, err
	}

	// The sampling inner loops are specialized per (tiling, address mode)
	// pair; the filter selects the kernel per work item inside resample.
	switch desc.Texture.tiling {
	case TilingLinear:
		return bakeWithTiling[linearTiling](b, desc)
	default:
		return bakeWithTiling[mortonTiling](b, desc)
	}
}

func bakeWithTiling[T tiler](b *Baker, desc *BakeInputDesc) (*BakeResult, error) {
	switch desc.RuntimeSamplerDesc.AddressingMode {
	case AddressWrap:
		return bakeImpl[T, addressWrap](b, desc)
	case AddressMirror:
		return bakeImpl[T, addressMirror](b, desc)
	case AddressClamp:
		return bakeImpl[T, addressClamp](b, desc)
	case AddressBorder:
		return bakeImpl[T, addressBorder](b, desc)
	default:
		return bakeImpl[T, addressMirrorOnce](b, desc)
	}
}

func bakeImpl[T tiler, A addresser](b *Baker, desc *BakeInputDesc) (*BakeResult, error) {
	opts := makeOptions(desc.BakeFlags)

	items, err := setupWorkItems(desc, opts)
	if err != nil {
		return nil, err
	}
	if b.logger != nil {
		b.logger.Debug("work items built",
			"primitives", desc.IndexCount/3, "unique", len(items))
	}

	if err := validateWorkloadSize(desc, opts, items); err != nil {
		return nil, err
	}

	if err := resample[T, A](desc, opts, items); err != nil {
		return nil, err
	}

	if err := promoteToSpecialIndices(desc, opts, items); err != nil {
		return nil, err
	}
	if err := deduplicateExact(opts, items); err != nil {
		return nil, err
	}
	if err := deduplicateSimilarLSH(b.logger, opts, items); err != nil {
		return nil, err
	}
	if err := deduplicateSimilarBruteForce(b.logger, opts, items); err != nil {
		return nil, err
	}
	if err := promoteToSpecialIndices(desc, opts, items); err != nil {
		return nil, err
	}

	var arrayHistogram, indexHistogram usageHistogram
	if err := createUsageHistograms(items, &arrayHistogram, &indexHistogram); err != nil {
		return nil, err
	}

	keys := micromapSpatialSort(items)

	res := &BakeResult{}
	if err := serialize(desc, items, &arrayHistogram, &indexHistogram, keys, res); err != nil {
		return nil, err
	}
	return res, nil
}
