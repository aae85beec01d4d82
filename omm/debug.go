package omm

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
)

// Stats summarizes a bake result by decoding the packed output, primarily for
// tests and tooling.
type Stats struct {
	TotalOpaque             uint64
	TotalTransparent        uint64
	TotalUnknownOpaque      uint64
	TotalUnknownTransparent uint64

	TotalFullyOpaque             uint32
	TotalFullyTransparent        uint32
	TotalFullyUnknownOpaque      uint32
	TotalFullyUnknownTransparent uint32
}

type descStats struct {
	opaque             uint64
	transparent        uint64
	unknownOpaque      uint64
	unknownTransparent uint64
}

// CollectStats tallies micro-triangle states per referencing primitive and
// special-index usage across the index buffer.
func CollectStats(res *BakeResult) (Stats, error) {
	if res == nil {
		return Stats{}, newError(InvalidArgument, "omm: nil bake result")
	}

	var stats Stats
	for i := 0; i < int(res.IndexCount); i++ {
		switch SpecialIndex(res.IndexAt(i)) {
		case FullyTransparent:
			stats.TotalFullyTransparent++
		case FullyOpaque:
			stats.TotalFullyOpaque++
		case FullyUnknownTransparent:
			stats.TotalFullyUnknownTransparent++
		case FullyUnknownOpaque:
			stats.TotalFullyUnknownOpaque++
		}
	}

	perDesc := make([]descStats, len(res.DescArray))
	for i, desc := range res.DescArray {
		n := numMicroTriangles(int32(desc.SubdivisionLevel))
		for uTriIt := uint32(0); uTriIt < n; uTriIt++ {
			switch res.StateAt(desc, uTriIt) {
			case StateOpaque:
				perDesc[i].opaque++
			case StateTransparent:
				perDesc[i].transparent++
			case StateUnknownOpaque:
				perDesc[i].unknownOpaque++
			case StateUnknownTransparent:
				perDesc[i].unknownTransparent++
			}
		}
	}

	for i := 0; i < int(res.IndexCount); i++ {
		index := res.IndexAt(i)
		if index < 0 {
			continue
		}
		if int(index) >= len(perDesc) {
			return Stats{}, newError(Failure, "omm: index buffer references missing descriptor")
		}
		stats.TotalOpaque += perDesc[index].opaque
		stats.TotalTransparent += perDesc[index].transparent
		stats.TotalUnknownOpaque += perDesc[index].unknownOpaque
		stats.TotalUnknownTransparent += perDesc[index].unknownTransparent
	}
	return stats, nil
}

// ImageDumpDesc configures SaveAsImages.
type ImageDumpDesc struct {
	// Path is the output directory, created if missing.
	Path        string
	FilePostfix string

	// MonochromeUnknowns renders both unknown states in gray instead of
	// distinct colors.
	MonochromeUnknowns bool
}

func stateColor(state OpacityState, monochromeUnknowns bool) color.RGBA {
	switch state {
	case StateOpaque:
		return color.RGBA{0, 160, 0, 255}
	case StateTransparent:
		return color.RGBA{0, 64, 200, 255}
	case StateUnknownOpaque:
		if monochromeUnknowns {
			return color.RGBA{128, 128, 128, 255}
		}
		return color.RGBA{200, 40, 40, 255}
	default: // StateUnknownTransparent
		if monochromeUnknowns {
			return color.RGBA{128, 128, 128, 255}
		}
		return color.RGBA{220, 200, 40, 255}
	}
}

// SaveAsImages renders the alpha texture with the baked micromap states
// overlaid and writes one BMP per bake.
func SaveAsImages(desc *BakeInputDesc, res *BakeResult, dump *ImageDumpDesc) error {
	if desc == nil || res == nil || dump == nil {
		return newError(InvalidArgument, "omm: nil image dump input")
	}

	tex := desc.Texture
	width, height := tex.Size(0)
	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))

	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			v := uint8(clampi32(int32(tex.Load(int2{x, y}, 0)*255), 0, 255))
			img.SetRGBA(int(x), int(y), color.RGBA{v, v, v, 255})
		}
	}

	stride := desc.TexCoordStrideInBytes
	if stride == 0 {
		stride = uint32(desc.TexCoordFormat.Size())
	}
	rasterSize := int2{width, height}

	for prim := uint32(0); prim < res.IndexCount; prim++ {
		indices := fetchIndices(desc.IndexFormat, desc.IndexBuffer, prim)
		uvTri := fetchUVTriangle(desc.TexCoords, stride, desc.TexCoordFormat, indices)
		if uvTri.isDegenerate() {
			continue
		}

		index := res.IndexAt(int(prim))

		level := int32(0)
		lookup := func(uTri uint32) OpacityState { return stateForSpecialIndex(SpecialIndex(index)) }
		if index >= 0 {
			md := res.DescArray[index]
			level = int32(md.SubdivisionLevel)
			lookup = func(uTri uint32) OpacityState { return res.StateAt(md, uTri) }
		}

		n := numMicroTriangles(level)
		for uTriIt := uint32(0); uTriIt < n; uTriIt++ {
			subTri := getMicroTriangle(&uvTri, uTriIt, level)
			c := stateColor(lookup(uTriIt), dump.MonochromeUnknowns)
			rasterizeConservative(&subTri, rasterSize, vec2{}, func(pixel int2) {
				if pixel.x < 0 || pixel.y < 0 || pixel.x >= width || pixel.y >= height {
					return
				}
				base := img.RGBAAt(int(pixel.x), int(pixel.y))
				img.SetRGBA(int(pixel.x), int(pixel.y), color.RGBA{
					R: uint8((uint16(base.R) + uint16(c.R)) / 2),
					G: uint8((uint16(base.G) + uint16(c.G)) / 2),
					B: uint8((uint16(base.B) + uint16(c.B)) / 2),
					A: 255,
				})
			})
		}
	}

	if err := os.MkdirAll(dump.Path, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("omm_%s.bmp", dump.FilePostfix)
	f, err := os.Create(filepath.Join(dump.Path, name))
	if err != nil {
		return err
	}
	defer f.Close()
	return bmp.Encode(f, img)
}

func stateForSpecialIndex(index SpecialIndex) OpacityState {
	switch index {
	case FullyTransparent:
		return StateTransparent
	case FullyOpaque:
		return StateOpaque
	case FullyUnknownTransparent:
		return StateUnknownTransparent
	default:
		return StateUnknownOpaque
	}
}
