package omm

import "math"

// TilingMode selects the backing-store layout for texture data. Tiling is a
// storage detail only; sampling semantics are identical for both layouts.
type TilingMode uint8

const (
	TilingLinear TilingMode = iota
	TilingMortonZ
)

// TextureFormat is equivalent to upstream omm::Cpu::TextureFormat.
type TextureFormat uint8

const (
	TextureFP32 TextureFormat = iota
	textureFormatMax
)

// TextureFlags is equivalent to upstream omm::Cpu::TextureFlags.
type TextureFlags uint32

const (
	TextureFlagNone TextureFlags = 0

	// TextureDisableZOrder stores mips in row-major order instead of the
	// default Morton-Z layout.
	TextureDisableZOrder TextureFlags = 1 << 0
)

// MipDesc describes one mip of an alpha texture. RowPitch is in elements
// (0 means tightly packed).
type MipDesc struct {
	Width    uint32
	Height   uint32
	RowPitch uint32
	Data     []float32
}

// TextureDesc is the input to NewTexture, equivalent to upstream
// omm::Cpu::TextureDesc.
type TextureDesc struct {
	Format TextureFormat
	Flags  TextureFlags
	Mips   []MipDesc
}

const (
	texCoordInvalid int32 = 0x7FFFFFFF
	texCoordBorder  int32 = 0x7FFFFFFE

	maxTextureDim = 1 << 16
)

type textureMip struct {
	size        int2
	dataOffset  uint64
	numElements uint64
}

// Texture is an addressable alpha sampler with mip access. It is immutable
// after creation and safe for concurrent reads.
type Texture struct {
	tiling TilingMode
	mips   []textureMip
	data   []float32
}

func validateTextureDesc(desc *TextureDesc) error {
	if len(desc.Mips) == 0 {
		return newError(InvalidArgument, "omm: texture has no mips")
	}
	if desc.Format >= textureFormatMax {
		return newError(InvalidArgument, "omm: unknown texture format")
	}
	for i := range desc.Mips {
		m := &desc.Mips[i]
		if m.Data == nil {
			return newError(InvalidArgument, "omm: nil mip data")
		}
		if m.Width == 0 || m.Height == 0 {
			return newError(InvalidArgument, "omm: zero mip dimension")
		}
		if m.Width > maxTextureDim || m.Height > maxTextureDim {
			return newError(InvalidArgument, "omm: mip dimension too large")
		}
	}
	return nil
}

// NewTexture copies the mip chain into the tiling layout selected by
// desc.Flags.
func NewTexture(desc *TextureDesc) (*Texture, error) {
	if err := validateTextureDesc(desc); err != nil {
		return nil, err
	}

	t := &Texture{
		tiling: TilingMortonZ,
		mips:   make([]textureMip, len(desc.Mips)),
	}
	if desc.Flags&TextureDisableZOrder != 0 {
		t.tiling = TilingLinear
	}

	var totalSize uint64
	for i := range desc.Mips {
		m := &t.mips[i]
		m.size = int2{int32(desc.Mips[i].Width), int32(desc.Mips[i].Height)}
		m.dataOffset = totalSize
		if t.tiling == TilingLinear {
			m.numElements = uint64(m.size.x) * uint64(m.size.y)
		} else {
			maxDim := uint64(nextPow2(uint32(max(m.size.x, m.size.y))))
			m.numElements = maxDim * maxDim
		}
		totalSize += m.numElements
	}

	t.data = make([]float32, totalSize)
	for i := range desc.Mips {
		src := &desc.Mips[i]
		m := &t.mips[i]
		rowPitch := src.RowPitch
		if rowPitch == 0 {
			rowPitch = src.Width
		}
		dst := t.data[m.dataOffset : m.dataOffset+m.numElements]
		if t.tiling == TilingLinear {
			for y := uint32(0); y < src.Height; y++ {
				copy(dst[uint64(y)*uint64(src.Width):], src.Data[y*rowPitch:y*rowPitch+src.Width])
			}
		} else {
			for y := int32(0); y < m.size.y; y++ {
				for x := int32(0); x < m.size.x; x++ {
					dst[xyToMorton(uint32(x), uint32(y))] = src.Data[uint32(y)*rowPitch+uint32(x)]
				}
			}
		}
	}
	return t, nil
}

// MipCount returns the number of mips.
func (t *Texture) MipCount() int32 { return int32(len(t.mips)) }

// Size returns the dimensions of the given mip.
func (t *Texture) Size(mip int32) (width, height int32) {
	return t.mips[mip].size.x, t.mips[mip].size.y
}

// Tiling returns the backing-store layout.
func (t *Texture) Tiling() TilingMode { return t.tiling }

func (t *Texture) size(mip int32) int2 { return t.mips[mip].size }

// tiler maps a 2-D texel coordinate to a 1-D element index. The zero-size
// implementations below let the hot sampling paths be compiled once per
// layout.
type tiler interface {
	index(idx int2, size int2) uint64
}

type linearTiling struct{}

func (linearTiling) index(idx int2, size int2) uint64 {
	return uint64(uint32(idx.x)) + uint64(uint32(idx.y))*uint64(uint32(size.x))
}

type mortonTiling struct{}

func (mortonTiling) index(idx int2, _ int2) uint64 {
	return xyToMorton(uint32(idx.x), uint32(idx.y))
}

// texLoad reads one texel. The coordinate must already be resolved in
// [0,size) by an address mode.
func texLoad[T tiler](t *Texture, coord int2, mip int32) float32 {
	m := &t.mips[mip]
	var tl T
	return t.data[m.dataOffset+tl.index(coord, m.size)]
}

// Load reads one texel through the texture's runtime tiling mode.
func (t *Texture) Load(coord int2, mip int32) float32 {
	if t.tiling == TilingLinear {
		return texLoad[linearTiling](t, coord, mip)
	}
	return texLoad[mortonTiling](t, coord, mip)
}

// addresser resolves an unbounded texel coordinate per address mode. Border
// resolution returns the texCoordBorder sentinel; callers substitute the
// sampler's border alpha at load time.
type addresser interface {
	resolve(texCoord, texSize int2) int2
}

type addressWrap struct{}

func (addressWrap) resolve(c, size int2) int2 {
	return int2{
		int32(uint32(c.x) % uint32(size.x)),
		int32(uint32(c.y) % uint32(size.y)),
	}
}

type addressMirror struct{}

func (addressMirror) resolve(c, size int2) int2 {
	absX := int32(math.Abs(float64(c.x) + 0.5))
	absY := int32(math.Abs(float64(c.y) + 0.5))
	wrappedX := absX % size.x
	wrappedY := absY % size.y
	if (absX/size.x)%2 != 0 {
		wrappedX = size.x - wrappedX - 1
	}
	if (absY/size.y)%2 != 0 {
		wrappedY = size.y - wrappedY - 1
	}
	return int2{wrappedX, wrappedY}
}

type addressClamp struct{}

func (addressClamp) resolve(c, size int2) int2 {
	return int2{clampi32(c.x, 0, size.x-1), clampi32(c.y, 0, size.y-1)}
}

type addressBorder struct{}

func (addressBorder) resolve(c, size int2) int2 {
	res := c
	if c.x >= size.x || c.x < 0 {
		res.x = texCoordBorder
	}
	if c.y >= size.y || c.y < 0 {
		res.y = texCoordBorder
	}
	return res
}

type addressMirrorOnce struct{}

func (addressMirrorOnce) resolve(c, size int2) int2 {
	absX := int32(math.Abs(float64(c.x) + 0.5))
	absY := int32(math.Abs(float64(c.y) + 0.5))
	return int2{clampi32(absX, 0, size.x-1), clampi32(absY, 0, size.y-1)}
}

// getTexCoord is the runtime-dispatch flavor of addresser resolution.
func getTexCoord(mode TextureAddressMode, c, size int2) int2 {
	switch mode {
	case AddressWrap:
		return addressWrap{}.resolve(c, size)
	case AddressMirror:
		return addressMirror{}.resolve(c, size)
	case AddressClamp:
		return addressClamp{}.resolve(c, size)
	case AddressBorder:
		return addressBorder{}.resolve(c, size)
	case AddressMirrorOnce:
		return addressMirrorOnce{}.resolve(c, size)
	default:
		return int2{texCoordInvalid, texCoordInvalid}
	}
}

func isBorder(c int2) bool {
	return c.x == texCoordBorder || c.y == texCoordBorder
}

// gather4 resolves the 2x2 footprint with corners at texCoord and
// texCoord+(1,1).
func gather4[A addresser](texCoord, texSize int2) [4]int2 {
	var a A
	c00 := a.resolve(texCoord, texSize)
	c11 := a.resolve(texCoord.add(int2{1, 1}), texSize)
	return [4]int2{
		{c00.x, c00.y}, // I0x0
		{c11.x, c00.y}, // I1x0
		{c00.x, c11.y}, // I0x1
		{c11.x, c11.y}, // I1x1
	}
}

func loadOrBorder[T tiler](t *Texture, coord int2, mip int32, borderAlpha float32) float32 {
	if isBorder(coord) {
		return borderAlpha
	}
	return texLoad[T](t, coord, mip)
}

// bilinear samples the texture with the given address mode. Border texels
// contribute borderAlpha.
func bilinear[T tiler, A addresser](t *Texture, uv vec2, mip int32, borderAlpha float32) float32 {
	size := t.size(mip)
	pixel := vec2{uv.x*float32(size.x) - 0.5, uv.y*float32(size.y) - 0.5}
	base := int2{int32(floorf(pixel.x)), int32(floorf(pixel.y))}

	coords := gather4[A](base, size)
	a := loadOrBorder[T](t, coords[0], mip, borderAlpha)
	c := loadOrBorder[T](t, coords[1], mip, borderAlpha)
	b := loadOrBorder[T](t, coords[2], mip, borderAlpha)
	d := loadOrBorder[T](t, coords[3], mip, borderAlpha)

	wx := fractf(pixel.x)
	wy := fractf(pixel.y)
	return lerpf(lerpf(a, c, wx), lerpf(b, d, wx), wy)
}

// Bilinear samples the texture with runtime dispatch, mirroring the sampling
// the renderer performs at shade time.
func (t *Texture) Bilinear(mode TextureAddressMode, u, v float32, mip int32, borderAlpha float32) float32 {
	size := t.size(mip)
	pixel := vec2{u*float32(size.x) - 0.5, v*float32(size.y) - 0.5}
	base := int2{int32(floorf(pixel.x)), int32(floorf(pixel.y))}

	c00 := getTexCoord(mode, base, size)
	c11 := getTexCoord(mode, base.add(int2{1, 1}), size)
	coords := [4]int2{{c00.x, c00.y}, {c11.x, c00.y}, {c00.x, c11.y}, {c11.x, c11.y}}

	var alphas [4]float32
	for i, coord := range coords {
		if isBorder(coord) {
			alphas[i] = borderAlpha
		} else {
			alphas[i] = t.Load(coord, mip)
		}
	}

	wx := fractf(pixel.x)
	wy := fractf(pixel.y)
	return lerpf(lerpf(alphas[0], alphas[1], wx), lerpf(alphas[2], alphas[3], wx), wy)
}
