package omm

import (
	"math"
	"testing"
)

func TestAddressModes(t *testing.T) {
	size := int2{4, 4}
	cases := []struct {
		mode TextureAddressMode
		in   int2
		want int2
	}{
		{AddressWrap, int2{0, 0}, int2{0, 0}},
		{AddressWrap, int2{4, 5}, int2{0, 1}},
		{AddressWrap, int2{-1, -4}, int2{3, 0}},

		{AddressMirror, int2{-1, -2}, int2{0, 1}},
		{AddressMirror, int2{4, 7}, int2{3, 0}},
		{AddressMirror, int2{2, 9}, int2{2, 1}},

		{AddressClamp, int2{-3, 9}, int2{0, 3}},
		{AddressClamp, int2{2, 3}, int2{2, 3}},

		{AddressBorder, int2{-1, 2}, int2{texCoordBorder, 2}},
		{AddressBorder, int2{1, 4}, int2{1, texCoordBorder}},
		{AddressBorder, int2{1, 2}, int2{1, 2}},

		{AddressMirrorOnce, int2{-3, 1}, int2{2, 1}},
		{AddressMirrorOnce, int2{9, -1}, int2{3, 0}},
	}
	for _, c := range cases {
		if got := getTexCoord(c.mode, c.in, size); got != c.want {
			t.Errorf("mode %d: getTexCoord(%v) = %v, want %v", c.mode, c.in, got, c.want)
		}
	}
}

func TestTilingParity(t *testing.T) {
	const w, h = 5, 3
	data := make([]float32, w*h)
	for i := range data {
		data[i] = float32(i) / float32(len(data))
	}

	linear, err := NewTexture(&TextureDesc{
		Format: TextureFP32,
		Flags:  TextureDisableZOrder,
		Mips:   []MipDesc{{Width: w, Height: h, Data: data}},
	})
	if err != nil {
		t.Fatalf("NewTexture(linear): %v", err)
	}
	morton, err := NewTexture(&TextureDesc{
		Format: TextureFP32,
		Mips:   []MipDesc{{Width: w, Height: h, Data: data}},
	})
	if err != nil {
		t.Fatalf("NewTexture(morton): %v", err)
	}

	if linear.Tiling() != TilingLinear || morton.Tiling() != TilingMortonZ {
		t.Fatalf("unexpected tiling modes %d %d", linear.Tiling(), morton.Tiling())
	}

	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			a := linear.Load(int2{x, y}, 0)
			b := morton.Load(int2{x, y}, 0)
			if a != b {
				t.Fatalf("load mismatch at (%d,%d): linear %g, morton %g", x, y, a, b)
			}
		}
	}
}

func TestTextureRowPitch(t *testing.T) {
	// 3x2 texels embedded in rows of 5 elements.
	src := []float32{
		1, 2, 3, -1, -1,
		4, 5, 6, -1, -1,
	}
	tex, err := NewTexture(&TextureDesc{
		Format: TextureFP32,
		Flags:  TextureDisableZOrder,
		Mips:   []MipDesc{{Width: 3, Height: 2, RowPitch: 5, Data: src}},
	})
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	want := []float32{1, 2, 3, 4, 5, 6}
	for i, v := range want {
		got := tex.Load(int2{int32(i % 3), int32(i / 3)}, 0)
		if got != v {
			t.Fatalf("texel %d = %g, want %g", i, got, v)
		}
	}
}

func TestBilinearCenter(t *testing.T) {
	tex, err := NewTexture(&TextureDesc{
		Format: TextureFP32,
		Mips:   []MipDesc{{Width: 2, Height: 2, Data: []float32{1, 0, 0, 1}}},
	})
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}

	// The quad center interpolates all four texels equally.
	got := tex.Bilinear(AddressClamp, 0.5, 0.5, 0, 0)
	if math.Abs(float64(got)-0.5) > 1e-6 {
		t.Fatalf("center bilinear = %g, want 0.5", got)
	}

	// On a texel center the sample reproduces the texel.
	got = tex.Bilinear(AddressClamp, 0.25, 0.25, 0, 0)
	if got != 1 {
		t.Fatalf("texel-center bilinear = %g, want 1", got)
	}
}

func TestBilinearBorder(t *testing.T) {
	tex, err := NewTexture(&TextureDesc{
		Format: TextureFP32,
		Mips:   []MipDesc{{Width: 2, Height: 2, Data: []float32{1, 1, 1, 1}}},
	})
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}

	// Sampling outside a border-addressed texture converges to the border
	// alpha.
	got := tex.Bilinear(AddressBorder, -2, -2, 0, 0.25)
	if math.Abs(float64(got)-0.25) > 1e-6 {
		t.Fatalf("border bilinear = %g, want 0.25", got)
	}
}

func TestTextureValidation(t *testing.T) {
	if _, err := NewTexture(&TextureDesc{Format: TextureFP32}); ResultOf(err) != InvalidArgument {
		t.Fatalf("no mips: got %v", err)
	}
	if _, err := NewTexture(&TextureDesc{
		Format: TextureFP32,
		Mips:   []MipDesc{{Width: 0, Height: 2, Data: make([]float32, 4)}},
	}); ResultOf(err) != InvalidArgument {
		t.Fatalf("zero width: got %v", err)
	}
	if _, err := NewTexture(&TextureDesc{
		Format: TextureFP32,
		Mips:   []MipDesc{{Width: 2, Height: 2}},
	}); ResultOf(err) != InvalidArgument {
		t.Fatalf("nil data: got %v", err)
	}
}
