package omm

import "testing"

func TestStateFromCoverage(t *testing.T) {
	cases := []struct {
		format    Format
		promotion UnknownStatePromotion
		cov       coverage
		want      OpacityState
	}{
		{Format4State, PromoteNearest, coverage{opaque: 4}, StateOpaque},
		{Format4State, PromoteNearest, coverage{trans: 4}, StateTransparent},
		{Format4State, PromoteNearest, coverage{opaque: 3, trans: 1}, StateUnknownOpaque},
		{Format4State, PromoteNearest, coverage{opaque: 1, trans: 3}, StateUnknownTransparent},
		{Format4State, PromoteNearest, coverage{opaque: 2, trans: 2}, StateUnknownOpaque},
		{Format4State, PromoteForceOpaque, coverage{opaque: 1, trans: 9}, StateUnknownOpaque},
		{Format4State, PromoteForceTransparent, coverage{opaque: 9, trans: 1}, StateUnknownTransparent},

		// 2-state has no unknown encoding.
		{Format2State, PromoteNearest, coverage{opaque: 1, trans: 3}, StateTransparent},
		{Format2State, PromoteNearest, coverage{opaque: 3, trans: 1}, StateOpaque},
		{Format2State, PromoteForceOpaque, coverage{opaque: 1, trans: 3}, StateOpaque},
		{Format2State, PromoteNearest, coverage{trans: 1}, StateTransparent},
	}
	for i, c := range cases {
		if got := stateFromCoverage(c.format, c.promotion, c.cov); got != c.want {
			t.Errorf("case %d: got %d, want %d", i, got, c.want)
		}
	}
}

func levelLineTestTexture(t *testing.T, data []float32, w, h uint32) *Texture {
	t.Helper()
	tex, err := NewTexture(&TextureDesc{
		Format: TextureFP32,
		Flags:  TextureDisableZOrder,
		Mips:   []MipDesc{{Width: w, Height: h, Data: data}},
	})
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	return tex
}

func TestLevelLineCellUniform(t *testing.T) {
	tex := levelLineTestTexture(t, []float32{1, 1, 1, 1}, 2, 2)

	// A triangle spanning the cell between the four texel centers.
	verts := [3]vec2{{0, 0}, {1, 0}, {0, 1}}

	var cov coverage
	levelLineCell[linearTiling, addressClamp](tex, 0, 0.5, 0, &verts, int2{0, 0}, &cov)
	if cov.opaque != 1 || cov.trans != 0 {
		t.Fatalf("uniform opaque cell: coverage %+v", cov)
	}

	cov = coverage{}
	levelLineCell[linearTiling, addressClamp](tex, 0, 1.5, 0, &verts, int2{0, 0}, &cov)
	if cov.opaque != 0 || cov.trans != 1 {
		t.Fatalf("cutoff above the patch: coverage %+v", cov)
	}
}

func TestLevelLineCellCrossing(t *testing.T) {
	// A horizontal gradient: the alpha=0.5 contour runs through the cell.
	tex := levelLineTestTexture(t, []float32{0, 1, 0, 1}, 2, 2)
	verts := [3]vec2{{0, 0}, {1, 0}, {0, 1}}

	var cov coverage
	levelLineCell[linearTiling, addressClamp](tex, 0, 0.5, 0, &verts, int2{0, 0}, &cov)
	if cov.opaque != 1 || cov.trans != 1 {
		t.Fatalf("crossing cell: coverage %+v", cov)
	}
}

func TestLevelLineCellMissesContour(t *testing.T) {
	// The triangle occupies only the low-alpha corner of a gradient cell, so
	// the contour does not intersect it.
	tex := levelLineTestTexture(t, []float32{0, 1, 0, 1}, 2, 2)
	verts := [3]vec2{{0, 0}, {0.25, 0}, {0, 0.25}}

	var cov coverage
	levelLineCell[linearTiling, addressClamp](tex, 0, 0.5, 0, &verts, int2{0, 0}, &cov)
	if cov.opaque != 0 || cov.trans != 1 {
		t.Fatalf("contour-free corner: coverage %+v", cov)
	}
}

func TestConservativeBilinearCell(t *testing.T) {
	tex := levelLineTestTexture(t, []float32{0.2, 0.4, 0.6, 0.8}, 2, 2)

	var cov coverage
	conservativeBilinearCell[linearTiling, addressClamp](tex, 0, 0.1, 0, int2{0, 0}, &cov)
	if cov.opaque != 1 || cov.trans != 0 {
		t.Fatalf("cutoff below min: %+v", cov)
	}

	cov = coverage{}
	conservativeBilinearCell[linearTiling, addressClamp](tex, 0, 0.9, 0, int2{0, 0}, &cov)
	if cov.opaque != 0 || cov.trans != 1 {
		t.Fatalf("cutoff above max: %+v", cov)
	}

	cov = coverage{}
	conservativeBilinearCell[linearTiling, addressClamp](tex, 0, 0.5, 0, int2{0, 0}, &cov)
	if cov.opaque != 1 || cov.trans != 1 {
		t.Fatalf("cutoff inside range: %+v", cov)
	}
}

func TestNearestCellBorder(t *testing.T) {
	tex := levelLineTestTexture(t, []float32{0, 0, 0, 0}, 2, 2)

	var cov coverage
	nearestCell[linearTiling, addressBorder](tex, 0, 0.5, 1.0, int2{-1, 0}, &cov)
	if cov.opaque != 1 {
		t.Fatalf("border alpha should win: %+v", cov)
	}
}
