package omm

import (
	"encoding/binary"
	"math"
	"testing"
)

func quadInput(t *testing.T, tex *Texture) *BakeInputDesc {
	t.Helper()
	texCoords := []float32{0, 0, 0, 1, 1, 0, 1, 1}
	indices := []uint32{0, 1, 2, 3, 1, 2}
	return inputFor(t, tex, texCoords, indices)
}

func inputFor(t *testing.T, tex *Texture, texCoords []float32, indices []uint32) *BakeInputDesc {
	t.Helper()
	uvBytes := make([]byte, 4*len(texCoords))
	for i, v := range texCoords {
		binary.LittleEndian.PutUint32(uvBytes[4*i:], math.Float32bits(v))
	}
	idxBytes := make([]byte, 4*len(indices))
	for i, v := range indices {
		binary.LittleEndian.PutUint32(idxBytes[4*i:], v)
	}
	return &BakeInputDesc{
		Texture: tex,
		RuntimeSamplerDesc: SamplerDesc{
			AddressingMode: AddressClamp,
			Filter:         FilterLinear,
		},
		AlphaMode:           AlphaModeTest,
		AlphaCutoff:         0.5,
		TexCoordFormat:      TexCoordUV32Float,
		TexCoords:           uvBytes,
		IndexFormat:         IndexI32,
		IndexBuffer:         idxBytes,
		IndexCount:          uint32(len(indices)),
		Format:              Format4State,
		MaxSubdivisionLevel: 2,
	}
}

func uniformTexture(t *testing.T, w, h uint32, alpha float32) *Texture {
	t.Helper()
	data := make([]float32, w*h)
	for i := range data {
		data[i] = alpha
	}
	tex, err := NewTexture(&TextureDesc{
		Format: TextureFP32,
		Mips:   []MipDesc{{Width: w, Height: h, Data: data}},
	})
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	return tex
}

func TestSetupWorkItemsFoldsIdenticalUVs(t *testing.T) {
	tex := uniformTexture(t, 4, 4, 1)
	desc := inputFor(t, tex,
		[]float32{0, 0, 0, 1, 1, 0},
		[]uint32{0, 1, 2, 0, 1, 2, 0, 1, 2})

	items, err := setupWorkItems(desc, options{})
	if err != nil {
		t.Fatalf("setupWorkItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d work items, want 1", len(items))
	}
	if got := items[0].primitives; len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("primitives = %v", got)
	}
}

func TestSetupWorkItemsDuplicateDetectionDisabled(t *testing.T) {
	tex := uniformTexture(t, 4, 4, 1)
	desc := inputFor(t, tex,
		[]float32{0, 0, 0, 1, 1, 0},
		[]uint32{0, 1, 2, 0, 1, 2})

	items, err := setupWorkItems(desc, options{disableDuplicateDetection: true})
	if err != nil {
		t.Fatalf("setupWorkItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d work items, want 2", len(items))
	}
}

func TestSetupWorkItemsSkipsDegenerateAndDisabled(t *testing.T) {
	tex := uniformTexture(t, 4, 4, 1)
	desc := inputFor(t, tex,
		// Primitive 1 is degenerate (p0 == p1).
		[]float32{0, 0, 0, 1, 1, 0, 0.5, 0.5},
		[]uint32{0, 1, 2, 3, 3, 2, 0, 1, 2})
	desc.SubdivisionLevels = []uint8{2, 2, DisabledPrimitive}

	items, err := setupWorkItems(desc, options{})
	if err != nil {
		t.Fatalf("setupWorkItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d work items, want 1", len(items))
	}
	if items[0].primitives[0] != 0 {
		t.Fatalf("surviving primitive = %v", items[0].primitives)
	}
}

func TestSetupWorkItemsPerPrimitiveFormat(t *testing.T) {
	tex := uniformTexture(t, 4, 4, 1)
	desc := quadInput(t, tex)
	desc.Formats = []Format{Format2State, FormatInvalid}

	items, err := setupWorkItems(desc, options{})
	if err != nil {
		t.Fatalf("setupWorkItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d work items, want 2", len(items))
	}
	if items[0].format != Format2State || items[1].format != Format4State {
		t.Fatalf("formats = %d, %d", items[0].format, items[1].format)
	}
}

func TestCalcSuitableSubdivisionLevel(t *testing.T) {
	tri := makeTriangle(vec2{0, 0}, vec2{1, 0}, vec2{0, 1})
	desc := &BakeInputDesc{DynamicSubdivisionScale: 64, MaxSubdivisionLevel: 12}

	// Half the texture: 1024*1024/2 pixels over 64^2-pixel targets is a
	// ratio of 128, so the level solves 4^N = 128 rounded to 3.
	got := calcSuitableSubdivisionLevel(desc, &tri, int2{1024, 1024})
	if got != 3 {
		t.Fatalf("level = %d, want 3", got)
	}

	desc.MaxSubdivisionLevel = 2
	if got := calcSuitableSubdivisionLevel(desc, &tri, int2{1024, 1024}); got != 2 {
		t.Fatalf("clamped level = %d, want 2", got)
	}
}

func TestValidateWorkloadSize(t *testing.T) {
	tex := uniformTexture(t, 64, 64, 1)
	desc := quadInput(t, tex)

	items, err := setupWorkItems(desc, options{})
	if err != nil {
		t.Fatalf("setupWorkItems: %v", err)
	}

	opts := options{enableWorkloadValidation: true}
	if err := validateWorkloadSize(desc, opts, items); err != nil {
		t.Fatalf("small workload rejected: %v", err)
	}

	// Inflate the per-item bounding boxes way past the budget.
	big := make([]workItem, 40000)
	for i := range big {
		big[i].uvTri = makeTriangle(vec2{0, 0}, vec2{30, 0}, vec2{0, 30})
	}
	if err := validateWorkloadSize(desc, opts, big); ResultOf(err) != WorkloadTooBig {
		t.Fatalf("huge workload: got %v, want WORKLOAD_TOO_BIG", err)
	}
}

func TestFingerprintDistinguishesLevelAndFormat(t *testing.T) {
	tri := makeTriangle(vec2{0, 0}, vec2{1, 0}, vec2{0, 1})
	base := fingerprint(&tri, 3, Format4State)
	if fingerprint(&tri, 4, Format4State) == base {
		t.Fatal("fingerprint ignores the subdivision level")
	}
	if fingerprint(&tri, 3, Format2State) == base {
		t.Fatal("fingerprint ignores the format")
	}
	other := makeTriangle(vec2{0, 0}, vec2{1, 0}, vec2{0, 0.5})
	if fingerprint(&other, 3, Format4State) == base {
		t.Fatal("fingerprint ignores the geometry")
	}
}
