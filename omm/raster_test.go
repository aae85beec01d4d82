package omm

import "testing"

func collectCells(t *triangle, size int2, offset vec2) map[int2]bool {
	cells := make(map[int2]bool)
	rasterizeConservative(t, size, offset, func(pixel int2) {
		cells[pixel] = true
	})
	return cells
}

func TestRasterizeFullQuadTriangle(t *testing.T) {
	tri := makeTriangle(vec2{0, 0}, vec2{1, 0}, vec2{0, 1})
	cells := collectCells(&tri, int2{4, 4}, vec2{})

	// Every cell whose square meets the half-space x+y <= 4 is covered; the
	// three cells beyond the hypotenuse are not.
	for j := int32(0); j < 4; j++ {
		for i := int32(0); i < 4; i++ {
			want := i+j <= 4
			if cells[int2{i, j}] != want {
				t.Errorf("cell (%d,%d): covered=%v, want %v", i, j, cells[int2{i, j}], want)
			}
		}
	}
	if len(cells) != 13 {
		t.Fatalf("covered %d cells, want 13", len(cells))
	}
}

func TestRasterizeTinyTriangle(t *testing.T) {
	// Entirely inside one cell.
	tri := makeTriangle(vec2{0.26, 0.26}, vec2{0.3, 0.27}, vec2{0.27, 0.3})
	cells := collectCells(&tri, int2{4, 4}, vec2{})
	if len(cells) != 1 || !cells[int2{1, 1}] {
		t.Fatalf("covered cells = %v, want exactly (1,1)", cells)
	}
}

func TestRasterizeOffsetReachesNegativeCells(t *testing.T) {
	tri := makeTriangle(vec2{0, 0}, vec2{1, 0}, vec2{0, 1})
	cells := collectCells(&tri, int2{2, 2}, rasterPixelOffset)

	// With the half-texel shift the grid extends one cell past the texture on
	// the low side; address modes give those cells meaning.
	if !cells[int2{-1, -1}] {
		t.Fatalf("offset raster misses cell (-1,-1): %v", cells)
	}
}

func TestRasterizeConservativeSuperset(t *testing.T) {
	tri := makeTriangle(vec2{0.1, 0.15}, vec2{0.8, 0.4}, vec2{0.3, 0.9})
	size := int2{16, 16}
	cells := collectCells(&tri, size, vec2{})

	// Any cell whose center lies inside the triangle must be enumerated.
	inside := func(p vec2) bool {
		d0 := (tri.p1.x-tri.p0.x)*(p.y-tri.p0.y) - (tri.p1.y-tri.p0.y)*(p.x-tri.p0.x)
		d1 := (tri.p2.x-tri.p1.x)*(p.y-tri.p1.y) - (tri.p2.y-tri.p1.y)*(p.x-tri.p1.x)
		d2 := (tri.p0.x-tri.p2.x)*(p.y-tri.p2.y) - (tri.p0.y-tri.p2.y)*(p.x-tri.p2.x)
		return (d0 >= 0 && d1 >= 0 && d2 >= 0) || (d0 <= 0 && d1 <= 0 && d2 <= 0)
	}
	for j := int32(0); j < size.y; j++ {
		for i := int32(0); i < size.x; i++ {
			center := vec2{(float32(i) + 0.5) / 16, (float32(j) + 0.5) / 16}
			if inside(center) && !cells[int2{i, j}] {
				t.Errorf("cell (%d,%d) has its center inside but was not enumerated", i, j)
			}
		}
	}
}

func TestClipTriangleToCell(t *testing.T) {
	verts := [3]vec2{{0, 0}, {4, 0}, {0, 4}}

	var out [8]vec2
	// Fully containing cell clips to the cell-interior part of the triangle.
	if n := clipTriangleToCell(&verts, 1, 1, &out); n < 3 {
		t.Fatalf("interior cell clip yielded %d vertices", n)
	}
	// A cell fully outside yields nothing.
	if n := clipTriangleToCell(&verts, 4, 4, &out); n != 0 {
		t.Fatalf("outside cell clip yielded %d vertices", n)
	}
	// A cell fully inside the triangle keeps its 4 corners.
	if n := clipTriangleToCell(&verts, 0, 0, &out); n != 4 {
		t.Fatalf("contained cell clip yielded %d vertices, want 4", n)
	}
}
