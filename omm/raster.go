package omm

// Conservative triangle rasterization: every cell the triangle touches, even
// partially, is enumerated. Cells are unit squares in pixel space; cells
// outside [0,rasterSize) are enumerated too, since address modes give them
// meaning.

// cellFunc is invoked once per covered cell, in row-major order.
type cellFunc func(pixel int2)

// rasterizeConservative maps t from UV space onto a grid of rasterSize cells,
// shifts it by pixelOffset (in pixel units) and enumerates covered cells.
func rasterizeConservative(t *triangle, rasterSize int2, pixelOffset vec2, fn cellFunc) {
	sizef := rasterSize.toVec2()
	v := [3]vec2{
		t.p0.mul(sizef).add(pixelOffset),
		t.p1.mul(sizef).add(pixelOffset),
		t.p2.mul(sizef).add(pixelOffset),
	}

	lo := v[0].min(v[1]).min(v[2])
	hi := v[0].max(v[1]).max(v[2])

	x0, x1 := int32(floorf(lo.x)), int32(floorf(hi.x))
	y0, y1 := int32(floorf(lo.y)), int32(floorf(hi.y))

	e0 := v[1].sub(v[0])
	e1 := v[2].sub(v[1])
	e2 := v[0].sub(v[2])
	area := e0.x*e1.y - e0.y*e1.x

	// Inward edge normals; orientation-independent via the signed area.
	normals := [3]vec2{{-e0.y, e0.x}, {-e1.y, e1.x}, {-e2.y, e2.x}}
	if area < 0 {
		for k := range normals {
			normals[k] = vec2{-normals[k].x, -normals[k].y}
		}
	}
	anchors := [3]vec2{v[0], v[1], v[2]}

	degenerate := area == 0

	for j := y0; j <= y1; j++ {
		for i := x0; i <= x1; i++ {
			if degenerate || cellOverlaps(normals, anchors, i, j) {
				fn(int2{i, j})
			}
		}
	}
}

// cellOverlaps is a separating-axis test between the unit cell (i,j) and the
// triangle; the grid axes are already separated by the bbox loop, so only the
// three edge normals remain. The cell corner most along each normal decides.
func cellOverlaps(normals, anchors [3]vec2, i, j int32) bool {
	for k := 0; k < 3; k++ {
		n := normals[k]
		cx := float32(i)
		cy := float32(j)
		if n.x > 0 {
			cx++
		}
		if n.y > 0 {
			cy++
		}
		if n.x*(cx-anchors[k].x)+n.y*(cy-anchors[k].y) < 0 {
			return false
		}
	}
	return true
}
