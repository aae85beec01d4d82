package omm

// Micro-triangle enumeration along the bird curve, the hierarchical
// space-filling order mandated by the opacity micromap standard. The curve
// starts in the micro-triangle containing the first vertex and ends in the
// one containing the second; each subdivision step visits the anchor child,
// the inverted center child, the third-vertex child and the second-vertex
// child, with child frames chosen so consecutive micro-triangles stay
// adjacent.

// numMicroTriangles returns 4^subdivisionLevel.
func numMicroTriangles(subdivisionLevel int32) uint32 {
	return 1 << (uint32(subdivisionLevel) << 1)
}

// index2bary returns the barycentric corners of micro-triangle index at the
// given subdivision level. All arithmetic halves powers of two, so the
// corners are exact.
func index2bary(index uint32, subdivisionLevel int32) (uv0, uv1, uv2 vec2) {
	anchor := vec2{0, 0}
	eu := vec2{1, 0}
	ev := vec2{0, 1}

	for l := subdivisionLevel - 1; l >= 0; l-- {
		u := eu.scale(0.5)
		v := ev.scale(0.5)
		switch (index >> (uint32(l) << 1)) & 3 {
		case 0: // anchor-corner child
			eu, ev = u, v
		case 1: // center child, inverted
			anchor = anchor.add(u)
			eu, ev = v.sub(u), v
		case 2: // third-vertex child
			anchor = anchor.add(v)
			eu, ev = u, v
		case 3: // second-vertex child, inverted
			anchor = anchor.add(u).add(v)
			eu, ev = u.sub(v), v.scale(-1)
		}
	}
	return anchor, anchor.add(eu), anchor.add(ev)
}

func interpolateBary(t *triangle, bary vec2) vec2 {
	w := 1 - bary.x - bary.y
	return vec2{
		w*t.p0.x + bary.x*t.p1.x + bary.y*t.p2.x,
		w*t.p0.y + bary.x*t.p1.y + bary.y*t.p2.y,
	}
}

// getMicroTriangle maps micro-triangle index of the subdivided triangle t
// into UV space.
func getMicroTriangle(t *triangle, index uint32, subdivisionLevel int32) triangle {
	uv0, uv1, uv2 := index2bary(index, subdivisionLevel)
	return makeTriangle(
		interpolateBary(t, uv0),
		interpolateBary(t, uv1),
		interpolateBary(t, uv2),
	)
}
