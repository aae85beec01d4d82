package omm

// Raster kernels: per-cell coverage classification against the alpha texture.
// A texel is opaque when alphaCutoff < alpha, matching the runtime alpha test.

type coverage struct {
	opaque uint32
	trans  uint32
}

// stateFromCoverage maps a coverage tally to an opacity state honoring the
// format and the unknown-promotion policy.
func stateFromCoverage(format Format, promotion UnknownStatePromotion, cov coverage) OpacityState {
	if cov.opaque != 0 && cov.trans != 0 {
		unknown := StateUnknownOpaque
		switch promotion {
		case PromoteForceTransparent:
			unknown = StateUnknownTransparent
		case PromoteForceOpaque:
			unknown = StateUnknownOpaque
		default: // PromoteNearest
			if cov.trans > cov.opaque {
				unknown = StateUnknownTransparent
			}
		}
		if format == Format2State {
			// No unknown encoding in 2-state; collapse to the known side.
			if unknown == StateUnknownOpaque {
				return StateOpaque
			}
			return StateTransparent
		}
		return unknown
	}
	if cov.opaque != 0 {
		return StateOpaque
	}
	return StateTransparent
}

// nearestCell point-samples the cell's texel and tallies the side of the
// cutoff it falls on.
func nearestCell[T tiler, A addresser](tex *Texture, mip int32, cutoff, borderAlpha float32, pixel int2, cov *coverage) {
	var a A
	coord := a.resolve(pixel, tex.size(mip))
	alpha := borderAlpha
	if !isBorder(coord) {
		alpha = texLoad[T](tex, coord, mip)
	}
	if cutoff < alpha {
		cov.opaque++
	} else {
		cov.trans++
	}
}

// cellAlphas gathers the four interpolants whose bilinear patch spans the
// cell. With the (-0.5,-0.5) raster offset the cell corners coincide with
// texel centers.
func cellAlphas[T tiler, A addresser](tex *Texture, mip int32, borderAlpha float32, pixel int2) (a00, a10, a01, a11 float32) {
	size := tex.size(mip)
	coords := gather4[A](pixel, size)
	a00 = loadOrBorder[T](tex, coords[0], mip, borderAlpha)
	a10 = loadOrBorder[T](tex, coords[1], mip, borderAlpha)
	a01 = loadOrBorder[T](tex, coords[2], mip, borderAlpha)
	a11 = loadOrBorder[T](tex, coords[3], mip, borderAlpha)
	return
}

// conservativeBilinearCell tallies against the bilinear patch extrema over
// the whole cell. The extrema of a bilinear patch sit at its corners.
func conservativeBilinearCell[T tiler, A addresser](tex *Texture, mip int32, cutoff, borderAlpha float32, pixel int2, cov *coverage) {
	a00, a10, a01, a11 := cellAlphas[T, A](tex, mip, borderAlpha, pixel)
	mn := min(min(a00, a10), min(a01, a11))
	mx := max(max(a00, a10), max(a01, a11))
	switch {
	case cutoff < mn:
		cov.opaque++
	case cutoff >= mx:
		cov.trans++
	default:
		cov.opaque++
		cov.trans++
	}
}

// levelLineCell decides whether the iso-contour alpha==cutoff of the cell's
// bilinear patch intersects the triangle restricted to the cell. If it does
// the cell is mixed; otherwise the whole restriction lies on one side.
//
// verts is the triangle in offset pixel space (the same space the raster grid
// runs in).
func levelLineCell[T tiler, A addresser](tex *Texture, mip int32, cutoff, borderAlpha float32, verts *[3]vec2, pixel int2, cov *coverage) {
	a00, a10, a01, a11 := cellAlphas[T, A](tex, mip, borderAlpha, pixel)

	// Bilinear patch in cell-local coordinates (s,t) in [0,1]^2:
	// f(s,t) = c0 + c1*s + c2*t + c3*s*t
	c0 := a00
	c1 := a10 - a00
	c2 := a01 - a00
	c3 := a11 - a10 - a01 + a00

	var poly [8]vec2
	n := clipTriangleToCell(verts, float32(pixel.x), float32(pixel.y), &poly)
	if n == 0 {
		// Touching contact only; classify by the patch center.
		g := c0 + 0.5*c1 + 0.5*c2 + 0.25*c3 - cutoff
		if g > 0 {
			cov.opaque++
		} else {
			cov.trans++
		}
		return
	}

	eval := func(s, t float32) float32 {
		return c0 + c1*s + c2*t + c3*s*t - cutoff
	}

	anyPos := false
	anyNeg := false
	var g [8]float32
	for i := 0; i < n; i++ {
		s := poly[i].x - float32(pixel.x)
		t := poly[i].y - float32(pixel.y)
		g[i] = eval(s, t)
		if g[i] > 0 {
			anyPos = true
		} else {
			anyNeg = true
		}
	}

	crossed := anyPos && anyNeg

	if !crossed {
		// All corners on one side; the level line can still dip into an edge
		// through the interior extremum of the (quadratic) restriction.
		for i := 0; i < n && !crossed; i++ {
			j := i + 1
			if j == n {
				j = 0
			}
			s0 := poly[i].x - float32(pixel.x)
			t0 := poly[i].y - float32(pixel.y)
			ds := poly[j].x - poly[i].x
			dt := poly[j].y - poly[i].y

			qa := c3 * ds * dt
			if qa == 0 {
				continue // linear along this edge; endpoints bound it
			}
			qb := c1*ds + c2*dt + c3*(s0*dt+t0*ds)
			u := -qb / (2 * qa)
			if u <= 0 || u >= 1 {
				continue
			}
			gu := g[i] + u*(qb+u*qa)
			if anyPos && gu <= 0 {
				crossed = true
			} else if anyNeg && gu > 0 {
				crossed = true
			}
		}
	}

	// A level line crossing the cell interior always crosses the boundary of
	// the clipped region: bilinear level sets are hyperbolas and cannot close
	// inside a cell.
	switch {
	case crossed:
		cov.opaque++
		cov.trans++
	case anyPos:
		cov.opaque++
	default:
		cov.trans++
	}
}

// clipTriangleToCell clips verts against the unit cell at (x0,y0) using
// Sutherland-Hodgman. Returns the vertex count written to out (<= 7).
func clipTriangleToCell(verts *[3]vec2, x0, y0 float32, out *[8]vec2) int {
	var buf [8]vec2
	cur := out
	next := &buf

	cur[0], cur[1], cur[2] = verts[0], verts[1], verts[2]
	n := 3

	// inside predicates and intersection parameters for the 4 cell planes
	planes := [4]struct {
		axis   int // 0=x, 1=y
		bound  float32
		keepGE bool
	}{
		{0, x0, true},
		{0, x0 + 1, false},
		{1, y0, true},
		{1, y0 + 1, false},
	}

	for _, pl := range planes {
		m := 0
		coord := func(p vec2) float32 {
			if pl.axis == 0 {
				return p.x
			}
			return p.y
		}
		inside := func(p vec2) bool {
			if pl.keepGE {
				return coord(p) >= pl.bound
			}
			return coord(p) <= pl.bound
		}
		intersect := func(p, q vec2) vec2 {
			t := (pl.bound - coord(p)) / (coord(q) - coord(p))
			return vec2{p.x + t*(q.x-p.x), p.y + t*(q.y-p.y)}
		}
		for i := 0; i < n; i++ {
			p := cur[i]
			q := cur[(i+1)%n]
			pin, qin := inside(p), inside(q)
			switch {
			case pin && qin:
				next[m] = q
				m++
			case pin && !qin:
				next[m] = intersect(p, q)
				m++
			case !pin && qin:
				next[m] = intersect(p, q)
				m++
				next[m] = q
				m++
			}
		}
		cur, next = next, cur
		n = m
		if n == 0 {
			return 0
		}
	}

	if cur != out {
		copy(out[:], cur[:n])
	}
	return n
}
