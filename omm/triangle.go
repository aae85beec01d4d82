package omm

import (
	"encoding/binary"
	"math"
)

type winding uint8

const (
	windingCCW winding = iota
	windingCW
)

// triangle is a UV-space triangle with a precomputed bounding box and winding.
type triangle struct {
	p0, p1, p2 vec2
	aabbS      vec2
	aabbE      vec2
	winding    winding
}

func makeTriangle(p0, p1, p2 vec2) triangle {
	t := triangle{p0: p0, p1: p1, p2: p2}
	t.aabbS = p0.min(p1).min(p2)
	t.aabbE = p0.max(p1).max(p2)
	v0 := p1.sub(p0)
	v1 := p2.sub(p0)
	if float64(v0.x)*float64(v1.y)-float64(v0.y)*float64(v1.x) < 0 {
		t.winding = windingCW
	}
	return t
}

// isDegenerate reports NaN/Inf vertices or (near) zero 2-D area.
func (t *triangle) isDegenerate() bool {
	for _, p := range [3]vec2{t.p0, t.p1, t.p2} {
		if !isFinite(p.x) || !isFinite(p.y) {
			return true
		}
	}
	v0 := t.p2.sub(t.p0)
	v1 := t.p1.sub(t.p0)
	nz := float64(v0.x)*float64(v1.y) - float64(v0.y)*float64(v1.x)
	return nz*nz < 1e-9
}

// fetchIndices decodes the three vertex indices of primitive prim.
func fetchIndices(format IndexFormat, indexBuffer []byte, prim uint32) [3]uint32 {
	var out [3]uint32
	base := 3 * prim
	if format == IndexI16 {
		for k := uint32(0); k < 3; k++ {
			out[k] = uint32(binary.LittleEndian.Uint16(indexBuffer[2*(base+k):]))
		}
		return out
	}
	for k := uint32(0); k < 3; k++ {
		out[k] = binary.LittleEndian.Uint32(indexBuffer[4*(base+k):])
	}
	return out
}

func decodeUV(format TexCoordFormat, texCoords []byte, stride uint32, index uint32) vec2 {
	off := stride * index
	switch format {
	case TexCoordUV16UNorm:
		u := binary.LittleEndian.Uint16(texCoords[off:])
		v := binary.LittleEndian.Uint16(texCoords[off+2:])
		return vec2{float32(u) / 65535, float32(v) / 65535}
	case TexCoordUV16Float:
		u := binary.LittleEndian.Uint16(texCoords[off:])
		v := binary.LittleEndian.Uint16(texCoords[off+2:])
		return vec2{float16ToFloat32(u), float16ToFloat32(v)}
	default: // TexCoordUV32Float
		u := binary.LittleEndian.Uint32(texCoords[off:])
		v := binary.LittleEndian.Uint32(texCoords[off+4:])
		return vec2{math.Float32frombits(u), math.Float32frombits(v)}
	}
}

// fetchUVTriangle builds the UV triangle for three vertex indices.
func fetchUVTriangle(texCoords []byte, stride uint32, format TexCoordFormat, indices [3]uint32) triangle {
	return makeTriangle(
		decodeUV(format, texCoords, stride, indices[0]),
		decodeUV(format, texCoords, stride, indices[1]),
		decodeUV(format, texCoords, stride, indices[2]),
	)
}
