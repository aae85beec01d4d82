package omm

// 2-D Morton (Z-order) interleaving, used both as the optional texture storage
// layout and for the spatial sort keys.

func part1By1(x uint64) uint64 {
	x &= 0x00000000FFFFFFFF
	x = (x | (x << 16)) & 0x0000FFFF0000FFFF
	x = (x | (x << 8)) & 0x00FF00FF00FF00FF
	x = (x | (x << 4)) & 0x0F0F0F0F0F0F0F0F
	x = (x | (x << 2)) & 0x3333333333333333
	x = (x | (x << 1)) & 0x5555555555555555
	return x
}

func compact1By1(x uint64) uint64 {
	x &= 0x5555555555555555
	x = (x ^ (x >> 1)) & 0x3333333333333333
	x = (x ^ (x >> 2)) & 0x0F0F0F0F0F0F0F0F
	x = (x ^ (x >> 4)) & 0x00FF00FF00FF00FF
	x = (x ^ (x >> 8)) & 0x0000FFFF0000FFFF
	x = (x ^ (x >> 16)) & 0x00000000FFFFFFFF
	return x
}

// xyToMorton interleaves x into the even bits and y into the odd bits.
func xyToMorton(x, y uint32) uint64 {
	return part1By1(uint64(x)) | part1By1(uint64(y))<<1
}

func mortonToXY(code uint64) (x, y uint32) {
	return uint32(compact1By1(code)), uint32(compact1By1(code >> 1))
}
