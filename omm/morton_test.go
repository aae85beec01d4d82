package omm

import "testing"

func TestMortonKnownValues(t *testing.T) {
	cases := []struct {
		x, y uint32
		want uint64
	}{
		{0, 0, 0},
		{1, 0, 1},
		{0, 1, 2},
		{1, 1, 3},
		{2, 0, 4},
		{3, 5, 39},
		{0xFFFF, 0, 0x55555555},
	}
	for _, c := range cases {
		if got := xyToMorton(c.x, c.y); got != c.want {
			t.Errorf("xyToMorton(%d, %d) = %#x, want %#x", c.x, c.y, got, c.want)
		}
	}
}

func TestMortonRoundTrip(t *testing.T) {
	coords := []uint32{0, 1, 2, 3, 7, 64, 255, 8191, 65535}
	for _, x := range coords {
		for _, y := range coords {
			gx, gy := mortonToXY(xyToMorton(x, y))
			if gx != x || gy != y {
				t.Fatalf("round trip (%d, %d) -> (%d, %d)", x, y, gx, gy)
			}
		}
	}
}
