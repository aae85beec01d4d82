// ommbench times CPU micromap bakes over procedural alpha patterns at one
// texture size and maximum subdivision level, both set by flags.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/omm-tools/ommbake/omm"
)

type pattern struct {
	name string
	f    func(x, y, w, h int) float32
}

var patterns = []pattern{
	{"opaque", func(x, y, w, h int) float32 { return 1 }},
	{"checker8", func(x, y, w, h int) float32 {
		if (x/8+y/8)%2 == 0 {
			return 1
		}
		return 0
	}},
	{"radial", func(x, y, w, h int) float32 {
		dx := float64(x-w/2) / float64(w/2)
		dy := float64(y-h/2) / float64(h/2)
		return float32(1 - math.Sqrt(dx*dx+dy*dy))
	}},
}

func main() {
	var (
		size    int
		level   int
		filter  string
		repeats int
	)
	flag.IntVar(&size, "size", 1024, "texture dimension")
	flag.IntVar(&level, "level", 6, "max subdivision level")
	flag.StringVar(&filter, "filter", "linear", "filter mode: linear|nearest")
	flag.IntVar(&repeats, "repeats", 3, "bake repetitions per pattern")
	flag.Parse()
	if repeats < 1 {
		repeats = 1
	}

	filterMode := omm.FilterLinear
	if filter == "nearest" {
		filterMode = omm.FilterNearest
	}

	texCoords := []float32{0, 0, 0, 1, 1, 0, 1, 1}
	indices := []uint32{0, 1, 2, 3, 1, 2}
	uvBytes := make([]byte, 4*len(texCoords))
	for i, v := range texCoords {
		binary.LittleEndian.PutUint32(uvBytes[4*i:], math.Float32bits(v))
	}
	idxBytes := make([]byte, 4*len(indices))
	for i, v := range indices {
		binary.LittleEndian.PutUint32(idxBytes[4*i:], v)
	}

	baker := omm.NewBaker()
	for _, p := range patterns {
		data := make([]float32, size*size)
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				data[y*size+x] = p.f(x, y, size, size)
			}
		}
		tex, err := omm.NewTexture(&omm.TextureDesc{
			Format: omm.TextureFP32,
			Mips:   []omm.MipDesc{{Width: uint32(size), Height: uint32(size), Data: data}},
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		desc := &omm.BakeInputDesc{
			BakeFlags: omm.BakeEnableInternalThreads,
			Texture:   tex,
			RuntimeSamplerDesc: omm.SamplerDesc{
				AddressingMode: omm.AddressClamp,
				Filter:         filterMode,
			},
			AlphaMode:           omm.AlphaModeTest,
			AlphaCutoff:         0.5,
			TexCoordFormat:      omm.TexCoordUV32Float,
			TexCoords:           uvBytes,
			IndexFormat:         omm.IndexI32,
			IndexBuffer:         idxBytes,
			IndexCount:          uint32(len(indices)),
			Format:              omm.Format4State,
			MaxSubdivisionLevel: uint8(level),
		}

		best := time.Duration(math.MaxInt64)
		var res *omm.BakeResult
		for r := 0; r < repeats; r++ {
			start := time.Now()
			out, err := baker.Bake(desc)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if d := time.Since(start); d < best {
				best = d
			}
			res = out
		}

		fmt.Printf("%-10s %dx%d level %d: %v (descs=%d, array=%dB)\n",
			p.name, size, size, level, best.Round(time.Microsecond),
			len(res.DescArray), len(res.ArrayData))
	}
}
