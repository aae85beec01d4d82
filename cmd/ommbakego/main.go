// ommbakego bakes opacity micromaps for a textured quad or a mesh described
// by a TOML config, and optionally dumps debug images of the result.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"github.com/omm-tools/ommbake/omm"

	_ "golang.org/x/image/bmp"
	_ "image/jpeg"
	_ "image/png"
)

type bakeConfig struct {
	Texture     string  `toml:"texture"`
	AlphaCutoff float32 `toml:"alpha_cutoff"`

	Format     string `toml:"format"`     // "2state" | "4state"
	Filter     string `toml:"filter"`     // "nearest" | "linear"
	Addressing string `toml:"addressing"` // "wrap" | "mirror" | "clamp" | "border" | "mirror_once"

	MaxSubdivisionLevel     uint8   `toml:"max_subdivision_level"`
	DynamicSubdivisionScale float32 `toml:"dynamic_subdivision_scale"`
	RejectionThreshold      float32 `toml:"rejection_threshold"`

	InternalThreads       bool `toml:"internal_threads"`
	DisableSpecialIndices bool `toml:"disable_special_indices"`
	Force32BitIndices     bool `toml:"force_32bit_indices"`
	NearDuplicates        bool `toml:"near_duplicates"`
	WorkloadValidation    bool `toml:"workload_validation"`
	LinearTiling          bool `toml:"linear_tiling"`

	// TexCoords/Indices describe the mesh; when empty a full-texture quad is
	// baked.
	TexCoords []float32 `toml:"tex_coords"`
	Indices   []uint32  `toml:"indices"`
}

func defaultConfig() bakeConfig {
	return bakeConfig{
		AlphaCutoff:         0.5,
		Format:              "4state",
		Filter:              "linear",
		Addressing:          "clamp",
		MaxSubdivisionLevel: 6,
		InternalThreads:     true,
	}
}

func main() {
	var (
		configPath string
		inPath     string
		outDir     string
		dumpImages bool
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "", "TOML bake config")
	flag.StringVar(&inPath, "in", "", "input alpha texture (png, bmp, jpeg); overrides the config")
	flag.StringVar(&outDir, "out", "ommbake-out", "output directory")
	flag.BoolVar(&dumpImages, "dump", false, "write debug images of the baked states")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "ommbake",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg := defaultConfig()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			logger.Fatal("read config", "err", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			logger.Fatal("parse config", "err", err)
		}
	}
	if inPath != "" {
		cfg.Texture = inPath
	}
	if cfg.Texture == "" {
		fmt.Fprintln(os.Stderr, "usage: ommbakego -in <texture> [-config <cfg.toml>] [-out <dir>] [-dump]")
		os.Exit(2)
	}

	alpha, w, h, err := loadAlpha(cfg.Texture)
	if err != nil {
		logger.Fatal("load texture", "path", cfg.Texture, "err", err)
	}
	logger.Info("texture loaded", "path", cfg.Texture, "size", fmt.Sprintf("%dx%d", w, h))

	var texFlags omm.TextureFlags
	if cfg.LinearTiling {
		texFlags |= omm.TextureDisableZOrder
	}
	tex, err := omm.NewTexture(&omm.TextureDesc{
		Format: omm.TextureFP32,
		Flags:  texFlags,
		Mips:   []omm.MipDesc{{Width: uint32(w), Height: uint32(h), Data: alpha}},
	})
	if err != nil {
		logger.Fatal("create texture", "err", err)
	}

	desc, err := buildInput(&cfg, tex)
	if err != nil {
		logger.Fatal("build bake input", "err", err)
	}

	baker := omm.NewBaker()
	baker.SetLogger(logger)

	start := time.Now()
	res, err := baker.Bake(desc)
	if err != nil {
		logger.Fatal("bake failed", "result", omm.ResultString(omm.ResultOf(err)), "err", err)
	}
	logger.Info("bake done",
		"elapsed", time.Since(start).Round(time.Microsecond),
		"descriptors", len(res.DescArray),
		"arrayBytes", len(res.ArrayData),
		"indexFormat", indexFormatName(res.IndexFormat))

	stats, err := omm.CollectStats(res)
	if err != nil {
		logger.Fatal("collect stats", "err", err)
	}
	logger.Info("state totals",
		"opaque", stats.TotalOpaque,
		"transparent", stats.TotalTransparent,
		"unknownOpaque", stats.TotalUnknownOpaque,
		"unknownTransparent", stats.TotalUnknownTransparent)
	logger.Info("special index totals",
		"fullyOpaque", stats.TotalFullyOpaque,
		"fullyTransparent", stats.TotalFullyTransparent,
		"fullyUnknownOpaque", stats.TotalFullyUnknownOpaque,
		"fullyUnknownTransparent", stats.TotalFullyUnknownTransparent)

	if err := writeOutputs(outDir, res); err != nil {
		logger.Fatal("write outputs", "err", err)
	}

	if dumpImages {
		err := omm.SaveAsImages(desc, res, &omm.ImageDumpDesc{
			Path:        outDir,
			FilePostfix: filepath.Base(cfg.Texture),
		})
		if err != nil {
			logger.Fatal("dump images", "err", err)
		}
	}
}

// loadAlpha decodes an image and extracts its alpha channel; fully opaque
// images fall back to the red channel so grayscale cutouts work too.
func loadAlpha(path string) ([]float32, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	alpha := make([]float32, w*h)

	opaque := true
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			_, _, _, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			alpha[y*w+x] = float32(a) / 0xFFFF
			if a != 0xFFFF {
				opaque = false
			}
		}
	}
	if opaque {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				alpha[y*w+x] = float32(r) / 0xFFFF
			}
		}
	}
	return alpha, w, h, nil
}

func buildInput(cfg *bakeConfig, tex *omm.Texture) (*omm.BakeInputDesc, error) {
	texCoords := cfg.TexCoords
	indices := cfg.Indices
	if len(texCoords) == 0 {
		texCoords = []float32{0, 0, 0, 1, 1, 0, 1, 1}
		indices = []uint32{0, 1, 2, 3, 1, 2}
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}

	uvBytes := make([]byte, 4*len(texCoords))
	for i, v := range texCoords {
		binary.LittleEndian.PutUint32(uvBytes[4*i:], math.Float32bits(v))
	}
	idxBytes := make([]byte, 4*len(indices))
	for i, v := range indices {
		binary.LittleEndian.PutUint32(idxBytes[4*i:], v)
	}

	format := omm.Format4State
	if cfg.Format == "2state" {
		format = omm.Format2State
	}
	filter := omm.FilterLinear
	if cfg.Filter == "nearest" {
		filter = omm.FilterNearest
	}
	addressing := omm.AddressClamp
	switch cfg.Addressing {
	case "wrap":
		addressing = omm.AddressWrap
	case "mirror":
		addressing = omm.AddressMirror
	case "border":
		addressing = omm.AddressBorder
	case "mirror_once":
		addressing = omm.AddressMirrorOnce
	}

	var flags omm.BakeFlags
	if cfg.InternalThreads {
		flags |= omm.BakeEnableInternalThreads
	}
	if cfg.DisableSpecialIndices {
		flags |= omm.BakeDisableSpecialIndices
	}
	if cfg.Force32BitIndices {
		flags |= omm.BakeForce32BitIndices
	}
	if cfg.NearDuplicates {
		flags |= omm.BakeEnableNearDuplicateDetection
	}
	if cfg.WorkloadValidation {
		flags |= omm.BakeEnableWorkloadValidation
	}

	return &omm.BakeInputDesc{
		BakeFlags: flags,
		Texture:   tex,
		RuntimeSamplerDesc: omm.SamplerDesc{
			AddressingMode: addressing,
			Filter:         filter,
		},
		AlphaMode:               omm.AlphaModeTest,
		AlphaCutoff:             cfg.AlphaCutoff,
		TexCoordFormat:          omm.TexCoordUV32Float,
		TexCoords:               uvBytes,
		IndexFormat:             omm.IndexI32,
		IndexBuffer:             idxBytes,
		IndexCount:              uint32(len(indices)),
		Format:                  format,
		MaxSubdivisionLevel:     cfg.MaxSubdivisionLevel,
		DynamicSubdivisionScale: cfg.DynamicSubdivisionScale,
		RejectionThreshold:      cfg.RejectionThreshold,
	}, nil
}

func writeOutputs(dir string, res *omm.BakeResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "omm_array.bin"), res.ArrayData, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "omm_indices.bin"), res.IndexBuffer, 0o644); err != nil {
		return err
	}

	descBytes := make([]byte, 8*len(res.DescArray))
	for i, d := range res.DescArray {
		binary.LittleEndian.PutUint32(descBytes[8*i:], d.Offset)
		binary.LittleEndian.PutUint16(descBytes[8*i+4:], d.SubdivisionLevel)
		binary.LittleEndian.PutUint16(descBytes[8*i+6:], uint16(d.Format))
	}
	return os.WriteFile(filepath.Join(dir, "omm_descs.bin"), descBytes, 0o644)
}

func indexFormatName(f omm.IndexFormat) string {
	if f == omm.IndexI16 {
		return "I16_UINT"
	}
	return "I32_UINT"
}

