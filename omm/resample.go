package omm

import (
	"runtime"
	"sync"
	"sync/atomic"
)

type options struct {
	enableInternalThreads                  bool
	disableSpecialIndices                  bool
	disableDuplicateDetection              bool
	enableNearDuplicateDetection           bool
	enableNearDuplicateDetectionBruteForce bool
	enableWorkloadValidation               bool
	enableAABBTesting                      bool
	disableRemovePoorQualityOMM            bool
	disableLevelLineIntersection           bool
}

func makeOptions(flags BakeFlags) options {
	return options{
		enableInternalThreads:                  flags.has(BakeEnableInternalThreads),
		disableSpecialIndices:                  flags.has(BakeDisableSpecialIndices),
		disableDuplicateDetection:              flags.has(BakeDisableDuplicateDetection),
		enableNearDuplicateDetection:           flags.has(BakeEnableNearDuplicateDetection),
		enableNearDuplicateDetectionBruteForce: flags.has(BakeEnableNearDuplicateDetectionBruteForce),
		enableWorkloadValidation:               flags.has(BakeEnableWorkloadValidation),
		enableAABBTesting:                      flags.has(BakeEnableAABBTesting),
		disableRemovePoorQualityOMM:            flags.has(BakeDisableRemovePoorQualityOMM),
		disableLevelLineIntersection:           flags.has(BakeDisableLevelLineIntersection),
	}
}

// rasterPixelOffset aligns the raster grid with the bilinear interpolation
// cells: with a half-texel shift, the four interpolants of a cell are the
// texels at its corners.
var rasterPixelOffset = vec2{-0.5, -0.5}

// resample classifies every micro-triangle of every work item. Work items
// are independent; with internal threads enabled they are partitioned across
// workers by index, keeping writes within one item on one goroutine.
func resample[T tiler, A addresser](desc *BakeInputDesc, opts options, items []workItem) error {
	if opts.enableAABBTesting && !opts.disableLevelLineIntersection {
		return newError(InvalidArgument, "omm: AABB testing requires level-line intersection to be disabled")
	}

	procs := runtime.GOMAXPROCS(0)
	if !opts.enableInternalThreads || procs <= 1 || len(items) < 2 {
		for i := range items {
			resampleWorkItem[T, A](desc, opts, &items[i])
		}
		return nil
	}

	if procs > len(items) {
		procs = len(items)
	}

	var next atomic.Uint32
	var wg sync.WaitGroup
	wg.Add(procs)
	for w := 0; w < procs; w++ {
		go func() {
			defer wg.Done()
			for {
				idx := int(next.Add(1) - 1)
				if idx >= len(items) {
					return
				}
				resampleWorkItem[T, A](desc, opts, &items[idx])
			}
		}()
	}
	wg.Wait()
	return nil
}

func resampleWorkItem[T tiler, A addresser](desc *BakeInputDesc, opts options, w *workItem) {
	tex := desc.Texture
	cutoff := desc.AlphaCutoff
	borderAlpha := desc.RuntimeSamplerDesc.BorderAlpha
	numMicroTris := numMicroTriangles(w.subdivisionLevel)

	switch desc.RuntimeSamplerDesc.Filter {
	case FilterLinear:
		for uTriIt := uint32(0); uTriIt < numMicroTris; uTriIt++ {
			subTri := getMicroTriangle(&w.uvTri, uTriIt, w.subdivisionLevel)

			switch {
			case !opts.disableLevelLineIntersection:
				var cov coverage
				for mip := int32(0); mip < tex.MipCount(); mip++ {
					rasterSize := tex.size(mip)
					sizef := rasterSize.toVec2()
					verts := [3]vec2{
						subTri.p0.mul(sizef).add(rasterPixelOffset),
						subTri.p1.mul(sizef).add(rasterPixelOffset),
						subTri.p2.mul(sizef).add(rasterPixelOffset),
					}

					// Seed with the interpolated alpha at the first corner;
					// conservative rasterization classifies the rest.
					if cutoff < bilinear[T, A](tex, subTri.p0, mip, borderAlpha) {
						cov.opaque++
					} else {
						cov.trans++
					}

					rasterizeConservative(&subTri, rasterSize, rasterPixelOffset, func(pixel int2) {
						levelLineCell[T, A](tex, mip, cutoff, borderAlpha, &verts, pixel, &cov)
					})

					// Unknown is absorbing across mips.
					if stateFromCoverage(w.format, desc.UnknownStatePromotion, cov).IsUnknown() {
						break
					}
				}
				w.states.set(uTriIt, stateFromCoverage(w.format, desc.UnknownStatePromotion, cov))

			case opts.enableAABBTesting:
				// Replace the micro-triangle with the two triangles of its
				// AABB. Single mip.
				const mip = int32(0)
				rasterSize := tex.size(mip)
				var cov coverage

				tri0 := makeTriangle(subTri.aabbS, vec2{subTri.aabbE.x, subTri.aabbS.y}, vec2{subTri.aabbS.x, subTri.aabbE.y})
				tri1 := makeTriangle(subTri.aabbE, vec2{subTri.aabbE.x, subTri.aabbS.y}, vec2{subTri.aabbS.x, subTri.aabbE.y})

				kernel := func(pixel int2) {
					conservativeBilinearCell[T, A](tex, mip, cutoff, borderAlpha, pixel, &cov)
				}
				rasterizeConservative(&tri0, rasterSize, rasterPixelOffset, kernel)
				rasterizeConservative(&tri1, rasterSize, rasterPixelOffset, kernel)

				w.states.set(uTriIt, stateFromCoverage(w.format, desc.UnknownStatePromotion, cov))

			default:
				const mip = int32(0)
				rasterSize := tex.size(mip)
				var cov coverage
				rasterizeConservative(&subTri, rasterSize, rasterPixelOffset, func(pixel int2) {
					conservativeBilinearCell[T, A](tex, mip, cutoff, borderAlpha, pixel, &cov)
				})
				w.states.set(uTriIt, stateFromCoverage(w.format, desc.UnknownStatePromotion, cov))
			}
		}

	case FilterNearest:
		for uTriIt := uint32(0); uTriIt < numMicroTris; uTriIt++ {
			subTri := getMicroTriangle(&w.uvTri, uTriIt, w.subdivisionLevel)

			var cov coverage
			for mip := int32(0); mip < tex.MipCount(); mip++ {
				rasterizeConservative(&subTri, tex.size(mip), vec2{}, func(pixel int2) {
					nearestCell[T, A](tex, mip, cutoff, borderAlpha, pixel, &cov)
				})
				if stateFromCoverage(w.format, desc.UnknownStatePromotion, cov).IsUnknown() {
					break
				}
			}
			w.states.set(uTriIt, stateFromCoverage(w.format, desc.UnknownStatePromotion, cov))
		}
	}
}
