package analyzer

import (
	"image"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// hueBins splits the hue circle into 30 degree sectors.
const hueBins = 12

// metrics holds pixel statistics used to derive tags
type metrics struct {
	avgLuminance, avgSaturation float64
	avgR, avgG, avgB            float64
	luminanceStdDev             float64

	// hueWeight holds, per hue sector, the fraction of chromatic pixels.
	hueWeight [hueBins]float64
	// Fractions of all pixels that are near-black, near-white or grey.
	darkFraction, lightFraction, greyFraction float64
	chromaticFraction                         float64
}

// MetricsCalculator handles image metrics computation
type MetricsCalculator interface {
	CalculateBasicMetrics(img image.Image) metrics
	CalculateLaplacianVariance(gray *image.Gray) float64
	CalculateEdgeDensity(gray *image.Gray) float64
}

// metricsCalculator implements MetricsCalculator with strip-parallel pixel passes
type metricsCalculator struct {
	slicePool sync.Pool
}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator() MetricsCalculator {
	return &metricsCalculator{
		slicePool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, 1024)
			},
		},
	}
}

type regionResult struct {
	lum, sat, r, g, b     float64
	lumSamples            []float64
	hue                   [hueBins]float64
	dark, light, grey     int
	chromatic, pixelCount int
}

// CalculateBasicMetrics computes color statistics with parallel processing
func (omc *metricsCalculator) CalculateBasicMetrics(img image.Image) metrics {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Handle empty images
	if width == 0 || height == 0 {
		return metrics{}
	}

	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers // ceil division

	results := make(chan regionResult, numWorkers)
	var wg sync.WaitGroup

	// Process image in horizontal strips for better cache locality
	for i := 0; i < numWorkers; i++ {
		startY := bounds.Min.Y + i*rowsPerWorker
		endY := min(startY+rowsPerWorker, bounds.Max.Y)
		if startY >= endY {
			continue
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			results <- omc.scanRegion(img, bounds, startY, endY)
		}(startY, endY)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var total regionResult
	samples := make([]float64, 0, width*height)
	for res := range results {
		total.lum += res.lum
		total.sat += res.sat
		total.r += res.r
		total.g += res.g
		total.b += res.b
		total.dark += res.dark
		total.light += res.light
		total.grey += res.grey
		total.chromatic += res.chromatic
		total.pixelCount += res.pixelCount
		for i := range res.hue {
			total.hue[i] += res.hue[i]
		}
		samples = append(samples, res.lumSamples...)
	}

	// Handle case where no pixels were processed
	if total.pixelCount == 0 {
		return metrics{}
	}

	pixelCount := float64(total.pixelCount)
	m := metrics{
		avgLuminance:      total.lum / pixelCount,
		avgSaturation:     total.sat / pixelCount,
		avgR:              total.r / pixelCount,
		avgG:              total.g / pixelCount,
		avgB:              total.b / pixelCount,
		luminanceStdDev:   stat.PopStdDev(samples, nil),
		darkFraction:      float64(total.dark) / pixelCount,
		lightFraction:     float64(total.light) / pixelCount,
		greyFraction:      float64(total.grey) / pixelCount,
		chromaticFraction: float64(total.chromatic) / pixelCount,
	}
	if total.chromatic > 0 {
		for i := range total.hue {
			m.hueWeight[i] = total.hue[i] / float64(total.chromatic)
		}
	}
	return m
}

func (omc *metricsCalculator) scanRegion(img image.Image, bounds image.Rectangle, startY, endY int) regionResult {
	var res regionResult
	res.lumSamples = make([]float64, 0, (endY-startY)*bounds.Dx())

	for y := startY; y < endY; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rVal, gVal, bVal, _ := img.At(x, y).RGBA()
			// Convert from 16-bit to normalized float64
			rf := float64(rVal) / 65535.0
			gf := float64(gVal) / 65535.0
			bf := float64(bVal) / 65535.0

			h, s, v := omc.rgbToHSV(rf, gf, bf)
			res.sat += s
			res.lum += v
			res.r += rf
			res.g += gf
			res.b += bf
			res.lumSamples = append(res.lumSamples, v)
			res.pixelCount++

			switch {
			case v < 0.15:
				res.dark++
			case s < 0.15 && v > 0.85:
				res.light++
			case s < 0.15:
				res.grey++
			default:
				res.chromatic++
				res.hue[int(h/30)%hueBins]++
			}
		}
	}
	return res
}

// CalculateLaplacianVariance computes Laplacian variance using Gonum operations
func (omc *metricsCalculator) CalculateLaplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	// Get reusable slice from pool
	data := omc.slicePool.Get().([]float64)
	defer omc.slicePool.Put(data[:0])

	if cap(data) < (width-2)*(height-2) {
		data = make([]float64, 0, (width-2)*(height-2))
	}

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			top := float64(gray.GrayAt(x, y-1).Y)
			bottom := float64(gray.GrayAt(x, y+1).Y)
			left := float64(gray.GrayAt(x-1, y).Y)
			right := float64(gray.GrayAt(x+1, y).Y)

			data = append(data, -4*center+top+bottom+left+right)
		}
	}

	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// CalculateEdgeDensity returns the fraction of interior pixels whose Sobel
// magnitude exceeds the edge threshold.
func (omc *metricsCalculator) CalculateEdgeDensity(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	edges := 0
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			gx := omc.calculateSobelX(gray, x, y)
			gy := omc.calculateSobelY(gray, x, y)
			if math.Sqrt(float64(gx*gx+gy*gy)) > 50 {
				edges++
			}
		}
	}
	return float64(edges) / float64((width-2)*(height-2))
}

// calculateSobelX computes Sobel X gradient
func (omc *metricsCalculator) calculateSobelX(gray *image.Gray, x, y int) int {
	return -1*int(gray.GrayAt(x-1, y-1).Y) + 1*int(gray.GrayAt(x+1, y-1).Y) +
		-2*int(gray.GrayAt(x-1, y).Y) + 2*int(gray.GrayAt(x+1, y).Y) +
		-1*int(gray.GrayAt(x-1, y+1).Y) + 1*int(gray.GrayAt(x+1, y+1).Y)
}

// calculateSobelY computes Sobel Y gradient
func (omc *metricsCalculator) calculateSobelY(gray *image.Gray, x, y int) int {
	return -1*int(gray.GrayAt(x-1, y-1).Y) - 2*int(gray.GrayAt(x, y-1).Y) - 1*int(gray.GrayAt(x+1, y-1).Y) +
		1*int(gray.GrayAt(x-1, y+1).Y) + 2*int(gray.GrayAt(x, y+1).Y) + 1*int(gray.GrayAt(x+1, y+1).Y)
}

// rgbToHSV provides RGB to HSV conversion
func (omc *metricsCalculator) rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	v = max

	if max == 0 {
		s = 0
	} else {
		s = delta / max
	}

	if delta == 0 {
		h = 0
	} else if max == r {
		h = 60 * (((g - b) / delta) + 0)
	} else if max == g {
		h = 60 * (((b - r) / delta) + 2)
	} else {
		h = 60 * (((r - g) / delta) + 4)
	}

	if h < 0 {
		h += 360
	}

	return h, s, v
}
