package analyzer

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func createTestImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createSplitImage paints the left half black and the right half white.
func createSplitImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

func TestNewMetricsCalculator(t *testing.T) {
	calc := NewMetricsCalculator()
	if calc == nil {
		t.Error("Expected non-nil metrics calculator")
	}
}

func TestCalculateBasicMetrics(t *testing.T) {
	calc := NewMetricsCalculator()

	img := createTestImage(100, 100, color.RGBA{128, 128, 128, 255})
	m := calc.CalculateBasicMetrics(img)

	expectedValue := 128.0 / 255.0
	tolerance := 0.01

	if math.Abs(m.avgR-expectedValue) > tolerance {
		t.Errorf("Expected avgR ~%f, got %f", expectedValue, m.avgR)
	}
	if math.Abs(m.avgG-expectedValue) > tolerance {
		t.Errorf("Expected avgG ~%f, got %f", expectedValue, m.avgG)
	}
	if math.Abs(m.avgB-expectedValue) > tolerance {
		t.Errorf("Expected avgB ~%f, got %f", expectedValue, m.avgB)
	}
	if m.avgSaturation > 0.1 {
		t.Errorf("Expected low saturation for gray image, got %f", m.avgSaturation)
	}
	if m.luminanceStdDev != 0 {
		t.Errorf("Expected zero luminance deviation, got %f", m.luminanceStdDev)
	}
	if m.greyFraction != 1 {
		t.Errorf("Expected grey fraction 1, got %f", m.greyFraction)
	}
	if m.chromaticFraction != 0 {
		t.Errorf("Expected chromatic fraction 0, got %f", m.chromaticFraction)
	}
}

func TestCalculateBasicMetrics_HueSectors(t *testing.T) {
	calc := NewMetricsCalculator()

	tests := []struct {
		name   string
		color  color.RGBA
		sector int
	}{
		{"red", color.RGBA{255, 0, 0, 255}, 0},
		{"green", color.RGBA{0, 255, 0, 255}, 4},
		{"blue", color.RGBA{0, 0, 255, 255}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := calc.CalculateBasicMetrics(createTestImage(20, 20, tt.color))
			if m.chromaticFraction != 1 {
				t.Errorf("Expected chromatic fraction 1, got %f", m.chromaticFraction)
			}
			if m.hueWeight[tt.sector] != 1 {
				t.Errorf("Expected all weight in sector %d, got %v", tt.sector, m.hueWeight)
			}
			if got := hueNames[tt.sector]; got != tt.name {
				t.Errorf("Expected sector name %s, got %s", tt.name, got)
			}
		})
	}
}

func TestCalculateBasicMetrics_Empty(t *testing.T) {
	calc := NewMetricsCalculator()
	m := calc.CalculateBasicMetrics(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	if m != (metrics{}) {
		t.Errorf("Expected zero metrics for empty image, got %+v", m)
	}
}

func TestCalculateBasicMetrics_SplitContrast(t *testing.T) {
	calc := NewMetricsCalculator()
	m := calc.CalculateBasicMetrics(createSplitImage(40, 40))

	if math.Abs(m.luminanceStdDev-0.5) > 0.01 {
		t.Errorf("Expected luminance deviation ~0.5, got %f", m.luminanceStdDev)
	}
	if math.Abs(m.darkFraction-0.5) > 0.01 || math.Abs(m.lightFraction-0.5) > 0.01 {
		t.Errorf("Expected half dark and half light, got dark=%f light=%f", m.darkFraction, m.lightFraction)
	}
}

func TestCalculateLaplacianVariance(t *testing.T) {
	calc := NewMetricsCalculator()

	uniform := toGray(createTestImage(50, 50, color.RGBA{128, 128, 128, 255}))
	if v := calc.CalculateLaplacianVariance(uniform); v != 0 {
		t.Errorf("Expected zero variance for uniform image, got %f", v)
	}

	split := toGray(createSplitImage(50, 50))
	if v := calc.CalculateLaplacianVariance(split); v <= 0 {
		t.Errorf("Expected positive variance for split image, got %f", v)
	}

	tiny := image.NewGray(image.Rect(0, 0, 2, 2))
	if v := calc.CalculateLaplacianVariance(tiny); v != 0 {
		t.Errorf("Expected zero variance for tiny image, got %f", v)
	}
}

func TestCalculateEdgeDensity(t *testing.T) {
	calc := NewMetricsCalculator()

	uniform := toGray(createTestImage(20, 20, color.White))
	if d := calc.CalculateEdgeDensity(uniform); d != 0 {
		t.Errorf("Expected zero edge density, got %f", d)
	}

	// Two interior columns straddle the boundary out of 18.
	split := toGray(createSplitImage(20, 20))
	expected := 2.0 / 18.0
	if d := calc.CalculateEdgeDensity(split); math.Abs(d-expected) > 0.001 {
		t.Errorf("Expected edge density %f, got %f", expected, d)
	}
}

func TestRGBToHSV(t *testing.T) {
	calc := &metricsCalculator{}

	tests := []struct {
		name    string
		r, g, b float64
		h, s, v float64
	}{
		{"black", 0, 0, 0, 0, 0, 0},
		{"white", 1, 1, 1, 0, 0, 1},
		{"red", 1, 0, 0, 0, 1, 1},
		{"green", 0, 1, 0, 120, 1, 1},
		{"blue", 0, 0, 1, 240, 1, 1},
		{"magenta", 1, 0, 1, 300, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := calc.rgbToHSV(tt.r, tt.g, tt.b)
			if math.Abs(h-tt.h) > 0.001 || math.Abs(s-tt.s) > 0.001 || math.Abs(v-tt.v) > 0.001 {
				t.Errorf("Expected (%v,%v,%v), got (%v,%v,%v)", tt.h, tt.s, tt.v, h, s, v)
			}
		})
	}
}
