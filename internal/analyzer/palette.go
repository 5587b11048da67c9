package analyzer

import "sort"

// hueNames names each 30 degree hue sector
var hueNames = [hueBins]string{
	"red", "orange", "yellow", "green", "green", "teal",
	"cyan", "blue", "indigo", "purple", "pink", "red",
}

type weightedColor struct {
	name   string
	weight float64
}

// paletteColors returns up to maxColors color names covering at least
// minWeight of the image, heaviest first.
func paletteColors(m metrics, maxColors int, minWeight float64) []string {
	weights := map[string]float64{
		"black": m.darkFraction,
		"white": m.lightFraction,
		"grey":  m.greyFraction,
	}
	for i, w := range m.hueWeight {
		weights[hueNames[i]] += w * m.chromaticFraction
	}

	var ranked []weightedColor
	for name, w := range weights {
		if w >= minWeight {
			ranked = append(ranked, weightedColor{name, w})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].name < ranked[j].name
	})

	colors := make([]string, 0, maxColors)
	for _, c := range ranked {
		if len(colors) == maxColors {
			break
		}
		colors = append(colors, c.name)
	}
	return colors
}

// styleFor picks one style label from texture and color statistics.
func styleFor(m metrics, edgeDensity, laplacian float64) string {
	switch {
	case m.chromaticFraction < 0.1:
		return "monochrome"
	case edgeDensity < 0.03 && m.luminanceStdDev < 0.12:
		return "minimalist"
	case edgeDensity > 0.25:
		return "detailed"
	case m.avgSaturation > 0.6:
		return "vivid"
	case laplacian < 100:
		return "soft"
	default:
		return "painterly"
	}
}

// moodFor picks one mood label from brightness, saturation and warmth.
func moodFor(m metrics) string {
	warmth := m.avgR - m.avgB
	switch {
	case m.avgLuminance < 0.3:
		return "dark"
	case m.avgLuminance > 0.75 && m.avgSaturation < 0.35:
		return "airy"
	case m.avgSaturation > 0.55:
		return "energetic"
	case warmth > 0.1:
		return "warm"
	case warmth < -0.1:
		return "serene"
	default:
		return "calm"
	}
}

// descriptiveKeywords derives format, temperature and contrast keywords.
func descriptiveKeywords(m metrics, width, height int, laplacian float64) []string {
	var kw []string

	ratio := float64(width) / float64(max(height, 1))
	switch {
	case ratio > 1.2:
		kw = append(kw, "landscape")
	case ratio < 0.83:
		kw = append(kw, "portrait")
	default:
		kw = append(kw, "square")
	}

	switch warmth := m.avgR - m.avgB; {
	case warmth > 0.1:
		kw = append(kw, "warm")
	case warmth < -0.1:
		kw = append(kw, "cool")
	}

	switch {
	case m.luminanceStdDev > 0.3:
		kw = append(kw, "contrast")
	case m.luminanceStdDev < 0.08:
		kw = append(kw, "flat")
	}

	if laplacian > 1000 {
		kw = append(kw, "textured")
	}
	if m.chromaticFraction < 0.1 {
		kw = append(kw, "monochrome")
	}
	return kw
}
