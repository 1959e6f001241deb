package vision

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// hsvRange is an inclusive range in OpenCV HSV units: hue 0-180, saturation
// and value 0-255.
type hsvRange struct {
	hMin, hMax float64
	sMin, vMin float64
}

var (
	greenRange = hsvRange{hMin: 35, hMax: 85, sMin: 40, vMin: 40}
	brownRange = hsvRange{hMin: 10, hMax: 25, sMin: 40, vMin: 40}
	blueRange  = hsvRange{hMin: 100, hMax: 130, sMin: 40, vMin: 40}
)

func (r hsvRange) contains(h, s, v float64) bool {
	return h >= r.hMin && h <= r.hMax && s >= r.sMin && v >= r.vMin
}

// ColourAnalysis describes the scene from the share of green, brown and blue
// pixels. An undecodable image yields a single low-confidence unknown scene.
func ColourAnalysis(data []byte) []Detection {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return []Detection{{
			Name:        "未知场景",
			Confidence:  0.3,
			Category:    CategoryOther,
			Description: "无法详细分析",
			Location:    "unknown",
		}}
	}

	green, brown, blue := colourRatios(img)

	var out []Detection
	if green > 0.3 {
		out = append(out, Detection{
			Name:        "植被",
			Confidence:  min(green*2, 0.8),
			Category:    CategoryPlant,
			Description: "图像包含大量绿色植被",
			Location:    "background",
		})
	}
	if brown > 0.2 {
		out = append(out, Detection{
			Name:        "树干或土壤",
			Confidence:  min(brown*2, 0.7),
			Category:    CategoryNatural,
			Description: "图像包含棕色区域，可能是树干或土壤",
			Location:    "background",
		})
	}
	if blue > 0.2 {
		out = append(out, Detection{
			Name:        "天空",
			Confidence:  min(blue*2, 0.8),
			Category:    CategoryNatural,
			Description: "图像包含蓝色区域，可能是天空",
			Location:    "background",
		})
	}
	if len(out) == 0 {
		out = append(out, Detection{
			Name:        "自然场景",
			Confidence:  0.5,
			Category:    CategoryNatural,
			Description: "户外自然环境",
			Location:    "background",
		})
	}
	return out
}

func colourRatios(img image.Image) (green, brown, blue float64) {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0, 0, 0
	}

	var g, br, bl int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			h, s, v := toHSV(float64(r16>>8), float64(g16>>8), float64(b16>>8))
			switch {
			case greenRange.contains(h, s, v):
				g++
			case brownRange.contains(h, s, v):
				br++
			case blueRange.contains(h, s, v):
				bl++
			}
		}
	}

	n := float64(total)
	return float64(g) / n, float64(br) / n, float64(bl) / n
}

// toHSV converts 8-bit RGB to OpenCV HSV units.
func toHSV(r, g, b float64) (h, s, v float64) {
	maxC := max(r, g, b)
	minC := min(r, g, b)
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC * 255
	}
	if delta == 0 {
		return 0, s, v
	}

	switch maxC {
	case r:
		h = 60 * (g - b) / delta
	case g:
		h = 60*(b-r)/delta + 120
	default:
		h = 60*(r-g)/delta + 240
	}
	if h < 0 {
		h += 360
	}
	return h / 2, s, v
}
