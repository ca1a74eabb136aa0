package analysis

import (
	"image"
	"image/color"
)

// MeanIntensity returns the mean luminance of img in [0, 255]. Non-gray
// images are converted pixel by pixel with the BT.601 weights.
func MeanIntensity(img image.Image) float64 {
	bounds := img.Bounds()
	if bounds.Empty() {
		return 0
	}
	pixels := float64(bounds.Dx() * bounds.Dy())

	if g, ok := img.(*image.Gray); ok {
		var sum uint64
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := g.Pix[g.PixOffset(bounds.Min.X, y):g.PixOffset(bounds.Max.X, y)]
			for _, p := range row {
				sum += uint64(p)
			}
		}
		return float64(sum) / pixels
	}

	var sum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sum += float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
		}
	}
	return sum / pixels
}

// Mean is the arithmetic mean of values, 0 when there are none
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
