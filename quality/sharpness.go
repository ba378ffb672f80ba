package quality

import (
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/stat"
	"image"
	"math"
)

// DefaultSharpnessMaxSide is the longest side a region is downsampled to
// before the Laplacian is computed
const DefaultSharpnessMaxSide = 256

// Sharpness returns the focus score of img, being the sample variance of the
// 4-neighbour Laplacian over its luma.  Images with a side longer than
// maxSide are first downsampled, a maxSide of zero disables downsampling.
// Higher scores are sharper; flat images score 0.
func Sharpness(img image.Image, maxSide int) float64 {

	if img == nil || img.Bounds().Empty() {
		return 0
	}

	return LaplacianVariance(toLuma(img, maxSide))
}

// LaplacianVariance computes the sample variance of the discrete Laplacian
// at every interior pixel of gray
func LaplacianVariance(gray *image.Gray) float64 {

	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()

	if w < 3 || h < 3 {
		return 0
	}

	resp := make([]float64, 0, (w-2)*(h-2))
	pix := gray.Pix
	stride := gray.Stride

	for y := 1; y < h-1; y++ {
		row := y * stride

		for x := 1; x < w-1; x++ {
			i := row + x
			lap := int(pix[i-1]) + int(pix[i+1]) + int(pix[i-stride]) +
				int(pix[i+stride]) - 4*int(pix[i])
			resp = append(resp, float64(lap))
		}
	}

	if len(resp) < 2 {
		return 0
	}

	v := stat.Variance(resp, nil)

	if math.IsNaN(v) || v < 0 {
		return 0
	}

	return v
}

// toLuma converts img to an 8 bit gray image using the standard RGB luma
// weights, downsampling so neither side exceeds maxSide
func toLuma(img image.Image, maxSide int) *image.Gray {

	src := img.Bounds()
	w, h := src.Dx(), src.Dy()

	longest := w
	if h > longest {
		longest = h
	}

	if maxSide <= 0 || longest <= maxSide {
		gray := image.NewGray(image.Rect(0, 0, w, h))
		draw.Draw(gray, gray.Bounds(), img, src.Min, draw.Src)
		return gray
	}

	scale := float64(maxSide) / float64(longest)
	dw := int(math.Max(1, math.Round(float64(w)*scale)))
	dh := int(math.Max(1, math.Round(float64(h)*scale)))

	gray := image.NewGray(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, src, draw.Src, nil)

	return gray
}
