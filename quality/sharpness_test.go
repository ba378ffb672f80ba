package quality

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

// checkerboard returns a gray image of alternating black and white cells
func checkerboard(w, h, cell int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	return img
}

// boxBlur averages every pixel over a (2r+1)^2 neighbourhood
func boxBlur(src *image.Gray, r int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum, n := 0, 0

			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					p := image.Pt(x+dx, y+dy)
					if !p.In(b) {
						continue
					}
					sum += int(src.GrayAt(p.X, p.Y).Y)
					n++
				}
			}

			dst.SetGray(x, y, color.Gray{Y: uint8(sum / n)})
		}
	}

	return dst
}

func TestSharpnessUniform(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 80, 60))

	for y := 0; y < 60; y++ {
		for x := 0; x < 80; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 140, B: 30, A: 255})
		}
	}

	assert.InDelta(t, 0, Sharpness(img, DefaultSharpnessMaxSide), 1e-9)
}

func TestSharpnessCheckerboardVsBlur(t *testing.T) {
	sharp := checkerboard(96, 96, 4)
	blurred := boxBlur(sharp, 3)

	s := Sharpness(sharp, 0)
	b := Sharpness(blurred, 0)

	assert.Greater(t, s, 0.0)
	assert.Greater(t, s, 10*b, "sharp %f should be well above blurred %f", s, b)
}

func TestSharpnessDownsampled(t *testing.T) {
	big := checkerboard(1024, 768, 32)

	score := Sharpness(big, 128)

	assert.Greater(t, score, 0.0)
}

func TestSharpnessDegenerate(t *testing.T) {
	assert.Zero(t, Sharpness(nil, 0))
	assert.Zero(t, Sharpness(image.NewGray(image.Rect(0, 0, 2, 2)), 0))
	assert.Zero(t, LaplacianVariance(image.NewGray(image.Rect(0, 0, 3, 3))))
}

func TestSharpnessOffsetBounds(t *testing.T) {
	board := checkerboard(64, 64, 4)
	sub := board.SubImage(image.Rect(10, 10, 50, 50))

	assert.Greater(t, Sharpness(sub, 0), 0.0)
}
