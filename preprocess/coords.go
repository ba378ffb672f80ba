package preprocess

import (
	"image"
	"math"
)

// UprightSize returns the width and height of a raw frame of the given size
// once rotated by deg degrees clockwise
func UprightSize(rawWidth, rawHeight, deg int) (int, int) {
	if deg == 90 || deg == 270 {
		return rawHeight, rawWidth
	}
	return rawWidth, rawHeight
}

// ExpandClamp grows the rectangle r by the padding fraction (0.20 adds 20%
// to both width and height) keeping it centered on r, then fits it inside
// the bounds [0, boundW) x [0, boundH).  When the grown rectangle crosses
// an edge it is shifted back inside rather than clipped, so as much of the
// requested area as the bounds allow is kept.  The result is always at
// least 1x1 pixels.
func ExpandClamp(r image.Rectangle, padding float64, boundW, boundH int) image.Rectangle {

	if boundW < 1 || boundH < 1 {
		return image.Rectangle{}
	}

	if padding < 0 || math.IsNaN(padding) {
		padding = 0
	}

	w := float64(boundW)
	h := float64(boundH)

	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	bw := math.Max(float64(r.Dx()), 1)
	bh := math.Max(float64(r.Dy()), 1)

	newW := math.Min(bw*(1+padding), w)
	newH := math.Min(bh*(1+padding), h)

	left := cx - newW/2
	top := cy - newH/2
	right := cx + newW/2
	bottom := cy + newH/2

	// shift back inside the bounds instead of clipping
	if left < 0 {
		right -= left
		left = 0
	}
	if top < 0 {
		bottom -= top
		top = 0
	}
	if right > w {
		left -= right - w
		right = w
	}
	if bottom > h {
		top -= bottom - h
		bottom = h
	}

	il := clampInt(int(math.Round(left)), 0, boundW-1)
	it := clampInt(int(math.Round(top)), 0, boundH-1)
	ir := clampInt(int(math.Round(right)), il+1, boundW)
	ib := clampInt(int(math.Round(bottom)), it+1, boundH)

	return image.Rect(il, it, ir, ib)
}

// UprightToRaw maps a rectangle in upright coordinates back to the raw sensor
// coordinates of a frame of rawWidth x rawHeight that must be rotated deg
// degrees clockwise to be upright.  Coordinates are pixel edges so the
// mapping is exact for all four rotations.
func UprightToRaw(r image.Rectangle, deg, rawWidth, rawHeight int) image.Rectangle {
	return mapRect(r, func(p image.Point) image.Point {
		switch deg {
		case 90:
			return image.Pt(p.Y, rawHeight-p.X)
		case 180:
			return image.Pt(rawWidth-p.X, rawHeight-p.Y)
		case 270:
			return image.Pt(rawWidth-p.Y, p.X)
		}
		return p
	})
}

// RawToUpright maps a rectangle in raw sensor coordinates to upright
// coordinates, being the inverse of UprightToRaw
func RawToUpright(r image.Rectangle, deg, rawWidth, rawHeight int) image.Rectangle {
	return mapRect(r, func(p image.Point) image.Point {
		switch deg {
		case 90:
			return image.Pt(rawHeight-p.Y, p.X)
		case 180:
			return image.Pt(rawWidth-p.X, rawHeight-p.Y)
		case 270:
			return image.Pt(p.Y, rawWidth-p.X)
		}
		return p
	})
}

// mapRect transforms both corners of r and rebuilds an axis aligned
// rectangle of at least 1x1 from the min/max of the results
func mapRect(r image.Rectangle, fn func(image.Point) image.Point) image.Rectangle {

	a := fn(r.Min)
	b := fn(r.Max)

	out := image.Rect(a.X, a.Y, b.X, b.Y) // image.Rect canonicalizes min/max

	if out.Dx() < 1 {
		out.Max.X = out.Min.X + 1
	}
	if out.Dy() < 1 {
		out.Max.Y = out.Min.Y + 1
	}

	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
