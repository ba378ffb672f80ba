package tracker

import "image"

// IoU calculates the Intersection over Union of two rectangles.  Empty
// rectangles have an IoU of zero with everything.
func IoU(a, b image.Rectangle) float64 {

	inter := a.Intersect(b)

	if inter.Empty() {
		return 0
	}

	ia := area(inter)
	union := area(a) + area(b) - ia

	if union <= 0 {
		return 0
	}

	return float64(ia) / float64(union)
}

func area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}
