package preprocess

import "image"

// PackNV21 copies the frame planes into a contiguous NV21 buffer, being the
// full luma plane followed by interleaved V/U chroma samples.  Row and pixel
// strides of every plane are honored so padded rows and semi-planar chroma
// layouts pack correctly.
func PackNV21(f *Frame) ([]byte, error) {

	if err := f.Validate(); err != nil {
		return nil, err
	}

	w, h := f.Width, f.Height
	out := make([]byte, w*h+w*h/2)
	pos := 0

	yPlane := f.Planes[0]

	for row := 0; row < h; row++ {
		// fast path for contiguous luma rows
		if yPlane.PixelStride == 1 {
			start := row * yPlane.RowStride
			pos += copy(out[pos:pos+w], yPlane.Data[start:start+w])
			continue
		}

		for col := 0; col < w; col++ {
			out[pos] = yPlane.at(col, row)
			pos++
		}
	}

	uPlane := f.Planes[1]
	vPlane := f.Planes[2]

	// NV21 expects V before U
	for row := 0; row < h/2; row++ {
		for col := 0; col < w/2; col++ {
			out[pos] = vPlane.at(col, row)
			out[pos+1] = uPlane.at(col, row)
			pos += 2
		}
	}

	return out, nil
}

// CropNV21 packs only the raw rectangle r of the frame as NV21.  The
// rectangle is aligned outward to even coordinates and clipped to the
// frame, the rectangle actually packed is returned with the buffer.
func CropNV21(f *Frame, r image.Rectangle) ([]byte, image.Rectangle, error) {

	if err := f.Validate(); err != nil {
		return nil, r, err
	}

	sub, aligned, err := f.Sub(r)

	if err != nil {
		return nil, aligned, err
	}

	out, err := PackNV21(sub)

	return out, aligned, err
}
