package imaging

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"
)

// FrameFromImage binarises img into a detector frame.
//
// The image is flattened onto an opaque black background, converted to
// grayscale and thresholded: pixels with luminance >= level become 1, all
// others 0. Transparent pixels therefore never count as hits.
//
// The returned matrix has one row per image row and one column per image
// column, so frame (row, col) is image (x=col, y=row) relative to the
// image's bounds.
func FrameFromImage(img image.Image, level uint8) *mat.Dense {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	flat := imaging.New(width, height, color.Black)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)
	binary := segment.Threshold(imaging.Grayscale(flat), level)

	frame := mat.NewDense(height, width, nil)
	b := binary.Bounds()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if binary.GrayAt(b.Min.X+x, b.Min.Y+y).Y != 0 {
				frame.Set(y, x, 1)
			}
		}
	}
	return frame
}

// FrameToImage renders a frame as a grayscale image with hits in white and
// background in black.
func FrameToImage(frame mat.Matrix) *image.Gray {
	rows, cols := frame.Dims()
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if frame.At(r, c) != 0 {
				img.SetGray(c, r, color.Gray{Y: 255})
			}
		}
	}
	return img
}
