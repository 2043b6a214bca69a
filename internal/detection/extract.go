package detection

import "gonum.org/v1/gonum/mat"

// ExtractPixels returns the coordinates of every nonzero cell of img.
//
// Cells are visited row by row, left to right, and the result keeps that
// order. Clustering depends on it: the first hit of each cluster is the one
// met first by this scan.
//
// A nil img yields an empty result.
func ExtractPixels(img mat.Matrix) []Point {
	if img == nil {
		return nil
	}
	rows, cols := img.Dims()

	points := make([]Point, 0)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if img.At(r, c) != 0 {
				points = append(points, Point{Row: r, Col: c})
			}
		}
	}
	return points
}
