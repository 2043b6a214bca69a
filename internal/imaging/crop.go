package imaging

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Region is a rectangle of frame cells. Row1/Col1 are inclusive, Row2/Col2
// exclusive.
type Region struct {
	Row1 int `json:"row1"`
	Col1 int `json:"col1"`
	Row2 int `json:"row2"`
	Col2 int `json:"col2"`
}

// Rows returns the number of rows covered by r.
func (r Region) Rows() int { return r.Row2 - r.Row1 }

// Cols returns the number of columns covered by r.
func (r Region) Cols() int { return r.Col2 - r.Col1 }

// CropFrame returns a copy of the cells of frame inside r.
func CropFrame(frame mat.Matrix, r Region) (*mat.Dense, error) {
	rows, cols := frame.Dims()

	if r.Row1 < 0 || r.Col1 < 0 || r.Row2 > rows || r.Col2 > cols {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside frame bounds (0,0)-(%d,%d)",
			r.Row1, r.Col1, r.Row2, r.Col2, rows, cols)
	}
	if r.Row1 >= r.Row2 || r.Col1 >= r.Col2 {
		return nil, fmt.Errorf("invalid crop region: row1 must be < row2, col1 must be < col2")
	}

	out := mat.NewDense(r.Rows(), r.Cols(), nil)
	for i := 0; i < r.Rows(); i++ {
		for j := 0; j < r.Cols(); j++ {
			out.Set(i, j, frame.At(r.Row1+i, r.Col1+j))
		}
	}
	return out, nil
}

// NamedRegion resolves a region name such as "top-left" or "center" against a
// frame of the given size.
func NamedRegion(rows, cols int, name string) (Region, error) {
	midR, midC := rows/2, cols/2

	switch name {
	case "top-left":
		return Region{0, 0, midR, midC}, nil
	case "top-right":
		return Region{0, midC, midR, cols}, nil
	case "bottom-left":
		return Region{midR, 0, rows, midC}, nil
	case "bottom-right":
		return Region{midR, midC, rows, cols}, nil
	case "top-half":
		return Region{0, 0, midR, cols}, nil
	case "bottom-half":
		return Region{midR, 0, rows, cols}, nil
	case "left-half":
		return Region{0, 0, rows, midC}, nil
	case "right-half":
		return Region{0, midC, rows, cols}, nil
	case "center":
		// Center 50% of the frame
		qR, qC := rows/4, cols/4
		return Region{qR, qC, rows - qR, cols - qC}, nil
	default:
		return Region{}, fmt.Errorf("unknown region: %s", name)
	}
}
