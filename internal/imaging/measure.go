package imaging

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/hit-reco-mcp/internal/detection"
)

// DistanceResult contains measurement information between two frame cells.
type DistanceResult struct {
	DistancePixels float64 `json:"distance_pixels"`
	DeltaRow       int     `json:"delta_row"`
	DeltaCol       int     `json:"delta_col"`
	// AngleDegrees is 0 along increasing columns and 90 along increasing rows.
	AngleDegrees      float64 `json:"angle_degrees"`
	ChebyshevDistance int     `json:"chebyshev_distance"`
	// Adjacent reports whether the two cells would join the same cluster.
	Adjacent bool `json:"adjacent"`
}

// MeasureDistance measures the straight-line distance between two cells of
// frame.
func MeasureDistance(frame mat.Matrix, a, b detection.Point) (*DistanceResult, error) {
	rows, cols := frame.Dims()
	for _, p := range []detection.Point{a, b} {
		if p.Row < 0 || p.Col < 0 || p.Row >= rows || p.Col >= cols {
			return nil, fmt.Errorf("point %s outside frame bounds %dx%d", p, rows, cols)
		}
	}

	dr := b.Row - a.Row
	dc := b.Col - a.Col
	distance := math.Sqrt(float64(dr*dr + dc*dc))
	angle := math.Atan2(float64(dr), float64(dc)) * 180 / math.Pi

	return &DistanceResult{
		DistancePixels:    math.Round(distance*100) / 100,
		DeltaRow:          dr,
		DeltaCol:          dc,
		AngleDegrees:      math.Round(angle*10) / 10,
		ChebyshevDistance: max(absInt(dr), absInt(dc)),
		Adjacent:          detection.Adjacent(a, b),
	}, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
