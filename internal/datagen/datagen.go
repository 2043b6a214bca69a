// Package datagen generates synthetic detector frames for testing and
// calibration.
//
// Frames are filled with randomly placed blobs and lines drawn as cells set to
// 1 on a zero background. All randomness comes from the Generator's own
// source, so a seed fully determines the output.
package datagen

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Offset is a cell position relative to an object's origin (or, after
// Place, an absolute frame position).
type Offset struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Shape names accepted by Object.
const (
	ShapeBlob = "blob"
	ShapeLine = "line"
)

// Limits enforced by Image.
const (
	MaxImageCells = 1 << 26
	MaxObjectSize = 1 << 16
	MaxObjects    = 1 << 16
)

// overlapSamples is the number of sample points per side used to estimate
// how much of a unit cell lies inside a disc.
const overlapSamples = 20

// UnknownShapeError reports a shape name Object cannot draw.
type UnknownShapeError struct {
	Shape string
}

func (e *UnknownShapeError) Error() string {
	return fmt.Sprintf("datagen: shape %q not recognized (want %q or %q)", e.Shape, ShapeBlob, ShapeLine)
}

// ObjectSpec asks Image for Count objects of the given shape and size.
type ObjectSpec struct {
	Shape string `json:"shape" yaml:"shape"`
	Size  int    `json:"size" yaml:"size"`
	Count int    `json:"count" yaml:"count"`
}

// Generator draws synthetic objects from an explicit random source.
//
// A Generator is not safe for concurrent use; create one per goroutine.
type Generator struct {
	rng *rand.Rand
}

// New returns a Generator seeded with seed.
func New(seed int64) *Generator {
	return NewWithSource(rand.New(rand.NewSource(seed)))
}

// NewWithSource returns a Generator drawing from rng.
func NewWithSource(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Blob returns a roughly circular object of about npixels cells centred on
// the origin.
//
//   - npixels <= 1: the origin only
//   - npixels == 2: the origin plus one orthogonal neighbour, direction
//     chosen uniformly
//   - npixels > 2: each cell of the square enclosing a disc of area npixels
//     is kept with probability equal to its overlap with the disc, so the
//     actual size varies around npixels
func (g *Generator) Blob(npixels int) []Offset {
	switch {
	case npixels <= 1:
		return []Offset{{0, 0}}
	case npixels == 2:
		neighbours := [4]Offset{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
		return []Offset{{0, 0}, neighbours[g.rng.Intn(len(neighbours))]}
	}

	r := math.Sqrt(float64(npixels) / math.Pi)
	half := int(math.Ceil(r))

	cells := make([]Offset, 0, npixels)
	for i := -half; i < half; i++ {
		for j := -half; j < half; j++ {
			overlap := overlapCircleSquare(r, float64(i), float64(j), 1)
			if g.rng.Float64() < overlap {
				cells = append(cells, Offset{Row: i, Col: j})
			}
		}
	}
	return cells
}

// Line returns a straight track of about npixels cells starting at the
// origin, in a uniformly random direction.
func (g *Generator) Line(npixels int) []Offset {
	theta := g.rng.Float64() * 2 * math.Pi
	rowEnd := float64(npixels) * math.Cos(theta)
	colEnd := float64(npixels) * math.Sin(theta)

	cells := []Offset{{0, 0}}
	steps := npixels * 20
	for t := 0; t < steps; t++ {
		frac := float64(t) / float64(steps)
		next := Offset{
			Row: int(math.Round(frac * rowEnd)),
			Col: int(math.Round(frac * colEnd)),
		}
		if cells[len(cells)-1] != next {
			cells = append(cells, next)
		}
	}
	return cells
}

// Object draws a single object of the named shape.
func (g *Generator) Object(shape string, size int) ([]Offset, error) {
	switch shape {
	case ShapeBlob:
		return g.Blob(size), nil
	case ShapeLine:
		return g.Line(size), nil
	default:
		return nil, &UnknownShapeError{Shape: shape}
	}
}

// Position returns a uniformly random cell of a rows x cols frame.
func (g *Generator) Position(rows, cols int) Offset {
	return Offset{
		Row: int(g.rng.Float64() * float64(rows)),
		Col: int(g.rng.Float64() * float64(cols)),
	}
}

// Place translates obj by pos and drops cells that fall outside a
// rows x cols frame.
func Place(obj []Offset, pos Offset, rows, cols int) []Offset {
	placed := make([]Offset, 0, len(obj))
	for _, o := range obj {
		r := o.Row + pos.Row
		c := o.Col + pos.Col
		if r < 0 || r >= rows || c < 0 || c >= cols {
			continue
		}
		placed = append(placed, Offset{Row: r, Col: c})
	}
	return placed
}

// Image draws a rows x cols frame containing the requested objects at random
// positions. Objects may overlap or touch; overlapping cells stay at 1.
func (g *Generator) Image(rows, cols int, specs []ObjectSpec) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("datagen: invalid frame size %dx%d", rows, cols)
	}
	if rows > MaxImageCells/cols {
		return nil, fmt.Errorf("datagen: frame size %dx%d exceeds %d cells", rows, cols, MaxImageCells)
	}
	total := 0
	for _, spec := range specs {
		if spec.Size > MaxObjectSize {
			return nil, fmt.Errorf("datagen: object size %d exceeds %d", spec.Size, MaxObjectSize)
		}
		if spec.Count > MaxObjects-total {
			return nil, fmt.Errorf("datagen: more than %d objects requested", MaxObjects)
		}
		total += max(spec.Count, 0)
	}
	frame := mat.NewDense(rows, cols, nil)
	for _, spec := range specs {
		for n := 0; n < spec.Count; n++ {
			obj, err := g.Object(spec.Shape, spec.Size)
			if err != nil {
				return nil, err
			}
			pos := g.Position(rows, cols)
			for _, cell := range Place(obj, pos, rows, cols) {
				frame.Set(cell.Row, cell.Col, 1)
			}
		}
	}
	return frame, nil
}

// overlapCircleSquare estimates the fraction of a square of side size,
// centred on (cx, cy), that lies inside a disc of radius r centred on the
// origin. The square is sampled on an overlapSamples x overlapSamples grid
// that includes its edges.
func overlapCircleSquare(r, cx, cy, size float64) float64 {
	xs := floats.Span(make([]float64, overlapSamples), cx-size/2, cx+size/2)
	ys := floats.Span(make([]float64, overlapSamples), cy-size/2, cy+size/2)

	inside := 0
	for _, x := range xs {
		for _, y := range ys {
			if math.Hypot(x, y) < r {
				inside++
			}
		}
	}
	return float64(inside) / float64(overlapSamples*overlapSamples)
}
