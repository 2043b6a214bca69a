package detection

import "fmt"

// LineDiameterThreshold is the largest cluster diameter, in pixels, that is
// still classified as a blob. Wider clusters are lines.
//
// The value is tuned to the synthetic blob and line generator in
// internal/datagen and must not change without recalibrating against it.
const LineDiameterThreshold = 4.0

// Point is the coordinate of a single hit cell.
type Point struct {
	Row int `json:"row"` // Vertical position (0 = topmost row)
	Col int `json:"col"` // Horizontal position (0 = leftmost column)
}

// String formats the point as "(row,col)".
func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Cluster is a connected group of hits.
//
// Clusters built by BuildClusters are never empty. The first point is the
// seed, the hit that started the cluster; the remaining points follow in the
// order they joined.
type Cluster []Point

// First returns the seed point of the cluster.
func (c Cluster) First() Point {
	return c[0]
}

// ShapeType labels the geometry of a cluster.
type ShapeType string

// Shape labels produced by Classify.
const (
	Dot  ShapeType = "dot"  // A single isolated hit
	Blob ShapeType = "blob" // A compact group of hits
	Line ShapeType = "line" // An elongated track
)

// ShapeTypes lists every label Classify can return, in legend order.
var ShapeTypes = []ShapeType{Dot, Blob, Line}

// Object is a reconstructed cluster: its representative hit and its shape.
//
// The JSON form {"coords": {"row": r, "col": c}, "type": "blob"} is what
// overlay renderers consume.
type Object struct {
	Center Point     `json:"coords"`
	Type   ShapeType `json:"type"`
}

// Mode selects the granularity of CountClusters results.
type Mode string

// Counting modes accepted by CountClusters.
const (
	// ModeFirst reports the seed of each cluster. It needs no extra work, but
	// which hit is the seed depends on the scan order, not on geometry.
	ModeFirst Mode = "first"

	// ModeCenter reports the Center of each cluster.
	ModeCenter Mode = "center"

	// ModeFull reports every hit of each cluster.
	ModeFull Mode = "full"
)

// Method selects the algorithm used by Center and MaxDiameter.
type Method string

// MethodFull compares every pair of points in the cluster. It is the only
// supported method.
const MethodFull Method = "full"
