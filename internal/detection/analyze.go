package detection

import "math"

// Center returns the member of c with the smallest sum of squared Euclidean
// distances to all members.
//
// That member is the one closest to the cluster centroid, but unlike the
// centroid it is always a real hit. When several members share the minimum,
// the one earliest in cluster order wins.
//
// Only MethodFull is supported; other methods return an
// *UnsupportedMethodError. Center panics on an empty cluster.
func Center(c Cluster, method Method) (Point, error) {
	if method != MethodFull {
		return Point{}, &UnsupportedMethodError{Op: "center", Method: method}
	}
	mustNotBeEmpty(c, "Center")

	best := 0
	bestSum := math.MaxInt
	for i, p := range c {
		sum := 0
		for _, q := range c {
			sum += squaredDistance(p, q)
		}
		if sum < bestSum {
			bestSum = sum
			best = i
		}
	}
	return c[best], nil
}

// MaxDiameter returns the largest Euclidean distance between two members of
// c, in pixels. A single-point cluster has diameter 0.
//
// Only MethodFull is supported; other methods return an
// *UnsupportedMethodError. MaxDiameter panics on an empty cluster.
func MaxDiameter(c Cluster, method Method) (float64, error) {
	if method != MethodFull {
		return 0, &UnsupportedMethodError{Op: "max_diameter", Method: method}
	}
	mustNotBeEmpty(c, "MaxDiameter")

	maxSq := 0
	for i, p := range c {
		for _, q := range c[i+1:] {
			if d := squaredDistance(p, q); d > maxSq {
				maxSq = d
			}
		}
	}
	return math.Sqrt(float64(maxSq)), nil
}

// Classify labels the shape of c.
//
// Rules, in order:
//   - one point: Dot
//   - diameter greater than LineDiameterThreshold: Line
//   - otherwise: Blob
//
// A diameter of exactly LineDiameterThreshold is still a Blob.
func Classify(c Cluster) ShapeType {
	mustNotBeEmpty(c, "Classify")
	if len(c) == 1 {
		return Dot
	}
	d, _ := MaxDiameter(c, MethodFull)
	if d > LineDiameterThreshold {
		return Line
	}
	return Blob
}

func squaredDistance(p, q Point) int {
	dr := p.Row - q.Row
	dc := p.Col - q.Col
	return dr*dr + dc*dc
}

// mustNotBeEmpty guards the analyzers. BuildClusters never produces an empty
// cluster, so reaching the panic means a caller built one by hand.
func mustNotBeEmpty(c Cluster, op string) {
	if len(c) == 0 {
		panic("detection: " + op + " called with an empty cluster")
	}
}
