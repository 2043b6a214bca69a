package detection

import "gonum.org/v1/gonum/mat"

// ClustersResult holds the output of CountClusters.
//
// Exactly one of Points and Clusters is populated, depending on Mode.
type ClustersResult struct {
	// Mode is the counting mode that produced the result.
	Mode Mode `json:"mode"`

	// Count is the number of clusters found.
	Count int `json:"count"`

	// Points holds one point per cluster for ModeFirst and ModeCenter,
	// in cluster order.
	Points []Point `json:"points,omitempty"`

	// Clusters holds every hit of every cluster for ModeFull.
	Clusters []Cluster `json:"clusters,omitempty"`
}

// ReconstructResult holds the objects reconstructed from a frame.
type ReconstructResult struct {
	// Objects has one entry per cluster, in cluster order.
	Objects []Object `json:"objects"`

	// Count is the number of objects.
	Count int `json:"count"`

	// Counts is the number of objects per shape. Every label in ShapeTypes
	// is present, possibly with a zero count.
	Counts map[ShapeType]int `json:"counts"`
}

// CountPixels returns every hit of img in row-major order without any
// grouping. Adjacent hits are all reported.
func CountPixels(img mat.Matrix) ([]Point, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	return ExtractPixels(img), nil
}

// CountClusters groups the hits of img into clusters and reports them at
// the granularity selected by mode:
//
//   - ModeFirst: the seed of each cluster
//   - ModeCenter: the Center of each cluster
//   - ModeFull: every hit of each cluster
//
// An unknown mode returns an *InvalidModeError before any work is done.
func CountClusters(img mat.Matrix, mode Mode) (*ClustersResult, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, ErrNilImage
	}

	clusters := BuildClusters(ExtractPixels(img))
	result := &ClustersResult{
		Mode:  mode,
		Count: len(clusters),
	}

	switch mode {
	case ModeFull:
		result.Clusters = clusters
	case ModeFirst:
		result.Points = make([]Point, 0, len(clusters))
		for _, c := range clusters {
			result.Points = append(result.Points, c.First())
		}
	case ModeCenter:
		result.Points = make([]Point, 0, len(clusters))
		for _, c := range clusters {
			center, err := Center(c, MethodFull)
			if err != nil {
				return nil, err
			}
			result.Points = append(result.Points, center)
		}
	}

	return result, nil
}

// Reconstruct clusters the hits of img and returns one Object per cluster
// with its Center and shape.
func Reconstruct(img mat.Matrix) (*ReconstructResult, error) {
	if img == nil {
		return nil, ErrNilImage
	}

	clusters := BuildClusters(ExtractPixels(img))
	objects := make([]Object, 0, len(clusters))
	for _, c := range clusters {
		center, err := Center(c, MethodFull)
		if err != nil {
			return nil, err
		}
		objects = append(objects, Object{Center: center, Type: Classify(c)})
	}

	return &ReconstructResult{
		Objects: objects,
		Count:   len(objects),
		Counts:  CountByType(objects),
	}, nil
}

// CountByType tallies objects per shape label. Every label in ShapeTypes is
// present in the result.
func CountByType(objects []Object) map[ShapeType]int {
	counts := make(map[ShapeType]int, len(ShapeTypes))
	for _, t := range ShapeTypes {
		counts[t] = 0
	}
	for _, o := range objects {
		counts[o.Type]++
	}
	return counts
}
