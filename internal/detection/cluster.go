package detection

// Adjacent reports whether two hits touch under 8-connectivity.
//
// Points touch when neither their rows nor their columns differ by more than
// one. Identical points are adjacent.
func Adjacent(a, b Point) bool {
	return abs(a.Row-b.Row) <= 1 && abs(a.Col-b.Col) <= 1
}

// BuildClusters partitions points into connected clusters.
//
// Every point ends up in exactly one cluster, and no point of one cluster is
// adjacent to a point of another.
//
// # Algorithm
//
//  1. Take the next point, in input order, that has no cluster yet and
//     start a new cluster with it.
//  2. Sweep the unassigned points in input order. A point adjacent to any
//     current member joins the cluster immediately, so later points of the
//     same sweep can connect through it.
//  3. Repeat the sweep until one adds nothing, then go back to step 1.
//
// Each sweep is O(n²) in the number of hits.
//
// Clusters are returned in the order of their seeds. Within a cluster the
// seed comes first and the other points follow in joining order.
func BuildClusters(points []Point) []Cluster {
	clusters := make([]Cluster, 0)
	assigned := make([]bool, len(points))

	for i := range points {
		if assigned[i] {
			continue
		}

		cluster := Cluster{points[i]}
		assigned[i] = true

		for added := true; added; {
			added = false
			for j := range points {
				if assigned[j] {
					continue
				}
				if touchesCluster(points[j], cluster) {
					cluster = append(cluster, points[j])
					assigned[j] = true
					added = true
				}
			}
		}

		clusters = append(clusters, cluster)
	}

	return clusters
}

// touchesCluster reports whether p is adjacent to any member of c.
func touchesCluster(p Point, c Cluster) bool {
	for _, q := range c {
		if Adjacent(p, q) {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
