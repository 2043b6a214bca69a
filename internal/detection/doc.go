// Package detection finds and classifies hit objects in binary detector frames.
//
// A frame is any gonum mat.Matrix. Every cell that is not exactly zero is a
// hit; the magnitude of the value is ignored. The package turns the hits of a
// frame into objects in three forward-only steps:
//
//  1. Extraction: ExtractPixels lists the hit coordinates in row-major order.
//  2. Clustering: BuildClusters partitions the hits into the connected
//     components of the 8-connected adjacency graph.
//  3. Analysis: Center and Classify reduce each cluster to a representative
//     member and a shape label.
//
// CountPixels, CountClusters and Reconstruct combine the steps into the
// public counting API.
//
// # Coordinate System
//
// Points are (Row, Col) pairs with (0, 0) at the top-left cell of the frame.
// Rows increase downward, columns increase rightward. Consumers that draw
// markers on an image must map Col to X and Row to Y themselves.
//
// # Adjacency
//
// Two hits are adjacent when both their row and column differ by at most one
// (Chebyshev distance <= 1), so diagonal neighbours touch. Two hits belong to
// the same cluster when a chain of adjacent hits connects them.
//
// # Shapes
//
// A cluster with one hit is a dot. A larger cluster is a line when its
// largest pairwise Euclidean distance exceeds LineDiameterThreshold and a
// blob otherwise.
//
// # Ordering
//
// Results are deterministic. Clusters appear in the order their first hit is
// met during the row-major scan and the first hit of a cluster is always its
// seed. The "first" counting mode relies on this.
//
// # Performance Considerations
//
// Clustering is quadratic in the number of hits per sweep. That is fine for
// sparse detector frames with a low occupancy, which is what the package is
// for, and slow for dense images.
//
// # Thread Safety
//
// No function keeps state between calls. Calls on different frames can run
// concurrently without locking.
package detection
