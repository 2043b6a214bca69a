// Package server implements the MCP (Model Context Protocol) server for detector
// frame reconstruction.
//
// This package provides a JSON-RPC 2.0 server that exposes the clustering and
// reconstruction engine through the MCP protocol, so that MCP clients can
// count hits, reconstruct objects and inspect overlays of detector frames.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// File Information:
//   - frame_info: Dimensions, frame count, format and hit count
//
// Counting:
//   - frame_count_pixels: Every hit, ungrouped
//   - frame_count_clusters: 8-connected clusters as seeds, centers or members
//
// Reconstruction:
//   - frame_reconstruct: One object (center and shape) per cluster
//   - frame_overlay: Frame rendered with a colored box around each object
//   - frame_crop: Reconstruction and overlay of a region of the frame
//
// Measurement:
//   - frame_measure: Distance and adjacency of two cells
//
// Synthetic Frames:
//   - frame_generate: Seeded random frame plus its reconstruction
//
// Every tool that reads a file takes a path to an EVI file or an image and an
// optional 0-based frame index.
//
// # Frame Caching
//
// Frames are cached by path and reused across tool calls for the lifetime of
// the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// Failures are also logged through the server's zap logger, which must not
// write to stdout.
//
// # Usage
//
//	srv := server.New(server.Options{Logger: logger})
//	if err := srv.Run(); err != nil {
//	    logger.Fatal("server error", zap.Error(err))
//	}
package server
