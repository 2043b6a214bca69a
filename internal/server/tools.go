package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// regionNames are the named regions accepted by frame_crop.
var regionNames = []string{"top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to an EVI file or a PNG/JPEG/GIF image",
	}
}

func frameProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "0-based frame index within the file. Images have a single frame. Default 0",
		"default":     0,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// File Information
		{
			Name:        "frame_info",
			Description: "Load a detector frame file and return its dimensions, frame count, format and the number of hit pixels in the first frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Counting
		{
			Name:        "frame_count_pixels",
			Description: "List every nonzero pixel of a frame as (row, col) in row-major order, without grouping neighbours.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"frame": frameProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "frame_count_clusters",
			Description: "Group the hits of a frame into 8-connected clusters. Mode 'first' reports each cluster's seed pixel, 'center' its most central pixel and 'full' every pixel.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"frame": frameProperty(),
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"first", "center", "full"},
						"description": "Reporting granularity. Default 'center'",
						"default":     "center",
					},
				},
				"required": []string{"path"},
			},
		},

		// Reconstruction
		{
			Name:        "frame_reconstruct",
			Description: "Reconstruct the objects of a frame: one object per cluster with its center and shape (dot, blob or line), plus counts per shape.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"frame": frameProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "frame_overlay",
			Description: "Render a frame with a colored square around every reconstructed object and return it as base64-encoded PNG. Dots are red, blobs green and lines blue unless configured otherwise.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"frame": frameProperty(),
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "Integer upscaling factor. Default from server configuration (4)",
						"minimum":     1,
						"maximum":     maxOverlayScale,
					},
					"box_half_width": map[string]interface{}{
						"type":        "integer",
						"description": "Half width of each marker square in frame pixels. 0 selects max(rows, cols)/50",
					},
					"legend": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw a color swatch and object count per shape in the top-left corner",
						"default":     false,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to also write the PNG to",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "frame_crop",
			Description: "Cut a region out of a frame, reconstruct the objects inside it and return the region's overlay. Give either a named region or row1/col1/row2/col2.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"frame": frameProperty(),
					"region": map[string]interface{}{
						"type":        "string",
						"enum":        regionNames,
						"description": "Named region to extract",
					},
					"row1":  map[string]interface{}{"type": "integer", "description": "Top row (inclusive)"},
					"col1":  map[string]interface{}{"type": "integer", "description": "Left column (inclusive)"},
					"row2":  map[string]interface{}{"type": "integer", "description": "Bottom row (exclusive)"},
					"col2":  map[string]interface{}{"type": "integer", "description": "Right column (exclusive)"},
					"scale": map[string]interface{}{"type": "integer", "description": "Integer upscaling factor of the overlay", "minimum": 1, "maximum": maxOverlayScale},
				},
				"required": []string{"path"},
			},
		},

		// Measurement
		{
			Name:        "frame_measure",
			Description: "Measure the distance and angle between two cells of a frame and report whether they are 8-connected neighbours.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"frame": frameProperty(),
					"row1":  map[string]interface{}{"type": "integer", "description": "First cell row"},
					"col1":  map[string]interface{}{"type": "integer", "description": "First cell column"},
					"row2":  map[string]interface{}{"type": "integer", "description": "Second cell row"},
					"col2":  map[string]interface{}{"type": "integer", "description": "Second cell column"},
				},
				"required": []string{"path", "row1", "col1", "row2", "col2"},
			},
		},

		// Synthetic Frames
		{
			Name:        "frame_generate",
			Description: "Generate a synthetic frame with randomly placed blobs and lines, returning it as base64-encoded PNG together with its reconstruction.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Frame width in pixels. Default 256",
						"default":     256,
						"maximum":     maxGenerateSize,
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Frame height in pixels. Default 256",
						"default":     256,
						"maximum":     maxGenerateSize,
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Random seed. The same seed always yields the same frame. Default 1",
						"default":     1,
					},
					"objects": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"shape": map[string]interface{}{"type": "string", "enum": []string{"blob", "line"}},
								"size":  map[string]interface{}{"type": "integer", "description": "Pixels in a blob, length of a line"},
								"count": map[string]interface{}{"type": "integer", "description": "Number of objects"},
							},
							"required": []string{"shape", "size", "count"},
						},
						"description": "Objects to draw",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to also write the PNG to",
					},
				},
				"required": []string{"objects"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
