package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"os"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/hit-reco-mcp/internal/datagen"
	"github.com/ironsheep/hit-reco-mcp/internal/detection"
	"github.com/ironsheep/hit-reco-mcp/internal/imaging"
)

// Defaults and limits for tool arguments.
const (
	defaultGenerateSize = 256
	defaultGenerateSeed = 1
	maxGenerateSize     = 4096
	maxOverlayScale     = 64
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "frame_info", "frame_reconstruct").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000. A
// panicking tool is reported the same way and leaves the server running.
func (s *Server) handleToolsCall(req *MCPRequest) (resp *MCPResponse) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool panicked", zap.String("tool", params.Name), zap.Any("panic", r))
			resp = s.errorResponse(req.ID, -32000, "Tool execution failed", fmt.Sprintf("internal error: %v", r))
		}
	}()

	result, err := s.execute(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads frames from cache as needed
//  4. Calls the appropriate detection/imaging/datagen function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// File Information
	case "frame_info":
		return s.handleFrameInfo(args)

	// Counting
	case "frame_count_pixels":
		return s.handleFrameCountPixels(args)
	case "frame_count_clusters":
		return s.handleFrameCountClusters(args)

	// Reconstruction
	case "frame_reconstruct":
		return s.handleFrameReconstruct(args)
	case "frame_overlay":
		return s.handleFrameOverlay(args)
	case "frame_crop":
		return s.handleFrameCrop(args)

	// Measurement
	case "frame_measure":
		return s.handleFrameMeasure(args)

	// Synthetic Frames
	case "frame_generate":
		return s.handleFrameGenerate(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. A call without arguments decodes as
// an empty object.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === File Information Handlers ===

type frameInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleFrameInfo(args json.RawMessage) (interface{}, error) {
	var a frameInfoArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.LoadFrameInfo(s.cache, a.Path)
}

// === Counting Handlers ===

type frameArgs struct {
	Path  string `json:"path"`
	Frame int    `json:"frame"`
}

func (s *Server) loadFrame(a frameArgs) (*mat.Dense, error) {
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return s.cache.Frame(a.Path, a.Frame)
}

// PixelsResult is returned by frame_count_pixels.
type PixelsResult struct {
	Count  int               `json:"count"`
	Pixels []detection.Point `json:"pixels"`
}

func (s *Server) handleFrameCountPixels(args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	frame, err := s.loadFrame(a)
	if err != nil {
		return nil, err
	}
	pixels, err := detection.CountPixels(frame)
	if err != nil {
		return nil, err
	}
	if pixels == nil {
		pixels = []detection.Point{}
	}
	return &PixelsResult{Count: len(pixels), Pixels: pixels}, nil
}

type frameCountClustersArgs struct {
	frameArgs
	Mode string `json:"mode"`
}

func (s *Server) handleFrameCountClusters(args json.RawMessage) (interface{}, error) {
	var a frameCountClustersArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Mode == "" {
		a.Mode = string(detection.ModeCenter)
	}
	mode, err := detection.ParseMode(a.Mode)
	if err != nil {
		return nil, err
	}
	frame, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, err
	}
	return detection.CountClusters(frame, mode)
}

// === Reconstruction Handlers ===

func (s *Server) handleFrameReconstruct(args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	frame, err := s.loadFrame(a)
	if err != nil {
		return nil, err
	}
	return detection.Reconstruct(frame)
}

type frameOverlayArgs struct {
	frameArgs
	Scale        *int   `json:"scale"`
	BoxHalfWidth *int   `json:"box_half_width"`
	Legend       bool   `json:"legend"`
	OutputPath   string `json:"output_path"`
}

// OverlayToolResult is returned by frame_overlay.
type OverlayToolResult struct {
	*imaging.OverlayResult
	Objects    []detection.Object `json:"objects"`
	OutputPath string             `json:"output_path,omitempty"`
}

func (s *Server) handleFrameOverlay(args json.RawMessage) (interface{}, error) {
	var a frameOverlayArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	frame, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, err
	}
	reco, err := detection.Reconstruct(frame)
	if err != nil {
		return nil, err
	}

	opts, err := s.overlayOptions(a.Scale, a.BoxHalfWidth)
	if err != nil {
		return nil, err
	}
	opts.Legend = a.Legend
	rendered, err := imaging.RenderOverlay(frame, reco.Objects, opts)
	if err != nil {
		return nil, err
	}

	if a.OutputPath != "" {
		if err := writeBase64(a.OutputPath, rendered.ImageBase64); err != nil {
			return nil, err
		}
	}

	return &OverlayToolResult{
		OverlayResult: rendered,
		Objects:       reco.Objects,
		OutputPath:    a.OutputPath,
	}, nil
}

type frameCropArgs struct {
	frameArgs
	Region string `json:"region"`
	Row1   int    `json:"row1"`
	Col1   int    `json:"col1"`
	Row2   int    `json:"row2"`
	Col2   int    `json:"col2"`
	Scale  *int   `json:"scale"`
}

// CropToolResult is returned by frame_crop. Object coordinates are relative to
// the region's top-left cell.
type CropToolResult struct {
	Region         imaging.Region               `json:"region"`
	Reconstruction *detection.ReconstructResult `json:"reconstruction"`
	Overlay        *imaging.OverlayResult       `json:"overlay"`
}

func (s *Server) handleFrameCrop(args json.RawMessage) (interface{}, error) {
	var a frameCropArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.overlayOptions(a.Scale, nil)
	if err != nil {
		return nil, err
	}
	frame, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, err
	}

	region := imaging.Region{Row1: a.Row1, Col1: a.Col1, Row2: a.Row2, Col2: a.Col2}
	if a.Region != "" {
		rows, cols := frame.Dims()
		if region, err = imaging.NamedRegion(rows, cols, a.Region); err != nil {
			return nil, err
		}
	}

	crop, err := imaging.CropFrame(frame, region)
	if err != nil {
		return nil, err
	}
	reco, err := detection.Reconstruct(crop)
	if err != nil {
		return nil, err
	}
	rendered, err := imaging.RenderOverlay(crop, reco.Objects, opts)
	if err != nil {
		return nil, err
	}

	return &CropToolResult{
		Region:         region,
		Reconstruction: reco,
		Overlay:        rendered,
	}, nil
}

// === Measurement Handlers ===

type frameMeasureArgs struct {
	frameArgs
	Row1 int `json:"row1"`
	Col1 int `json:"col1"`
	Row2 int `json:"row2"`
	Col2 int `json:"col2"`
}

func (s *Server) handleFrameMeasure(args json.RawMessage) (interface{}, error) {
	var a frameMeasureArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	frame, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, err
	}
	return imaging.MeasureDistance(frame,
		detection.Point{Row: a.Row1, Col: a.Col1},
		detection.Point{Row: a.Row2, Col: a.Col2})
}

// === Synthetic Frame Handlers ===

type frameGenerateArgs struct {
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Seed       *int64               `json:"seed"`
	Objects    []datagen.ObjectSpec `json:"objects"`
	OutputPath string               `json:"output_path"`
}

// GenerateToolResult is returned by frame_generate.
type GenerateToolResult struct {
	Width          int                          `json:"width"`
	Height         int                          `json:"height"`
	Seed           int64                        `json:"seed"`
	ImageBase64    string                       `json:"image_base64"`
	MimeType       string                       `json:"mime_type"`
	OutputPath     string                       `json:"output_path,omitempty"`
	Reconstruction *detection.ReconstructResult `json:"reconstruction"`
}

func (s *Server) handleFrameGenerate(args json.RawMessage) (interface{}, error) {
	var a frameGenerateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Width == 0 {
		a.Width = defaultGenerateSize
	}
	if a.Height == 0 {
		a.Height = defaultGenerateSize
	}
	if a.Width > maxGenerateSize || a.Height > maxGenerateSize {
		return nil, fmt.Errorf("frame size %dx%d exceeds %dx%d", a.Width, a.Height, maxGenerateSize, maxGenerateSize)
	}
	seed := int64(defaultGenerateSeed)
	if a.Seed != nil {
		seed = *a.Seed
	}

	frame, err := datagen.New(seed).Image(a.Height, a.Width, a.Objects)
	if err != nil {
		return nil, err
	}
	reco, err := detection.Reconstruct(frame)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.FrameToImage(frame)); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	if a.OutputPath != "" {
		if err := os.WriteFile(a.OutputPath, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write frame: %w", err)
		}
	}

	s.logger.Debug("generated frame",
		zap.Int("width", a.Width), zap.Int("height", a.Height),
		zap.Int64("seed", seed), zap.Int("objects", reco.Count))

	return &GenerateToolResult{
		Width:          a.Width,
		Height:         a.Height,
		Seed:           seed,
		ImageBase64:    base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:       "image/png",
		OutputPath:     a.OutputPath,
		Reconstruction: reco,
	}, nil
}

// overlayOptions merges per-call overrides into the server's overlay
// defaults.
func (s *Server) overlayOptions(scale, boxHalfWidth *int) (imaging.OverlayOptions, error) {
	opts := s.overlay
	if scale != nil {
		if *scale < 1 || *scale > maxOverlayScale {
			return opts, fmt.Errorf("scale %d out of range 1..%d", *scale, maxOverlayScale)
		}
		opts.Scale = *scale
	}
	if boxHalfWidth != nil {
		if *boxHalfWidth < 0 {
			return opts, fmt.Errorf("box_half_width %d must not be negative", *boxHalfWidth)
		}
		opts.BoxHalfWidth = *boxHalfWidth
	}
	return opts, nil
}

func writeBase64(path, encoded string) error {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}
