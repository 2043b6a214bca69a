package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/hit-reco-mcp/internal/detection"
	"github.com/ironsheep/hit-reco-mcp/internal/frames"
)

// sampleHits is a 20x20 frame with one dot, one 2x2 blob and a six pixel
// horizontal line, given as image (x, y) positions.
var sampleHits = []image.Point{
	{X: 3, Y: 2},
	{X: 10, Y: 10}, {X: 11, Y: 10}, {X: 10, Y: 11}, {X: 11, Y: 11},
	{X: 2, Y: 17}, {X: 3, Y: 17}, {X: 4, Y: 17}, {X: 5, Y: 17}, {X: 6, Y: 17}, {X: 7, Y: 17},
}

// createFrameImage writes a black PNG with white hits and returns its path.
func createFrameImage(t *testing.T, width, height int, hits []image.Point) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.Black)
		}
	}
	for _, p := range hits {
		img.Set(p.X, p.Y, color.White)
	}

	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the text content into out.
// It returns the JSON-RPC error, if any.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPError {
	t.Helper()

	paramsJSON, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}

	text, _ := content[0]["text"].(string)
	if out != nil {
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("failed to decode tool result %q: %v", text, err)
		}
	}
	return nil
}

func TestHandleToolsCall_FrameInfo(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 20, 20, sampleHits)

	var info struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Frames int    `json:"frames"`
		Format string `json:"format"`
		Hits   int    `json:"hits"`
	}
	if e := callTool(t, s, "frame_info", map[string]interface{}{"path": path}, &info); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}

	if info.Width != 20 || info.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 20x20", info.Width, info.Height)
	}
	if info.Frames != 1 {
		t.Errorf("Frames: got %d, want 1", info.Frames)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.Hits != len(sampleHits) {
		t.Errorf("Hits: got %d, want %d", info.Hits, len(sampleHits))
	}
}

func TestHandleToolsCall_CountPixels(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 20, 20, sampleHits)

	var result PixelsResult
	if e := callTool(t, s, "frame_count_pixels", map[string]interface{}{"path": path}, &result); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}

	if result.Count != len(sampleHits) || len(result.Pixels) != len(sampleHits) {
		t.Fatalf("Count: got %d (%d pixels), want %d", result.Count, len(result.Pixels), len(sampleHits))
	}
	if result.Pixels[0] != (detection.Point{Row: 2, Col: 3}) {
		t.Errorf("first pixel: got %v, want (2,3)", result.Pixels[0])
	}
}

func TestHandleToolsCall_CountPixels_EmptyFrame(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 8, 8, nil)

	var raw map[string]interface{}
	if e := callTool(t, s, "frame_count_pixels", map[string]interface{}{"path": path}, &raw); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	pixels, ok := raw["pixels"].([]interface{})
	if !ok || len(pixels) != 0 {
		t.Errorf("pixels: got %v, want empty list", raw["pixels"])
	}
}

func TestHandleToolsCall_CountClusters(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 20, 20, sampleHits)

	tests := []struct {
		mode   string
		points []detection.Point
		sizes  []int
	}{
		{"", []detection.Point{{Row: 2, Col: 3}, {Row: 10, Col: 10}, {Row: 17, Col: 4}}, nil},
		{"center", []detection.Point{{Row: 2, Col: 3}, {Row: 10, Col: 10}, {Row: 17, Col: 4}}, nil},
		{"first", []detection.Point{{Row: 2, Col: 3}, {Row: 10, Col: 10}, {Row: 17, Col: 2}}, nil},
		{"full", nil, []int{1, 4, 6}},
	}

	for _, tt := range tests {
		t.Run("mode="+tt.mode, func(t *testing.T) {
			args := map[string]interface{}{"path": path}
			if tt.mode != "" {
				args["mode"] = tt.mode
			}

			var result detection.ClustersResult
			if e := callTool(t, s, "frame_count_clusters", args, &result); e != nil {
				t.Fatalf("Unexpected error: %+v", e)
			}

			if result.Count != 3 {
				t.Errorf("Count: got %d, want 3", result.Count)
			}
			if tt.points != nil {
				if len(result.Points) != len(tt.points) {
					t.Fatalf("Points: got %v, want %v", result.Points, tt.points)
				}
				for i := range tt.points {
					if result.Points[i] != tt.points[i] {
						t.Errorf("Points[%d]: got %v, want %v", i, result.Points[i], tt.points[i])
					}
				}
			}
			if tt.sizes != nil {
				if len(result.Clusters) != len(tt.sizes) {
					t.Fatalf("Clusters: got %d, want %d", len(result.Clusters), len(tt.sizes))
				}
				for i, n := range tt.sizes {
					if len(result.Clusters[i]) != n {
						t.Errorf("cluster %d size: got %d, want %d", i, len(result.Clusters[i]), n)
					}
				}
			}
		})
	}
}

func TestHandleToolsCall_CountClusters_InvalidMode(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 20, 20, sampleHits)

	e := callTool(t, s, "frame_count_clusters", map[string]interface{}{"path": path, "mode": "median"}, nil)
	if e == nil {
		t.Fatal("expected error for invalid mode")
	}
	if e.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", e.Code)
	}
	if data, _ := e.Data.(string); !strings.Contains(data, "median") {
		t.Errorf("error data should name the mode: %v", e.Data)
	}
}

func TestHandleToolsCall_Reconstruct(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 20, 20, sampleHits)

	var result detection.ReconstructResult
	if e := callTool(t, s, "frame_reconstruct", map[string]interface{}{"path": path}, &result); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}

	want := []detection.Object{
		{Center: detection.Point{Row: 2, Col: 3}, Type: detection.Dot},
		{Center: detection.Point{Row: 10, Col: 10}, Type: detection.Blob},
		{Center: detection.Point{Row: 17, Col: 4}, Type: detection.Line},
	}
	if len(result.Objects) != len(want) {
		t.Fatalf("Objects: got %v, want %v", result.Objects, want)
	}
	for i := range want {
		if result.Objects[i] != want[i] {
			t.Errorf("Objects[%d]: got %+v, want %+v", i, result.Objects[i], want[i])
		}
	}
	for _, shape := range detection.ShapeTypes {
		if result.Counts[shape] != 1 {
			t.Errorf("Counts[%s]: got %d, want 1", shape, result.Counts[shape])
		}
	}
}

func TestHandleToolsCall_Overlay(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 20, 20, sampleHits)
	outPath := filepath.Join(t.TempDir(), "overlay.png")

	var result struct {
		Width        int                `json:"width"`
		Height       int                `json:"height"`
		ImageBase64  string             `json:"image_base64"`
		BoxHalfWidth int                `json:"box_half_width"`
		Objects      []detection.Object `json:"objects"`
		OutputPath   string             `json:"output_path"`
		Legend       []struct {
			Label string `json:"label"`
		} `json:"legend"`
	}
	args := map[string]interface{}{"path": path, "scale": 3, "box_half_width": 2, "legend": true, "output_path": outPath}
	if e := callTool(t, s, "frame_overlay", args, &result); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}

	if result.Width != 60 || result.Height != 60 {
		t.Errorf("dimensions: got %dx%d, want 60x60", result.Width, result.Height)
	}
	if result.BoxHalfWidth != 2 {
		t.Errorf("BoxHalfWidth: got %d, want 2", result.BoxHalfWidth)
	}
	if len(result.Objects) != 3 {
		t.Errorf("Objects: got %d, want 3", len(result.Objects))
	}
	if len(result.Legend) != 3 || result.Legend[0].Label != "Dot (1)" {
		t.Errorf("unexpected legend: %+v", result.Legend)
	}
	if result.OutputPath != outPath {
		t.Errorf("OutputPath: got %s, want %s", result.OutputPath, outPath)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	written, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("overlay not written: %v", err)
	}
	if !bytes.Equal(data, written) {
		t.Error("written overlay differs from returned image")
	}
}

func TestHandleToolsCall_Overlay_ServerDefaults(t *testing.T) {
	s := New(Options{})
	s.overlay.Scale = 2
	path := createFrameImage(t, 20, 20, sampleHits)

	var result struct {
		Width int `json:"width"`
	}
	if e := callTool(t, s, "frame_overlay", map[string]interface{}{"path": path}, &result); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if result.Width != 40 {
		t.Errorf("Width: got %d, want 40", result.Width)
	}
}

func TestHandleToolsCall_Crop(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 20, 20, sampleHits)

	var result CropToolResult
	if e := callTool(t, s, "frame_crop", map[string]interface{}{"path": path, "region": "bottom-half", "scale": 1}, &result); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}

	if result.Region.Row1 != 10 || result.Region.Row2 != 20 || result.Region.Col2 != 20 {
		t.Errorf("Region: got %+v", result.Region)
	}
	if result.Reconstruction == nil || result.Reconstruction.Count != 2 {
		t.Fatalf("Reconstruction: got %+v, want 2 objects", result.Reconstruction)
	}
	if got := result.Reconstruction.Objects[0].Center; got != (detection.Point{Row: 0, Col: 10}) {
		t.Errorf("blob center relative to region: got %v, want (0,10)", got)
	}
	if result.Overlay == nil || result.Overlay.Width != 20 || result.Overlay.Height != 10 {
		t.Errorf("Overlay: got %+v", result.Overlay)
	}
}

func TestHandleToolsCall_Crop_Coordinates(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 20, 20, sampleHits)

	var result CropToolResult
	args := map[string]interface{}{"path": path, "row1": 0, "col1": 0, "row2": 5, "col2": 5}
	if e := callTool(t, s, "frame_crop", args, &result); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if result.Reconstruction.Count != 1 || result.Reconstruction.Objects[0].Type != detection.Dot {
		t.Errorf("unexpected reconstruction: %+v", result.Reconstruction)
	}

	if e := callTool(t, s, "frame_crop", map[string]interface{}{"path": path}, nil); e == nil {
		t.Error("frame_crop without a region should fail")
	}
	if e := callTool(t, s, "frame_crop", map[string]interface{}{"path": path, "region": "middle"}, nil); e == nil {
		t.Error("frame_crop with an unknown region should fail")
	}
}

func TestHandleToolsCall_Measure(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 20, 20, sampleHits)

	var result struct {
		DistancePixels float64 `json:"distance_pixels"`
		Adjacent       bool    `json:"adjacent"`
	}
	args := map[string]interface{}{"path": path, "row1": 17, "col1": 2, "row2": 17, "col2": 7}
	if e := callTool(t, s, "frame_measure", args, &result); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if result.DistancePixels != 5 {
		t.Errorf("DistancePixels: got %v, want 5", result.DistancePixels)
	}
	if result.Adjacent {
		t.Error("cells five columns apart reported adjacent")
	}
}

func TestHandleToolsCall_Generate(t *testing.T) {
	s := New(Options{})
	outPath := filepath.Join(t.TempDir(), "generated.png")

	args := map[string]interface{}{
		"width":  64,
		"height": 48,
		"seed":   7,
		"objects": []map[string]interface{}{
			{"shape": "blob", "size": 5, "count": 2},
			{"shape": "line", "size": 10, "count": 1},
		},
		"output_path": outPath,
	}

	var first GenerateToolResult
	if e := callTool(t, s, "frame_generate", args, &first); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}

	if first.Width != 64 || first.Height != 48 || first.Seed != 7 {
		t.Errorf("unexpected header: %dx%d seed %d", first.Width, first.Height, first.Seed)
	}
	if first.Reconstruction == nil || first.Reconstruction.Count == 0 {
		t.Fatalf("Reconstruction: got %+v, want objects", first.Reconstruction)
	}

	data, err := base64.StdEncoding.DecodeString(first.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("image size: got %v, want 64x48", img.Bounds())
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("generated frame not written: %v", err)
	}

	// The written frame reconstructs to the same objects.
	var reco detection.ReconstructResult
	if e := callTool(t, s, "frame_reconstruct", map[string]interface{}{"path": outPath}, &reco); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if reco.Count != first.Reconstruction.Count {
		t.Errorf("reconstructing written frame: got %d objects, want %d", reco.Count, first.Reconstruction.Count)
	}

	// Same seed, same frame.
	delete(args, "output_path")
	var second GenerateToolResult
	if e := callTool(t, s, "frame_generate", args, &second); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if second.ImageBase64 != first.ImageBase64 {
		t.Error("frame_generate is not deterministic for a fixed seed")
	}
}

func TestHandleToolsCall_Generate_Errors(t *testing.T) {
	s := New(Options{})

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"unknown shape", map[string]interface{}{"objects": []map[string]interface{}{{"shape": "ring", "size": 3, "count": 1}}}},
		{"negative width", map[string]interface{}{"width": -4, "objects": []map[string]interface{}{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if e := callTool(t, s, "frame_generate", tt.args, nil); e == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 20, 20, sampleHits)
	hugeEVI := createOversizedEVI(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"non-existent file", "frame_info", map[string]interface{}{"path": "/nonexistent/frame.png"}},
		{"missing path", "frame_reconstruct", map[string]interface{}{}},
		{"frame out of range", "frame_count_pixels", map[string]interface{}{"path": path, "frame": 1}},
		{"negative frame", "frame_reconstruct", map[string]interface{}{"path": path, "frame": -1}},
		{"measure outside frame", "frame_measure", map[string]interface{}{"path": path, "row1": 0, "col1": 0, "row2": 20, "col2": 0}},
		{"unknown tool", "nonexistent_tool", map[string]interface{}{}},
		{"oversized EVI geometry", "frame_info", map[string]interface{}{"path": hugeEVI}},
		{"oversized EVI reconstruct", "frame_reconstruct", map[string]interface{}{"path": hugeEVI}},
		{"overlay scale too large", "frame_overlay", map[string]interface{}{"path": path, "scale": 1 << 20}},
		{"overlay scale zero", "frame_overlay", map[string]interface{}{"path": path, "scale": 0}},
		{"negative box half width", "frame_overlay", map[string]interface{}{"path": path, "box_half_width": -1}},
		{"crop scale too large", "frame_crop", map[string]interface{}{"path": path, "region": "center", "scale": 1000}},
		{"generate too wide", "frame_generate", map[string]interface{}{"width": 100000, "objects": []map[string]interface{}{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := callTool(t, s, tt.tool, tt.args, nil)
			if e == nil {
				t.Fatal("expected error")
			}
			if e.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", e.Code)
			}
			if e.Message != "Tool execution failed" {
				t.Errorf("Message: got %s", e.Message)
			}
		})
	}
}

// createOversizedEVI writes an EVI header that claims a 3e9 x 3e9 frame.
func createOversizedEVI(t *testing.T) string {
	t.Helper()

	lines := []string{
		frames.KeyImageType + " 16-bit Unsigned",
		frames.KeyWidth + " 3000000000",
		frames.KeyHeight + " 3000000000",
		frames.KeyFrameCount + " 1",
		frames.KeyFrameGap + " 0",
		frames.KeyOffset + " 4096",
	}
	for len(lines) < frames.HeaderLines {
		lines = append(lines, fmt.Sprintf("Filler_%02d 0", len(lines)))
	}

	path := filepath.Join(t.TempDir(), "huge.evi")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("failed to write EVI: %v", err)
	}
	return path
}

func TestHandleToolsCall_RecoversFromPanic(t *testing.T) {
	s := New(Options{})
	s.execute = func(name string, args json.RawMessage) (interface{}, error) {
		panic("makeslice: len out of range")
	}

	e := callTool(t, s, "frame_info", map[string]interface{}{"path": "x.evi"}, nil)
	if e == nil {
		t.Fatal("expected error")
	}
	if e.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", e.Code)
	}
	if !strings.Contains(fmt.Sprint(e.Data), "makeslice") {
		t.Errorf("Data: got %v", e.Data)
	}

	// The server keeps answering after a panicking tool.
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 2, Method: "ping"})
	if resp == nil || resp.Error != nil {
		t.Errorf("ping after panic: %+v", resp)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(Options{})

	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{invalid`),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New(Options{})
	path := createFrameImage(t, 20, 20, sampleHits)

	// Test each tool to ensure executeTool correctly dispatches
	toolTests := []struct {
		name string
		args map[string]interface{}
	}{
		{"frame_info", map[string]interface{}{"path": path}},
		{"frame_count_pixels", map[string]interface{}{"path": path}},
		{"frame_count_clusters", map[string]interface{}{"path": path}},
		{"frame_reconstruct", map[string]interface{}{"path": path}},
		{"frame_overlay", map[string]interface{}{"path": path}},
		{"frame_crop", map[string]interface{}{"path": path, "region": "center"}},
		{"frame_measure", map[string]interface{}{"path": path, "row1": 0, "col1": 0, "row2": 5, "col2": 5}},
		{"frame_generate", map[string]interface{}{"width": 16, "height": 16, "objects": []map[string]interface{}{{"shape": "blob", "size": 3, "count": 1}}}},
	}

	if len(toolTests) != len(GetToolDefinitions()) {
		t.Fatalf("test covers %d tools, %d defined", len(toolTests), len(GetToolDefinitions()))
	}

	for _, tt := range toolTests {
		t.Run(tt.name, func(t *testing.T) {
			argsJSON, _ := json.Marshal(tt.args)
			result, err := s.executeTool(tt.name, argsJSON)
			if err != nil {
				t.Fatalf("executeTool(%s) failed: %v", tt.name, err)
			}
			if result == nil {
				t.Errorf("executeTool(%s) returned nil result", tt.name)
			}
		})
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New(Options{})

	_, err := s.executeTool("frame_info", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
