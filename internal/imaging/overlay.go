package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/hit-reco-mcp/internal/detection"
)

// DefaultColors is the marker palette used when OverlayOptions.Colors has no
// entry for a shape.
var DefaultColors = map[detection.ShapeType]string{
	detection.Dot:  "#FF0000",
	detection.Blob: "#00FF00",
	detection.Line: "#0000FF",
}

// MaxOverlayPixels bounds the size of a rendered overlay after scaling.
const MaxOverlayPixels = 1 << 26

// fallbackColor marks objects whose shape has no palette entry.
const fallbackColor = "#FF0000"

// OverlayOptions controls RenderOverlay.
type OverlayOptions struct {
	// Scale is the integer upscaling factor applied to the frame before
	// markers are drawn. Values below 1 are treated as 1.
	Scale int

	// BoxHalfWidth is the half width of each marker square in frame pixels.
	// 0 selects max(rows, cols)/50, at least 1.
	BoxHalfWidth int

	// Colors maps shape labels to hex colors ("#RRGGBB").
	Colors map[detection.ShapeType]string

	// Legend draws a color swatch and object count per shape in the
	// top-left corner.
	Legend bool
}

// LegendEntry describes one shape in an overlay.
type LegendEntry struct {
	Type  detection.ShapeType `json:"type"`
	Label string              `json:"label"` // e.g. "Blob (3)"
	Color string              `json:"color"` // Hex "#RRGGBB"
	Count int                 `json:"count"`
}

// OverlayResult contains a rendered overlay encoded as base64 PNG.
type OverlayResult struct {
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	ImageBase64  string        `json:"image_base64"`
	MimeType     string        `json:"mime_type"`
	BoxHalfWidth int           `json:"box_half_width"`
	Legend       []LegendEntry `json:"legend"`
}

// RenderOverlay draws the frame with a hollow colored square centred on each
// object and returns it as base64 PNG.
func RenderOverlay(frame mat.Matrix, objects []detection.Object, opts OverlayOptions) (*OverlayResult, error) {
	img, legend, halfWidth, err := overlay(frame, objects, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	return &OverlayResult{
		Width:        img.Bounds().Dx(),
		Height:       img.Bounds().Dy(),
		ImageBase64:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:     "image/png",
		BoxHalfWidth: halfWidth,
		Legend:       legend,
	}, nil
}

// WriteOverlay renders the same image as RenderOverlay and writes it to w as
// PNG.
func WriteOverlay(w io.Writer, frame mat.Matrix, objects []detection.Object, opts OverlayOptions) ([]LegendEntry, error) {
	img, legend, _, err := overlay(frame, objects, opts)
	if err != nil {
		return nil, err
	}
	if err := png.Encode(w, img); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}
	return legend, nil
}

// BuildLegend counts objects per shape and pairs each shape with its color.
// Shapes are listed in detection.ShapeTypes order, followed by any other
// labels in order of first appearance.
func BuildLegend(objects []detection.Object, colors map[detection.ShapeType]string) ([]LegendEntry, error) {
	counts := detection.CountByType(objects)
	order := append([]detection.ShapeType(nil), detection.ShapeTypes...)
	for _, o := range objects {
		if !containsShape(order, o.Type) {
			order = append(order, o.Type)
		}
	}

	legend := make([]LegendEntry, 0, len(order))
	for _, t := range order {
		c, err := shapeColor(t, colors)
		if err != nil {
			return nil, err
		}
		legend = append(legend, LegendEntry{
			Type:  t,
			Label: fmt.Sprintf("%s (%d)", titleCase(string(t)), counts[t]),
			Color: c.Hex(),
			Count: counts[t],
		})
	}
	return legend, nil
}

// DefaultBoxHalfWidth returns the automatic marker half width for a frame of
// the given size.
func DefaultBoxHalfWidth(rows, cols int) int {
	hw := max(rows, cols) / 50
	if hw < 1 {
		hw = 1
	}
	return hw
}

func overlay(frame mat.Matrix, objects []detection.Object, opts OverlayOptions) (*image.RGBA, []LegendEntry, int, error) {
	if frame == nil {
		return nil, nil, 0, detection.ErrNilImage
	}
	rows, cols := frame.Dims()

	scale := opts.Scale
	if scale < 1 {
		scale = 1
	}
	if scale > MaxOverlayPixels || int64(rows)*int64(cols) > MaxOverlayPixels/int64(scale)/int64(scale) {
		return nil, nil, 0, fmt.Errorf("overlay of %dx%d at scale %d exceeds %d pixels", cols, rows, scale, MaxOverlayPixels)
	}
	halfWidth := opts.BoxHalfWidth
	if halfWidth <= 0 {
		halfWidth = DefaultBoxHalfWidth(rows, cols)
	}
	// Any wider box lies entirely outside the frame.
	halfWidth = min(halfWidth, max(rows, cols))

	legend, err := BuildLegend(objects, opts.Colors)
	if err != nil {
		return nil, nil, 0, err
	}

	base := image.Image(FrameToImage(frame))
	if scale > 1 {
		base = imaging.Resize(base, cols*scale, rows*scale, imaging.NearestNeighbor)
	}
	result := image.NewRGBA(base.Bounds())
	draw.Draw(result, result.Bounds(), base, base.Bounds().Min, draw.Src)

	for _, o := range objects {
		c, err := shapeColor(o.Type, opts.Colors)
		if err != nil {
			return nil, nil, 0, err
		}
		// Marker centre in output pixels: the middle of the scaled cell.
		cx := o.Center.Col*scale + scale/2
		cy := o.Center.Row*scale + scale/2
		drawBox(result, cx, cy, halfWidth*scale, toRGBA(c))
	}

	if opts.Legend {
		drawLegend(result, legend)
	}

	return result, legend, halfWidth, nil
}

// shapeColor resolves the marker color of a shape from the caller's palette,
// then DefaultColors, then fallbackColor.
func shapeColor(t detection.ShapeType, colors map[detection.ShapeType]string) (colorful.Color, error) {
	hex, ok := colors[t]
	if !ok {
		hex, ok = DefaultColors[t]
	}
	if !ok {
		hex = fallbackColor
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid color %q for %s: %w", hex, t, err)
	}
	return c, nil
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// drawBox draws the outline of a square of half width hw centred on (cx, cy),
// clipped to the image.
func drawBox(img *image.RGBA, cx, cy, hw int, c color.RGBA) {
	b := img.Bounds()
	x1, y1, x2, y2 := cx-hw, cy-hw, cx+hw, cy+hw
	for x := max(x1, b.Min.X); x <= min(x2, b.Max.X-1); x++ {
		setClipped(img, x, y1, c)
		setClipped(img, x, y2, c)
	}
	for y := max(y1, b.Min.Y); y <= min(y2, b.Max.Y-1); y++ {
		setClipped(img, x1, y, c)
		setClipped(img, x2, y, c)
	}
}

func setClipped(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// drawLegend stacks one row per shape with at least one object: a color
// swatch followed by the object count.
func drawLegend(img *image.RGBA, legend []LegendEntry) {
	fg := color.RGBA{255, 255, 255, 255}
	bg := color.RGBA{0, 0, 0, 180}

	y := 2
	for _, e := range legend {
		if e.Count == 0 {
			continue
		}
		c, err := colorful.Hex(e.Color)
		if err != nil {
			continue
		}
		swatch := toRGBA(c)
		for dy := 0; dy < 5; dy++ {
			for dx := 0; dx < 5; dx++ {
				setClipped(img, 2+dx, y+dy, swatch)
			}
		}
		drawLabel(img, 9, y, strconv.Itoa(e.Count), fg, bg)
		y += 8
	}
}

// drawLabel draws digits with a 3x5 pixel font on a background box.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setClipped(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setClipped(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}

func containsShape(list []detection.ShapeType, t detection.ShapeType) bool {
	for _, s := range list {
		if s == t {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
