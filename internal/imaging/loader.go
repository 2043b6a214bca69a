package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/hit-reco-mcp/internal/detection"
	"github.com/ironsheep/hit-reco-mcp/internal/frames"
)

// Frame file formats reported by LoadFrameInfo.
const (
	FormatEVI     = "evi"
	FormatPNG     = "png"
	FormatJPEG    = "jpeg"
	FormatGIF     = "gif"
	FormatUnknown = "unknown"
)

// FrameCache provides thread-safe caching of decoded detector frames to avoid
// redundant disk reads.
//
// Frames are keyed by the exact path string given to Load. EVI files yield all
// of their frames; ordinary images yield a single frame, binarised with the
// cache's threshold level (see FrameFromImage).
//
// FrameCache is safe for concurrent use by multiple goroutines. The returned
// matrices are shared between callers and must not be modified.
//
// # Memory Management
//
// Cached frames remain in memory until explicitly removed via Evict() or
// Clear(). A 1024x1024 frame takes 8 MiB as float64 values, so long-running
// processes that see many files should evict what they no longer need.
//
// # Example Usage
//
//	cache := imaging.NewFrameCache(1)
//	frame, err := cache.Frame("/data/run42.evi", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := detection.Reconstruct(frame)
type FrameCache struct {
	mu        sync.RWMutex
	threshold uint8
	entries   map[string][]*mat.Dense
}

// NewFrameCache creates an empty cache. threshold is the 8-bit luminance at or
// above which a pixel of an ordinary image counts as a hit; 0 is raised to 1.
func NewFrameCache(threshold uint8) *FrameCache {
	if threshold == 0 {
		threshold = 1
	}
	return &FrameCache{
		threshold: threshold,
		entries:   make(map[string][]*mat.Dense),
	}
}

// Threshold returns the binarisation level used for ordinary images.
func (c *FrameCache) Threshold() uint8 {
	return c.threshold
}

// Load retrieves the frames of a file from the cache or decodes them from disk.
//
// Files with an ".evi" extension (any case) are read as XCounter EVI files.
// Everything else must be a PNG, JPEG or GIF image.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a valid EVI file or image
func (c *FrameCache) Load(path string) ([]*mat.Dense, error) {
	c.mu.RLock()
	if fs, ok := c.entries[path]; ok {
		c.mu.RUnlock()
		return fs, nil
	}
	c.mu.RUnlock()

	var fs []*mat.Dense
	if detectFormat(path) == FormatEVI {
		evi, err := frames.Open(path)
		if err != nil {
			return nil, err
		}
		fs = evi.AllFrames()
	} else {
		img, err := decodeImage(path)
		if err != nil {
			return nil, err
		}
		fs = []*mat.Dense{FrameFromImage(img, c.threshold)}
	}

	c.mu.Lock()
	c.entries[path] = fs
	c.mu.Unlock()

	return fs, nil
}

// Frame returns frame index of the file at path.
func (c *FrameCache) Frame(path string, index int) (*mat.Dense, error) {
	fs, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(fs) {
		return nil, fmt.Errorf("frame %d out of range: %s has %d frame(s)", index, filepath.Base(path), len(fs))
	}
	return fs[index], nil
}

// Clear removes all frames from the cache.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]*mat.Dense)
	c.mu.Unlock()
}

// Evict removes the frames of a single path. Unknown paths are ignored.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// FrameInfo contains metadata about a frame file.
type FrameInfo struct {
	// Width is the frame width in pixels (columns).
	Width int `json:"width"`

	// Height is the frame height in pixels (rows).
	Height int `json:"height"`

	// Frames is the number of frames in the file. Ordinary images have one.
	Frames int `json:"frames"`

	// Format is "evi", "png", "jpeg", "gif" or "unknown", from the file
	// extension.
	Format string `json:"format"`

	// Hits is the number of nonzero pixels in the first frame.
	Hits int `json:"hits"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadFrameInfo loads a frame file into the cache and describes it.
func LoadFrameInfo(cache *FrameCache, path string) (*FrameInfo, error) {
	fs, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	info := &FrameInfo{
		Frames:        len(fs),
		Format:        detectFormat(path),
		FileSizeBytes: stat.Size(),
	}
	if len(fs) > 0 {
		info.Height, info.Width = fs[0].Dims()
		info.Hits = len(detection.ExtractPixels(fs[0]))
	}
	return info, nil
}

func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".evi":
		return FormatEVI
	case ".png":
		return FormatPNG
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".gif":
		return FormatGIF
	default:
		return FormatUnknown
	}
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
