// Package imaging moves detector frames between files, images and the
// clustering core.
//
// Frames are gonum matrices indexed (row, col) with (0,0) at the top-left
// corner. When a frame is rendered as an image, row becomes Y and col becomes
// X, so a frame of R rows and C columns is a C×R image.
//
// # Loading
//
// FrameCache reads XCounter EVI files (every frame) and ordinary PNG, JPEG or
// GIF images (one frame). Images are binarised with FrameFromImage: pixels
// whose luminance reaches the cache threshold become hits (value 1). The
// cache is safe for concurrent use; call Evict() or Clear() to release frames
// in long-running processes.
//
// # Overlays
//
// RenderOverlay and WriteOverlay draw a frame in white on black, upscaled by
// an integer factor with nearest-neighbour sampling, and outline every
// reconstructed object with a hollow square in its shape's color. Colors are
// hex strings ("#RRGGBB") and are parsed with go-colorful.
//
// # Error Handling
//
// Functions return errors for:
//   - File I/O errors during loading
//   - Files that are neither valid EVI files nor decodable images
//   - Frame indexes outside the file
//   - Invalid marker colors
//   - Encoding errors during image output
package imaging
