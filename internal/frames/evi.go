// Package frames reads detector frame files into numeric matrices.
//
// The supported format is the XCounter EVI file: a fixed block of text
// header lines followed by one or more raw frames of unsigned 16- or 32-bit
// samples, each frame preceded by a fixed-size gap.
package frames

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// HeaderLines is the number of text lines at the start of an EVI file.
const HeaderLines = 76

// MaxFrameBytes bounds the raw size of a single frame. Headers describing a
// larger frame are rejected before any pixel buffer is allocated.
const MaxFrameBytes = math.MaxInt32

// Header keys read by Decode.
const (
	KeyImageType       = "Image_Type"
	KeyWidth           = "Width"
	KeyHeight          = "Height"
	KeyFrameCount      = "Scan_Frame_Count"
	KeyFrameGap        = "Gap_between_iamges_in_bytes" // sic, as written by the detector software
	KeyOffset          = "Offset_To_First_Image"
	KeyEndianness      = "Endianness"
	KeyTC              = "HV_TC"
	KeyTds             = "Tds"
	KeyTdsTruncate     = "Tds_Truncate_to_015"
	KeyTdsTruncateTE   = "Tds_Truncate_to_015_TE"
	KeyTdsTruncateHE   = "Tds_Truncate_to_015_HE"
	KeyEnergyType      = "Energy_type"
	KeyBoards          = "Number_of_boards"
	KeyBoardRows       = "Number_of_board_rows"
	littleEndianMarker = "Little-endian byte order"
)

// EVIFile is a decoded EVI file.
type EVIFile struct {
	headers map[string]string
	frames  []*mat.Dense

	Width  int // Pixels per row
	Height int // Rows per frame

	Is32Bit       bool // Samples are stored as 32-bit words
	LittleEndian  bool
	Tds           bool
	TdsTruncate   bool
	TotalEnergy   bool
	TC            int
	Boards        int
	BoardRows     int
	HeaderBytes   int // Offset of the first frame's pixels from the file start
	FrameGapBytes int // Bytes between consecutive frames
}

// Open reads the EVI file at path.
//
// A file extension other than ".evi" is accepted; the header decides
// whether the content is valid.
func Open(path string) (*EVIFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open EVI file")
	}
	defer f.Close()

	evi, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", filepath.Base(path))
	}
	return evi, nil
}

// Decode reads an EVI file from r.
//
// 32-bit samples are truncated to their low 16 bits, matching the behaviour
// of the acquisition tools that consume the same files.
func Decode(r io.ReadSeeker) (*EVIFile, error) {
	headers, err := readHeaders(r)
	if err != nil {
		return nil, err
	}

	evi := &EVIFile{headers: headers, Boards: 1, BoardRows: 1, TotalEnergy: true, LittleEndian: true}
	if err := evi.parseHeaders(); err != nil {
		return nil, err
	}

	nframes, _ := evi.intHeader(KeyFrameCount)
	start := int64(evi.HeaderBytes - evi.FrameGapBytes)
	if start < 0 {
		return nil, errors.Errorf("offset %d smaller than frame gap %d", evi.HeaderBytes, evi.FrameGapBytes)
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "failed to seek to pixel data")
	}

	var order binary.ByteOrder = binary.LittleEndian
	if !evi.LittleEndian {
		order = binary.BigEndian
	}
	sampleSize := 2
	if evi.Is32Bit {
		sampleSize = 4
	}

	br := bufio.NewReader(r)
	buf := make([]byte, evi.Width*evi.Height*sampleSize)
	// The frame count comes from the header; the slice grows as frames are
	// actually read.
	evi.frames = make([]*mat.Dense, 0)
	for i := 0; i < nframes; i++ {
		if _, err := br.Discard(evi.FrameGapBytes); err != nil {
			return nil, errors.Wrapf(err, "frame %d: failed to skip frame header", i)
		}
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, errors.Wrapf(err, "frame %d: failed to read pixel data", i)
		}

		data := make([]float64, evi.Width*evi.Height)
		for k := range data {
			if evi.Is32Bit {
				data[k] = float64(uint16(order.Uint32(buf[4*k:])))
			} else {
				data[k] = float64(order.Uint16(buf[2*k:]))
			}
		}
		evi.frames = append(evi.frames, mat.NewDense(evi.Height, evi.Width, data))
	}

	return evi, nil
}

// Frames returns the number of frames in the file.
func (e *EVIFile) Frames() int {
	return len(e.frames)
}

// Frame returns frame i as a Height x Width matrix.
func (e *EVIFile) Frame(i int) (*mat.Dense, error) {
	if i < 0 || i >= len(e.frames) {
		return nil, fmt.Errorf("frame %d out of range (file has %d frames)", i, len(e.frames))
	}
	return e.frames[i], nil
}

// AllFrames returns every frame in file order.
func (e *EVIFile) AllFrames() []*mat.Dense {
	return e.frames
}

// Shape returns height, width and frame count.
func (e *EVIFile) Shape() (height, width, nframes int) {
	return e.Height, e.Width, len(e.frames)
}

// Header returns a copy of the raw header values keyed by name.
func (e *EVIFile) Header() map[string]string {
	out := make(map[string]string, len(e.headers))
	for k, v := range e.headers {
		out[k] = v
	}
	return out
}

// readHeaders reads the fixed block of "Name value" header lines. Blank
// lines count toward the block but are not stored.
func readHeaders(r io.Reader) (map[string]string, error) {
	headers := make(map[string]string, HeaderLines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	for i := 0; i < HeaderLines && sc.Scan(); i++ {
		name, value, _ := strings.Cut(sc.Text(), " ")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		headers[name] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	return headers, nil
}

func (e *EVIFile) parseHeaders() error {
	imageType, ok := e.headers[KeyImageType]
	if !ok {
		return errors.Errorf("missing header %s", KeyImageType)
	}
	e.Is32Bit = imageType == "Single" || imageType == "32-bit Real"

	for _, req := range []struct {
		key string
		dst *int
	}{
		{KeyWidth, &e.Width},
		{KeyHeight, &e.Height},
		{KeyFrameGap, &e.FrameGapBytes},
		{KeyOffset, &e.HeaderBytes},
	} {
		v, err := e.intHeader(req.key)
		if err != nil {
			return err
		}
		*req.dst = v
	}
	nframes, err := e.intHeader(KeyFrameCount)
	if err != nil {
		return err
	}
	if e.Width <= 0 || e.Height <= 0 || nframes < 0 || e.FrameGapBytes < 0 {
		return errors.Errorf("invalid geometry %dx%d with %d frames", e.Width, e.Height, nframes)
	}
	sampleSize := 2
	if e.Is32Bit {
		sampleSize = 4
	}
	if e.Width > MaxFrameBytes/sampleSize/e.Height {
		return errors.Errorf("frame geometry %dx%d exceeds %d bytes", e.Width, e.Height, MaxFrameBytes)
	}

	if v, ok := e.headers[KeyEndianness]; ok {
		e.LittleEndian = v == littleEndianMarker
	}
	if v, ok := e.headers[KeyTC]; ok {
		if e.TC, err = strconv.Atoi(v); err != nil {
			return errors.Wrapf(err, "invalid %s", KeyTC)
		}
	}
	e.Tds = strings.EqualFold(e.headers[KeyTds], "true")

	if v, ok := e.headers[KeyTdsTruncate]; ok {
		e.TdsTruncate = strings.EqualFold(v, "true")
	} else {
		if v, ok := e.headers[KeyEnergyType]; ok {
			e.TotalEnergy = strings.EqualFold(v, "total_energy")
		}
		key := KeyTdsTruncateHE
		if e.TotalEnergy {
			key = KeyTdsTruncateTE
		}
		e.TdsTruncate = strings.EqualFold(e.headers[key], "true")
	}

	if _, ok := e.headers[KeyBoards]; ok {
		if e.Boards, err = e.intHeader(KeyBoards); err != nil {
			return err
		}
	}
	if _, ok := e.headers[KeyBoardRows]; ok {
		if e.BoardRows, err = e.intHeader(KeyBoardRows); err != nil {
			return err
		}
	}
	return nil
}

func (e *EVIFile) intHeader(key string) (int, error) {
	v, ok := e.headers[key]
	if !ok {
		return 0, errors.Errorf("missing header %s", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid header %s", key)
	}
	return n, nil
}
