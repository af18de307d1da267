// Package bmp turns a raw sensor dump into an 8-bit grayscale bitmap.
//
// The dump is read as row-major pixels of an assumed width; the height is
// whatever the data allows (len/width, remainder dropped). Output is an
// uncompressed palette bitmap with a fixed identity gray ramp and rows stored
// top-down (negative height) so that the first buffer byte is the top-left
// pixel. Rows are written without 4-byte padding; the file size field
// accounts for exactly width*height pixel bytes.
package bmp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

const (
	FileHeaderSize = 14
	InfoHeaderSize = 40
	HeaderSize     = FileHeaderSize + InfoHeaderSize
	PaletteEntries = 256
	PaletteSize    = PaletteEntries * 4
	PixelOffset    = HeaderSize + PaletteSize

	magic = 0x4D42 // "BM"
)

// ErrInvalidDimensions is returned for a non-positive width, or for an image
// whose width or file size does not fit the 32-bit header fields.
var ErrInvalidDimensions = errors.New("bmp: invalid dimensions")

// Header mirrors the BITMAPFILEHEADER + BITMAPINFOHEADER pair.
type Header struct {
	Type       uint16
	FileSize   uint32
	Reserved1  uint16
	Reserved2  uint16
	PixelOff   uint32
	InfoSize   uint32
	Width      int32
	Height     int32
	Planes     uint16
	BitCount   uint16
	Compress   uint32
	ImageSize  uint32
	XPelsPerM  int32
	YPelsPerM  int32
	ColorsUsed uint32
	ColorsImp  uint32
}

// grayPalette is the B,G,R,0 identity ramp shared by every artifact.
var grayPalette = func() [PaletteSize]byte {
	var p [PaletteSize]byte
	for i := 0; i < PaletteEntries; i++ {
		p[i*4+0] = byte(i)
		p[i*4+1] = byte(i)
		p[i*4+2] = byte(i)
		p[i*4+3] = 0
	}
	return p
}()

// Palette returns a copy of the grayscale palette.
func Palette() []byte {
	p := grayPalette
	return p[:]
}

// Dimensions returns the image height for n buffer bytes at the given width.
func Dimensions(n, width int) (height int, err error) {
	if width <= 0 || width > math.MaxInt32 {
		return 0, fmt.Errorf("%w: width %d", ErrInvalidDimensions, width)
	}
	height = n / width
	if uint64(width)*uint64(height) > math.MaxUint32-PixelOffset {
		return 0, fmt.Errorf("%w: %dx%d does not fit a bitmap header", ErrInvalidDimensions, width, height)
	}
	return height, nil
}

// NewHeader builds the header for a width x height top-down image.
func NewHeader(width, height int) Header {
	pixels := uint32(width * height)
	return Header{
		Type:       magic,
		FileSize:   PixelOffset + pixels,
		PixelOff:   PixelOffset,
		InfoSize:   InfoHeaderSize,
		Width:      int32(width),
		Height:     -int32(height),
		Planes:     1,
		BitCount:   8,
		ImageSize:  pixels,
		ColorsUsed: PaletteEntries,
	}
}

// Encode renders buf as a bitmap of the given width. Trailing bytes that do
// not fill a complete row are dropped. A buffer shorter than one row yields a
// valid zero-height bitmap.
func Encode(buf []byte, width int) ([]byte, error) {
	height, err := Dimensions(len(buf), width)
	if err != nil {
		return nil, err
	}

	hdr := NewHeader(width, height)
	out := make([]byte, hdr.FileSize)
	putHeader(out[:HeaderSize], hdr)
	copy(out[HeaderSize:PixelOffset], grayPalette[:])
	copy(out[PixelOffset:], buf[:width*height])
	return out, nil
}

// WriteFile encodes buf and writes the bitmap to path.
func WriteFile(path string, buf []byte, width int) error {
	data, err := Encode(buf, width)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("bmp: write %s: %w", path, err)
	}
	return nil
}

func putHeader(b []byte, h Header) {
	le := binary.LittleEndian
	le.PutUint16(b[0:], h.Type)
	le.PutUint32(b[2:], h.FileSize)
	le.PutUint16(b[6:], h.Reserved1)
	le.PutUint16(b[8:], h.Reserved2)
	le.PutUint32(b[10:], h.PixelOff)
	le.PutUint32(b[14:], h.InfoSize)
	le.PutUint32(b[18:], uint32(h.Width))
	le.PutUint32(b[22:], uint32(h.Height))
	le.PutUint16(b[26:], h.Planes)
	le.PutUint16(b[28:], h.BitCount)
	le.PutUint32(b[30:], h.Compress)
	le.PutUint32(b[34:], h.ImageSize)
	le.PutUint32(b[38:], uint32(h.XPelsPerM))
	le.PutUint32(b[42:], uint32(h.YPelsPerM))
	le.PutUint32(b[46:], h.ColorsUsed)
	le.PutUint32(b[50:], h.ColorsImp)
}

// ParseHeader decodes the 54-byte header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("bmp: header too short: %d bytes", len(b))
	}
	le := binary.LittleEndian
	h := Header{
		Type:       le.Uint16(b[0:]),
		FileSize:   le.Uint32(b[2:]),
		Reserved1:  le.Uint16(b[6:]),
		Reserved2:  le.Uint16(b[8:]),
		PixelOff:   le.Uint32(b[10:]),
		InfoSize:   le.Uint32(b[14:]),
		Width:      int32(le.Uint32(b[18:])),
		Height:     int32(le.Uint32(b[22:])),
		Planes:     le.Uint16(b[26:]),
		BitCount:   le.Uint16(b[28:]),
		Compress:   le.Uint32(b[30:]),
		ImageSize:  le.Uint32(b[34:]),
		XPelsPerM:  int32(le.Uint32(b[38:])),
		YPelsPerM:  int32(le.Uint32(b[42:])),
		ColorsUsed: le.Uint32(b[46:]),
		ColorsImp:  le.Uint32(b[50:]),
	}
	if h.Type != magic {
		return h, fmt.Errorf("bmp: bad magic 0x%04X", h.Type)
	}
	return h, nil
}
