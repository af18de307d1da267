package bmp

import (
	"bytes"
	"image"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xbmp "golang.org/x/image/bmp"
)

func ramp(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestEncodeHeaderFields(t *testing.T) {
	buf := ramp(160*3 + 7)
	out, err := Encode(buf, 160)
	require.NoError(t, err)

	require.Len(t, out, 54+1024+160*3)

	h, err := ParseHeader(out)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x4D42), h.Type)
	assert.Equal(t, uint32(len(out)), h.FileSize)
	assert.Equal(t, uint32(1078), h.PixelOff)
	assert.Equal(t, uint32(40), h.InfoSize)
	assert.Equal(t, int32(160), h.Width)
	assert.Equal(t, int32(-3), h.Height)
	assert.Equal(t, uint16(1), h.Planes)
	assert.Equal(t, uint16(8), h.BitCount)
	assert.Equal(t, uint32(0), h.Compress)
	assert.Equal(t, uint32(480), h.ImageSize)
	assert.Equal(t, uint32(256), h.ColorsUsed)
	assert.Equal(t, uint32(0), h.ColorsImp)
}

func TestEncodeLength(t *testing.T) {
	tests := []struct {
		n, width int
	}{
		{0, 1},
		{10, 3},
		{4096, 160},
		{19200, 160},
		{1 << 20, 160},
		{255, 256},
	}
	for _, tt := range tests {
		out, err := Encode(ramp(tt.n), tt.width)
		require.NoError(t, err)
		assert.Len(t, out, 54+1024+tt.width*(tt.n/tt.width), "n=%d width=%d", tt.n, tt.width)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	buf := ramp(5000)
	a, err := Encode(buf, 64)
	require.NoError(t, err)
	b, err := Encode(buf, 64)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestEncodeInvalidWidth(t *testing.T) {
	_, err := Encode(ramp(10), 0)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = Encode(ramp(10), -4)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestDimensionsRejectOversize(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("needs 64-bit int")
	}

	wide := math.MaxInt32
	wide++
	_, err := Dimensions(10, wide)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	n := 1
	n <<= 33
	_, err = Dimensions(n, 1<<20)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = Dimensions(n, math.MaxInt32)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	h, err := Dimensions(1<<20, math.MaxInt32)
	require.NoError(t, err)
	assert.Zero(t, h)
}

func TestEncodeShorterThanOneRow(t *testing.T) {
	out, err := Encode(ramp(10), 16)
	require.NoError(t, err)
	assert.Len(t, out, PixelOffset)

	h, err := ParseHeader(out)
	require.NoError(t, err)
	assert.Equal(t, int32(0), h.Height)
	assert.Equal(t, uint32(0), h.ImageSize)
}

func TestPaletteIsIdentityRamp(t *testing.T) {
	out, err := Encode(ramp(32), 16)
	require.NoError(t, err)

	pal := out[HeaderSize:PixelOffset]
	for i := 0; i < 256; i++ {
		assert.Equal(t, []byte{byte(i), byte(i), byte(i), 0}, pal[i*4:i*4+4])
	}
	assert.Equal(t, Palette(), pal)
}

func TestRoundTripTopDown(t *testing.T) {
	// [0..255] repeated, width 16
	buf := make([]byte, 0, 1024)
	for len(buf) < 1024 {
		buf = append(buf, ramp(256)...)
	}

	out, err := Encode(buf, 16)
	require.NoError(t, err)

	pixels := out[PixelOffset:]
	for r := 0; r < 64; r++ {
		for c := 0; c < 16; c++ {
			require.Equal(t, buf[r*16+c], pixels[r*16+c], "row %d col %d", r, c)
		}
	}

	// An independent decoder agrees on orientation.
	img, err := xbmp.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 64), img.Bounds())

	paletted, ok := img.(*image.Paletted)
	require.True(t, ok, "decoded %T, want *image.Paletted", img)
	assert.Equal(t, buf[0], paletted.ColorIndexAt(0, 0))
	assert.Equal(t, buf[16*5+3], paletted.ColorIndexAt(3, 5))
	assert.Equal(t, buf[1023], paletted.ColorIndexAt(15, 63))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.bmp")
	require.NoError(t, WriteFile(path, ramp(320), 160))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, PixelOffset+320)

	assert.ErrorIs(t, WriteFile(path, ramp(10), 0), ErrInvalidDimensions)
}

func TestParseHeaderErrors(t *testing.T) {
	_, err := ParseHeader(make([]byte, 10))
	assert.Error(t, err)

	_, err = ParseHeader(make([]byte, HeaderSize))
	assert.Error(t, err)
}
