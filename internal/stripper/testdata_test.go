package stripper

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// testImage returns a small image with a deterministic gradient.
func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 0x80, A: 0xFF})
		}
	}
	return img
}

// encodePNG returns a clean PNG containing only critical chunks.
func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

// withPNGChunk inserts an ancillary chunk right before IEND.
func withPNGChunk(t *testing.T, data []byte, chunkType string, chunkData []byte) []byte {
	t.Helper()
	require.GreaterOrEqual(t, len(data), 12)

	chunk := make([]byte, 0, 12+len(chunkData))
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(chunkData)))
	chunk = append(chunk, chunkType...)
	chunk = append(chunk, chunkData...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(append([]byte(chunkType), chunkData...)))

	// IEND is the trailing 12 bytes of an encoder-produced PNG.
	iendStart := len(data) - 12
	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:iendStart]...)
	out = append(out, chunk...)
	out = append(out, data[iendStart:]...)
	return out
}

// encodeJPEG returns a clean JPEG without injected metadata.
func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// withJPEGSegment inserts a marker segment right after SOI.
func withJPEGSegment(t *testing.T, data []byte, marker byte, payload []byte) []byte {
	t.Helper()
	require.GreaterOrEqual(t, len(data), 2)

	seg := []byte{0xFF, marker}
	seg = binary.BigEndian.AppendUint16(seg, uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := make([]byte, 0, len(data)+len(seg))
	out = append(out, data[:2]...)
	out = append(out, seg...)
	out = append(out, data[2:]...)
	return out
}

// decodeImage decodes PNG or JPEG bytes.
func decodeImage(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

// requirePixelsEqual asserts two images decode to the same pixels.
func requirePixelsEqual(t *testing.T, want, got image.Image) {
	t.Helper()
	require.Equal(t, want.Bounds(), got.Bounds())
	b := want.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			wr, wg, wb, wa := want.At(x, y).RGBA()
			gr, gg, gb, ga := got.At(x, y).RGBA()
			if wr != gr || wg != gg || wb != gb || wa != ga {
				t.Fatalf("pixel mismatch at (%d,%d)", x, y)
			}
		}
	}
}
