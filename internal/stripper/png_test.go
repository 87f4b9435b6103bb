package stripper

import (
	"bytes"
	"testing"

	"github.com/fibnas/metazap/internal/detect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStripPNG_RemovesAncillaryChunks verifies that text, EXIF and time
// chunks are dropped while the image still decodes to identical pixels.
func TestStripPNG_RemovesAncillaryChunks(t *testing.T) {
	s := NewChunkStripper()
	clean := encodePNG(t)

	dirty := withPNGChunk(t, clean, "tEXt", []byte("Comment\x00shot on a phone"))
	dirty = withPNGChunk(t, dirty, "zTXt", []byte("Software\x00\x00xxxx"))
	dirty = withPNGChunk(t, dirty, "eXIf", []byte{0x4D, 0x4D, 0x00, 0x2A})
	dirty = withPNGChunk(t, dirty, "tIME", []byte{0x07, 0xE8, 0x01, 0x01, 0x00, 0x00, 0x00})

	stripped, err := s.Strip(dirty, detect.TypePNG)
	require.NoError(t, err)

	assert.NotContains(t, string(stripped), "tEXt")
	assert.NotContains(t, string(stripped), "zTXt")
	assert.NotContains(t, string(stripped), "eXIf")
	assert.NotContains(t, string(stripped), "tIME")
	assert.NotContains(t, string(stripped), "shot on a phone")

	// Nothing but the injected chunks should differ from the clean encode.
	assert.Equal(t, clean, stripped)

	requirePixelsEqual(t, decodeImage(t, dirty), decodeImage(t, stripped))
}

// TestStripPNG_KeepsTRNS verifies the tRNS exception to the
// drop-all-ancillary rule.
func TestStripPNG_KeepsTRNS(t *testing.T) {
	s := NewChunkStripper()
	// tRNS placed before IEND is not where an encoder would put it, but
	// chunk retention only looks at the type.
	dirty := withPNGChunk(t, encodePNG(t), "tRNS", []byte{0x00, 0x01})
	dirty = withPNGChunk(t, dirty, "tEXt", []byte("Title\x00x"))

	stripped, err := s.Strip(dirty, detect.TypePNG)
	require.NoError(t, err)

	assert.Contains(t, string(stripped), "tRNS")
	assert.NotContains(t, string(stripped), "tEXt")
}

// TestStripPNG_Idempotent verifies that stripping already-stripped
// bytes returns byte-identical output.
func TestStripPNG_Idempotent(t *testing.T) {
	s := NewChunkStripper()
	dirty := withPNGChunk(t, encodePNG(t), "tEXt", []byte("Author\x00nobody"))

	once, err := s.Strip(dirty, detect.TypePNG)
	require.NoError(t, err)

	twice, err := s.Strip(once, detect.TypePNG)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(once, twice))
}

// TestStripPNG_Corrupt verifies corrupt inputs are rejected with ErrCorrupt.
func TestStripPNG_Corrupt(t *testing.T) {
	s := NewChunkStripper()

	tests := []struct {
		name string
		data []byte
	}{
		{"not an image", []byte("definitely not a png")},
		{"empty", nil},
		{"signature only", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
		{"truncated chunk", encodePNG(t)[:20]},
		{"missing IEND", encodePNG(t)[:len(encodePNG(t))-12]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Strip(tt.data, detect.TypePNG)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

// TestStrip_Unsupported verifies the unsupported file type error.
func TestStrip_Unsupported(t *testing.T) {
	s := NewChunkStripper()
	_, err := s.Strip([]byte("anything"), detect.TypeUnsupported)
	assert.ErrorIs(t, err, ErrUnsupported)
}
