package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestByExtension verifies extension-based classification, including
// case insensitivity and unsupported types.
func TestByExtension(t *testing.T) {
	tests := []struct {
		path     string
		expected FileType
	}{
		{"photo.png", TypePNG},
		{"photo.PNG", TypePNG},
		{"photo.jpg", TypeJPEG},
		{"photo.jpeg", TypeJPEG},
		{"photo.JPEG", TypeJPEG},
		{"dir/sub/photo.Jpg", TypeJPEG},
		{"notes.txt", TypeUnsupported},
		{"archive.png.gz", TypeUnsupported},
		{"noext", TypeUnsupported},
		{"", TypeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, ByExtension(tt.path))
		})
	}
}

// TestBySignature verifies magic-byte classification.
func TestBySignature(t *testing.T) {
	pngSig := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00}
	jpegSig := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}

	assert.Equal(t, TypePNG, BySignature(pngSig))
	assert.Equal(t, TypeJPEG, BySignature(jpegSig))
	assert.Equal(t, TypeUnsupported, BySignature([]byte("plain text")))
	assert.Equal(t, TypeUnsupported, BySignature(nil))
	assert.Equal(t, TypeUnsupported, BySignature([]byte{0x89, 'P'}))
}

// TestMatches verifies that extension claims are checked against content.
func TestMatches(t *testing.T) {
	pngSig := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

	assert.True(t, Matches(pngSig, TypePNG))
	assert.False(t, Matches(pngSig, TypeJPEG))
	assert.False(t, Matches([]byte("junk"), TypePNG))
}

// TestFileType_String verifies string representations.
func TestFileType_String(t *testing.T) {
	assert.Equal(t, "PNG", TypePNG.String())
	assert.Equal(t, "JPEG", TypeJPEG.String())
	assert.Equal(t, "Unsupported", TypeUnsupported.String())
}

// TestFileType_IsSupported verifies processability checks.
func TestFileType_IsSupported(t *testing.T) {
	assert.True(t, TypePNG.IsSupported())
	assert.True(t, TypeJPEG.IsSupported())
	assert.False(t, TypeUnsupported.IsSupported())
}
