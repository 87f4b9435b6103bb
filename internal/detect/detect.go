package detect

import (
	"bytes"
	"path/filepath"
	"strings"
)

// FileType represents the classified format of a scanned file.
type FileType int

const (
	TypeUnsupported FileType = iota
	TypePNG
	TypeJPEG
)

var (
	pngSignature  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	jpegSignature = []byte{0xFF, 0xD8, 0xFF}
)

// String returns the string representation of the FileType.
func (ft FileType) String() string {
	switch ft {
	case TypePNG:
		return "PNG"
	case TypeJPEG:
		return "JPEG"
	default:
		return "Unsupported"
	}
}

// IsSupported reports whether the file type can be processed.
func (ft FileType) IsSupported() bool {
	return ft == TypePNG || ft == TypeJPEG
}

// ByExtension classifies a file by its extension alone.
func ByExtension(path string) FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return TypePNG
	case ".jpg", ".jpeg":
		return TypeJPEG
	default:
		return TypeUnsupported
	}
}

// BySignature classifies a byte buffer by its magic bytes.
func BySignature(data []byte) FileType {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return TypePNG
	case bytes.HasPrefix(data, jpegSignature):
		return TypeJPEG
	default:
		return TypeUnsupported
	}
}

// Matches reports whether the file contents agree with the type its
// extension claims. Files whose signature disagrees are treated as
// corrupt by the stripper rather than silently reclassified.
func Matches(data []byte, ft FileType) bool {
	return BySignature(data) == ft
}
