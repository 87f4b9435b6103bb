package stripper

import (
	"errors"

	"github.com/fibnas/metazap/internal/detect"
)

var (
	// ErrCorrupt is returned when the byte stream does not parse as the
	// claimed format.
	ErrCorrupt = errors.New("corrupt image data")

	// ErrUnsupported is returned for file types the stripper cannot handle.
	ErrUnsupported = errors.New("unsupported image format")
)

// Stripper removes non-pixel metadata from an image byte buffer.
// The returned bytes decode to a pixel-identical image.
type Stripper interface {
	Strip(data []byte, ft detect.FileType) ([]byte, error)
}

// ChunkStripper is the default Stripper. It rewrites PNG chunk streams
// and JPEG marker segments without touching compressed pixel data.
type ChunkStripper struct{}

// NewChunkStripper returns a new ChunkStripper.
func NewChunkStripper() *ChunkStripper {
	return &ChunkStripper{}
}

// Strip removes metadata from data according to its file type.
func (s *ChunkStripper) Strip(data []byte, ft detect.FileType) ([]byte, error) {
	switch ft {
	case detect.TypePNG:
		return stripPNG(data)
	case detect.TypeJPEG:
		return stripJPEG(data)
	default:
		return nil, ErrUnsupported
	}
}
