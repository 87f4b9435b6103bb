package stripper

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fibnas/metazap/internal/detect"
)

/*
	PNG layout:
	Signature (8 bytes) then a sequence of chunks, each
	Length (4) + Type (4) + Data (Length) + CRC (4), big endian.

	Critical chunks have an uppercase first type letter (IHDR, PLTE,
	IDAT, IEND). Everything else is ancillary; of those only tRNS is
	needed to reconstruct identical pixels.
*/

const pngChunkOverhead = 12 // length + type + crc

// stripPNG rewrites a PNG chunk stream keeping only critical chunks
// and tRNS. Kept chunks are copied verbatim, CRC included.
func stripPNG(data []byte) ([]byte, error) {
	if detect.BySignature(data) != detect.TypePNG {
		return nil, fmt.Errorf("%w: missing PNG signature", ErrCorrupt)
	}

	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(data[:8])

	off := 8
	sawIEND := false
	for off < len(data) {
		if len(data)-off < pngChunkOverhead {
			return nil, fmt.Errorf("%w: truncated chunk header at offset %d", ErrCorrupt, off)
		}

		length := int(binary.BigEndian.Uint32(data[off : off+4]))
		chunkType := string(data[off+4 : off+8])
		if length > len(data)-off-pngChunkOverhead {
			return nil, fmt.Errorf("%w: chunk %s exceeds file size", ErrCorrupt, chunkType)
		}

		end := off + pngChunkOverhead + length
		if keepPNGChunk(chunkType) {
			out.Write(data[off:end])
		}
		off = end

		if chunkType == "IEND" {
			sawIEND = true
			break
		}
	}

	if !sawIEND {
		return nil, fmt.Errorf("%w: missing IEND chunk", ErrCorrupt)
	}
	return out.Bytes(), nil
}

// keepPNGChunk reports whether a chunk is required for pixel-identical
// decoding. Critical chunks have an uppercase first letter.
func keepPNGChunk(chunkType string) bool {
	if chunkType == "tRNS" {
		return true
	}
	return chunkType[0] >= 'A' && chunkType[0] <= 'Z'
}
