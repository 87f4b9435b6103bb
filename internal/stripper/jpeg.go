package stripper

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

/*
	JPEG layout:
	SOI (FF D8) then marker segments (FF <marker> <length:2> <payload>)
	up to SOS (FF DA), after which entropy-coded scan data runs to EOI.

	Metadata lives in APPn and COM segments. APP0 (JFIF) and APP14
	(Adobe colour transform) stay: decoders use APP14 to pick the
	YCbCr/YCCK transform, dropping it can change decoded pixels.
*/

const (
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerCOM   = 0xFE
	markerAPP0  = 0xE0
	markerAPP14 = 0xEE
	markerAPP15 = 0xEF
)

// stripJPEG rewrites a JPEG marker stream dropping metadata segments.
// Everything from SOS onward is copied verbatim, so scan data, restart
// markers and EOI are untouched.
func stripJPEG(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing SOI marker", ErrCorrupt)
	}

	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(data[:2])

	off := 2
	for {
		if len(data)-off < 2 {
			return nil, fmt.Errorf("%w: truncated before SOS", ErrCorrupt)
		}
		if data[off] != 0xFF {
			return nil, fmt.Errorf("%w: bad marker byte 0x%02X at offset %d", ErrCorrupt, data[off], off)
		}

		marker := data[off+1]
		switch {
		case marker == 0xFF:
			// fill byte, markers may be padded
			off++
			continue

		case marker == markerSOS:
			out.Write(data[off:])
			return out.Bytes(), nil

		case marker == markerEOI:
			out.Write(data[off : off+2])
			return out.Bytes(), nil

		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			// standalone markers carry no length
			out.Write(data[off : off+2])
			off += 2

		default:
			if len(data)-off < 4 {
				return nil, fmt.Errorf("%w: truncated segment header", ErrCorrupt)
			}
			segLen := int(binary.BigEndian.Uint16(data[off+2 : off+4]))
			if segLen < 2 {
				return nil, fmt.Errorf("%w: invalid segment length %d", ErrCorrupt, segLen)
			}
			end := off + 2 + segLen
			if end > len(data) {
				return nil, fmt.Errorf("%w: segment 0x%02X exceeds file size", ErrCorrupt, marker)
			}
			if !dropJPEGSegment(marker) {
				out.Write(data[off:end])
			}
			off = end
		}
	}
}

// dropJPEGSegment reports whether a marker segment is metadata-only.
func dropJPEGSegment(marker byte) bool {
	if marker == markerCOM {
		return true
	}
	// APP1..APP15 except APP14; APP0 (JFIF) stays too.
	return marker > markerAPP0 && marker <= markerAPP15 && marker != markerAPP14
}
