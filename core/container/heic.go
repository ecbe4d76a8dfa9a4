package container

import (
	"encoding/binary"
	"fmt"

	"photoscrub/core"
)

// Boxes worth descending into when hunting for the Exif box. meta is a
// full box, so its payload starts with a version and flags word.
var heicContainerBoxes = map[string]int{
	"meta": 4,
	"moov": 0,
	"trak": 0,
	"mdia": 0,
	"minf": 0,
	"stbl": 0,
}

// heicCodec reads but never writes. Rewriting HEIC means rebuilding the
// iloc offset tables for every item in the file, which is out of scope.
type heicCodec struct{}

func (heicCodec) Decode(data []byte) (*Parts, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: short ISOBMFF header", core.ErrUndecodablePayload)
	}
	var meta []Segment
	walkBoxes(data, 0, &meta)
	return &Parts{
		Meta:          meta,
		PayloadDigest: payloadDigest(data),
		opaque:        nil,
	}, nil
}

// walkBoxes scans one level of boxes, recursing into known containers.
// depth keeps a malformed size field from recursing forever.
func walkBoxes(data []byte, depth int, meta *[]Segment) {
	if depth > 8 {
		return
	}
	i := 0
	for i+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[i : i+4]))
		boxType := string(data[i+4 : i+8])
		body := i + 8
		if size == 1 {
			if i+16 > len(data) {
				return
			}
			size = int(binary.BigEndian.Uint64(data[i+8 : i+16]))
			body = i + 16
		}
		if size == 0 {
			size = len(data) - i // box extends to end of file
		}
		if size < body-i || i+size > len(data) {
			return
		}
		boxData := data[body : i+size]

		if boxType == "Exif" {
			// A 4-byte TIFF header offset precedes the EXIF payload.
			if len(boxData) > 4 {
				*meta = append(*meta, Segment{Kind: KindEXIF, Data: boxData[4:]})
			}
		} else if skip, ok := heicContainerBoxes[boxType]; ok && len(boxData) > skip {
			walkBoxes(boxData[skip:], depth+1, meta)
		}
		i += size
	}
}

func (heicCodec) Encode(p *Parts, exifData []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: HEIC rewriting is not supported", core.ErrEncodeFailure)
}
