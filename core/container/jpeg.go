package container

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"photoscrub/core"
)

// Segment prefixes that identify what an APP marker carries.
var (
	jpegExifPrefix = []byte("Exif\x00\x00")
	jpegXMPPrefix  = []byte("http://ns.adobe.com/xap/1.0/\x00")
	jpegIPTCPrefix = []byte("Photoshop 3.0\x00")
	jpegICCPrefix  = []byte("ICC_PROFILE\x00")
)

// Markers whose segments are metadata and get dropped on rewrite.
var jpegMetaMarkers = map[byte]bool{
	0xE1: true, // APP1: EXIF / XMP
	0xE2: true, // APP2: ICC profile / FlashPix
	0xEC: true, // APP12: picture info
	0xED: true, // APP13: IPTC / Photoshop
	0xEE: true, // APP14: Adobe
	0xFE: true, // COM: comment
}

type jpegSegment struct {
	marker byte
	data   []byte
}

// jpegState retains the non-metadata segments and the entropy-coded
// tail needed to reassemble the file.
type jpegState struct {
	keep []jpegSegment
	tail []byte // everything after the SOS header, verbatim
}

type jpegCodec struct{}

func (jpegCodec) Decode(data []byte) (*Parts, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, fmt.Errorf("%w: missing JPEG SOI", core.ErrUndecodablePayload)
	}

	st := &jpegState{}
	var meta []Segment
	i := 2
	for i+1 < len(data) {
		if data[i] != 0xFF {
			return nil, fmt.Errorf("%w: bad segment marker at %d", core.ErrUndecodablePayload, i)
		}
		// fill bytes before a marker are legal
		for i+1 < len(data) && data[i+1] == 0xFF {
			i++
		}
		if i+1 >= len(data) {
			break
		}
		marker := data[i+1]
		i += 2

		if standaloneMarker(marker) {
			st.keep = append(st.keep, jpegSegment{marker: marker})
			if marker == 0xD9 { // EOI before any scan data
				break
			}
			continue
		}

		if i+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated segment length", core.ErrUndecodablePayload)
		}
		segLen := int(binary.BigEndian.Uint16(data[i : i+2]))
		if segLen < 2 || i+segLen > len(data) {
			return nil, fmt.Errorf("%w: segment overruns file", core.ErrUndecodablePayload)
		}
		segData := data[i+2 : i+segLen]
		i += segLen

		if jpegMetaMarkers[marker] {
			meta = append(meta, classifyJPEGSegment(marker, segData))
			continue
		}
		st.keep = append(st.keep, jpegSegment{marker: marker, data: segData})
		if marker == 0xDA { // start of scan: the rest is entropy-coded
			st.tail = data[i:]
			break
		}
	}

	return &Parts{
		Meta:          meta,
		PayloadDigest: jpegDigest(st),
		opaque:        st,
	}, nil
}

func (jpegCodec) Encode(p *Parts, exifData []byte) ([]byte, error) {
	st, ok := p.opaque.(*jpegState)
	if !ok {
		return nil, fmt.Errorf("%w: not a decoded JPEG", core.ErrEncodeFailure)
	}
	// APP1 length is a uint16 and includes itself plus the Exif prefix.
	if len(exifData) > 0xFFFF-2-len(jpegExifPrefix) {
		return nil, fmt.Errorf("%w: exif segment too large", core.ErrEncodeFailure)
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})
	if len(exifData) > 0 {
		writeJPEGSegment(&buf, 0xE1, append(append([]byte{}, jpegExifPrefix...), exifData...))
	}
	for _, seg := range st.keep {
		if standaloneMarker(seg.marker) {
			buf.Write([]byte{0xFF, seg.marker})
			continue
		}
		writeJPEGSegment(&buf, seg.marker, seg.data)
	}
	buf.Write(st.tail)
	return buf.Bytes(), nil
}

func writeJPEGSegment(buf *bytes.Buffer, marker byte, data []byte) {
	buf.WriteByte(0xFF)
	buf.WriteByte(marker)
	length := make([]byte, 2)
	binary.BigEndian.PutUint16(length, uint16(len(data)+2))
	buf.Write(length)
	buf.Write(data)
}

// standaloneMarker reports markers that carry no length field.
func standaloneMarker(m byte) bool {
	return m == 0x01 || m == 0xD9 || (m >= 0xD0 && m <= 0xD7)
}

func classifyJPEGSegment(marker byte, data []byte) Segment {
	switch marker {
	case 0xE1:
		if bytes.HasPrefix(data, jpegExifPrefix) {
			return Segment{Kind: KindEXIF, Data: data[len(jpegExifPrefix):]}
		}
		if bytes.HasPrefix(data, jpegXMPPrefix) {
			return Segment{Kind: KindXMP, Data: data[len(jpegXMPPrefix):]}
		}
	case 0xE2:
		if bytes.HasPrefix(data, jpegICCPrefix) {
			// two sequencing bytes follow the profile identifier
			rest := data[len(jpegICCPrefix):]
			if len(rest) > 2 {
				rest = rest[2:]
			}
			return Segment{Kind: KindICC, Data: rest}
		}
	case 0xED:
		if bytes.HasPrefix(data, jpegIPTCPrefix) {
			return Segment{Kind: KindIPTC, Data: data[len(jpegIPTCPrefix):]}
		}
	case 0xFE:
		return Segment{Kind: KindText, Data: data}
	}
	return Segment{Kind: KindOther, Data: data}
}

func jpegDigest(st *jpegState) string {
	chunks := make([][]byte, 0, len(st.keep)*2+1)
	for _, seg := range st.keep {
		chunks = append(chunks, []byte{seg.marker}, seg.data)
	}
	chunks = append(chunks, st.tail)
	return payloadDigest(chunks...)
}
